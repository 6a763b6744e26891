// Package events publishes order lifecycle events to a message broker.
package events

import (
	"context"
	"time"

	"steel-store/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Topic suffixes; the configured prefix is prepended by the publisher
const (
	TopicOrderPlaced        = "orders.placed"
	TopicOrderStatusChanged = "orders.status_changed"
)

// Publisher sends an event keyed by key to topic
type Publisher interface {
	Publish(ctx context.Context, topic, key string, event any) error
	Close() error
}

// OrderPlaced is emitted once an order has been committed
type OrderPlaced struct {
	OrderID     uuid.UUID       `json:"order_id"`
	UserID      uuid.UUID       `json:"user_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	ItemCount   int             `json:"item_count"`
	PlacedAt    time.Time       `json:"placed_at"`
}

// OrderStatusChanged is emitted after an admin changes an order's status
type OrderStatusChanged struct {
	OrderID   uuid.UUID          `json:"order_id"`
	Status    domain.OrderStatus `json:"status"`
	ChangedBy uuid.UUID          `json:"changed_by"`
	ChangedAt time.Time          `json:"changed_at"`
}

// NewOrderPlaced builds the event for a freshly placed order
func NewOrderPlaced(order *domain.Order) OrderPlaced {
	return OrderPlaced{
		OrderID:     order.ID,
		UserID:      order.UserID,
		TotalAmount: order.TotalAmount,
		ItemCount:   len(order.Items),
		PlacedAt:    order.CreatedAt,
	}
}

type noopPublisher struct{}

// NewNoopPublisher returns a Publisher that drops every event. It is used when
// no brokers are configured.
func NewNoopPublisher() Publisher {
	return noopPublisher{}
}

func (noopPublisher) Publish(context.Context, string, string, any) error { return nil }

func (noopPublisher) Close() error { return nil }
