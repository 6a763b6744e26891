package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of an order
type OrderStatus string

const (
	OrderStatusPlaced     OrderStatus = "Placed"
	OrderStatusProcessing OrderStatus = "Processing"
	OrderStatusShipped    OrderStatus = "Shipped"
	OrderStatusDelivered  OrderStatus = "Delivered"
	OrderStatusCancelled  OrderStatus = "Cancelled"
	OrderStatusRefunded   OrderStatus = "Refunded"
)

// OrderStatuses lists every status an order may hold
var OrderStatuses = []OrderStatus{
	OrderStatusPlaced,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
	OrderStatusRefunded,
}

// Valid reports whether s is one of the known statuses. Any status may follow
// any other; there is no transition table.
func (s OrderStatus) Valid() bool {
	for _, known := range OrderStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// ShippingInfo is the delivery contact captured at order time
type ShippingInfo struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// Order is an immutable purchase record; only Status changes after creation
type Order struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	UserID      uuid.UUID       `json:"user_id" db:"user_id"`
	TotalAmount decimal.Decimal `json:"total_amount" db:"total_amount"`
	Shipping    ShippingInfo    `json:"shipping"`
	Status      OrderStatus     `json:"status" db:"status"`
	ItemCount   int             `json:"item_count"`
	Items       []*OrderItem    `json:"items,omitempty"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}

// OrderItem carries the price and name of the product as they were when the
// order was placed. ProductID is nil once the product has been deleted.
type OrderItem struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	OrderID     uuid.UUID       `json:"order_id" db:"order_id"`
	ProductID   *uuid.UUID      `json:"product_id,omitempty" db:"product_id"`
	ProductName string          `json:"product_name" db:"product_name"`
	ImageURL    string          `json:"image_url,omitempty" db:"-"`
	Quantity    int             `json:"quantity" db:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price" db:"unit_price"`
}

// LineTotal returns unit price × quantity
func (i *OrderItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// NewOrderFromCart snapshots the given cart lines into a new Placed order.
// Each line's current price becomes the order line's unit price and the total
// is the sum of the line totals.
func NewOrderFromCart(userID uuid.UUID, shipping ShippingInfo, lines []*CartItem, now time.Time) *Order {
	order := &Order{
		ID:          uuid.New(),
		UserID:      userID,
		TotalAmount: decimal.Zero,
		Shipping:    shipping,
		Status:      OrderStatusPlaced,
		Items:       make([]*OrderItem, 0, len(lines)),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	for _, line := range lines {
		productID := line.ProductID
		item := &OrderItem{
			ID:          uuid.New(),
			OrderID:     order.ID,
			ProductID:   &productID,
			ProductName: line.ProductName,
			ImageURL:    line.ImageURL,
			Quantity:    line.Quantity,
			UnitPrice:   line.Price,
		}
		order.Items = append(order.Items, item)
		order.TotalAmount = order.TotalAmount.Add(item.LineTotal())
	}
	order.ItemCount = len(order.Items)

	return order
}
