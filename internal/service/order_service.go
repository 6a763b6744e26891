package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"steel-store/internal/domain"
	"steel-store/internal/events"
	"steel-store/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrOrderForbidden = fmt.Errorf("%w: order belongs to another user", domain.ErrForbidden)
	ErrStatusRequired = fmt.Errorf("%w: status is required", domain.ErrInvalidInput)
	ErrInvalidStatus  = fmt.Errorf("%w: unknown order status", domain.ErrInvalidInput)
)

// AdminChecker reports whether a user holds the admin flag
type AdminChecker interface {
	IsAdmin(ctx context.Context, userID uuid.UUID) (bool, error)
}

// OrderRecorder receives business metrics for orders
type OrderRecorder interface {
	OrderPlaced(total decimal.Decimal)
	OrderStatusChanged(status domain.OrderStatus)
}

// OrderService defines the interface for order business logic
type OrderService interface {
	PlaceOrder(ctx context.Context, userID uuid.UUID, shipping domain.ShippingInfo) (*domain.Order, error)
	ListOrders(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error)
	ListAllOrders(ctx context.Context, status string) ([]*domain.Order, error)
	GetOrder(ctx context.Context, callerID, orderID uuid.UUID) (*domain.Order, error)
	SetStatus(ctx context.Context, callerID, orderID uuid.UUID, status string) (*domain.Order, error)
}

type orderService struct {
	orderRepo repository.OrderRepository
	admins    AdminChecker
	publisher events.Publisher
	recorder  OrderRecorder
	logger    *zap.Logger
}

// NewOrderService creates a new instance of OrderService
func NewOrderService(
	orderRepo repository.OrderRepository,
	admins AdminChecker,
	publisher events.Publisher,
	recorder OrderRecorder,
	logger *zap.Logger,
) OrderService {
	return &orderService{
		orderRepo: orderRepo,
		admins:    admins,
		publisher: publisher,
		recorder:  recorder,
		logger:    logger,
	}
}

// PlaceOrder converts the caller's cart into an order. Publishing and metrics
// happen only after the transaction has committed and never fail the call.
func (s *orderService) PlaceOrder(ctx context.Context, userID uuid.UUID, shipping domain.ShippingInfo) (*domain.Order, error) {
	shipping = domain.ShippingInfo{
		Name:    strings.TrimSpace(shipping.Name),
		Phone:   strings.TrimSpace(shipping.Phone),
		Address: strings.TrimSpace(shipping.Address),
	}

	order, err := s.orderRepo.PlaceFromCart(ctx, userID, shipping)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Order placed",
		zap.String("order_id", order.ID.String()),
		zap.String("user_id", userID.String()),
		zap.String("total_amount", order.TotalAmount.StringFixed(2)),
		zap.Int("items", len(order.Items)),
	)
	s.recorder.OrderPlaced(order.TotalAmount)
	s.publish(ctx, events.TopicOrderPlaced, order.ID, events.NewOrderPlaced(order))

	return order, nil
}

// ListOrders returns the caller's own orders, newest first
func (s *orderService) ListOrders(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error) {
	return s.orderRepo.ListByUser(ctx, userID)
}

// ListAllOrders returns every order, optionally narrowed to one status
func (s *orderService) ListAllOrders(ctx context.Context, status string) ([]*domain.Order, error) {
	filter := domain.OrderStatus(strings.TrimSpace(status))
	if filter != "" && !filter.Valid() {
		return nil, ErrInvalidStatus
	}
	return s.orderRepo.ListAll(ctx, filter)
}

// GetOrder returns an order with its items if the caller owns it or is an admin
func (s *orderService) GetOrder(ctx context.Context, callerID, orderID uuid.UUID) (*domain.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.UserID == callerID {
		return order, nil
	}

	isAdmin, err := s.admins.IsAdmin(ctx, callerID)
	if err != nil {
		return nil, fmt.Errorf("failed to check caller role: %w", err)
	}
	if !isAdmin {
		return nil, ErrOrderForbidden
	}

	return order, nil
}

// SetStatus changes an order's status. Any of the known statuses may follow any
// other.
func (s *orderService) SetStatus(ctx context.Context, callerID, orderID uuid.UUID, status string) (*domain.Order, error) {
	status = strings.TrimSpace(status)
	if status == "" {
		return nil, ErrStatusRequired
	}
	newStatus := domain.OrderStatus(status)
	if !newStatus.Valid() {
		return nil, ErrInvalidStatus
	}

	order, err := s.orderRepo.UpdateStatus(ctx, orderID, newStatus)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Order status changed",
		zap.String("order_id", orderID.String()),
		zap.String("status", status),
		zap.String("changed_by", callerID.String()),
	)
	s.recorder.OrderStatusChanged(newStatus)
	s.publish(ctx, events.TopicOrderStatusChanged, orderID, events.OrderStatusChanged{
		OrderID:   orderID,
		Status:    newStatus,
		ChangedBy: callerID,
		ChangedAt: order.UpdatedAt,
	})

	return order, nil
}

func (s *orderService) publish(ctx context.Context, topic string, orderID uuid.UUID, event any) {
	// The request may already be finishing; give the broker its own deadline.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := s.publisher.Publish(ctx, topic, orderID.String(), event); err != nil {
		s.logger.Warn("Failed to publish order event",
			zap.String("topic", topic),
			zap.String("order_id", orderID.String()),
			zap.Error(err),
		)
	}
}
