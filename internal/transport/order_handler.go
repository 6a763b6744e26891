package transport

import (
	"net/http"

	"steel-store/internal/domain"
	"steel-store/internal/middleware"
	"steel-store/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PlaceOrderRequest carries the shipping details for a new order
type PlaceOrderRequest struct {
	Shipping domain.ShippingInfo `json:"shipping"`
}

// PlaceOrderResponse acknowledges a placed order
type PlaceOrderResponse struct {
	Message string        `json:"message"`
	OrderID uuid.UUID     `json:"order_id"`
	Order   *domain.Order `json:"order"`
}

// UpdateStatusRequest represents an order status change
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// OrderResponse wraps an order with an acknowledgement message
type OrderResponse struct {
	Message string        `json:"message"`
	Order   *domain.Order `json:"order"`
}

// OrderHandler handles HTTP requests for orders
type OrderHandler struct {
	orderService service.OrderService
	logger       *zap.Logger
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orderService service.OrderService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		logger:       logger,
	}
}

// RegisterRoutes registers customer order routes and the admin order listing
func (h *OrderHandler) RegisterRoutes(r chi.Router, authMiddleware, requireAdmin func(http.Handler) http.Handler) {
	r.Route("/orders", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Post("/", h.PlaceOrder)
		r.Get("/", h.ListOrders)
		r.Get("/{orderID}", h.GetOrder)
		r.With(requireAdmin).Put("/{orderID}/status", h.UpdateStatus)
	})

	r.Route("/admin/orders", func(r chi.Router) {
		r.Use(authMiddleware, requireAdmin)
		r.Get("/", h.ListAllOrders)
	})
}

// PlaceOrder converts the caller's cart into an order
func (h *OrderHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	var req PlaceOrderRequest
	if r.ContentLength != 0 {
		if !decodeBody(w, r, h.logger, &req) {
			return
		}
	}

	order, err := h.orderService.PlaceOrder(r.Context(), userID, req.Shipping)
	if err != nil {
		middleware.RespondWithServiceError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, PlaceOrderResponse{
		Message: "Order placed successfully",
		OrderID: order.ID,
		Order:   order,
	})
}

// ListOrders returns the caller's orders newest first
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	orders, err := h.orderService.ListOrders(r.Context(), userID)
	if err != nil {
		middleware.RespondWithServiceError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, orders)
}

// GetOrder returns one order to its owner or an admin
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	orderID, ok := pathUUID(w, r, "orderID")
	if !ok {
		return
	}

	order, err := h.orderService.GetOrder(r.Context(), userID, orderID)
	if err != nil {
		middleware.RespondWithServiceError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, order)
}

// UpdateStatus overwrites an order's status
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	orderID, ok := pathUUID(w, r, "orderID")
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if !decodeBody(w, r, h.logger, &req) {
		return
	}

	order, err := h.orderService.SetStatus(r.Context(), userID, orderID, req.Status)
	if err != nil {
		middleware.RespondWithServiceError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, OrderResponse{Message: "Order status updated", Order: order})
}

// ListAllOrders returns every order, optionally filtered by ?status=
func (h *OrderHandler) ListAllOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orderService.ListAllOrders(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		middleware.RespondWithServiceError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, orders)
}
