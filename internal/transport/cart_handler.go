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

// AddCartItemRequest represents an add-to-cart payload. Quantity defaults to 1.
type AddCartItemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  *int      `json:"quantity"`
}

// UpdateCartItemRequest sets a line's quantity; zero or less removes it
type UpdateCartItemRequest struct {
	Quantity *int `json:"quantity" validate:"required"`
}

// AddCartItemResponse acknowledges an add and returns the resulting line
type AddCartItemResponse struct {
	Message string           `json:"message"`
	Item    *domain.CartItem `json:"item"`
}

// CartHandler handles HTTP requests for the caller's cart
type CartHandler struct {
	cartService service.CartService
	logger      *zap.Logger
}

// NewCartHandler creates a new CartHandler
func NewCartHandler(cartService service.CartService, logger *zap.Logger) *CartHandler {
	return &CartHandler{
		cartService: cartService,
		logger:      logger,
	}
}

// RegisterRoutes registers all cart routes. Every route requires a token.
func (h *CartHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/cart", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/", h.GetCart)
		r.Post("/", h.AddItem)
		r.Put("/{itemID}", h.UpdateItem)
		r.Delete("/{itemID}", h.RemoveItem)
	})
}

// GetCart returns the caller's cart priced at current product prices
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	cart, err := h.cartService.GetCart(r.Context(), userID)
	if err != nil {
		middleware.RespondWithServiceError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, cart)
}

// AddItem adds a product to the caller's cart, incrementing an existing line
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	var req AddCartItemRequest
	if !decodeBody(w, r, h.logger, &req) {
		return
	}

	item, err := h.cartService.AddItem(r.Context(), userID, req.ProductID, req.Quantity)
	if err != nil {
		middleware.RespondWithServiceError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, AddCartItemResponse{Message: "Item added to cart", Item: item})
}

// UpdateItem sets the quantity of one of the caller's cart lines
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	itemID, ok := pathUUID(w, r, "itemID")
	if !ok {
		return
	}

	var req UpdateCartItemRequest
	if !decodeBody(w, r, h.logger, &req) {
		return
	}

	if err := h.cartService.UpdateItem(r.Context(), userID, itemID, *req.Quantity); err != nil {
		middleware.RespondWithServiceError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, MessageResponse{Message: "Cart updated"})
}

// RemoveItem deletes one of the caller's cart lines
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	itemID, ok := pathUUID(w, r, "itemID")
	if !ok {
		return
	}

	if err := h.cartService.RemoveItem(r.Context(), userID, itemID); err != nil {
		middleware.RespondWithServiceError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, MessageResponse{Message: "Item removed"})
}
