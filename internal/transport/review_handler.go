package transport

import (
	"net/http"

	"steel-store/internal/middleware"
	"steel-store/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// AddReviewRequest represents a review submission. Rating is required but its
// range is not checked.
type AddReviewRequest struct {
	Rating  *int   `json:"rating"`
	Comment string `json:"comment"`
}

// ReviewHandler handles HTTP requests for product reviews
type ReviewHandler struct {
	reviewService service.ReviewService
	logger        *zap.Logger
}

// NewReviewHandler creates a new ReviewHandler
func NewReviewHandler(reviewService service.ReviewService, logger *zap.Logger) *ReviewHandler {
	return &ReviewHandler{
		reviewService: reviewService,
		logger:        logger,
	}
}

// RegisterRoutes registers review routes on a router mounted at /products
func (h *ReviewHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Get("/{productID}/reviews", h.ListReviews)
	r.With(authMiddleware).Post("/{productID}/reviews", h.AddReview)
}

// ListReviews returns a product's reviews newest first
func (h *ReviewHandler) ListReviews(w http.ResponseWriter, r *http.Request) {
	productID, ok := pathUUID(w, r, "productID")
	if !ok {
		return
	}

	reviews, err := h.reviewService.ListReviews(r.Context(), productID)
	if err != nil {
		middleware.RespondWithServiceError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, reviews)
}

// AddReview appends the caller's review to a product
func (h *ReviewHandler) AddReview(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	productID, ok := pathUUID(w, r, "productID")
	if !ok {
		return
	}

	var req AddReviewRequest
	if !decodeBody(w, r, h.logger, &req) {
		return
	}

	review, err := h.reviewService.AddReview(r.Context(), userID, productID, req.Rating, req.Comment)
	if err != nil {
		middleware.RespondWithServiceError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, review)
}
