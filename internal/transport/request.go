package transport

import (
	"fmt"
	"net/http"
	"strconv"

	"steel-store/internal/domain"
	"steel-store/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// MessageResponse is the acknowledgement body for writes that return no entity
type MessageResponse struct {
	Message string `json:"message"`
}

// decodeBody decodes and validates a JSON body, writing the error response
// itself when it fails
func decodeBody(w http.ResponseWriter, r *http.Request, logger *zap.Logger, v interface{}) bool {
	if err := middleware.DecodeAndValidate(r, v); err != nil {
		logger.Debug("Request validation failed", zap.Error(err), zap.String("path", r.URL.Path))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return false
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// pathUUID parses a UUID route parameter. Malformed ids cannot name an
// existing row, so they are reported as not found.
func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		middleware.RespondWithError(w, http.StatusNotFound, fmt.Sprintf("%s not found", resourceName(name)))
		return uuid.Nil, false
	}
	return id, true
}

func resourceName(param string) string {
	switch param {
	case "itemID":
		return "cart item"
	case "orderID":
		return "order"
	default:
		return "product"
	}
}

// callerID returns the authenticated user's id set by the auth middleware
func callerID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "authentication required")
		return uuid.Nil, false
	}
	return userID, true
}

func queryInt(r *http.Request, key string) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", domain.ErrInvalidInput, key)
	}
	return v, nil
}

func queryDecimal(r *http.Request, key string) (*decimal.Decimal, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil, nil
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be a number", domain.ErrInvalidInput, key)
	}
	return &v, nil
}
