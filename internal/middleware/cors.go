package middleware

import (
	"net/http"

	"steel-store/internal/config"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// CORSMiddleware configures CORS for the storefront. Outside production every
// origin is allowed.
func CORSMiddleware(cfg config.ServerConfig) func(http.Handler) http.Handler {
	allowedOrigins := cfg.AllowedOrigins
	if !cfg.IsProduction() || len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}

	return cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	})
}

// DefaultMiddlewareStack returns the middleware every route runs behind
func DefaultMiddlewareStack() []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		chimiddleware.RequestID,
		chimiddleware.RealIP,
		chimiddleware.Recoverer,
	}
}
