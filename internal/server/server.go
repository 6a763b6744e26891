package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"steel-store/internal/config"
	"steel-store/internal/database"
	"steel-store/internal/events"
	"steel-store/internal/metrics"
	custommiddleware "steel-store/internal/middleware"
	"steel-store/internal/repository"
	"steel-store/internal/service"
	"steel-store/internal/storage"
	"steel-store/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Dependencies is the application context shared by every handler. It is
// built once at startup and passed down explicitly.
type Dependencies struct {
	Config    *config.Config
	Logger    *zap.Logger
	DB        database.Service
	Redis     redis.Cmdable
	Disk      storage.Disk
	Publisher events.Publisher
	Metrics   *metrics.Metrics
}

type Server struct {
	*http.Server
	deps  Dependencies
	redis *redis.Client
}

// NewServer connects the external services named in cfg and builds the HTTP
// server around them
func NewServer(ctx context.Context, cfg *config.Config, logger *zap.Logger, db database.Service) (*Server, error) {
	redisClient := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	disk, err := storage.New(ctx, cfg.Storage, cfg.Server.PublicURL)
	if err != nil {
		redisClient.Close()
		return nil, fmt.Errorf("failed to configure storage: %w", err)
	}

	publisher := events.NewNoopPublisher()
	if len(cfg.Kafka.Brokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.TopicPrefix)
		logger.Info("Publishing order events to Kafka", zap.Strings("brokers", cfg.Kafka.Brokers))
	}

	deps := Dependencies{
		Config:    cfg,
		Logger:    logger,
		DB:        db,
		Redis:     redisClient,
		Disk:      disk,
		Publisher: publisher,
		Metrics:   metrics.New(),
	}

	return &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      NewRouter(deps),
			IdleTimeout:  time.Minute,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		deps:  deps,
		redis: redisClient,
	}, nil
}

// NewRouter wires repositories, services and handlers into the route tree
func NewRouter(deps Dependencies) http.Handler {
	cfg, logger := deps.Config, deps.Logger
	db := deps.DB.DB()

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	productRepo := repository.NewProductRepository(db)
	reviewRepo := repository.NewReviewRepository(db)
	cartRepo := repository.NewCartRepository(db)
	orderRepo := repository.NewOrderRepository(db)

	// Initialize services
	authService := service.NewAuthService(userRepo, cfg.JWT.Secret, time.Duration(cfg.JWT.ExpiryHours)*time.Hour)
	catalogService := service.NewCatalogService(productRepo, categoryRepo, reviewRepo, storage.NewImageStore(deps.Disk))
	cartService := service.NewCartService(cartRepo)
	orderService := service.NewOrderService(orderRepo, authService, deps.Publisher, deps.Metrics, logger)
	reviewService := service.NewReviewService(reviewRepo, userRepo)

	// Initialize handlers
	authHandler := transport.NewAuthHandler(authService, logger)
	productHandler := transport.NewProductHandler(catalogService, cfg.Storage.UploadMaxBytes, logger)
	reviewHandler := transport.NewReviewHandler(reviewService, logger)
	cartHandler := transport.NewCartHandler(cartService, logger)
	orderHandler := transport.NewOrderHandler(orderService, logger)

	authMiddleware := custommiddleware.AuthMiddleware(authService, logger)
	requireAdmin := custommiddleware.RequireAdmin(authService, logger)
	authLimiter := custommiddleware.NewRateLimiter(deps.Redis, cfg.RateLimit, "ratelimit:auth", logger)

	router := chi.NewRouter()
	router.Use(custommiddleware.DefaultMiddlewareStack()...)
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))
	router.Use(custommiddleware.CORSMiddleware(cfg.Server))
	router.Use(deps.Metrics.Middleware)
	router.Use(custommiddleware.LoggingMiddleware(logger))

	health := healthHandler(deps.DB)
	router.Get("/health", health)
	router.Handle("/metrics", deps.Metrics.Handler())

	if local, ok := deps.Disk.(*storage.LocalDisk); ok {
		router.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(local.Root()))))
	}

	router.Route("/api", func(r chi.Router) {
		r.Get("/health", health)

		authHandler.RegisterRoutes(r, authMiddleware, authLimiter.Middleware)
		r.Get("/categories", productHandler.ListCategories)
		r.Route("/products", func(r chi.Router) {
			productHandler.RegisterRoutes(r, authMiddleware, requireAdmin)
			reviewHandler.RegisterRoutes(r, authMiddleware)
		})
		cartHandler.RegisterRoutes(r, authMiddleware)
		orderHandler.RegisterRoutes(r, authMiddleware, requireAdmin)
	})

	return router
}

func healthHandler(db database.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats := db.Health()
		status := http.StatusOK
		if stats["status"] != "up" {
			status = http.StatusServiceUnavailable
		}
		custommiddleware.RespondWithJSON(w, status, map[string]interface{}{
			"status":   statusText(status),
			"database": stats,
		})
	}
}

func statusText(code int) string {
	if code == http.StatusOK {
		return "ok"
	}
	return "degraded"
}

// Close releases the connections held by the server
func (s *Server) Close() error {
	logger := s.deps.Logger
	logger.Info("Closing server resources")

	if err := s.deps.Publisher.Close(); err != nil {
		logger.Error("Failed to close event publisher", zap.Error(err))
	}

	if err := s.redis.Close(); err != nil {
		logger.Error("Failed to close redis client", zap.Error(err))
	}

	if s.deps.DB != nil {
		if err := s.deps.DB.Close(); err != nil {
			logger.Error("Failed to close database connection", zap.Error(err))
		}
	}

	logger.Sync()
	return nil
}
