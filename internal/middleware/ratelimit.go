package middleware

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"steel-store/internal/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateLimiter is a fixed-window request limiter backed by Redis
type RateLimiter struct {
	client    redis.Cmdable
	limit     int
	window    time.Duration
	keyPrefix string
	logger    *zap.Logger
}

// NewRateLimiter creates a limiter allowing cfg.Requests per cfg.WindowSeconds
// for each client under keyPrefix
func NewRateLimiter(client redis.Cmdable, cfg config.RateLimitConfig, keyPrefix string, logger *zap.Logger) *RateLimiter {
	limit := cfg.Requests
	if limit < 1 {
		limit = 1
	}
	window := time.Duration(cfg.WindowSeconds) * time.Second
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{
		client:    client,
		limit:     limit,
		window:    window,
		keyPrefix: keyPrefix,
		logger:    logger,
	}
}

// Middleware counts requests per client and rejects them with 429 once the
// window's budget is spent. Redis failures let the request through.
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID := clientIdentifier(r)
		key := fmt.Sprintf("%s:%s", l.keyPrefix, clientID)
		ctx := r.Context()

		count, err := l.client.Incr(ctx, key).Result()
		if err != nil {
			l.logger.Error("Failed to increment rate limit counter",
				zap.Error(err),
				zap.String("key", key),
			)
			next.ServeHTTP(w, r)
			return
		}

		// first hit opens the window
		if count == 1 {
			l.client.Expire(ctx, key, l.window)
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.limit))

		if count > int64(l.limit) {
			ttl, err := l.client.TTL(ctx, key).Result()
			if err != nil || ttl < 0 {
				ttl = l.window
			}

			l.logger.Warn("Rate limit exceeded",
				zap.String("client_id", clientID),
				zap.String("path", r.URL.Path),
				zap.Int64("count", count),
				zap.Int("limit", l.limit),
			)

			w.Header().Set("X-RateLimit-Remaining", "0")
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(ttl).Unix(), 10))
			w.Header().Set("Retry-After", strconv.Itoa(int(ttl.Seconds())))

			RespondWithError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(int64(l.limit)-count, 10))

		next.ServeHTTP(w, r)
	})
}

// clientIdentifier prefers the authenticated user and falls back to the
// remote host without its port
func clientIdentifier(r *http.Request) string {
	if userID, ok := GetUserID(r.Context()); ok {
		return "user:" + userID.String()
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return "ip:" + r.RemoteAddr
	}
	return "ip:" + host
}
