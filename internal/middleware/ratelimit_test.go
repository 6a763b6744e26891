package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"steel-store/internal/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func newTestLimiter(t *testing.T, requests int) (*RateLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	limiter := NewRateLimiter(client, config.RateLimitConfig{Requests: requests, WindowSeconds: 60}, "auth", zap.NewNop())
	return limiter, mr
}

func sendFrom(handler http.Handler, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", "/api/auth/login", nil)
	req.RemoteAddr = remoteAddr
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

// Feature: steel-store, Property 16: Rate limiting blocks excessive requests
func TestProperty_RateLimitingBlocksExcessiveRequests(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("requests past the window budget get 429", prop.ForAll(
		func(requests int, excess int) bool {
			limiter, _ := newTestLimiter(t, requests)
			handler := limiter.Middleware(okHandler())

			allowed, blocked := 0, 0
			for i := 0; i < requests+excess; i++ {
				switch sendFrom(handler, "192.168.1.100:5000").Code {
				case http.StatusOK:
					allowed++
				case http.StatusTooManyRequests:
					blocked++
				}
			}

			return allowed == requests && blocked == excess
		},
		gen.IntRange(1, 20),
		gen.IntRange(1, 10),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestRateLimitIgnoresSourcePort(t *testing.T) {
	limiter, _ := newTestLimiter(t, 2)
	handler := limiter.Middleware(okHandler())

	sendFrom(handler, "10.0.0.1:1000")
	sendFrom(handler, "10.0.0.1:1001")
	if w := sendFrom(handler, "10.0.0.1:1002"); w.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429 for the same host on a new port, got %d", w.Code)
	}

	if w := sendFrom(handler, "10.0.0.2:1000"); w.Code != http.StatusOK {
		t.Errorf("expected another host to have its own budget, got %d", w.Code)
	}
}

func TestRateLimitHeaders(t *testing.T) {
	limiter, _ := newTestLimiter(t, 3)
	handler := limiter.Middleware(okHandler())

	w := sendFrom(handler, "10.0.0.3:1000")
	if w.Header().Get("X-RateLimit-Limit") != "3" || w.Header().Get("X-RateLimit-Remaining") != "2" {
		t.Errorf("unexpected headers: %v", w.Header())
	}

	sendFrom(handler, "10.0.0.3:1000")
	sendFrom(handler, "10.0.0.3:1000")
	w = sendFrom(handler, "10.0.0.3:1000")
	retry, err := strconv.Atoi(w.Header().Get("Retry-After"))
	if err != nil || retry <= 0 || retry > 60 {
		t.Errorf("unexpected Retry-After %q", w.Header().Get("Retry-After"))
	}
}

func TestRateLimitKeysByUser(t *testing.T) {
	limiter, mr := newTestLimiter(t, 5)
	handler := limiter.Middleware(okHandler())
	userID := uuid.New()

	req := httptest.NewRequest("GET", "/", nil)
	req = req.WithContext(WithUserID(req.Context(), userID))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if !mr.Exists("auth:user:" + userID.String()) {
		t.Errorf("expected a counter keyed by user id, keys: %v", mr.Keys())
	}
}

func TestRateLimitFailsOpen(t *testing.T) {
	limiter, mr := newTestLimiter(t, 1)
	handler := limiter.Middleware(okHandler())
	mr.Close()

	for i := 0; i < 3; i++ {
		if w := sendFrom(handler, "10.0.0.4:1000"); w.Code != http.StatusOK {
			t.Fatalf("expected requests to pass while redis is down, got %d", w.Code)
		}
	}
}
