package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"steel-store/internal/domain"
	"steel-store/internal/service"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

func testVerifier() TokenVerifier {
	return service.NewAuthService(nil, testSecret, time.Hour)
}

func signToken(t *testing.T, subject string, expiresAt time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return token
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

// Feature: steel-store, Property 12: Protected endpoints reject missing tokens
func TestProperty_ProtectedEndpointsRejectMissingTokens(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("requests without authorization header are rejected", prop.ForAll(
		func(pathSuffix string, method string) bool {
			handler := AuthMiddleware(testVerifier(), zap.NewNop())(okHandler())

			path := "/" + pathSuffix
			if path == "/" {
				path = "/test"
			}

			req := httptest.NewRequest(method, path, nil)
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			return w.Code == http.StatusUnauthorized
		},
		gen.AlphaString(),
		gen.OneConstOf("GET", "POST", "PUT", "DELETE"),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// Feature: steel-store, Property 13: Expired tokens are rejected
func TestExpiredTokenRejected(t *testing.T) {
	handler := AuthMiddleware(testVerifier(), zap.NewNop())(okHandler())

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, uuid.NewString(), time.Now().Add(-time.Hour)))
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}

	var response ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Error.Message != "token expired" {
		t.Errorf("expected token expired message, got %q", response.Error.Message)
	}
}

// Feature: steel-store, Property 14: Valid tokens carry the user id
func TestValidTokenStoresUserID(t *testing.T) {
	userID := uuid.New()
	var seen uuid.UUID

	handler := AuthMiddleware(testVerifier(), zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := GetUserID(r.Context())
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		seen = id
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, userID.String(), time.Now().Add(time.Hour)))
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if seen != userID {
		t.Errorf("expected user id %s in context, got %s", userID, seen)
	}
}

func TestTokenWithoutUUIDSubjectRejected(t *testing.T) {
	handler := AuthMiddleware(testVerifier(), zap.NewNop())(okHandler())

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "not-a-uuid", time.Now().Add(time.Hour)))
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestProperty_InvalidTokenFormatRejected(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("invalid token formats are rejected", prop.ForAll(
		func(invalidToken string) bool {
			handler := AuthMiddleware(testVerifier(), zap.NewNop())(okHandler())

			req := httptest.NewRequest("GET", "/test", nil)
			req.Header.Set("Authorization", "Bearer "+invalidToken)
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			return w.Code == http.StatusUnauthorized
		},
		gen.AnyString(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProperty_MissingBearerPrefixRejected(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("tokens without Bearer prefix are rejected", prop.ForAll(
		func(token string) bool {
			handler := AuthMiddleware(testVerifier(), zap.NewNop())(okHandler())

			req := httptest.NewRequest("GET", "/test", nil)
			req.Header.Set("Authorization", token)
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			return w.Code == http.StatusUnauthorized
		},
		gen.AnyString(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

type stubAdminChecker struct {
	admins map[uuid.UUID]bool
	err    error
}

func (s stubAdminChecker) IsAdmin(ctx context.Context, userID uuid.UUID) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	isAdmin, ok := s.admins[userID]
	if !ok {
		return false, domain.ErrNotFound
	}
	return isAdmin, nil
}

func TestRequireAdmin(t *testing.T) {
	admin, customer := uuid.New(), uuid.New()
	checker := stubAdminChecker{admins: map[uuid.UUID]bool{admin: true, customer: false}}

	tests := []struct {
		name     string
		ctx      func(context.Context) context.Context
		checker  AdminChecker
		expected int
	}{
		{"admin passes", func(c context.Context) context.Context { return WithUserID(c, admin) }, checker, http.StatusOK},
		{"customer forbidden", func(c context.Context) context.Context { return WithUserID(c, customer) }, checker, http.StatusForbidden},
		{"unknown user", func(c context.Context) context.Context { return WithUserID(c, uuid.New()) }, checker, http.StatusUnauthorized},
		{"no user in context", func(c context.Context) context.Context { return c }, checker, http.StatusUnauthorized},
		{"store failure", func(c context.Context) context.Context { return WithUserID(c, admin) }, stubAdminChecker{err: errors.New("db down")}, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := RequireAdmin(tt.checker, zap.NewNop())(okHandler())

			req := httptest.NewRequest("GET", "/api/admin/orders", nil)
			req = req.WithContext(tt.ctx(req.Context()))
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			if w.Code != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, w.Code)
			}
		})
	}
}
