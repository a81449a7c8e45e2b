package http

import (
	"context"
	"crypto/subtle"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/nimblechat/integrations-core/internal/core/domain"
)

// Context keys
type contextKey string

const userIDKey contextKey = "user_id"

// Internal caller headers
const (
	headerUserID        = "X-User-ID"
	headerInternalToken = "X-Integrations-Token"
)

// TokenVerifier validates an end-user session token and returns the user id.
type TokenVerifier interface {
	VerifyToken(token string) (string, error)
}

// AuthMiddleware authenticates end users via the session JWT minted by the
// chat application.
type AuthMiddleware struct {
	verifier TokenVerifier
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(verifier TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier}
}

// Authenticate validates the request token and adds the user id to context
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractBearerToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing authorization token")
			return
		}

		userID, err := m.verifier.VerifyToken(token)
		if err != nil {
			switch err {
			case domain.ErrTokenExpired:
				writeError(w, http.StatusUnauthorized, "token expired")
			default:
				writeError(w, http.StatusUnauthorized, "invalid token")
			}
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// InternalAuthMiddleware authenticates trusted internal callers (tool-calling
// agents) via a shared-secret header pair instead of end-user session auth.
type InternalAuthMiddleware struct {
	secret string
}

// NewInternalAuthMiddleware creates a new InternalAuthMiddleware
func NewInternalAuthMiddleware(secret string) *InternalAuthMiddleware {
	return &InternalAuthMiddleware{secret: secret}
}

// Authenticate validates the shared-secret headers and adds the carried user
// id to context.
func (m *InternalAuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get(headerUserID)
		if userID == "" {
			writeError(w, http.StatusBadRequest, "missing X-User-ID header")
			return
		}

		token := r.Header.Get(headerInternalToken)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing X-Integrations-Token header")
			return
		}

		if m.secret == "" {
			log.Println("internal auth token not configured")
			writeError(w, http.StatusInternalServerError, "authentication not configured")
			return
		}

		if subtle.ConstantTimeCompare([]byte(token), []byte(m.secret)) != 1 {
			writeError(w, http.StatusForbidden, "invalid authentication token")
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetUserID retrieves the authenticated user id from request context
func GetUserID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	userID, _ := ctx.Value(userIDKey).(string)
	return userID
}

// extractBearerToken extracts the Bearer token from Authorization header
func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}

	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}

// Logging middleware

// LoggingMiddleware logs HTTP requests
type LoggingMiddleware struct{}

// Handler wraps an http.Handler with request logging
func (m *LoggingMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Wrap response writer to capture status code
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start)
		log.Printf("%s %s %d %v", r.Method, r.URL.Path, rw.statusCode, duration)
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Recovery middleware

// RecoveryMiddleware recovers from panics
type RecoveryMiddleware struct{}

// Handler wraps an http.Handler with panic recovery
func (m *RecoveryMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("panic recovered: %v", err)
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
