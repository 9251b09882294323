package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/merit-ol/mppms/internal/domain"
	"github.com/merit-ol/mppms/internal/session"
	"github.com/merit-ol/mppms/internal/usecase"
)

// Authenticator verifies access tokens and loads profiles.
type Authenticator interface {
	ValidateAccessToken(token string) (*usecase.Claims, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

type AuthMiddleware struct {
	auth Authenticator
}

func NewAuthMiddleware(auth Authenticator) *AuthMiddleware {
	return &AuthMiddleware{auth: auth}
}

// Authenticate requires a valid bearer token. The profile is reloaded on
// every request so blocks and role changes apply immediately.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authorization header required")
			return
		}

		token, ok := bearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid authorization header format")
			return
		}

		claims, err := m.auth.ValidateAccessToken(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or expired token")
			return
		}

		user, err := m.auth.GetUserByID(r.Context(), claims.UserID)
		if err != nil {
			if errors.Is(err, domain.ErrBackendUnavailable) {
				writeError(w, http.StatusServiceUnavailable, "BACKEND_UNAVAILABLE", "Service temporarily unavailable")
				return
			}
			writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
			return
		}
		if user == nil {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Account no longer exists")
			return
		}
		if user.Blocked {
			writeError(w, http.StatusForbidden, "ACCOUNT_BLOCKED", "Account is blocked")
			return
		}

		ctx := session.WithContext(r.Context(), session.New(user))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Optional attaches a session when the request carries a usable token.
// Missing, malformed, expired or forged tokens and blocked profiles fall
// back to an anonymous request.
func (m *AuthMiddleware) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		claims, err := m.auth.ValidateAccessToken(token)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		user, err := m.auth.GetUserByID(r.Context(), claims.UserID)
		if err != nil {
			if errors.Is(err, domain.ErrBackendUnavailable) {
				writeError(w, http.StatusServiceUnavailable, "BACKEND_UNAVAILABLE", "Service temporarily unavailable")
				return
			}
			writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
			return
		}
		if user == nil || user.Blocked {
			next.ServeHTTP(w, r)
			return
		}

		ctx := session.WithContext(r.Context(), session.New(user))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	parts := strings.Split(r.Header.Get("Authorization"), " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", false
	}
	return parts[1], true
}

// Require must be used after Authenticate. It rejects sessions below min.
func Require(min domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s := session.From(r.Context())
			if s == nil {
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized")
				return
			}
			if !s.Can(min) {
				writeError(w, http.StatusForbidden, "FORBIDDEN", min.String()+" access required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message, "code": code})
}
