package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/phrazzld/tracker-api/internal/api/shared"
	"github.com/phrazzld/tracker-api/internal/domain"
)

// Authenticator resolves the user a session token belongs to.
type Authenticator interface {
	RequireAuthenticated(ctx context.Context, token string) (*domain.User, error)
}

// ErrorHandler writes an error response for err.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// AuthMiddleware authenticates requests by session cookie or bearer token.
type AuthMiddleware struct {
	authenticator Authenticator
	cookieName    string
	onError       ErrorHandler
}

// NewAuthMiddleware creates a new AuthMiddleware.
func NewAuthMiddleware(authenticator Authenticator, cookieName string, onError ErrorHandler) *AuthMiddleware {
	return &AuthMiddleware{
		authenticator: authenticator,
		cookieName:    cookieName,
		onError:       onError,
	}
}

// Authenticate resolves the principal and stores it in the request context.
// The session cookie takes precedence over an Authorization header.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := m.authenticator.RequireAuthenticated(r.Context(), m.TokenFromRequest(r))
		if err != nil {
			m.onError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(shared.WithPrincipal(r.Context(), user)))
	})
}

// TokenFromRequest returns the session token, or "" if the request carries
// none. A malformed Authorization header is returned as is so that it fails
// validation rather than being treated as missing.
func (m *AuthMiddleware) TokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(m.cookieName); err == nil && c.Value != "" {
		return c.Value
	}

	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return ""
	}
	scheme, token, ok := strings.Cut(header, " ")
	if ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token)
	}
	return header
}
