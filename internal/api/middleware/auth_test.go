package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/phrazzld/tracker-api/internal/api/shared"
	"github.com/phrazzld/tracker-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingAuthenticator struct {
	token string
	user  *domain.User
	err   error
}

func (a *recordingAuthenticator) RequireAuthenticated(_ context.Context, token string) (*domain.User, error) {
	a.token = token
	return a.user, a.err
}

func TestAuthMiddleware_TokenFromRequest(t *testing.T) {
	t.Parallel()
	m := NewAuthMiddleware(&recordingAuthenticator{}, "session", nil)

	tests := []struct {
		name   string
		cookie string
		header string
		want   string
	}{
		{name: "none"},
		{name: "cookie", cookie: "abc", want: "abc"},
		{name: "bearer", header: "Bearer xyz", want: "xyz"},
		{name: "bearer lowercase", header: "bearer xyz", want: "xyz"},
		{name: "cookie wins", cookie: "abc", header: "Bearer xyz", want: "abc"},
		{name: "unknown scheme passes through", header: "Basic dXNlcg==", want: "Basic dXNlcg=="},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.cookie != "" {
				r.AddCookie(&http.Cookie{Name: "session", Value: tc.cookie})
			}
			if tc.header != "" {
				r.Header.Set("Authorization", tc.header)
			}
			assert.Equal(t, tc.want, m.TokenFromRequest(r))
		})
	}
}

func TestAuthMiddleware_Authenticate(t *testing.T) {
	t.Parallel()

	t.Run("stores the principal", func(t *testing.T) {
		t.Parallel()
		user := &domain.User{ID: 4}
		authn := &recordingAuthenticator{user: user}
		m := NewAuthMiddleware(authn, "session", func(http.ResponseWriter, *http.Request, error) {
			t.Fatal("error handler must not run")
		})

		var got *domain.User
		h := m.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = shared.Principal(r.Context())
		}))
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.AddCookie(&http.Cookie{Name: "session", Value: "tok"})
		h.ServeHTTP(httptest.NewRecorder(), r)

		assert.Equal(t, "tok", authn.token)
		assert.Same(t, user, got)
	})

	t.Run("failure goes to the error handler", func(t *testing.T) {
		t.Parallel()
		var handled error
		m := NewAuthMiddleware(&recordingAuthenticator{err: domain.ErrTokenMissing}, "session",
			func(w http.ResponseWriter, _ *http.Request, err error) {
				handled = err
				w.WriteHeader(http.StatusUnauthorized)
			})

		h := m.Authenticate(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			t.Fatal("next must not run")
		}))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		require.ErrorIs(t, handled, domain.ErrTokenMissing)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
