package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/phrazzld/tracker-api/internal/api/shared"
	"github.com/phrazzld/tracker-api/internal/domain"
	"github.com/phrazzld/tracker-api/internal/platform/logger"
	"github.com/phrazzld/tracker-api/internal/service"
)

// SessionCookie describes the cookie that carries the session token.
type SessionCookie struct {
	Name     string
	Secure   bool
	Lifetime time.Duration
}

// AuthHandler handles authentication-related API requests.
type AuthHandler struct {
	users  service.UserService
	cookie SessionCookie
	logger *slog.Logger
	now    func() time.Time
}

// NewAuthHandler creates a new AuthHandler with the given dependencies.
func NewAuthHandler(users service.UserService, cookie SessionCookie, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for AuthHandler")
	}
	return &AuthHandler{
		users:  users,
		cookie: cookie,
		logger: logger.With(slog.String("component", "auth_handler")),
		now:    time.Now,
	}
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeRequest(w, r, &req); err != nil {
		HandleAPIError(w, r, err)
		return
	}

	params := service.RegisterParams{
		Name:     req.Name,
		Surname:  req.Surname,
		Email:    req.Email,
		Password: req.Password,
	}
	if req.Role != "" {
		role := domain.Role(req.Role)
		params.Role = &role
	}

	user, err := h.users.Register(r.Context(), params)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, userToResponse(user))
}

// Login handles POST /auth/login. The token is returned in the body and set
// as an http-only session cookie.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req LoginRequest
	if err := decodeRequest(w, r, &req); err != nil {
		HandleAPIError(w, r, err)
		return
	}

	token, user, err := h.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	expiresAt := h.now().Add(h.cookie.Lifetime)
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		MaxAge:   int(h.cookie.Lifetime.Seconds()),
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})

	log.Debug("session started", slog.Int64("user_id", user.ID))
	shared.RespondWithJSON(w, r, http.StatusOK, LoginResponse{
		AccessToken: token,
		ExpiresAt:   formatExpiry(expiresAt),
	})
}

// Logout handles POST /auth/logout by expiring the session cookie. It needs
// no authentication.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	shared.RespondWithJSON(w, r, http.StatusOK, MessageResponse{Message: "Logged out"})
}

// Me handles GET /auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := shared.Principal(r.Context())
	if user == nil {
		HandleAPIError(w, r, domain.ErrNotAuthorized)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, userToResponse(user))
}
