package authz

import (
	"context"
	"errors"
	"fmt"

	"github.com/phrazzld/tracker-api/internal/domain"
	"github.com/phrazzld/tracker-api/internal/platform/logger"
	"github.com/phrazzld/tracker-api/internal/service/auth"
	"github.com/phrazzld/tracker-api/internal/store"
)

// UserLookup is the part of the user directory the authorizer needs.
type UserLookup interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
}

// Authorizer resolves principals from session tokens.
type Authorizer struct {
	tokens auth.TokenService
	users  UserLookup
}

// NewAuthorizer creates an Authorizer.
func NewAuthorizer(tokens auth.TokenService, users UserLookup) *Authorizer {
	return &Authorizer{tokens: tokens, users: users}
}

// RequireAuthenticated returns the user the token was issued for.
//
// A missing token yields domain.ErrTokenMissing and an unparseable or forged
// one domain.ErrNotAuthorized; both are authentication failures. An expired
// token yields domain.ErrTokenExpired. A valid token whose user no longer
// exists yields domain.ErrUserNotFound.
func (a *Authorizer) RequireAuthenticated(ctx context.Context, token string) (*domain.User, error) {
	log := logger.FromContext(ctx)

	claims, err := a.tokens.ValidateToken(ctx, token)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrTokenMissing), errors.Is(err, domain.ErrTokenExpired):
			return nil, err
		default:
			log.Debug("rejecting invalid token", "error", err)
			return nil, fmt.Errorf("%w: %w", domain.ErrNotAuthorized, err)
		}
	}

	user, err := a.users.GetByID(ctx, claims.Subject)
	if err != nil {
		if store.IsNotFoundError(err) || errors.Is(err, domain.ErrUserNotFound) {
			log.Debug("token subject no longer exists", "user_id", claims.Subject)
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to resolve principal: %w", err)
	}
	return user, nil
}

// RequireProjectManager passes iff user has the project manager role.
func RequireProjectManager(user *domain.User) error {
	if user == nil || !user.IsProjectManager() {
		return domain.ErrNoAccessRights
	}
	return nil
}

// RequireResponsibleOrPM passes for the task's responsible user and for any
// project manager.
func RequireResponsibleOrPM(user *domain.User, task *domain.Task) error {
	if user == nil || task == nil {
		return domain.ErrNoAccessRights
	}
	if user.ID == task.ResponsibleUserID || user.IsProjectManager() {
		return nil
	}
	return domain.ErrNoAccessRights
}

// RequireResponsibleOrPMOrPerformer additionally admits performers. The task
// must have been loaded with its performers; otherwise
// domain.ErrPerformersNotLoaded is returned.
func RequireResponsibleOrPMOrPerformer(user *domain.User, task *domain.Task) error {
	if user == nil || task == nil {
		return domain.ErrNoAccessRights
	}
	if !task.PerformersLoaded() {
		return domain.ErrPerformersNotLoaded
	}
	if user.ID == task.ResponsibleUserID || user.IsProjectManager() || task.HasPerformer(user.ID) {
		return nil
	}
	return domain.ErrNoAccessRights
}
