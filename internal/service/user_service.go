package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/tracker-api/internal/domain"
	"github.com/phrazzld/tracker-api/internal/service/auth"
	"github.com/phrazzld/tracker-api/internal/store"
)

// RegisterParams carries the fields of a registration request.
type RegisterParams struct {
	Name     string
	Surname  string
	Email    string
	Password string
	Role     *domain.Role
}

// UserService provides registration, login and user lookups.
type UserService interface {
	// Register creates a user with a hashed password.
	// Returns an error wrapping domain.ErrUserAlreadyExists if the email is taken.
	Register(ctx context.Context, params RegisterParams) (*domain.User, error)

	// Login checks the credentials and returns a session token.
	// Returns domain.ErrInvalidCredentials for an unknown email or a wrong password.
	Login(ctx context.Context, email, password string) (string, *domain.User, error)

	// GetUser retrieves a user by id.
	GetUser(ctx context.Context, id int64) (*domain.User, error)
}

// UserServiceImpl implements the UserService interface
type UserServiceImpl struct {
	userStore store.UserStore
	hasher    auth.PasswordHasher
	tokens    auth.TokenService
	logger    *slog.Logger
}

var _ UserService = (*UserServiceImpl)(nil)

// NewUserService creates a new UserService
func NewUserService(
	userStore store.UserStore,
	hasher auth.PasswordHasher,
	tokens auth.TokenService,
	logger *slog.Logger,
) *UserServiceImpl {
	return &UserServiceImpl{
		userStore: userStore,
		hasher:    hasher,
		tokens:    tokens,
		logger:    logger.With("component", "user_service"),
	}
}

// Register implements UserService.
func (s *UserServiceImpl) Register(ctx context.Context, params RegisterParams) (*domain.User, error) {
	user, err := domain.NewUser(params.Name, params.Surname, params.Email, params.Role)
	if err != nil {
		return nil, err
	}
	if err := domain.ValidatePassword(params.Password); err != nil {
		return nil, err
	}

	user.HashedPassword, err = s.hasher.Hash(params.Password)
	if err != nil {
		s.logger.Error("failed to hash password", "error", err)
		return nil, fmt.Errorf("failed to register user: %w", err)
	}

	if err := s.userStore.Create(ctx, user); err != nil {
		if store.IsDuplicateError(err) {
			s.logger.Debug("attempted to register an existing email", "email", user.Email)
		} else {
			s.logger.Error("failed to save user", "error", err, "email", user.Email)
		}
		return nil, fmt.Errorf("failed to register user: %w", err)
	}

	s.logger.Info("user registered", "user_id", user.ID)
	return user, nil
}

// Login implements UserService.
func (s *UserServiceImpl) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	user, err := s.userStore.GetByEmail(ctx, email)
	if err != nil {
		if store.IsNotFoundError(err) {
			s.logger.Debug("login attempt for unknown email")
			return "", nil, domain.ErrInvalidCredentials
		}
		s.logger.Error("failed to look up user for login", "error", err)
		return "", nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if err := s.hasher.Compare(user.HashedPassword, password); err != nil {
		if !auth.IsMismatch(err) {
			s.logger.Warn("stored password hash could not be compared", "user_id", user.ID, "error", err)
		}
		return "", nil, domain.ErrInvalidCredentials
	}

	token, err := s.tokens.GenerateToken(ctx, user.ID)
	if err != nil {
		return "", nil, fmt.Errorf("failed to issue token: %w", err)
	}

	s.logger.Debug("user logged in", "user_id", user.ID)
	return token, user, nil
}

// GetUser implements UserService.
func (s *UserServiceImpl) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.userStore.GetByID(ctx, id)
	if err != nil {
		if !errors.Is(err, store.ErrUserNotFound) {
			s.logger.Error("failed to retrieve user", "error", err, "user_id", id)
		}
		return nil, fmt.Errorf("failed to retrieve user: %w", err)
	}
	return user, nil
}
