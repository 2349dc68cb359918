package store

import (
	"context"
	"database/sql"

	"github.com/phrazzld/tracker-api/internal/domain"
)

// UserStore defines the interface for user data persistence.
type UserStore interface {
	// Create inserts user and sets its ID and CreatedAt.
	// user.HashedPassword must already be set.
	// Returns ErrEmailExists if the email is already taken.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by id.
	// Returns ErrUserNotFound if the user does not exist.
	GetByID(ctx context.Context, id int64) (*domain.User, error)

	// GetByEmail retrieves a user by email address (case-insensitive).
	// Returns ErrUserNotFound if the user does not exist.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// GetByIDs retrieves every user whose id is in ids, ordered by id.
	// Unknown ids are skipped; an empty ids slice yields an empty result.
	GetByIDs(ctx context.Context, ids []int64) ([]*domain.User, error)

	// Delete removes a user. Tasks the user is responsible for and the user's
	// performer associations are removed by cascade.
	// Returns ErrUserNotFound if the user does not exist.
	Delete(ctx context.Context, id int64) error

	// WithTx returns a new UserStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) UserStore
}
