package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/tracker-api/internal/domain"
	"github.com/phrazzld/tracker-api/internal/platform/logger"
	"github.com/phrazzld/tracker-api/internal/store"
)

// userColumns is the select list scanned by scanUser.
const userColumns = "u.id, u.name, u.surname, u.email, u.password_hash, u.role, u.created_at"

// PostgresUserStore implements the store.UserStore interface
// using a PostgreSQL database as the storage backend.
type PostgresUserStore struct {
	db store.DBTX
}

// NewPostgresUserStore creates a new PostgreSQL implementation of the UserStore interface.
// It accepts a database connection that should be initialized and managed by the caller.
func NewPostgresUserStore(db store.DBTX) *PostgresUserStore {
	return &PostgresUserStore{db: db}
}

// Ensure PostgresUserStore implements store.UserStore interface
var _ store.UserStore = (*PostgresUserStore)(nil)

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanUser reads a row selected with userColumns.
func scanUser(row rowScanner) (*domain.User, error) {
	var (
		u    domain.User
		role sql.NullString
	)
	if err := row.Scan(&u.ID, &u.Name, &u.Surname, &u.Email, &u.HashedPassword, &role, &u.CreatedAt); err != nil {
		return nil, err
	}
	if role.Valid {
		r := domain.Role(role.String)
		u.Role = &r
	}
	return &u, nil
}

// nullableRole converts a role pointer to a driver value.
func nullableRole(r *domain.Role) any {
	if r == nil {
		return nil
	}
	return string(*r)
}

// Create implements store.UserStore.Create
func (s *PostgresUserStore) Create(ctx context.Context, user *domain.User) error {
	log := logger.FromContext(ctx)

	if user.HashedPassword == "" {
		return fmt.Errorf("%w: password hash is required", store.ErrInvalidEntity)
	}

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO users (name, surname, email, password_hash, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		user.Name, user.Surname, user.Email, user.HashedPassword, nullableRole(user.Role),
	).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		if IsUniqueViolation(err) {
			log.Debug("user email already registered")
			return store.ErrEmailExists
		}
		log.Error("failed to insert user", slog.String("error", err.Error()))
		return store.NewStoreError("user", "create", "insert failed", MapError(err))
	}

	return nil
}

// GetByID implements store.UserStore.GetByID
func (s *PostgresUserStore) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users u WHERE u.id = $1`, id)
	return s.scanOne(row, "get_by_id")
}

// GetByEmail implements store.UserStore.GetByEmail
func (s *PostgresUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users u WHERE LOWER(u.email) = LOWER($1)`, email)
	return s.scanOne(row, "get_by_email")
}

func (s *PostgresUserStore) scanOne(row *sql.Row, op string) (*domain.User, error) {
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrUserNotFound
		}
		return nil, store.NewStoreError("user", op, "query failed", MapError(err))
	}
	return u, nil
}

// GetByIDs implements store.UserStore.GetByIDs
func (s *PostgresUserStore) GetByIDs(ctx context.Context, ids []int64) ([]*domain.User, error) {
	return getUsersByIDs(ctx, s.db, ids)
}

// getUsersByIDs is shared with the task store's relation loading.
func getUsersByIDs(ctx context.Context, q store.DBTX, ids []int64) ([]*domain.User, error) {
	ids = domain.UniqueIDs(ids)
	if len(ids) == 0 {
		return []*domain.User{}, nil
	}

	rows, err := q.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users u WHERE u.id = ANY($1) ORDER BY u.id`, ids)
	if err != nil {
		return nil, store.NewStoreError("user", "get_by_ids", "query failed", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	users := make([]*domain.User, 0, len(ids))
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, store.NewStoreError("user", "get_by_ids", "scan failed", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("user", "get_by_ids", "row iteration failed", err)
	}
	return users, nil
}

// Delete implements store.UserStore.Delete
func (s *PostgresUserStore) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return store.NewStoreError("user", "delete", "delete failed", MapError(err))
	}
	return CheckRowsAffected(result, store.ErrUserNotFound)
}

// WithTx implements store.UserStore.WithTx
func (s *PostgresUserStore) WithTx(tx *sql.Tx) store.UserStore {
	return &PostgresUserStore{db: tx}
}
