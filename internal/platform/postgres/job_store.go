package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/tracker-api/internal/jobs"
	"github.com/phrazzld/tracker-api/internal/platform/logger"
	"github.com/phrazzld/tracker-api/internal/store"
)

const jobColumns = "id, type, payload, status, attempts, dedupe_key, error_message, created_at, updated_at"

// PostgresJobStore implements the jobs.Store interface using PostgreSQL
type PostgresJobStore struct {
	db store.DBTX
}

// NewPostgresJobStore creates a new PostgresJobStore
func NewPostgresJobStore(db store.DBTX) *PostgresJobStore {
	return &PostgresJobStore{db: db}
}

var _ jobs.Store = (*PostgresJobStore)(nil)

// Save persists a job record to the database
func (s *PostgresJobStore) Save(ctx context.Context, rec *jobs.Record) error {
	log := logger.FromContext(ctx)

	var dedupeKey sql.NullString
	if rec.DedupeKey != "" {
		dedupeKey = sql.NullString{String: rec.DedupeKey, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notification_jobs (id, type, payload, status, attempts, dedupe_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.ID, rec.Type, rec.Payload, string(rec.Status), rec.Attempts, dedupeKey,
		rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return fmt.Errorf("%w: %v", store.ErrDuplicateJob, err)
		}
		log.Error("failed to save job",
			"job_id", rec.ID,
			"job_type", rec.Type,
			"error", err)
		return fmt.Errorf("failed to save job to database: %w", MapError(err))
	}

	return nil
}

// Claim moves a pending job to processing. The conditional UPDATE makes the
// transition atomic, so only one worker can claim a given attempt.
func (s *PostgresJobStore) Claim(ctx context.Context, id uuid.UUID) (int, bool, error) {
	var attempts int
	err := s.db.QueryRowContext(ctx, `
		UPDATE notification_jobs
		SET status = 'processing', attempts = attempts + 1, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING attempts`, id,
	).Scan(&attempts)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to claim job: %w", MapError(err))
	}
	return attempts, true, nil
}

// UpdateStatus updates the status of a job in the database
func (s *PostgresJobStore) UpdateStatus(
	ctx context.Context,
	id uuid.UUID,
	status jobs.Status,
	errorMsg string,
) error {
	log := logger.FromContext(ctx)

	var msg sql.NullString
	if errorMsg != "" {
		msg = sql.NullString{String: errorMsg, Valid: true}
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE notification_jobs
		SET status = $1, error_message = $2, updated_at = NOW()
		WHERE id = $3`,
		string(status), msg, id,
	)
	if err != nil {
		log.Error("failed to update job status",
			"job_id", id,
			"status", status,
			"error", err)
		return fmt.Errorf("failed to update job status: %w", MapError(err))
	}

	return CheckRowsAffected(result, store.ErrJobNotFound)
}

// ListByStatus retrieves jobs in status, oldest first, optionally limited to
// those last updated more than olderThan ago.
func (s *PostgresJobStore) ListByStatus(
	ctx context.Context,
	status jobs.Status,
	olderThan time.Duration,
) ([]*jobs.Record, error) {
	query := `SELECT ` + jobColumns + ` FROM notification_jobs WHERE status = $1`
	args := []any{string(status)}
	if olderThan > 0 {
		query += ` AND updated_at < $2`
		args = append(args, time.Now().UTC().Add(-olderThan))
	}
	query += ` ORDER BY created_at ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query jobs by status: %w", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	var records []*jobs.Record
	for rows.Next() {
		var (
			rec       jobs.Record
			st        string
			dedupeKey sql.NullString
			errMsg    sql.NullString
		)
		if err := rows.Scan(&rec.ID, &rec.Type, &rec.Payload, &st, &rec.Attempts,
			&dedupeKey, &errMsg, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan job row: %w", err)
		}
		rec.Status = jobs.Status(st)
		rec.DedupeKey = dedupeKey.String
		rec.LastError = errMsg.String
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating job rows: %w", err)
	}

	return records, nil
}

// WithTx returns a new PostgresJobStore that uses the provided transaction
func (s *PostgresJobStore) WithTx(tx *sql.Tx) jobs.Store {
	return &PostgresJobStore{db: tx}
}
