package jobs

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Status represents the current state of a job
type Status string

// Possible job status values
const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Job is a unit of background work.
type Job interface {
	// ID returns the job's unique identifier
	ID() uuid.UUID

	// Type selects the Factory that rebuilds the job from its record
	Type() string

	// Payload returns the serialized job data
	Payload() []byte

	// DedupeKey identifies jobs that must not be stored twice.
	// An empty key disables deduplication.
	DedupeKey() string

	// Execute runs the job logic
	Execute(ctx context.Context) error
}

// Enqueuer accepts jobs for asynchronous execution.
type Enqueuer interface {
	Enqueue(ctx context.Context, job Job) error
}

// Record is the persisted form of a job.
type Record struct {
	ID        uuid.UUID
	Type      string
	Payload   []byte
	Status    Status
	Attempts  int
	DedupeKey string
	LastError string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewRecord builds a pending record for job.
func NewRecord(job Job) *Record {
	now := time.Now().UTC()
	return &Record{
		ID:        job.ID(),
		Type:      job.Type(),
		Payload:   job.Payload(),
		Status:    StatusPending,
		DedupeKey: job.DedupeKey(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Store persists job records.
type Store interface {
	// Save inserts a pending record.
	// Returns an error wrapping store.ErrDuplicate if another record has the
	// same non-empty dedupe key.
	Save(ctx context.Context, rec *Record) error

	// Claim moves a pending record to processing and increments its attempt
	// counter. claimed is false if the record was not pending.
	Claim(ctx context.Context, id uuid.UUID) (attempts int, claimed bool, err error)

	// UpdateStatus sets the status and error message of a record.
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status, errorMsg string) error

	// ListByStatus returns records in status, oldest first. If olderThan is
	// non-zero only records last updated more than olderThan ago are returned.
	ListByStatus(ctx context.Context, status Status, olderThan time.Duration) ([]*Record, error)

	// WithTx returns a new Store instance that uses the provided transaction.
	WithTx(tx *sql.Tx) Store
}
