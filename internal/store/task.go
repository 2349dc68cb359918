package store

import (
	"context"
	"database/sql"

	"github.com/phrazzld/tracker-api/internal/domain"
)

// TaskStore defines the interface for task and performer persistence.
//
// Create and Update are atomic: the task row and its performer associations
// are written in one transaction, which is joined if the store is bound to a
// caller's transaction via WithTx.
type TaskStore interface {
	// Create inserts task and its performer set, then returns the task with
	// Responsible and Performers populated.
	// Returns ErrTitleExists on a duplicate title, ErrUnknownUser when the
	// responsible user or a performer does not exist, and an error wrapping
	// domain.ErrTaskCreationFailed for any other failure.
	Create(ctx context.Context, task *domain.Task, performerIDs []int64) (*domain.Task, error)

	// Update applies a partial update and returns the joined task.
	// A non-empty update.PerformerIDs replaces the performer set.
	// Returns ErrTaskNotFound if no task has the id, ErrTitleExists,
	// ErrUnknownUser, or an error wrapping domain.ErrTaskUpdateFailed.
	Update(ctx context.Context, id int64, update domain.TaskUpdate) (*domain.Task, error)

	// GetByID retrieves a task without its performer set (Performers is nil).
	// Returns ErrTaskNotFound if the task does not exist.
	GetByID(ctx context.Context, id int64) (*domain.Task, error)

	// GetByIDWithPerformers retrieves a task together with its responsible
	// user and performer set.
	// Returns ErrTaskNotFound if the task does not exist.
	GetByIDWithPerformers(ctx context.Context, id int64) (*domain.Task, error)

	// List returns tasks matching filter ordered by id, without relations.
	List(ctx context.Context, filter domain.TaskFilter) ([]*domain.Task, error)

	// LoadRelations populates Responsible and Performers on every task in
	// tasks using batched queries.
	LoadRelations(ctx context.Context, tasks []*domain.Task) error

	// Delete removes a task; its performer associations go with it.
	// Deleting a task that does not exist is not an error.
	Delete(ctx context.Context, id int64) error

	// WithTx returns a new TaskStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) TaskStore
}
