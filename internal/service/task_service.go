package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/phrazzld/tracker-api/internal/authz"
	"github.com/phrazzld/tracker-api/internal/domain"
	"github.com/phrazzld/tracker-api/internal/store"
)

// TaskNotifier is told about every successful task mutation so it can decide
// whether to notify anyone. Implementations must not block and must not fail
// the mutation.
type TaskNotifier interface {
	TaskMutated(ctx context.Context, before, after *domain.Task, responsible *domain.User)
}

// CreateTaskParams carries the fields of a task creation request.
type CreateTaskParams struct {
	Title             string
	Description       string
	Status            domain.TaskStatus
	Priority          domain.TaskPriority
	ResponsibleUserID int64
	PerformerIDs      []int64
}

// TaskService provides the task operations, each gated by the caller's
// access tier.
//
// Errors follow a fixed precedence: a missing principal fails with
// domain.ErrNotAuthorized, then role gates that need no task fail with
// domain.ErrNoAccessRights, then a missing task yields domain.ErrTaskNotFound,
// and only then are relationship gates checked.
type TaskService interface {
	List(ctx context.Context, principal *domain.User, filter domain.TaskFilter) ([]*domain.Task, error)
	Get(ctx context.Context, principal *domain.User, id int64) (*domain.Task, error)
	Create(ctx context.Context, principal *domain.User, params CreateTaskParams) (*domain.Task, error)
	Update(ctx context.Context, principal *domain.User, id int64, update domain.TaskUpdate) (*domain.Task, error)
	UpdateStatus(ctx context.Context, principal *domain.User, id int64, status domain.TaskStatus) (*domain.Task, error)
	Delete(ctx context.Context, principal *domain.User, id int64) error
}

// TaskServiceImpl implements the TaskService interface
type TaskServiceImpl struct {
	taskStore store.TaskStore
	db        store.TxBeginner
	notifier  TaskNotifier
	logger    *slog.Logger
}

var _ TaskService = (*TaskServiceImpl)(nil)

// NewTaskService creates a new TaskService. notifier may be nil.
func NewTaskService(
	taskStore store.TaskStore,
	db store.TxBeginner,
	notifier TaskNotifier,
	logger *slog.Logger,
) *TaskServiceImpl {
	return &TaskServiceImpl{
		taskStore: taskStore,
		db:        db,
		notifier:  notifier,
		logger:    logger.With("component", "task_service"),
	}
}

// List implements TaskService. Every authenticated user may list all tasks.
func (s *TaskServiceImpl) List(
	ctx context.Context,
	principal *domain.User,
	filter domain.TaskFilter,
) ([]*domain.Task, error) {
	if principal == nil {
		return nil, domain.ErrNotAuthorized
	}

	filter, err := filter.Normalize()
	if err != nil {
		return nil, err
	}

	tasks, err := s.taskStore.List(ctx, filter)
	if err != nil {
		s.logger.Error("failed to list tasks", "error", err)
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	if err := s.taskStore.LoadRelations(ctx, tasks); err != nil {
		s.logger.Error("failed to load task relations", "error", err)
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

// Get implements TaskService. Every authenticated user may read any task.
func (s *TaskServiceImpl) Get(ctx context.Context, principal *domain.User, id int64) (*domain.Task, error) {
	if principal == nil {
		return nil, domain.ErrNotAuthorized
	}

	task, err := s.taskStore.GetByIDWithPerformers(ctx, id)
	if err != nil {
		return nil, s.wrapLookupError(err, id, "get")
	}
	return task, nil
}

// Create implements TaskService. Only project managers may create tasks.
func (s *TaskServiceImpl) Create(
	ctx context.Context,
	principal *domain.User,
	params CreateTaskParams,
) (*domain.Task, error) {
	if principal == nil {
		return nil, domain.ErrNotAuthorized
	}
	if err := authz.RequireProjectManager(principal); err != nil {
		return nil, err
	}

	task, err := domain.NewTask(params.Title, params.Description, params.Status, params.Priority, params.ResponsibleUserID)
	if err != nil {
		return nil, err
	}
	for _, id := range params.PerformerIDs {
		if id <= 0 {
			return nil, domain.NewValidationError("performers", "ids must be positive")
		}
	}

	created, err := s.taskStore.Create(ctx, task, params.PerformerIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	s.logger.Info("task created",
		"task_id", created.ID,
		"user_id", principal.ID)
	return created, nil
}

// Update implements TaskService. The task's responsible user and project
// managers may edit a task.
func (s *TaskServiceImpl) Update(
	ctx context.Context,
	principal *domain.User,
	id int64,
	update domain.TaskUpdate,
) (*domain.Task, error) {
	if principal == nil {
		return nil, domain.ErrNotAuthorized
	}
	if err := update.Validate(); err != nil {
		return nil, err
	}

	return s.mutate(ctx, id, "update", update, func(task *domain.Task) error {
		return authz.RequireResponsibleOrPM(principal, task)
	}, false)
}

// UpdateStatus implements TaskService. Performers may change the status in
// addition to the responsible user and project managers.
func (s *TaskServiceImpl) UpdateStatus(
	ctx context.Context,
	principal *domain.User,
	id int64,
	status domain.TaskStatus,
) (*domain.Task, error) {
	if principal == nil {
		return nil, domain.ErrNotAuthorized
	}
	if !status.Valid() {
		return nil, domain.NewValidationError("status", "unknown status")
	}

	return s.mutate(ctx, id, "update_status", domain.TaskUpdate{Status: status}, func(task *domain.Task) error {
		return authz.RequireResponsibleOrPMOrPerformer(principal, task)
	}, true)
}

// mutate loads the task, runs the access check against it and applies update
// in one transaction. The notifier sees the task as loaded and as returned by
// the update.
func (s *TaskServiceImpl) mutate(
	ctx context.Context,
	id int64,
	op string,
	update domain.TaskUpdate,
	check func(task *domain.Task) error,
	withPerformers bool,
) (*domain.Task, error) {
	var before, after *domain.Task

	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txStore := s.taskStore.WithTx(tx)

		var err error
		if withPerformers {
			before, err = txStore.GetByIDWithPerformers(ctx, id)
		} else {
			before, err = txStore.GetByID(ctx, id)
		}
		if err != nil {
			return s.wrapLookupError(err, id, op)
		}

		if err := check(before); err != nil {
			return err
		}

		after, err = txStore.Update(ctx, id, update)
		if err != nil {
			return fmt.Errorf("failed to %s task: %w", op, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("task updated", "task_id", id, "operation", op)
	if s.notifier != nil {
		s.notifier.TaskMutated(ctx, before, after, after.Responsible)
	}
	return after, nil
}

// Delete implements TaskService. Only project managers may delete tasks.
// Deleting a task that does not exist succeeds.
func (s *TaskServiceImpl) Delete(ctx context.Context, principal *domain.User, id int64) error {
	if principal == nil {
		return domain.ErrNotAuthorized
	}
	if err := authz.RequireProjectManager(principal); err != nil {
		return err
	}

	if err := s.taskStore.Delete(ctx, id); err != nil {
		s.logger.Error("failed to delete task", "error", err, "task_id", id)
		return fmt.Errorf("failed to delete task: %w", err)
	}

	s.logger.Info("task deleted", "task_id", id, "user_id", principal.ID)
	return nil
}

func (s *TaskServiceImpl) wrapLookupError(err error, id int64, op string) error {
	if !store.IsNotFoundError(err) {
		s.logger.Error("failed to load task", "error", err, "task_id", id, "operation", op)
	}
	return fmt.Errorf("failed to %s task: %w", op, err)
}
