package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/phrazzld/tracker-api/internal/domain"
	"github.com/phrazzld/tracker-api/internal/platform/logger"
	"github.com/phrazzld/tracker-api/internal/store"
)

// taskColumns is the select list scanned by scanTask.
const taskColumns = "t.id, t.title, t.description, t.status, t.priority, t.responsible_user_id, t.created_at, t.updated_at"

// updateTaskSQL applies a partial update. Empty strings and a zero
// responsible id keep the stored value. The UPDATE takes the row lock, so a
// concurrent update of the same task waits here until this transaction ends.
const updateTaskSQL = `
	UPDATE tasks t SET
		title = COALESCE(NULLIF($2, ''), t.title),
		description = COALESCE(NULLIF($3, ''), t.description),
		status = COALESCE(NULLIF($4, '')::task_status, t.status),
		priority = COALESCE(NULLIF($5, '')::task_priority, t.priority),
		responsible_user_id = COALESCE(NULLIF($6::bigint, 0), t.responsible_user_id),
		updated_at = NOW()
	WHERE t.id = $1
	RETURNING ` + taskColumns

// PostgresTaskStore implements the store.TaskStore interface using PostgreSQL
type PostgresTaskStore struct {
	db store.DBTX
}

// NewPostgresTaskStore creates a new PostgresTaskStore
func NewPostgresTaskStore(db store.DBTX) *PostgresTaskStore {
	return &PostgresTaskStore{db: db}
}

var _ store.TaskStore = (*PostgresTaskStore)(nil)

func scanTask(row rowScanner) (*domain.Task, error) {
	var t domain.Task
	var status, priority string
	if err := row.Scan(
		&t.ID, &t.Title, &t.Description, &status, &priority,
		&t.ResponsibleUserID, &t.CreatedAt, &t.UpdatedAt,
	); err != nil {
		return nil, err
	}
	t.Status = domain.TaskStatus(status)
	t.Priority = domain.TaskPriority(priority)
	return &t, nil
}

// mapTaskWriteError classifies a failed task write. Constraint violations map
// to their specific store errors; anything else is wrapped in fallback.
func mapTaskWriteError(err error, fallback error) error {
	switch {
	case errors.Is(err, store.ErrTaskNotFound):
		return err
	case IsUniqueViolation(err):
		return fmt.Errorf("%w: %v", store.ErrTitleExists, err)
	case IsForeignKeyViolation(err):
		return fmt.Errorf("%w: %v", store.ErrUnknownUser, err)
	default:
		return fmt.Errorf("%w: %w", fallback, MapError(err))
	}
}

// Create implements store.TaskStore.Create
func (s *PostgresTaskStore) Create(
	ctx context.Context,
	task *domain.Task,
	performerIDs []int64,
) (*domain.Task, error) {
	log := logger.FromContext(ctx)

	var created *domain.Task
	err := store.InTx(ctx, s.db, func(ctx context.Context, q store.DBTX) error {
		row := q.QueryRowContext(ctx, `
			INSERT INTO tasks (title, description, status, priority, responsible_user_id)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING `+strings.ReplaceAll(taskColumns, "t.", ""),
			task.Title, task.Description, string(task.Status), string(task.Priority), task.ResponsibleUserID,
		)
		inserted, err := scanTask(row)
		if err != nil {
			return mapTaskWriteError(err, domain.ErrTaskCreationFailed)
		}

		if err := insertPerformers(ctx, q, inserted.ID, performerIDs); err != nil {
			return mapTaskWriteError(err, domain.ErrTaskCreationFailed)
		}

		if err := loadRelations(ctx, q, []*domain.Task{inserted}); err != nil {
			return mapTaskWriteError(err, domain.ErrTaskCreationFailed)
		}
		created = inserted
		return nil
	})
	if err != nil {
		if !store.IsDuplicateError(err) {
			log.Error("failed to create task", slog.String("error", err.Error()))
		}
		return nil, err
	}

	return created, nil
}

// Update implements store.TaskStore.Update
func (s *PostgresTaskStore) Update(
	ctx context.Context,
	id int64,
	update domain.TaskUpdate,
) (*domain.Task, error) {
	log := logger.FromContext(ctx)

	var updated *domain.Task
	err := store.InTx(ctx, s.db, func(ctx context.Context, q store.DBTX) error {
		row := q.QueryRowContext(ctx, updateTaskSQL,
			id,
			strings.TrimSpace(update.Title),
			update.Description,
			string(update.Status),
			string(update.Priority),
			update.ResponsibleUserID,
		)
		task, err := scanTask(row)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return store.ErrTaskNotFound
			}
			return mapTaskWriteError(err, domain.ErrTaskUpdateFailed)
		}

		if ids := domain.UniqueIDs(update.PerformerIDs); len(ids) > 0 {
			if _, err := q.ExecContext(ctx,
				`DELETE FROM task_performers WHERE task_id = $1`, id); err != nil {
				return mapTaskWriteError(err, domain.ErrTaskUpdateFailed)
			}
			if err := insertPerformers(ctx, q, id, ids); err != nil {
				return mapTaskWriteError(err, domain.ErrTaskUpdateFailed)
			}
		}

		if err := loadRelations(ctx, q, []*domain.Task{task}); err != nil {
			return mapTaskWriteError(err, domain.ErrTaskUpdateFailed)
		}
		updated = task
		return nil
	})
	if err != nil {
		if !store.IsNotFoundError(err) && !store.IsDuplicateError(err) {
			log.Error("failed to update task", slog.Int64("task_id", id), slog.String("error", err.Error()))
		}
		return nil, err
	}

	return updated, nil
}

// insertPerformers associates the distinct positive ids with taskID.
func insertPerformers(ctx context.Context, q store.DBTX, taskID int64, performerIDs []int64) error {
	ids := domain.UniqueIDs(performerIDs)
	if len(ids) == 0 {
		return nil
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO task_performers (task_id, user_id)
		SELECT $1, user_id FROM UNNEST($2::bigint[]) AS p(user_id)`,
		taskID, ids,
	)
	return err
}

// GetByID implements store.TaskStore.GetByID
func (s *PostgresTaskStore) GetByID(ctx context.Context, id int64) (*domain.Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks t WHERE t.id = $1`, id)
	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrTaskNotFound
		}
		return nil, store.NewStoreError("task", "get_by_id", "query failed", MapError(err))
	}
	return task, nil
}

// GetByIDWithPerformers implements store.TaskStore.GetByIDWithPerformers
func (s *PostgresTaskStore) GetByIDWithPerformers(ctx context.Context, id int64) (*domain.Task, error) {
	task, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := loadRelations(ctx, s.db, []*domain.Task{task}); err != nil {
		return nil, err
	}
	return task, nil
}

// List implements store.TaskStore.List
func (s *PostgresTaskStore) List(ctx context.Context, filter domain.TaskFilter) ([]*domain.Task, error) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.Status != "" {
		conds = append(conds, "t.status = "+arg(string(filter.Status))+"::task_status")
	}
	if filter.Priority != "" {
		conds = append(conds, "t.priority = "+arg(string(filter.Priority))+"::task_priority")
	}
	if filter.ResponsibleUserID > 0 {
		conds = append(conds, "t.responsible_user_id = "+arg(filter.ResponsibleUserID))
	}

	query := `SELECT ` + taskColumns + ` FROM tasks t`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY t.id`
	if filter.Limit > 0 {
		query += ` LIMIT ` + arg(filter.Limit)
	}
	if filter.Offset > 0 {
		query += ` OFFSET ` + arg(filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, store.NewStoreError("task", "list", "query failed", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	tasks := []*domain.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, store.NewStoreError("task", "list", "scan failed", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("task", "list", "row iteration failed", err)
	}
	return tasks, nil
}

// LoadRelations implements store.TaskStore.LoadRelations
func (s *PostgresTaskStore) LoadRelations(ctx context.Context, tasks []*domain.Task) error {
	return loadRelations(ctx, s.db, tasks)
}

// loadRelations fills Responsible and Performers with two batched queries.
// Every task ends up with a non-nil Performers slice.
func loadRelations(ctx context.Context, q store.DBTX, tasks []*domain.Task) error {
	if len(tasks) == 0 {
		return nil
	}

	byID := make(map[int64]*domain.Task, len(tasks))
	taskIDs := make([]int64, 0, len(tasks))
	ownerIDs := make([]int64, 0, len(tasks))
	for _, t := range tasks {
		t.Performers = []*domain.User{}
		byID[t.ID] = t
		taskIDs = append(taskIDs, t.ID)
		ownerIDs = append(ownerIDs, t.ResponsibleUserID)
	}

	owners, err := getUsersByIDs(ctx, q, ownerIDs)
	if err != nil {
		return err
	}
	ownersByID := make(map[int64]*domain.User, len(owners))
	for _, u := range owners {
		ownersByID[u.ID] = u
	}
	for _, t := range tasks {
		t.Responsible = ownersByID[t.ResponsibleUserID]
	}

	rows, err := q.QueryContext(ctx, `
		SELECT tp.task_id, `+userColumns+`
		FROM task_performers tp
		JOIN users u ON u.id = tp.user_id
		WHERE tp.task_id = ANY($1)
		ORDER BY tp.task_id, u.id`, taskIDs)
	if err != nil {
		return store.NewStoreError("task", "load_performers", "query failed", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			taskID int64
			u      domain.User
			role   sql.NullString
		)
		if err := rows.Scan(&taskID, &u.ID, &u.Name, &u.Surname, &u.Email,
			&u.HashedPassword, &role, &u.CreatedAt); err != nil {
			return store.NewStoreError("task", "load_performers", "scan failed", err)
		}
		if role.Valid {
			r := domain.Role(role.String)
			u.Role = &r
		}
		if t, ok := byID[taskID]; ok {
			t.Performers = append(t.Performers, &u)
		}
	}
	if err := rows.Err(); err != nil {
		return store.NewStoreError("task", "load_performers", "row iteration failed", err)
	}
	return nil
}

// Delete implements store.TaskStore.Delete
func (s *PostgresTaskStore) Delete(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id); err != nil {
		return store.NewStoreError("task", "delete", "delete failed", MapError(err))
	}
	return nil
}

// WithTx implements store.TaskStore.WithTx
func (s *PostgresTaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	return &PostgresTaskStore{db: tx}
}
