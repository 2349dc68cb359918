//go:build integration

package postgres_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/tracker-api/internal/domain"
	"github.com/phrazzld/tracker-api/internal/jobs"
	"github.com/phrazzld/tracker-api/internal/platform/postgres"
	"github.com/phrazzld/tracker-api/internal/store"
	"github.com/phrazzld/tracker-api/internal/testdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rolePtr(r domain.Role) *domain.Role { return &r }

func TestTaskStore_Integration(t *testing.T) {
	db := testdb.GetTestDBWithT(t)
	ctx := context.Background()

	t.Run("create loads responsible and performers", func(t *testing.T) {
		testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
			pm := testdb.CreateTestUser(t, tx, rolePtr(domain.RoleProjectManager))
			dev := testdb.CreateTestUser(t, tx, rolePtr(domain.RoleDeveloper))
			qa := testdb.CreateTestUser(t, tx, rolePtr(domain.RoleQA))

			task := testdb.CreateTestTask(t, tx, pm.ID, dev.ID, qa.ID, dev.ID)
			assert.Equal(t, pm.ID, task.Responsible.ID)
			assert.ElementsMatch(t, []int64{dev.ID, qa.ID}, task.PerformerIDs())
			assert.Equal(t, domain.TaskStatusTodo, task.Status)
			assert.Equal(t, domain.TaskPriorityMedium, task.Priority)
		})
	})

	t.Run("duplicate title is a conflict", func(t *testing.T) {
		testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
			pm := testdb.CreateTestUser(t, tx, rolePtr(domain.RoleProjectManager))
			first := testdb.CreateTestTask(t, tx, pm.ID)

			dup, err := domain.NewTask(first.Title, "", "", "", pm.ID)
			require.NoError(t, err)

			// The failing insert aborts tx; nothing may run after it.
			_, err = postgres.NewPostgresTaskStore(tx).Create(ctx, dup, nil)
			assert.ErrorIs(t, err, domain.ErrTaskAlreadyExists)
		})
	})

	t.Run("unknown performer is rejected", func(t *testing.T) {
		testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
			pm := testdb.CreateTestUser(t, tx, rolePtr(domain.RoleProjectManager))
			task, err := domain.NewTask("orphan performer", "", "", "", pm.ID)
			require.NoError(t, err)

			_, err = postgres.NewPostgresTaskStore(tx).Create(ctx, task, []int64{1 << 40})
			assert.ErrorIs(t, err, store.ErrUnknownUser)
		})
	})

	t.Run("partial update and performer replacement", func(t *testing.T) {
		testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
			pm := testdb.CreateTestUser(t, tx, rolePtr(domain.RoleProjectManager))
			dev := testdb.CreateTestUser(t, tx, rolePtr(domain.RoleDeveloper))
			qa := testdb.CreateTestUser(t, tx, rolePtr(domain.RoleQA))
			other := testdb.CreateTestUser(t, tx, rolePtr(domain.RoleDeveloper))
			task := testdb.CreateTestTask(t, tx, pm.ID, dev.ID, qa.ID)

			tasks := postgres.NewPostgresTaskStore(tx)
			updated, err := tasks.Update(ctx, task.ID, domain.TaskUpdate{Status: domain.TaskStatusInProgress})
			require.NoError(t, err)
			assert.Equal(t, task.Title, updated.Title)
			assert.Equal(t, domain.TaskStatusInProgress, updated.Status)
			assert.ElementsMatch(t, []int64{dev.ID, qa.ID}, updated.PerformerIDs())

			updated, err = tasks.Update(ctx, task.ID, domain.TaskUpdate{PerformerIDs: []int64{other.ID}})
			require.NoError(t, err)
			assert.Equal(t, []int64{other.ID}, updated.PerformerIDs())

			reloaded, err := tasks.GetByIDWithPerformers(ctx, task.ID)
			require.NoError(t, err)
			assert.Equal(t, []int64{other.ID}, reloaded.PerformerIDs(), "replacement is never a union")

			_, err = tasks.Update(ctx, task.ID+1_000_000, domain.TaskUpdate{Title: "nope"})
			assert.ErrorIs(t, err, domain.ErrTaskNotFound)
		})
	})

	t.Run("list filters and delete", func(t *testing.T) {
		testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
			pm := testdb.CreateTestUser(t, tx, rolePtr(domain.RoleProjectManager))
			a := testdb.CreateTestTask(t, tx, pm.ID)
			b := testdb.CreateTestTask(t, tx, pm.ID)

			tasks := postgres.NewPostgresTaskStore(tx)
			_, err := tasks.Update(ctx, b.ID, domain.TaskUpdate{Status: domain.TaskStatusCompleted})
			require.NoError(t, err)

			listed, err := tasks.List(ctx, domain.TaskFilter{
				ResponsibleUserID: pm.ID, Status: domain.TaskStatusCompleted,
			})
			require.NoError(t, err)
			require.Len(t, listed, 1)
			assert.Equal(t, b.ID, listed[0].ID)

			require.NoError(t, tasks.Delete(ctx, a.ID))
			require.NoError(t, tasks.Delete(ctx, a.ID))
			_, err = tasks.GetByID(ctx, a.ID)
			assert.ErrorIs(t, err, store.ErrTaskNotFound)
		})
	})

	t.Run("deleting a performer removes only that association", func(t *testing.T) {
		testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
			pm := testdb.CreateTestUser(t, tx, rolePtr(domain.RoleProjectManager))
			dev := testdb.CreateTestUser(t, tx, rolePtr(domain.RoleDeveloper))
			qa := testdb.CreateTestUser(t, tx, rolePtr(domain.RoleQA))
			task := testdb.CreateTestTask(t, tx, pm.ID, dev.ID, qa.ID)

			require.NoError(t, postgres.NewPostgresUserStore(tx).Delete(ctx, qa.ID))

			tasks := postgres.NewPostgresTaskStore(tx)
			_, err := tasks.GetByID(ctx, task.ID)
			require.NoError(t, err, "the task survives its performer")

			reloaded, err := tasks.GetByIDWithPerformers(ctx, task.ID)
			require.NoError(t, err)
			assert.Equal(t, []int64{dev.ID}, reloaded.PerformerIDs())
		})
	})

	t.Run("deleting a user cascades to owned tasks", func(t *testing.T) {
		testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
			pm := testdb.CreateTestUser(t, tx, rolePtr(domain.RoleProjectManager))
			task := testdb.CreateTestTask(t, tx, pm.ID)

			require.NoError(t, postgres.NewPostgresUserStore(tx).Delete(ctx, pm.ID))
			_, err := postgres.NewPostgresTaskStore(tx).GetByID(ctx, task.ID)
			assert.ErrorIs(t, err, store.ErrTaskNotFound)
		})
	})
}

func TestJobStore_Integration(t *testing.T) {
	db := testdb.GetTestDBWithT(t)
	ctx := context.Background()

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		js := postgres.NewPostgresJobStore(tx)
		now := time.Now().UTC()
		rec := &jobs.Record{
			ID: uuid.New(), Type: "test", Payload: []byte{0xa0},
			Status: jobs.StatusPending, DedupeKey: uuid.NewString(),
			CreatedAt: now, UpdatedAt: now,
		}
		require.NoError(t, js.Save(ctx, rec))

		attempts, claimed, err := js.Claim(ctx, rec.ID)
		require.NoError(t, err)
		assert.True(t, claimed)
		assert.Equal(t, 1, attempts)

		_, claimed, err = js.Claim(ctx, rec.ID)
		require.NoError(t, err)
		assert.False(t, claimed, "a processing job cannot be claimed twice")

		require.NoError(t, js.UpdateStatus(ctx, rec.ID, jobs.StatusFailed, "smtp down"))
		failed, err := js.ListByStatus(ctx, jobs.StatusFailed, 0)
		require.NoError(t, err)
		var found bool
		for _, r := range failed {
			if r.ID == rec.ID {
				found = true
				assert.Equal(t, "smtp down", r.LastError)
			}
		}
		assert.True(t, found)

		dup := *rec
		dup.ID = uuid.New()
		assert.ErrorIs(t, js.Save(ctx, &dup), store.ErrDuplicateJob)
	})
}
