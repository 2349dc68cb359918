package testdb

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/phrazzld/tracker-api/internal/domain"
	"github.com/phrazzld/tracker-api/internal/platform/postgres"
	"github.com/phrazzld/tracker-api/internal/store"
	"github.com/stretchr/testify/require"
)

// TestPasswordHash fills the password column of fixture users. It does not
// verify against any password; tests that log in register through the API.
const TestPasswordHash = "$2a$04$fixturefixturefixturefixturefixturefixturefixturefix"

var seq atomic.Int64

// CreateTestUser inserts a user with a unique email through q.
func CreateTestUser(t *testing.T, q store.DBTX, role *domain.Role) *domain.User {
	t.Helper()

	n := seq.Add(1)
	u := &domain.User{
		Name:           "Test",
		Surname:        fmt.Sprintf("User%d", n),
		Email:          fmt.Sprintf("test-user-%d-%p@example.com", n, t),
		HashedPassword: TestPasswordHash,
		Role:           role,
	}
	require.NoError(t, postgres.NewPostgresUserStore(q).Create(context.Background(), u))
	return u
}

// CreateTestTask inserts a task owned by responsibleID through q.
func CreateTestTask(t *testing.T, q store.DBTX, responsibleID int64, performerIDs ...int64) *domain.Task {
	t.Helper()

	task, err := domain.NewTask(
		fmt.Sprintf("task %d %p", seq.Add(1), t),
		"created by a test",
		"", "",
		responsibleID,
	)
	require.NoError(t, err)

	created, err := postgres.NewPostgresTaskStore(q).Create(context.Background(), task, performerIDs)
	require.NoError(t, err)
	return created
}
