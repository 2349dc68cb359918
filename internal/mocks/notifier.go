package mocks

import (
	"context"

	"github.com/phrazzld/tracker-api/internal/domain"
	"github.com/phrazzld/tracker-api/internal/jobs"
	"github.com/stretchr/testify/mock"
)

// TestifyMockTaskNotifier is a testify mock of service.TaskNotifier.
type TestifyMockTaskNotifier struct {
	mock.Mock
}

// TaskMutated records the call.
func (m *TestifyMockTaskNotifier) TaskMutated(ctx context.Context, before, after *domain.Task, responsible *domain.User) {
	m.Called(ctx, before, after, responsible)
}

// TestifyMockEnqueuer is a testify mock of jobs.Enqueuer.
type TestifyMockEnqueuer struct {
	mock.Mock
}

var _ jobs.Enqueuer = (*TestifyMockEnqueuer)(nil)

// Enqueue is a mock implementation of jobs.Enqueuer.Enqueue
func (m *TestifyMockEnqueuer) Enqueue(ctx context.Context, job jobs.Job) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}
