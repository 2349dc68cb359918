package notify

import (
	"context"
	"errors"
	"log/slog"

	"github.com/phrazzld/tracker-api/internal/domain"
	"github.com/phrazzld/tracker-api/internal/jobs"
)

// Trigger enqueues a StatusChangedJob whenever a mutation changes a task's
// status. It implements service.TaskNotifier.
//
// Enqueued jobs carry only their payload. The runner rebuilds them through
// the factory added by RegisterJobs, which supplies the mail sender.
type Trigger struct {
	enqueuer jobs.Enqueuer
	logger   *slog.Logger
}

// NewTrigger creates a Trigger.
func NewTrigger(enqueuer jobs.Enqueuer, logger *slog.Logger) *Trigger {
	return &Trigger{
		enqueuer: enqueuer,
		logger:   logger.With("component", "notify_trigger"),
	}
}

// TaskMutated enqueues a notification for responsible if the status of the
// task differs between before and after. Failures are logged.
func (t *Trigger) TaskMutated(ctx context.Context, before, after *domain.Task, responsible *domain.User) {
	if before == nil || after == nil || before.Status == after.Status {
		return
	}
	log := t.logger.With("task_id", after.ID, "status", after.Status)
	if responsible == nil || responsible.Email == "" {
		log.Warn("status changed but the task has no reachable responsible user")
		return
	}

	job, err := NewStatusChangedJob(StatusChangedPayload{
		Recipient: responsible.Email,
		Task:      NewTaskSnapshot(after, responsible),
	}, nil, "")
	if err != nil {
		log.Error("failed to build status change notification", "error", err)
		return
	}

	// The request may finish before the job is stored.
	if err := t.enqueuer.Enqueue(context.WithoutCancel(ctx), job); err != nil {
		if errors.Is(err, jobs.ErrQueueFull) {
			log.Warn("notification queue full; job left pending", "job_id", job.ID())
			return
		}
		log.Error("failed to enqueue status change notification", "job_id", job.ID(), "error", err)
		return
	}
	log.Debug("status change notification enqueued", "job_id", job.ID())
}
