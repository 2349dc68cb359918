package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testJobType = "test"

// testJob is a Job whose behavior is supplied by the test.
type testJob struct {
	id        uuid.UUID
	payload   []byte
	dedupeKey string
	ExecuteFn func(ctx context.Context) error
}

func (j *testJob) ID() uuid.UUID     { return j.id }
func (j *testJob) Type() string      { return testJobType }
func (j *testJob) Payload() []byte   { return j.payload }
func (j *testJob) DedupeKey() string { return j.dedupeKey }
func (j *testJob) Execute(ctx context.Context) error {
	if j.ExecuteFn == nil {
		return nil
	}
	return j.ExecuteFn(ctx)
}

// testHarness wires a runner to a memory store and a registry that resolves
// records back to the testJob instances the test created.
type testHarness struct {
	store    *MemoryStore
	registry *Registry
	runner   *Runner

	mu   sync.Mutex
	jobs map[uuid.UUID]*testJob
}

func newHarness(t *testing.T, cfg Config) *testHarness {
	t.Helper()

	h := &testHarness{
		store:    NewMemoryStore(),
		registry: NewRegistry(),
		jobs:     make(map[uuid.UUID]*testJob),
	}
	h.registry.Register(testJobType, func(rec *Record) (Job, error) {
		h.mu.Lock()
		defer h.mu.Unlock()
		if j, ok := h.jobs[rec.ID]; ok {
			return j, nil
		}
		return &testJob{id: rec.ID, payload: rec.Payload}, nil
	})

	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
	h.runner = NewRunner(h.store, h.registry, cfg, logger)
	t.Cleanup(h.runner.Stop)
	return h
}

func (h *testHarness) newJob(fn func(ctx context.Context) error) *testJob {
	j := &testJob{id: uuid.New(), payload: []byte("payload"), ExecuteFn: fn}
	h.mu.Lock()
	h.jobs[j.id] = j
	h.mu.Unlock()
	return j
}

func (h *testHarness) waitForStatus(t *testing.T, id uuid.UUID, want Status) *Record {
	t.Helper()
	var rec *Record
	require.Eventually(t, func() bool {
		var ok bool
		rec, ok = h.store.Get(id)
		return ok && rec.Status == want
	}, 2*time.Second, 5*time.Millisecond, "job %s never reached %s", id, want)
	return rec
}

func fastConfig() Config {
	cfg := DefaultConfig()
	cfg.RetryDelay = 5 * time.Millisecond
	cfg.CheckInterval = time.Hour
	return cfg
}

func TestRunner_Enqueue(t *testing.T) {
	t.Parallel()

	t.Run("successful enqueue persists a pending record", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, fastConfig())

		job := h.newJob(nil)
		require.NoError(t, h.runner.Enqueue(context.Background(), job))

		rec, ok := h.store.Get(job.ID())
		require.True(t, ok)
		assert.Equal(t, StatusPending, rec.Status)
		assert.Equal(t, testJobType, rec.Type)
	})

	t.Run("queue full keeps the job persisted", func(t *testing.T) {
		t.Parallel()
		cfg := fastConfig()
		cfg.QueueSize = 1
		h := newHarness(t, cfg)

		require.NoError(t, h.runner.Enqueue(context.Background(), h.newJob(nil)))

		second := h.newJob(nil)
		err := h.runner.Enqueue(context.Background(), second)
		assert.ErrorIs(t, err, ErrQueueFull)

		rec, ok := h.store.Get(second.ID())
		require.True(t, ok)
		assert.Equal(t, StatusPending, rec.Status)
	})

	t.Run("store error", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, fastConfig())
		h.store.SaveFn = func(ctx context.Context, rec *Record) error {
			return errors.New("mock store error")
		}

		err := h.runner.Enqueue(context.Background(), h.newJob(nil))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to save job")
	})

	t.Run("duplicate dedupe key is dropped", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, fastConfig())

		first := h.newJob(nil)
		first.dedupeKey = "same"
		second := h.newJob(nil)
		second.dedupeKey = "same"

		require.NoError(t, h.runner.Enqueue(context.Background(), first))
		require.NoError(t, h.runner.Enqueue(context.Background(), second))

		assert.Len(t, h.store.All(), 1)
	})

	t.Run("stopped runner rejects dispatch", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, fastConfig())
		h.runner.Stop()

		err := h.runner.Enqueue(context.Background(), h.newJob(nil))
		assert.ErrorIs(t, err, ErrRunnerStopped)
	})
}

func TestRunner_Processing(t *testing.T) {
	t.Parallel()

	t.Run("executes and completes jobs", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, fastConfig())
		require.NoError(t, h.runner.Start())

		var executed atomic.Int32
		ids := make([]uuid.UUID, 0, 3)
		for i := 0; i < 3; i++ {
			job := h.newJob(func(ctx context.Context) error {
				executed.Add(1)
				return nil
			})
			ids = append(ids, job.ID())
			require.NoError(t, h.runner.Enqueue(context.Background(), job))
		}

		for _, id := range ids {
			rec := h.waitForStatus(t, id, StatusCompleted)
			assert.Equal(t, 1, rec.Attempts)
		}
		assert.Equal(t, int32(3), executed.Load())
	})

	t.Run("retries until success", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, fastConfig())
		require.NoError(t, h.runner.Start())

		var calls atomic.Int32
		job := h.newJob(func(ctx context.Context) error {
			if calls.Add(1) == 1 {
				return errors.New("smtp unavailable")
			}
			return nil
		})
		require.NoError(t, h.runner.Enqueue(context.Background(), job))

		rec := h.waitForStatus(t, job.ID(), StatusCompleted)
		assert.Equal(t, 2, rec.Attempts)
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("marks failed after max attempts", func(t *testing.T) {
		t.Parallel()
		cfg := fastConfig()
		cfg.MaxAttempts = 2
		h := newHarness(t, cfg)

		failed := make(chan *Record, 1)
		h.runner.SetErrorHandler(func(rec *Record, err error) { failed <- rec })
		require.NoError(t, h.runner.Start())

		job := h.newJob(func(ctx context.Context) error {
			return errors.New("always fails")
		})
		require.NoError(t, h.runner.Enqueue(context.Background(), job))

		rec := h.waitForStatus(t, job.ID(), StatusFailed)
		assert.Equal(t, 2, rec.Attempts)
		assert.Equal(t, "always fails", rec.LastError)

		select {
		case got := <-failed:
			assert.Equal(t, job.ID(), got.ID)
		case <-time.After(time.Second):
			t.Fatal("error handler not called")
		}
	})

	t.Run("error handler can be replaced while workers run", func(t *testing.T) {
		t.Parallel()
		cfg := fastConfig()
		cfg.MaxAttempts = 1
		h := newHarness(t, cfg)
		require.NoError(t, h.runner.Start())

		var reported atomic.Int32
		ids := make([]uuid.UUID, 0, 5)
		for i := 0; i < 5; i++ {
			h.runner.SetErrorHandler(func(rec *Record, err error) { reported.Add(1) })
			job := h.newJob(func(ctx context.Context) error { return errors.New("always fails") })
			ids = append(ids, job.ID())
			require.NoError(t, h.runner.Enqueue(context.Background(), job))
		}
		for _, id := range ids {
			h.waitForStatus(t, id, StatusFailed)
		}
		assert.Eventually(t, func() bool { return reported.Load() == 5 }, time.Second, 5*time.Millisecond)
	})

	t.Run("panic is reported as failure", func(t *testing.T) {
		t.Parallel()
		cfg := fastConfig()
		cfg.MaxAttempts = 1
		h := newHarness(t, cfg)
		require.NoError(t, h.runner.Start())

		job := h.newJob(func(ctx context.Context) error { panic("boom") })
		require.NoError(t, h.runner.Enqueue(context.Background(), job))

		rec := h.waitForStatus(t, job.ID(), StatusFailed)
		assert.Contains(t, rec.LastError, "boom")
	})

	t.Run("unknown job type fails without retry", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, fastConfig())
		require.NoError(t, h.runner.Start())

		rec := &Record{ID: uuid.New(), Type: "nope", Status: StatusPending, CreatedAt: time.Now()}
		require.NoError(t, h.store.Save(context.Background(), rec))
		require.NoError(t, h.runner.dispatch(rec))

		got := h.waitForStatus(t, rec.ID, StatusFailed)
		assert.Equal(t, 1, got.Attempts)
		assert.Contains(t, got.LastError, "unknown job type")
	})
}

func TestRunner_Recover(t *testing.T) {
	t.Parallel()

	h := newHarness(t, fastConfig())
	ctx := context.Background()

	pending := h.newJob(nil)
	interrupted := h.newJob(nil)
	require.NoError(t, h.store.Save(ctx, NewRecord(pending)))
	require.NoError(t, h.store.Save(ctx, NewRecord(interrupted)))
	_, claimed, err := h.store.Claim(ctx, interrupted.ID())
	require.NoError(t, err)
	require.True(t, claimed)

	require.NoError(t, h.runner.Start())

	h.waitForStatus(t, pending.ID(), StatusCompleted)
	rec := h.waitForStatus(t, interrupted.ID(), StatusCompleted)
	assert.Equal(t, 2, rec.Attempts, "interrupted execution counts as an attempt")
}

func TestRunner_CheckStuckJobs(t *testing.T) {
	t.Parallel()

	h := newHarness(t, fastConfig())
	ctx := context.Background()

	job := h.newJob(nil)
	require.NoError(t, h.store.Save(ctx, NewRecord(job)))
	_, _, err := h.store.Claim(ctx, job.ID())
	require.NoError(t, err)

	// Nothing is old enough yet.
	h.runner.checkStuckJobs(ctx)
	rec, _ := h.store.Get(job.ID())
	assert.Equal(t, StatusProcessing, rec.Status)

	// Move the store's clock past the stuck age.
	h.store.mu.Lock()
	h.store.now = func() time.Time { return time.Now().UTC().Add(2 * h.runner.config.StuckJobAge) }
	h.store.mu.Unlock()

	h.runner.checkStuckJobs(ctx)
	rec, _ = h.store.Get(job.ID())
	assert.Equal(t, StatusPending, rec.Status)

	select {
	case queued := <-h.runner.queue:
		assert.Equal(t, job.ID(), queued.ID)
	default:
		t.Fatal("stuck job was not re-dispatched")
	}
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	_, err := r.Build(&Record{Type: "missing"})
	assert.ErrorIs(t, err, ErrUnknownType)

	r.Register("broken", func(rec *Record) (Job, error) {
		return nil, errors.New("bad payload")
	})
	_, err = r.Build(&Record{Type: "broken"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad payload")
}
