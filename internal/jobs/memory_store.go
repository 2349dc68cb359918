package jobs

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/tracker-api/internal/store"
)

// MemoryStore is an in-process Store. It backs the runner in tests and in
// deployments that accept losing queued notifications on restart.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[uuid.UUID]*Record
	keys    map[string]uuid.UUID
	now     func() time.Time

	// SaveFn, when set, replaces Save. Tests use it to inject failures.
	SaveFn func(ctx context.Context, rec *Record) error
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[uuid.UUID]*Record),
		keys:    make(map[string]uuid.UUID),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Save implements Store.
func (s *MemoryStore) Save(ctx context.Context, rec *Record) error {
	if s.SaveFn != nil {
		return s.SaveFn(ctx, rec)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.DedupeKey != "" {
		if _, ok := s.keys[rec.DedupeKey]; ok {
			return fmt.Errorf("%w: dedupe key %s", store.ErrDuplicateJob, rec.DedupeKey)
		}
		s.keys[rec.DedupeKey] = rec.ID
	}

	cp := *rec
	cp.UpdatedAt = s.now()
	s.records[rec.ID] = &cp
	return nil
}

// Claim implements Store.
func (s *MemoryStore) Claim(ctx context.Context, id uuid.UUID) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return 0, false, store.ErrJobNotFound
	}
	if rec.Status != StatusPending {
		return rec.Attempts, false, nil
	}
	rec.Status = StatusProcessing
	rec.Attempts++
	rec.UpdatedAt = s.now()
	return rec.Attempts, true, nil
}

// UpdateStatus implements Store. Unknown ids are a no-op.
func (s *MemoryStore) UpdateStatus(ctx context.Context, id uuid.UUID, status Status, errorMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return nil
	}
	rec.Status = status
	rec.LastError = errorMsg
	rec.UpdatedAt = s.now()
	return nil
}

// ListByStatus implements Store.
func (s *MemoryStore) ListByStatus(ctx context.Context, status Status, olderThan time.Duration) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := s.now().Add(-olderThan)
	var out []*Record
	for _, rec := range s.records {
		if rec.Status != status {
			continue
		}
		if olderThan > 0 && !rec.UpdatedAt.Before(cutoff) {
			continue
		}
		cp := *rec
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Get returns a copy of the record with id.
func (s *MemoryStore) Get(id uuid.UUID) (*Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, false
	}
	cp := *rec
	return &cp, true
}

// All returns copies of every stored record, oldest first.
func (s *MemoryStore) All() []*Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Record, 0, len(s.records))
	for _, rec := range s.records {
		cp := *rec
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// WithTx implements Store. The memory store has no transactions.
func (s *MemoryStore) WithTx(tx *sql.Tx) Store {
	return s
}
