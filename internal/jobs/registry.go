package jobs

import (
	"errors"
	"fmt"
	"sync"
)

// ErrUnknownType is returned by Registry.Build for an unregistered job type.
var ErrUnknownType = errors.New("unknown job type")

// Factory rebuilds an executable job from its persisted record.
type Factory func(rec *Record) (Job, error)

// Registry maps job types to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds or replaces the factory for jobType.
func (r *Registry) Register(jobType string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[jobType] = f
}

// Build returns the job described by rec.
func (r *Registry) Build(rec *Record) (Job, error) {
	r.mu.RLock()
	f, ok := r.factories[rec.Type]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, rec.Type)
	}
	job, err := f(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s job: %w", rec.Type, err)
	}
	return job, nil
}
