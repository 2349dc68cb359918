package domain

import (
	"slices"
	"strings"
	"time"
	"unicode/utf8"
)

// TaskStatus represents the progress state of a task
type TaskStatus string

// Possible task status values
const (
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
)

// Valid reports whether s is a known status.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusCompleted:
		return true
	}
	return false
}

// TaskPriority ranks tasks for scheduling
type TaskPriority string

// Possible task priority values
const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
)

// Valid reports whether p is a known priority.
func (p TaskPriority) Valid() bool {
	switch p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh:
		return true
	}
	return false
}

// MaxTitleLength bounds Task.Title, counted in characters to match the
// VARCHAR(255) column.
const MaxTitleLength = 255

// Task is a unit of work with one responsible owner and any number of
// performers.
//
// Performers is nil when the task was loaded without its performer set and a
// non-nil slice (possibly empty) after a join fetch. Responsible is populated
// only by a join fetch.
type Task struct {
	ID                int64        `json:"id"`
	Title             string       `json:"title"`
	Description       string       `json:"description"`
	Status            TaskStatus   `json:"status"`
	Priority          TaskPriority `json:"priority"`
	ResponsibleUserID int64        `json:"responsible_user_id"`
	Responsible       *User        `json:"-"`
	Performers        []*User      `json:"-"`
	CreatedAt         time.Time    `json:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at"`
}

// NewTask builds an unsaved task, applying the default status and priority
// when they are empty.
func NewTask(
	title, description string,
	status TaskStatus,
	priority TaskPriority,
	responsibleUserID int64,
) (*Task, error) {
	if status == "" {
		status = TaskStatusTodo
	}
	if priority == "" {
		priority = TaskPriorityMedium
	}
	t := &Task{
		Title:             strings.TrimSpace(title),
		Description:       description,
		Status:            status,
		Priority:          priority,
		ResponsibleUserID: responsibleUserID,
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Validate checks the task's own fields. Existence of referenced users is
// enforced by the repository.
func (t *Task) Validate() error {
	if t.Title == "" {
		return NewValidationError("title", "cannot be empty")
	}
	if utf8.RuneCountInString(t.Title) > MaxTitleLength {
		return NewValidationError("title", "too long")
	}
	if !t.Status.Valid() {
		return NewValidationError("status", "unknown status")
	}
	if !t.Priority.Valid() {
		return NewValidationError("priority", "unknown priority")
	}
	if t.ResponsibleUserID <= 0 {
		return NewValidationError("responsible_user_id", "must be a positive id")
	}
	return nil
}

// PerformersLoaded reports whether the performer set was join-fetched.
func (t *Task) PerformersLoaded() bool {
	return t.Performers != nil
}

// HasPerformer reports whether userID is in the loaded performer set.
// It returns false when performers were not loaded.
func (t *Task) HasPerformer(userID int64) bool {
	return slices.ContainsFunc(t.Performers, func(u *User) bool {
		return u != nil && u.ID == userID
	})
}

// PerformerIDs returns the ids of the loaded performers.
func (t *Task) PerformerIDs() []int64 {
	ids := make([]int64, 0, len(t.Performers))
	for _, p := range t.Performers {
		ids = append(ids, p.ID)
	}
	return ids
}

// TaskUpdate is a partial update. Empty strings and zero ids leave the stored
// value untouched. PerformerIDs replaces the whole performer set when it is
// non-empty; an empty or nil slice leaves the set unchanged.
type TaskUpdate struct {
	Title             string
	Description       string
	Status            TaskStatus
	Priority          TaskPriority
	ResponsibleUserID int64
	PerformerIDs      []int64
}

// IsEmpty reports whether the update changes nothing.
func (u TaskUpdate) IsEmpty() bool {
	return u.Title == "" && u.Description == "" && u.Status == "" &&
		u.Priority == "" && u.ResponsibleUserID == 0 && len(u.PerformerIDs) == 0
}

// Validate checks only the fields that are set.
func (u TaskUpdate) Validate() error {
	if utf8.RuneCountInString(strings.TrimSpace(u.Title)) > MaxTitleLength {
		return NewValidationError("title", "too long")
	}
	if u.Status != "" && !u.Status.Valid() {
		return NewValidationError("status", "unknown status")
	}
	if u.Priority != "" && !u.Priority.Valid() {
		return NewValidationError("priority", "unknown priority")
	}
	if u.ResponsibleUserID < 0 {
		return NewValidationError("responsible_user_id", "must be a positive id")
	}
	for _, id := range u.PerformerIDs {
		if id <= 0 {
			return NewValidationError("performers", "ids must be positive")
		}
	}
	return nil
}

// TaskFilter narrows a task listing. Zero values mean "any".
type TaskFilter struct {
	Status            TaskStatus
	Priority          TaskPriority
	ResponsibleUserID int64
	Limit             int
	Offset            int
}

// MaxTaskListLimit caps an explicit page size. A zero Limit lists every
// matching task.
const MaxTaskListLimit = 500

// Normalize validates the filter and caps an explicit page size.
func (f TaskFilter) Normalize() (TaskFilter, error) {
	if f.Status != "" && !f.Status.Valid() {
		return f, NewValidationError("status", "unknown status")
	}
	if f.Priority != "" && !f.Priority.Valid() {
		return f, NewValidationError("priority", "unknown priority")
	}
	if f.Limit < 0 || f.Offset < 0 || f.ResponsibleUserID < 0 {
		return f, NewValidationError("filter", "negative values are not allowed")
	}
	if f.Limit > MaxTaskListLimit {
		f.Limit = MaxTaskListLimit
	}
	return f, nil
}

// UniqueIDs returns ids with duplicates and non-positive values removed,
// preserving first-seen order.
func UniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
