package domain

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTask_AppliesDefaults(t *testing.T) {
	t.Parallel()

	task, err := NewTask("  Write report ", "quarterly", "", "", 7)
	require.NoError(t, err)

	assert.Equal(t, "Write report", task.Title)
	assert.Equal(t, TaskStatusTodo, task.Status)
	assert.Equal(t, TaskPriorityMedium, task.Priority)
	assert.Equal(t, int64(7), task.ResponsibleUserID)
	assert.False(t, task.PerformersLoaded(), "a new task has no join-fetched performers")
}

func TestNewTask_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		title    string
		status   TaskStatus
		priority TaskPriority
		owner    int64
		field    string
	}{
		{"empty title", "   ", "", "", 1, "title"},
		{"title too long", strings.Repeat("x", MaxTitleLength+1), "", "", 1, "title"},
		{"unknown status", "t", "blocked", "", 1, "status"},
		{"unknown priority", "t", "", "urgent", 1, "priority"},
		{"missing owner", "t", "", "", 0, "responsible_user_id"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := NewTask(tt.title, "", tt.status, tt.priority, tt.owner)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrValidation)

			var ve *ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.field, ve.Field)
			assert.Equal(t, KindValidation, KindOf(err))
		})
	}
}

func TestTask_HasPerformer(t *testing.T) {
	t.Parallel()

	task := &Task{ID: 1, ResponsibleUserID: 1}
	assert.False(t, task.HasPerformer(2), "unloaded performers never match")

	task.Performers = []*User{{ID: 2}, {ID: 3}}
	assert.True(t, task.PerformersLoaded())
	assert.True(t, task.HasPerformer(3))
	assert.False(t, task.HasPerformer(4))
	assert.Equal(t, []int64{2, 3}, task.PerformerIDs())

	task.Performers = []*User{}
	assert.True(t, task.PerformersLoaded(), "an empty joined set is still loaded")
}

func TestTaskUpdate(t *testing.T) {
	t.Parallel()

	assert.True(t, TaskUpdate{}.IsEmpty())
	assert.True(t, TaskUpdate{PerformerIDs: []int64{}}.IsEmpty())
	assert.False(t, TaskUpdate{Description: "d"}.IsEmpty())

	assert.NoError(t, TaskUpdate{Status: TaskStatusCompleted}.Validate())
	assert.ErrorIs(t, TaskUpdate{Status: "nope"}.Validate(), ErrValidation)
	assert.ErrorIs(t, TaskUpdate{Priority: "nope"}.Validate(), ErrValidation)
	assert.ErrorIs(t, TaskUpdate{PerformerIDs: []int64{1, 0}}.Validate(), ErrValidation)
}

func TestTitleLengthCountsCharacters(t *testing.T) {
	t.Parallel()

	cyrillic := strings.Repeat("з", MaxTitleLength)
	require.Greater(t, len(cyrillic), MaxTitleLength)

	task, err := NewTask(cyrillic, "", "", "", 1)
	require.NoError(t, err)
	assert.Equal(t, cyrillic, task.Title)
	assert.NoError(t, TaskUpdate{Title: cyrillic}.Validate())

	tooLong := cyrillic + "з"
	_, err = NewTask(tooLong, "", "", "", 1)
	assert.ErrorIs(t, err, ErrValidation)
	assert.ErrorIs(t, TaskUpdate{Title: tooLong}.Validate(), ErrValidation)
}

func TestTaskFilter_Normalize(t *testing.T) {
	t.Parallel()

	f, err := TaskFilter{}.Normalize()
	require.NoError(t, err)
	assert.Zero(t, f.Limit, "no limit means every task")

	f, err = TaskFilter{Limit: 20, Offset: 40}.Normalize()
	require.NoError(t, err)
	assert.Equal(t, 20, f.Limit)
	assert.Equal(t, 40, f.Offset)

	f, err = TaskFilter{Limit: MaxTaskListLimit * 2}.Normalize()
	require.NoError(t, err)
	assert.Equal(t, MaxTaskListLimit, f.Limit)

	_, err = TaskFilter{Status: "archived"}.Normalize()
	assert.ErrorIs(t, err, ErrValidation)

	_, err = TaskFilter{Offset: -1}.Normalize()
	assert.ErrorIs(t, err, ErrValidation)
}

func TestUniqueIDs(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []int64{3, 1, 2}, UniqueIDs([]int64{3, 1, 3, 0, 2, -4, 1}))
	assert.Empty(t, UniqueIDs(nil))
}
