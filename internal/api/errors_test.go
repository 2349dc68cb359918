package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/phrazzld/tracker-api/internal/domain"
	"github.com/phrazzld/tracker-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapErrorToStatusCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"missing token", domain.ErrTokenMissing, http.StatusUnauthorized, "Token not found"},
		{"expired token", domain.ErrTokenExpired, http.StatusUnauthorized, "Token expired"},
		{"bad credentials", domain.ErrInvalidCredentials, http.StatusUnauthorized, "Email or password incorrect"},
		{"no access", domain.ErrNoAccessRights, http.StatusForbidden, "You don't have access rights"},
		{"task not found", fmt.Errorf("failed to get task: %w", store.ErrTaskNotFound), http.StatusNotFound, "Task not found"},
		{"user not found", domain.ErrUserNotFound, http.StatusNotFound, "User not exists"},
		{"email taken", fmt.Errorf("failed to register user: %w", store.ErrEmailExists), http.StatusConflict, "User already exists"},
		{"title taken", store.ErrTitleExists, http.StatusConflict, "Task with this title already exists"},
		{"field validation", domain.NewValidationError("title", "cannot be empty"), http.StatusBadRequest, "invalid title: cannot be empty"},
		{"persistence", domain.ErrTaskUpdateFailed, http.StatusBadRequest, "Task was not updated"},
		{"internal sentinel", domain.ErrPerformersNotLoaded, http.StatusInternalServerError, "An unexpected error occurred"},
		{"unclassified", errors.New("pq: connection reset by peer"), http.StatusInternalServerError, "An unexpected error occurred"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.status, MapErrorToStatusCode(tc.err))
			assert.Equal(t, tc.message, GetSafeErrorMessage(tc.err))
		})
	}
}

func TestGetSafeErrorMessage_NeverLeaksCause(t *testing.T) {
	t.Parallel()
	err := fmt.Errorf("%w: %w", domain.ErrTaskCreationFailed,
		errors.New(`insert into tasks failed: password=hunter2 at postgres://admin:secret@db`))
	assert.Equal(t, "Failed to create task", GetSafeErrorMessage(err))
}

func TestSanitizeValidationError(t *testing.T) {
	t.Parallel()

	err := decodeValidate(&RegisterRequest{Name: "A", Surname: "B", Email: "not-an-email", Password: "longenough"})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, MapErrorToStatusCode(err))
	assert.Equal(t, "Invalid Email: invalid email format", GetSafeErrorMessage(err))

	err = decodeValidate(&UpdateStatusRequest{Status: "archived"})
	assert.Equal(t, "Invalid Status: invalid value", GetSafeErrorMessage(err))
}
