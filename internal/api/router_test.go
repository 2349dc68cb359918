package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/phrazzld/tracker-api/internal/api/middleware"
	"github.com/phrazzld/tracker-api/internal/api/shared"
	"github.com/phrazzld/tracker-api/internal/domain"
	"github.com/phrazzld/tracker-api/internal/service"
	"github.com/phrazzld/tracker-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const cookieName = "task_tracker_token"

type mockUserService struct{ mock.Mock }

func (m *mockUserService) Register(ctx context.Context, p service.RegisterParams) (*domain.User, error) {
	args := m.Called(ctx, p)
	user, _ := args.Get(0).(*domain.User)
	return user, args.Error(1)
}

func (m *mockUserService) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	args := m.Called(ctx, email, password)
	user, _ := args.Get(1).(*domain.User)
	return args.String(0), user, args.Error(2)
}

func (m *mockUserService) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*domain.User)
	return user, args.Error(1)
}

type mockTaskService struct{ mock.Mock }

func (m *mockTaskService) List(ctx context.Context, p *domain.User, f domain.TaskFilter) ([]*domain.Task, error) {
	args := m.Called(ctx, p, f)
	tasks, _ := args.Get(0).([]*domain.Task)
	return tasks, args.Error(1)
}

func (m *mockTaskService) Get(ctx context.Context, p *domain.User, id int64) (*domain.Task, error) {
	args := m.Called(ctx, p, id)
	task, _ := args.Get(0).(*domain.Task)
	return task, args.Error(1)
}

func (m *mockTaskService) Create(ctx context.Context, p *domain.User, params service.CreateTaskParams) (*domain.Task, error) {
	args := m.Called(ctx, p, params)
	task, _ := args.Get(0).(*domain.Task)
	return task, args.Error(1)
}

func (m *mockTaskService) Update(ctx context.Context, p *domain.User, id int64, u domain.TaskUpdate) (*domain.Task, error) {
	args := m.Called(ctx, p, id, u)
	task, _ := args.Get(0).(*domain.Task)
	return task, args.Error(1)
}

func (m *mockTaskService) UpdateStatus(ctx context.Context, p *domain.User, id int64, s domain.TaskStatus) (*domain.Task, error) {
	args := m.Called(ctx, p, id, s)
	task, _ := args.Get(0).(*domain.Task)
	return task, args.Error(1)
}

func (m *mockTaskService) Delete(ctx context.Context, p *domain.User, id int64) error {
	return m.Called(ctx, p, id).Error(0)
}

// tokenTable authenticates the tokens it knows.
type tokenTable map[string]*domain.User

func (tt tokenTable) RequireAuthenticated(_ context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, domain.ErrTokenMissing
	}
	if token == "expired" {
		return nil, domain.ErrTokenExpired
	}
	user, ok := tt[token]
	if !ok {
		return nil, domain.ErrNotAuthorized
	}
	return user, nil
}

type testServer struct {
	handler http.Handler
	users   *mockUserService
	tasks   *mockTaskService
	pm      *domain.User
	dev     *domain.User
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	pmRole, devRole := domain.RoleProjectManager, domain.RoleDeveloper
	ts := &testServer{
		users: &mockUserService{},
		tasks: &mockTaskService{},
		pm:    &domain.User{ID: 1, Name: "Pat", Surname: "Manager", Email: "pm@example.com", Role: &pmRole},
		dev:   &domain.User{ID: 2, Name: "Dev", Surname: "Eloper", Email: "dev@example.com", Role: &devRole},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ts.handler = NewRouter(RouterDeps{
		AuthHandler: NewAuthHandler(ts.users, SessionCookie{Name: cookieName, Lifetime: time.Hour}, logger),
		TaskHandler: NewTaskHandler(ts.tasks, logger),
		AuthMiddleware: middleware.NewAuthMiddleware(
			tokenTable{"pm-token": ts.pm, "dev-token": ts.dev}, cookieName, HandleAPIError),
		Logger: logger,
	})
	t.Cleanup(func() {
		ts.users.AssertExpectations(t)
		ts.tasks.AssertExpectations(t)
	})
	return ts
}

func (ts *testServer) do(req *http.Request, token string) *httptest.ResponseRecorder {
	if token != "" {
		req.AddCookie(&http.Cookie{Name: cookieName, Value: token})
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func formRequest(method, target string, form url.Values) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) shared.ErrorResponse {
	t.Helper()
	var resp shared.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func sampleTask(owner *domain.User) *domain.Task {
	return &domain.Task{
		ID:                5,
		Title:             "Write docs",
		Status:            domain.TaskStatusTodo,
		Priority:          domain.TaskPriorityMedium,
		ResponsibleUserID: owner.ID,
		Responsible:       owner,
		Performers:        []*domain.User{},
	}
}

func TestHealth(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/health", nil), "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(shared.TraceIDHeader))
}

func TestAuthRoutes(t *testing.T) {
	t.Parallel()

	t.Run("register from form", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer(t)
		role := domain.RoleQA
		ts.users.On("Register", mock.Anything, service.RegisterParams{
			Name: "Ada", Surname: "Lovelace", Email: "ada@example.com", Password: "correct horse", Role: &role,
		}).Return(&domain.User{ID: 7, Name: "Ada", Surname: "Lovelace", Email: "ada@example.com", Role: &role}, nil)

		rec := ts.do(formRequest(http.MethodPost, "/auth/register", url.Values{
			"name": {"Ada"}, "surname": {"Lovelace"}, "email": {"ada@example.com"},
			"password": {"correct horse"}, "role": {"qa"},
		}), "")

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.JSONEq(t,
			`{"id":7,"name":"Ada","surname":"Lovelace","email":"ada@example.com","role":"qa"}`,
			rec.Body.String())
	})

	t.Run("register duplicate", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer(t)
		ts.users.On("Register", mock.Anything, mock.Anything).Return(nil, store.ErrEmailExists)

		rec := ts.do(jsonRequest(http.MethodPost, "/auth/register",
			`{"name":"Ada","surname":"L","email":"ada@example.com","password":"correct horse"}`), "")
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "User already exists", decodeError(t, rec).Error)
	})

	t.Run("register invalid body", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer(t)

		rec := ts.do(jsonRequest(http.MethodPost, "/auth/register", `{"name":`), "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		resp := decodeError(t, rec)
		assert.Equal(t, "invalid body: malformed JSON", resp.Error)
		assert.NotEmpty(t, resp.TraceID)
	})

	t.Run("login sets the session cookie", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer(t)
		ts.users.On("Login", mock.Anything, "pm@example.com", "secret-pass").Return("signed.jwt.value", ts.pm, nil)

		rec := ts.do(jsonRequest(http.MethodPost, "/auth/login",
			`{"email":"pm@example.com","password":"secret-pass"}`), "")
		require.Equal(t, http.StatusOK, rec.Code)

		var resp LoginResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "signed.jwt.value", resp.AccessToken)

		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, cookieName, cookies[0].Name)
		assert.Equal(t, "signed.jwt.value", cookies[0].Value)
		assert.True(t, cookies[0].HttpOnly)
	})

	t.Run("login bad credentials", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer(t)
		ts.users.On("Login", mock.Anything, "pm@example.com", "nope-nope").Return("", nil, domain.ErrInvalidCredentials)

		rec := ts.do(formRequest(http.MethodPost, "/auth/login",
			url.Values{"email": {"pm@example.com"}, "password": {"nope-nope"}}), "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Email or password incorrect", decodeError(t, rec).Error)
		assert.Empty(t, rec.Result().Cookies())
	})

	t.Run("logout clears the cookie", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer(t)

		rec := ts.do(httptest.NewRequest(http.MethodPost, "/auth/logout", nil), "")
		require.Equal(t, http.StatusOK, rec.Code)
		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, cookieName, cookies[0].Name)
		assert.Less(t, cookies[0].MaxAge, 0)
	})

	t.Run("me", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer(t)

		rec := ts.do(httptest.NewRequest(http.MethodGet, "/auth/me", nil), "dev-token")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"email":"dev@example.com"`)

		req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
		req.Header.Set("Authorization", "Bearer pm-token")
		rec = ts.do(req, "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"email":"pm@example.com"`)
	})

	t.Run("me authentication failures", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer(t)

		cases := map[string]string{
			"":        "Token not found",
			"expired": "Token expired",
			"forged":  "User is not authorized",
		}
		for token, msg := range cases {
			rec := ts.do(httptest.NewRequest(http.MethodGet, "/auth/me", nil), token)
			assert.Equal(t, http.StatusUnauthorized, rec.Code, token)
			assert.Equal(t, msg, decodeError(t, rec).Error, token)
		}
	})
}

func TestTaskRoutes(t *testing.T) {
	t.Parallel()

	t.Run("list with filters", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer(t)
		ts.tasks.On("List", mock.Anything, ts.dev, domain.TaskFilter{
			Status: domain.TaskStatusTodo, ResponsibleUserID: 1, Limit: 10,
		}).Return([]*domain.Task{sampleTask(ts.pm)}, nil)

		rec := ts.do(httptest.NewRequest(http.MethodGet, "/tasks?status=todo&responsible_user_id=1&limit=10", nil), "dev-token")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp []TaskResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp, 1)
		assert.Equal(t, int64(1), resp[0].ResponsibleUser.ID)
	})

	t.Run("list rejects non-numeric filters", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer(t)
		rec := ts.do(httptest.NewRequest(http.MethodGet, "/tasks?limit=ten", nil), "dev-token")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("tasks require authentication", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer(t)
		rec := ts.do(httptest.NewRequest(http.MethodGet, "/tasks", nil), "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("create from form with comma-separated performers", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer(t)
		ts.tasks.On("Create", mock.Anything, ts.pm, service.CreateTaskParams{
			Title:             "Write docs",
			Description:       "All of them",
			Priority:          domain.TaskPriorityHigh,
			ResponsibleUserID: 2,
			PerformerIDs:      []int64{3, 4, 5},
		}).Return(sampleTask(ts.dev), nil)

		rec := ts.do(formRequest(http.MethodPost, "/tasks", url.Values{
			"title":               {"Write docs"},
			"description":         {"All of them"},
			"priority":            {"high"},
			"responsible_user_id": {"2"},
			"performers":          {"3,4", "5"},
		}), "pm-token")
		assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	})

	t.Run("create by non-PM is forbidden before validation", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer(t)
		rec := ts.do(jsonRequest(http.MethodPost, "/tasks", `{}`), "dev-token")
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "You don't have access rights", decodeError(t, rec).Error)
	})

	t.Run("create with missing title", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer(t)
		rec := ts.do(jsonRequest(http.MethodPost, "/tasks", `{"responsible_user_id": 2}`), "pm-token")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Invalid Title: required field", decodeError(t, rec).Error)
	})

	t.Run("get missing task", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer(t)
		ts.tasks.On("Get", mock.Anything, ts.dev, int64(99)).Return(nil, store.ErrTaskNotFound)

		rec := ts.do(httptest.NewRequest(http.MethodGet, "/tasks/99", nil), "dev-token")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "Task not found", decodeError(t, rec).Error)
	})

	t.Run("invalid path id", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer(t)
		rec := ts.do(httptest.NewRequest(http.MethodGet, "/tasks/abc", nil), "dev-token")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "invalid id: has invalid format", decodeError(t, rec).Error)
	})

	t.Run("update forwards a partial update", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer(t)
		ts.tasks.On("Update", mock.Anything, ts.dev, int64(5), domain.TaskUpdate{
			Title: "Renamed", PerformerIDs: []int64{3},
		}).Return(sampleTask(ts.dev), nil)

		rec := ts.do(jsonRequest(http.MethodPut, "/tasks/5", `{"title":"Renamed","performers":"3"}`), "dev-token")
		assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	})

	t.Run("status update denied", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer(t)
		ts.tasks.On("UpdateStatus", mock.Anything, ts.dev, int64(5), domain.TaskStatusCompleted).
			Return(nil, domain.ErrNoAccessRights)

		rec := ts.do(formRequest(http.MethodPut, "/tasks/5/status", url.Values{"status": {"completed"}}), "dev-token")
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("status update rejects unknown status", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer(t)
		rec := ts.do(jsonRequest(http.MethodPut, "/tasks/5/status", `{"status":"archived"}`), "dev-token")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("delete", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer(t)
		ts.tasks.On("Delete", mock.Anything, ts.pm, int64(5)).Return(nil)

		rec := ts.do(httptest.NewRequest(http.MethodDelete, "/tasks/5", nil), "pm-token")
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
