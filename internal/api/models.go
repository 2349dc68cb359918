package api

import (
	"encoding/json"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/phrazzld/tracker-api/internal/domain"
)

// RegisterRequest defines the payload for the user registration endpoint.
type RegisterRequest struct {
	Name     string `json:"name"     validate:"required,max=100"`
	Surname  string `json:"surname"  validate:"required,max=100"`
	Email    string `json:"email"    validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Role     string `json:"role"     validate:"omitempty,oneof=project_manager developer qa"`
}

func (req *RegisterRequest) decodeForm(form url.Values) error {
	req.Name = form.Get("name")
	req.Surname = form.Get("surname")
	req.Email = form.Get("email")
	req.Password = form.Get("password")
	req.Role = form.Get("role")
	return nil
}

// LoginRequest defines the payload for the user login endpoint.
type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (req *LoginRequest) decodeForm(form url.Values) error {
	req.Email = form.Get("email")
	req.Password = form.Get("password")
	return nil
}

// LoginResponse is returned by a successful login. The same token is set as
// the session cookie.
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresAt   string `json:"expires_at"`
}

// CreateTaskRequest defines the payload for POST /tasks.
type CreateTaskRequest struct {
	Title             string `json:"title"               validate:"required,max=255"`
	Description       string `json:"description"`
	Status            string `json:"status"              validate:"omitempty,oneof=todo in_progress completed"`
	Priority          string `json:"priority"            validate:"omitempty,oneof=low medium high"`
	ResponsibleUserID int64  `json:"responsible_user_id" validate:"required,gt=0"`
	Performers        IDList `json:"performers"`
}

func (req *CreateTaskRequest) decodeForm(form url.Values) error {
	var err error
	req.Title = form.Get("title")
	req.Description = form.Get("description")
	req.Status = form.Get("status")
	req.Priority = form.Get("priority")
	if req.ResponsibleUserID, err = parseFormID(form, "responsible_user_id"); err != nil {
		return err
	}
	req.Performers, err = ParseIDList(form["performers"])
	return err
}

// UpdateTaskRequest defines the payload for PUT /tasks/{id}. Empty fields are
// left unchanged; performers replace the stored set when non-empty.
type UpdateTaskRequest struct {
	Title             string `json:"title"               validate:"max=255"`
	Description       string `json:"description"`
	Status            string `json:"status"              validate:"omitempty,oneof=todo in_progress completed"`
	Priority          string `json:"priority"            validate:"omitempty,oneof=low medium high"`
	ResponsibleUserID int64  `json:"responsible_user_id" validate:"gte=0"`
	Performers        IDList `json:"performers"`
}

func (req *UpdateTaskRequest) decodeForm(form url.Values) error {
	var err error
	req.Title = form.Get("title")
	req.Description = form.Get("description")
	req.Status = form.Get("status")
	req.Priority = form.Get("priority")
	if req.ResponsibleUserID, err = parseFormID(form, "responsible_user_id"); err != nil {
		return err
	}
	req.Performers, err = ParseIDList(form["performers"])
	return err
}

func (req *UpdateTaskRequest) toDomain() domain.TaskUpdate {
	return domain.TaskUpdate{
		Title:             strings.TrimSpace(req.Title),
		Description:       req.Description,
		Status:            domain.TaskStatus(req.Status),
		Priority:          domain.TaskPriority(req.Priority),
		ResponsibleUserID: req.ResponsibleUserID,
		PerformerIDs:      req.Performers,
	}
}

// UpdateStatusRequest defines the payload for PUT /tasks/{id}/status.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=todo in_progress completed"`
}

func (req *UpdateStatusRequest) decodeForm(form url.Values) error {
	req.Status = form.Get("status")
	return nil
}

// IDList is a list of user ids. It decodes from a JSON array of numbers or
// numeric strings, or from a single comma-separated string; every string may
// itself hold several comma-separated ids.
type IDList []int64

// UnmarshalJSON implements json.Unmarshaler.
func (l *IDList) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*l = nil
		return nil
	}

	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return invalidPerformers()
		}
		ids, err := ParseIDList([]string{s})
		if err != nil {
			return err
		}
		*l = ids
		return nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return invalidPerformers()
	}
	values := make([]string, 0, len(items))
	for _, item := range items {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			values = append(values, s)
			continue
		}
		var n json.Number
		if err := json.Unmarshal(item, &n); err != nil {
			return invalidPerformers()
		}
		values = append(values, n.String())
	}
	ids, err := ParseIDList(values)
	if err != nil {
		return err
	}
	*l = ids
	return nil
}

// ParseIDList parses form or query values holding ids, each value possibly a
// comma-separated list. Blank entries are skipped.
func ParseIDList(values []string) (IDList, error) {
	var ids IDList
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil || id <= 0 {
				return nil, invalidPerformers()
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func invalidPerformers() error {
	return domain.NewValidationError("performers", "must be a list of user ids")
}

func parseFormID(form url.Values, field string) (int64, error) {
	raw := strings.TrimSpace(form.Get(field))
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, domain.NewValidationError(field, "must be an integer")
	}
	return id, nil
}

// UserResponse is the public view of a user.
type UserResponse struct {
	ID      int64   `json:"id"`
	Name    string  `json:"name"`
	Surname string  `json:"surname"`
	Email   string  `json:"email"`
	Role    *string `json:"role"`
}

// TaskResponse is the public view of a task with its responsible user and
// performers embedded.
type TaskResponse struct {
	ID              int64          `json:"id"`
	Title           string         `json:"title"`
	Description     string         `json:"description"`
	Status          string         `json:"status"`
	Priority        string         `json:"priority"`
	ResponsibleUser *UserResponse  `json:"responsible_user"`
	Performers      []UserResponse `json:"performers"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// MessageResponse carries a short confirmation.
type MessageResponse struct {
	Message string `json:"message"`
}

func userToResponse(u *domain.User) *UserResponse {
	if u == nil {
		return nil
	}
	resp := &UserResponse{
		ID:      u.ID,
		Name:    u.Name,
		Surname: u.Surname,
		Email:   u.Email,
	}
	if u.Role != nil {
		role := string(*u.Role)
		resp.Role = &role
	}
	return resp
}

func taskToResponse(t *domain.Task) TaskResponse {
	resp := TaskResponse{
		ID:              t.ID,
		Title:           t.Title,
		Description:     t.Description,
		Status:          string(t.Status),
		Priority:        string(t.Priority),
		ResponsibleUser: userToResponse(t.Responsible),
		Performers:      make([]UserResponse, 0, len(t.Performers)),
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}
	for _, p := range t.Performers {
		if p != nil {
			resp.Performers = append(resp.Performers, *userToResponse(p))
		}
	}
	return resp
}

func tasksToResponse(tasks []*domain.Task) []TaskResponse {
	out := make([]TaskResponse, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, taskToResponse(t))
	}
	return out
}

func formatExpiry(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

