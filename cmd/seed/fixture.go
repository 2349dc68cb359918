package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/phrazzld/tracker-api/internal/domain"
	"github.com/phrazzld/tracker-api/internal/service/auth"
	"github.com/phrazzld/tracker-api/internal/store"
	"gopkg.in/yaml.v3"
)

// fixture is the YAML document the seed command loads.
type fixture struct {
	Users []userFixture `yaml:"users"`
	Tasks []taskFixture `yaml:"tasks"`
}

type userFixture struct {
	Name     string `yaml:"name"`
	Surname  string `yaml:"surname"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	Role     string `yaml:"role"`
}

func (u userFixture) toDomain() (*domain.User, error) {
	var role *domain.Role
	if u.Role != "" {
		r := domain.Role(u.Role)
		role = &r
	}
	return domain.NewUser(u.Name, u.Surname, u.Email, role)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// taskFixture refers to users by email.
type taskFixture struct {
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Status      string   `yaml:"status"`
	Priority    string   `yaml:"priority"`
	Responsible string   `yaml:"responsible"`
	Performers  []string `yaml:"performers"`
}

// parseFixture decodes and checks a fixture. Unknown keys are rejected.
func parseFixture(r io.Reader) (*fixture, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f fixture
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return &f, nil
		}
		return nil, fmt.Errorf("failed to parse fixture: %w", err)
	}

	emails := make(map[string]struct{}, len(f.Users))
	for i, u := range f.Users {
		user, err := u.toDomain()
		if err != nil {
			return nil, fmt.Errorf("user %d: %w", i+1, err)
		}
		if err := domain.ValidatePassword(u.Password); err != nil {
			return nil, fmt.Errorf("user %d: %w", i+1, err)
		}
		emails[user.Email] = struct{}{}
	}
	for i, t := range f.Tasks {
		if t.Title == "" || t.Responsible == "" {
			return nil, fmt.Errorf("task %d: title and responsible are required", i+1)
		}
		for _, email := range append([]string{t.Responsible}, t.Performers...) {
			if _, ok := emails[normalizeEmail(email)]; !ok {
				return nil, fmt.Errorf("task %d: unknown user %q", i+1, email)
			}
		}
	}
	return &f, nil
}

// seeder writes a fixture through the stores.
type seeder struct {
	hasher    auth.PasswordHasher
	userStore store.UserStore
	taskStore store.TaskStore
	logger    *slog.Logger
}

func (s *seeder) seed(ctx context.Context, f *fixture) error {
	ids := make(map[string]int64, len(f.Users))

	for _, u := range f.Users {
		user, err := u.toDomain()
		if err != nil {
			return err
		}
		if user.HashedPassword, err = s.hasher.Hash(u.Password); err != nil {
			return fmt.Errorf("failed to hash password for %s: %w", user.Email, err)
		}

		err = s.userStore.Create(ctx, user)
		switch {
		case err == nil:
			s.logger.Info("user created", "user_id", user.ID)
		case store.IsDuplicateError(err):
			existing, getErr := s.userStore.GetByEmail(ctx, user.Email)
			if getErr != nil {
				return fmt.Errorf("failed to load existing user: %w", getErr)
			}
			user = existing
			s.logger.Info("user exists, skipped", "user_id", user.ID)
		default:
			return fmt.Errorf("failed to create user: %w", err)
		}
		ids[user.Email] = user.ID
	}

	for _, t := range f.Tasks {
		task, err := domain.NewTask(t.Title, t.Description,
			domain.TaskStatus(t.Status), domain.TaskPriority(t.Priority), ids[normalizeEmail(t.Responsible)])
		if err != nil {
			return fmt.Errorf("task %q: %w", t.Title, err)
		}
		performers := make([]int64, 0, len(t.Performers))
		for _, email := range t.Performers {
			performers = append(performers, ids[normalizeEmail(email)])
		}

		created, err := s.taskStore.Create(ctx, task, performers)
		switch {
		case err == nil:
			s.logger.Info("task created", "task_id", created.ID)
		case store.IsDuplicateError(err):
			s.logger.Info("task exists, skipped", "title", task.Title)
		default:
			return fmt.Errorf("failed to create task %q: %w", task.Title, err)
		}
	}
	return nil
}
