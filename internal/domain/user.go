package domain

import (
	"net/mail"
	"strings"
	"time"
)

// Role is the job function of a user. It decides which task operations the
// user may perform.
type Role string

// Possible role values
const (
	RoleProjectManager Role = "project_manager"
	RoleDeveloper      Role = "developer"
	RoleQA             Role = "qa"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleProjectManager, RoleDeveloper, RoleQA:
		return true
	}
	return false
}

// Password length limits. bcrypt ignores input past 72 bytes.
const (
	MinPasswordLength = 8
	MaxPasswordLength = 72
)

// User is a registered account. Role is nil for users created without one;
// such users pass only the authenticated tier.
type User struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Surname        string    `json:"surname"`
	Email          string    `json:"email"`
	HashedPassword string    `json:"-"`
	Role           *Role     `json:"role"`
	CreatedAt      time.Time `json:"created_at"`
}

// NewUser builds an unsaved user from registration input. The caller hashes
// the password and sets HashedPassword before persisting.
func NewUser(name, surname, email string, role *Role) (*User, error) {
	u := &User{
		Name:    strings.TrimSpace(name),
		Surname: strings.TrimSpace(surname),
		Email:   strings.ToLower(strings.TrimSpace(email)),
		Role:    role,
	}
	if err := u.Validate(); err != nil {
		return nil, err
	}
	return u, nil
}

// Validate checks profile fields. It does not look at the password hash.
func (u *User) Validate() error {
	if u.Name == "" {
		return NewValidationError("name", "cannot be empty")
	}
	if u.Surname == "" {
		return NewValidationError("surname", "cannot be empty")
	}
	if u.Email == "" {
		return NewValidationError("email", "cannot be empty")
	}
	if _, err := mail.ParseAddress(u.Email); err != nil {
		return NewValidationError("email", "malformed address")
	}
	if u.Role != nil && !u.Role.Valid() {
		return NewValidationError("role", "unknown role")
	}
	return nil
}

// HasRole reports whether the user holds role r.
func (u *User) HasRole(r Role) bool {
	return u.Role != nil && *u.Role == r
}

// IsProjectManager is shorthand for HasRole(RoleProjectManager).
func (u *User) IsProjectManager() bool {
	return u.HasRole(RoleProjectManager)
}

// ValidatePassword checks a plaintext password against the length limits.
func ValidatePassword(plain string) error {
	switch n := len(plain); {
	case n == 0:
		return NewValidationError("password", "cannot be empty")
	case n < MinPasswordLength:
		return NewValidationError("password", "too short")
	case n > MaxPasswordLength:
		return NewValidationError("password", "too long")
	}
	return nil
}
