package mocks

import (
	"context"
	"time"

	"github.com/phrazzld/tracker-api/internal/service/auth"
)

// MockTokenService implements auth.TokenService for testing.
// Function fields take precedence over the fixed return values.
type MockTokenService struct {
	IssueTokenFn    func(ctx context.Context, subjectID int64, ttl time.Duration) (string, error)
	ValidateTokenFn func(ctx context.Context, token string) (*auth.Claims, error)

	Token           string
	TokenError      error
	Claims          *auth.Claims
	ValidationError error
	TokenLifetime   time.Duration
}

var _ auth.TokenService = (*MockTokenService)(nil)

// NewMockTokenService returns a mock that issues "mock-token" and validates
// every token as belonging to subjectID.
func NewMockTokenService(subjectID int64) *MockTokenService {
	now := time.Now()
	return &MockTokenService{
		Token:         "mock-token",
		TokenLifetime: 30 * time.Minute,
		Claims: &auth.Claims{
			Subject:   subjectID,
			IssuedAt:  now,
			ExpiresAt: now.Add(30 * time.Minute),
			ID:        "mock-jti",
		},
	}
}

// IssueToken implements auth.TokenService.
func (m *MockTokenService) IssueToken(ctx context.Context, subjectID int64, ttl time.Duration) (string, error) {
	if m.IssueTokenFn != nil {
		return m.IssueTokenFn(ctx, subjectID, ttl)
	}
	return m.Token, m.TokenError
}

// GenerateToken implements auth.TokenService.
func (m *MockTokenService) GenerateToken(ctx context.Context, subjectID int64) (string, error) {
	return m.IssueToken(ctx, subjectID, m.TokenLifetime)
}

// ValidateToken implements auth.TokenService.
func (m *MockTokenService) ValidateToken(ctx context.Context, token string) (*auth.Claims, error) {
	if m.ValidateTokenFn != nil {
		return m.ValidateTokenFn(ctx, token)
	}
	if m.ValidationError != nil {
		return nil, m.ValidationError
	}
	return m.Claims, nil
}

// Lifetime implements auth.TokenService.
func (m *MockTokenService) Lifetime() time.Duration {
	return m.TokenLifetime
}
