package auth

import (
	"context"
	"time"
)

// TokenService issues and validates signed session tokens.
type TokenService interface {
	// IssueToken creates a signed token for subjectID that expires ttl after
	// issue. A ttl of zero yields a token that is already expired.
	IssueToken(ctx context.Context, subjectID int64, ttl time.Duration) (string, error)

	// GenerateToken issues a token with the configured default lifetime.
	GenerateToken(ctx context.Context, subjectID int64) (string, error)

	// ValidateToken verifies signature, algorithm and expiry and returns the
	// claims. Errors are domain.ErrTokenMissing, domain.ErrTokenExpired or
	// domain.ErrInvalidToken.
	ValidateToken(ctx context.Context, token string) (*Claims, error)

	// Lifetime returns the configured default token lifetime.
	Lifetime() time.Duration
}

// Claims represents the validated contents of a session token.
type Claims struct {
	// Subject is the id of the user the token was issued for.
	Subject   int64
	IssuedAt  time.Time
	ExpiresAt time.Time
	ID        string
}
