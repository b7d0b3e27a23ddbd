package sessions

import (
	"context"
	"errors"
)

// ErrSessionNotFound is returned when no session exists for a JTI
var ErrSessionNotFound = errors.New("session not found")

// Repository defines the interface for session data access
type Repository interface {
	// Create a new session
	Create(ctx context.Context, req CreateSessionRequest) (*Session, error)

	// Get a session by JTI (JWT ID)
	GetByJTI(ctx context.Context, jti string) (*Session, error)

	// Revoke a session by JTI
	RevokeByJTI(ctx context.Context, jti string) error

	// Update last activity timestamp
	UpdateActivity(ctx context.Context, jti string) error

	// Check if a session is valid (not revoked and not expired); the
	// idle-timeout check lives in the service
	IsValid(ctx context.Context, jti string) (bool, error)

	// Cleanup expired sessions (for maintenance)
	DeleteExpired(ctx context.Context) error
}
