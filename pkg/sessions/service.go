package sessions

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DefaultIdleTimeout is how long a session may sit without activity
// before it stops being valid.
const DefaultIdleTimeout = 30 * time.Minute

// Service provides session management business logic
type Service struct {
	repo        Repository
	idleTimeout time.Duration
}

// ServiceOption configures the session service
type ServiceOption func(*Service)

// WithIdleTimeout sets the inactivity window; zero disables the idle check
func WithIdleTimeout(timeout time.Duration) ServiceOption {
	return func(s *Service) {
		s.idleTimeout = timeout
	}
}

// NewService creates a new session service
func NewService(repo Repository, opts ...ServiceOption) *Service {
	s := &Service{
		repo:        repo,
		idleTimeout: DefaultIdleTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateSession creates a new session record
func (s *Service) CreateSession(ctx context.Context, req CreateSessionRequest) (*Session, error) {
	if req.UserID == uuid.Nil {
		return nil, fmt.Errorf("user_id is required")
	}
	if req.JTI == "" {
		return nil, fmt.Errorf("jti is required")
	}
	if req.ExpiresAt.Before(time.Now()) {
		return nil, fmt.Errorf("expires_at must be in the future")
	}

	return s.repo.Create(ctx, req)
}

// GetSessionByJTI retrieves a session by JTI
func (s *Service) GetSessionByJTI(ctx context.Context, jti string) (*Session, error) {
	return s.repo.GetByJTI(ctx, jti)
}

// RevokeSessionByJTI revokes a session by JTI
func (s *Service) RevokeSessionByJTI(ctx context.Context, jti string) error {
	return s.repo.RevokeByJTI(ctx, jti)
}

// UpdateSessionActivity re-arms the idle timeout for a session
func (s *Service) UpdateSessionActivity(ctx context.Context, jti string) error {
	return s.repo.UpdateActivity(ctx, jti)
}

// IsSessionValid reports whether a session is live: not revoked, not past
// its expiry and, when an idle timeout is configured, recently active.
func (s *Service) IsSessionValid(ctx context.Context, jti string) (bool, error) {
	valid, err := s.repo.IsValid(ctx, jti)
	if err != nil || !valid {
		return false, err
	}

	if s.idleTimeout > 0 {
		session, err := s.repo.GetByJTI(ctx, jti)
		if err != nil {
			return false, err
		}
		if time.Since(session.LastActivity) > s.idleTimeout {
			return false, nil
		}
	}

	return true, nil
}

// CleanupExpiredSessions removes expired sessions (maintenance task)
func (s *Service) CleanupExpiredSessions(ctx context.Context) error {
	return s.repo.DeleteExpired(ctx)
}
