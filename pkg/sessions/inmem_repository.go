package sessions

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryRepository implements Repository with an in-memory map.
// Intended for tests and local development.
type InMemoryRepository struct {
	mu       sync.Mutex
	sessions map[string]*Session // keyed by JTI
}

// NewInMemoryRepository creates a new in-memory session repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{sessions: make(map[string]*Session)}
}

// Create creates a new session record
func (r *InMemoryRepository) Create(ctx context.Context, req CreateSessionRequest) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	s := &Session{
		ID:           uuid.New(),
		UserID:       req.UserID,
		JTI:          req.JTI,
		IssuedAt:     now,
		ExpiresAt:    req.ExpiresAt,
		IPAddress:    req.IPAddress,
		UserAgent:    req.UserAgent,
		LastActivity: now,
		CreatedAt:    now,
	}
	r.sessions[req.JTI] = s

	out := *s
	return &out, nil
}

// GetByJTI retrieves a session by its JWT ID
func (r *InMemoryRepository) GetByJTI(ctx context.Context, jti string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[jti]
	if !ok {
		return nil, ErrSessionNotFound
	}

	out := *s
	return &out, nil
}

// RevokeByJTI revokes a session by its JWT ID
func (r *InMemoryRepository) RevokeByJTI(ctx context.Context, jti string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[jti]
	if !ok || s.RevokedAt != nil {
		return ErrSessionNotFound
	}

	now := time.Now().UTC()
	s.RevokedAt = &now
	return nil
}

// UpdateActivity updates the last activity timestamp for a session
func (r *InMemoryRepository) UpdateActivity(ctx context.Context, jti string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[jti]
	if !ok || s.RevokedAt != nil {
		return ErrSessionNotFound
	}

	s.LastActivity = time.Now().UTC()
	return nil
}

// IsValid checks whether a session exists, is not revoked and has not expired
func (r *InMemoryRepository) IsValid(ctx context.Context, jti string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[jti]
	if !ok {
		return false, nil
	}

	return s.RevokedAt == nil && s.ExpiresAt.After(time.Now().UTC()), nil
}

// DeleteExpired removes sessions past their expiry
func (r *InMemoryRepository) DeleteExpired(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	for jti, s := range r.sessions {
		if s.ExpiresAt.Before(now) {
			delete(r.sessions, jti)
		}
	}
	return nil
}
