package pendinglogin

import (
	"context"
	"sync"
	"time"
)

// DefaultTTL bounds how long a login may sit between the credential and
// code steps before it has to start over.
const DefaultTTL = 15 * time.Minute

// InMemoryStore implements Store with an in-process map. Good for a single
// server instance; a multi-instance deployment wants a shared store behind
// the same interface.
type InMemoryStore struct {
	mu      sync.Mutex
	entries map[string]PendingLogin
	ttl     time.Duration
}

// InMemoryStoreOption configures the in-memory store
type InMemoryStoreOption func(*InMemoryStore)

// WithTTL sets how long pending logins stay alive
func WithTTL(ttl time.Duration) InMemoryStoreOption {
	return func(s *InMemoryStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// NewInMemoryStore creates a new in-memory pending login store
func NewInMemoryStore(opts ...InMemoryStoreOption) *InMemoryStore {
	s := &InMemoryStore{
		entries: make(map[string]PendingLogin),
		ttl:     DefaultTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Begin records a pending login under the given key
func (s *InMemoryStore) Begin(ctx context.Context, key string, login PendingLogin) error {
	now := time.Now().UTC()
	if login.CreatedAt.IsZero() {
		login.CreatedAt = now
	}
	if login.ExpiresAt.IsZero() {
		login.ExpiresAt = login.CreatedAt.Add(s.ttl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = login
	return nil
}

// Get returns the pending login for a key
func (s *InMemoryStore) Get(ctx context.Context, key string) (PendingLogin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	login, ok := s.entries[key]
	if !ok {
		return PendingLogin{}, ErrNoPendingLogin
	}
	if time.Now().UTC().After(login.ExpiresAt) {
		delete(s.entries, key)
		return PendingLogin{}, ErrNoPendingLogin
	}

	return login, nil
}

// Clear removes the pending login for a key
func (s *InMemoryStore) Clear(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// Cleanup removes expired entries and returns how many were dropped
func (s *InMemoryStore) Cleanup() int {
	now := time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int
	for key, login := range s.entries {
		if now.After(login.ExpiresAt) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}
