package settings

import (
	"context"
	"sync"
)

// InMemorySettingsRepository implements SettingsRepository with a map.
// Intended for tests and local development.
type InMemorySettingsRepository struct {
	mu     sync.Mutex
	values map[string]string
}

// NewInMemorySettingsRepository creates a new in-memory settings repository
func NewInMemorySettingsRepository() *InMemorySettingsRepository {
	return &InMemorySettingsRepository{values: make(map[string]string)}
}

// Get returns the stored value for a key
func (r *InMemorySettingsRepository) Get(ctx context.Context, key string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	value, ok := r.values[key]
	if !ok {
		return "", ErrSettingNotFound
	}
	return value, nil
}

// Set stores a value for a key
func (r *InMemorySettingsRepository) Set(ctx context.Context, key string, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values[key] = value
	return nil
}
