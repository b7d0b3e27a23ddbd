// Package settings is a small cache-aside layer over durable key/value
// configuration. Values are fetched once and served from memory until
// someone writes or invalidates them, so hot paths like the login flow
// never pay a database read per request.
package settings

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"
)

// Setting keys used by the login subsystem
const (
	KeyTwoFactorEnabled        = "two_factor.enabled"
	KeyTwoFactorCodeLifetime   = "two_factor.code_lifetime"
	KeyTwoFactorResendCooldown = "two_factor.resend_cooldown"
)

type cacheEntry struct {
	value    string
	cachedAt time.Time
}

// SettingsService serves settings with cache-aside reads and
// write-through updates
type SettingsService struct {
	repo     SettingsRepository
	mu       sync.Mutex
	cache    map[string]cacheEntry
	ttl      time.Duration // zero means cache until invalidated
	defaults TwoFactorSettings
}

// SettingsServiceOption configures the settings service
type SettingsServiceOption func(*SettingsService)

// WithCacheTTL bounds how long a cached value is served without a re-read
func WithCacheTTL(ttl time.Duration) SettingsServiceOption {
	return func(s *SettingsService) {
		s.ttl = ttl
	}
}

// WithTwoFactorDefaults sets the values used when no stored setting exists
func WithTwoFactorDefaults(defaults TwoFactorSettings) SettingsServiceOption {
	return func(s *SettingsService) {
		s.defaults = defaults
	}
}

// NewSettingsService creates a new settings service
func NewSettingsService(repo SettingsRepository, opts ...SettingsServiceOption) *SettingsService {
	s := &SettingsService{
		repo:  repo,
		cache: make(map[string]cacheEntry),
		defaults: TwoFactorSettings{
			Enabled:      true,
			CodeLifetime: 5 * time.Minute,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the value for a key, reading through to the repository on a
// cache miss
func (s *SettingsService) Get(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	entry, ok := s.cache[key]
	s.mu.Unlock()

	if ok && (s.ttl == 0 || time.Since(entry.cachedAt) < s.ttl) {
		return entry.value, nil
	}

	value, err := s.repo.Get(ctx, key)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.cache[key] = cacheEntry{value: value, cachedAt: time.Now()}
	s.mu.Unlock()

	return value, nil
}

// Set writes a value through to the repository and refreshes the cache
func (s *SettingsService) Set(ctx context.Context, key string, value string) error {
	if err := s.repo.Set(ctx, key, value); err != nil {
		return err
	}

	s.mu.Lock()
	s.cache[key] = cacheEntry{value: value, cachedAt: time.Now()}
	s.mu.Unlock()

	return nil
}

// Invalidate drops a key from the cache so the next Get re-reads it
func (s *SettingsService) Invalidate(key string) {
	s.mu.Lock()
	delete(s.cache, key)
	s.mu.Unlock()
}

// TwoFactorSettings is the typed view of the two-factor login settings
type TwoFactorSettings struct {
	Enabled        bool
	CodeLifetime   time.Duration
	ResendCooldown time.Duration
}

// TwoFactorSettings returns the two-factor settings, falling back to the
// configured defaults for any key with no stored value.
func (s *SettingsService) TwoFactorSettings(ctx context.Context) (TwoFactorSettings, error) {
	result := s.defaults

	if raw, err := s.Get(ctx, KeyTwoFactorEnabled); err == nil {
		enabled, err := strconv.ParseBool(raw)
		if err != nil {
			return TwoFactorSettings{}, fmt.Errorf("invalid %s value %q: %w", KeyTwoFactorEnabled, raw, err)
		}
		result.Enabled = enabled
	} else if err != ErrSettingNotFound {
		return TwoFactorSettings{}, err
	}

	if raw, err := s.Get(ctx, KeyTwoFactorCodeLifetime); err == nil {
		lifetime, err := time.ParseDuration(raw)
		if err != nil {
			return TwoFactorSettings{}, fmt.Errorf("invalid %s value %q: %w", KeyTwoFactorCodeLifetime, raw, err)
		}
		result.CodeLifetime = lifetime
	} else if err != ErrSettingNotFound {
		return TwoFactorSettings{}, err
	}

	if raw, err := s.Get(ctx, KeyTwoFactorResendCooldown); err == nil {
		cooldown, err := time.ParseDuration(raw)
		if err != nil {
			return TwoFactorSettings{}, fmt.Errorf("invalid %s value %q: %w", KeyTwoFactorResendCooldown, raw, err)
		}
		result.ResendCooldown = cooldown
	} else if err != ErrSettingNotFound {
		return TwoFactorSettings{}, err
	}

	return result, nil
}
