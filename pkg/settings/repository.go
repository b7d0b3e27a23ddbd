package settings

import (
	"context"
	"errors"
)

// ErrSettingNotFound is returned when no value exists for a key
var ErrSettingNotFound = errors.New("setting not found")

// SettingsRepository is the durable store behind the settings cache
type SettingsRepository interface {
	// Get returns the stored value for a key, or ErrSettingNotFound
	Get(ctx context.Context, key string) (string, error)

	// Set stores a value for a key, creating or replacing it
	Set(ctx context.Context, key string, value string) error
}
