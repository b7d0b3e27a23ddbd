package config

import "time"

// SessionConfig contains browser-session and idle-timeout settings.
//
// PendingTTL bounds how long a pending login (credentials verified, second
// factor outstanding) survives before the user has to start over. It should
// match the host session timeout, not outlive it.
type SessionConfig struct {
	IdleTimeout time.Duration `env:"SESSION_IDLE_TIMEOUT" env-default:"30m"`
	PendingTTL  time.Duration `env:"SESSION_PENDING_TTL" env-default:"15m"`
	CookieName  string        `env:"SESSION_COOKIE_NAME" env-default:"welfare_session"`
}

// DefaultSessionConfig returns a SessionConfig with sensible defaults
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		IdleTimeout: 30 * time.Minute,
		PendingTTL:  15 * time.Minute,
		CookieName:  "welfare_session",
	}
}

// NewSessionConfigFromEnv loads SessionConfig from standard environment variables
func NewSessionConfigFromEnv() SessionConfig {
	return SessionConfig{
		IdleTimeout: GetEnvDuration("SESSION_IDLE_TIMEOUT", 30*time.Minute),
		PendingTTL:  GetEnvDuration("SESSION_PENDING_TTL", 15*time.Minute),
		CookieName:  GetEnvOrDefault("SESSION_COOKIE_NAME", "welfare_session"),
	}
}
