package config

import "time"

// TwoFactorConfig controls the OTP-gated login flow.
//
// CodeLifetime and ResendCooldown are read from configuration rather than
// hard-coded so deployments can tune them. A ResendCooldown of zero disables
// resend throttling.
type TwoFactorConfig struct {
	Enabled        bool          `env:"TWOFA_ENABLED" env-default:"true"`
	CodeLength     int           `env:"TWOFA_CODE_LENGTH" env-default:"6"`
	CodeLifetime   time.Duration `env:"TWOFA_CODE_LIFETIME" env-default:"5m"`
	ResendCooldown time.Duration `env:"TWOFA_RESEND_COOLDOWN" env-default:"0s"`
}

// DefaultTwoFactorConfig returns a TwoFactorConfig with sensible defaults
func DefaultTwoFactorConfig() TwoFactorConfig {
	return TwoFactorConfig{
		Enabled:        true,
		CodeLength:     6,
		CodeLifetime:   5 * time.Minute,
		ResendCooldown: 0,
	}
}

// NewTwoFactorConfigFromEnv loads TwoFactorConfig from standard environment variables
func NewTwoFactorConfigFromEnv() TwoFactorConfig {
	return TwoFactorConfig{
		Enabled:        GetEnvBool("TWOFA_ENABLED", true),
		CodeLength:     GetEnvInt("TWOFA_CODE_LENGTH", 6),
		CodeLifetime:   GetEnvDuration("TWOFA_CODE_LIFETIME", 5*time.Minute),
		ResendCooldown: GetEnvDuration("TWOFA_RESEND_COOLDOWN", 0),
	}
}
