package config

import "time"

// JwtConfig holds JWT signing and cookie settings for authenticated sessions
type JwtConfig struct {
	Secret             string        `env:"JWT_SECRET" env-default:"very-secure-jwt-secret"`
	Issuer             string        `env:"JWT_ISSUER" env-default:"welfare-idm"`
	Audience           string        `env:"JWT_AUDIENCE" env-default:"welfare-idm"`
	AccessTokenExpiry  time.Duration `env:"ACCESS_TOKEN_EXPIRY" env-default:"15m"`
	RefreshTokenExpiry time.Duration `env:"REFRESH_TOKEN_EXPIRY" env-default:"24h"`
	CookieHttpOnly     bool          `env:"COOKIE_HTTP_ONLY" env-default:"true"`
	CookieSecure       bool          `env:"COOKIE_SECURE" env-default:"true"`
}

// NewJwtConfigFromEnv loads JwtConfig from standard environment variables
func NewJwtConfigFromEnv() JwtConfig {
	return JwtConfig{
		Secret:             GetEnvOrDefault("JWT_SECRET", "very-secure-jwt-secret"),
		Issuer:             GetEnvOrDefault("JWT_ISSUER", "welfare-idm"),
		Audience:           GetEnvOrDefault("JWT_AUDIENCE", "welfare-idm"),
		AccessTokenExpiry:  GetEnvDuration("ACCESS_TOKEN_EXPIRY", 15*time.Minute),
		RefreshTokenExpiry: GetEnvDuration("REFRESH_TOKEN_EXPIRY", 24*time.Hour),
		CookieHttpOnly:     GetEnvBool("COOKIE_HTTP_ONLY", true),
		CookieSecure:       GetEnvBool("COOKIE_SECURE", true),
	}
}
