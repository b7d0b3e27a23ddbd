package config

import "fmt"

// DatabaseConfig holds PostgreSQL database configuration.
// This is shared across all services to avoid duplication.
type DatabaseConfig struct {
	Host     string `env:"WELFARE_PG_HOST" env-default:"localhost"`
	Port     uint16 `env:"WELFARE_PG_PORT" env-default:"5432"`
	Database string `env:"WELFARE_PG_DATABASE" env-default:"welfare_db"`
	User     string `env:"WELFARE_PG_USER" env-default:"welfare"`
	Password string `env:"WELFARE_PG_PASSWORD" env-default:"pwd"`
	Schema   string `env:"WELFARE_PG_SCHEMA" env-default:"public"`
}

// ToDatabaseURL converts the config to a PostgreSQL connection URL
func (d DatabaseConfig) ToDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable&search_path=%s,public",
		d.User, d.Password, d.Host, d.Port, d.Database, d.Schema)
}

// NewDatabaseConfigFromEnv creates a DatabaseConfig from environment variables
func NewDatabaseConfigFromEnv() DatabaseConfig {
	return DatabaseConfig{
		Host:     GetEnvOrDefault("WELFARE_PG_HOST", "localhost"),
		Port:     GetEnvUint16("WELFARE_PG_PORT", 5432),
		Database: GetEnvOrDefault("WELFARE_PG_DATABASE", "welfare_db"),
		User:     GetEnvOrDefault("WELFARE_PG_USER", "welfare"),
		Password: GetEnvOrDefault("WELFARE_PG_PASSWORD", "pwd"),
		Schema:   GetEnvOrDefault("WELFARE_PG_SCHEMA", "public"),
	}
}
