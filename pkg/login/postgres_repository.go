package login

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresLoginRepository implements LoginRepository using PostgreSQL
type PostgresLoginRepository struct {
	db *pgxpool.Pool
}

// NewPostgresLoginRepository creates a new PostgreSQL-based login repository
func NewPostgresLoginRepository(db *pgxpool.Pool) *PostgresLoginRepository {
	return &PostgresLoginRepository{db: db}
}

// FindUserByEmail looks a user up by their registered email address
func (r *PostgresLoginRepository) FindUserByEmail(ctx context.Context, email string) (User, error) {
	query := `
		SELECT u.id, u.email, u.name, u.password_hash, r.name, u.two_factor_enabled, u.last_login_at, u.created_at
		FROM users u
		JOIN roles r ON r.id = u.role_id
		WHERE lower(u.email) = lower($1)
		AND u.deleted_at IS NULL
	`

	var user User
	err := r.db.QueryRow(ctx, query, email).Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.PasswordHash,
		&user.Role,
		&user.TwoFactorEnabled,
		&user.LastLoginAt,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, fmt.Errorf("failed to find user by email: %w", err)
	}

	return user, nil
}

// GetUserByID fetches a user by id
func (r *PostgresLoginRepository) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	query := `
		SELECT u.id, u.email, u.name, u.password_hash, r.name, u.two_factor_enabled, u.last_login_at, u.created_at
		FROM users u
		JOIN roles r ON r.id = u.role_id
		WHERE u.id = $1
		AND u.deleted_at IS NULL
	`

	var user User
	err := r.db.QueryRow(ctx, query, id).Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.PasswordHash,
		&user.Role,
		&user.TwoFactorEnabled,
		&user.LastLoginAt,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, fmt.Errorf("failed to get user by id: %w", err)
	}

	return user, nil
}

// FindRoleByUserID resolves a user to their role name
func (r *PostgresLoginRepository) FindRoleByUserID(ctx context.Context, id uuid.UUID) (string, error) {
	query := `
		SELECT r.name
		FROM users u
		JOIN roles r ON r.id = u.role_id
		WHERE u.id = $1
		AND u.deleted_at IS NULL
	`

	var role string
	err := r.db.QueryRow(ctx, query, id).Scan(&role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrUserNotFound
		}
		return "", fmt.Errorf("failed to find role by user id: %w", err)
	}

	return role, nil
}

// RecordLogin stamps the user's last successful login
func (r *PostgresLoginRepository) RecordLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `UPDATE users SET last_login_at = $2 WHERE id = $1 AND deleted_at IS NULL`

	tag, err := r.db.Exec(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("failed to record login: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	return nil
}
