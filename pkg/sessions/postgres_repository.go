package sessions

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL-based session repository
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create creates a new session record
func (r *PostgresRepository) Create(ctx context.Context, req CreateSessionRequest) (*Session, error) {
	query := `
		INSERT INTO sessions (user_id, jti, issued_at, expires_at, ip_address, user_agent, last_activity, created_at)
		VALUES ($1, $2, NOW(), $3, $4, $5, NOW(), NOW())
		RETURNING id, user_id, jti, issued_at, expires_at, revoked_at, ip_address, user_agent, last_activity, created_at
	`

	var s Session
	err := r.db.QueryRow(ctx, query,
		req.UserID, req.JTI, req.ExpiresAt, req.IPAddress, req.UserAgent,
	).Scan(
		&s.ID,
		&s.UserID,
		&s.JTI,
		&s.IssuedAt,
		&s.ExpiresAt,
		&s.RevokedAt,
		&s.IPAddress,
		&s.UserAgent,
		&s.LastActivity,
		&s.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return &s, nil
}

// GetByJTI retrieves a session by its JWT ID
func (r *PostgresRepository) GetByJTI(ctx context.Context, jti string) (*Session, error) {
	query := `
		SELECT id, user_id, jti, issued_at, expires_at, revoked_at, ip_address, user_agent, last_activity, created_at
		FROM sessions
		WHERE jti = $1
	`

	var s Session
	err := r.db.QueryRow(ctx, query, jti).Scan(
		&s.ID,
		&s.UserID,
		&s.JTI,
		&s.IssuedAt,
		&s.ExpiresAt,
		&s.RevokedAt,
		&s.IPAddress,
		&s.UserAgent,
		&s.LastActivity,
		&s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return &s, nil
}

// RevokeByJTI revokes a session by its JWT ID
func (r *PostgresRepository) RevokeByJTI(ctx context.Context, jti string) error {
	query := `UPDATE sessions SET revoked_at = NOW() WHERE jti = $1 AND revoked_at IS NULL`

	tag, err := r.db.Exec(ctx, query, jti)
	if err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}

	return nil
}

// UpdateActivity updates the last activity timestamp for a session
func (r *PostgresRepository) UpdateActivity(ctx context.Context, jti string) error {
	query := `UPDATE sessions SET last_activity = NOW() WHERE jti = $1 AND revoked_at IS NULL`

	tag, err := r.db.Exec(ctx, query, jti)
	if err != nil {
		return fmt.Errorf("failed to update session activity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}

	return nil
}

// IsValid checks whether a session exists, is not revoked and has not expired
func (r *PostgresRepository) IsValid(ctx context.Context, jti string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM sessions
			WHERE jti = $1 AND revoked_at IS NULL AND expires_at > NOW()
		)
	`

	var valid bool
	if err := r.db.QueryRow(ctx, query, jti).Scan(&valid); err != nil {
		return false, fmt.Errorf("failed to check session validity: %w", err)
	}

	return valid, nil
}

// DeleteExpired removes sessions past their expiry
func (r *PostgresRepository) DeleteExpired(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE expires_at < NOW()`); err != nil {
		return fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return nil
}
