package otp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresOtpRepository implements OtpRepository using PostgreSQL
type PostgresOtpRepository struct {
	db *pgxpool.Pool
}

// NewPostgresOtpRepository creates a new PostgreSQL-based OTP repository
func NewPostgresOtpRepository(db *pgxpool.Pool) *PostgresOtpRepository {
	return &PostgresOtpRepository{db: db}
}

// Create persists a new challenge
func (r *PostgresOtpRepository) Create(ctx context.Context, params CreateChallengeParams) (Challenge, error) {
	query := `
		INSERT INTO otp_challenges (user_id, code, issued_at, expires_at, request_ip, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, user_id, code, issued_at, expires_at, consumed_at, request_ip, user_agent
	`

	var c Challenge
	err := r.db.QueryRow(ctx, query,
		params.UserID, params.Code, params.IssuedAt, params.ExpiresAt, params.RequestIP, params.UserAgent,
	).Scan(
		&c.ID,
		&c.UserID,
		&c.Code,
		&c.IssuedAt,
		&c.ExpiresAt,
		&c.ConsumedAt,
		&c.RequestIP,
		&c.UserAgent,
	)
	if err != nil {
		return Challenge{}, fmt.Errorf("failed to create otp challenge: %w", err)
	}

	return c, nil
}

// GetLatestByUserID returns the user's most recent challenge. The seq
// column breaks ties between challenges issued within the same clock tick.
func (r *PostgresOtpRepository) GetLatestByUserID(ctx context.Context, userID uuid.UUID) (Challenge, error) {
	query := `
		SELECT id, user_id, code, issued_at, expires_at, consumed_at, request_ip, user_agent
		FROM otp_challenges
		WHERE user_id = $1
		ORDER BY issued_at DESC, seq DESC
		LIMIT 1
	`

	var c Challenge
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&c.ID,
		&c.UserID,
		&c.Code,
		&c.IssuedAt,
		&c.ExpiresAt,
		&c.ConsumedAt,
		&c.RequestIP,
		&c.UserAgent,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Challenge{}, ErrChallengeNotFound
		}
		return Challenge{}, fmt.Errorf("failed to get latest otp challenge: %w", err)
	}

	return c, nil
}

// Consume marks a challenge consumed. The consumed_at IS NULL guard makes
// the update a single-row atomic check-and-set: of two racing verifies
// only one sees RowsAffected == 1.
func (r *PostgresOtpRepository) Consume(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	query := `UPDATE otp_challenges SET consumed_at = $2 WHERE id = $1 AND consumed_at IS NULL`

	tag, err := r.db.Exec(ctx, query, id, at)
	if err != nil {
		return false, fmt.Errorf("failed to consume otp challenge: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// CountIssuedSince counts challenges issued to a user after the cutoff
func (r *PostgresOtpRepository) CountIssuedSince(ctx context.Context, userID uuid.UUID, cutoff time.Time) (int64, error) {
	query := `SELECT COUNT(*) FROM otp_challenges WHERE user_id = $1 AND issued_at > $2`

	var count int64
	if err := r.db.QueryRow(ctx, query, userID, cutoff).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count otp challenges: %w", err)
	}

	return count, nil
}

// DeleteExpiredBefore removes challenges that expired before the cutoff
func (r *PostgresOtpRepository) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM otp_challenges WHERE expires_at < $1`

	tag, err := r.db.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired otp challenges: %w", err)
	}

	return tag.RowsAffected(), nil
}
