package otp

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrChallengeNotFound is returned when a user has no challenge on record
var ErrChallengeNotFound = errors.New("otp challenge not found")

// Challenge is an issued one-time code awaiting verification.
//
// A challenge is active while ConsumedAt is nil and ExpiresAt is in the
// future. Issuing a new challenge for the same user supersedes older ones:
// verification only ever consults the latest challenge.
type Challenge struct {
	ID         uuid.UUID  `json:"id"`
	UserID     uuid.UUID  `json:"user_id"`
	Code       string     `json:"-"`
	IssuedAt   time.Time  `json:"issued_at"`
	ExpiresAt  time.Time  `json:"expires_at"`
	ConsumedAt *time.Time `json:"consumed_at,omitempty"`
	RequestIP  string     `json:"request_ip,omitempty"`
	UserAgent  string     `json:"user_agent,omitempty"`
}

// CreateChallengeParams represents parameters for persisting a new challenge
type CreateChallengeParams struct {
	UserID    uuid.UUID
	Code      string
	IssuedAt  time.Time
	ExpiresAt time.Time
	RequestIP string
	UserAgent string
}

// OtpRepository defines the persistence operations for OTP challenges
type OtpRepository interface {
	// Create persists a new challenge
	Create(ctx context.Context, params CreateChallengeParams) (Challenge, error)

	// GetLatestByUserID returns the user's most recent challenge by issue
	// time; when two challenges share a timestamp the most recently
	// created row wins
	GetLatestByUserID(ctx context.Context, userID uuid.UUID) (Challenge, error)

	// Consume marks a challenge consumed if and only if it has not been
	// consumed already. The check-and-set must be atomic: of two racing
	// callers at most one may observe true.
	Consume(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)

	// CountIssuedSince counts challenges issued to a user after the
	// cutoff; used for resend throttling
	CountIssuedSince(ctx context.Context, userID uuid.UUID, cutoff time.Time) (int64, error)

	// DeleteExpiredBefore removes challenges that expired before the
	// cutoff; maintenance only
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
