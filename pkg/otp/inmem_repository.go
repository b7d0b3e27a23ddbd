package otp

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryOtpRepository implements OtpRepository with an in-memory map.
// Intended for tests and local development.
type InMemoryOtpRepository struct {
	mu         sync.Mutex
	challenges map[uuid.UUID]*Challenge
	seq        map[uuid.UUID]int64
	nextSeq    int64
}

// NewInMemoryOtpRepository creates a new in-memory OTP repository
func NewInMemoryOtpRepository() *InMemoryOtpRepository {
	return &InMemoryOtpRepository{
		challenges: make(map[uuid.UUID]*Challenge),
		seq:        make(map[uuid.UUID]int64),
	}
}

// Create persists a new challenge
func (r *InMemoryOtpRepository) Create(ctx context.Context, params CreateChallengeParams) (Challenge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := Challenge{
		ID:        uuid.New(),
		UserID:    params.UserID,
		Code:      params.Code,
		IssuedAt:  params.IssuedAt,
		ExpiresAt: params.ExpiresAt,
		RequestIP: params.RequestIP,
		UserAgent: params.UserAgent,
	}

	r.nextSeq++
	r.challenges[c.ID] = &c
	r.seq[c.ID] = r.nextSeq

	return c, nil
}

// GetLatestByUserID returns the user's most recent challenge
func (r *InMemoryOtpRepository) GetLatestByUserID(ctx context.Context, userID uuid.UUID) (Challenge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var latest *Challenge
	var latestSeq int64
	for id, c := range r.challenges {
		if c.UserID != userID {
			continue
		}
		if latest == nil || c.IssuedAt.After(latest.IssuedAt) ||
			(c.IssuedAt.Equal(latest.IssuedAt) && r.seq[id] > latestSeq) {
			latest = c
			latestSeq = r.seq[id]
		}
	}
	if latest == nil {
		return Challenge{}, ErrChallengeNotFound
	}

	return *latest, nil
}

// Consume marks a challenge consumed if it has not been consumed yet
func (r *InMemoryOtpRepository) Consume(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.challenges[id]
	if !ok || c.ConsumedAt != nil {
		return false, nil
	}

	t := at
	c.ConsumedAt = &t
	return true, nil
}

// CountIssuedSince counts challenges issued to a user after the cutoff
func (r *InMemoryOtpRepository) CountIssuedSince(ctx context.Context, userID uuid.UUID, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var count int64
	for _, c := range r.challenges {
		if c.UserID == userID && c.IssuedAt.After(cutoff) {
			count++
		}
	}

	return count, nil
}

// DeleteExpiredBefore removes challenges that expired before the cutoff
func (r *InMemoryOtpRepository) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed int64
	for id, c := range r.challenges {
		if c.ExpiresAt.Before(cutoff) {
			delete(r.challenges, id)
			delete(r.seq, id)
			removed++
		}
	}

	return removed, nil
}
