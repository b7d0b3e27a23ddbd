package otp

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetLatestByUserID_TieBreakOnInsertionOrder(t *testing.T) {
	repo := NewInMemoryOtpRepository()
	userID := uuid.New()
	now := time.Now().UTC()

	// two challenges in the same clock tick: the later insert wins
	_, err := repo.Create(context.Background(), CreateChallengeParams{
		UserID: userID, Code: "111111", IssuedAt: now, ExpiresAt: now.Add(5 * time.Minute),
	})
	require.NoError(t, err)
	second, err := repo.Create(context.Background(), CreateChallengeParams{
		UserID: userID, Code: "222222", IssuedAt: now, ExpiresAt: now.Add(5 * time.Minute),
	})
	require.NoError(t, err)

	latest, err := repo.GetLatestByUserID(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)
}

func TestConsume_UnknownChallenge(t *testing.T) {
	repo := NewInMemoryOtpRepository()

	consumed, err := repo.Consume(context.Background(), uuid.New(), time.Now().UTC())
	require.NoError(t, err)
	assert.False(t, consumed)
}

func TestCountIssuedSince(t *testing.T) {
	repo := NewInMemoryOtpRepository()
	userID := uuid.New()
	now := time.Now().UTC()

	for i, issuedAt := range []time.Time{now.Add(-2 * time.Hour), now.Add(-time.Minute), now} {
		_, err := repo.Create(context.Background(), CreateChallengeParams{
			UserID: userID, Code: "000000", IssuedAt: issuedAt, ExpiresAt: issuedAt.Add(5 * time.Minute),
		})
		require.NoError(t, err, "challenge %d", i)
	}

	count, err := repo.CountIssuedSince(context.Background(), userID, now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}
