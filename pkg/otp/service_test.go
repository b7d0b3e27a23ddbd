package otp

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	idmerrors "github.com/harambee/welfare-idm/pkg/errors"
	"github.com/harambee/welfare-idm/pkg/notification"
)

func newTestService(t *testing.T, opts ...OtpServiceOption) (*OtpService, *InMemoryOtpRepository, *notification.MockNotifier) {
	t.Helper()

	mock := &notification.MockNotifier{}
	nm, err := notification.NewNotificationManager(
		notification.WithNotifier(notification.EmailSystem, mock),
		notification.WithDefaultTemplates(),
	)
	require.NoError(t, err)

	repo := NewInMemoryOtpRepository()
	return NewOtpService(repo, nm, opts...), repo, mock
}

func TestIssue_GeneratesAndSendsCode(t *testing.T) {
	svc, _, mock := newTestService(t)
	userID := uuid.New()

	challenge, err := svc.Issue(context.Background(), IssueParams{
		UserID: userID,
		Email:  "member@example.com",
		Name:   "Alice",
	})
	require.NoError(t, err)

	assert.Equal(t, userID, challenge.UserID)
	assert.Len(t, challenge.Code, DefaultCodeLength)
	for _, r := range challenge.Code {
		assert.True(t, r >= '0' && r <= '9', "code must be numeric")
	}
	assert.Nil(t, challenge.ConsumedAt)
	assert.True(t, challenge.ExpiresAt.After(challenge.IssuedAt))

	require.Len(t, mock.SentNotifications, 1)
	assert.Equal(t, "member@example.com", mock.SentNotifications[0].To)
	assert.Equal(t, challenge.Code, mock.SentNotifications[0].Data["Code"])
}

func TestIssue_DispatchFailure(t *testing.T) {
	svc, repo, mock := newTestService(t)
	mock.FailSend = true
	userID := uuid.New()

	_, err := svc.Issue(context.Background(), IssueParams{UserID: userID, Email: "member@example.com"})
	require.Error(t, err)
	assert.True(t, idmerrors.IsCode(err, idmerrors.ErrCodeDispatchFailure))

	// challenge is persisted even when the email fails, so a resend can follow
	_, err = repo.GetLatestByUserID(context.Background(), userID)
	assert.NoError(t, err)
}

func TestVerify_Success(t *testing.T) {
	svc, repo, _ := newTestService(t)
	userID := uuid.New()

	challenge, err := svc.Issue(context.Background(), IssueParams{UserID: userID, Email: "member@example.com"})
	require.NoError(t, err)

	require.NoError(t, svc.Verify(context.Background(), userID, challenge.Code))

	stored, err := repo.GetLatestByUserID(context.Background(), userID)
	require.NoError(t, err)
	assert.NotNil(t, stored.ConsumedAt)
}

func TestVerify_SingleConsumption(t *testing.T) {
	svc, _, _ := newTestService(t)
	userID := uuid.New()

	challenge, err := svc.Issue(context.Background(), IssueParams{UserID: userID, Email: "member@example.com"})
	require.NoError(t, err)

	require.NoError(t, svc.Verify(context.Background(), userID, challenge.Code))

	err = svc.Verify(context.Background(), userID, challenge.Code)
	require.Error(t, err)
	assert.True(t, idmerrors.IsCode(err, idmerrors.ErrCodeInvalidOtp))
}

func TestVerify_ConcurrentOnlyOneWins(t *testing.T) {
	svc, _, _ := newTestService(t)
	userID := uuid.New()

	challenge, err := svc.Issue(context.Background(), IssueParams{UserID: userID, Email: "member@example.com"})
	require.NoError(t, err)

	const attempts = 16
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- svc.Verify(context.Background(), userID, challenge.Code)
		}()
	}
	wg.Wait()
	close(results)

	var successes int
	for err := range results {
		if err == nil {
			successes++
		} else {
			assert.True(t, idmerrors.IsCode(err, idmerrors.ErrCodeInvalidOtp))
		}
	}
	assert.Equal(t, 1, successes)
}

func TestVerify_Expired(t *testing.T) {
	svc, _, _ := newTestService(t, WithCodeLifetime(time.Nanosecond))
	userID := uuid.New()

	challenge, err := svc.Issue(context.Background(), IssueParams{UserID: userID, Email: "member@example.com"})
	require.NoError(t, err)

	time.Sleep(time.Millisecond)

	err = svc.Verify(context.Background(), userID, challenge.Code)
	require.Error(t, err)
	assert.True(t, idmerrors.IsCode(err, idmerrors.ErrCodeInvalidOtp))
}

func TestVerify_Supersession(t *testing.T) {
	svc, _, _ := newTestService(t)
	userID := uuid.New()

	first, err := svc.Issue(context.Background(), IssueParams{UserID: userID, Email: "member@example.com"})
	require.NoError(t, err)
	second, err := svc.Issue(context.Background(), IssueParams{UserID: userID, Email: "member@example.com"})
	require.NoError(t, err)

	// superseded code never matches, even before its own expiry
	if first.Code != second.Code {
		err = svc.Verify(context.Background(), userID, first.Code)
		require.Error(t, err)
		assert.True(t, idmerrors.IsCode(err, idmerrors.ErrCodeInvalidOtp))
	}

	require.NoError(t, svc.Verify(context.Background(), userID, second.Code))
}

func TestVerify_WrongCode(t *testing.T) {
	svc, repo, _ := newTestService(t)
	userID := uuid.New()

	challenge, err := svc.Issue(context.Background(), IssueParams{UserID: userID, Email: "member@example.com"})
	require.NoError(t, err)

	wrong := "000000"
	if wrong == challenge.Code {
		wrong = "000001"
	}

	err = svc.Verify(context.Background(), userID, wrong)
	require.Error(t, err)
	assert.True(t, idmerrors.IsCode(err, idmerrors.ErrCodeInvalidOtp))

	// a failed attempt must not consume the challenge
	stored, err := repo.GetLatestByUserID(context.Background(), userID)
	require.NoError(t, err)
	assert.Nil(t, stored.ConsumedAt)

	require.NoError(t, svc.Verify(context.Background(), userID, challenge.Code))
}

func TestVerify_NoChallenge(t *testing.T) {
	svc, _, _ := newTestService(t)

	err := svc.Verify(context.Background(), uuid.New(), "123456")
	require.Error(t, err)
	assert.True(t, idmerrors.IsCode(err, idmerrors.ErrCodeInvalidOtp))
}

func TestVerify_CodeFormat(t *testing.T) {
	svc, _, _ := newTestService(t)
	userID := uuid.New()

	for _, code := range []string{"", "12345", "1234567", "12a456", "12 456"} {
		err := svc.Verify(context.Background(), userID, code)
		require.Error(t, err, "code %q", code)
		assert.True(t, idmerrors.IsCode(err, idmerrors.ErrCodeValidationFailed), "code %q", code)
	}
}

func TestIssue_ResendCooldown(t *testing.T) {
	svc, _, _ := newTestService(t, WithResendCooldown(time.Minute))
	userID := uuid.New()

	_, err := svc.Issue(context.Background(), IssueParams{UserID: userID, Email: "member@example.com"})
	require.NoError(t, err)

	_, err = svc.Issue(context.Background(), IssueParams{UserID: userID, Email: "member@example.com"})
	require.Error(t, err)
	assert.True(t, idmerrors.IsCode(err, idmerrors.ErrCodeRateLimited))

	// a different user is not throttled
	_, err = svc.Issue(context.Background(), IssueParams{UserID: uuid.New(), Email: "other@example.com"})
	assert.NoError(t, err)
}

func TestCleanupExpired(t *testing.T) {
	svc, repo, _ := newTestService(t, WithCodeLifetime(time.Nanosecond))
	userID := uuid.New()

	_, err := svc.Issue(context.Background(), IssueParams{UserID: userID, Email: "member@example.com"})
	require.NoError(t, err)

	time.Sleep(time.Millisecond)

	removed, err := svc.CleanupExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	_, err = repo.GetLatestByUserID(context.Background(), userID)
	assert.ErrorIs(t, err, ErrChallengeNotFound)
}
