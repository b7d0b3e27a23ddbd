package otp

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"

	idmerrors "github.com/harambee/welfare-idm/pkg/errors"
	"github.com/harambee/welfare-idm/pkg/notification"
)

const (
	// DefaultCodeLength is the number of digits in a generated code
	DefaultCodeLength = 6
	// DefaultCodeLifetime is how long a code stays valid after issue
	DefaultCodeLifetime = 5 * time.Minute
)

// OtpService issues and verifies one-time login codes
type OtpService struct {
	repo                OtpRepository
	notificationManager *notification.NotificationManager
	codeLength          int
	codeLifetime        time.Duration
	resendCooldown      time.Duration
}

// OtpServiceOption configures the OTP service
type OtpServiceOption func(*OtpService)

// WithCodeLength sets the number of digits in generated codes
func WithCodeLength(length int) OtpServiceOption {
	return func(s *OtpService) {
		if length > 0 {
			s.codeLength = length
		}
	}
}

// WithCodeLifetime sets how long a code stays valid after issue
func WithCodeLifetime(lifetime time.Duration) OtpServiceOption {
	return func(s *OtpService) {
		if lifetime > 0 {
			s.codeLifetime = lifetime
		}
	}
}

// WithResendCooldown sets the minimum interval between issued codes for a
// user. Zero disables the cooldown.
func WithResendCooldown(cooldown time.Duration) OtpServiceOption {
	return func(s *OtpService) {
		s.resendCooldown = cooldown
	}
}

// NewOtpService creates a new OTP service
func NewOtpService(repo OtpRepository, notificationManager *notification.NotificationManager, opts ...OtpServiceOption) *OtpService {
	s := &OtpService{
		repo:                repo,
		notificationManager: notificationManager,
		codeLength:          DefaultCodeLength,
		codeLifetime:        DefaultCodeLifetime,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IssueParams carries the data needed to issue a code to a user
type IssueParams struct {
	UserID    uuid.UUID
	Email     string
	Name      string
	RequestIP string
	UserAgent string
}

// Issue generates a fresh code for the user, persists the challenge and
// emails the code. Any previously issued challenge is superseded: Verify
// only ever consults the latest one.
func (s *OtpService) Issue(ctx context.Context, params IssueParams) (Challenge, error) {
	now := time.Now().UTC()

	if s.resendCooldown > 0 {
		count, err := s.repo.CountIssuedSince(ctx, params.UserID, now.Add(-s.resendCooldown))
		if err != nil {
			return Challenge{}, fmt.Errorf("failed to check resend cooldown: %w", err)
		}
		if count > 0 {
			return Challenge{}, idmerrors.New(idmerrors.ErrCodeRateLimited, "a code was sent recently, please wait before requesting another")
		}
	}

	code, err := generateNumericCode(s.codeLength)
	if err != nil {
		return Challenge{}, fmt.Errorf("failed to generate code: %w", err)
	}

	createParams := CreateChallengeParams{
		Code:      code,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.codeLifetime),
	}
	if err := copier.Copy(&createParams, &params); err != nil {
		return Challenge{}, fmt.Errorf("failed to copy challenge params: %w", err)
	}

	challenge, err := s.repo.Create(ctx, createParams)
	if err != nil {
		return Challenge{}, fmt.Errorf("failed to store challenge: %w", err)
	}

	if err := s.sendCodeEmail(params.Email, params.Name, code); err != nil {
		slog.Error("Failed to send otp code email", "user_id", params.UserID, "error", err)
		return Challenge{}, idmerrors.DispatchFailure(err)
	}

	return challenge, nil
}

// Verify checks a submitted code against the user's latest challenge and
// consumes it on success. Expired, already-consumed and mismatched codes
// all report ErrCodeInvalidOtp; consumption is atomic, so a code can only
// ever succeed once.
func (s *OtpService) Verify(ctx context.Context, userID uuid.UUID, code string) error {
	if err := ValidateCodeFormat(code, s.codeLength); err != nil {
		return err
	}

	challenge, err := s.repo.GetLatestByUserID(ctx, userID)
	if err != nil {
		if err == ErrChallengeNotFound {
			return idmerrors.InvalidOtp()
		}
		return fmt.Errorf("failed to load challenge: %w", err)
	}

	now := time.Now().UTC()

	if challenge.ConsumedAt != nil {
		return idmerrors.InvalidOtp()
	}
	if now.After(challenge.ExpiresAt) {
		return idmerrors.InvalidOtp()
	}
	if subtle.ConstantTimeCompare([]byte(challenge.Code), []byte(code)) != 1 {
		return idmerrors.InvalidOtp()
	}

	consumed, err := s.repo.Consume(ctx, challenge.ID, now)
	if err != nil {
		return fmt.Errorf("failed to consume challenge: %w", err)
	}
	if !consumed {
		// lost the race against a concurrent verify
		return idmerrors.InvalidOtp()
	}

	return nil
}

// CodeLifetime returns the configured code lifetime
func (s *OtpService) CodeLifetime() time.Duration {
	return s.codeLifetime
}

// CleanupExpired removes challenges that expired before now
func (s *OtpService) CleanupExpired(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpiredBefore(ctx, time.Now().UTC())
}

func (s *OtpService) sendCodeEmail(email, name, code string) error {
	if s.notificationManager == nil {
		return fmt.Errorf("notification manager not configured")
	}

	data := notification.NotificationData{
		To:      email,
		Subject: "Your login code",
		Data: map[string]string{
			"Name":             name,
			"Code":             code,
			"ExpiresInMinutes": fmt.Sprintf("%d", int(s.codeLifetime.Minutes())),
		},
	}

	return s.notificationManager.Send(notification.OtpCodeNotice, data)
}

// ValidateCodeFormat rejects submissions that cannot possibly match a
// generated code before any repository lookup happens.
func ValidateCodeFormat(code string, length int) error {
	if len(code) != length {
		return idmerrors.ValidationFailed("code", fmt.Sprintf("code must be %d digits", length))
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return idmerrors.ValidationFailed("code", "code must contain only digits")
		}
	}
	return nil
}

// generateNumericCode returns a zero-padded random numeric string of the
// given length, drawn from crypto/rand.
func generateNumericCode(length int) (string, error) {
	max := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(length)), nil)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("failed to read random: %w", err)
	}
	return fmt.Sprintf("%0*d", length, n), nil
}
