package login

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	idmerrors "github.com/harambee/welfare-idm/pkg/errors"
)

// LoginService verifies primary credentials against stored member records.
// It never creates a session; that is the login flow's job.
type LoginService struct {
	repo   LoginRepository
	hasher PasswordHasher
}

// LoginServiceOption configures a LoginService
type LoginServiceOption func(*LoginService)

// WithPasswordHasher overrides the default bcrypt hasher
func WithPasswordHasher(hasher PasswordHasher) LoginServiceOption {
	return func(s *LoginService) {
		s.hasher = hasher
	}
}

// NewLoginService creates a new login service
func NewLoginService(repo LoginRepository, opts ...LoginServiceOption) *LoginService {
	service := &LoginService{
		repo:   repo,
		hasher: &BcryptHasher{},
	}

	for _, opt := range opts {
		opt(service)
	}

	return service
}

// Login validates an email and password pair and returns the matching user.
// Unknown email and wrong password both come back as the same
// INVALID_CREDENTIALS error so callers cannot enumerate accounts.
func (s *LoginService) Login(ctx context.Context, email, password string) (User, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))

	user, err := s.repo.FindUserByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			slog.Warn("Login attempt for unknown email")
			return User{}, idmerrors.InvalidCredentials()
		}
		slog.Error("Failed to look up user by email", "error", err)
		return User{}, idmerrors.Wrap(err, idmerrors.ErrCodeInternal, "failed to look up user")
	}

	valid, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		slog.Error("Failed to verify password", "user_id", user.ID, "error", err)
		return User{}, idmerrors.Wrap(err, idmerrors.ErrCodeInternal, "failed to verify password")
	}
	if !valid {
		slog.Warn("Login attempt with wrong password", "user_id", user.ID)
		return User{}, idmerrors.InvalidCredentials()
	}

	return user, nil
}

// GetUser fetches a user by id, mapping a missing row to USER_NOT_FOUND.
// Used when a pending login resumes and the account may have been deleted
// mid-flow.
func (s *LoginService) GetUser(ctx context.Context, id uuid.UUID) (User, error) {
	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return User{}, idmerrors.New(idmerrors.ErrCodeUserNotFound, "user no longer exists")
		}
		return User{}, idmerrors.Wrap(err, idmerrors.ErrCodeInternal, "failed to get user")
	}
	return user, nil
}

// FindRole resolves the user's role name for post-login routing
func (s *LoginService) FindRole(ctx context.Context, id uuid.UUID) (string, error) {
	role, err := s.repo.FindRoleByUserID(ctx, id)
	if err != nil {
		slog.Error("Failed to find user role", "user_id", id, "error", err)
		return "", idmerrors.Wrap(err, idmerrors.ErrCodeInternal, "failed to find user role")
	}
	return role, nil
}

// RecordLogin stamps the user's last successful login time
func (s *LoginService) RecordLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	if err := s.repo.RecordLogin(ctx, id, at); err != nil {
		slog.Error("Failed to record login", "user_id", id, "error", err)
		return idmerrors.Wrap(err, idmerrors.ErrCodeInternal, "failed to record login")
	}
	return nil
}
