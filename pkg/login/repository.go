package login

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrUserNotFound is returned by repositories when no user matches.
// The service layer folds it into the generic credential failure so the
// HTTP surface never reveals whether an email is registered.
var ErrUserNotFound = errors.New("user not found")

// User represents a member account as seen by the login subsystem
type User struct {
	ID               uuid.UUID  `json:"id"`
	Email            string     `json:"email"`
	Name             string     `json:"name"`
	PasswordHash     string     `json:"-"`
	Role             string     `json:"role"`
	TwoFactorEnabled bool       `json:"two_factor_enabled"`
	LastLoginAt      *time.Time `json:"last_login_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// LoginRepository defines the persistence operations the login subsystem needs
type LoginRepository interface {
	// FindUserByEmail looks a user up by their registered email address
	FindUserByEmail(ctx context.Context, email string) (User, error)

	// GetUserByID fetches a user by id; used when resuming a pending login
	GetUserByID(ctx context.Context, id uuid.UUID) (User, error)

	// FindRoleByUserID resolves a user to their role name
	FindRoleByUserID(ctx context.Context, id uuid.UUID) (string, error)

	// RecordLogin stamps the user's last successful login
	RecordLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}
