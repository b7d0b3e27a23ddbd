// Package pendinglogin tracks logins that passed the password check but
// still owe a one-time code. Entries are keyed by an opaque browser token
// and expire on their own, so an abandoned login never stays verifiable.
package pendinglogin

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrNoPendingLogin is returned when no live pending login exists for a key
var ErrNoPendingLogin = errors.New("no pending login")

// PendingLogin is a login awaiting code verification
type PendingLogin struct {
	UserID    uuid.UUID
	Email     string
	Name      string
	Role      string
	Remember  bool
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Store keeps pending logins between the credential and code steps
type Store interface {
	// Begin records a pending login and returns the opaque key the
	// browser holds until verification. Beginning a new login for the
	// same key replaces the previous one.
	Begin(ctx context.Context, key string, login PendingLogin) error

	// Get returns the pending login for a key, or ErrNoPendingLogin if
	// none exists or it has expired.
	Get(ctx context.Context, key string) (PendingLogin, error)

	// Clear removes the pending login for a key. Clearing a key that
	// holds nothing is not an error.
	Clear(ctx context.Context, key string) error
}

// NewKey returns a fresh random pending-login key
func NewKey() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate pending login key: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
