package login

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemLoginRepository implements LoginRepository using in-memory storage.
// Intended for tests and local development.
type InMemLoginRepository struct {
	users map[uuid.UUID]User
	mutex sync.RWMutex
}

// NewInMemLoginRepository creates a new in-memory login repository
func NewInMemLoginRepository() *InMemLoginRepository {
	return &InMemLoginRepository{
		users: make(map[uuid.UUID]User),
	}
}

// AddUser stores a user record, generating an id when none is set
func (r *InMemLoginRepository) AddUser(user User) User {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	r.users[user.ID] = user
	return user
}

// DeleteUser removes a user record; used to simulate account deletion mid-flow
func (r *InMemLoginRepository) DeleteUser(id uuid.UUID) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	delete(r.users, id)
}

// FindUserByEmail looks a user up by their registered email address
func (r *InMemLoginRepository) FindUserByEmail(ctx context.Context, email string) (User, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	for _, user := range r.users {
		if strings.EqualFold(user.Email, email) {
			return user, nil
		}
	}
	return User{}, ErrUserNotFound
}

// GetUserByID fetches a user by id
func (r *InMemLoginRepository) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return user, nil
}

// FindRoleByUserID resolves a user to their role name
func (r *InMemLoginRepository) FindRoleByUserID(ctx context.Context, id uuid.UUID) (string, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return "", ErrUserNotFound
	}
	return user.Role, nil
}

// RecordLogin stamps the user's last successful login
func (r *InMemLoginRepository) RecordLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	user, ok := r.users[id]
	if !ok {
		return ErrUserNotFound
	}
	user.LastLoginAt = &at
	r.users[id] = user
	return nil
}
