package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kuitang/noteboard/internal/store"
)

// Errors
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountExists      = errors.New("account already exists")
)

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// realClock implements Clock using the real system time.
type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// UserService handles account registration and credential verification.
type UserService struct {
	users *store.UserStore
	clock Clock
}

// NewUserService creates a new user service.
func NewUserService(users *store.UserStore) *UserService {
	return &UserService{
		users: users,
		clock: realClock{},
	}
}

// SetClock replaces the clock used by the service. Intended for testing.
func (s *UserService) SetClock(c Clock) {
	s.clock = c
}

// Register creates a new account. The password is hashed before anything is
// stored; registration does not log the user in. Returns ErrAccountExists
// when the email or username is already taken.
func (s *UserService) Register(ctx context.Context, email, username, password string) (*store.User, error) {
	cred, err := NewCredential(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &store.User{
		ID:           uuid.NewString(),
		Email:        email,
		Username:     username,
		PasswordHash: cred.Hash(),
		CreatedAt:    s.clock.Now().UTC(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrAccountExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// VerifyLogin verifies email/password credentials for an existing account.
// Returns ErrInvalidCredentials whether the user doesn't exist or the
// password is wrong; callers cannot distinguish the two.
func (s *UserService) VerifyLogin(ctx context.Context, email, password string) (*store.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	if !CredentialFromHash(user.PasswordHash).Verify(password) {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// GetByID fetches a user account by ID.
func (s *UserService) GetByID(ctx context.Context, id string) (*store.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}
