package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountExists      = errors.New("account already exists")
	ErrAccountNotFound    = errors.New("account not found")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrPasswordReused     = errors.New("password was used recently")
	ErrRateLimited        = errors.New("too many login attempts, slow down")
	ErrConfig             = errors.New("service misconfigured")
)

// AccountLockedError is returned when a login attempt hits a locked account.
// RemainingMinutes is the time left on the lock, rounded up to whole minutes.
type AccountLockedError struct {
	RemainingMinutes int
}

func (e *AccountLockedError) Error() string {
	return fmt.Sprintf("account locked, try again in %d minute(s)", e.RemainingMinutes)
}

// RoleMismatchError is returned when the caller requested a login as one role
// but the account is registered under another.
type RoleMismatchError struct {
	Role string
}

func (e *RoleMismatchError) Error() string {
	return fmt.Sprintf("account is registered as %q", e.Role)
}
