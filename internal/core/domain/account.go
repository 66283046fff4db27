package domain

import (
	"math"
	"time"
)

// Roles form a closed set. Self-registration may only pick user, employer,
// or student; admin accounts are provisioned out of band.
const (
	RoleUser     = "user"
	RoleEmployer = "employer"
	RoleStudent  = "student"
	RoleAdmin    = "admin"
)

// MaxPasswordHistory is how many previous hashes an account retains for the
// reuse check on password change.
const MaxPasswordHistory = 5

// ValidRole reports whether role belongs to the closed role set.
func ValidRole(role string) bool {
	switch role {
	case RoleUser, RoleEmployer, RoleStudent, RoleAdmin:
		return true
	}
	return false
}

// RegistrableRole reports whether role may be chosen at self-registration.
func RegistrableRole(role string) bool {
	return ValidRole(role) && role != RoleAdmin
}

// Session records one authenticated device/client instance. Its lifetime is
// independent of the bearer token's cryptographic lifetime: it ends on
// explicit revoke or eviction, never by expiry.
type Session struct {
	ID           string    `json:"id"`
	Token        string    `json:"-"`
	Device       string    `json:"device"`
	IP           string    `json:"ip"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
}

// ActiveWithin reports whether the session saw activity inside the window
// ending at now.
func (s Session) ActiveWithin(window time.Duration, now time.Time) bool {
	return now.Sub(s.LastActivity) <= window
}

// Account models an authenticated actor. Lockout state, the bounded session
// list, and the outstanding reset token all live on the account record.
type Account struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	PasswordHash    string     `json:"-"`
	PasswordHistory []string   `json:"-"`
	Role            string     `json:"role"`
	LoginAttempts   int        `json:"-"`
	LockUntil       *time.Time `json:"-"`
	Sessions        []Session  `json:"-"`
	ResetToken      string     `json:"-"`
	ResetExpires    *time.Time `json:"-"`
	LastLogin       *time.Time `json:"last_login,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Locked reports whether the account is locked at now and, if so, the
// remaining lock time in whole minutes rounded up (never less than 1).
func (a *Account) Locked(now time.Time) (bool, int) {
	if a.LockUntil == nil || !now.Before(*a.LockUntil) {
		return false, 0
	}
	mins := int(math.Ceil(a.LockUntil.Sub(now).Minutes()))
	if mins < 1 {
		mins = 1
	}
	return true, mins
}

// ActiveSessions returns the sessions with activity inside the window,
// preserving insertion order.
func (a *Account) ActiveSessions(window time.Duration, now time.Time) []Session {
	active := make([]Session, 0, len(a.Sessions))
	for _, s := range a.Sessions {
		if s.ActiveWithin(window, now) {
			active = append(active, s)
		}
	}
	return active
}
