package ports

import (
	"context"
	"time"

	"github.com/talentbridge/auth-service/internal/core/domain"
)

// AccountRepository defines persistence for accounts. Every mutating method
// is a single atomic operation scoped to one account record; concurrent
// login attempts against the same account must never lose updates.
type AccountRepository interface {
	Create(ctx context.Context, a *domain.Account) (*domain.Account, error)
	FindByID(ctx context.Context, id string) (*domain.Account, error)
	FindByEmail(ctx context.Context, email string) (*domain.Account, error)

	// RecordFailedLogin applies one failed attempt. When a previous lock has
	// already expired the counter restarts at 1 and the lock is cleared;
	// otherwise the counter is incremented and, on reaching maxAttempts, a
	// lock of lockFor is set. Returns the resulting attempt count and the
	// lock deadline, if any.
	RecordFailedLogin(ctx context.Context, id string, now time.Time, maxAttempts int, lockFor time.Duration) (attempts int, lockedUntil *time.Time, err error)

	// RecordSuccessfulLogin atomically resets the attempt counter, clears any
	// lock, stamps last_login, and appends session to the account's session
	// list, evicting the oldest entries beyond maxSessions.
	RecordSuccessfulLogin(ctx context.Context, id string, session domain.Session, maxSessions int, now time.Time) error

	// TouchSession updates last_activity on the session holding token.
	// A missing session is a no-op, not an error.
	TouchSession(ctx context.Context, id, token string, now time.Time) error
	RevokeSession(ctx context.Context, id, sessionID string) error
	RevokeOtherSessions(ctx context.Context, id, currentToken string) error

	// SetResetToken stores the outstanding reset token and its expiry,
	// overwriting any previous one.
	SetResetToken(ctx context.Context, id, token string, expires time.Time) error

	// UpdatePassword stores the new hash and pushes the previous one into the
	// bounded password history.
	UpdatePassword(ctx context.Context, id, newHash, previousHash string) error

	// CompletePasswordReset stores the new hash and clears both reset fields,
	// conditional on the stored token still matching. Returns
	// domain.ErrInvalidToken when it does not, which makes a reset token
	// single-use even under concurrent completion.
	CompletePasswordReset(ctx context.Context, id, token, newHash, previousHash string) error
}
