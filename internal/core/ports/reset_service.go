package ports

import "context"

// ResetService implements the single-purpose password reset token flow.
type ResetService interface {
	// RequestReset mints and stores a reset token when the email exists.
	// It returns nil either way so callers cannot enumerate accounts.
	RequestReset(ctx context.Context, email string) error
	// VerifyResetToken returns the account email for a valid outstanding
	// token, or domain.ErrInvalidToken without distinguishing why.
	VerifyResetToken(ctx context.Context, token string) (string, error)
	// CompleteReset performs the same verification, then re-hashes the new
	// password and clears the reset fields atomically.
	CompleteReset(ctx context.Context, token, newPassword string) error
}

// Mailer is the best-effort notification collaborator. Failures are logged
// by callers and never fail the primary operation.
type Mailer interface {
	SendWelcome(ctx context.Context, email, name string) error
	SendPasswordReset(ctx context.Context, email, token string) error
}
