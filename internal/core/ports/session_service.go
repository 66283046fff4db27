package ports

import (
	"context"
	"time"
)

// SessionView is the client-facing shape of one active session.
type SessionView struct {
	ID           string    `json:"id"`
	Device       string    `json:"device"`
	IP           string    `json:"ip"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
	Current      bool      `json:"current"`
}

// SessionService maintains the bounded per-account session registry.
type SessionService interface {
	// List returns the sessions with activity inside the configured window,
	// flagging the one matching currentToken.
	List(ctx context.Context, accountID, currentToken string) ([]SessionView, error)
	Revoke(ctx context.Context, accountID, sessionID string) error
	RevokeOthers(ctx context.Context, accountID, currentToken string) error
	Touch(ctx context.Context, accountID, currentToken string) error
}
