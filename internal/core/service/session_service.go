package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/talentbridge/auth-service/internal/core/ports"
)

const defaultSessionActiveWindow = 24 * time.Hour

// SessionService maintains the bounded per-account session registry.
// Sessions inactive beyond the window are excluded from listings but not
// physically deleted; only revoke and eviction remove them.
type SessionService struct {
	accounts ports.AccountRepository
	window   time.Duration
	logger   zerolog.Logger
}

func NewSessionService(accounts ports.AccountRepository, window time.Duration, logger zerolog.Logger) *SessionService {
	if window <= 0 {
		window = defaultSessionActiveWindow
	}
	return &SessionService{accounts: accounts, window: window, logger: logger}
}

// List returns the account's sessions active inside the window, in insertion
// order, flagging the one belonging to currentToken.
func (s *SessionService) List(ctx context.Context, accountID, currentToken string) ([]ports.SessionView, error) {
	acct, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	views := make([]ports.SessionView, 0, len(acct.Sessions))
	for _, sess := range acct.ActiveSessions(s.window, now) {
		views = append(views, ports.SessionView{
			ID:           sess.ID,
			Device:       sess.Device,
			IP:           sess.IP,
			CreatedAt:    sess.CreatedAt,
			LastActivity: sess.LastActivity,
			Current:      sess.Token == currentToken,
		})
	}
	return views, nil
}

// Revoke removes one session by id.
func (s *SessionService) Revoke(ctx context.Context, accountID, sessionID string) error {
	if err := s.accounts.RevokeSession(ctx, accountID, sessionID); err != nil {
		return err
	}
	s.logger.Info().Str("account_id", accountID).Str("session_id", sessionID).Msg("session revoked")
	return nil
}

// RevokeOthers removes every session except the one holding currentToken.
func (s *SessionService) RevokeOthers(ctx context.Context, accountID, currentToken string) error {
	if err := s.accounts.RevokeOtherSessions(ctx, accountID, currentToken); err != nil {
		return err
	}
	s.logger.Info().Str("account_id", accountID).Msg("other sessions revoked")
	return nil
}

// Touch bumps last_activity on the caller's session. A session that no
// longer exists is a silent no-op.
func (s *SessionService) Touch(ctx context.Context, accountID, currentToken string) error {
	return s.accounts.TouchSession(ctx, accountID, currentToken, time.Now().UTC())
}
