package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/talentbridge/auth-service/internal/core/domain"
	"github.com/talentbridge/auth-service/internal/core/ports"
)

// ResetService implements the password reset token flow. Exactly one reset
// token is outstanding per account: issuing a new one overwrites, and
// therefore invalidates, the previous one.
type ResetService struct {
	accounts ports.AccountRepository
	issuer   *TokenIssuer
	recorder ports.LoginEventRecorder
	mailer   ports.Mailer
	logger   zerolog.Logger
}

func NewResetService(
	accounts ports.AccountRepository,
	issuer *TokenIssuer,
	recorder ports.LoginEventRecorder,
	mailer ports.Mailer,
	logger zerolog.Logger,
) *ResetService {
	return &ResetService{
		accounts: accounts,
		issuer:   issuer,
		recorder: recorder,
		mailer:   mailer,
		logger:   logger,
	}
}

// RequestReset mints and persists a reset token when the email exists. The
// return value is nil either way so the endpoint response is identical for
// known and unknown addresses.
func (s *ResetService) RequestReset(ctx context.Context, email string) error {
	acct, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		if err == domain.ErrAccountNotFound {
			s.logger.Debug().Str("email", email).Msg("reset requested for unknown email")
			return nil
		}
		return err
	}

	token, expires, err := s.issuer.IssueReset(acct.ID)
	if err != nil {
		return err
	}
	if err := s.accounts.SetResetToken(ctx, acct.ID, token, expires); err != nil {
		return err
	}

	if s.mailer != nil {
		if err := s.mailer.SendPasswordReset(ctx, acct.Email, token); err != nil {
			s.logger.Warn().Err(err).Str("account_id", acct.ID).Msg("reset notification failed")
		}
	}

	s.logger.Info().Str("account_id", acct.ID).Time("expires", expires).Msg("reset token issued")
	return nil
}

// VerifyResetToken returns the account email for a valid outstanding token.
// Every failure mode collapses to domain.ErrInvalidToken.
func (s *ResetService) VerifyResetToken(ctx context.Context, token string) (string, error) {
	acct, err := s.lookup(ctx, token)
	if err != nil {
		return "", err
	}
	return acct.Email, nil
}

// CompleteReset re-verifies the token, re-hashes the new password, and
// atomically stores it while clearing both reset fields. The conditional
// update makes the token single-use.
func (s *ResetService) CompleteReset(ctx context.Context, token, newPassword string) error {
	acct, err := s.lookup(ctx, token)
	if err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.accounts.CompletePasswordReset(ctx, acct.ID, token, string(hash), acct.PasswordHash); err != nil {
		return err
	}

	if s.recorder != nil {
		s.recorder.Record(&domain.LoginEvent{
			AccountID: acct.ID,
			Kind:      domain.EventPasswordReset,
			Detail:    map[string]string{"via": "reset_token"},
			CreatedAt: time.Now().UTC(),
		})
	}

	s.logger.Info().Str("account_id", acct.ID).Msg("password reset completed")
	return nil
}

// lookup decodes the token and checks it against the account's stored reset
// state: same token, reset purpose, not expired.
func (s *ResetService) lookup(ctx context.Context, token string) (*domain.Account, error) {
	accountID, err := s.issuer.VerifyReset(token)
	if err != nil {
		return nil, domain.ErrInvalidToken
	}

	acct, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return nil, domain.ErrInvalidToken
	}
	if acct.ResetToken == "" || acct.ResetToken != token {
		return nil, domain.ErrInvalidToken
	}
	if acct.ResetExpires == nil || !time.Now().UTC().Before(*acct.ResetExpires) {
		return nil, domain.ErrInvalidToken
	}
	return acct, nil
}
