package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/talentbridge/auth-service/internal/core/domain"
	"github.com/talentbridge/auth-service/internal/core/ports"
)

const (
	defaultMaxLoginAttempts = 5
	defaultLockDuration     = 15 * time.Minute
	defaultMaxSessions      = 10
)

// AuthOptions tunes the lockout and session policies.
type AuthOptions struct {
	MaxLoginAttempts int
	LockDuration     time.Duration
	MaxSessions      int
	// RequireSessionOnRefresh makes Refresh check that the presented token
	// still belongs to a live session. Off by default: a refresh is otherwise
	// stateless, which means a revoked session's token stays refreshable
	// until it expires on its own.
	RequireSessionOnRefresh bool
}

// AuthService implements registration, login with lockout, token refresh,
// and password change.
type AuthService struct {
	accounts ports.AccountRepository
	issuer   *TokenIssuer
	scorer   ports.RiskScorer
	recorder ports.LoginEventRecorder
	throttle ports.LoginThrottle
	mailer   ports.Mailer
	opts     AuthOptions
	logger   zerolog.Logger
}

// NewAuthService wires the login pipeline. scorer, recorder, throttle, and
// mailer are best-effort collaborators; throttle and mailer may be nil.
func NewAuthService(
	accounts ports.AccountRepository,
	issuer *TokenIssuer,
	scorer ports.RiskScorer,
	recorder ports.LoginEventRecorder,
	throttle ports.LoginThrottle,
	mailer ports.Mailer,
	opts AuthOptions,
	logger zerolog.Logger,
) *AuthService {
	if opts.MaxLoginAttempts <= 0 {
		opts.MaxLoginAttempts = defaultMaxLoginAttempts
	}
	if opts.LockDuration <= 0 {
		opts.LockDuration = defaultLockDuration
	}
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = defaultMaxSessions
	}
	return &AuthService{
		accounts: accounts,
		issuer:   issuer,
		scorer:   scorer,
		recorder: recorder,
		throttle: throttle,
		mailer:   mailer,
		opts:     opts,
		logger:   logger,
	}
}

// Register creates an account, hashes the password, and signs the caller in
// with a first session. The welcome notification is best-effort.
func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*ports.AuthResult, error) {
	if in.Email == "" || in.Password == "" || !domain.RegistrableRole(in.Role) {
		return nil, domain.ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	acct := &domain.Account{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: string(hash),
		Role:         in.Role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	created, err := s.accounts.Create(ctx, acct)
	if err != nil {
		return nil, err
	}

	result, err := s.signIn(ctx, created, in.IP, in.Device, false, now)
	if err != nil {
		return nil, err
	}

	if s.mailer != nil {
		if err := s.mailer.SendWelcome(ctx, created.Email, created.Name); err != nil {
			s.logger.Warn().Err(err).Str("email", created.Email).Msg("welcome notification failed")
		}
	}

	s.logger.Info().Str("account_id", created.ID).Str("role", created.Role).Msg("account registered")
	return result, nil
}

// Login runs the full pipeline: throttle, lock check, role check, credential
// verification, lockout bookkeeping, risk scoring, session creation, and
// token issuance. The lock status is checked before the password is compared
// so a locked account reveals nothing about credential validity.
func (s *AuthService) Login(ctx context.Context, in ports.LoginInput) (*ports.AuthResult, error) {
	if in.Email == "" || in.Password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	if s.throttle != nil {
		ok, err := s.throttle.Allow(ctx, in.IP)
		if err != nil {
			s.logger.Warn().Err(err).Str("ip", in.IP).Msg("login throttle unavailable, allowing")
		} else if !ok {
			return nil, domain.ErrRateLimited
		}
	}

	acct, err := s.accounts.FindByEmail(ctx, in.Email)
	if err != nil {
		if err == domain.ErrAccountNotFound {
			// Unknown email collapses to the generic credential failure.
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	now := time.Now().UTC()
	if locked, mins := acct.Locked(now); locked {
		s.record(acct.ID, domain.EventLoginFailed, in.IP, in.Device, 0, false, map[string]string{"reason": "account_locked"})
		return nil, &domain.AccountLockedError{RemainingMinutes: mins}
	}

	if in.UserType != "" && in.UserType != acct.Role {
		s.record(acct.ID, domain.EventLoginFailed, in.IP, in.Device, 0, false, map[string]string{"reason": "role_mismatch"})
		return nil, &domain.RoleMismatchError{Role: acct.Role}
	}

	if bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(in.Password)) != nil {
		attempts, lockedUntil, recErr := s.accounts.RecordFailedLogin(ctx, acct.ID, now, s.opts.MaxLoginAttempts, s.opts.LockDuration)
		if recErr != nil {
			return nil, recErr
		}
		s.record(acct.ID, domain.EventLoginFailed, in.IP, in.Device, 0, false, map[string]string{"reason": "bad_password"})

		if lockedUntil != nil && now.Before(*lockedUntil) {
			mins := remainingMinutes(*lockedUntil, now)
			s.logger.Warn().Str("account_id", acct.ID).Int("attempts", attempts).Msg("account locked after repeated failures")
			return nil, &domain.AccountLockedError{RemainingMinutes: mins}
		}
		s.logger.Debug().Str("account_id", acct.ID).Int("attempts_remaining", s.opts.MaxLoginAttempts-attempts).Msg("login failed")
		return nil, domain.ErrInvalidCredentials
	}

	return s.signIn(ctx, acct, in.IP, in.Device, in.RememberMe, now)
}

// signIn scores the attempt, mints a token, and records the new session in a
// single atomic account update that also clears the lockout state.
func (s *AuthService) signIn(ctx context.Context, acct *domain.Account, ip, device string, remember bool, now time.Time) (*ports.AuthResult, error) {
	var risk domain.RiskAssessment
	if s.scorer != nil {
		risk = s.scorer.ScoreLogin(ctx, acct.ID, ip, device)
	}

	token, err := s.issuer.Issue(AccessClaims{AccountID: acct.ID, Role: acct.Role, Email: acct.Email}, remember)
	if err != nil {
		return nil, err
	}

	session := domain.Session{
		ID:           uuid.NewString(),
		Token:        token,
		Device:       device,
		IP:           ip,
		CreatedAt:    now,
		LastActivity: now,
	}
	if err := s.accounts.RecordSuccessfulLogin(ctx, acct.ID, session, s.opts.MaxSessions, now); err != nil {
		return nil, err
	}

	detail := map[string]string{}
	for i, r := range risk.Reasons {
		detail[fmt.Sprintf("reason_%d", i)] = r
	}
	s.record(acct.ID, domain.EventLoginSuccess, ip, device, risk.Score, risk.Suspicious, detail)

	acct.LoginAttempts = 0
	acct.LockUntil = nil
	acct.LastLogin = &now
	acct.Sessions = append(acct.Sessions, session)
	if len(acct.Sessions) > s.opts.MaxSessions {
		acct.Sessions = acct.Sessions[len(acct.Sessions)-s.opts.MaxSessions:]
	}

	if risk.Suspicious {
		s.logger.Warn().Str("account_id", acct.ID).Int("risk_score", risk.Score).Strs("reasons", risk.Reasons).Msg("suspicious sign-in")
	}

	return &ports.AuthResult{Token: token, Account: acct, Session: &session, Risk: &risk}, nil
}

// Refresh re-issues a default-TTL token from the claims of a still-valid
// token. It does not consult the session registry unless
// RequireSessionOnRefresh is set.
func (s *AuthService) Refresh(ctx context.Context, token string) (string, error) {
	claims, err := s.issuer.Verify(token)
	if err != nil {
		return "", err
	}

	if s.opts.RequireSessionOnRefresh {
		acct, err := s.accounts.FindByID(ctx, claims.AccountID)
		if err != nil {
			return "", domain.ErrInvalidToken
		}
		live := false
		for _, sess := range acct.Sessions {
			if sess.Token == token {
				live = true
				break
			}
		}
		if !live {
			return "", domain.ErrInvalidToken
		}
	}

	return s.issuer.Issue(*claims, false)
}

// ChangePassword verifies the current password, rejects reuse of the last
// few passwords, and stores a fresh hash.
func (s *AuthService) ChangePassword(ctx context.Context, accountID, current, next string) error {
	acct, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return err
	}

	if bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(current)) != nil {
		return domain.ErrInvalidCredentials
	}

	for _, old := range append([]string{acct.PasswordHash}, acct.PasswordHistory...) {
		if bcrypt.CompareHashAndPassword([]byte(old), []byte(next)) == nil {
			return domain.ErrPasswordReused
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.accounts.UpdatePassword(ctx, acct.ID, string(hash), acct.PasswordHash); err != nil {
		return err
	}

	s.logger.Info().Str("account_id", acct.ID).Msg("password changed")
	return nil
}

// record appends a login event through the best-effort recorder.
func (s *AuthService) record(accountID string, kind domain.EventKind, ip, device string, score int, suspicious bool, detail map[string]string) {
	if s.recorder == nil {
		return
	}
	s.recorder.Record(&domain.LoginEvent{
		AccountID:    accountID,
		Kind:         kind,
		IP:           ip,
		Network:      domain.MaskNetwork(ip),
		Device:       device,
		DeviceFamily: domain.DeviceFamily(device),
		RiskScore:    score,
		Suspicious:   suspicious,
		Detail:       detail,
		CreatedAt:    time.Now().UTC(),
	})
}

func remainingMinutes(until, now time.Time) int {
	mins := int((until.Sub(now) + time.Minute - 1) / time.Minute)
	if mins < 1 {
		mins = 1
	}
	return mins
}
