package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/talentbridge/auth-service/internal/core/domain"
	"github.com/talentbridge/auth-service/internal/core/ports"
)

// memAccountRepo is an in-memory AccountRepository that mirrors the store's
// atomic update semantics under a single mutex.
type memAccountRepo struct {
	mu       sync.Mutex
	accounts map[string]*domain.Account
	nextID   int
}

func newMemAccountRepo() *memAccountRepo {
	return &memAccountRepo{accounts: map[string]*domain.Account{}}
}

func (r *memAccountRepo) Create(_ context.Context, a *domain.Account) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.accounts {
		if existing.Email == a.Email {
			return nil, domain.ErrAccountExists
		}
	}
	r.nextID++
	cp := *a
	cp.ID = "acc_" + strconv.Itoa(r.nextID)
	r.accounts[cp.ID] = &cp
	return copyAccount(&cp), nil
}

func (r *memAccountRepo) FindByID(_ context.Context, id string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return copyAccount(a), nil
}

func (r *memAccountRepo) FindByEmail(_ context.Context, email string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if a.Email == email {
			return copyAccount(a), nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

func (r *memAccountRepo) RecordFailedLogin(_ context.Context, id string, now time.Time, maxAttempts int, lockFor time.Duration) (int, *time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return 0, nil, domain.ErrAccountNotFound
	}
	if a.LockUntil != nil && !now.Before(*a.LockUntil) {
		a.LoginAttempts = 1
		a.LockUntil = nil
	} else {
		a.LoginAttempts++
	}
	if a.LoginAttempts >= maxAttempts && a.LockUntil == nil {
		until := now.Add(lockFor)
		a.LockUntil = &until
	}
	var lockCopy *time.Time
	if a.LockUntil != nil {
		l := *a.LockUntil
		lockCopy = &l
	}
	return a.LoginAttempts, lockCopy, nil
}

func (r *memAccountRepo) RecordSuccessfulLogin(_ context.Context, id string, session domain.Session, maxSessions int, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	a.LoginAttempts = 0
	a.LockUntil = nil
	a.LastLogin = &now
	a.Sessions = append(a.Sessions, session)
	if len(a.Sessions) > maxSessions {
		a.Sessions = a.Sessions[len(a.Sessions)-maxSessions:]
	}
	return nil
}

func (r *memAccountRepo) TouchSession(_ context.Context, id, token string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	for i := range a.Sessions {
		if a.Sessions[i].Token == token {
			a.Sessions[i].LastActivity = now
		}
	}
	return nil
}

func (r *memAccountRepo) RevokeSession(_ context.Context, id, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	kept := a.Sessions[:0]
	for _, s := range a.Sessions {
		if s.ID != sessionID {
			kept = append(kept, s)
		}
	}
	a.Sessions = kept
	return nil
}

func (r *memAccountRepo) RevokeOtherSessions(_ context.Context, id, currentToken string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	kept := a.Sessions[:0]
	for _, s := range a.Sessions {
		if s.Token == currentToken {
			kept = append(kept, s)
		}
	}
	a.Sessions = kept
	return nil
}

func (r *memAccountRepo) SetResetToken(_ context.Context, id, token string, expires time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	a.ResetToken = token
	a.ResetExpires = &expires
	return nil
}

func (r *memAccountRepo) UpdatePassword(_ context.Context, id, newHash, previousHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	a.PasswordHash = newHash
	a.PasswordHistory = append(a.PasswordHistory, previousHash)
	if len(a.PasswordHistory) > domain.MaxPasswordHistory {
		a.PasswordHistory = a.PasswordHistory[len(a.PasswordHistory)-domain.MaxPasswordHistory:]
	}
	return nil
}

func (r *memAccountRepo) CompletePasswordReset(_ context.Context, id, token, newHash, previousHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok || a.ResetToken != token {
		return domain.ErrInvalidToken
	}
	a.PasswordHash = newHash
	a.PasswordHistory = append(a.PasswordHistory, previousHash)
	if len(a.PasswordHistory) > domain.MaxPasswordHistory {
		a.PasswordHistory = a.PasswordHistory[len(a.PasswordHistory)-domain.MaxPasswordHistory:]
	}
	a.ResetToken = ""
	a.ResetExpires = nil
	return nil
}

// seed inserts an account directly, bypassing Create.
func (r *memAccountRepo) seed(a *domain.Account) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accounts[a.ID] = a
}

// mutate runs fn against the live record, for test fixture tweaks.
func (r *memAccountRepo) mutate(id string, fn func(*domain.Account)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.accounts[id]; ok {
		fn(a)
	}
}

func copyAccount(a *domain.Account) *domain.Account {
	cp := *a
	cp.Sessions = append([]domain.Session(nil), a.Sessions...)
	cp.PasswordHistory = append([]string(nil), a.PasswordHistory...)
	return &cp
}

type memRecorder struct {
	mu     sync.Mutex
	events []*domain.LoginEvent
}

func (r *memRecorder) Record(e *domain.LoginEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *memRecorder) kinds() []domain.EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.EventKind, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Kind)
	}
	return out
}

type stubScorer struct {
	assessment domain.RiskAssessment
}

func (s *stubScorer) ScoreLogin(context.Context, string, string, string) domain.RiskAssessment {
	return s.assessment
}

type stubThrottle struct {
	allow bool
	err   error
}

func (s *stubThrottle) Allow(context.Context, string) (bool, error) {
	return s.allow, s.err
}

type stubMailer struct {
	mu          sync.Mutex
	welcomes    []string
	resetTokens []string
	err         error
}

func (m *stubMailer) SendWelcome(_ context.Context, email, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.welcomes = append(m.welcomes, email)
	return m.err
}

func (m *stubMailer) SendPasswordReset(_ context.Context, _ string, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetTokens = append(m.resetTokens, token)
	return m.err
}

func (m *stubMailer) lastResetToken(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.resetTokens) == 0 {
		t.Fatalf("no reset token sent")
	}
	return m.resetTokens[len(m.resetTokens)-1]
}

type authFixture struct {
	svc      *AuthService
	repo     *memAccountRepo
	recorder *memRecorder
	mailer   *stubMailer
}

func newAuthFixture(t *testing.T, opts AuthOptions) *authFixture {
	t.Helper()
	repo := newMemAccountRepo()
	recorder := &memRecorder{}
	mailer := &stubMailer{}
	svc := NewAuthService(
		repo,
		newTestIssuer(t),
		&stubScorer{},
		recorder,
		&stubThrottle{allow: true},
		mailer,
		opts,
		zerolog.Nop(),
	)
	return &authFixture{svc: svc, repo: repo, recorder: recorder, mailer: mailer}
}

// seedAccount creates an account with a cheap hash so lockout tests stay fast.
func (f *authFixture) seedAccount(t *testing.T, id, email, password, role string) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	now := time.Now().UTC()
	f.repo.seed(&domain.Account{
		ID:           id,
		Name:         "Test Account",
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
}

func TestLogin_Success(t *testing.T) {
	f := newAuthFixture(t, AuthOptions{})
	f.seedAccount(t, "acc_1", "alice@example.com", "s3cret-pass", domain.RoleUser)

	res, err := f.svc.Login(context.Background(), ports.LoginInput{
		Email:    "alice@example.com",
		Password: "s3cret-pass",
		IP:       "203.0.113.7",
		Device:   "Mozilla/5.0 (Windows NT 10.0)",
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if res.Token == "" {
		t.Fatalf("expected a token")
	}
	if res.Session == nil || res.Session.ID == "" {
		t.Fatalf("expected a session")
	}
	if res.Account.LastLogin == nil {
		t.Fatalf("last login not stamped")
	}

	stored, _ := f.repo.FindByID(context.Background(), "acc_1")
	if len(stored.Sessions) != 1 {
		t.Fatalf("expected 1 stored session, got %d", len(stored.Sessions))
	}
}

func TestLogin_UnknownEmail(t *testing.T) {
	f := newAuthFixture(t, AuthOptions{})

	_, err := f.svc.Login(context.Background(), ports.LoginInput{Email: "nobody@example.com", Password: "x"})
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	f := newAuthFixture(t, AuthOptions{})
	f.seedAccount(t, "acc_1", "alice@example.com", "s3cret-pass", domain.RoleUser)

	_, err := f.svc.Login(context.Background(), ports.LoginInput{Email: "alice@example.com", Password: "wrong"})
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	stored, _ := f.repo.FindByID(context.Background(), "acc_1")
	if stored.LoginAttempts != 1 {
		t.Fatalf("expected attempt count 1, got %d", stored.LoginAttempts)
	}
	kinds := f.recorder.kinds()
	if len(kinds) != 1 || kinds[0] != domain.EventLoginFailed {
		t.Fatalf("expected one login_failed event, got %v", kinds)
	}
}

func TestLogin_LocksAfterMaxAttempts(t *testing.T) {
	f := newAuthFixture(t, AuthOptions{MaxLoginAttempts: 5, LockDuration: 15 * time.Minute})
	f.seedAccount(t, "acc_1", "alice@example.com", "s3cret-pass", domain.RoleUser)

	for i := 0; i < 4; i++ {
		_, err := f.svc.Login(context.Background(), ports.LoginInput{Email: "alice@example.com", Password: "wrong"})
		if !errors.Is(err, domain.ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected ErrInvalidCredentials, got %v", i+1, err)
		}
	}

	// The fifth failure installs the lock and already reports it.
	_, err := f.svc.Login(context.Background(), ports.LoginInput{Email: "alice@example.com", Password: "wrong"})
	var locked *domain.AccountLockedError
	if !errors.As(err, &locked) {
		t.Fatalf("expected AccountLockedError, got %v", err)
	}
	if locked.RemainingMinutes < 1 || locked.RemainingMinutes > 15 {
		t.Fatalf("remaining minutes out of range: %d", locked.RemainingMinutes)
	}
}

func TestLogin_LockedRejectsCorrectPassword(t *testing.T) {
	f := newAuthFixture(t, AuthOptions{MaxLoginAttempts: 2, LockDuration: 15 * time.Minute})
	f.seedAccount(t, "acc_1", "alice@example.com", "s3cret-pass", domain.RoleUser)

	for i := 0; i < 2; i++ {
		f.svc.Login(context.Background(), ports.LoginInput{Email: "alice@example.com", Password: "wrong"})
	}

	_, err := f.svc.Login(context.Background(), ports.LoginInput{Email: "alice@example.com", Password: "s3cret-pass"})
	var locked *domain.AccountLockedError
	if !errors.As(err, &locked) {
		t.Fatalf("correct password on a locked account must still report the lock, got %v", err)
	}
}

func TestLogin_ExpiredLockRestartsCounter(t *testing.T) {
	f := newAuthFixture(t, AuthOptions{MaxLoginAttempts: 3, LockDuration: 15 * time.Minute})
	f.seedAccount(t, "acc_1", "alice@example.com", "s3cret-pass", domain.RoleUser)

	past := time.Now().UTC().Add(-time.Minute)
	f.repo.mutate("acc_1", func(a *domain.Account) {
		a.LoginAttempts = 3
		a.LockUntil = &past
	})

	// First failure after expiry starts a fresh window instead of locking.
	_, err := f.svc.Login(context.Background(), ports.LoginInput{Email: "alice@example.com", Password: "wrong"})
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials after lock expiry, got %v", err)
	}
	stored, _ := f.repo.FindByID(context.Background(), "acc_1")
	if stored.LoginAttempts != 1 {
		t.Fatalf("expected counter restart at 1, got %d", stored.LoginAttempts)
	}
	if stored.LockUntil != nil {
		t.Fatalf("expired lock must be cleared")
	}

	if _, err := f.svc.Login(context.Background(), ports.LoginInput{Email: "alice@example.com", Password: "s3cret-pass"}); err != nil {
		t.Fatalf("login after lock expiry: %v", err)
	}
}

func TestLogin_RoleMismatch(t *testing.T) {
	f := newAuthFixture(t, AuthOptions{})
	f.seedAccount(t, "acc_1", "alice@example.com", "s3cret-pass", domain.RoleEmployer)

	_, err := f.svc.Login(context.Background(), ports.LoginInput{
		Email:    "alice@example.com",
		Password: "s3cret-pass",
		UserType: domain.RoleStudent,
	})
	var mismatch *domain.RoleMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected RoleMismatchError, got %v", err)
	}
	if mismatch.Role != domain.RoleEmployer {
		t.Fatalf("expected actual role in error, got %s", mismatch.Role)
	}
}

func TestLogin_Throttled(t *testing.T) {
	f := newAuthFixture(t, AuthOptions{})
	f.seedAccount(t, "acc_1", "alice@example.com", "s3cret-pass", domain.RoleUser)
	f.svc.throttle = &stubThrottle{allow: false}

	_, err := f.svc.Login(context.Background(), ports.LoginInput{Email: "alice@example.com", Password: "s3cret-pass", IP: "203.0.113.7"})
	if !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}

func TestLogin_ThrottleErrorAllows(t *testing.T) {
	f := newAuthFixture(t, AuthOptions{})
	f.seedAccount(t, "acc_1", "alice@example.com", "s3cret-pass", domain.RoleUser)
	f.svc.throttle = &stubThrottle{allow: false, err: fmt.Errorf("redis down")}

	if _, err := f.svc.Login(context.Background(), ports.LoginInput{Email: "alice@example.com", Password: "s3cret-pass", IP: "203.0.113.7"}); err != nil {
		t.Fatalf("throttle errors must not block login: %v", err)
	}
}

func TestLogin_SessionEviction(t *testing.T) {
	f := newAuthFixture(t, AuthOptions{MaxSessions: 10})
	f.seedAccount(t, "acc_1", "alice@example.com", "s3cret-pass", domain.RoleUser)

	for i := 0; i < 11; i++ {
		_, err := f.svc.Login(context.Background(), ports.LoginInput{
			Email:    "alice@example.com",
			Password: "s3cret-pass",
			Device:   fmt.Sprintf("device-%d", i),
		})
		if err != nil {
			t.Fatalf("login %d: %v", i, err)
		}
	}

	stored, _ := f.repo.FindByID(context.Background(), "acc_1")
	if len(stored.Sessions) != 10 {
		t.Fatalf("expected 10 sessions, got %d", len(stored.Sessions))
	}
	if stored.Sessions[0].Device != "device-1" {
		t.Fatalf("oldest session not evicted first, head is %s", stored.Sessions[0].Device)
	}
	if stored.Sessions[9].Device != "device-10" {
		t.Fatalf("newest session missing, tail is %s", stored.Sessions[9].Device)
	}
}

func TestRegister_SignsIn(t *testing.T) {
	f := newAuthFixture(t, AuthOptions{})

	res, err := f.svc.Register(context.Background(), ports.RegisterInput{
		Name:     "Alice",
		Email:    "alice@example.com",
		Password: "s3cret-pass",
		Role:     domain.RoleStudent,
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if res.Token == "" || res.Session == nil {
		t.Fatalf("registration must sign the caller in")
	}
	if res.Account.Role != domain.RoleStudent {
		t.Fatalf("unexpected role: %s", res.Account.Role)
	}
	if len(f.mailer.welcomes) != 1 {
		t.Fatalf("welcome notification not sent")
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	f := newAuthFixture(t, AuthOptions{})
	f.seedAccount(t, "acc_1", "alice@example.com", "s3cret-pass", domain.RoleUser)

	_, err := f.svc.Register(context.Background(), ports.RegisterInput{
		Name:     "Alice",
		Email:    "alice@example.com",
		Password: "another-pass",
		Role:     domain.RoleUser,
	})
	if !errors.Is(err, domain.ErrAccountExists) {
		t.Fatalf("expected ErrAccountExists, got %v", err)
	}
}

func TestRegister_AdminRoleRejected(t *testing.T) {
	f := newAuthFixture(t, AuthOptions{})

	_, err := f.svc.Register(context.Background(), ports.RegisterInput{
		Name:     "Mallory",
		Email:    "mallory@example.com",
		Password: "s3cret-pass",
		Role:     domain.RoleAdmin,
	})
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("admin self-registration must be rejected, got %v", err)
	}
}

func TestRegister_MailerFailureIgnored(t *testing.T) {
	f := newAuthFixture(t, AuthOptions{})
	f.mailer.err = fmt.Errorf("smtp down")

	if _, err := f.svc.Register(context.Background(), ports.RegisterInput{
		Name:     "Alice",
		Email:    "alice@example.com",
		Password: "s3cret-pass",
		Role:     domain.RoleUser,
	}); err != nil {
		t.Fatalf("mailer failure must not fail registration: %v", err)
	}
}

func TestRefresh_Stateless(t *testing.T) {
	f := newAuthFixture(t, AuthOptions{})
	f.seedAccount(t, "acc_1", "alice@example.com", "s3cret-pass", domain.RoleUser)

	res, err := f.svc.Login(context.Background(), ports.LoginInput{Email: "alice@example.com", Password: "s3cret-pass"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	// Revoking the session does not invalidate the token in stateless mode.
	if err := f.repo.RevokeSession(context.Background(), "acc_1", res.Session.ID); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, err := f.svc.Refresh(context.Background(), res.Token); err != nil {
		t.Fatalf("stateless refresh: %v", err)
	}
}

func TestRefresh_RequireSession(t *testing.T) {
	f := newAuthFixture(t, AuthOptions{RequireSessionOnRefresh: true})
	f.seedAccount(t, "acc_1", "alice@example.com", "s3cret-pass", domain.RoleUser)

	res, err := f.svc.Login(context.Background(), ports.LoginInput{Email: "alice@example.com", Password: "s3cret-pass"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := f.svc.Refresh(context.Background(), res.Token); err != nil {
		t.Fatalf("refresh with live session: %v", err)
	}

	if err := f.repo.RevokeSession(context.Background(), "acc_1", res.Session.ID); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, err := f.svc.Refresh(context.Background(), res.Token); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("refresh after revoke must fail, got %v", err)
	}
}

func TestRefresh_RejectsGarbage(t *testing.T) {
	f := newAuthFixture(t, AuthOptions{})

	if _, err := f.svc.Refresh(context.Background(), "not-a-token"); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestChangePassword_WrongCurrent(t *testing.T) {
	f := newAuthFixture(t, AuthOptions{})
	f.seedAccount(t, "acc_1", "alice@example.com", "s3cret-pass", domain.RoleUser)

	err := f.svc.ChangePassword(context.Background(), "acc_1", "wrong", "brand-new-pass")
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestChangePassword_RejectsReuse(t *testing.T) {
	f := newAuthFixture(t, AuthOptions{})
	f.seedAccount(t, "acc_1", "alice@example.com", "s3cret-pass", domain.RoleUser)

	// Same as the current password.
	if err := f.svc.ChangePassword(context.Background(), "acc_1", "s3cret-pass", "s3cret-pass"); !errors.Is(err, domain.ErrPasswordReused) {
		t.Fatalf("expected ErrPasswordReused for current password, got %v", err)
	}

	// A password still in history.
	if err := f.svc.ChangePassword(context.Background(), "acc_1", "s3cret-pass", "next-pass-1"); err != nil {
		t.Fatalf("change: %v", err)
	}
	if err := f.svc.ChangePassword(context.Background(), "acc_1", "next-pass-1", "s3cret-pass"); !errors.Is(err, domain.ErrPasswordReused) {
		t.Fatalf("expected ErrPasswordReused for historic password, got %v", err)
	}
}

func TestChangePassword_Success(t *testing.T) {
	f := newAuthFixture(t, AuthOptions{})
	f.seedAccount(t, "acc_1", "alice@example.com", "s3cret-pass", domain.RoleUser)

	if err := f.svc.ChangePassword(context.Background(), "acc_1", "s3cret-pass", "brand-new-pass"); err != nil {
		t.Fatalf("change: %v", err)
	}

	if _, err := f.svc.Login(context.Background(), ports.LoginInput{Email: "alice@example.com", Password: "brand-new-pass"}); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
	if _, err := f.svc.Login(context.Background(), ports.LoginInput{Email: "alice@example.com", Password: "s3cret-pass"}); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("old password must stop working, got %v", err)
	}
}
