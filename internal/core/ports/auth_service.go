package ports

import (
	"context"

	"github.com/talentbridge/auth-service/internal/core/domain"
)

// RegisterInput carries the data needed to create a new account.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     string
	IP       string
	Device   string
}

// LoginInput carries one login attempt. UserType, when non-empty, must match
// the account's registered role. RememberMe selects the extended token TTL.
type LoginInput struct {
	Email      string
	Password   string
	UserType   string
	RememberMe bool
	IP         string
	Device     string
}

// AuthResult is returned on successful registration or login.
type AuthResult struct {
	Token   string
	Account *domain.Account
	Session *domain.Session
	Risk    *domain.RiskAssessment
}

// AuthService defines the credential, lockout, and token use cases.
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, in LoginInput) (*AuthResult, error)
	// Refresh re-issues a token with the default TTL from the identity claims
	// of a still-valid token.
	Refresh(ctx context.Context, token string) (string, error)
	ChangePassword(ctx context.Context, accountID, current, next string) error
}

// RiskScorer evaluates one sign-in against the account's recent history.
type RiskScorer interface {
	ScoreLogin(ctx context.Context, accountID, ip, device string) domain.RiskAssessment
}

// LoginThrottle bounds the rate of login attempts per client address. It is
// best-effort: callers treat errors as "allow" and log them.
type LoginThrottle interface {
	Allow(ctx context.Context, ip string) (bool, error)
}
