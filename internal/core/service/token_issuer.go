package service

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/talentbridge/auth-service/internal/core/domain"
)

const (
	defaultTokenTTL  = 24 * time.Hour
	extendedTokenTTL = 30 * 24 * time.Hour
	resetTokenTTL    = time.Hour

	resetPurpose = "password_reset"
)

// AccessClaims are the identity claims carried by a bearer token.
type AccessClaims struct {
	AccountID string
	Role      string
	Email     string
}

// TokenIssuer mints and verifies HS256-signed, time-limited tokens: identity
// bearer tokens and purpose-tagged password-reset tokens. Verification is
// purely computational and never touches the account store.
type TokenIssuer struct {
	secret      []byte
	defaultTTL  time.Duration
	extendedTTL time.Duration
	resetTTL    time.Duration
}

// NewTokenIssuer fails with domain.ErrConfig when the signing secret is
// absent, so a misconfigured process dies at startup rather than after a
// password has already been verified.
func NewTokenIssuer(secret string, defaultTTL, extendedTTL, resetTTL time.Duration) (*TokenIssuer, error) {
	if secret == "" {
		return nil, domain.ErrConfig
	}
	if defaultTTL <= 0 {
		defaultTTL = defaultTokenTTL
	}
	if extendedTTL <= 0 {
		extendedTTL = extendedTokenTTL
	}
	if resetTTL <= 0 {
		resetTTL = resetTokenTTL
	}
	return &TokenIssuer{
		secret:      []byte(secret),
		defaultTTL:  defaultTTL,
		extendedTTL: extendedTTL,
		resetTTL:    resetTTL,
	}, nil
}

// Issue mints a bearer token for claims. The extended TTL is only selectable
// here, at issue time; Refresh always falls back to the default TTL.
func (t *TokenIssuer) Issue(claims AccessClaims, extended bool) (string, error) {
	ttl := t.defaultTTL
	if extended {
		ttl = t.extendedTTL
	}
	now := time.Now().UTC()
	return t.sign(jwt.MapClaims{
		"sub":   claims.AccountID,
		"role":  claims.Role,
		"email": claims.Email,
		"iat":   now.Unix(),
		"exp":   now.Add(ttl).Unix(),
	})
}

// Verify parses and validates a bearer token, returning its identity claims.
// Any failure collapses to domain.ErrInvalidToken; reset tokens are rejected
// here so they can never authenticate a request.
func (t *TokenIssuer) Verify(raw string) (*AccessClaims, error) {
	claims, err := t.parse(raw)
	if err != nil {
		return nil, err
	}
	if purpose, _ := claims["purpose"].(string); purpose != "" {
		return nil, domain.ErrInvalidToken
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, domain.ErrInvalidToken
	}
	role, _ := claims["role"].(string)
	email, _ := claims["email"].(string)
	return &AccessClaims{AccountID: sub, Role: role, Email: email}, nil
}

// IssueReset mints a single-purpose password-reset token for the account.
func (t *TokenIssuer) IssueReset(accountID string) (string, time.Time, error) {
	now := time.Now().UTC()
	expires := now.Add(t.resetTTL)
	token, err := t.sign(jwt.MapClaims{
		"sub":     accountID,
		"purpose": resetPurpose,
		"iat":     now.Unix(),
		"exp":     expires.Unix(),
	})
	return token, expires, err
}

// VerifyReset validates a reset token and returns the account id it was
// minted for. Tokens without the reset purpose tag are rejected.
func (t *TokenIssuer) VerifyReset(raw string) (string, error) {
	claims, err := t.parse(raw)
	if err != nil {
		return "", err
	}
	if purpose, _ := claims["purpose"].(string); purpose != resetPurpose {
		return "", domain.ErrInvalidToken
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return "", domain.ErrInvalidToken
	}
	return sub, nil
}

func (t *TokenIssuer) sign(claims jwt.MapClaims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

func (t *TokenIssuer) parse(raw string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	tkn, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return t.secret, nil
	})
	if err != nil || !tkn.Valid {
		return nil, domain.ErrInvalidToken
	}
	return claims, nil
}
