// Package auth gates the hub behind a single allowed email. A successful
// login issues a signed session token; there are no accounts to manage.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const defaultSessionTTL = 7 * 24 * time.Hour

var (
	// ErrNotAllowed rejects a login for any email other than the owner's.
	ErrNotAllowed = errors.New("auth: email not allowed")

	errMissingSigningSecret = errors.New("auth: signing secret must be provided")
	errMissingAllowedEmail  = errors.New("auth: allowed email must be provided")
	errMissingSubjectClaim  = errors.New("auth: subject claim must be provided")
)

// SessionIssuerConfig configures the session issuer.
type SessionIssuerConfig struct {
	SigningSecret []byte
	AllowedEmail  string
	Issuer        string
	Audience      string
	SessionTTL    time.Duration
	Clock         func() time.Time
}

// SessionIssuer signs and validates the hub's single-user session tokens.
type SessionIssuer struct {
	config SessionIssuerConfig
	clock  func() time.Time
}

// NewSessionIssuer constructs a SessionIssuer with sane defaults.
func NewSessionIssuer(cfg SessionIssuerConfig) *SessionIssuer {
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &SessionIssuer{
		config: SessionIssuerConfig{
			SigningSecret: cfg.SigningSecret,
			AllowedEmail:  strings.ToLower(strings.TrimSpace(cfg.AllowedEmail)),
			Issuer:        cfg.Issuer,
			Audience:      cfg.Audience,
			SessionTTL:    ttl,
			Clock:         clock,
		},
		clock: clock,
	}
}

// Login checks the email against the configured owner (case-insensitive)
// and issues a signed session token plus its expiry in seconds.
func (i *SessionIssuer) Login(_ context.Context, email string) (string, int64, error) {
	if len(i.config.SigningSecret) == 0 {
		return "", 0, errMissingSigningSecret
	}
	if i.config.AllowedEmail == "" {
		return "", 0, errMissingAllowedEmail
	}
	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized != i.config.AllowedEmail {
		return "", 0, ErrNotAllowed
	}

	now := i.clock().UTC()
	expiresAt := now.Add(i.config.SessionTTL).UTC()

	registered := jwt.RegisteredClaims{
		Subject:   normalized,
		Issuer:    i.config.Issuer,
		Audience:  []string{i.config.Audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, registered)
	signed, err := token.SignedString(i.config.SigningSecret)
	if err != nil {
		return "", 0, err
	}

	return signed, int64(expiresAt.Sub(now).Seconds()), nil
}

// ValidateToken ensures the session token is well formed, unexpired and
// still belongs to the allowed email; it returns the subject.
func (i *SessionIssuer) ValidateToken(tokenString string) (string, error) {
	if len(i.config.SigningSecret) == 0 {
		return "", errMissingSigningSecret
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(token *jwt.Token) (interface{}, error) {
			if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
				return nil, fmt.Errorf("unexpected signing algorithm: %s", token.Method.Alg())
			}
			return i.config.SigningSecret, nil
		},
		jwt.WithAudience(i.config.Audience),
		jwt.WithIssuer(i.config.Issuer),
		jwt.WithTimeFunc(i.clock),
	)
	if err != nil {
		return "", err
	}
	if claims.Subject == "" {
		return "", errMissingSubjectClaim
	}
	if claims.Subject != i.config.AllowedEmail {
		return "", ErrNotAllowed
	}
	return claims.Subject, nil
}
