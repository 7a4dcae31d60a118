// Package auth verifies bearer tokens and turns them into caller identities.
//
// Tokens are HS256 JWTs. Only identity is extracted (sub, email, role); the
// import pipeline records it in logs and the audit trail and makes no
// authorization decisions from it.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/JonMunkholm/userimport/internal/core"
	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid token")
)

// Claims is the token payload.
type Claims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Verifier checks HS256 tokens signed with a shared secret.
type Verifier struct {
	secret   []byte
	issuer   string
	audience string
	now      func() time.Time
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithIssuer requires the iss claim to match.
func WithIssuer(iss string) Option {
	return func(v *Verifier) { v.issuer = iss }
}

// WithAudience requires aud to contain the value.
func WithAudience(aud string) Option {
	return func(v *Verifier) { v.audience = aud }
}

// WithClock overrides the time source used for exp/nbf checks.
func WithClock(now func() time.Time) Option {
	return func(v *Verifier) { v.now = now }
}

// NewVerifier creates a Verifier for the given secret.
func NewVerifier(secret string, opts ...Option) *Verifier {
	v := &Verifier{
		secret: []byte(secret),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify parses and validates a raw token.
func (v *Verifier) Verify(raw string) (core.Caller, error) {
	if raw == "" {
		return core.Caller{}, ErrMissingToken
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(v.now),
	}
	if v.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		parserOpts = append(parserOpts, jwt.WithAudience(v.audience))
	}

	var claims Claims
	t, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, parserOpts...)
	if err != nil || !t.Valid {
		return core.Caller{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" && claims.Email == "" {
		return core.Caller{}, fmt.Errorf("%w: no subject", ErrInvalidToken)
	}

	return core.Caller{
		Subject: claims.Subject,
		Email:   claims.Email,
		Role:    claims.Role,
	}, nil
}

// VerifyRequest reads the Authorization header and verifies its bearer token.
func (v *Verifier) VerifyRequest(r *http.Request) (core.Caller, error) {
	return v.Verify(BearerToken(r))
}

// Sign issues a token for c that expires after ttl. Used by tooling and tests.
func (v *Verifier) Sign(c core.Caller, ttl time.Duration) (string, error) {
	now := v.now()
	claims := Claims{
		Email: c.Email,
		Role:  c.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   c.Subject,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if v.audience != "" {
		claims.Audience = jwt.ClaimStrings{v.audience}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// BearerToken returns the token from an "Authorization: Bearer" header, or "".
func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
