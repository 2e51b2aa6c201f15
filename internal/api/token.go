package api

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenSource holds the session bearer token. When the token is a JWT,
// its exp claim is inspected (without signature verification — the
// backend remains the authority) so that requests with a token already
// known to be dead fail fast instead of burning a round-trip on a 401.
type TokenSource struct {
	raw       string
	expiresAt time.Time
}

// NewTokenSource wraps a raw bearer token.
func NewTokenSource(raw string) *TokenSource {
	ts := &TokenSource{raw: raw}
	if raw == "" {
		return ts
	}
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(raw, claims); err == nil {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			ts.expiresAt = exp.Time
		}
	}
	return ts
}

// Raw returns the token as sent on the wire.
func (ts *TokenSource) Raw() string {
	return ts.raw
}

// CheckExpiry returns ErrSessionExpired when the token's exp claim is in
// the past. Opaque (non-JWT) tokens always pass.
func (ts *TokenSource) CheckExpiry(now time.Time) error {
	if ts.expiresAt.IsZero() {
		return nil
	}
	if now.After(ts.expiresAt) {
		return ErrSessionExpired
	}
	return nil
}
