// Package token signs and verifies the self-contained access and refresh
// tokens. Tokens are HS256 JWTs carrying a subject id, a type tag, and the
// issued-at/expiry pair; possession of a token with a valid signature and
// an unexpired timestamp is the entire authorization check. Nothing is
// persisted server-side, which also means a token cannot be revoked before
// its natural expiry.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Kind distinguishes access tokens from refresh tokens. Verification
// rejects a token presented for the wrong use.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// Verification failures are classified so callers can react per cause:
// an expired token prompts a refresh, the others are rejected outright.
var (
	ErrMalformed        = errors.New("token malformed")
	ErrSignatureInvalid = errors.New("token signature invalid")
	ErrExpired          = errors.New("token expired")
	ErrTypeMismatch     = errors.New("token type mismatch")
)

const (
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour
)

type claims struct {
	Kind Kind `json:"typ"`
	jwt.RegisteredClaims
}

// Codec issues and verifies token pairs with a shared HMAC secret.
type Codec struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// Option adjusts Codec behaviour.
type Option func(*Codec)

// WithClock replaces the codec's time source. Intended for tests that
// exercise expiry boundaries.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) { c.now = now }
}

// NewCodec builds a Codec. Non-positive TTLs fall back to the defaults
// (15 minutes access, 7 days refresh).
func NewCodec(secret string, accessTTL, refreshTTL time.Duration, opts ...Option) *Codec {
	if accessTTL <= 0 {
		accessTTL = defaultAccessTTL
	}
	if refreshTTL <= 0 {
		refreshTTL = defaultRefreshTTL
	}
	c := &Codec{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AccessTTL reports the configured access-token lifetime.
func (c *Codec) AccessTTL() time.Duration { return c.accessTTL }

// Issue signs a token of the given kind for subject. The TTL is the
// codec-configured lifetime for that kind.
func (c *Codec) Issue(subject string, kind Kind) (string, error) {
	ttl := c.accessTTL
	if kind == KindRefresh {
		ttl = c.refreshTTL
	}

	now := c.now().UTC()
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	return t.SignedString(c.secret)
}

// Verify checks signature, expiry, and type tag, returning the embedded
// subject id. Failures map onto exactly one of the classified errors so
// the caller can branch with errors.Is.
func (c *Codec) Verify(raw string, want Kind) (string, error) {
	parsed := &claims{}
	t, err := jwt.ParseWithClaims(raw, parsed, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return c.secret, nil
	}, jwt.WithTimeFunc(c.now))
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return "", ErrExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return "", ErrSignatureInvalid
		default:
			return "", ErrMalformed
		}
	}
	if !t.Valid {
		return "", ErrSignatureInvalid
	}
	if parsed.Kind != want {
		return "", ErrTypeMismatch
	}
	if parsed.Subject == "" {
		return "", ErrMalformed
	}
	return parsed.Subject, nil
}
