package jwtx

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Kind selects the secret and claim set of a token.
type Kind string

const (
	KindChallenge Kind = "challenge"
	KindAccess    Kind = "access"
	KindRefresh   Kind = "refresh"
	KindCookie    Kind = "cookie"
)

// Kinds lists every token kind the codec must hold a secret for.
var Kinds = []Kind{KindChallenge, KindAccess, KindRefresh, KindCookie}

// MinSecretSize is the smallest HMAC secret accepted, in bytes.
const MinSecretSize = 32

// Secrets maps each kind to its HMAC secret.
type Secrets map[Kind][]byte

var ErrMissingSecret = errors.New("jwtx: missing secret")

// Codec builds and parses the four stateless token kinds. Each kind is
// signed with its own secret so a token of one kind never verifies as
// another.
type Codec struct {
	secrets Secrets
	issuer  string
	method  jwt.SigningMethod
	now     func() time.Time
}

// Option configures a Codec.
type Option func(*Codec)

// WithClock replaces the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) { c.now = now }
}

// NewCodec returns a codec using issuer as both iss and aud. Every kind in
// Kinds must have a secret of at least MinSecretSize bytes.
func NewCodec(issuer string, secrets Secrets, opts ...Option) (*Codec, error) {
	c := &Codec{
		secrets: make(Secrets, len(secrets)),
		issuer:  issuer,
		method:  jwt.SigningMethodHS512,
		now:     time.Now,
	}
	for _, k := range Kinds {
		s := secrets[k]
		if len(s) == 0 {
			return nil, fmt.Errorf("%w for %s tokens", ErrMissingSecret, k)
		}
		if len(s) < MinSecretSize {
			return nil, fmt.Errorf("jwtx: %s secret shorter than %d bytes", k, MinSecretSize)
		}
		c.secrets[k] = append([]byte(nil), s...)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Now returns the codec's current time.
func (c *Codec) Now() time.Time { return c.now() }

// Issuer returns the configured iss/aud value.
func (c *Codec) Issuer() string { return c.issuer }

func (c *Codec) secret(kind Kind) ([]byte, error) {
	s, ok := c.secrets[kind]
	if !ok {
		return nil, fmt.Errorf("%w for %q tokens", ErrMissingSecret, kind)
	}
	return s, nil
}
