package jwtx

import (
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Default lifetimes. Access and refresh lifetimes are normally overridden by
// configuration; the challenge lifetime is fixed.
const (
	ChallengeTokenTTL = 5 * time.Minute

	DefaultAccessTokenTTL  = 15 * time.Minute
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
	DefaultCookieTTL       = 24 * time.Hour
)

// Claims are the claims carried by every token kind. Which optional fields
// are populated depends on the kind:
//
//	challenge: nonce
//	access:    nonce, pepper
//	refresh:   nonce, pepper, atid
//	cookie:    nonce, pepper, csrf
type Claims struct {
	jwt.RegisteredClaims

	// Nonce is a fresh random value per token. It makes every token unique
	// and is the key used when a single-use token is consumed.
	Nonce string `json:"nonce"`

	// Pepper is a copy of the user's revocation secret at issue time.
	Pepper string `json:"pepper,omitempty"`

	// ATID is the nonce of the access token minted alongside a refresh token.
	ATID string `json:"atid,omitempty"`

	// CSRF is the anti-forgery value bound to a cookie session.
	CSRF string `json:"csrf,omitempty"`
}

// Extra holds the kind specific claims passed to Issue.
type Extra struct {
	Pepper string
	ATID   string
	CSRF   string
}

// Extra returns the kind specific claims, mostly useful in tests.
func (c *Claims) Extra() Extra {
	return Extra{Pepper: c.Pepper, ATID: c.ATID, CSRF: c.CSRF}
}

// Expiry returns the expiry as a time, or the zero time if absent.
func (c *Claims) Expiry() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// ValidateIssuer checks if the issuer matches expected value.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil
	}
	if c.Issuer != expected {
		return ErrIssuer
	}
	return nil
}

// ValidateAudience checks if at least one expected audience is present.
func (c *Claims) ValidateAudience(expected []string) error {
	if len(expected) == 0 {
		return nil
	}
	for _, want := range expected {
		if slices.Contains(c.Audience, want) {
			return nil
		}
	}
	return ErrAudience
}

// ValidateExpiry reports ErrExpired once now has reached exp.
func (c *Claims) ValidateExpiry(now time.Time) error {
	if c.ExpiresAt == nil {
		return ErrExpired
	}
	if !now.Before(c.ExpiresAt.Time) {
		return ErrExpired
	}
	return nil
}
