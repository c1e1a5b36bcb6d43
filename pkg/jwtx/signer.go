package jwtx

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Issue signs a token of the given kind for subject, expiring at expiry.
// A fresh nonce is always embedded. The only failure is a kind without a
// secret, which is a programming error.
func (c *Codec) Issue(kind Kind, subject string, expiry time.Time, extra Extra) (string, error) {
	token, _, err := c.IssueClaims(kind, subject, expiry, extra)
	return token, err
}

// IssueClaims is Issue that also returns the signed claims, so callers can
// reference the nonce (a refresh token records its access token's nonce).
func (c *Codec) IssueClaims(kind Kind, subject string, expiry time.Time, extra Extra) (string, Claims, error) {
	secret, err := c.secret(kind)
	if err != nil {
		return "", Claims{}, err
	}

	claims := c.newClaims(kind, subject, expiry, extra)
	token, err := jwt.NewWithClaims(c.method, claims).SignedString(secret)
	if err != nil {
		return "", Claims{}, err
	}
	return token, claims, nil
}

func (c *Codec) newClaims(kind Kind, subject string, expiry time.Time, extra Extra) Claims {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   subject,
			Audience:  jwt.ClaimStrings{c.issuer},
			IssuedAt:  jwt.NewNumericDate(c.now()),
			ExpiresAt: jwt.NewNumericDate(expiry),
		},
		Nonce: NewNonce(),
	}

	// Only copy the claims that belong to this kind.
	switch kind {
	case KindAccess:
		claims.Pepper = extra.Pepper
	case KindRefresh:
		claims.Pepper = extra.Pepper
		claims.ATID = extra.ATID
	case KindCookie:
		claims.Pepper = extra.Pepper
		claims.CSRF = extra.CSRF
	}

	return claims
}

// NewNonce returns a random UUIDv4 string.
func NewNonce() string {
	return uuid.NewString()
}
