package jwtx

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Reasons a token fails to parse. Every TokenError unwraps to exactly one
// of the first three.
var (
	ErrMalformed  = errors.New("jwtx: malformed token")
	ErrInvalidSig = errors.New("jwtx: invalid signature")
	ErrExpired    = errors.New("jwtx: token expired")

	ErrIssuer   = errors.New("jwtx: issuer mismatch")
	ErrAudience = errors.New("jwtx: audience mismatch")
)

// TokenError describes why Parse rejected a token.
type TokenError struct {
	Kind   Kind
	Reason error // ErrMalformed, ErrInvalidSig or ErrExpired
	Err    error // underlying cause, may be nil
}

func (e *TokenError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s token: %v: %v", e.Kind, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s token: %v", e.Kind, e.Reason)
}

func (e *TokenError) Unwrap() error { return e.Reason }

// Parse verifies raw under the secret of kind and returns its claims.
// Parsing alone does not authorize anything: callers still have to check
// the pepper or CSRF claims against live state.
func (c *Codec) Parse(kind Kind, raw string) (Claims, error) {
	secret, err := c.secret(kind)
	if err != nil {
		return Claims{}, err
	}

	// Claims are validated below against our own clock, the parser only
	// checks structure and signature.
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithoutClaimsValidation(),
	)

	var claims Claims
	token, err := parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return secret, nil
	})
	if err != nil {
		return Claims{}, &TokenError{Kind: kind, Reason: classify(err), Err: err}
	}
	if !token.Valid {
		return Claims{}, &TokenError{Kind: kind, Reason: ErrInvalidSig}
	}

	if err := claims.ValidateIssuer(c.issuer); err != nil {
		return Claims{}, &TokenError{Kind: kind, Reason: ErrMalformed, Err: err}
	}
	if err := claims.ValidateAudience([]string{c.issuer}); err != nil {
		return Claims{}, &TokenError{Kind: kind, Reason: ErrMalformed, Err: err}
	}
	if claims.Subject == "" || claims.Nonce == "" {
		return Claims{}, &TokenError{Kind: kind, Reason: ErrMalformed, Err: errors.New("missing sub or nonce")}
	}
	if err := claims.ValidateExpiry(c.now()); err != nil {
		return Claims{}, &TokenError{Kind: kind, Reason: ErrExpired}
	}

	return claims, nil
}

// classify maps a jwt library error onto one of our three reasons.
func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable):
		return ErrInvalidSig
	default:
		return ErrMalformed
	}
}
