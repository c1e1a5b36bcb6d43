package cryptox

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters for new digests. Verification reads the parameters
// back out of the stored digest, so these can be raised later.
const (
	memory      = 19 * 1024 // KiB
	iterations  = 2
	parallelism = 1
	keyLength   = 32
	saltLength  = 16
)

var (
	ErrPasswordMismatch = errors.New("cryptox: password does not match")
	ErrInvalidDigest    = errors.New("cryptox: invalid digest format")
)

// NewSalt returns a random per-user salt, base64 encoded.
func NewSalt() (string, error) {
	buf := make([]byte, saltLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}
	return base64.RawStdEncoding.EncodeToString(buf), nil
}

// HashPassword derives an Argon2id digest of password under salt. The salt
// is stored next to the digest on the user record, so the encoded form only
// carries the parameters and the key:
//
//	$argon2id$v=19$m=19456,t=2,p=1$<key>
func HashPassword(password, salt string) (string, error) {
	rawSalt, err := base64.RawStdEncoding.DecodeString(salt)
	if err != nil || len(rawSalt) == 0 {
		return "", fmt.Errorf("cryptox: invalid salt")
	}

	key := argon2.IDKey([]byte(password), rawSalt, iterations, memory, parallelism, keyLength)

	return fmt.Sprintf(
		"$argon2id$v=19$m=%d,t=%d,p=%d$%s",
		memory,
		iterations,
		parallelism,
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// VerifyPassword recomputes the digest of password under salt using the
// parameters encoded in digest and compares in constant time.
func VerifyPassword(password, salt, digest string) error {
	// ["", "argon2id", "v=19", "m=X,t=Y,p=Z", "key"]
	parts := strings.Split(digest, "$")
	if len(parts) != 5 || parts[0] != "" || parts[1] != "argon2id" || parts[2] != "v=19" {
		return ErrInvalidDigest
	}

	var mem, iters uint32
	var par uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &mem, &iters, &par); err != nil {
		return fmt.Errorf("%w: parameters: %v", ErrInvalidDigest, err)
	}

	expected, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(expected) == 0 {
		return fmt.Errorf("%w: key", ErrInvalidDigest)
	}

	rawSalt, err := base64.RawStdEncoding.DecodeString(salt)
	if err != nil || len(rawSalt) == 0 {
		return fmt.Errorf("%w: salt", ErrInvalidDigest)
	}

	computed := argon2.IDKey(
		[]byte(password),
		rawSalt,
		iters,
		mem,
		par,
		uint32(len(expected)), // #nosec G115 - bounded by the decoded key
	)

	if subtle.ConstantTimeCompare(computed, expected) == 1 {
		return nil
	}
	return ErrPasswordMismatch
}

// fallbackCharset leaves out characters that are easy to misread.
const fallbackCharset = "abcdefghjkmnpqrstuvwxyzACDEFGHJKLMNPQRSTUVWXYZ23456789"

// GenerateFallbackCode returns a random human-typable code of length n.
func GenerateFallbackCode(n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("code length must be positive, got %d", n)
	}
	code := make([]byte, n)
	for i := range code {
		idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(fallbackCharset))))
		if err != nil {
			return "", fmt.Errorf("failed to generate code: %w", err)
		}
		code[i] = fallbackCharset[idx.Int64()]
	}
	return string(code), nil
}
