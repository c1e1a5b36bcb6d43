package cryptox

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// SecretSize is the length of generated signing secrets in bytes.
const SecretSize = 64

// LoadOrGenerateSecret reads a base64url encoded secret from path. When the
// file does not exist a new random secret is generated and written with
// 0600 permissions, so a fresh deployment boots without manual key setup
// and keeps its tokens valid across restarts.
func LoadOrGenerateSecret(path string) ([]byte, error) {
	path = filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create secret dir: %w", err)
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		secret, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(string(data)))
		if err != nil {
			return nil, fmt.Errorf("decode secret %s: %w", path, err)
		}
		return secret, nil

	case errors.Is(err, fs.ErrNotExist):
		secret := make([]byte, SecretSize)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("generate secret: %w", err)
		}
		encoded := base64.RawURLEncoding.EncodeToString(secret)
		if err := os.WriteFile(path, []byte(encoded), 0o600); err != nil {
			return nil, fmt.Errorf("write secret %s: %w", path, err)
		}
		return secret, nil

	default:
		return nil, fmt.Errorf("read secret %s: %w", path, err)
	}
}
