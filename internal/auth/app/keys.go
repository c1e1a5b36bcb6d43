package app

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/aussiebroadwan/bookmarks/pkg/cryptox"
	"github.com/aussiebroadwan/bookmarks/pkg/jwtx"
)

// InitCodec builds the token codec. A secret set in the environment is used
// as is. Otherwise it is read from, or generated into, <SecretsDir>/<kind>.key
// so that issued tokens survive restarts.
func InitCodec(cfg Config, logger *slog.Logger) (*jwtx.Codec, error) {
	secrets, err := loadSecrets(cfg, logger)
	if err != nil {
		return nil, err
	}

	codec, err := jwtx.NewCodec(cfg.AppName, secrets)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token codec: %w", err)
	}
	return codec, nil
}

func loadSecrets(cfg Config, logger *slog.Logger) (jwtx.Secrets, error) {
	fromEnv := map[jwtx.Kind]string{
		jwtx.KindChallenge: cfg.ChallengeSecret,
		jwtx.KindAccess:    cfg.AccessSecret,
		jwtx.KindRefresh:   cfg.RefreshSecret,
		jwtx.KindCookie:    cfg.CookieSecret,
	}

	secrets := make(jwtx.Secrets, len(jwtx.Kinds))
	for _, kind := range jwtx.Kinds {
		if v := fromEnv[kind]; v != "" {
			secrets[kind] = []byte(v)
			logger.Info("token secret loaded from environment", "kind", kind)
			continue
		}

		path := filepath.Join(cfg.SecretsDir, string(kind)+".key")
		secret, err := cryptox.LoadOrGenerateSecret(path)
		if err != nil {
			return nil, fmt.Errorf("load %s secret: %w", kind, err)
		}
		secrets[kind] = secret
		logger.Info("token secret loaded", "kind", kind, "path", path)
	}
	return secrets, nil
}
