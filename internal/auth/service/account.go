package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/aussiebroadwan/bookmarks/internal/auth/domain"
	"github.com/aussiebroadwan/bookmarks/internal/auth/store"
	"github.com/aussiebroadwan/bookmarks/pkg/cryptox"
	"github.com/aussiebroadwan/bookmarks/pkg/idx"
	"github.com/aussiebroadwan/bookmarks/pkg/slogx"
)

const (
	MinPasswordLength = 8
	MaxPasswordLength = 128
)

var (
	ErrInvalidUsername     = errors.New("username must be an email address")
	ErrWeakPassword        = errors.New("password must be between 8 and 128 characters")
	ErrUsernameTaken       = errors.New("username already taken")
	ErrUnsupportedLanguage = errors.New("unsupported language")
)

// AccountService carries the account flows around the session authority:
// signup, confirmation, password changes, deletion and preferences.
type AccountService struct {
	Store    store.Store
	Actions  *ActionService
	Notifier Notifier

	// PublicURL is the base of links sent to users.
	PublicURL string

	// Now defaults to time.Now.
	Now func() time.Time
}

func (s *AccountService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Signup creates an unconfirmed user and sends the confirmation link.
func (s *AccountService) Signup(ctx context.Context, username, password string) (string, error) {
	username = normalizeUsername(username)
	if err := validateUsername(username); err != nil {
		return "", err
	}
	if err := validatePassword(password); err != nil {
		return "", err
	}

	salt, err := cryptox.NewSalt()
	if err != nil {
		return "", err
	}
	digest, err := cryptox.HashPassword(password, salt)
	if err != nil {
		return "", err
	}
	pepper, err := cryptox.NewPepper()
	if err != nil {
		return "", err
	}

	u := domain.User{
		UID:            idx.NewAt(s.now()).String(),
		Username:       username,
		PasswordDigest: digest,
		Salt:           salt,
		Pepper:         pepper,
		Language:       domain.DefaultLanguage,
		CreatedAt:      s.now().UTC(),
	}
	if err := s.Store.Users().CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return "", ErrUsernameTaken
		}
		return "", fmt.Errorf("create user: %w", err)
	}

	token, err := s.Actions.Issue(ctx, u.UID, domain.PurposeConfirmEmail)
	if err != nil {
		return "", err
	}
	if err := s.Notifier.SendConfirmation(ctx, u, s.link(domain.PathConfirmEmail, token)); err != nil {
		slogx.FromContext(ctx).Warn("send confirmation failed", slog.String("user_id", u.UID), slog.Any("error", err))
	}

	slogx.FromContext(ctx).Info("user signed up", slog.String("user_id", u.UID))
	return u.UID, nil
}

// ConfirmEmail marks the action's user confirmed and spends the action.
func (s *AccountService) ConfirmEmail(ctx context.Context, action domain.Action) error {
	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := consumeAction(ctx, tx.Actions(), action); err != nil {
			return err
		}
		if err := tx.Users().SetConfirmed(ctx, action.UserUID); err != nil {
			return fmt.Errorf("confirm user: %w", err)
		}
		return nil
	})
}

// ForgotPassword sends a reset link if the user exists. The outcome is the
// same either way.
func (s *AccountService) ForgotPassword(ctx context.Context, username string) error {
	u, err := s.Store.Users().GetUserByUsername(ctx, normalizeUsername(username))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("lookup user: %w", err)
	}

	token, err := s.Actions.Issue(ctx, u.UID, domain.PurposeResetPassword)
	if err != nil {
		return err
	}
	if err := s.Notifier.SendPasswordReset(ctx, u, s.link(domain.PathResetPassword, token)); err != nil {
		slogx.FromContext(ctx).Warn("send password reset failed", slog.String("user_id", u.UID), slog.Any("error", err))
	}
	return nil
}

// ResetPassword sets a new password from a reset action. Every session of
// the user is revoked.
func (s *AccountService) ResetPassword(ctx context.Context, action domain.Action, newPassword string) error {
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := consumeAction(ctx, tx.Actions(), action); err != nil {
			return err
		}
		u, err := tx.Users().GetUserByID(ctx, action.UserUID)
		if err != nil {
			return fmt.Errorf("get user: %w", err)
		}
		return storePassword(ctx, tx.Users(), u, newPassword)
	})
}

// ChangePassword replaces the password after checking the current one and
// revokes every session.
func (s *AccountService) ChangePassword(ctx context.Context, uid, current, newPassword string) error {
	u, err := s.Store.Users().GetUserByID(ctx, uid)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}
	if cryptox.VerifyPassword(current, u.Salt, u.PasswordDigest) != nil {
		return ErrInvalidCredentials
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	if err := storePassword(ctx, s.Store.Users(), u, newPassword); err != nil {
		return err
	}

	slogx.FromContext(ctx).Info("password changed", slog.String("user_id", uid))
	return nil
}

// DeleteAccount removes the user after checking the password. The pepper
// is rotated first so no token outlives the record.
func (s *AccountService) DeleteAccount(ctx context.Context, uid, password string) error {
	u, err := s.Store.Users().GetUserByID(ctx, uid)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}
	if cryptox.VerifyPassword(password, u.Salt, u.PasswordDigest) != nil {
		return ErrInvalidCredentials
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := rotatePepper(ctx, tx.Users(), uid); err != nil {
			return err
		}
		if err := tx.Actions().DeleteUserActions(ctx, uid, ""); err != nil {
			return err
		}
		return tx.Users().DeleteUser(ctx, uid)
	})
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}

	slogx.FromContext(ctx).Info("account deleted", slog.String("user_id", uid))
	return nil
}

func (s *AccountService) UpdateLanguage(ctx context.Context, uid, language string) error {
	language = strings.ToLower(strings.TrimSpace(language))
	if !slices.Contains(domain.Languages, language) {
		return ErrUnsupportedLanguage
	}

	if err := s.Store.Users().SetLanguage(ctx, uid, language); err != nil {
		return fmt.Errorf("set language: %w", err)
	}
	return nil
}

func (s *AccountService) Profile(ctx context.Context, uid string) (domain.Profile, error) {
	u, err := s.Store.Users().GetUserByID(ctx, uid)
	if err != nil {
		return domain.Profile{}, err
	}
	return u.Profile(), nil
}

func (s *AccountService) link(path, token string) string {
	base := strings.TrimRight(s.PublicURL, "/")
	return base + path + "?" + url.Values{"token": {token}}.Encode()
}

// storePassword replaces the digest under the user's salt and rotates the
// pepper. The salt is kept because the MFA fallback digest shares it.
func storePassword(ctx context.Context, users store.Users, u domain.User, password string) error {
	digest, err := cryptox.HashPassword(password, u.Salt)
	if err != nil {
		return err
	}
	pepper, err := cryptox.NewPepper()
	if err != nil {
		return err
	}
	if err := users.SetPassword(ctx, u.UID, digest, pepper); err != nil {
		return fmt.Errorf("store password: %w", err)
	}
	return nil
}

func validateUsername(username string) error {
	addr, err := mail.ParseAddress(username)
	if err != nil || addr.Address != username {
		return ErrInvalidUsername
	}
	return nil
}

func validatePassword(password string) error {
	if n := len(password); n < MinPasswordLength || n > MaxPasswordLength {
		return ErrWeakPassword
	}
	return nil
}
