package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aussiebroadwan/bookmarks/internal/auth/domain"
	"github.com/aussiebroadwan/bookmarks/internal/auth/store"
	"github.com/aussiebroadwan/bookmarks/pkg/cryptox"
	"github.com/aussiebroadwan/bookmarks/pkg/slogx"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// fallbackCodeLength is the length of the single-use recovery code.
const fallbackCodeLength = 12

var (
	ErrMFANotEnabled     = errors.New("MFA not enabled for this user")
	ErrMFAAlreadyEnabled = errors.New("MFA already enabled for this user")
	ErrMFANotEnrolled    = errors.New("MFA not enrolled")
)

var totpOpts = totp.ValidateOpts{
	Period:    30,
	Skew:      1,
	Digits:    otp.DigitsSix,
	Algorithm: otp.AlgorithmSHA1,
}

type MFAService struct {
	Store  store.Store
	Issuer string // shown in authenticator apps

	// Now defaults to time.Now.
	Now func() time.Time
}

func (s *MFAService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Enroll generates a TOTP secret for the user. MFA stays disabled until
// Enable confirms a code generated from it.
func (s *MFAService) Enroll(ctx context.Context, uid string) (domain.MFAEnrollment, error) {
	u, err := s.Store.Users().GetUserByID(ctx, uid)
	if err != nil {
		return domain.MFAEnrollment{}, fmt.Errorf("get user: %w", err)
	}
	if u.MFA {
		return domain.MFAEnrollment{}, ErrMFAAlreadyEnabled
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.Issuer,
		AccountName: u.Username,
		Period:      totpOpts.Period,
		Digits:      totpOpts.Digits,
		Algorithm:   totpOpts.Algorithm,
	})
	if err != nil {
		return domain.MFAEnrollment{}, fmt.Errorf("generate TOTP key: %w", err)
	}

	secret := key.Secret()
	if err := s.Store.Users().SetMFASecret(ctx, uid, secret); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.MFAEnrollment{}, ErrMFAAlreadyEnabled
		}
		return domain.MFAEnrollment{}, fmt.Errorf("store MFA secret: %w", err)
	}

	return domain.MFAEnrollment{
		Secret:  secret,
		URL:     key.URL(),
		Issuer:  s.Issuer,
		Account: u.Username,
	}, nil
}

// Enable turns MFA on once code matches the enrolled secret. It returns the
// fallback code, which is never shown again, and rotates the pepper.
func (s *MFAService) Enable(ctx context.Context, uid, code string) (domain.FallbackCode, error) {
	u, err := s.Store.Users().GetUserByID(ctx, uid)
	if err != nil {
		return domain.FallbackCode{}, fmt.Errorf("get user: %w", err)
	}
	if u.MFA {
		return domain.FallbackCode{}, ErrMFAAlreadyEnabled
	}
	if u.MFASecret == nil || *u.MFASecret == "" {
		return domain.FallbackCode{}, ErrMFANotEnrolled
	}
	if !validTOTP(code, *u.MFASecret, s.now()) {
		return domain.FallbackCode{}, ErrInvalidOTP
	}

	fallback, digest, err := newFallback(u.Salt)
	if err != nil {
		return domain.FallbackCode{}, err
	}
	pepper, err := cryptox.NewPepper()
	if err != nil {
		return domain.FallbackCode{}, err
	}

	if err := s.Store.Users().EnableMFA(ctx, uid, *u.MFASecret, digest, pepper); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Enabled or re-enrolled since the code was checked.
			return domain.FallbackCode{}, ErrMFAAlreadyEnabled
		}
		return domain.FallbackCode{}, fmt.Errorf("enable MFA: %w", err)
	}

	slogx.FromContext(ctx).Info("mfa enabled", slog.String("user_id", uid))
	return domain.FallbackCode{Code: fallback}, nil
}

// Disable turns MFA off. code may be a TOTP code or the fallback code.
func (s *MFAService) Disable(ctx context.Context, uid, code string) error {
	u, err := s.Store.Users().GetUserByID(ctx, uid)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}
	if !u.MFA {
		return ErrMFANotEnabled
	}
	if err := checkSecondFactor(ctx, s.Store.Users(), u, code, s.now()); err != nil {
		return err
	}

	pepper, err := cryptox.NewPepper()
	if err != nil {
		return err
	}
	if err := s.Store.Users().DisableMFA(ctx, uid, pepper); err != nil {
		return fmt.Errorf("disable MFA: %w", err)
	}

	slogx.FromContext(ctx).Info("mfa disabled", slog.String("user_id", uid))
	return nil
}

// RegenerateFallback replaces the fallback code after a valid TOTP code.
func (s *MFAService) RegenerateFallback(ctx context.Context, uid, code string) (domain.FallbackCode, error) {
	u, err := s.Store.Users().GetUserByID(ctx, uid)
	if err != nil {
		return domain.FallbackCode{}, fmt.Errorf("get user: %w", err)
	}
	if !u.MFA || u.MFASecret == nil {
		return domain.FallbackCode{}, ErrMFANotEnabled
	}
	if !validTOTP(code, *u.MFASecret, s.now()) {
		return domain.FallbackCode{}, ErrInvalidOTP
	}

	fallback, digest, err := newFallback(u.Salt)
	if err != nil {
		return domain.FallbackCode{}, err
	}
	if err := s.Store.Users().SetMFAFallback(ctx, uid, digest); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.FallbackCode{}, ErrMFANotEnabled
		}
		return domain.FallbackCode{}, fmt.Errorf("store fallback: %w", err)
	}
	return domain.FallbackCode{Code: fallback}, nil
}

// checkSecondFactor accepts a live TOTP code or the fallback code. A
// matched fallback is cleared atomically, so it works once.
func checkSecondFactor(ctx context.Context, users store.Users, u domain.User, code string, now time.Time) error {
	fallback, err := matchSecondFactor(u, code, now)
	if err != nil {
		return err
	}
	return consumeFallback(ctx, users, u.UID, fallback)
}

// matchSecondFactor checks code without spending anything. It returns the
// fallback digest when the fallback matched and "" for a TOTP code.
func matchSecondFactor(u domain.User, code string, now time.Time) (string, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", ErrInvalidOTP
	}
	if u.MFASecret != nil && validTOTP(code, *u.MFASecret, now) {
		return "", nil
	}
	if u.MFAFallback == nil || cryptox.VerifyPassword(code, u.Salt, *u.MFAFallback) != nil {
		return "", ErrInvalidOTP
	}
	return *u.MFAFallback, nil
}

// consumeFallback clears digest if it is still the stored fallback. An
// empty digest is a no-op.
func consumeFallback(ctx context.Context, users store.Users, uid, digest string) error {
	if digest == "" {
		return nil
	}
	if err := users.ConsumeMFAFallback(ctx, uid, digest); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidOTP
		}
		return fmt.Errorf("consume fallback: %w", err)
	}
	slogx.FromContext(ctx).Warn("mfa fallback code used", slog.String("user_id", uid))
	return nil
}
