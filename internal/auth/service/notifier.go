package service

import (
	"context"
	"log/slog"

	"github.com/aussiebroadwan/bookmarks/internal/auth/domain"
	"github.com/aussiebroadwan/bookmarks/pkg/slogx"
)

// Notifier delivers out-of-band links to a user. Email delivery lives
// outside this service.
type Notifier interface {
	SendConfirmation(ctx context.Context, u domain.User, link string) error
	SendPasswordReset(ctx context.Context, u domain.User, link string) error
}

// LogNotifier writes links to the request logger. Development only.
type LogNotifier struct{}

func (LogNotifier) SendConfirmation(ctx context.Context, u domain.User, link string) error {
	slogx.FromContext(ctx).Info("confirmation link", slog.String("user_id", u.UID), slog.String("link", link))
	return nil
}

func (LogNotifier) SendPasswordReset(ctx context.Context, u domain.User, link string) error {
	slogx.FromContext(ctx).Info("password reset link", slog.String("user_id", u.UID), slog.String("link", link))
	return nil
}
