package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aussiebroadwan/bookmarks/internal/auth/domain"
	"github.com/aussiebroadwan/bookmarks/internal/auth/store"
	"github.com/aussiebroadwan/bookmarks/pkg/cryptox"
)

var (
	ErrActionNotFound  = errors.New("action not found")
	ErrActionExpired   = errors.New("action expired")
	ErrPurposeMismatch = errors.New("action purpose does not match route")
	ErrInvalidPurpose  = errors.New("invalid action purpose")
)

// ActionService issues and validates the persisted one-time tokens sent in
// confirmation and password reset links.
type ActionService struct {
	Store store.Store

	// TTL defaults to domain.ActionTTL.
	TTL time.Duration

	// Now defaults to time.Now.
	Now func() time.Time
}

func (s *ActionService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *ActionService) ttl() time.Duration {
	if s.TTL > 0 {
		return s.TTL
	}
	return domain.ActionTTL
}

// Issue creates an action token for uid. Earlier pending tokens of the same
// purpose are dropped, so only the newest link works.
func (s *ActionService) Issue(ctx context.Context, uid string, purpose domain.Purpose) (string, error) {
	if !purpose.Valid() {
		return "", ErrInvalidPurpose
	}

	token, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return "", err
	}
	action := domain.Action{
		TokenHash: cryptox.FingerprintToken(token),
		UserUID:   uid,
		Purpose:   purpose,
		ExpiresAt: s.now().Add(s.ttl()),
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Actions().DeleteUserActions(ctx, uid, purpose); err != nil {
			return err
		}
		return tx.Actions().CreateAction(ctx, action)
	})
	if err != nil {
		return "", fmt.Errorf("create action: %w", err)
	}
	return token, nil
}

// Validate resolves token for a request to path. It does not consume the
// token; call Consume once the action has been carried out.
func (s *ActionService) Validate(ctx context.Context, token, path string) (domain.Action, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.Action{}, ErrActionNotFound
	}

	action, err := s.Store.Actions().GetActionByHash(ctx, cryptox.FingerprintToken(token))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Action{}, ErrActionNotFound
		}
		return domain.Action{}, fmt.Errorf("get action: %w", err)
	}

	if action.Expired(s.now()) {
		return domain.Action{}, ErrActionExpired
	}
	if !action.Purpose.Allows(path) {
		return domain.Action{}, ErrPurposeMismatch
	}
	return action, nil
}

// Consume deletes a used action. Losing a race against another request
// consuming the same token yields ErrActionNotFound.
func (s *ActionService) Consume(ctx context.Context, action domain.Action) error {
	return consumeAction(ctx, s.Store.Actions(), action)
}

// SweepExpired deletes every action whose expiry has passed.
func (s *ActionService) SweepExpired(ctx context.Context) (int64, error) {
	n, err := s.Store.Actions().DeleteExpiredActions(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("sweep actions: %w", err)
	}
	return n, nil
}

func consumeAction(ctx context.Context, actions store.Actions, action domain.Action) error {
	if err := actions.DeleteAction(ctx, action.TokenHash); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrActionNotFound
		}
		return fmt.Errorf("delete action: %w", err)
	}
	return nil
}

// IsActionFailure reports whether err is one of the action validation
// failures that end on the generic error page.
func IsActionFailure(err error) bool {
	return errors.Is(err, ErrActionNotFound) ||
		errors.Is(err, ErrActionExpired) ||
		errors.Is(err, ErrPurposeMismatch)
}
