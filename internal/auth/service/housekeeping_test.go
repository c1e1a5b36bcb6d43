package service_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/aussiebroadwan/bookmarks/internal/auth/domain"
	"github.com/aussiebroadwan/bookmarks/internal/auth/service"
	"github.com/stretchr/testify/require"
)

func TestHousekeepingRunOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	uid := f.signup(t, "bea@example.com")

	ledger := f.store.Ledger()
	now := f.clock.Now()
	require.NoError(t, ledger.Consume(ctx, "stale", now.Add(time.Minute)))
	require.NoError(t, ledger.Consume(ctx, "live", now.Add(2*time.Hour)))

	fresh, err := f.actions.Issue(ctx, uid, domain.PurposeResetPassword)
	require.NoError(t, err)

	f.clock.Advance(time.Hour)
	fresh2, err := f.actions.Issue(ctx, uid, domain.PurposeResetPassword)
	require.NoError(t, err)
	require.NotEqual(t, fresh, fresh2)

	hk := service.NewHousekeepingService(f.actions, ledger, slog.New(slog.NewTextHandler(io.Discard, nil)), 0)
	require.Equal(t, time.Hour, hk.Interval)
	hk.Now = f.clock.Now
	hk.RunOnce(ctx)

	spent, err := ledger.Consumed(ctx, "stale")
	require.NoError(t, err)
	require.False(t, spent)

	spent, err = ledger.Consumed(ctx, "live")
	require.NoError(t, err)
	require.True(t, spent)

	// The confirmation from signup expired, the reissued reset did not.
	_, err = f.actions.Validate(ctx, f.notifier.lastToken(t, "confirm"), domain.PathConfirmEmail)
	require.ErrorIs(t, err, service.ErrActionNotFound)
	_, err = f.actions.Validate(ctx, fresh2, domain.PathResetPassword)
	require.NoError(t, err)
}

func TestHousekeepingStartStop(t *testing.T) {
	f := newFixture(t)
	hk := service.NewHousekeepingService(f.actions, f.store.Ledger(), slog.New(slog.NewTextHandler(io.Discard, nil)), time.Millisecond)
	hk.Start()
	time.Sleep(5 * time.Millisecond)
	hk.Stop()
}
