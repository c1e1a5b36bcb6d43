// Package redis keeps the consumed-token ledger in Redis, so that several
// service instances share it without touching the user database.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/aussiebroadwan/bookmarks/internal/auth/store"
	goredis "github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces ledger keys.
const DefaultPrefix = "bookmarks:consumed"

// Ledger implements store.Ledger with one key per nonce, expiring together
// with the token it marks.
type Ledger struct {
	client *goredis.Client
	prefix string
	now    func() time.Time
}

var _ store.Ledger = (*Ledger)(nil)

func NewLedger(client *goredis.Client, prefix string) *Ledger {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Ledger{client: client, prefix: prefix, now: time.Now}
}

// WithClock replaces the clock used to turn an expiry into a TTL.
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	l.now = now
	return l
}

func (l *Ledger) key(nonce string) string {
	return l.prefix + ":" + nonce
}

func (l *Ledger) Consume(ctx context.Context, nonce string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(l.now())
	if ttl < time.Second {
		ttl = time.Second
	}

	ok, err := l.client.SetNX(ctx, l.key(nonce), 1, ttl).Result()
	if err != nil {
		return fmt.Errorf("redis ledger consume: %w", err)
	}
	if !ok {
		return store.ErrAlreadyExists
	}
	return nil
}

func (l *Ledger) Consumed(ctx context.Context, nonce string) (bool, error) {
	n, err := l.client.Exists(ctx, l.key(nonce)).Result()
	if err != nil {
		return false, fmt.Errorf("redis ledger lookup: %w", err)
	}
	return n > 0, nil
}

// DeleteExpired is a no-op: keys carry their own TTL.
func (l *Ledger) DeleteExpired(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func (l *Ledger) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}
