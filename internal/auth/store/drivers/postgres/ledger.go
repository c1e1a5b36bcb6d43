package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

type ledgerRepo struct {
	db dbtx
}

func (r *ledgerRepo) Consume(ctx context.Context, nonce string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO consumed_tokens (nonce, expires_at) VALUES ($1, $2)`, nonce, expiresAt)
	return mapErr(err)
}

func (r *ledgerRepo) Consumed(ctx context.Context, nonce string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM consumed_tokens WHERE nonce = $1`, nonce).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, mapErr(err)
	}
	return true, nil
}

func (r *ledgerRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM consumed_tokens WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, mapErr(err)
	}
	return res.RowsAffected()
}

func (r *ledgerRepo) Ping(ctx context.Context) error {
	var one int
	return mapErr(r.db.QueryRowContext(ctx, `SELECT 1`).Scan(&one))
}
