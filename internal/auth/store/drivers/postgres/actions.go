package postgres

import (
	"context"
	"time"

	"github.com/aussiebroadwan/bookmarks/internal/auth/domain"
)

type actionsRepo struct {
	db dbtx
}

func (r *actionsRepo) CreateAction(ctx context.Context, a domain.Action) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO actions (token_hash, user_uid, purpose, expires_at) VALUES ($1, $2, $3, $4)`,
		a.TokenHash, a.UserUID, string(a.Purpose), a.ExpiresAt,
	)
	return mapErr(err)
}

func (r *actionsRepo) GetActionByHash(ctx context.Context, hash string) (domain.Action, error) {
	var (
		a       domain.Action
		purpose string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT token_hash, user_uid, purpose, expires_at FROM actions WHERE token_hash = $1`, hash,
	).Scan(&a.TokenHash, &a.UserUID, &purpose, &a.ExpiresAt)
	if err != nil {
		return domain.Action{}, mapErr(err)
	}
	a.Purpose = domain.Purpose(purpose)
	a.ExpiresAt = a.ExpiresAt.UTC()
	return a, nil
}

func (r *actionsRepo) DeleteAction(ctx context.Context, hash string) error {
	return requireAffected(r.db.ExecContext(ctx, `DELETE FROM actions WHERE token_hash = $1`, hash))
}

func (r *actionsRepo) DeleteUserActions(ctx context.Context, uid string, purpose domain.Purpose) error {
	var err error
	if purpose == "" {
		_, err = r.db.ExecContext(ctx, `DELETE FROM actions WHERE user_uid = $1`, uid)
	} else {
		_, err = r.db.ExecContext(ctx,
			`DELETE FROM actions WHERE user_uid = $1 AND purpose = $2`, uid, string(purpose))
	}
	return mapErr(err)
}

func (r *actionsRepo) DeleteExpiredActions(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM actions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, mapErr(err)
	}
	return res.RowsAffected()
}
