package sqlite

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
		`INSERT INTO actions (token_hash, user_uid, purpose, expires_at) VALUES (?, ?, ?, ?)`,
		a.TokenHash, a.UserUID, string(a.Purpose), toMillis(a.ExpiresAt),
	)
	return mapConstraint(err)
}

func (r *actionsRepo) GetActionByHash(ctx context.Context, hash string) (domain.Action, error) {
	var (
		a         domain.Action
		purpose   string
		expiresAt int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT token_hash, user_uid, purpose, expires_at FROM actions WHERE token_hash = ?`, hash,
	).Scan(&a.TokenHash, &a.UserUID, &purpose, &expiresAt)
	if err != nil {
		return domain.Action{}, mapNotFound(err)
	}
	a.Purpose = domain.Purpose(purpose)
	a.ExpiresAt = fromMillis(expiresAt)
	return a, nil
}

func (r *actionsRepo) DeleteAction(ctx context.Context, hash string) error {
	return requireAffected(r.db.ExecContext(ctx, `DELETE FROM actions WHERE token_hash = ?`, hash))
}

func (r *actionsRepo) DeleteUserActions(ctx context.Context, uid string, purpose domain.Purpose) error {
	if purpose == "" {
		_, err := r.db.ExecContext(ctx, `DELETE FROM actions WHERE user_uid = ?`, uid)
		return err
	}
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM actions WHERE user_uid = ? AND purpose = ?`, uid, string(purpose))
	return err
}

func (r *actionsRepo) DeleteExpiredActions(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM actions WHERE expires_at <= ?`, toMillis(now))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
