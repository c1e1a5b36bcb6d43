package sqlite

import (
	"context"
	"database/sql"

	"github.com/aussiebroadwan/bookmarks/internal/auth/domain"
)

type usersRepo struct {
	db dbtx
}

const userColumns = `uid, username, password_digest, salt, pepper, mfa, mfa_secret,
	mfa_fallback, confirmed, language, created_at`

func scanUser(row *sql.Row) (domain.User, error) {
	var (
		u         domain.User
		secret    sql.NullString
		fallback  sql.NullString
		createdAt int64
	)
	err := row.Scan(
		&u.UID, &u.Username, &u.PasswordDigest, &u.Salt, &u.Pepper, &u.MFA,
		&secret, &fallback, &u.Confirmed, &u.Language, &createdAt,
	)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	u.MFASecret = mapNullStringPtr(secret)
	u.MFAFallback = mapNullStringPtr(fallback)
	u.CreatedAt = fromMillis(createdAt)
	return u, nil
}

func (r *usersRepo) GetUserByID(ctx context.Context, uid string) (domain.User, error) {
	return scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE uid = ?`, uid))
}

func (r *usersRepo) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	return scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ? COLLATE NOCASE`, username))
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.UID, u.Username, u.PasswordDigest, u.Salt, u.Pepper, u.MFA,
		mapOptionalString(u.MFASecret), mapOptionalString(u.MFAFallback),
		u.Confirmed, u.Language, toMillis(u.CreatedAt),
	)
	return mapConstraint(err)
}

func (r *usersRepo) SetConfirmed(ctx context.Context, uid string) error {
	return requireAffected(r.db.ExecContext(ctx,
		`UPDATE users SET confirmed = 1 WHERE uid = ?`, uid))
}

func (r *usersRepo) SetLanguage(ctx context.Context, uid, language string) error {
	return requireAffected(r.db.ExecContext(ctx,
		`UPDATE users SET language = ? WHERE uid = ?`, language, uid))
}

func (r *usersRepo) SetPassword(ctx context.Context, uid, digest, pepper string) error {
	return requireAffected(r.db.ExecContext(ctx,
		`UPDATE users SET password_digest = ?, pepper = ? WHERE uid = ?`, digest, pepper, uid))
}

func (r *usersRepo) SetMFASecret(ctx context.Context, uid, secret string) error {
	return requireAffected(r.db.ExecContext(ctx,
		`UPDATE users SET mfa_secret = ? WHERE uid = ? AND mfa = 0`, secret, uid))
}

func (r *usersRepo) EnableMFA(ctx context.Context, uid, secret, fallback, pepper string) error {
	return requireAffected(r.db.ExecContext(ctx, `
		UPDATE users SET mfa = 1, mfa_fallback = ?, pepper = ?
		WHERE uid = ? AND mfa = 0 AND mfa_secret = ?`,
		fallback, pepper, uid, secret))
}

func (r *usersRepo) DisableMFA(ctx context.Context, uid, pepper string) error {
	return requireAffected(r.db.ExecContext(ctx, `
		UPDATE users SET mfa = 0, mfa_secret = NULL, mfa_fallback = NULL, pepper = ?
		WHERE uid = ?`,
		pepper, uid))
}

func (r *usersRepo) SetMFAFallback(ctx context.Context, uid, digest string) error {
	return requireAffected(r.db.ExecContext(ctx,
		`UPDATE users SET mfa_fallback = ? WHERE uid = ? AND mfa = 1`, digest, uid))
}

func (r *usersRepo) UpdatePepper(ctx context.Context, uid, pepper string) error {
	return requireAffected(r.db.ExecContext(ctx,
		`UPDATE users SET pepper = ? WHERE uid = ?`, pepper, uid))
}

func (r *usersRepo) InitPepper(ctx context.Context, uid, pepper string) error {
	return requireAffected(r.db.ExecContext(ctx,
		`UPDATE users SET pepper = ? WHERE uid = ? AND pepper = ''`, pepper, uid))
}

func (r *usersRepo) ConsumeMFAFallback(ctx context.Context, uid, digest string) error {
	return requireAffected(r.db.ExecContext(ctx,
		`UPDATE users SET mfa_fallback = NULL WHERE uid = ? AND mfa_fallback = ?`, uid, digest))
}

func (r *usersRepo) DeleteUser(ctx context.Context, uid string) error {
	return requireAffected(r.db.ExecContext(ctx, `DELETE FROM users WHERE uid = ?`, uid))
}
