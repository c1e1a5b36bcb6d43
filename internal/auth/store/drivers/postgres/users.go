package postgres

import (
	"context"
	"database/sql"

	"github.com/aussiebroadwan/bookmarks/internal/auth/domain"
)

type usersRepo struct {
	db dbtx
}

const userColumns = `uid, username, password_digest, salt, pepper, mfa, mfa_secret, mfa_fallback, confirmed, language, created_at`

func scanUser(row *sql.Row) (domain.User, error) {
	var (
		u                domain.User
		secret, fallback sql.NullString
	)
	err := row.Scan(
		&u.UID, &u.Username, &u.PasswordDigest, &u.Salt, &u.Pepper, &u.MFA,
		&secret, &fallback, &u.Confirmed, &u.Language, &u.CreatedAt,
	)
	if err != nil {
		return domain.User{}, mapErr(err)
	}
	u.MFASecret = stringPtr(secret)
	u.MFAFallback = stringPtr(fallback)
	u.CreatedAt = u.CreatedAt.UTC()
	return u, nil
}

func (r *usersRepo) GetUserByID(ctx context.Context, uid string) (domain.User, error) {
	return scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE uid = $1`, uid))
}

func (r *usersRepo) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	return scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE lower(username) = lower($1)`, username))
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		u.UID, u.Username, u.PasswordDigest, u.Salt, u.Pepper, u.MFA,
		nullString(u.MFASecret), nullString(u.MFAFallback), u.Confirmed, u.Language, u.CreatedAt,
	)
	return mapErr(err)
}

func (r *usersRepo) SetConfirmed(ctx context.Context, uid string) error {
	return requireAffected(r.db.ExecContext(ctx,
		`UPDATE users SET confirmed = TRUE WHERE uid = $1`, uid))
}

func (r *usersRepo) SetLanguage(ctx context.Context, uid, language string) error {
	return requireAffected(r.db.ExecContext(ctx,
		`UPDATE users SET language = $1 WHERE uid = $2`, language, uid))
}

func (r *usersRepo) SetPassword(ctx context.Context, uid, digest, pepper string) error {
	return requireAffected(r.db.ExecContext(ctx,
		`UPDATE users SET password_digest = $1, pepper = $2 WHERE uid = $3`, digest, pepper, uid))
}

func (r *usersRepo) SetMFASecret(ctx context.Context, uid, secret string) error {
	return requireAffected(r.db.ExecContext(ctx,
		`UPDATE users SET mfa_secret = $1 WHERE uid = $2 AND NOT mfa`, secret, uid))
}

func (r *usersRepo) EnableMFA(ctx context.Context, uid, secret, fallback, pepper string) error {
	return requireAffected(r.db.ExecContext(ctx,
		`UPDATE users SET mfa = TRUE, mfa_fallback = $1, pepper = $2 WHERE uid = $3 AND NOT mfa AND mfa_secret = $4`,
		fallback, pepper, uid, secret))
}

func (r *usersRepo) DisableMFA(ctx context.Context, uid, pepper string) error {
	return requireAffected(r.db.ExecContext(ctx,
		`UPDATE users SET mfa = FALSE, mfa_secret = NULL, mfa_fallback = NULL, pepper = $1 WHERE uid = $2`,
		pepper, uid))
}

func (r *usersRepo) SetMFAFallback(ctx context.Context, uid, digest string) error {
	return requireAffected(r.db.ExecContext(ctx,
		`UPDATE users SET mfa_fallback = $1 WHERE uid = $2 AND mfa`, digest, uid))
}

func (r *usersRepo) UpdatePepper(ctx context.Context, uid, pepper string) error {
	return requireAffected(r.db.ExecContext(ctx,
		`UPDATE users SET pepper = $1 WHERE uid = $2`, pepper, uid))
}

func (r *usersRepo) InitPepper(ctx context.Context, uid, pepper string) error {
	return requireAffected(r.db.ExecContext(ctx,
		`UPDATE users SET pepper = $1 WHERE uid = $2 AND pepper = ''`, pepper, uid))
}

func (r *usersRepo) ConsumeMFAFallback(ctx context.Context, uid, digest string) error {
	return requireAffected(r.db.ExecContext(ctx,
		`UPDATE users SET mfa_fallback = NULL WHERE uid = $1 AND mfa_fallback = $2`, uid, digest))
}

func (r *usersRepo) DeleteUser(ctx context.Context, uid string) error {
	return requireAffected(r.db.ExecContext(ctx, `DELETE FROM users WHERE uid = $1`, uid))
}
