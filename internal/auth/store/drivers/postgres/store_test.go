package postgres_test

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/aussiebroadwan/bookmarks/internal/auth/domain"
	"github.com/aussiebroadwan/bookmarks/internal/auth/store"
	"github.com/aussiebroadwan/bookmarks/internal/auth/store/drivers/postgres"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

const uid = "01HQ7T3Z1MZ0JQ3M6MZQ1FQ3ZV"

func newMockStore(t *testing.T) (*postgres.Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return postgres.NewStoreFromDB(db), mock
}

var userCols = []string{
	"uid", "username", "password_digest", "salt", "pepper", "mfa",
	"mfa_secret", "mfa_fallback", "confirmed", "language", "created_at",
}

func TestGetUserByID(t *testing.T) {
	ctx := context.Background()
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("found", func(t *testing.T) {
		st, mock := newMockStore(t)
		mock.ExpectQuery(`SELECT .+ FROM users WHERE uid = \$1`).
			WithArgs(uid).
			WillReturnRows(sqlmock.NewRows(userCols).
				AddRow(uid, "alice@example.com", "digest", "salt", "pepper", true, "SECRET", nil, true, "de", created))

		u, err := st.Users().GetUserByID(ctx, uid)
		require.NoError(t, err)
		require.Equal(t, "alice@example.com", u.Username)
		require.True(t, u.MFA)
		require.NotNil(t, u.MFASecret)
		require.Equal(t, "SECRET", *u.MFASecret)
		require.Nil(t, u.MFAFallback)
		require.Equal(t, created, u.CreatedAt)
	})

	t.Run("not found", func(t *testing.T) {
		st, mock := newMockStore(t)
		mock.ExpectQuery(`SELECT .+ FROM users WHERE uid = \$1`).
			WithArgs(uid).
			WillReturnError(sql.ErrNoRows)

		_, err := st.Users().GetUserByID(ctx, uid)
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("driver error is wrapped", func(t *testing.T) {
		st, mock := newMockStore(t)
		mock.ExpectQuery(`SELECT .+ FROM users WHERE uid = \$1`).
			WithArgs(uid).
			WillReturnError(errors.New("db down"))

		_, err := st.Users().GetUserByID(ctx, uid)
		require.ErrorContains(t, err, "db error: db down")
	})
}

func TestCreateUserUniqueViolation(t *testing.T) {
	st, mock := newMockStore(t)
	mock.ExpectExec(`INSERT INTO users`).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key"})

	err := st.Users().CreateUser(context.Background(), domain.User{UID: uid, Username: "alice@example.com"})
	require.ErrorIs(t, err, store.ErrAlreadyExists)
}

func TestUpdatePepper(t *testing.T) {
	ctx := context.Background()
	q := regexp.QuoteMeta(`UPDATE users SET pepper = $1 WHERE uid = $2`)

	t.Run("one row", func(t *testing.T) {
		st, mock := newMockStore(t)
		mock.ExpectExec(q).WithArgs("p2", uid).WillReturnResult(sqlmock.NewResult(0, 1))
		require.NoError(t, st.Users().UpdatePepper(ctx, uid, "p2"))
	})

	t.Run("no row", func(t *testing.T) {
		st, mock := newMockStore(t)
		mock.ExpectExec(q).WithArgs("p2", uid).WillReturnResult(sqlmock.NewResult(0, 0))
		require.ErrorIs(t, st.Users().UpdatePepper(ctx, uid, "p2"), store.ErrNotFound)
	})
}

func TestUserSetters(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		query string
		args  []driver.Value
		call  func(store.Users) error
	}{
		{"confirmed", `UPDATE users SET confirmed = TRUE WHERE uid = $1`,
			[]driver.Value{uid},
			func(u store.Users) error { return u.SetConfirmed(ctx, uid) }},
		{"language", `UPDATE users SET language = $1 WHERE uid = $2`,
			[]driver.Value{"de", uid},
			func(u store.Users) error { return u.SetLanguage(ctx, uid, "de") }},
		{"password", `UPDATE users SET password_digest = $1, pepper = $2 WHERE uid = $3`,
			[]driver.Value{"digest", "p", uid},
			func(u store.Users) error { return u.SetPassword(ctx, uid, "digest", "p") }},
		{"mfa secret", `UPDATE users SET mfa_secret = $1 WHERE uid = $2 AND NOT mfa`,
			[]driver.Value{"S", uid},
			func(u store.Users) error { return u.SetMFASecret(ctx, uid, "S") }},
		{"enable mfa", `UPDATE users SET mfa = TRUE, mfa_fallback = $1, pepper = $2 WHERE uid = $3 AND NOT mfa AND mfa_secret = $4`,
			[]driver.Value{"fb", "p", uid, "S"},
			func(u store.Users) error { return u.EnableMFA(ctx, uid, "S", "fb", "p") }},
		{"disable mfa", `UPDATE users SET mfa = FALSE, mfa_secret = NULL, mfa_fallback = NULL, pepper = $1 WHERE uid = $2`,
			[]driver.Value{"p", uid},
			func(u store.Users) error { return u.DisableMFA(ctx, uid, "p") }},
		{"fallback", `UPDATE users SET mfa_fallback = $1 WHERE uid = $2 AND mfa`,
			[]driver.Value{"fb", uid},
			func(u store.Users) error { return u.SetMFAFallback(ctx, uid, "fb") }},
		{"init pepper", `UPDATE users SET pepper = $1 WHERE uid = $2 AND pepper = ''`,
			[]driver.Value{"p", uid},
			func(u store.Users) error { return u.InitPepper(ctx, uid, "p") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, mock := newMockStore(t)
			q := regexp.QuoteMeta(tt.query)
			mock.ExpectExec(q).WithArgs(tt.args...).WillReturnResult(sqlmock.NewResult(0, 1))
			mock.ExpectExec(q).WithArgs(tt.args...).WillReturnResult(sqlmock.NewResult(0, 0))

			require.NoError(t, tt.call(st.Users()))
			require.ErrorIs(t, tt.call(st.Users()), store.ErrNotFound)
		})
	}
}

func TestConsumeMFAFallback(t *testing.T) {
	st, mock := newMockStore(t)
	q := regexp.QuoteMeta(`UPDATE users SET mfa_fallback = NULL WHERE uid = $1 AND mfa_fallback = $2`)
	mock.ExpectExec(q).WithArgs(uid, "d").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WithArgs(uid, "d").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, st.Users().ConsumeMFAFallback(context.Background(), uid, "d"))
	require.ErrorIs(t, st.Users().ConsumeMFAFallback(context.Background(), uid, "d"), store.ErrNotFound)
}

func TestActions(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("get", func(t *testing.T) {
		st, mock := newMockStore(t)
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT token_hash, user_uid, purpose, expires_at FROM actions WHERE token_hash = $1`)).
			WithArgs("hash").
			WillReturnRows(sqlmock.NewRows([]string{"token_hash", "user_uid", "purpose", "expires_at"}).
				AddRow("hash", uid, "reset-password", now))

		a, err := st.Actions().GetActionByHash(ctx, "hash")
		require.NoError(t, err)
		require.Equal(t, domain.Action{TokenHash: "hash", UserUID: uid, Purpose: domain.PurposeResetPassword, ExpiresAt: now}, a)
	})

	t.Run("sweep", func(t *testing.T) {
		st, mock := newMockStore(t)
		mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM actions WHERE expires_at <= $1`)).
			WithArgs(now).
			WillReturnResult(sqlmock.NewResult(0, 3))

		n, err := st.Actions().DeleteExpiredActions(ctx, now)
		require.NoError(t, err)
		require.EqualValues(t, 3, n)
	})

	t.Run("delete by purpose", func(t *testing.T) {
		st, mock := newMockStore(t)
		mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM actions WHERE user_uid = $1 AND purpose = $2`)).
			WithArgs(uid, "confirm-email").
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, st.Actions().DeleteUserActions(ctx, uid, domain.PurposeConfirmEmail))
	})
}

func TestLedger(t *testing.T) {
	ctx := context.Background()
	exp := time.Date(2024, 3, 1, 12, 5, 0, 0, time.UTC)
	insert := regexp.QuoteMeta(`INSERT INTO consumed_tokens (nonce, expires_at) VALUES ($1, $2)`)
	lookup := regexp.QuoteMeta(`SELECT 1 FROM consumed_tokens WHERE nonce = $1`)

	st, mock := newMockStore(t)
	mock.ExpectExec(insert).WithArgs("n1", exp).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(insert).WithArgs("n1", exp).WillReturnError(&pgconn.PgError{Code: "23505"})
	mock.ExpectQuery(lookup).WithArgs("n1").WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectQuery(lookup).WithArgs("n2").WillReturnError(sql.ErrNoRows)

	require.NoError(t, st.Ledger().Consume(ctx, "n1", exp))
	require.ErrorIs(t, st.Ledger().Consume(ctx, "n1", exp), store.ErrAlreadyExists)

	ok, err := st.Ledger().Consumed(ctx, "n1")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = st.Ledger().Consumed(ctx, "n2")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestWithTx(t *testing.T) {
	ctx := context.Background()

	t.Run("commit", func(t *testing.T) {
		st, mock := newMockStore(t)
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE users SET pepper`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := st.WithTx(ctx, func(tx store.Tx) error {
			return tx.Users().UpdatePepper(ctx, uid, "p")
		})
		require.NoError(t, err)
	})

	t.Run("rollback", func(t *testing.T) {
		st, mock := newMockStore(t)
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE users SET pepper`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err := st.WithTx(ctx, func(tx store.Tx) error {
			return tx.Users().UpdatePepper(ctx, uid, "p")
		})
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}
