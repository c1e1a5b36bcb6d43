package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/bookmarks/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite, postgres)
// implement this. Sub-repositories are exposed as methods so a Tx can hand out
// the same repos bound to the transaction, and nothing opens a transaction
// inside another by accident.
type Store interface {
	Users() Users
	Actions() Actions

	// Ledger is the database-backed consumed-token ledger. Deployments with
	// Redis configured use the redis driver instead.
	Ledger() Ledger

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx runs fn in a transaction, committing when fn returns nil and
	// rolling back otherwise. Inside fn only tx may be used.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

// Users is the credential store.
type Users interface {
	GetUserByID(ctx context.Context, uid string) (domain.User, error)

	// GetUserByUsername looks up the login name, case-insensitively.
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)

	// CreateUser inserts a new user. A taken username yields ErrAlreadyExists.
	CreateUser(ctx context.Context, u domain.User) error

	// The setters below write only their own columns, so a flow that read
	// the row earlier never puts back a pepper or fallback digest that was
	// changed in between. A missing user yields ErrNotFound.

	SetConfirmed(ctx context.Context, uid string) error
	SetLanguage(ctx context.Context, uid, language string) error

	// SetPassword stores a new digest under the existing salt together with
	// a fresh pepper.
	SetPassword(ctx context.Context, uid, digest, pepper string) error

	// SetMFASecret records an enrollment. ErrNotFound also covers a user
	// whose MFA is already enabled.
	SetMFASecret(ctx context.Context, uid, secret string) error

	// EnableMFA switches MFA on only while it is off and secret is still the
	// enrolled one, storing the fallback digest and a fresh pepper.
	EnableMFA(ctx context.Context, uid, secret, fallback, pepper string) error

	// DisableMFA clears the secret and fallback and stores a fresh pepper.
	DisableMFA(ctx context.Context, uid, pepper string) error

	// SetMFAFallback replaces the fallback digest of a user with MFA on.
	SetMFAFallback(ctx context.Context, uid, digest string) error

	// UpdatePepper replaces the revocation pepper. It is a single row write
	// so that revocation is visible to the next request.
	UpdatePepper(ctx context.Context, uid, pepper string) error

	// InitPepper sets the pepper only while it is still empty. ErrNotFound
	// means another request set it first.
	InitPepper(ctx context.Context, uid, pepper string) error

	// ConsumeMFAFallback clears the fallback digest only if it still equals
	// digest. ErrNotFound means another request already used it.
	ConsumeMFAFallback(ctx context.Context, uid, digest string) error

	// DeleteUser cascades to the user's actions.
	DeleteUser(ctx context.Context, uid string) error
}

// Actions is the out-of-band action token store.
type Actions interface {
	CreateAction(ctx context.Context, a domain.Action) error

	// GetActionByHash returns the action whose token fingerprint is hash,
	// expired or not.
	GetActionByHash(ctx context.Context, hash string) (domain.Action, error)

	DeleteAction(ctx context.Context, hash string) error

	// DeleteUserActions removes every pending action of a user, optionally
	// restricted to one purpose ("" means all).
	DeleteUserActions(ctx context.Context, uid string, purpose domain.Purpose) error

	// DeleteExpiredActions removes actions with expires_at <= now.
	DeleteExpiredActions(ctx context.Context, now time.Time) (int64, error)
}

// Ledger records the nonces of spent stateless tokens (used challenges,
// rotated refresh tokens and the access tokens paired with them) until they
// would have expired anyway.
type Ledger interface {
	// Consume records nonce. ErrAlreadyExists means it was consumed before.
	Consume(ctx context.Context, nonce string, expiresAt time.Time) error

	// Consumed reports whether nonce has been recorded and not yet swept.
	Consumed(ctx context.Context, nonce string) (bool, error)

	// DeleteExpired drops markers with expires_at <= now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)

	Ping(ctx context.Context) error
}
