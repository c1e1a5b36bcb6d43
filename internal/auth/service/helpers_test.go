package service_test

import (
	"bytes"
	"context"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/bookmarks/internal/auth/domain"
	"github.com/aussiebroadwan/bookmarks/internal/auth/service"
	"github.com/aussiebroadwan/bookmarks/internal/auth/store"
	"github.com/aussiebroadwan/bookmarks/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/bookmarks/pkg/jwtx"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"
)

const testPassword = "correct horse battery"

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type sentLink struct {
	kind string
	uid  string
	link string
}

type captureNotifier struct {
	mu   sync.Mutex
	sent []sentLink
}

func (n *captureNotifier) SendConfirmation(_ context.Context, u domain.User, link string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentLink{kind: "confirm", uid: u.UID, link: link})
	return nil
}

func (n *captureNotifier) SendPasswordReset(_ context.Context, u domain.User, link string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentLink{kind: "reset", uid: u.UID, link: link})
	return nil
}

// lastToken returns the token query parameter of the newest link of kind.
func (n *captureNotifier) lastToken(t *testing.T, kind string) string {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	for i := len(n.sent) - 1; i >= 0; i-- {
		if n.sent[i].kind != kind {
			continue
		}
		u, err := url.Parse(n.sent[i].link)
		require.NoError(t, err)
		return u.Query().Get("token")
	}
	t.Fatalf("no %s link sent", kind)
	return ""
}

func (n *captureNotifier) count(kind string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, s := range n.sent {
		if s.kind == kind {
			c++
		}
	}
	return c
}

type fixture struct {
	store    *sqlite.Store
	clock    *clock
	codec    *jwtx.Codec
	notifier *captureNotifier

	sessions *service.SessionService
	mfa      *service.MFAService
	actions  *service.ActionService
	accounts *service.AccountService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	clk := &clock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}

	codec, err := jwtx.NewCodec("bookmarks", jwtx.Secrets{
		jwtx.KindChallenge: bytes.Repeat([]byte("c"), 32),
		jwtx.KindAccess:    bytes.Repeat([]byte("a"), 32),
		jwtx.KindRefresh:   bytes.Repeat([]byte("r"), 32),
		jwtx.KindCookie:    bytes.Repeat([]byte("k"), 32),
	}, jwtx.WithClock(clk.Now))
	require.NoError(t, err)

	notifier := &captureNotifier{}
	actions := &service.ActionService{Store: st, Now: clk.Now}

	return &fixture{
		store:    st,
		clock:    clk,
		codec:    codec,
		notifier: notifier,
		sessions: &service.SessionService{
			Store:      st,
			Ledger:     st.Ledger(),
			Codec:      codec,
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 24 * time.Hour,
			CookieTTL:  time.Hour,
		},
		mfa:     &service.MFAService{Store: st, Issuer: "bookmarks", Now: clk.Now},
		actions: actions,
		accounts: &service.AccountService{
			Store:     st,
			Actions:   actions,
			Notifier:  notifier,
			PublicURL: "https://bookmarks.example.com/",
			Now:       clk.Now,
		},
	}
}

// signup creates a user with testPassword and returns its uid.
func (f *fixture) signup(t *testing.T, username string) string {
	t.Helper()
	uid, err := f.accounts.Signup(context.Background(), username, testPassword)
	require.NoError(t, err)
	return uid
}

// enableMFA turns MFA on for uid and returns the TOTP secret and fallback.
func (f *fixture) enableMFA(t *testing.T, uid string) (secret, fallback string) {
	t.Helper()
	ctx := context.Background()

	enrollment, err := f.mfa.Enroll(ctx, uid)
	require.NoError(t, err)

	code, err := f.totp(enrollment.Secret)
	require.NoError(t, err)

	fc, err := f.mfa.Enable(ctx, uid, code)
	require.NoError(t, err)
	require.NotEmpty(t, fc.Code)
	return enrollment.Secret, fc.Code
}

func (f *fixture) totp(secret string) (string, error) {
	return totp.GenerateCodeCustom(secret, f.clock.Now(), totp.ValidateOpts{
		Period:    30,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
}

func (f *fixture) login(t *testing.T, username string) *domain.TokenPair {
	t.Helper()
	res, err := f.sessions.Login(context.Background(), username, testPassword)
	require.NoError(t, err)
	require.NotNil(t, res.Pair)
	require.Nil(t, res.Challenge)
	return res.Pair
}

// hookStore runs afterRead once, right after the next user row is read, as
// if another request had run between that read and whatever follows it.
type hookStore struct {
	store.Store

	mu        sync.Mutex
	afterRead func()
}

func (s *hookStore) Users() store.Users {
	return hookUsers{Users: s.Store.Users(), s: s}
}

func (s *hookStore) fire() {
	s.mu.Lock()
	fn := s.afterRead
	s.afterRead = nil
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

type hookUsers struct {
	store.Users
	s *hookStore
}

func (u hookUsers) GetUserByID(ctx context.Context, uid string) (domain.User, error) {
	user, err := u.Users.GetUserByID(ctx, uid)
	u.s.fire()
	return user, err
}

func (u hookUsers) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	user, err := u.Users.GetUserByUsername(ctx, username)
	u.s.fire()
	return user, err
}

// interleaved returns a fixture whose services run fn after their next user
// read. f's own services stay unhooked, so fn can use them freely.
func (f *fixture) interleaved(fn func()) *fixture {
	hs := &hookStore{Store: f.store, afterRead: fn}

	g := *f
	sessions, accounts, mfa := *f.sessions, *f.accounts, *f.mfa
	sessions.Store, accounts.Store, mfa.Store = hs, hs, hs
	g.sessions, g.accounts, g.mfa = &sessions, &accounts, &mfa
	return &g
}
