package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aussiebroadwan/bookmarks/internal/auth/domain"
	"github.com/aussiebroadwan/bookmarks/internal/auth/store"
	"github.com/aussiebroadwan/bookmarks/pkg/cryptox"
	"github.com/aussiebroadwan/bookmarks/pkg/idx"
	"github.com/aussiebroadwan/bookmarks/pkg/jwtx"
	"github.com/aussiebroadwan/bookmarks/pkg/slogx"
)

// ErrUnauthorized is the only failure callers of the session authority get
// to see. The wrapped cause is for logs.
var ErrUnauthorized = errors.New("unauthorized")

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidOTP         = errors.New("invalid otp")
	ErrRevokedToken       = errors.New("revoked token")
	ErrTokenReused        = errors.New("token already used")
	ErrUnknownUser        = errors.New("unknown user")
	ErrCSRFMismatch       = errors.New("csrf mismatch")
)

// Burned on unknown usernames so the response time does not reveal whether
// an account exists.
const (
	dummySalt   = "AAAAAAAAAAAAAAAAAAAAAA"
	dummyDigest = "$argon2id$v=19$m=19456,t=2,p=1$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"
)

func unauthorized(cause error) error {
	return fmt.Errorf("%w: %w", ErrUnauthorized, cause)
}

// LoginResult holds exactly one of its fields: a credential (Pair for the
// API, Session for the dashboard) or a Challenge when MFA is required.
type LoginResult struct {
	Pair      *domain.TokenPair
	Session   *domain.CookieSession
	Challenge *domain.Challenge
}

// SessionService is the session authority. It issues and verifies the
// stateless tokens and revokes them by rotating the user's pepper.
type SessionService struct {
	Store store.Store

	// Ledger records spent single-use tokens. It is usually Store.Ledger(),
	// or Redis when configured.
	Ledger store.Ledger

	Codec      *jwtx.Codec
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	CookieTTL  time.Duration
}

// Login checks username and password. Users without MFA get a token pair,
// users with MFA only a challenge token.
func (s *SessionService) Login(ctx context.Context, username, password string) (LoginResult, error) {
	u, err := s.authenticate(ctx, username, password)
	if err != nil {
		return LoginResult{}, err
	}
	if u.MFA {
		c, err := s.issueChallenge(u)
		return LoginResult{Challenge: c}, err
	}
	pair, err := s.issuePair(ctx, u)
	return LoginResult{Pair: pair}, err
}

// CompleteMFA exchanges a challenge token and a one-time code for a token
// pair. A challenge is spent by the first successful exchange.
func (s *SessionService) CompleteMFA(ctx context.Context, challengeToken, otp string) (*domain.TokenPair, error) {
	u, err := s.completeChallenge(ctx, challengeToken, otp)
	if err != nil {
		return nil, err
	}
	return s.issuePair(ctx, u)
}

// Refresh rotates a refresh token into a new pair. The presented refresh
// token and the access token minted with it are both spent.
func (s *SessionService) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	l := slogx.FromContext(ctx)

	claims, err := s.Codec.Parse(jwtx.KindRefresh, strings.TrimSpace(refreshToken))
	if err != nil {
		return nil, s.reject(ctx, "refresh", err)
	}

	u, err := s.loadUser(ctx, claims.Subject)
	if err != nil {
		return nil, s.reject(ctx, "refresh", err)
	}
	if !cryptox.Equal(claims.Pepper, u.Pepper) {
		return nil, s.reject(ctx, "refresh", ErrRevokedToken)
	}

	if err := s.Ledger.Consume(ctx, claims.Nonce, claims.Expiry()); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			l.Warn("refresh token replayed", slog.String("user_id", u.UID))
			return nil, unauthorized(ErrTokenReused)
		}
		return nil, fmt.Errorf("consume refresh token: %w", err)
	}
	if err := s.spendAccess(ctx, claims.ATID); err != nil {
		return nil, err
	}

	return s.issuePair(ctx, u)
}

// Logout spends a refresh token and its paired access token, plus the
// presented access token if any. Unparseable tokens are ignored so logout
// is idempotent.
func (s *SessionService) Logout(ctx context.Context, refreshToken, accessToken string) error {
	if claims, err := s.Codec.Parse(jwtx.KindRefresh, strings.TrimSpace(refreshToken)); err == nil {
		if err := s.Ledger.Consume(ctx, claims.Nonce, claims.Expiry()); err != nil && !errors.Is(err, store.ErrAlreadyExists) {
			return fmt.Errorf("consume refresh token: %w", err)
		}
		if err := s.spendAccess(ctx, claims.ATID); err != nil {
			return err
		}
	}

	if accessToken == "" {
		return nil
	}
	claims, err := s.Codec.Parse(jwtx.KindAccess, strings.TrimSpace(accessToken))
	if err != nil {
		return nil
	}
	if err := s.Ledger.Consume(ctx, claims.Nonce, claims.Expiry()); err != nil && !errors.Is(err, store.ErrAlreadyExists) {
		return fmt.Errorf("consume access token: %w", err)
	}
	return nil
}

// RevokeAllSessions rotates the user's pepper. Every access, refresh and
// cookie token issued before fails its next check.
func (s *SessionService) RevokeAllSessions(ctx context.Context, uid string) error {
	if err := rotatePepper(ctx, s.Store.Users(), uid); err != nil {
		return err
	}
	slogx.FromContext(ctx).Info("all sessions revoked", slog.String("user_id", uid))
	return nil
}

// StartDashboardSession is Login for the dashboard: it returns a cookie
// session instead of a token pair.
func (s *SessionService) StartDashboardSession(ctx context.Context, username, password string) (LoginResult, error) {
	u, err := s.authenticate(ctx, username, password)
	if err != nil {
		return LoginResult{}, err
	}
	if u.MFA {
		c, err := s.issueChallenge(u)
		return LoginResult{Challenge: c}, err
	}
	sess, err := s.issueCookie(ctx, u)
	return LoginResult{Session: sess}, err
}

// CompleteDashboardMFA is CompleteMFA for the dashboard.
func (s *SessionService) CompleteDashboardMFA(ctx context.Context, challengeToken, otp string) (*domain.CookieSession, error) {
	u, err := s.completeChallenge(ctx, challengeToken, otp)
	if err != nil {
		return nil, err
	}
	return s.issueCookie(ctx, u)
}

// EndDashboardSession spends a cookie token.
func (s *SessionService) EndDashboardSession(ctx context.Context, cookieToken string) error {
	claims, err := s.Codec.Parse(jwtx.KindCookie, cookieToken)
	if err != nil {
		return nil
	}
	if err := s.Ledger.Consume(ctx, claims.Nonce, claims.Expiry()); err != nil && !errors.Is(err, store.ErrAlreadyExists) {
		return fmt.Errorf("consume cookie token: %w", err)
	}
	return nil
}

// VerifyAccess validates a bearer access token against the live user record
// and returns the user uid.
func (s *SessionService) VerifyAccess(ctx context.Context, accessToken string) (string, error) {
	claims, err := s.Codec.Parse(jwtx.KindAccess, accessToken)
	if err != nil {
		return "", unauthorized(err)
	}
	return s.verifySession(ctx, claims)
}

// VerifyCookie validates a dashboard cookie token together with the CSRF
// value sent alongside it and returns the user uid.
func (s *SessionService) VerifyCookie(ctx context.Context, cookieToken, csrf string) (string, error) {
	claims, err := s.Codec.Parse(jwtx.KindCookie, cookieToken)
	if err != nil {
		return "", unauthorized(err)
	}
	if !cryptox.Equal(claims.CSRF, csrf) {
		return "", unauthorized(ErrCSRFMismatch)
	}
	return s.verifySession(ctx, claims)
}

func (s *SessionService) verifySession(ctx context.Context, claims jwtx.Claims) (string, error) {
	spent, err := s.Ledger.Consumed(ctx, claims.Nonce)
	if err != nil {
		return "", fmt.Errorf("check ledger: %w", err)
	}
	if spent {
		return "", unauthorized(ErrRevokedToken)
	}

	u, err := s.loadUser(ctx, claims.Subject)
	if err != nil {
		return "", unauthorized(err)
	}
	if !cryptox.Equal(claims.Pepper, u.Pepper) {
		return "", unauthorized(ErrRevokedToken)
	}
	return u.UID, nil
}

// authenticate verifies primary credentials.
func (s *SessionService) authenticate(ctx context.Context, username, password string) (domain.User, error) {
	username = normalizeUsername(username)

	u, err := s.Store.Users().GetUserByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return domain.User{}, fmt.Errorf("lookup user: %w", err)
		}
		_ = cryptox.VerifyPassword(password, dummySalt, dummyDigest)
		return domain.User{}, s.reject(ctx, "login", ErrInvalidCredentials)
	}

	if err := cryptox.VerifyPassword(password, u.Salt, u.PasswordDigest); err != nil {
		slogx.FromContext(ctx).Info("login failed", slog.String("user_id", u.UID))
		return domain.User{}, unauthorized(ErrInvalidCredentials)
	}
	return u, nil
}

func (s *SessionService) completeChallenge(ctx context.Context, challengeToken, otp string) (domain.User, error) {
	claims, err := s.Codec.Parse(jwtx.KindChallenge, strings.TrimSpace(challengeToken))
	if err != nil {
		return domain.User{}, s.reject(ctx, "mfa", err)
	}

	spent, err := s.Ledger.Consumed(ctx, claims.Nonce)
	if err != nil {
		return domain.User{}, fmt.Errorf("check ledger: %w", err)
	}
	if spent {
		return domain.User{}, s.reject(ctx, "mfa", ErrTokenReused)
	}

	u, err := s.loadUser(ctx, claims.Subject)
	if err != nil {
		return domain.User{}, s.reject(ctx, "mfa", err)
	}
	if !u.MFA {
		return domain.User{}, s.reject(ctx, "mfa", ErrMFANotEnabled)
	}

	fallback, err := matchSecondFactor(u, otp, s.Codec.Now())
	if err != nil {
		slogx.FromContext(ctx).Info("mfa failed", slog.String("user_id", u.UID))
		return domain.User{}, unauthorized(err)
	}

	// The challenge is spent before the fallback, so a concurrent exchange
	// of the same challenge loses here without burning the fallback code.
	if err := s.Ledger.Consume(ctx, claims.Nonce, claims.Expiry()); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, s.reject(ctx, "mfa", ErrTokenReused)
		}
		return domain.User{}, fmt.Errorf("consume challenge: %w", err)
	}
	if err := consumeFallback(ctx, s.Store.Users(), u.UID, fallback); err != nil {
		return domain.User{}, s.reject(ctx, "mfa", err)
	}
	return u, nil
}

func (s *SessionService) issueChallenge(u domain.User) (*domain.Challenge, error) {
	token, err := s.Codec.Issue(jwtx.KindChallenge, u.UID, s.Codec.Now().Add(jwtx.ChallengeTokenTTL), jwtx.Extra{})
	if err != nil {
		return nil, fmt.Errorf("issue challenge token: %w", err)
	}

	methods := []string{domain.MFAMethodTOTP}
	if u.MFAFallback != nil {
		methods = append(methods, domain.MFAMethodFallback)
	}
	return &domain.Challenge{
		ChallengeToken: token,
		Methods:        methods,
		ExpiresIn:      int64(jwtx.ChallengeTokenTTL / time.Second),
	}, nil
}

func (s *SessionService) issuePair(ctx context.Context, u domain.User) (*domain.TokenPair, error) {
	pepper, err := s.ensurePepper(ctx, &u)
	if err != nil {
		return nil, err
	}

	now := s.Codec.Now()
	access, accessClaims, err := s.Codec.IssueClaims(jwtx.KindAccess, u.UID, now.Add(s.AccessTTL), jwtx.Extra{Pepper: pepper})
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := s.Codec.Issue(jwtx.KindRefresh, u.UID, now.Add(s.RefreshTTL), jwtx.Extra{
		Pepper: pepper,
		ATID:   accessClaims.Nonce,
	})
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}

	return &domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.AccessTTL / time.Second),
	}, nil
}

func (s *SessionService) issueCookie(ctx context.Context, u domain.User) (*domain.CookieSession, error) {
	pepper, err := s.ensurePepper(ctx, &u)
	if err != nil {
		return nil, err
	}
	csrf, err := cryptox.GenerateToken(cryptox.TokenSize128)
	if err != nil {
		return nil, err
	}

	expiresAt := s.Codec.Now().Add(s.CookieTTL)
	token, err := s.Codec.Issue(jwtx.KindCookie, u.UID, expiresAt, jwtx.Extra{Pepper: pepper, CSRF: csrf})
	if err != nil {
		return nil, fmt.Errorf("issue cookie token: %w", err)
	}
	return &domain.CookieSession{Token: token, CSRF: csrf, ExpiresAt: expiresAt}, nil
}

// ensurePepper creates the pepper on first issuance. When a concurrent
// issuance set it first, that pepper is used instead.
func (s *SessionService) ensurePepper(ctx context.Context, u *domain.User) (string, error) {
	if u.Pepper != "" {
		return u.Pepper, nil
	}
	pepper, err := cryptox.NewPepper()
	if err != nil {
		return "", err
	}
	err = s.Store.Users().InitPepper(ctx, u.UID, pepper)
	if errors.Is(err, store.ErrNotFound) {
		fresh, err := s.loadUser(ctx, u.UID)
		if err != nil {
			return "", s.reject(ctx, "issue", err)
		}
		if fresh.Pepper == "" {
			return "", fmt.Errorf("store pepper: %w", store.ErrNotFound)
		}
		pepper = fresh.Pepper
	} else if err != nil {
		return "", fmt.Errorf("store pepper: %w", err)
	}
	u.Pepper = pepper
	return pepper, nil
}

// spendAccess marks the access token minted with a refresh token as spent.
// It can live at most AccessTTL from now.
func (s *SessionService) spendAccess(ctx context.Context, atid string) error {
	if atid == "" {
		return nil
	}
	err := s.Ledger.Consume(ctx, atid, s.Codec.Now().Add(s.AccessTTL))
	if err != nil && !errors.Is(err, store.ErrAlreadyExists) {
		return fmt.Errorf("consume access token: %w", err)
	}
	return nil
}

func (s *SessionService) loadUser(ctx context.Context, uid string) (domain.User, error) {
	if !idx.Valid(uid) {
		return domain.User{}, ErrUnknownUser
	}
	u, err := s.Store.Users().GetUserByID(ctx, uid)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrUnknownUser
		}
		return domain.User{}, err
	}
	return u, nil
}

// reject logs the internal cause and returns the collapsed error.
func (s *SessionService) reject(ctx context.Context, op string, cause error) error {
	if !isAuthFailure(cause) {
		return cause
	}
	slogx.FromContext(ctx).Info(op+" rejected", slog.String("reason", cause.Error()))
	return unauthorized(cause)
}

// isAuthFailure reports whether err is a client-caused failure rather than
// a store outage.
func isAuthFailure(err error) bool {
	var te *jwtx.TokenError
	return errors.As(err, &te) ||
		errors.Is(err, ErrInvalidCredentials) ||
		errors.Is(err, ErrInvalidOTP) ||
		errors.Is(err, ErrRevokedToken) ||
		errors.Is(err, ErrTokenReused) ||
		errors.Is(err, ErrUnknownUser) ||
		errors.Is(err, ErrMFANotEnabled)
}

func rotatePepper(ctx context.Context, users store.Users, uid string) error {
	pepper, err := cryptox.NewPepper()
	if err != nil {
		return err
	}
	if err := users.UpdatePepper(ctx, uid, pepper); err != nil {
		return fmt.Errorf("rotate pepper: %w", err)
	}
	return nil
}

func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}
