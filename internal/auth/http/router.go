package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/bookmarks/internal/auth/authz"
	"github.com/aussiebroadwan/bookmarks/internal/auth/service"
	"github.com/aussiebroadwan/bookmarks/internal/auth/store"
	"github.com/aussiebroadwan/bookmarks/pkg/httpx"
	"github.com/aussiebroadwan/bookmarks/pkg/slogx"
)

// CookieOptions configures the dashboard session cookie and CSRF carriers.
// Empty names fall back to the authz defaults.
type CookieOptions struct {
	Name       string
	Secure     bool
	CSRFHeader string
	CSRFParam  string
}

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store  store.Store
	ledger store.Ledger

	SessionService *service.SessionService
	MFAService     *service.MFAService
	AccountService *service.AccountService
	ActionService  *service.ActionService
	Cookie         CookieOptions
}

func NewRouter(buildVersion string, st store.Store, ledger store.Ledger, logger *slog.Logger) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		ledger:       ledger,
		logger:       logger,
		Cookie:       CookieOptions{Secure: true},
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	bearer := &authz.BearerAuthorizer{Sessions: r.SessionService}
	dashboard := &authz.DashboardAuthorizer{
		Sessions:   r.SessionService,
		CookieName: r.Cookie.Name,
		CSRFHeader: r.Cookie.CSRFHeader,
		CSRFParam:  r.Cookie.CSRFParam,
	}
	action := &authz.ActionAuthorizer{Actions: r.ActionService}

	r.registerSessions(bearer)
	r.registerAccount(bearer)
	r.registerMFA(bearer)
	r.registerDashboard(dashboard)
	r.registerActions(action)
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// secured puts h behind a, then limits per authenticated user.
func secured(h http.HandlerFunc, a authz.Authorizer, limit httpx.RateLimitConfig) http.Handler {
	return httpx.Chain(h,
		authz.Guard(a),
		httpx.RateLimitByUser(limit),
	)
}

func (r *Router) registerSessions(bearer authz.Authorizer) {
	h := &SessionHandler{Sessions: r.SessionService}

	// Credential guessing is limited per IP + username
	r.Mux.Handle("POST /v1/auth/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitByIPAndJSONField(httpx.StrictLimit, "username"),
		),
	)
	r.Mux.Handle("POST /v1/auth/mfa",
		httpx.Chain(http.HandlerFunc(h.HandleMFA),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/auth/refresh",
		httpx.Chain(http.HandlerFunc(h.HandleRefresh),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/auth/logout",
		httpx.Chain(http.HandlerFunc(h.HandleLogout),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("POST /v1/auth/revoke", secured(h.HandleRevoke, bearer, httpx.ModerateLimit))
}

func (r *Router) registerAccount(bearer authz.Authorizer) {
	h := &AccountHandler{Accounts: r.AccountService}

	r.Mux.Handle("POST /v1/account/signup",
		httpx.Chain(http.HandlerFunc(h.HandleSignup),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/account/forgot",
		httpx.Chain(http.HandlerFunc(h.HandleForgot),
			httpx.RateLimitByIPAndJSONField(httpx.StrictLimit, "username"),
		),
	)

	r.Mux.Handle("GET /v1/me", secured(h.HandleProfile, bearer, httpx.LenientLimit))
	// Password checks are strict so a stolen access token cannot guess the password
	r.Mux.Handle("POST /v1/account/password", secured(h.HandleChangePassword, bearer, httpx.StrictLimit))
	r.Mux.Handle("PUT /v1/account/language", secured(h.HandleLanguage, bearer, httpx.ModerateLimit))
	r.Mux.Handle("DELETE /v1/account", secured(h.HandleDelete, bearer, httpx.StrictLimit))
}

func (r *Router) registerMFA(bearer authz.Authorizer) {
	h := &MFAHandler{MFAService: r.MFAService}

	r.Mux.Handle("POST /v1/mfa/totp/enroll", secured(h.HandleEnroll, bearer, httpx.ModerateLimit))
	// Code checks are strict to prevent brute force of TOTP codes
	r.Mux.Handle("POST /v1/mfa/totp/enable", secured(h.HandleEnable, bearer, httpx.StrictLimit))
	r.Mux.Handle("DELETE /v1/mfa/totp", secured(h.HandleRemove, bearer, httpx.StrictLimit))
	r.Mux.Handle("POST /v1/mfa/fallback", secured(h.HandleRegenerateFallback, bearer, httpx.StrictLimit))
}

func (r *Router) registerDashboard(dashboard *authz.DashboardAuthorizer) {
	h := &DashboardHandler{
		Sessions:     r.SessionService,
		Authorizer:   dashboard,
		SecureCookie: r.Cookie.Secure,
	}
	profile := &AccountHandler{Accounts: r.AccountService}

	r.Mux.Handle("POST /dashboard/session",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitByIPAndBodyField(httpx.StrictLimit, "username"),
		),
	)
	r.Mux.Handle("POST /dashboard/session/mfa",
		httpx.Chain(http.HandlerFunc(h.HandleMFA),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	r.Mux.Handle("GET /dashboard/me", secured(profile.HandleProfile, dashboard, httpx.LenientLimit))
	r.Mux.Handle("POST /dashboard/logout", secured(h.HandleLogout, dashboard, httpx.ModerateLimit))
	r.Mux.Handle("POST /dashboard/revoke", secured(h.HandleRevoke, dashboard, httpx.ModerateLimit))
}

func (r *Router) registerActions(action authz.Authorizer) {
	h := &ActionHandler{Accounts: r.AccountService}

	// Limited by IP before the token lookup so links cannot be enumerated
	guarded := func(fn http.HandlerFunc) http.Handler {
		return httpx.Chain(fn,
			httpx.RateLimitByIP(httpx.ModerateLimit),
			authz.Guard(action),
		)
	}

	r.Mux.Handle("GET /auth/confirm", guarded(h.HandleConfirm))
	r.Mux.Handle("GET /auth/reset-password", guarded(h.HandleResetCheck))
	r.Mux.Handle("POST /auth/reset-password", guarded(h.HandleReset))

	r.Mux.Handle("GET /error",
		httpx.Chain(http.HandlerFunc(ErrorPage),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
}

func (r *Router) registerSystem() {
	// Probes poll often, so they get the public tier
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.ledger),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
}
