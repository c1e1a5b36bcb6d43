package authz

import (
	"net/http"
)

// Defaults for DashboardAuthorizer.
const (
	DefaultCookieName = "bookmarks-session"
	DefaultCSRFHeader = "X-CSRF-Token"
	DefaultCSRFParam  = "csrf"
)

// DashboardAuthorizer guards the browser dashboard. A request with an
// Authorization header is handled exactly like BearerAuthorizer. Otherwise
// the session cookie is required together with a CSRF value, read from the
// CSRF header or form parameter, that matches the one bound into the cookie.
type DashboardAuthorizer struct {
	Sessions SessionVerifier

	CookieName string
	CSRFHeader string
	CSRFParam  string
}

func (a *DashboardAuthorizer) Surface() Surface { return SurfaceDashboard }

func (a *DashboardAuthorizer) Authorize(r *http.Request) (*http.Request, error) {
	if r.Header.Get("Authorization") != "" {
		token, ok := BearerToken(r)
		if !ok {
			return nil, ErrMissingCredentials
		}
		uid, err := a.Sessions.VerifyAccess(r.Context(), token)
		if err != nil {
			return nil, err
		}
		return admit(r, uid, SurfaceDashboard), nil
	}

	c, err := r.Cookie(a.SessionCookieName())
	if err != nil || c.Value == "" {
		return nil, ErrMissingCredentials
	}

	uid, err := a.Sessions.VerifyCookie(r.Context(), c.Value, a.csrf(r))
	if err != nil {
		return nil, err
	}
	return admit(r, uid, SurfaceDashboard), nil
}

func (a *DashboardAuthorizer) Reject(w http.ResponseWriter, r *http.Request, err error) {
	rejectSession(w, r, err, r.Header.Get("Authorization") != "")
}

// SessionCookie returns the session cookie value, or "".
func (a *DashboardAuthorizer) SessionCookie(r *http.Request) string {
	c, err := r.Cookie(a.SessionCookieName())
	if err != nil {
		return ""
	}
	return c.Value
}

// SessionCookieName returns the configured cookie name or the default.
func (a *DashboardAuthorizer) SessionCookieName() string {
	if a.CookieName != "" {
		return a.CookieName
	}
	return DefaultCookieName
}

func (a *DashboardAuthorizer) csrf(r *http.Request) string {
	header := a.CSRFHeader
	if header == "" {
		header = DefaultCSRFHeader
	}
	if v := r.Header.Get(header); v != "" {
		return v
	}

	param := a.CSRFParam
	if param == "" {
		param = DefaultCSRFParam
	}
	return r.FormValue(param)
}
