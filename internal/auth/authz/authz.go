// Package authz holds the request authorizers. Each route group is guarded
// by exactly one Authorizer; which one is decided when routes are built.
package authz

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/bookmarks/internal/auth/domain"
	"github.com/aussiebroadwan/bookmarks/pkg/httpx"
	"github.com/aussiebroadwan/bookmarks/pkg/slogx"
)

// Surface names the authorizer that admitted a request.
type Surface string

const (
	SurfaceAPI       Surface = "api"
	SurfaceDashboard Surface = "dashboard"
	SurfaceAction    Surface = "action"
)

// ErrMissingCredentials means the request carried nothing to check.
var ErrMissingCredentials = errors.New("missing credentials")

// Authorizer admits a request, returning it with the principal attached,
// or rejects it. Reject writes the surface specific response.
type Authorizer interface {
	Surface() Surface
	Authorize(r *http.Request) (*http.Request, error)
	Reject(w http.ResponseWriter, r *http.Request, err error)
}

// SessionVerifier checks stateless session tokens against live user state.
type SessionVerifier interface {
	VerifyAccess(ctx context.Context, accessToken string) (string, error)
	VerifyCookie(ctx context.Context, cookieToken, csrf string) (string, error)
}

// ActionValidator resolves out-of-band action tokens.
type ActionValidator interface {
	Validate(ctx context.Context, token, path string) (domain.Action, error)
}

// Guard applies a to every request of next.
func Guard(a Authorizer) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			admitted, err := a.Authorize(r)
			if err != nil {
				a.Reject(w, r, err)
				return
			}
			next.ServeHTTP(w, admitted)
		})
	}
}

// SurfaceFrom returns the surface that admitted the request, or "".
func SurfaceFrom(ctx context.Context) Surface {
	s, _ := ctx.Value(httpx.CtxKeySurface).(Surface)
	return s
}

// ActionFrom returns the action validated by ActionAuthorizer.
func ActionFrom(ctx context.Context) (domain.Action, bool) {
	a, ok := ctx.Value(httpx.CtxKeyAction).(domain.Action)
	return a, ok
}

// BearerToken extracts the token of an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if len(h) < len("Bearer ") || !strings.EqualFold(h[:len("Bearer ")], "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(h[len("Bearer "):])
	return token, token != ""
}

// admit attaches the principal to the request.
func admit(r *http.Request, uid string, surface Surface) *http.Request {
	ctx := httpx.WithUserID(r.Context(), uid)
	ctx = context.WithValue(ctx, httpx.CtxKeySurface, surface)
	ctx = slogx.WithUserID(ctx, uid)
	return r.WithContext(ctx)
}
