package authz

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/aussiebroadwan/bookmarks/internal/auth/service"
	"github.com/aussiebroadwan/bookmarks/pkg/authsdk"
	"github.com/aussiebroadwan/bookmarks/pkg/slogx"
)

// BearerAuthorizer guards the API. Only an access token in the
// Authorization header is accepted, cookies are ignored.
type BearerAuthorizer struct {
	Sessions SessionVerifier
}

func (a *BearerAuthorizer) Surface() Surface { return SurfaceAPI }

func (a *BearerAuthorizer) Authorize(r *http.Request) (*http.Request, error) {
	token, ok := BearerToken(r)
	if !ok {
		return nil, ErrMissingCredentials
	}
	uid, err := a.Sessions.VerifyAccess(r.Context(), token)
	if err != nil {
		return nil, err
	}
	return admit(r, uid, SurfaceAPI), nil
}

func (a *BearerAuthorizer) Reject(w http.ResponseWriter, r *http.Request, err error) {
	rejectSession(w, r, err, true)
}

// rejectSession writes the 401 shared by the bearer and dashboard surfaces.
// The reason is logged, never returned.
func rejectSession(w http.ResponseWriter, r *http.Request, err error, bearer bool) {
	log := slogx.FromContext(r.Context())

	if !errors.Is(err, service.ErrUnauthorized) && !errors.Is(err, ErrMissingCredentials) {
		log.Error("session check failed", slog.Any("error", err))
		authsdk.ErrServerError.WriteError(w)
		return
	}

	log.Info("request rejected", slog.String("reason", err.Error()))
	if bearer {
		writeBearerError(w)
	}
	authsdk.ErrInvalidToken.WriteError(w)
}

// writeBearerError sets the RFC 6750 challenge header.
func writeBearerError(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
}
