package authz

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/aussiebroadwan/bookmarks/internal/auth/service"
	"github.com/aussiebroadwan/bookmarks/pkg/httpx"
	"github.com/aussiebroadwan/bookmarks/pkg/slogx"
)

// DefaultErrorPath is where rejected action links land.
const DefaultErrorPath = "/error"

// ActionAuthorizer guards the routes reached from emailed links. The token
// comes from the "token" query or form parameter and must belong to the
// route family of the request path. Failures redirect to a generic error
// page instead of returning an API error.
type ActionAuthorizer struct {
	Actions   ActionValidator
	ErrorPath string
}

func (a *ActionAuthorizer) Surface() Surface { return SurfaceAction }

func (a *ActionAuthorizer) Authorize(r *http.Request) (*http.Request, error) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = r.PostFormValue("token")
	}

	action, err := a.Actions.Validate(r.Context(), token, r.URL.Path)
	if err != nil {
		return nil, err
	}

	r = admit(r, action.UserUID, SurfaceAction)
	return r.WithContext(context.WithValue(r.Context(), httpx.CtxKeyAction, action)), nil
}

func (a *ActionAuthorizer) Reject(w http.ResponseWriter, r *http.Request, err error) {
	log := slogx.FromContext(r.Context())
	if service.IsActionFailure(err) {
		log.Info("action link rejected", slog.String("reason", err.Error()))
	} else if !errors.Is(err, context.Canceled) {
		log.Error("action check failed", slog.Any("error", err))
	}

	path := a.ErrorPath
	if path == "" {
		path = DefaultErrorPath
	}
	httpx.SeeOther(w, r, path, nil)
}
