package http

import (
	"io"
	"net/http"
	"net/url"

	"github.com/aussiebroadwan/bookmarks/internal/auth/authz"
	"github.com/aussiebroadwan/bookmarks/internal/auth/service"
	"github.com/aussiebroadwan/bookmarks/pkg/httpx"
)

// LoginPath is where completed action links send the browser.
const LoginPath = "/login"

// ActionHandler serves the routes reached from emailed links. Every route
// sits behind authz.ActionAuthorizer, so the action is already validated.
type ActionHandler struct {
	Accounts  *service.AccountService
	ErrorPath string
}

// HandleConfirm handles GET /auth/confirm.
func (h *ActionHandler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	action, _ := authz.ActionFrom(r.Context())
	if err := h.Accounts.ConfirmEmail(r.Context(), action); err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.SeeOther(w, r, LoginPath, url.Values{"confirmed": {"1"}})
}

// HandleResetCheck handles GET /auth/reset-password. The page that renders
// the password form only needs to know the link is good.
func (h *ActionHandler) HandleResetCheck(w http.ResponseWriter, r *http.Request) {
	action, _ := authz.ActionFrom(r.Context())
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"expires_at": action.ExpiresAt,
	})
}

// HandleReset handles POST /auth/reset-password.
func (h *ActionHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	action, _ := authz.ActionFrom(r.Context())
	if err := h.Accounts.ResetPassword(r.Context(), action, r.PostFormValue("password")); err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.SeeOther(w, r, LoginPath, url.Values{"reset": {"1"}})
}

// fail sends action failures, such as a link spent by a concurrent request,
// to the error page and everything else through the API error mapping.
func (h *ActionHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if service.IsActionFailure(err) {
		path := h.ErrorPath
		if path == "" {
			path = authz.DefaultErrorPath
		}
		httpx.SeeOther(w, r, path, nil)
		return
	}
	writeServiceError(w, r, err)
}

// ErrorPage handles GET /error. It says nothing about why a link failed.
func ErrorPage(w http.ResponseWriter, _ *http.Request) {
	httpx.NoCache(w)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusBadRequest)
	_, _ = io.WriteString(w, "This link is invalid or has expired.\n")
}
