package http

import (
	"net/http"

	"github.com/aussiebroadwan/bookmarks/internal/auth/authz"
	"github.com/aussiebroadwan/bookmarks/internal/auth/domain"
	"github.com/aussiebroadwan/bookmarks/internal/auth/service"
	"github.com/aussiebroadwan/bookmarks/pkg/authsdk"
	"github.com/aussiebroadwan/bookmarks/pkg/httpx"
)

// DashboardHandler serves the cookie session endpoints used by the browser
// dashboard. Login accepts either a form post or a JSON body.
type DashboardHandler struct {
	Sessions   *service.SessionService
	Authorizer *authz.DashboardAuthorizer

	// SecureCookie sets the Secure attribute. Disable only for plain http
	// development setups.
	SecureCookie bool
}

// HandleLogin handles POST /dashboard/session.
func (h *DashboardHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req authsdk.LoginRequest
	if !h.decode(w, r, &req, func() {
		req.Username, req.Password = r.PostFormValue("username"), r.PostFormValue("password")
	}) || req.Username == "" || req.Password == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	res, err := h.Sessions.StartDashboardSession(r.Context(), req.Username, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if res.Challenge != nil {
		writeChallenge(w, res.Challenge)
		return
	}
	h.writeSession(w, res.Session)
}

// HandleMFA handles POST /dashboard/session/mfa.
func (h *DashboardHandler) HandleMFA(w http.ResponseWriter, r *http.Request) {
	var req authsdk.MFARequest
	if !h.decode(w, r, &req, func() {
		req.ChallengeToken, req.OTP = r.PostFormValue("challenge_token"), r.PostFormValue("otp")
	}) || req.ChallengeToken == "" || req.OTP == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	sess, err := h.Sessions.CompleteDashboardMFA(r.Context(), req.ChallengeToken, req.OTP)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.writeSession(w, sess)
}

// HandleLogout handles POST /dashboard/logout. The cookie session is spent
// and the cookie cleared. A bearer authorized request only clears the cookie.
func (h *DashboardHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if token := h.Authorizer.SessionCookie(r); token != "" {
		if err := h.Sessions.EndDashboardSession(r.Context(), token); err != nil {
			writeServiceError(w, r, err)
			return
		}
	}
	h.clearCookie(w)
	noContent(w)
}

// HandleRevoke handles POST /dashboard/revoke: every session of the user,
// bearer or cookie, stops working.
func (h *DashboardHandler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	if err := h.Sessions.RevokeAllSessions(r.Context(), httpx.UserIDFrom(r.Context())); err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.clearCookie(w)
	noContent(w)
}

func (h *DashboardHandler) decode(w http.ResponseWriter, r *http.Request, v any, fromForm func()) bool {
	if !isForm(r) {
		return decodeJSON(w, r, v) == nil
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		return false
	}
	fromForm()
	return true
}

func (h *DashboardHandler) writeSession(w http.ResponseWriter, s *domain.CookieSession) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.Authorizer.SessionCookieName(),
		Value:    s.Token,
		Path:     "/",
		Expires:  s.ExpiresAt,
		HttpOnly: true,
		Secure:   h.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	httpx.WriteJSON(w, http.StatusOK, authsdk.DashboardSessionResponse{
		CSRFToken: s.CSRF,
		ExpiresAt: s.ExpiresAt,
	})
}

func (h *DashboardHandler) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.Authorizer.SessionCookieName(),
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}
