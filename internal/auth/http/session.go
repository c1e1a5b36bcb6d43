package http

import (
	"net/http"

	"github.com/aussiebroadwan/bookmarks/internal/auth/authz"
	"github.com/aussiebroadwan/bookmarks/internal/auth/domain"
	"github.com/aussiebroadwan/bookmarks/internal/auth/service"
	"github.com/aussiebroadwan/bookmarks/pkg/authsdk"
	"github.com/aussiebroadwan/bookmarks/pkg/httpx"
)

// SessionHandler serves the bearer token endpoints.
type SessionHandler struct {
	Sessions *service.SessionService
}

// HandleLogin handles POST /v1/auth/login. 200 with a token pair, or 202
// with a challenge token when the account requires MFA.
func (h *SessionHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req authsdk.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil || req.Username == "" || req.Password == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	res, err := h.Sessions.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if res.Challenge != nil {
		writeChallenge(w, res.Challenge)
		return
	}
	writePair(w, res.Pair)
}

// HandleMFA handles POST /v1/auth/mfa.
func (h *SessionHandler) HandleMFA(w http.ResponseWriter, r *http.Request) {
	var req authsdk.MFARequest
	if err := decodeJSON(w, r, &req); err != nil || req.ChallengeToken == "" || req.OTP == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	pair, err := h.Sessions.CompleteMFA(r.Context(), req.ChallengeToken, req.OTP)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writePair(w, pair)
}

// HandleRefresh handles POST /v1/auth/refresh.
func (h *SessionHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RefreshRequest
	if err := decodeJSON(w, r, &req); err != nil || req.RefreshToken == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	pair, err := h.Sessions.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writePair(w, pair)
}

// HandleLogout handles POST /v1/auth/logout. The access token, if sent, is
// spent too. Always 204 for a well-formed request.
func (h *SessionHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RefreshRequest
	if err := decodeJSON(w, r, &req); err != nil || req.RefreshToken == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	access, _ := authz.BearerToken(r)
	if err := h.Sessions.Logout(r.Context(), req.RefreshToken, access); err != nil {
		writeServiceError(w, r, err)
		return
	}
	noContent(w)
}

// HandleRevoke handles POST /v1/auth/revoke: log out of all devices.
func (h *SessionHandler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	if err := h.Sessions.RevokeAllSessions(r.Context(), httpx.UserIDFrom(r.Context())); err != nil {
		writeServiceError(w, r, err)
		return
	}
	noContent(w)
}

func writePair(w http.ResponseWriter, p *domain.TokenPair) {
	httpx.WriteJSON(w, http.StatusOK, authsdk.TokenResponse{
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
		TokenType:    p.TokenType,
		ExpiresIn:    int(p.ExpiresIn),
	})
}

func writeChallenge(w http.ResponseWriter, c *domain.Challenge) {
	httpx.WriteJSON(w, http.StatusAccepted, authsdk.ChallengeResponse{
		ChallengeToken: c.ChallengeToken,
		Methods:        c.Methods,
		ExpiresIn:      int(c.ExpiresIn),
	})
}
