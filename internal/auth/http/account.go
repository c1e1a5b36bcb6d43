package http

import (
	"net/http"

	"github.com/aussiebroadwan/bookmarks/internal/auth/service"
	"github.com/aussiebroadwan/bookmarks/pkg/authsdk"
	"github.com/aussiebroadwan/bookmarks/pkg/httpx"
)

// AccountHandler serves signup and the account settings endpoints.
type AccountHandler struct {
	Accounts *service.AccountService
}

// HandleSignup handles POST /v1/account/signup.
func (h *AccountHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req authsdk.SignupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	uid, err := h.Accounts.Signup(r.Context(), req.Username, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, authsdk.SignupResponse{UID: uid})
}

// HandleForgot handles POST /v1/account/forgot. The response is the same
// whether or not the account exists.
func (h *AccountHandler) HandleForgot(w http.ResponseWriter, r *http.Request) {
	var req authsdk.ForgotPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil || req.Username == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	if err := h.Accounts.ForgotPassword(r.Context(), req.Username); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// HandleChangePassword handles POST /v1/account/password.
func (h *AccountHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req authsdk.ChangePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil || req.CurrentPassword == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	uid := httpx.UserIDFrom(r.Context())
	if err := h.Accounts.ChangePassword(r.Context(), uid, req.CurrentPassword, req.NewPassword); err != nil {
		writeServiceError(w, r, err)
		return
	}
	noContent(w)
}

// HandleLanguage handles PUT /v1/account/language.
func (h *AccountHandler) HandleLanguage(w http.ResponseWriter, r *http.Request) {
	var req authsdk.LanguageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	if err := h.Accounts.UpdateLanguage(r.Context(), httpx.UserIDFrom(r.Context()), req.Language); err != nil {
		writeServiceError(w, r, err)
		return
	}
	noContent(w)
}

// HandleDelete handles DELETE /v1/account.
func (h *AccountHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	var req authsdk.DeleteAccountRequest
	if err := decodeJSON(w, r, &req); err != nil || req.Password == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	if err := h.Accounts.DeleteAccount(r.Context(), httpx.UserIDFrom(r.Context()), req.Password); err != nil {
		writeServiceError(w, r, err)
		return
	}
	noContent(w)
}

// HandleProfile handles GET /v1/me and GET /dashboard/me.
func (h *AccountHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	p, err := h.Accounts.Profile(r.Context(), httpx.UserIDFrom(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, authsdk.ProfileResponse{
		UID:       p.UID,
		Username:  p.Username,
		MFA:       p.MFA,
		Confirmed: p.Confirmed,
		Language:  p.Language,
		CreatedAt: p.CreatedAt,
	})
}
