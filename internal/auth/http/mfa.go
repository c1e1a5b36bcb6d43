package http

import (
	"net/http"

	"github.com/aussiebroadwan/bookmarks/internal/auth/service"
	"github.com/aussiebroadwan/bookmarks/pkg/authsdk"
	"github.com/aussiebroadwan/bookmarks/pkg/httpx"
)

// MFAHandler handles all MFA-related endpoints.
type MFAHandler struct {
	MFAService *service.MFAService
}

// HandleEnroll handles POST /v1/mfa/totp/enroll
func (h *MFAHandler) HandleEnroll(w http.ResponseWriter, r *http.Request) {
	enrollment, err := h.MFAService.Enroll(r.Context(), httpx.UserIDFrom(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, authsdk.TOTPEnrollResponse{
		Secret:  enrollment.Secret,
		URL:     enrollment.URL,
		Issuer:  enrollment.Issuer,
		Account: enrollment.Account,
	})
}

// HandleEnable handles POST /v1/mfa/totp/enable. The fallback code in the
// response is never shown again.
func (h *MFAHandler) HandleEnable(w http.ResponseWriter, r *http.Request) {
	code, ok := readCode(w, r)
	if !ok {
		return
	}

	fallback, err := h.MFAService.Enable(r.Context(), httpx.UserIDFrom(r.Context()), code)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, authsdk.FallbackCodeResponse{FallbackCode: fallback.Code})
}

// HandleRemove handles DELETE /v1/mfa/totp
func (h *MFAHandler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	code, ok := readCode(w, r)
	if !ok {
		return
	}

	if err := h.MFAService.Disable(r.Context(), httpx.UserIDFrom(r.Context()), code); err != nil {
		writeServiceError(w, r, err)
		return
	}
	noContent(w)
}

// HandleRegenerateFallback handles POST /v1/mfa/fallback
func (h *MFAHandler) HandleRegenerateFallback(w http.ResponseWriter, r *http.Request) {
	code, ok := readCode(w, r)
	if !ok {
		return
	}

	fallback, err := h.MFAService.RegenerateFallback(r.Context(), httpx.UserIDFrom(r.Context()), code)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, authsdk.FallbackCodeResponse{FallbackCode: fallback.Code})
}

func readCode(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req authsdk.CodeRequest
	if err := decodeJSON(w, r, &req); err != nil || req.Code == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return "", false
	}
	return req.Code, true
}
