package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"

	"github.com/aussiebroadwan/bookmarks/internal/auth/service"
	"github.com/aussiebroadwan/bookmarks/internal/auth/store"
	"github.com/aussiebroadwan/bookmarks/pkg/authsdk"
	"github.com/aussiebroadwan/bookmarks/pkg/httpx"
	"github.com/aussiebroadwan/bookmarks/pkg/slogx"
)

// maxBodyBytes caps every request body.
const maxBodyBytes = 64 << 10

// decodeJSON reads a JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// isForm reports whether the body is a urlencoded or multipart form.
func isForm(r *http.Request) bool {
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return mt == "application/x-www-form-urlencoded" || mt == "multipart/form-data"
}

// writeServiceError maps a service error onto its API error. Every
// authentication failure becomes the same 401 body.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	log := slogx.FromContext(r.Context())

	var apiErr *authsdk.APIError
	switch {
	case errors.Is(err, service.ErrUnauthorized):
		apiErr = authsdk.ErrUnauthorized
	case errors.Is(err, store.ErrNotFound):
		// The authenticated user vanished mid-request.
		apiErr = authsdk.ErrInvalidToken
	case errors.Is(err, service.ErrUsernameTaken):
		apiErr = authsdk.ErrUsernameTaken
	case errors.Is(err, service.ErrInvalidUsername):
		apiErr = authsdk.ErrInvalidUsername
	case errors.Is(err, service.ErrWeakPassword):
		apiErr = authsdk.ErrWeakPassword
	case errors.Is(err, service.ErrInvalidCredentials):
		apiErr = authsdk.ErrInvalidPassword
	case errors.Is(err, service.ErrInvalidOTP):
		apiErr = authsdk.ErrInvalidCode
	case errors.Is(err, service.ErrMFANotEnabled):
		apiErr = authsdk.ErrMFANotEnabled
	case errors.Is(err, service.ErrMFANotEnrolled):
		apiErr = authsdk.ErrMFANotEnrolled
	case errors.Is(err, service.ErrMFAAlreadyEnabled):
		apiErr = authsdk.ErrMFAAlreadyEnabled
	case errors.Is(err, service.ErrUnsupportedLanguage):
		apiErr = authsdk.ErrUnsupportedLanguage
	default:
		log.Error("request failed", slog.Any("error", err))
		authsdk.ErrServerError.WriteError(w)
		return
	}

	log.Info("request refused", slog.String("error_code", apiErr.Code), slog.String("reason", err.Error()))
	apiErr.WriteError(w)
}

func noContent(w http.ResponseWriter) {
	httpx.NoCache(w)
	w.WriteHeader(http.StatusNoContent)
}
