package authsdk

import (
	"context"
	"net/http"
)

// EnrollTOTP starts TOTP enrollment. MFA stays off until EnableTOTP
// confirms a code generated from the returned secret.
func (s *Session) EnrollTOTP(ctx context.Context) (*TOTPEnrollResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/v1/mfa/totp/enroll", nil)
	if err != nil {
		return nil, err
	}

	var enroll TOTPEnrollResponse
	if err := decodeJSON(resp, &enroll, http.StatusOK); err != nil {
		return nil, err
	}
	return &enroll, nil
}

// EnableTOTP turns MFA on and returns the fallback code, shown only once.
// Existing sessions are revoked, so log in again afterwards.
func (s *Session) EnableTOTP(ctx context.Context, code string) (string, error) {
	return s.fallbackRequest(ctx, "/v1/mfa/totp/enable", code)
}

// RegenerateFallback replaces the fallback code. Requires a TOTP code.
func (s *Session) RegenerateFallback(ctx context.Context, code string) (string, error) {
	return s.fallbackRequest(ctx, "/v1/mfa/fallback", code)
}

// DisableTOTP turns MFA off with a TOTP or fallback code.
func (s *Session) DisableTOTP(ctx context.Context, code string) error {
	resp, err := s.doAuthRequest(ctx, http.MethodDelete, "/v1/mfa/totp", CodeRequest{Code: code})
	if err != nil {
		return err
	}
	return checkStatus(resp, http.StatusNoContent)
}

func (s *Session) fallbackRequest(ctx context.Context, path, code string) (string, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, path, CodeRequest{Code: code})
	if err != nil {
		return "", err
	}

	var out FallbackCodeResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return "", err
	}
	return out.FallbackCode, nil
}
