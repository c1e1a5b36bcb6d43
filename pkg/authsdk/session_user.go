package authsdk

import (
	"context"
	"net/http"
)

// Profile returns the authenticated user.
func (s *Session) Profile(ctx context.Context) (*ProfileResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/v1/me", nil)
	if err != nil {
		return nil, err
	}

	var profile ProfileResponse
	if err := decodeJSON(resp, &profile, http.StatusOK); err != nil {
		return nil, err
	}
	return &profile, nil
}

// ChangePassword sets a new password. Every session of the user, this one
// included, is revoked on success.
func (s *Session) ChangePassword(ctx context.Context, current, next string) error {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/v1/account/password", ChangePasswordRequest{
		CurrentPassword: current,
		NewPassword:     next,
	})
	if err != nil {
		return err
	}
	return checkStatus(resp, http.StatusNoContent)
}

// UpdateLanguage sets the dashboard language.
func (s *Session) UpdateLanguage(ctx context.Context, language string) error {
	resp, err := s.doAuthRequest(ctx, http.MethodPut, "/v1/account/language", LanguageRequest{Language: language})
	if err != nil {
		return err
	}
	return checkStatus(resp, http.StatusNoContent)
}

// DeleteAccount removes the user after confirming the password.
func (s *Session) DeleteAccount(ctx context.Context, password string) error {
	resp, err := s.doAuthRequest(ctx, http.MethodDelete, "/v1/account", DeleteAccountRequest{Password: password})
	if err != nil {
		return err
	}
	return checkStatus(resp, http.StatusNoContent)
}
