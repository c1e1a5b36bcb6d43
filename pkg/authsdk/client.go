package authsdk

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// SDKClient is a client for the bookmarks authentication service.
// It provides access to unauthenticated operations and creates authenticated Sessions.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewSDKClient creates a new auth service client.
func NewSDKClient(baseURL string) *SDKClient {
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// MFARequiredError is returned by Login when the account requires a second
// factor. Pass ChallengeToken to CompleteMFA together with a TOTP or
// fallback code.
type MFARequiredError struct {
	ChallengeToken string
	Methods        []string
	ExpiresIn      int
}

func (e *MFARequiredError) Error() string {
	return fmt.Sprintf("mfa required (methods: %s)", strings.Join(e.Methods, ", "))
}

// Login authenticates with a username and password. Accounts with MFA
// return a *MFARequiredError instead of a session.
func (c *SDKClient) Login(ctx context.Context, username, password string) (*Session, error) {
	resp, err := c.postJSON(ctx, "/v1/auth/login", LoginRequest{Username: username, Password: password})
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusAccepted {
		defer resp.Body.Close()
		var challenge ChallengeResponse
		if err := json.NewDecoder(resp.Body).Decode(&challenge); err != nil {
			return nil, fmt.Errorf("failed to decode challenge: %w", err)
		}
		return nil, &MFARequiredError{
			ChallengeToken: challenge.ChallengeToken,
			Methods:        challenge.Methods,
			ExpiresIn:      challenge.ExpiresIn,
		}
	}

	var pair TokenResponse
	if err := decodeJSON(resp, &pair, http.StatusOK); err != nil {
		return nil, err
	}
	return newSession(c, &pair), nil
}

// CompleteMFA exchanges a challenge token and code for a session.
func (c *SDKClient) CompleteMFA(ctx context.Context, challengeToken, otp string) (*Session, error) {
	resp, err := c.postJSON(ctx, "/v1/auth/mfa", MFARequest{ChallengeToken: challengeToken, OTP: otp})
	if err != nil {
		return nil, err
	}

	var pair TokenResponse
	if err := decodeJSON(resp, &pair, http.StatusOK); err != nil {
		return nil, err
	}
	return newSession(c, &pair), nil
}

// Refresh exchanges a refresh token for a new pair. The refresh token and
// the access token issued with it stop working.
func (c *SDKClient) Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	resp, err := c.postJSON(ctx, "/v1/auth/refresh", RefreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return nil, err
	}

	var pair TokenResponse
	if err := decodeJSON(resp, &pair, http.StatusOK); err != nil {
		return nil, err
	}
	return &pair, nil
}

// Logout spends a refresh token. A non-empty accessToken is spent with it.
func (c *SDKClient) Logout(ctx context.Context, refreshToken, accessToken string) error {
	body, err := jsonBody(RefreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return err
	}
	headers := map[string]string{"Content-Type": "application/json"}
	if accessToken != "" {
		headers["Authorization"] = "Bearer " + accessToken
	}

	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/auth/logout", body, headers)
	if err != nil {
		return err
	}
	return checkStatus(resp, http.StatusNoContent)
}

// Signup creates an account and returns its uid. A confirmation link is
// sent to the username.
func (c *SDKClient) Signup(ctx context.Context, username, password string) (string, error) {
	resp, err := c.postJSON(ctx, "/v1/account/signup", SignupRequest{Username: username, Password: password})
	if err != nil {
		return "", err
	}

	var out SignupResponse
	if err := decodeJSON(resp, &out, http.StatusCreated); err != nil {
		return "", err
	}
	return out.UID, nil
}

// ForgotPassword requests a reset link. It succeeds for unknown usernames.
func (c *SDKClient) ForgotPassword(ctx context.Context, username string) error {
	resp, err := c.postJSON(ctx, "/v1/account/forgot", ForgotPasswordRequest{Username: username})
	if err != nil {
		return err
	}
	return checkStatus(resp, http.StatusAccepted)
}

// NewSessionFromTokens creates an authenticated session from existing tokens.
// The session will still perform auto-refresh when the access token expires.
func (c *SDKClient) NewSessionFromTokens(accessToken, refreshToken string, expiresIn int) *Session {
	return newSession(c, &TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    expiresIn,
	})
}
