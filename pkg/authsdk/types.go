package authsdk

import "time"

// ============================================================================
// Session Types
// ============================================================================

// LoginRequest is the body of POST /v1/auth/login and POST /dashboard/session.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// MFARequest completes a login challenge.
type MFARequest struct {
	ChallengeToken string `json:"challenge_token"`
	OTP            string `json:"otp"` // TOTP code or fallback code
}

// RefreshRequest is the body of POST /v1/auth/refresh and /v1/auth/logout.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// TokenResponse is returned by a successful login, MFA exchange or refresh.
type TokenResponse struct {
	// AccessToken authenticates API requests as a bearer token
	AccessToken string `json:"access_token"`

	// RefreshToken can be exchanged exactly once for a new pair
	RefreshToken string `json:"refresh_token"`

	// TokenType is always "Bearer"
	TokenType string `json:"token_type"`

	// ExpiresIn is the lifetime in seconds of the access token
	ExpiresIn int `json:"expires_in"`
}

// ChallengeResponse is returned with 202 Accepted when the account requires
// MFA. No access is granted until the challenge is completed.
type ChallengeResponse struct {
	ChallengeToken string   `json:"challenge_token"`
	Methods        []string `json:"methods"`
	ExpiresIn      int      `json:"expires_in"`
}

// DashboardSessionResponse accompanies the session cookie. CSRFToken must
// be sent with every cookie authenticated request.
type DashboardSessionResponse struct {
	CSRFToken string    `json:"csrf_token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ============================================================================
// Account Types
// ============================================================================

type SignupRequest struct {
	Username string `json:"username"` // email address
	Password string `json:"password"` // 8-128 chars
}

type SignupResponse struct {
	UID string `json:"uid"`
}

type ForgotPasswordRequest struct {
	Username string `json:"username"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type LanguageRequest struct {
	Language string `json:"language"`
}

type DeleteAccountRequest struct {
	Password string `json:"password"`
}

// ProfileResponse is the public view of the authenticated user.
type ProfileResponse struct {
	UID       string    `json:"uid"`
	Username  string    `json:"username"`
	MFA       bool      `json:"mfa"`
	Confirmed bool      `json:"confirmed"`
	Language  string    `json:"language"`
	CreatedAt time.Time `json:"created_at"`
}

// ============================================================================
// MFA Types
// ============================================================================

// TOTPEnrollResponse represents the response from TOTP enrollment.
type TOTPEnrollResponse struct {
	Secret  string `json:"secret"`
	URL     string `json:"otpauth"`
	Issuer  string `json:"issuer"`
	Account string `json:"account"`
}

// CodeRequest carries a TOTP or fallback code.
type CodeRequest struct {
	Code string `json:"code"`
}

// FallbackCodeResponse is shown once; the server only keeps a digest.
type FallbackCodeResponse struct {
	FallbackCode string `json:"fallback_code"`
}

// ============================================================================
// Health Types
// ============================================================================

// HealthResponse represents the response structure for health check endpoints.
// Used by both /livez and /readyz endpoints (readyz includes additional Checks field).
type HealthResponse struct {
	// Status indicates the overall health status (e.g., "ok")
	Status string `json:"status"`

	// Uptime is the service uptime duration as a string (e.g., "1h23m45s")
	Uptime string `json:"uptime,omitempty"`

	// Version is the service version string
	Version string `json:"version,omitempty"`

	// Checks contains readiness check results for critical dependencies (only for /readyz)
	Checks *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks represents the status of critical service dependencies.
type HealthChecks struct {
	// Database indicates the credential store connection status
	Database string `json:"database"`

	// Ledger indicates the consumed-token ledger status
	Ledger string `json:"ledger"`
}
