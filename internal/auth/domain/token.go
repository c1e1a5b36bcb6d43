package domain

import "time"

// TokenPair is what a successful API login, MFA exchange or refresh returns.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"` // always "Bearer"
	ExpiresIn    int64  `json:"expires_in"` // seconds until the access token expires
}

// Challenge is returned instead of a pair when the account requires MFA.
type Challenge struct {
	ChallengeToken string   `json:"challenge_token"`
	Methods        []string `json:"methods"`
	ExpiresIn      int64    `json:"expires_in"`
}

// MFA methods offered in a challenge.
const (
	MFAMethodTOTP     = "totp"
	MFAMethodFallback = "fallback"
)

// CookieSession is a dashboard session. Token goes into the session cookie,
// CSRF must accompany every authorized dashboard request.
type CookieSession struct {
	Token     string
	CSRF      string
	ExpiresAt time.Time
}
