package domain

// MFAEnrollment is returned by enroll. MFA stays off until a code generated
// from Secret is confirmed.
type MFAEnrollment struct {
	Secret  string `json:"secret"`  // base32 TOTP seed
	URL     string `json:"otpauth"` // otpauth:// URL for QR rendering
	Issuer  string `json:"issuer"`  // application name
	Account string `json:"account"` // username
}

// FallbackCode is shown to the user exactly once.
type FallbackCode struct {
	Code string `json:"fallback_code"`
}
