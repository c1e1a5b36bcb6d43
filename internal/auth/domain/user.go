package domain

import "time"

// DefaultLanguage is assigned at signup.
const DefaultLanguage = "en"

// Languages the dashboard is translated into.
var Languages = []string{"en", "de"}

type User struct {
	UID            string // ULID, immutable
	Username       string // email address, unique
	PasswordDigest string // argon2id over password + Salt
	Salt           string
	Pepper         string  // revocation secret embedded in every session token
	MFA            bool    // TOTP required at login
	MFASecret      *string // base32 TOTP seed (nullable)
	MFAFallback    *string // argon2id digest of the single-use fallback code (nullable)
	Confirmed      bool
	Language       string
	CreatedAt      time.Time
}

// Profile is the public view of a user.
type Profile struct {
	UID       string    `json:"uid"`
	Username  string    `json:"username"`
	MFA       bool      `json:"mfa"`
	Confirmed bool      `json:"confirmed"`
	Language  string    `json:"language"`
	CreatedAt time.Time `json:"created_at"`
}

func (u *User) Profile() Profile {
	return Profile{
		UID:       u.UID,
		Username:  u.Username,
		MFA:       u.MFA,
		Confirmed: u.Confirmed,
		Language:  u.Language,
		CreatedAt: u.CreatedAt,
	}
}
