package domain

import (
	"strings"
	"time"
)

// ActionTTL is how long an emailed link stays valid.
const ActionTTL = 60 * time.Minute

// Purpose binds an action token to the one route allowed to consume it.
type Purpose string

const (
	PurposeResetPassword Purpose = "reset-password"
	PurposeConfirmEmail  Purpose = "confirm-email"
)

const (
	PathResetPassword = "/auth/reset-password"
	PathConfirmEmail  = "/auth/confirm"
)

// PathPrefix returns the route prefix that may consume tokens of this
// purpose, or "" for an unknown purpose.
func (p Purpose) PathPrefix() string {
	switch p {
	case PurposeResetPassword:
		return PathResetPassword
	case PurposeConfirmEmail:
		return PathConfirmEmail
	default:
		return ""
	}
}

func (p Purpose) Valid() bool { return p.PathPrefix() != "" }

// Allows reports whether path may consume an action of this purpose.
func (p Purpose) Allows(path string) bool {
	prefix := p.PathPrefix()
	if prefix == "" {
		return false
	}
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

// Action is a persisted one-time token. Only the fingerprint of the value
// handed to the user is stored.
type Action struct {
	TokenHash string
	UserUID   string
	Purpose   Purpose
	ExpiresAt time.Time
}

// Expired reports whether the action can no longer be used at now.
func (a *Action) Expired(now time.Time) bool {
	return !now.Before(a.ExpiresAt)
}
