/*
Package authsdk provides a client SDK for the bookmarks authentication service,
and the request, response and error types the service itself writes.

# SDKClient vs Session

  - SDKClient: unauthenticated operations (login, MFA, signup, forgot password, health)
  - Session: authenticated operations with automatic token refresh

	client := authsdk.NewSDKClient("https://auth.example.com")

	session, err := client.Login(ctx, "ada@example.com", password)
	var mfa *authsdk.MFARequiredError
	if errors.As(err, &mfa) {
		session, err = client.CompleteMFA(ctx, mfa.ChallengeToken, otp)
	}
	if err != nil {
		return err
	}

	profile, err := session.Profile(ctx)

# Token Refresh

Access tokens are short lived. Session methods renew the pair 30 seconds
before expiry. A refresh token works exactly once and spends the access
token issued with it, so a Session must not be copied between processes.
Concurrent calls on one Session are safe: refreshes are serialized.

# Revocation

Session.RevokeAll, ChangePassword, EnableTOTP and DisableTOTP end every
session of the user, this one included. Log in again afterwards.

# Errors

Failed calls return *APIError. Every authentication failure has the same
code, so compare with errors.Is:

	if errors.Is(err, authsdk.ErrUnauthorized) {
		// log in again
	}
*/
package authsdk
