package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aussiebroadwan/bookmarks/pkg/authsdk"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"
)

// TestMFAFlow enables TOTP, logs in through the challenge and spends the
// fallback code.
func TestMFAFlow(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)
	ctx := context.Background()
	const username = "margaret@example.com"

	session := signupAndLogin(t, client, username)

	enroll, err := session.EnrollTOTP(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, enroll.Secret)

	code, err := totp.GenerateCode(enroll.Secret, time.Now())
	require.NoError(t, err)

	fallback, err := session.EnableTOTP(ctx, code)
	require.NoError(t, err)
	require.NotEmpty(t, fallback)

	_, err = session.Profile(ctx)
	assertUnauthorized(t, err, "Enabling MFA should revoke existing sessions")

	login := func() *authsdk.MFARequiredError {
		t.Helper()
		_, err := client.Login(ctx, username, testPassword)
		var mfa *authsdk.MFARequiredError
		require.True(t, errors.As(err, &mfa), "Login should require MFA, got: %v", err)
		require.NotEmpty(t, mfa.ChallengeToken)
		return mfa
	}

	t.Run("wrong code", func(t *testing.T) {
		mfa := login()
		_, err := client.CompleteMFA(ctx, mfa.ChallengeToken, "000000")
		assertUnauthorized(t, err, "Wrong OTP should fail")
	})

	t.Run("totp code", func(t *testing.T) {
		mfa := login()
		code, err := totp.GenerateCode(enroll.Secret, time.Now())
		require.NoError(t, err)

		s, err := client.CompleteMFA(ctx, mfa.ChallengeToken, code)
		require.NoError(t, err)
		_, err = s.Profile(ctx)
		require.NoError(t, err)

		_, err = client.CompleteMFA(ctx, mfa.ChallengeToken, code)
		assertUnauthorized(t, err, "Challenge token should be single use")
	})

	t.Run("fallback code is single use", func(t *testing.T) {
		mfa := login()
		_, err := client.CompleteMFA(ctx, mfa.ChallengeToken, fallback)
		require.NoError(t, err)

		mfa = login()
		_, err = client.CompleteMFA(ctx, mfa.ChallengeToken, fallback)
		assertUnauthorized(t, err, "Spent fallback code should fail")
	})
}
