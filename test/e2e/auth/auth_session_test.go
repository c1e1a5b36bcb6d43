package auth_test

import (
	"context"
	"testing"

	"github.com/aussiebroadwan/bookmarks/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

// TestSessionLifecycle walks a user through signup, login, refresh, logout
// and revoking every session.
func TestSessionLifecycle(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)
	ctx := context.Background()

	session := signupAndLogin(t, client, "ada@example.com")

	profile, err := session.Profile(ctx)
	require.NoError(t, err)
	require.Equal(t, "ada@example.com", profile.Username)
	require.False(t, profile.Confirmed)

	t.Run("refresh spends the old pair", func(t *testing.T) {
		oldAccess, oldRefresh := session.AccessToken(), session.RefreshToken()
		require.NoError(t, session.Refresh(ctx))
		require.NotEqual(t, oldRefresh, session.RefreshToken())

		_, err := client.Refresh(ctx, oldRefresh)
		assertUnauthorized(t, err, "Refresh token replay should fail")

		_, err = client.NewSessionFromTokens(oldAccess, "", 900).Profile(ctx)
		assertUnauthorized(t, err, "Access token paired with a spent refresh token should fail")

		_, err = session.Profile(ctx)
		require.NoError(t, err)
	})

	t.Run("logout ends only this session", func(t *testing.T) {
		other, err := client.Login(ctx, "ada@example.com", testPassword)
		require.NoError(t, err)

		refresh := other.RefreshToken()
		require.NoError(t, other.Logout(ctx))

		_, err = client.Refresh(ctx, refresh)
		assertUnauthorized(t, err, "Refresh after logout should fail")

		_, err = session.Profile(ctx)
		require.NoError(t, err, "Other sessions survive a logout")
	})

	t.Run("revoke ends every session", func(t *testing.T) {
		other, err := client.Login(ctx, "ada@example.com", testPassword)
		require.NoError(t, err)
		access := other.AccessToken()

		require.NoError(t, session.RevokeAll(ctx))

		_, err = client.NewSessionFromTokens(access, "", 900).Profile(ctx)
		assertUnauthorized(t, err, "Sessions on other devices should be revoked")

		_, err = client.Refresh(ctx, other.RefreshToken())
		assertUnauthorized(t, err, "Refresh tokens issued before revocation should fail")

		again, err := client.Login(ctx, "ada@example.com", testPassword)
		require.NoError(t, err, "Login works after revocation")
		_, err = again.Profile(ctx)
		require.NoError(t, err)
	})
}

// TestLoginFailuresAreUniform verifies a wrong password and an unknown user
// are indistinguishable.
func TestLoginFailuresAreUniform(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)
	ctx := context.Background()

	signupAndLogin(t, client, "grace@example.com")

	_, wrongPassword := client.Login(ctx, "grace@example.com", "not the password")
	_, unknownUser := client.Login(ctx, "nobody@example.com", testPassword)

	assertUnauthorized(t, wrongPassword, "Wrong password should fail")
	assertUnauthorized(t, unknownUser, "Unknown user should fail")
	require.Equal(t, wrongPassword.Error(), unknownUser.Error())
}

// TestChangePasswordRevokes verifies a password change ends existing
// sessions and only the new password logs in.
func TestChangePasswordRevokes(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)
	ctx := context.Background()

	session := signupAndLogin(t, client, "linus@example.com")
	access := session.AccessToken()

	const next = "an entirely new passphrase"
	require.NoError(t, session.ChangePassword(ctx, testPassword, next))

	_, err := client.NewSessionFromTokens(access, "", 900).Profile(ctx)
	assertUnauthorized(t, err, "Access token should be revoked by a password change")

	_, err = client.Login(ctx, "linus@example.com", testPassword)
	assertUnauthorized(t, err, "Old password should fail")

	_, err = client.Login(ctx, "linus@example.com", next)
	require.NoError(t, err)
}

// TestRedisLedger runs single use refresh tokens against the Redis ledger.
func TestRedisLedger(t *testing.T) {
	baseURL, cleanup := setupAuthContainerWithRedis(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)
	ctx := context.Background()

	health, err := client.GetReadiness(ctx)
	assertHealthy(t, health, err)

	session := signupAndLogin(t, client, "barbara@example.com")
	refresh := session.RefreshToken()

	_, err = client.Refresh(ctx, refresh)
	require.NoError(t, err)

	_, err = client.Refresh(ctx, refresh)
	assertUnauthorized(t, err, "Refresh token replay should fail")
}
