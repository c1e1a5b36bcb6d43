package auth_test

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/aussiebroadwan/bookmarks/pkg/authsdk"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/network"
	"github.com/testcontainers/testcontainers-go/wait"
)

/*
 * Common constants and helper functions for auth service end-to-end tests.
 * This includes container setup, account operations, and assertions.
 */

const (
	testImageName = "bookmarks-auth-test:latest"
	redisImage    = "redis:7-alpine"

	testPassword = "correct horse battery"
)

// TestMain manages the test lifecycle, builds the Docker image once before
// all tests and cleans it up after all tests complete.
func TestMain(m *testing.M) {
	fmt.Fprintf(os.Stdout, "Building Auth Service Docker image...")

	if err := buildDockerImage(); err != nil {
		fmt.Fprintf(os.Stderr, "\nFailed to build Docker image: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stdout, " done\n")

	exitCode := m.Run()

	fmt.Fprintf(os.Stdout, "Cleaning up Auth Service Docker image...")
	cleanupDockerImage()
	fmt.Fprintf(os.Stdout, " done\n")

	os.Exit(exitCode)
}

// buildDockerImage builds the test Docker image.
func buildDockerImage() error {
	ctx := context.Background()
	cmd := exec.CommandContext(ctx, "docker", "build",
		"-t", testImageName,
		"-f", "../../../cmd/auth/Dockerfile",
		"../../../")
	cmd.Dir = "."
	cmd.Stdout = os.Stdout
	cmd.Stderr = nil

	return cmd.Run()
}

// cleanupDockerImage removes the test Docker image.
func cleanupDockerImage() {
	ctx := context.Background()
	cmd := exec.CommandContext(ctx, "docker", "rmi", "-f", testImageName)
	_ = cmd.Run() // image might not exist
}

// baseEnv is the environment every test container gets.
func baseEnv() map[string]string {
	return map[string]string{
		"AUTH_DATABASE_FILE": "/data/auth.db",
		"AUTH_SECRETS_DIR":   "/data/secrets",
		"ENV":                "test",
		"LOG_LEVEL":          "info",
		"LOG_FORMAT":         "json",
		"COOKIE_SECURE":      "false",
	}
}

// relaxedRateLimits raises the limits so tests making many rapid requests
// from one address are not throttled.
func relaxedRateLimits() map[string]string {
	return map[string]string{
		"RATELIMIT_STRICT_REQUESTS":   "1000",
		"RATELIMIT_STRICT_WINDOW_SEC": "60",
		"RATELIMIT_STRICT_BURST":      "1000",
		"RATELIMIT_MODERATE_REQUESTS": "1000",
		"RATELIMIT_MODERATE_BURST":    "1000",
	}
}

// setupAuthContainer starts the auth service with relaxed rate limits and
// returns the base URL.
func setupAuthContainer(t *testing.T) (string, func()) {
	t.Helper()
	env := baseEnv()
	maps.Copy(env, relaxedRateLimits())
	return startAuthContainer(t, env, nil)
}

// setupAuthContainerWithDefaultRateLimits starts the auth service with the
// production rate limits. Only rate limit tests should use it.
func setupAuthContainerWithDefaultRateLimits(t *testing.T) (string, func()) {
	t.Helper()
	return startAuthContainer(t, baseEnv(), nil)
}

// setupAuthContainerWithRedis starts Redis and an auth service that keeps
// its consumed-token ledger there.
func setupAuthContainerWithRedis(t *testing.T) (string, func()) {
	t.Helper()
	ctx := context.Background()

	nw, err := network.New(ctx)
	require.NoError(t, err)

	redis, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:          redisImage,
			ExposedPorts:   []string{"6379/tcp"},
			Networks:       []string{nw.Name},
			NetworkAliases: map[string][]string{nw.Name: {"redis"}},
			WaitingFor:     wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)

	env := baseEnv()
	maps.Copy(env, relaxedRateLimits())
	env["REDIS_ADDR"] = "redis:6379"

	baseURL, stopAuth := startAuthContainer(t, env, []string{nw.Name})

	cleanup := func() {
		stopAuth()
		if err := redis.Terminate(ctx); err != nil {
			t.Logf("failed to terminate redis: %v", err)
		}
		if err := nw.Remove(ctx); err != nil {
			t.Logf("failed to remove network: %v", err)
		}
	}
	return baseURL, cleanup
}

func startAuthContainer(t *testing.T, env map[string]string, networks []string) (string, func()) {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        testImageName,
		ExposedPorts: []string{"8080/tcp"},
		Env:          env,
		Networks:     networks,
		WaitingFor: wait.ForHTTP("/readyz").
			WithPort("8080/tcp").
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	mappedPort, err := container.MappedPort(ctx, "8080")
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)

	baseURL := fmt.Sprintf("http://%s:%s", host, mappedPort.Port())

	cleanup := func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}

	return baseURL, cleanup
}

// signupAndLogin creates a fresh account and returns a session for it.
func signupAndLogin(t *testing.T, client *authsdk.SDKClient, username string) *authsdk.Session {
	t.Helper()
	ctx := context.Background()

	uid, err := client.Signup(ctx, username, testPassword)
	require.NoError(t, err, "Signup should succeed")
	require.NotEmpty(t, uid)

	session, err := client.Login(ctx, username, testPassword)
	require.NoError(t, err, "Login should succeed")
	require.NotNil(t, session)
	return session
}

// assertUnauthorized checks that an error is the uniform authentication
// failure.
func assertUnauthorized(t *testing.T, err error, context string) {
	t.Helper()
	require.Error(t, err, context)
	require.True(t, errors.Is(err, authsdk.ErrUnauthorized) || errors.Is(err, authsdk.ErrInvalidToken),
		"%s - error should indicate unauthorized access, got: %v", context, err)
}

// assertHealthy verifies a health check response is OK.
func assertHealthy(t *testing.T, health *authsdk.HealthResponse, err error) {
	t.Helper()
	require.NoError(t, err)
	require.NotNil(t, health)
	require.Equal(t, "ok", health.Status)
}
