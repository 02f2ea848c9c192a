package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gateway.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func clearGatewayEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"CONFIG", "ADDR", "LOG_LEVEL", "HEALTH_PATH", "HEALTH_INTERVAL", "PROBE_TIMEOUT", "PROXY_TIMEOUT"} {
		t.Setenv(EnvPrefix+key, "")
		require.NoError(t, os.Unsetenv(EnvPrefix+key))
	}
}

func TestLoadDefaults(t *testing.T) {
	clearGatewayEnv(t)

	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, ":8000", cfg.ListenAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "/health", cfg.HealthCheckPath)
	assert.Equal(t, 30*time.Second, time.Duration(cfg.HealthCheckInterval))
	assert.Equal(t, 5*time.Second, time.Duration(cfg.ProbeTimeout))
	assert.Equal(t, 30*time.Second, time.Duration(cfg.ProxyTimeout))

	require.Contains(t, cfg.Services, "users")
	assert.Equal(t, []string{"users", "register", "login"}, cfg.Services["users"].Routes)
	for _, name := range []string{"rooms", "bookings", "reviews"} {
		assert.Contains(t, cfg.Services, name)
	}
}

func TestLoadFromFileOverridesDefaults(t *testing.T) {
	clearGatewayEnv(t)
	path := writeConfigFile(t, `
listenAddr: ":9000"
healthCheckInterval: 10s
services:
  users:
    endpoints: ["http://users-a:8001", "http://users-b:8001"]
    routes: ["users", "register", "login"]
`)

	cfg, err := Load([]string{"--config", path})
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.ListenAddr)
	assert.Equal(t, 10*time.Second, time.Duration(cfg.HealthCheckInterval))
	// Untouched fields keep their defaults.
	assert.Equal(t, 5*time.Second, time.Duration(cfg.ProbeTimeout))
	require.Contains(t, cfg.Services, "users")
	assert.Equal(t, []string{"http://users-a:8001", "http://users-b:8001"}, cfg.Services["users"].Endpoints)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	clearGatewayEnv(t)
	path := writeConfigFile(t, `
listenAddr: ":9000"
services:
  rooms:
    endpoints: ["http://rooms:8002"]
    routes: ["rooms"]
`)
	t.Setenv(EnvPrefix+"ADDR", ":9100")
	t.Setenv(EnvPrefix+"PROBE_TIMEOUT", "7s")

	cfg, err := Load([]string{"--config", path})
	require.NoError(t, err)

	assert.Equal(t, ":9100", cfg.ListenAddr)
	assert.Equal(t, 7*time.Second, time.Duration(cfg.ProbeTimeout))
}

func TestLoadFlagsOverrideEnv(t *testing.T) {
	clearGatewayEnv(t)
	t.Setenv(EnvPrefix+"ADDR", ":9100")
	t.Setenv(EnvPrefix+"LOG_LEVEL", "debug")

	cfg, err := Load([]string{"--addr", ":9200", "--health-interval", "1m"})
	require.NoError(t, err)

	assert.Equal(t, ":9200", cfg.ListenAddr)
	assert.Equal(t, "debug", cfg.LogLevel, "env value stands when no flag overrides it")
	assert.Equal(t, time.Minute, time.Duration(cfg.HealthCheckInterval))
}

func TestLoadInvalidDurationInEnvIsIgnored(t *testing.T) {
	clearGatewayEnv(t)
	t.Setenv(EnvPrefix+"PROXY_TIMEOUT", "not-a-duration")

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, time.Duration(cfg.ProxyTimeout))
}

func TestLoadMissingConfigFile(t *testing.T) {
	clearGatewayEnv(t)

	_, err := Load([]string{"--config", "/nonexistent/gateway.yaml"})
	assert.Error(t, err)
}

func TestValidateReportsAllProblems(t *testing.T) {
	cfg := Default()
	cfg.ListenAddr = ""
	cfg.ProbeTimeout = 0
	cfg.Services["broken"] = Service{Endpoints: nil, Routes: []string{"broken"}}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listenAddr")
	assert.Contains(t, err.Error(), "probeTimeout")
	assert.Contains(t, err.Error(), `service "broken" has no endpoints`)
}

func TestValidateRejectsBadEndpointURL(t *testing.T) {
	cfg := Default()
	cfg.Services["users"] = Service{
		Endpoints: []string{"localhost:8001"},
		Routes:    []string{"users", "register", "login"},
	}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid endpoint URL")
}

func TestValidateRejectsDuplicateRouteSegments(t *testing.T) {
	cfg := Default()
	svc := cfg.Services["rooms"]
	svc.Routes = append(svc.Routes, "users")
	cfg.Services["rooms"] = svc

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `route segment "users"`)
}

func TestDurationYAMLParsing(t *testing.T) {
	cfg := Default()
	err := loadFromFile(writeConfigFile(t, "proxyTimeout: bogus\n"), cfg)
	assert.Error(t, err, "non-duration strings must be rejected")

	cfg = Default()
	err = loadFromFile(writeConfigFile(t, "probeTimeout: 1500ms\n"), cfg)
	require.NoError(t, err)
	assert.Equal(t, 1500*time.Millisecond, time.Duration(cfg.ProbeTimeout))
}
