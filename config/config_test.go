package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cadence.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
runtime_root: /tmp/cadence
jobs:
  - workflow: fireflies_ingest
    schedule: "15,45 5-22 * * *"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "/tmp/cadence", cfg.RuntimeRoot)
	require.Equal(t, "info", cfg.LogLevel)
	require.Equal(t, 30*time.Second, cfg.CheckInterval())
	require.Len(t, cfg.Jobs, 1)
	require.Equal(t, "UTC", cfg.Jobs[0].Timezone)
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
runtime_root: /tmp/cadence
vault_dir: /tmp/vault
log_level: debug
check_interval_seconds: 10
jobs:
  - workflow: github_ingest
    schedule: "*/30 * * * *"
    timezone: America/New_York
github:
  username: octocat
  token: secret
fireflies:
  api_key: key
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "/tmp/vault", cfg.VaultDir)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, 10*time.Second, cfg.CheckInterval())
	require.Equal(t, "America/New_York", cfg.Jobs[0].Timezone)
	require.Equal(t, "octocat", cfg.GitHub.Username)
	require.Equal(t, "secret", cfg.GitHub.Token)
	require.Equal(t, "key", cfg.Fireflies.APIKey)
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	path := writeConfig(t, `
runtime_root: /tmp/cadence
no_such_field: true
`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRequiresRuntimeRoot(t *testing.T) {
	path := writeConfig(t, `
log_level: info
`)
	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "runtime_root")
}

func TestLoadRejectsJobWithoutSchedule(t *testing.T) {
	path := writeConfig(t, `
runtime_root: /tmp/cadence
jobs:
  - workflow: counter
`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestTokenFromEnvironment(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "env-token")
	t.Setenv("FIREFLIES_API_KEY", "env-key")
	path := writeConfig(t, `
runtime_root: /tmp/cadence
github:
  username: octocat
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "env-token", cfg.GitHub.Token)
	require.Equal(t, "env-key", cfg.Fireflies.APIKey)
}
