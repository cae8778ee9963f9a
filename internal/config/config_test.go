// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGeneratesDefaultConfig(t *testing.T) {
	tmpDir := t.TempDir()

	cfg, err := New(tmpDir)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	// A config.toml with a generated session secret is written on first run.
	data, err := os.ReadFile(filepath.Join(tmpDir, "config.toml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "sessionSecret")

	assert.Equal(t, "localhost", cfg.Config.Host)
	assert.Equal(t, 7575, cfg.Config.Port)
	assert.Equal(t, "INFO", cfg.Config.LogLevel)
	assert.NotEmpty(t, cfg.Config.SessionSecret)
}

func TestNewReadsExistingConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.toml")

	configContent := `
host = "0.0.0.0"
port = 9090
sessionSecret = "test-secret"
logLevel = "DEBUG"
backendUrl = "http://backend:8080"
`
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0o644))

	cfg, err := New(configPath)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Config.Host)
	assert.Equal(t, 9090, cfg.Config.Port)
	assert.Equal(t, "test-secret", cfg.Config.SessionSecret)
	assert.Equal(t, "DEBUG", cfg.Config.LogLevel)
	assert.Equal(t, "http://backend:8080", cfg.Config.BackendURL)
}

func TestDatabasePath(t *testing.T) {
	t.Run("defaults next to config file", func(t *testing.T) {
		tmpDir := t.TempDir()

		cfg, err := New(tmpDir)
		require.NoError(t, err)

		assert.Equal(t, filepath.Join(tmpDir, "rulegate.db"), cfg.GetDatabasePath())
	})

	t.Run("explicit databasePath wins", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")
		require.NoError(t, os.WriteFile(configPath, []byte(`
sessionSecret = "test-secret"
databasePath = "/var/db/rulegate.db"
`), 0o644))

		cfg, err := New(configPath)
		require.NoError(t, err)
		assert.Equal(t, "/var/db/rulegate.db", cfg.GetDatabasePath())
	})

	t.Run("environment variable overrides config file", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")
		require.NoError(t, os.WriteFile(configPath, []byte(`
sessionSecret = "test-secret"
databasePath = "/config/file/path.db"
`), 0o644))

		t.Setenv("RULEGATE__DATABASE_PATH", "/env/var/path.db")

		cfg, err := New(configPath)
		require.NoError(t, err)
		assert.Equal(t, "/env/var/path.db", cfg.GetDatabasePath())
	})
}

func TestEnvOverrides(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.toml")
	require.NoError(t, os.WriteFile(configPath, []byte(`
sessionSecret = "test-secret"
backendUrl = "http://from-file:8080"
`), 0o644))

	t.Setenv("RULEGATE__BACKEND_URL", "http://from-env:8080")
	t.Setenv("RULEGATE__LOG_LEVEL", "TRACE")

	cfg, err := New(configPath)
	require.NoError(t, err)

	assert.Equal(t, "http://from-env:8080", cfg.Config.BackendURL)
	assert.Equal(t, "TRACE", cfg.Config.LogLevel)
}
