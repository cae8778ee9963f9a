// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package config loads the daemon configuration from config.toml and
// RULEGATE__ environment variables, and watches the file for changes.
package config

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/autobrr/rulegate/internal/domain"
)

const envPrefix = "RULEGATE__"

type AppConfig struct {
	Config *domain.Config
	viper  *viper.Viper

	configPath string

	mu sync.Mutex
}

// New loads configuration from the given path (file or directory). When the
// path is empty the default config directory is used, and a config.toml with
// commented defaults is written on first run.
func New(configPath string) (*AppConfig, error) {
	c := &AppConfig{
		viper: viper.New(),
	}

	c.defaults()

	if err := c.load(configPath); err != nil {
		return nil, err
	}

	if err := c.viper.Unmarshal(c.Config); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	c.ensureSessionSecret()

	return c, nil
}

func (c *AppConfig) defaults() {
	c.Config = &domain.Config{
		Host:           "localhost",
		Port:           7575,
		LogLevel:       "INFO",
		LogMaxSize:     50,
		LogMaxBackups:  3,
		BackendTimeout: 30,

		MetricsEnabled:           false,
		TrackerIconsFetchEnabled: true,
	}

	c.viper.SetDefault("host", c.Config.Host)
	c.viper.SetDefault("port", c.Config.Port)
	c.viper.SetDefault("baseUrl", c.Config.BaseURL)
	c.viper.SetDefault("sessionSecret", c.Config.SessionSecret)
	c.viper.SetDefault("logLevel", c.Config.LogLevel)
	c.viper.SetDefault("logPath", c.Config.LogPath)
	c.viper.SetDefault("logMaxSize", c.Config.LogMaxSize)
	c.viper.SetDefault("logMaxBackups", c.Config.LogMaxBackups)
	c.viper.SetDefault("dataDir", c.Config.DataDir)
	c.viper.SetDefault("metricsEnabled", c.Config.MetricsEnabled)
	c.viper.SetDefault("backendUrl", c.Config.BackendURL)
	c.viper.SetDefault("backendApiKey", c.Config.BackendAPIKey)
	c.viper.SetDefault("backendTimeout", c.Config.BackendTimeout)
	c.viper.SetDefault("corsAllowedOrigins", c.Config.CORSAllowedOrigins)
	c.viper.SetDefault("trackerIconsFetchEnabled", c.Config.TrackerIconsFetchEnabled)
}

func (c *AppConfig) load(configPath string) error {
	c.viper.SetConfigType("toml")

	// RULEGATE__BACKEND_URL style overrides.
	c.bindEnvAliases()

	if configPath == "" {
		configPath = getDefaultConfigDir()
	}

	info, err := os.Stat(configPath)
	switch {
	case err == nil && info.IsDir():
		c.configPath = filepath.Join(configPath, "config.toml")
	case err == nil:
		c.configPath = configPath
	default:
		if filepath.Ext(configPath) == ".toml" {
			c.configPath = configPath
		} else {
			c.configPath = filepath.Join(configPath, "config.toml")
		}
	}

	if _, err := os.Stat(c.configPath); os.IsNotExist(err) {
		if err := c.writeDefaultConfig(); err != nil {
			return err
		}
	}

	c.viper.SetConfigFile(c.configPath)
	if err := c.viper.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", c.configPath, err)
	}

	return nil
}

// bindEnvAliases maps the documented RULEGATE__SNAKE_CASE names onto the
// camelCase config keys.
func (c *AppConfig) bindEnvAliases() {
	aliases := map[string]string{
		"host":                     "HOST",
		"port":                     "PORT",
		"databasePath":             "DATABASE_PATH",
		"baseUrl":                  "BASE_URL",
		"sessionSecret":            "SESSION_SECRET",
		"logLevel":                 "LOG_LEVEL",
		"logPath":                  "LOG_PATH",
		"logMaxSize":               "LOG_MAX_SIZE",
		"logMaxBackups":            "LOG_MAX_BACKUPS",
		"dataDir":                  "DATA_DIR",
		"metricsEnabled":           "METRICS_ENABLED",
		"backendUrl":               "BACKEND_URL",
		"backendApiKey":            "BACKEND_API_KEY",
		"backendTimeout":           "BACKEND_TIMEOUT",
		"corsAllowedOrigins":       "CORS_ALLOWED_ORIGINS",
		"trackerIconsFetchEnabled": "TRACKER_ICONS_FETCH_ENABLED",
	}
	for key, env := range aliases {
		_ = c.viper.BindEnv(key, envPrefix+env)
	}
}

func (c *AppConfig) writeDefaultConfig() error {
	if err := os.MkdirAll(filepath.Dir(c.configPath), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	secret, err := generateSecret()
	if err != nil {
		return err
	}

	content := fmt.Sprintf(`# config.toml - rulegate

# Hostname / IP
host = "localhost"

# Port
port = 7575

# Base url when running behind a reverse proxy under a subpath
#baseUrl = "/rulegate/"

# Rule evaluation backend
backendUrl = ""
#backendApiKey = ""
#backendTimeout = 30

# Session secret
sessionSecret = "%s"

# Log file path. Leave empty to log to stdout only.
#logPath = "log/rulegate.log"

# Log level: ERROR, DEBUG, INFO, WARN, TRACE
logLevel = "INFO"

# Prometheus metrics on /metrics
#metricsEnabled = true

# Fetch tracker favicons for the tracker selector
#trackerIconsFetchEnabled = true
`, secret)

	if err := os.WriteFile(c.configPath, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write default config: %w", err)
	}

	log.Info().Str("path", c.configPath).Msg("created default config file")
	return nil
}

func (c *AppConfig) ensureSessionSecret() {
	if c.Config.SessionSecret != "" {
		return
	}
	secret, err := generateSecret()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to generate session secret")
	}
	c.Config.SessionSecret = secret
}

func generateSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// ConfigPath returns the resolved config.toml location.
func (c *AppConfig) ConfigPath() string {
	return c.configPath
}

// GetDatabasePath returns the configured database location, defaulting to a
// rulegate.db next to the config file.
func (c *AppConfig) GetDatabasePath() string {
	if path := c.viper.GetString("databasePath"); path != "" {
		return path
	}
	if c.Config.DataDir != "" {
		return filepath.Join(c.Config.DataDir, "rulegate.db")
	}
	return filepath.Join(filepath.Dir(c.configPath), "rulegate.db")
}

// GetDataDir returns the directory used for on-disk caches such as tracker
// icons, defaulting to the config directory.
func (c *AppConfig) GetDataDir() string {
	if c.Config.DataDir != "" {
		return c.Config.DataDir
	}
	return filepath.Dir(c.configPath)
}

// WatchConfig reloads dynamic settings when the config file changes. Only the
// log level is applied live; everything else requires a restart.
func (c *AppConfig) WatchConfig() {
	c.viper.OnConfigChange(func(e fsnotify.Event) {
		log.Debug().Str("file", e.Name).Msg("config file changed")

		c.mu.Lock()
		defer c.mu.Unlock()

		if err := c.viper.ReadInConfig(); err != nil {
			log.Error().Err(err).Msg("failed to re-read config file")
			return
		}

		level := c.viper.GetString("logLevel")
		if level != c.Config.LogLevel {
			c.Config.LogLevel = level
			if parsed, err := zerolog.ParseLevel(strings.ToLower(level)); err == nil {
				zerolog.SetGlobalLevel(parsed)
				log.Info().Str("level", level).Msg("log level updated")
			}
		}
	})
	c.viper.WatchConfig()
}

// getDefaultConfigDir resolves the platform config directory. In containers
// XDG_CONFIG_HOME is commonly set to /config and is used directly.
func getDefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		if xdg == "/config" {
			return xdg
		}
		return filepath.Join(xdg, "rulegate")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	switch runtime.GOOS {
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "rulegate")
		}
		return filepath.Join(home, "rulegate")
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "rulegate")
	default:
		return filepath.Join(home, ".config", "rulegate")
	}
}
