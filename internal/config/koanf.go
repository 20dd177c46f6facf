// PixelTrack - Web Analytics Tracking Backend
// Copyright 2026 BuilderBee
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/builderbee/pixeltrack

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in
// order of priority. The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/pixeltrack/config.yaml",
	"/etc/pixeltrack/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config with all default values. Defaults are
// applied first, then overridden by the config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8000,
			Timeout:     30 * time.Second,
			WebsiteURL:  "",
			Environment: "development",
		},
		Database: DatabaseConfig{
			Path:      "/data/pixeltrack.duckdb",
			MaxMemory: "1GB",
			Threads:   0, // 0 = runtime.NumCPU()
		},
		Security: SecurityConfig{
			JWTSecret:            "",
			SessionTTL:           7 * 24 * time.Hour,
			MagicLinkTTL:         15 * time.Minute,
			ResetTokenTTL:        15 * time.Minute,
			GoogleTrialPeriod:    7 * 24 * time.Hour,
			MagicLinkTrialPeriod: 3 * 24 * time.Hour,
			CORSOrigins:          []string{"*"},
			RateLimitReqs:        100,
			RateLimitWindow:      time.Minute,
			RateLimitDisabled:    false,
			MaxUploadBytes:       5 << 20, // 5MB, matching the snippet dashboard
		},
		Mail: MailConfig{
			Enabled:  false,
			Host:     "",
			Port:     587,
			User:     "",
			Password: "",
			From:     "",
			FromName: "PixelTrack",
			UseTLS:   true,
		},
		GeoIP: GeoIPConfig{
			Enabled: true,
			BaseURL: "https://ipapi.co",
			Timeout: 5 * time.Second,
		},
		ImageHost: ImageHostConfig{
			CloudName: "",
			APIKey:    "",
			APISecret: "",
			Folder:    "profile_pictures_website",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file, and
// environment variables (highest priority), then validates it.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first config file found, or "" if none.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envMappings maps environment variable names (lowercased) to koanf paths.
// Unmapped variables are ignored so unrelated environment noise never leaks
// into the configuration.
var envMappings = map[string]string{
	"host":        "server.host",
	"port":        "server.port",
	"website_url": "server.website_url",
	"environment": "server.environment",

	"db_path":       "database.path",
	"db_max_memory": "database.max_memory",
	"db_threads":    "database.threads",

	"jwt_secret":              "security.jwt_secret",
	"session_ttl":             "security.session_ttl",
	"magic_link_ttl":          "security.magic_link_ttl",
	"reset_token_ttl":         "security.reset_token_ttl",
	"google_trial_period":     "security.google_trial_period",
	"magic_link_trial_period": "security.magic_link_trial_period",
	"cors_origins":            "security.cors_origins",
	"rate_limit_reqs":         "security.rate_limit_reqs",
	"rate_limit_window":       "security.rate_limit_window",
	"disable_rate_limit":      "security.rate_limit_disabled",
	"max_upload_bytes":        "security.max_upload_bytes",

	"mail_enabled":   "mail.enabled",
	"smtp_host":      "mail.host",
	"smtp_port":      "mail.port",
	"smtp_user":      "mail.user",
	"smtp_password":  "mail.password",
	"smtp_from":      "mail.from",
	"smtp_from_name": "mail.from_name",
	"smtp_use_tls":   "mail.use_tls",

	"geoip_enabled":  "geoip.enabled",
	"geoip_base_url": "geoip.base_url",
	"geoip_timeout":  "geoip.timeout",

	"cloudinary_cloud_name": "imagehost.cloud_name",
	"cloudinary_api_key":    "imagehost.api_key",
	"cloudinary_api_secret": "imagehost.api_secret",
	"cloudinary_folder":     "imagehost.folder",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc transforms environment variable names to koanf paths.
// Returns "" for unknown variables, which koanf treats as "skip".
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}

// sliceConfigPaths lists config paths parsed as comma-separated slices when
// they arrive as strings from env vars.
var sliceConfigPaths = []string{
	"security.cors_origins",
}

// processSliceFields converts comma-separated string values to slices for
// known slice fields. Env vars come in as strings but the config expects
// slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}
		// Already a slice (from YAML file or defaults).
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}
		str, ok := val.(string)
		if !ok {
			return fmt.Errorf("unexpected type %T for %s", val, path)
		}
		parts := strings.Split(str, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if err := k.Set(path, out); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}
