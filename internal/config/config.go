// PixelTrack - Web Analytics Tracking Backend
// Copyright 2026 BuilderBee
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/builderbee/pixeltrack

// Package config loads PixelTrack configuration via Koanf v2 with layered
// sources (highest priority wins): environment variables, an optional YAML
// config file, and built-in defaults.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for the PixelTrack server.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Security  SecurityConfig  `koanf:"security"`
	Mail      MailConfig      `koanf:"mail"`
	GeoIP     GeoIPConfig     `koanf:"geoip"`
	ImageHost ImageHostConfig `koanf:"imagehost"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`

	// WebsiteURL is the public dashboard URL embedded in outbound emails
	// (magic links, goal notifications).
	WebsiteURL string `koanf:"website_url"`

	// Environment is "development" or "production".
	Environment string `koanf:"environment"`
}

// DatabaseConfig holds DuckDB settings.
type DatabaseConfig struct {
	// Path is the DuckDB database file. Empty string opens an in-memory
	// database (used by tests).
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	// Threads is the DuckDB thread count. 0 uses runtime.NumCPU().
	Threads int `koanf:"threads"`
}

// SecurityConfig holds authentication and gateway hardening settings.
type SecurityConfig struct {
	// JWTSecret signs session tokens. Minimum 32 characters.
	JWTSecret string `koanf:"jwt_secret"`

	// SessionTTL is the session token lifetime.
	SessionTTL time.Duration `koanf:"session_ttl"`

	// MagicLinkTTL is the lifetime of an emailed magic-link token.
	MagicLinkTTL time.Duration `koanf:"magic_link_ttl"`

	// ResetTokenTTL is the lifetime of a password-reset token.
	ResetTokenTTL time.Duration `koanf:"reset_token_ttl"`

	// GoogleTrialPeriod is the free trial granted when a user is first
	// created through Google sign-in.
	GoogleTrialPeriod time.Duration `koanf:"google_trial_period"`

	// MagicLinkTrialPeriod is the free trial granted when a user is first
	// created through a magic-link request.
	MagicLinkTrialPeriod time.Duration `koanf:"magic_link_trial_period"`

	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`

	// MaxUploadBytes caps multipart profile-picture uploads.
	MaxUploadBytes int64 `koanf:"max_upload_bytes"`
}

// MailConfig holds SMTP delivery settings.
type MailConfig struct {
	Enabled  bool   `koanf:"enabled"`
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	From     string `koanf:"from"`
	FromName string `koanf:"from_name"`
	UseTLS   bool   `koanf:"use_tls"`
}

// GeoIPConfig holds geolocation lookup settings.
type GeoIPConfig struct {
	Enabled bool `koanf:"enabled"`
	// BaseURL is the ipapi.co-compatible endpoint.
	BaseURL string        `koanf:"base_url"`
	Timeout time.Duration `koanf:"timeout"`
}

// ImageHostConfig holds Cloudinary credentials for profile pictures.
type ImageHostConfig struct {
	CloudName string `koanf:"cloud_name"`
	APIKey    string `koanf:"api_key"`
	APISecret string `koanf:"api_secret"`
	// Folder is the Cloudinary folder profile pictures are uploaded to.
	Folder string `koanf:"folder"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// IsDevelopment reports whether the server runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Server.Environment != "production"
}

// ImageHostConfigured reports whether Cloudinary credentials are present.
func (c *Config) ImageHostConfigured() bool {
	ih := c.ImageHost
	return ih.CloudName != "" && ih.APIKey != "" && ih.APISecret != ""
}

// Validate checks required settings and value ranges.
func (c *Config) Validate() error {
	if c.Security.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if len(c.Security.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters, got %d", len(c.Security.JWTSecret))
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Server.WebsiteURL == "" {
		return fmt.Errorf("WEBSITE_URL is required")
	}
	if c.Mail.Enabled {
		if c.Mail.Host == "" {
			return fmt.Errorf("SMTP_HOST is required when mail is enabled")
		}
		if c.Mail.From == "" {
			return fmt.Errorf("SMTP_FROM is required when mail is enabled")
		}
	}
	if c.Security.MagicLinkTTL <= 0 {
		return fmt.Errorf("magic link TTL must be positive")
	}
	if c.Security.ResetTokenTTL <= 0 {
		return fmt.Errorf("reset token TTL must be positive")
	}
	return nil
}
