// Package config handles the configuration directory, environment and
// build settings.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"bx24report/internal/bx24"
)

const (
	// AppName is the application directory name.
	AppName = "bx24report"

	// AuthFile holds placement credentials relayed by the host.
	AuthFile = "auth.json"

	// DefaultSDKURL is the Bitrix24 SDK resource.
	DefaultSDKURL = "//api.bitrix24.com/api/v1/"

	// DefaultTimeout is the per-call REST timeout.
	DefaultTimeout = 30 * time.Second
)

// Config holds configuration paths and settings.
type Config struct {
	// Dir is the configuration directory path.
	Dir string

	// Debug enables debug logging.
	Debug bool

	// Quiet suppresses informational output.
	Quiet bool

	// DevelopmentMode falls back to the mock client when the SDK is
	// unavailable. Defaults to true in builds tagged "dev".
	DevelopmentMode bool

	// Headless marks a run with no host context.
	Headless bool

	// SDKURL is the SDK resource fetched when no credentials are present.
	SDKURL string

	// Timeout is the per-call REST timeout.
	Timeout time.Duration

	// Auth holds placement credentials from the environment, if any.
	Auth *bx24.Auth

	// ClientID and ClientSecret enable token refresh.
	ClientID     string
	ClientSecret string
}

// New creates a new Config with the default or specified config directory.
// If configDir is empty, uses XDG_CONFIG_HOME/bx24report or $HOME/.config/bx24report.
func New(configDir string) (*Config, error) {
	dir := configDir
	if dir == "" {
		dir = DefaultConfigDir()
	}
	return &Config{
		Dir:             dir,
		DevelopmentMode: developmentBuild,
		SDKURL:          DefaultSDKURL,
		Timeout:         DefaultTimeout,
	}, nil
}

// DefaultConfigDir returns the default configuration directory.
// Uses XDG_CONFIG_HOME if set, otherwise $HOME/.config.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home can't be determined
		return AppName
	}
	return filepath.Join(home, ".config", AppName)
}

// LoadEnv applies BX24_* environment variables over the current values.
func (c *Config) LoadEnv() error {
	var err error

	c.SDKURL = envOrDefault("BX24_SDK_URL", c.SDKURL)
	c.ClientID = envOrDefault("BX24_CLIENT_ID", c.ClientID)
	c.ClientSecret = envOrDefault("BX24_CLIENT_SECRET", c.ClientSecret)

	c.DevelopmentMode, err = boolFromEnv("BX24_DEV", c.DevelopmentMode)
	if err != nil {
		return err
	}
	c.Headless, err = boolFromEnv("BX24_HEADLESS", c.Headless)
	if err != nil {
		return err
	}
	c.Timeout, err = durationFromEnv("BX24_TIMEOUT", c.Timeout)
	if err != nil {
		return err
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("BX24_TIMEOUT must be positive")
	}

	// Placement credentials, as the host posts them to the app
	token := strings.TrimSpace(os.Getenv("BX24_AUTH_ID"))
	if token != "" {
		c.Auth = &bx24.Auth{
			Domain:         strings.TrimSpace(os.Getenv("BX24_DOMAIN")),
			AccessToken:    token,
			RefreshToken:   strings.TrimSpace(os.Getenv("BX24_REFRESH_ID")),
			MemberID:       strings.TrimSpace(os.Getenv("BX24_MEMBER_ID")),
			ClientEndpoint: strings.TrimSpace(os.Getenv("BX24_CLIENT_ENDPOINT")),
		}
		c.Auth.ExpiresIn, err = intFromEnv("BX24_AUTH_EXPIRES", 0)
		if err != nil {
			return err
		}
	}
	return nil
}

// AuthPath returns the path to the stored placement credentials.
func (c *Config) AuthPath() string {
	return filepath.Join(c.Dir, AuthFile)
}

// HasAuth checks if the credentials file exists.
func (c *Config) HasAuth() bool {
	_, err := os.Stat(c.AuthPath())
	return err == nil
}

// LoadAuth reads the credentials file.
func (c *Config) LoadAuth() (*bx24.Auth, error) {
	data, err := os.ReadFile(c.AuthPath())
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", AuthFile, err)
	}
	var auth bx24.Auth
	if err := json.Unmarshal(data, &auth); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", AuthFile, err)
	}
	return &auth, nil
}

// HostAuth returns ambient credentials: the environment wins over the
// credentials file. Returns nil when neither is present.
func (c *Config) HostAuth() (*bx24.Auth, error) {
	if c.Auth != nil {
		return c.Auth, nil
	}
	if !c.HasAuth() {
		return nil, nil
	}
	return c.LoadAuth()
}

func envOrDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
