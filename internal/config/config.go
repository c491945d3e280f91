// Package config loads radarsync configuration from a TOML file with
// environment-variable overrides. Identity values (client ID, destination
// endpoint) are static deploy-time configuration, passed explicitly into
// the components that need them so tests can inject doubles.
package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"
)

// MirrorConfig identifies the SuperDARN mirror endpoint. The contact and
// marker are how a search result is verified before it is trusted.
type MirrorConfig struct {
	SearchQuery       string `toml:"search_query"`
	ContactEmail      string `toml:"contact_email"`
	DescriptionMarker string `toml:"description_marker"`
}

// SyncConfig holds the wait policy knobs. The per-file deadline is an
// acknowledged approximation, so it is configuration, not a constant.
type SyncConfig struct {
	DeadlinePerFileSeconds int `toml:"deadline_per_file_s"`
	PollIntervalSeconds    int `toml:"poll_interval_s"`
}

// Config is the root configuration.
type Config struct {
	// ClientID is the Globus native-app client ID (a UUID).
	ClientID string `toml:"client_id"`

	// ClientSecret is optional; setting it selects the client-credentials
	// auth strategy instead of refresh-token or interactive login.
	ClientSecret string `toml:"client_secret"`

	// DestinationEndpoint is the UUID of the operator's endpoint.
	DestinationEndpoint string `toml:"destination_endpoint"`

	// TokenPath is where the refresh secret lives. Supports a leading "~".
	TokenPath string `toml:"token_path"`

	LogLevel string `toml:"log_level"`

	Mirror MirrorConfig `toml:"mirror"`
	Sync   SyncConfig   `toml:"sync"`
}

// DefaultConfig returns a Config populated with every default value,
// including the mirror identity the original deployment has always used.
func DefaultConfig() *Config {
	return &Config{
		TokenPath: "~/.globus_transfer_rt",
		LogLevel:  "info",
		Mirror: MirrorConfig{
			SearchQuery:       "SuperDARN mirror",
			ContactEmail:      "kevin.krieger@usask.ca",
			DescriptionMarker: "Official",
		},
		Sync: SyncConfig{
			DeadlinePerFileSeconds: 30,
			PollIntervalSeconds:    30,
		},
	}
}

// Load reads and parses a TOML config file, applies env overrides, and
// validates. Unknown keys are fatal — silently ignoring a typo in a config
// file leads to hard-to-debug behavior.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}

		sort.Strings(keys)

		return nil, fmt.Errorf("config file %s has unknown keys: %s", path, strings.Join(keys, ", "))
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault reads the config file if it exists, otherwise returns
// defaults (with env overrides applied). Supports zero-config first runs.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		cfg := DefaultConfig()
		applyEnvOverrides(cfg)

		if err := Validate(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}

		return cfg, nil
	}

	return Load(path)
}

var validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// Validate checks field formats. Empty identity values are allowed here —
// commands that need them (sync, login) enforce presence themselves, so
// logout and history work without a fully configured identity.
func Validate(cfg *Config) error {
	if cfg.ClientID != "" {
		if _, err := uuid.Parse(cfg.ClientID); err != nil {
			return fmt.Errorf("client_id %q is not a valid UUID: %w", cfg.ClientID, err)
		}
	}

	if cfg.DestinationEndpoint != "" {
		if _, err := uuid.Parse(cfg.DestinationEndpoint); err != nil {
			return fmt.Errorf("destination_endpoint %q is not a valid UUID: %w", cfg.DestinationEndpoint, err)
		}
	}

	if !validLogLevels[cfg.LogLevel] {
		return fmt.Errorf("log_level %q is not one of debug, info, warn, error", cfg.LogLevel)
	}

	if cfg.Sync.DeadlinePerFileSeconds <= 0 {
		return fmt.Errorf("sync.deadline_per_file_s must be positive, got %d", cfg.Sync.DeadlinePerFileSeconds)
	}

	if cfg.Sync.PollIntervalSeconds <= 0 {
		return fmt.Errorf("sync.poll_interval_s must be positive, got %d", cfg.Sync.PollIntervalSeconds)
	}

	if cfg.Mirror.SearchQuery == "" || cfg.Mirror.ContactEmail == "" || cfg.Mirror.DescriptionMarker == "" {
		return errors.New("mirror search_query, contact_email and description_marker must all be set")
	}

	return nil
}

// DeadlinePerFile returns the per-file soft deadline as a duration.
func (c *Config) DeadlinePerFile() time.Duration {
	return time.Duration(c.Sync.DeadlinePerFileSeconds) * time.Second
}

// PollInterval returns the task poll interval as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Sync.PollIntervalSeconds) * time.Second
}

// ResolvedTokenPath expands a leading "~" in TokenPath.
func (c *Config) ResolvedTokenPath() string {
	return ExpandHome(c.TokenPath)
}
