package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testClientID = "11111111-2222-3333-4444-555555555555"
	testDestID   = "aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func clearOverrideEnv(t *testing.T) {
	t.Helper()

	for _, key := range []string{EnvClientID, EnvClientSecret, EnvDestEndpoint, EnvTokenPath} {
		t.Setenv(key, "")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "~/.globus_transfer_rt", cfg.TokenPath)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "SuperDARN mirror", cfg.Mirror.SearchQuery)
	assert.Equal(t, "kevin.krieger@usask.ca", cfg.Mirror.ContactEmail)
	assert.Equal(t, "Official", cfg.Mirror.DescriptionMarker)
	assert.Equal(t, 30*time.Second, cfg.DeadlinePerFile())
	assert.Equal(t, 30*time.Second, cfg.PollInterval())

	require.NoError(t, Validate(cfg))
}

func TestLoadFullConfig(t *testing.T) {
	clearOverrideEnv(t)

	path := writeConfig(t, `
client_id = "`+testClientID+`"
destination_endpoint = "`+testDestID+`"
token_path = "/srv/secrets/rt"
log_level = "debug"

[mirror]
search_query = "SuperDARN mirror"
contact_email = "ops@example.org"
description_marker = "Official"

[sync]
deadline_per_file_s = 60
poll_interval_s = 10
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, testClientID, cfg.ClientID)
	assert.Equal(t, testDestID, cfg.DestinationEndpoint)
	assert.Equal(t, "/srv/secrets/rt", cfg.TokenPath)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "ops@example.org", cfg.Mirror.ContactEmail)
	assert.Equal(t, 60*time.Second, cfg.DeadlinePerFile())
	assert.Equal(t, 10*time.Second, cfg.PollInterval())
}

func TestLoadPartialConfigKeepsDefaults(t *testing.T) {
	clearOverrideEnv(t)

	path := writeConfig(t, `client_id = "`+testClientID+`"`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, testClientID, cfg.ClientID)
	assert.Equal(t, "~/.globus_transfer_rt", cfg.TokenPath)
	assert.Equal(t, "kevin.krieger@usask.ca", cfg.Mirror.ContactEmail)
	assert.Equal(t, 30*time.Second, cfg.PollInterval())
}

func TestLoadUnknownKeysFatal(t *testing.T) {
	clearOverrideEnv(t)

	path := writeConfig(t, `
client_id = "`+testClientID+`"
clientid = "typo"
verbos = true
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown keys")
	assert.Contains(t, err.Error(), "clientid")
	assert.Contains(t, err.Error(), "verbos")
}

func TestLoadMalformedTOML(t *testing.T) {
	clearOverrideEnv(t)

	path := writeConfig(t, `client_id = [unclosed`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing config file")
}

func TestLoadOrDefaultMissingFile(t *testing.T) {
	clearOverrideEnv(t)

	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.ClientID)
}

func TestEnvOverridesBeatFile(t *testing.T) {
	clearOverrideEnv(t)
	t.Setenv(EnvClientID, testDestID)
	t.Setenv(EnvTokenPath, "/run/secrets/rt")

	path := writeConfig(t, `
client_id = "`+testClientID+`"
token_path = "/srv/secrets/rt"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, testDestID, cfg.ClientID)
	assert.Equal(t, "/run/secrets/rt", cfg.TokenPath)
}

func TestEnvOverrideValidated(t *testing.T) {
	clearOverrideEnv(t)
	t.Setenv(EnvDestEndpoint, "not-a-uuid")

	_, err := LoadOrDefault(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "destination_endpoint")
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"bad client id", func(c *Config) { c.ClientID = "xyz" }, "client_id"},
		{"bad destination", func(c *Config) { c.DestinationEndpoint = "xyz" }, "destination_endpoint"},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
		{"zero deadline", func(c *Config) { c.Sync.DeadlinePerFileSeconds = 0 }, "deadline_per_file_s"},
		{"negative poll", func(c *Config) { c.Sync.PollIntervalSeconds = -1 }, "poll_interval_s"},
		{"empty mirror contact", func(c *Config) { c.Mirror.ContactEmail = "" }, "contact_email"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDefaultConfigPathXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg-config")

	assert.Equal(t, filepath.Join("/tmp/xdg-config", "radarsync", "config.toml"), DefaultConfigPath())
}

func TestDefaultLedgerPathXDG(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/tmp/xdg-data")

	assert.Equal(t, filepath.Join("/tmp/xdg-data", "radarsync", "ledger.db"), DefaultLedgerPath())
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, ".globus_transfer_rt"), ExpandHome("~/.globus_transfer_rt"))
	assert.Equal(t, home, ExpandHome("~"))
	assert.Equal(t, "/absolute/path", ExpandHome("/absolute/path"))
	assert.Equal(t, "relative/~path", ExpandHome("relative/~path"))
}

func TestResolvedTokenPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	cfg := DefaultConfig()
	assert.Equal(t, filepath.Join(home, ".globus_transfer_rt"), cfg.ResolvedTokenPath())
}
