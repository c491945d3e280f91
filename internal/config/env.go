package config

import "os"

// Environment variable names for overrides. Env beats the config file;
// CLI flags beat both.
const (
	EnvConfig       = "RADARSYNC_CONFIG"
	EnvClientID     = "RADARSYNC_CLIENT_ID"
	EnvClientSecret = "RADARSYNC_CLIENT_SECRET"
	EnvDestEndpoint = "RADARSYNC_DEST_ENDPOINT"
	EnvTokenPath    = "RADARSYNC_TOKEN_PATH"
)

// ConfigPathFromEnv returns the env-configured config file path, or "".
func ConfigPathFromEnv() string {
	return os.Getenv(EnvConfig)
}

// applyEnvOverrides overwrites config fields from the environment.
// Secrets in particular are commonly injected this way in cron units.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv(EnvClientID); v != "" {
		cfg.ClientID = v
	}

	if v := os.Getenv(EnvClientSecret); v != "" {
		cfg.ClientSecret = v
	}

	if v := os.Getenv(EnvDestEndpoint); v != "" {
		cfg.DestinationEndpoint = v
	}

	if v := os.Getenv(EnvTokenPath); v != "" {
		cfg.TokenPath = v
	}
}
