package config

import (
	"os"
	"path/filepath"
	"strings"
)

// Application directory name used for config and data paths.
const appName = "radarsync"

// Config file name.
const configFileName = "config.toml"

// Ledger database file name.
const ledgerFileName = "ledger.db"

// DefaultConfigPath returns the default config file location,
// XDG_CONFIG_HOME-aware (defaults to ~/.config/radarsync/config.toml).
func DefaultConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appName, configFileName)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(home, ".config", appName, configFileName)
}

// DefaultLedgerPath returns the default run-ledger database location,
// XDG_DATA_HOME-aware (defaults to ~/.local/share/radarsync/ledger.db).
func DefaultLedgerPath() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, appName, ledgerFileName)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(home, ".local", "share", appName, ledgerFileName)
}

// ExpandHome replaces a leading "~" with the user's home directory.
// Paths without the prefix are returned unchanged.
func ExpandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}

		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	}

	return path
}
