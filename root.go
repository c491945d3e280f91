// Command radarsync synchronizes SuperDARN radar data files from the
// Globus mirror to a destination endpoint. Designed for unattended runs:
// the first login persists a refresh secret, after which a cron schedule
// can re-run the same selection cheaply thanks to checksum sync.
package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/superdarn-canada/radarsync/internal/config"
	"github.com/superdarn-canada/radarsync/internal/mirror"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath string
	flagVerbose    bool
	flagQuiet      bool
)

// Sync selection flags. Names keep underscores for compatibility with the
// cron invocations the original deployment shipped with.
var (
	flagSyncYear  int
	flagSyncMonth int
	flagPattern   string
	flagDataType  string
)

// httpClientTimeout bounds each individual REST request. Poll-loop waiting
// happens between requests, so this never cuts a poll cycle short.
const httpClientTimeout = 30 * time.Second

// defaultHTTPClient returns an HTTP client with a sensible timeout.
func defaultHTTPClient() *http.Client {
	return &http.Client{Timeout: httpClientTimeout}
}

// newRootCmd builds the fully-assembled root command. The root command is
// the sync itself; login, logout and history hang off it.
func newRootCmd() *cobra.Command {
	now := time.Now()

	cmd := &cobra.Command{
		Use:   "radarsync [flags] sync_local_dir",
		Short: "Sync SuperDARN radar data from the Globus mirror",
		Long: `Discover files on the SuperDARN Globus mirror for a (year, month,
data type, pattern) selection and submit a checksum-sync batch transfer to
the configured destination endpoint, then wait (bounded) for completion.

The first run asks for an interactive Globus login and saves a refresh
token so later runs (e.g. via cron) authenticate automatically.`,
		Version: version,
		Args:    cobra.ExactArgs(1),
		// Silence Cobra's default error/usage printing — we handle it ourselves.
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE:          runSync,
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress informational output")

	cmd.Flags().IntVarP(&flagSyncYear, "sync_year", "y", now.Year(), "year you wish to sync data for")
	cmd.Flags().IntVarP(&flagSyncMonth, "sync_month", "m", int(now.Month()), "month you wish to sync data for")
	cmd.Flags().StringVarP(&flagPattern, "sync_pattern", "p", "*", "file name pattern to sync")
	cmd.Flags().StringVarP(&flagDataType, "data_type", "t",
		string(mirror.CategoryRaw), fmt.Sprintf("one of %v", mirror.Categories()))

	cmd.AddCommand(newLoginCmd())
	cmd.AddCommand(newLogoutCmd())
	cmd.AddCommand(newHistoryCmd())

	return cmd
}

// loadConfig resolves the config file path (flag > env > default) and loads it.
func loadConfig() (*config.Config, error) {
	path := config.DefaultConfigPath()
	if env := config.ConfigPathFromEnv(); env != "" {
		path = env
	}

	if flagConfigPath != "" {
		path = flagConfigPath
	}

	cfg, err := config.LoadOrDefault(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	return cfg, nil
}

// buildLogger creates an slog.Logger from the config log level, with
// --verbose and --quiet overriding it because CLI flags always win.
func buildLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo

	if cfg != nil {
		switch cfg.LogLevel {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
	}

	if flagVerbose {
		level = slog.LevelDebug
	}

	if flagQuiet {
		level = slog.LevelError
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// statusf prints user-facing status output unless --quiet is set.
func statusf(format string, args ...any) {
	if flagQuiet {
		return
	}

	fmt.Printf(format, args...)
}

// printError prints a user-friendly error message to stderr.
func printError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
}
