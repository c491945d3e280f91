package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/superdarn-canada/radarsync/internal/auth"
	"github.com/superdarn-canada/radarsync/internal/config"
	"github.com/superdarn-canada/radarsync/internal/tokenfile"
)

func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Authenticate with Globus and save a refresh token",
		Long: `Run the interactive Globus login and persist a fresh refresh token,
overwriting any existing one. After this, sync runs authenticate without
prompting — refresh tokens are lifetime credentials, keep the file secret.`,
		Args: cobra.NoArgs,
		RunE: runLogin,
	}
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the saved refresh token",
		Args:  cobra.NoArgs,
		RunE:  runLogout,
	}
}

func runLogin(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger := buildLogger(cfg)

	if cfg.ClientID == "" {
		return fmt.Errorf("client_id is not configured: set it in %s or %s",
			config.DefaultConfigPath(), config.EnvClientID)
	}

	_, err = auth.InteractiveLogin(cmd.Context(), auth.Options{
		ClientID:  cfg.ClientID,
		TokenPath: cfg.ResolvedTokenPath(),
		Prompter:  terminalPrompter{},
		Logger:    logger,
	}, logger)
	if err != nil {
		return err
	}

	statusf("Login successful. Refresh token saved to %s.\n", cfg.ResolvedTokenPath())

	return nil
}

func runLogout(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	path := cfg.ResolvedTokenPath()
	if err := tokenfile.Remove(path); err != nil {
		return fmt.Errorf("removing refresh token: %w", err)
	}

	statusf("Logged out.\n")

	return nil
}

// terminalPrompter implements auth.Prompter against the controlling
// terminal. It refuses to prompt when stdin is not a TTY so a cron run
// with a missing token fails with guidance instead of hanging forever.
type terminalPrompter struct{}

func (terminalPrompter) Prompt(authURL string) (string, error) {
	if !isatty.IsTerminal(os.Stdin.Fd()) && !isatty.IsCygwinTerminal(os.Stdin.Fd()) {
		return "", errors.New("interactive login required but stdin is not a terminal; " +
			"run 'radarsync login' once from a terminal")
	}

	// Login prompts must always be visible — not suppressed by --quiet.
	fmt.Fprintf(os.Stderr, "Please go to this URL and log in:\n%s\n", authURL)
	fmt.Fprint(os.Stderr, "Enter the code you get after login here: ")

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	code := strings.TrimSpace(line)

	if err != nil && code == "" {
		return "", fmt.Errorf("reading authorization code: %w", err)
	}

	if code == "" {
		return "", errors.New("no authorization code entered")
	}

	return code, nil
}
