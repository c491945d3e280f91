package main

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/superdarn-canada/radarsync/internal/auth"
	"github.com/superdarn-canada/radarsync/internal/config"
	"github.com/superdarn-canada/radarsync/internal/ledger"
	"github.com/superdarn-canada/radarsync/internal/mirror"
	"github.com/superdarn-canada/radarsync/internal/tokenfile"
	"github.com/superdarn-canada/radarsync/internal/transfer"
)

// runSync is the root command: validate, authenticate, resolve the mirror,
// then hand the run to the orchestrator. Completed and StillRunning both
// exit zero; everything else is a single clear error.
func runSync(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger := buildLogger(cfg)
	ctx := cmd.Context()

	req := mirror.Request{
		Year:      flagSyncYear,
		Month:     flagSyncMonth,
		Pattern:   flagPattern,
		Category:  mirror.Category(flagDataType),
		LocalDest: args[0],
	}

	if err := req.Validate(time.Now()); err != nil {
		return err
	}

	if cfg.ClientID == "" {
		return fmt.Errorf("client_id is not configured: set it in %s or %s",
			config.DefaultConfigPath(), config.EnvClientID)
	}

	if cfg.DestinationEndpoint == "" {
		return fmt.Errorf("destination_endpoint is not configured: set it in %s or %s",
			config.DefaultConfigPath(), config.EnvDestEndpoint)
	}

	tokenPath := cfg.ResolvedTokenPath()

	refresh, err := tokenfile.Load(tokenPath)
	if err != nil {
		logger.Warn("could not read refresh secret, falling back to other auth strategies",
			"path", tokenPath, "error", err.Error())

		refresh = ""
	}

	cred, err := auth.Obtain(ctx, auth.Options{
		ClientID:      cfg.ClientID,
		ClientSecret:  cfg.ClientSecret,
		RefreshSecret: refresh,
		TokenPath:     tokenPath,
		Prompter:      terminalPrompter{},
		Logger:        logger,
	})
	if err != nil {
		return err
	}

	client := transfer.NewClient(transfer.DefaultBaseURL, defaultHTTPClient(), cred, logger)

	resolver := mirror.NewResolver(client, mirror.ResolverConfig{
		Query:             cfg.Mirror.SearchQuery,
		ContactEmail:      cfg.Mirror.ContactEmail,
		DescriptionMarker: cfg.Mirror.DescriptionMarker,
	}, logger)

	mirrorEP, err := resolver.Resolve(ctx)
	if err != nil {
		return err
	}

	// The ledger is best-effort: a broken local database must not block a
	// sync, but a genuinely concurrent run for the same selection does.
	led, runID, err := beginLedgerRun(cmd, req, logger)
	if err != nil {
		return err
	}

	if led != nil {
		defer led.Close()
	}

	orch := mirror.NewOrchestrator(
		client,
		cfg.DestinationEndpoint,
		mirror.PerFileDeadline(cfg.DeadlinePerFile()),
		cfg.PollInterval(),
		logger,
	)

	outcome := orch.Run(ctx, req, mirrorEP)

	if led != nil {
		if ferr := led.FinishRun(ctx, runID, outcome.TaskID, outcome.Files,
			string(outcome.Status), outcome.Reason, time.Now()); ferr != nil {
			logger.Warn("could not record run outcome", "error", ferr.Error())
		}
	}

	switch outcome.Status {
	case mirror.StatusCompleted:
		statusf("Transfer finished (%d files).\n", outcome.Files)
		return nil
	case mirror.StatusStillRunning:
		statusf("Transferred %d files with a soft timeout of %s; the transfer didn't complete "+
			"in time but is likely still running.\n"+
			"Check https://www.globus.org/app/activity for the status of task %s.\n",
			outcome.Files, outcome.Deadline, outcome.TaskID)

		return nil
	default:
		return fmt.Errorf("sync failed: %s", outcome.Reason)
	}
}

// beginLedgerRun opens the run ledger and records the run start. Ledger
// breakage degrades to a warning (nil ledger); an in-flight run for the
// same selection is a hard stop.
func beginLedgerRun(cmd *cobra.Command, req mirror.Request, logger *slog.Logger) (*ledger.Ledger, int64, error) {
	led, err := ledger.Open(config.DefaultLedgerPath(), logger)
	if err != nil {
		logger.Warn("run ledger unavailable, continuing without it", "error", err.Error())
		return nil, 0, nil
	}

	runID, err := led.BeginRun(cmd.Context(), string(req.Category), req.Year, req.Month,
		req.Pattern, req.LocalDest, time.Now())
	if err != nil {
		if errors.Is(err, ledger.ErrRunInProgress) {
			led.Close()
			return nil, 0, fmt.Errorf("%w; wait for it to finish or re-run later", err)
		}

		logger.Warn("could not record run start, continuing without ledger", "error", err.Error())
		led.Close()

		return nil, 0, nil
	}

	return led, runID, nil
}
