package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/superdarn-canada/radarsync/internal/config"
	"github.com/superdarn-canada/radarsync/internal/ledger"
)

func newHistoryCmd() *cobra.Command {
	var (
		limit   int
		jsonOut bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent sync runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			logger := buildLogger(cfg)

			led, err := ledger.Open(config.DefaultLedgerPath(), logger)
			if err != nil {
				return fmt.Errorf("opening run ledger: %w", err)
			}
			defer led.Close()

			runs, err := led.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}

			if jsonOut {
				return printHistoryJSON(runs)
			}

			printHistoryText(runs)

			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of runs to show")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output in JSON format")

	return cmd
}

// historyEntry is the JSON schema for `history --json`.
type historyEntry struct {
	Category  string `json:"category"`
	Year      int    `json:"year"`
	Month     int    `json:"month"`
	Pattern   string `json:"pattern"`
	LocalDest string `json:"local_dest"`
	TaskID    string `json:"task_id,omitempty"`
	FileCount int    `json:"file_count"`
	Outcome   string `json:"outcome"`
	Reason    string `json:"reason,omitempty"`
	StartedAt string `json:"started_at"`
}

func printHistoryJSON(runs []ledger.Run) error {
	out := make([]historyEntry, 0, len(runs))

	for _, r := range runs {
		out = append(out, historyEntry{
			Category:  r.Category,
			Year:      r.Year,
			Month:     r.Month,
			Pattern:   r.Pattern,
			LocalDest: r.LocalDest,
			TaskID:    r.TaskID,
			FileCount: r.FileCount,
			Outcome:   r.Outcome,
			Reason:    r.Reason,
			StartedAt: r.StartedAt.Format(time.RFC3339),
		})
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}

	return nil
}

func printHistoryText(runs []ledger.Run) {
	if len(runs) == 0 {
		statusf("No recorded runs.\n")
		return
	}

	for _, r := range runs {
		fmt.Printf("%s  %s %d-%02d  pattern=%q  files=%d  %s",
			r.StartedAt.Format("2006-01-02 15:04"),
			r.Category, r.Year, r.Month, r.Pattern, r.FileCount, r.Outcome)

		if r.TaskID != "" {
			fmt.Printf("  task=%s", r.TaskID)
		}

		if r.Reason != "" {
			fmt.Printf("  (%s)", r.Reason)
		}

		fmt.Println()
	}
}
