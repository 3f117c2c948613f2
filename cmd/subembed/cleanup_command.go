package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"subembed/internal/logging"
	"subembed/internal/staging"
)

func newCleanupCommand(ctx *commandContext) *cobra.Command {
	var maxAge time.Duration
	var userID int64

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove stale downloads and outputs",
		Long: "Remove files in the download and output directories older than the configured\n" +
			"cleanup.stale_hours, or every artifact of one user with --user. Run it while the\n" +
			"bot is stopped, or with a generous age, to avoid removing files of active jobs.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			layout := ctx.layout()
			out := cmd.OutOrStdout()

			if cmd.Flags().Changed("user") {
				removed, err := layout.CleanUser(userID)
				if err != nil {
					return fmt.Errorf("clean user %d: %w", userID, err)
				}
				fmt.Fprintf(out, "Removed %d staged file(s) for user %d\n", len(removed), userID)
				return nil
			}

			age := cfg.StaleAge()
			if cmd.Flags().Changed("older-than") {
				age = maxAge
			}
			logger := logging.NewNop()
			var result staging.CleanStaleResult
			for _, dir := range []string{layout.DownloadDir, layout.OutputDir} {
				result.Merge(staging.CleanStale(cmd.Context(), dir, age, logger))
			}
			fmt.Fprintf(out, "Removed %d item(s), freed %s\n", len(result.Removed), humanize.IBytes(uint64(result.Bytes)))
			for _, failure := range result.Errors {
				fmt.Fprintf(out, "  failed: %s: %v\n", failure.Path, failure.Error)
			}
			if len(result.Errors) > 0 {
				return fmt.Errorf("%d item(s) could not be removed", len(result.Errors))
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&maxAge, "older-than", 0, "Override the stale age (for example 30m or 12h)")
	cmd.Flags().Int64Var(&userID, "user", 0, "Remove every staged file of this user instead")
	return cmd
}
