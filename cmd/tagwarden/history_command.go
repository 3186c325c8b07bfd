package main

import (
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"tagwarden/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withHistory(func(store *history.Store) error {
				runs, err := store.List(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, runs)
				}
				rows := make([][]string, 0, len(runs))
				for _, run := range runs {
					rows = append(rows, []string{
						shortID(run.ID),
						run.Operation,
						yesNo(run.DryRun),
						string(run.Status),
						strconv.Itoa(run.Affected),
						run.StartedAt.Local().Format("2006-01-02 15:04:05"),
						runDuration(run),
						historyDetail(run),
					})
				}
				printTable(cmd, "No runs recorded",
					[]string{"ID", "Operation", "Dry run", "Status", "Affected", "Started", "Took", "Detail"}, rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignRight, alignLeft})
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to show (0 for all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func runDuration(run history.Run) string {
	if run.FinishedAt == nil {
		return "-"
	}
	return run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond).String()
}

func historyDetail(run history.Run) string {
	switch {
	case run.Error != "":
		return run.Error
	case run.Manifest != "":
		return run.Manifest
	default:
		return run.Backup
	}
}
