package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tagwarden/internal/manifest"
	"tagwarden/internal/workflow"
)

func newHideCommand(ctx *commandContext) *cobra.Command {
	var apply bool
	var noBackup bool
	var reportPath string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "hide <profile>",
		Short: "Hide unlicensed Audio Units in Logic (dry run unless --apply)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(cmd, func(svc *workflow.Service) error {
				result, err := svc.Hide(cmd.Context(), workflow.HideOptions{
					Profile:    args[0],
					Apply:      apply,
					NoBackup:   noBackup,
					ReportPath: reportPath,
				})
				if err != nil {
					return profileGuidance(cmd, err)
				}
				if asJSON {
					return writeJSON(cmd, result)
				}
				renderHide(cmd, result)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&apply, "apply", false, "Write hide markers (default is a dry run)")
	cmd.Flags().BoolVar(&noBackup, "no-backup", false, "Skip the Tags backup taken before applying")
	cmd.Flags().StringVar(&reportPath, "report", "", "Write the JSON hide report to this file")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func renderHide(cmd *cobra.Command, result *workflow.HideResult) {
	out := cmd.OutOrStdout()
	if result.Report.UnlicensedCount == 0 {
		fmt.Fprintln(out, "All installed Audio Units are licensed; nothing to hide.")
		return
	}
	fmt.Fprintf(out, "Unlicensed Audio Units: %d\n", result.Report.UnlicensedCount)
	if !result.Apply {
		rows := make([][]string, 0, len(result.Plan))
		for _, item := range result.Plan {
			state := "missing tagset"
			switch {
			case item.Hidden:
				state = "already hidden"
			case item.Exists:
				state = "will hide"
			}
			rows = append(rows, []string{item.Target.Name, item.Target.Key, state})
		}
		printTable(cmd, "", []string{"Plug-in", "Tagset", "State"}, rows, nil)
		fmt.Fprintln(out, "Dry run: nothing written. Rerun with --apply to hide these plug-ins.")
	} else {
		fmt.Fprintf(out, "Hidden: %d, already hidden: %d\n", result.Hidden, result.Unchanged)
		for _, key := range result.Skipped {
			fmt.Fprintf(out, "  skipped undecodable tagset %s\n", key)
		}
		if result.Backup != "" {
			fmt.Fprintf(out, "Backup: %s\n", result.Backup)
		}
		if result.Manifest != "" {
			fmt.Fprintf(out, "Manifest: %s\n", result.Manifest)
		}
	}
	if result.ReportPath != "" {
		fmt.Fprintf(out, "Report: %s\n", result.ReportPath)
	}
}

func newClearCommand(ctx *commandContext) *cobra.Command {
	var apply bool
	var all bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove hide markers from UAD tagsets (dry run unless --apply)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(cmd, func(svc *workflow.Service) error {
				result, err := svc.Clear(cmd.Context(), workflow.ClearOptions{Apply: apply, All: all})
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if !apply {
					fmt.Fprintf(out, "Would clear %d hide markers. Rerun with --apply to write.\n", result.Cleared)
					return nil
				}
				fmt.Fprintf(out, "Cleared %d hide markers\n", result.Cleared)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&apply, "apply", false, "Write the changes (default is a dry run)")
	cmd.Flags().BoolVar(&all, "all", false, "Clear every tagset, not only installed UAD components")
	return cmd
}

func newRestoreCommand(ctx *commandContext) *cobra.Command {
	var manifestPath string
	var dryRun bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Undo the tagset edits recorded in a manifest",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(cmd, func(svc *workflow.Service) error {
				result, err := svc.RestoreManifest(cmd.Context(), manifestPath, dryRun)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, result)
				}
				renderRestore(cmd, result)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&manifestPath, "manifest", "", "Manifest to replay (defaults to the hide manifest)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would be restored without writing")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func renderRestore(cmd *cobra.Command, result manifest.RestoreResult) {
	out := cmd.OutOrStdout()
	if !result.Found {
		fmt.Fprintf(out, "No manifest at %s; nothing to restore\n", result.Manifest)
		return
	}
	if len(result.Actions) == 0 {
		fmt.Fprintf(out, "Manifest %s has no entries; nothing to restore\n", result.Manifest)
		return
	}
	if result.DryRun {
		rows := make([][]string, 0, len(result.Actions))
		for _, action := range result.Actions {
			rows = append(rows, []string{action.RecordKey, action.Action, action.Path})
		}
		printTable(cmd, "", []string{"Tagset", "Action", "Path"}, rows, nil)
		fmt.Fprintln(out, "Dry run: nothing written.")
		return
	}
	fmt.Fprintf(out, "Restored from %s: %d rewritten, %d deleted, %d already absent\n",
		result.Manifest, result.Rewritten, result.Deleted, result.Absent)
}
