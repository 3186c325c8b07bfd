package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"tagwarden/internal/assistant"
	"tagwarden/internal/workflow"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	var opts workflow.ExportOptions
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export installed Audio Units and categories for mapping generation",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(cmd, func(svc *workflow.Service) error {
				result, err := svc.Export(cmd.Context(), opts)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, result)
				}
				out := cmd.OutOrStdout()
				stats := result.Stats
				fmt.Fprintf(out, "Exported %d of %d plug-ins (%d hidden skipped) to %s (%s)\n",
					stats.Exported, stats.Found, stats.Hidden, result.Path, humanize.Bytes(uint64(stats.Bytes)))
				if stats.Trimmed {
					fmt.Fprintln(out, "The export was trimmed to fit --max-bytes; some plug-ins are missing.")
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&opts.OutputPath, "output", "", "Export file (defaults to <reports_dir>/"+workflow.DefaultExportName+")")
	cmd.Flags().IntVar(&opts.MaxBytes, "max-bytes", 0, "Size limit for the export (defaults to assistant.max_bytes)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newMapCommand(ctx *commandContext) *cobra.Command {
	var opts workflow.MapOptions
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "map",
		Short: "Generate a category mapping with an AI assistant",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(cmd, func(svc *workflow.Service) error {
				generated, err := svc.Map(cmd.Context(), opts)
				if err != nil {
					if generated != nil {
						renderAttempts(cmd, generated.Attempts)
					}
					if errors.Is(err, assistant.ErrNoToolAvailable) {
						fmt.Fprintln(cmd.ErrOrStderr(), "Install one of the configured assistant tools (see `tagwarden status`).")
					}
					return err
				}
				if asJSON {
					return writeJSON(cmd, generated)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Mapping generated by %s: %s (%d top-level keys)\n",
					generated.Tool, generated.OutputPath, len(generated.Keys))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&opts.InputPath, "input", "", "Export file (defaults to <reports_dir>/"+workflow.DefaultExportName+")")
	cmd.Flags().StringVar(&opts.OutputPath, "output", "", "Mapping output (defaults to organize.generated_mapping_path)")
	cmd.Flags().StringVar(&opts.Tool, "tool", "", "Use only this tool ("+strings.Join(assistant.KnownTools(), ", ")+")")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func renderAttempts(cmd *cobra.Command, attempts []assistant.Attempt) {
	out := cmd.ErrOrStderr()
	for _, a := range attempts {
		switch {
		case a.TimedOut:
			fmt.Fprintf(out, "  %s: timed out\n", a.Command)
		case a.Error != "":
			fmt.Fprintf(out, "  %s: %s\n", a.Command, a.Error)
		default:
			fmt.Fprintf(out, "  %s: exit %d\n", a.Command, a.ExitCode)
		}
	}
}

func newWorkflowCommand(ctx *commandContext) *cobra.Command {
	var opts workflow.PipelineOptions

	cmd := &cobra.Command{
		Use:   "workflow [profile]",
		Short: "Run backup, hide, tags, export, map and organize in order",
		Long: "Run the whole pipeline. Without --apply nothing is written to the Tags\n" +
			"directory and the run stops once the mapping has been generated.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				opts.Profile = args[0]
			}
			return ctx.withService(cmd, func(svc *workflow.Service) error {
				summary, err := svc.Pipeline(cmd.Context(), opts)
				if summary != nil {
					renderPipeline(cmd, summary)
				}
				if err != nil {
					return profileGuidance(cmd, err)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&opts.Apply, "apply", false, "Write changes (default is a dry run)")
	cmd.Flags().BoolVar(&opts.SkipHide, "skip-hide", false, "Skip the hide step")
	cmd.Flags().BoolVar(&opts.MergeTags, "merge-tags", false, "Keep existing tags when organizing")
	cmd.Flags().IntVar(&opts.MaxBytes, "max-bytes", 0, "Size limit for the export")
	cmd.Flags().StringVar(&opts.Tool, "tool", "", "Use only this assistant tool")
	return cmd
}

func renderPipeline(cmd *cobra.Command, summary *workflow.PipelineSummary) {
	colorize := shouldColorize(cmd.OutOrStdout())
	out := cmd.OutOrStdout()
	for _, line := range renderSectionHeader("Workflow", colorize) {
		fmt.Fprintln(out, line)
	}
	for _, step := range summary.Steps {
		kind := statusOK
		if step == workflow.StepHideSkipped {
			kind = statusInfo
		}
		fmt.Fprintln(out, renderStatusLine(step, kind, "done", colorize))
	}
	if summary.InitialBackup != "" {
		fmt.Fprintln(out, renderStatusLine("Backup", statusInfo, summary.InitialBackup, colorize))
	}
	if summary.GeneratedMapping != "" {
		fmt.Fprintln(out, renderStatusLine("Mapping", statusInfo, summary.GeneratedMapping, colorize))
	}
	if n := len(summary.FallbackMatches); n > 0 {
		fmt.Fprintln(out, renderStatusLine("Fallback", statusWarn, fmt.Sprintf("%d plug-ins uncategorized", n), colorize))
	}
	if n := len(summary.MissingTagsets); n > 0 {
		fmt.Fprintln(out, renderStatusLine("Missing tagsets", statusWarn, fmt.Sprintf("%d (open each plug-in in Logic once)", n), colorize))
	}
	fmt.Fprintln(out, renderStatusLine("Report", statusInfo, summary.ReportPath, colorize))
	if !summary.Apply {
		fmt.Fprintln(out, "Dry run: review the generated mapping, then rerun with --apply.")
	}
}
