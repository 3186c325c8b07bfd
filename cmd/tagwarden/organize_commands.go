package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"tagwarden/internal/organizer"
	"tagwarden/internal/workflow"
)

func newTagsCommand(ctx *commandContext) *cobra.Command {
	var includeTagsets bool
	var output string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "tags",
		Short: "List Logic plug-in categories",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(cmd, func(svc *workflow.Service) error {
				result, err := svc.Tags(cmd.Context(), includeTagsets)
				if err != nil {
					return err
				}
				if output != "" {
					if err := workflow.WriteJSON(output, result); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d categories to %s\n", len(result.Categories.Tagpool), output)
					return nil
				}
				if asJSON {
					return writeJSON(cmd, result)
				}
				workflow.RenderTags(cmd.OutOrStdout(), result)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&includeTagsets, "include-tagsets", false, "Also list the tags of every tagset")
	cmd.Flags().StringVar(&output, "output", "", "Write the listing as JSON to this file")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newOrganizeCommand(ctx *commandContext) *cobra.Command {
	var opts workflow.OrganizeOptions
	var diagnose bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "organize",
		Short: "Assign plug-in categories from a mapping file (dry run unless --apply)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(opts.DiagnoseVendors) > 0 {
				diagnose = true
			}
			return ctx.withService(cmd, func(svc *workflow.Service) error {
				result, err := svc.Organize(cmd.Context(), opts)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, result)
				}
				renderOrganize(cmd, result, diagnose)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&opts.MappingPath, "mapping", "", "Mapping file (JSON or YAML); defaults to organize.mapping_path")
	cmd.Flags().BoolVar(&opts.Apply, "apply", false, "Write categories (default is a dry run)")
	cmd.Flags().BoolVar(&opts.MergeTags, "merge-tags", false, "Keep existing tags instead of replacing them")
	cmd.Flags().BoolVar(&opts.NoBackup, "no-backup", false, "Skip the Tags backup taken before applying")
	cmd.Flags().BoolVar(&diagnose, "diagnose", false, "List plug-ins that fell back to the default category")
	cmd.Flags().StringSliceVar(&opts.DiagnoseVendors, "diagnose-vendor", nil, "Limit --diagnose to these vendors (implies --diagnose)")
	cmd.Flags().StringVar(&opts.ReportPath, "report", "", "Write the JSON organize report to this file")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func renderOrganize(cmd *cobra.Command, result *workflow.OrganizeResult, diagnose bool) {
	out := cmd.OutOrStdout()
	report := result.Report
	fmt.Fprintf(out, "Categorized %d plug-ins: %d fell back to %q, %d excluded\n",
		len(report.Results), len(report.FallbackMatches), report.FallbackCategory, len(report.Excluded))

	if diagnose {
		rows := make([][]string, 0, len(result.Diagnose))
		for _, r := range result.Diagnose {
			rows = append(rows, []string{r.Name, r.Vendor, r.BundleID})
		}
		printTable(cmd, "No fallback matches", []string{"Plug-in", "Vendor", "Bundle"}, rows, nil)
	} else {
		rows := make([][]string, 0, len(report.Results))
		for _, r := range report.Results {
			rows = append(rows, []string{r.Name, categoryLabel(r), r.Tagset})
		}
		printTable(cmd, "No Audio Units found", []string{"Plug-in", "Category", "Tagset"}, rows, nil)
	}

	if !report.Apply {
		fmt.Fprintln(out, "Dry run: nothing written. Rerun with --apply to write categories.")
	} else {
		fmt.Fprintf(out, "Tagsets written: %d\n", result.Written)
		if n := len(report.MissingTagsets); n > 0 {
			names := make([]string, 0, n)
			for _, m := range report.MissingTagsets {
				names = append(names, m.Name)
			}
			fmt.Fprintf(out, "Missing tagsets (open each plug-in in Logic once): %s\n", strings.Join(names, ", "))
		}
		if result.Backup != "" {
			fmt.Fprintf(out, "Backup: %s\n", result.Backup)
		}
		if result.Manifest != "" {
			fmt.Fprintf(out, "Manifest: %s (undo with `tagwarden restore --manifest %s`)\n", result.Manifest, result.Manifest)
		}
	}
	if result.ReportPath != "" {
		fmt.Fprintf(out, "Report: %s\n", result.ReportPath)
	}
}

func categoryLabel(r organizer.Result) string {
	if r.Excluded {
		return "(excluded)"
	}
	return r.Category
}
