package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"tagwarden/internal/licensing"
	"tagwarden/internal/workflow"
)

func newListInstalledCommand(ctx *commandContext) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "list-installed",
		Short: "List installed UAD plug-ins across AU, VST, VST3 and AAX",
		RunE: func(cmd *cobra.Command, args []string) error {
			format = strings.ToLower(strings.TrimSpace(format))
			if format != "table" && format != "json" {
				return fmt.Errorf("unknown format %q (expected table or json)", format)
			}
			return ctx.withService(cmd, func(svc *workflow.Service) error {
				installed, err := svc.ListInstalled(cmd.Context())
				if err != nil {
					return err
				}
				if format == "json" {
					return writeJSON(cmd, installed)
				}
				rows := make([][]string, 0, len(installed))
				for _, item := range installed {
					rows = append(rows, []string{item.Name, item.FormatList()})
				}
				printTable(cmd, "No plug-ins found", []string{"Plug-in", "Formats"}, rows, nil)
				if len(installed) > 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "%d plug-ins installed\n", len(installed))
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&format, "format", "table", "Output format (table or json)")
	return cmd
}

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var show string
	var reportPath string
	var suggest int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "check <profile>",
		Short: "Compare installed plug-ins with the authorizations in a system profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			view, err := workflow.ParseView(show)
			if err != nil {
				return err
			}
			return ctx.withService(cmd, func(svc *workflow.Service) error {
				result, err := svc.Check(cmd.Context(), workflow.CheckOptions{
					Profile: args[0],
					Suggest: suggest,
				})
				if err != nil {
					return profileGuidance(cmd, err)
				}
				if reportPath != "" {
					if err := workflow.WriteCheckReport(reportPath, result); err != nil {
						return err
					}
				}
				if asJSON {
					return writeJSON(cmd, result)
				}
				workflow.RenderCheck(cmd.OutOrStdout(), result, view)
				if reportPath != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "\nReport written to %s\n", reportPath)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&show, "show", "unlicensed", "Plug-ins to list: all, licensed or unlicensed")
	cmd.Flags().StringVar(&reportPath, "report", "", "Write a text report to this file")
	cmd.Flags().IntVar(&suggest, "suggest", 0, "List up to N near-miss authorizations per unlicensed plug-in")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

// profileGuidance adds operator guidance for profile errors and returns err.
func profileGuidance(cmd *cobra.Command, err error) error {
	out := cmd.ErrOrStderr()
	switch {
	case errors.Is(err, licensing.ErrNoAuthorizations):
		fmt.Fprintln(out, "The system profile lists no authorized UAD plug-ins.")
		fmt.Fprintln(out, "Export a fresh profile from UA Connect (Help > Save System Profile) and pass that file.")
	case errors.Is(err, licensing.ErrProfileNotFound):
		fmt.Fprintln(out, "Pass the path of a system profile exported from UA Connect.")
	}
	return err
}
