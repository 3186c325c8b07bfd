package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"tagwarden/internal/backup"
	"tagwarden/internal/picker"
	"tagwarden/internal/workflow"
)

func newBackupCommand(ctx *commandContext) *cobra.Command {
	backupCmd := &cobra.Command{
		Use:   "backup",
		Short: "Create, list and restore full Tags directory backups",
	}

	backupCmd.AddCommand(newBackupCreateCommand(ctx))
	backupCmd.AddCommand(newBackupListCommand(ctx))
	backupCmd.AddCommand(newBackupRestoreCommand(ctx))

	return backupCmd
}

func newBackupCreateCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Snapshot the Tags directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(cmd, func(svc *workflow.Service) error {
				snap, err := svc.CreateBackup(cmd.Context())
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, snap)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Backup created: %s (%d files, %s)\n",
					snap.Path, snap.Files, humanize.Bytes(uint64(snap.Bytes)))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newBackupListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List backups, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(cmd, func(svc *workflow.Service) error {
				snaps, err := svc.Backups().List()
				if err != nil {
					return err
				}
				newest := make([]backup.Snapshot, 0, len(snaps))
				for i := len(snaps) - 1; i >= 0; i-- {
					newest = append(newest, snaps[i])
				}
				if asJSON {
					return writeJSON(cmd, newest)
				}
				rows := make([][]string, 0, len(newest))
				for i, snap := range newest {
					rows = append(rows, []string{
						strconv.Itoa(i + 1),
						snap.Name,
						snap.CreatedAt.Local().Format("2006-01-02 15:04:05"),
						strconv.Itoa(snap.Files),
						humanize.Bytes(uint64(snap.Bytes)),
					})
				}
				printTable(cmd, fmt.Sprintf("No backups in %s", svc.Backups().Root()),
					[]string{"#", "Name", "Created", "Files", "Size"}, rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight})
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newBackupRestoreCommand(ctx *commandContext) *cobra.Command {
	var latest bool
	var path string
	var pick bool

	cmd := &cobra.Command{
		Use:   "restore [number|name]",
		Short: "Replace the Tags directory with a backup",
		Long: "Replace the Tags directory with a backup. Select the backup by its number in\n" +
			"`backup list`, by name, with --path, with --latest, or interactively with --pick.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			selectors := 0
			for _, set := range []bool{latest, strings.TrimSpace(path) != "", pick, len(args) == 1} {
				if set {
					selectors++
				}
			}
			if selectors != 1 {
				return errors.New("choose exactly one of a backup argument, --latest, --path or --pick")
			}
			return ctx.withService(cmd, func(svc *workflow.Service) error {
				target, err := resolveRestoreTarget(cmd, svc, args, latest, path, pick)
				if err != nil {
					return err
				}
				if err := svc.RestoreBackup(cmd.Context(), target); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Tags directory restored from %s\n", target)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&latest, "latest", false, "Restore the newest backup")
	cmd.Flags().StringVar(&path, "path", "", "Restore the backup at this path")
	cmd.Flags().BoolVar(&pick, "pick", false, "Choose the backup interactively")
	return cmd
}

func resolveRestoreTarget(cmd *cobra.Command, svc *workflow.Service, args []string, latest bool, path string, pick bool) (string, error) {
	switch {
	case latest:
		return svc.LatestBackup()
	case pick:
		in, ok := cmd.InOrStdin().(*os.File)
		if !ok || !isTerminal(in) {
			return "", errors.New("--pick needs an interactive terminal; use a backup number or --latest")
		}
		snaps, err := svc.Backups().List()
		if err != nil {
			return "", err
		}
		chosen, err := picker.Pick(cmd.Context(), snaps, in, cmd.OutOrStdout())
		if err != nil {
			return "", err
		}
		return chosen.Path, nil
	case len(args) == 1:
		return svc.Backups().Resolve(args[0])
	default:
		return svc.Backups().Resolve(path)
	}
}
