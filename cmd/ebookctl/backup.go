package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"dressline/internal/app"
	"dressline/internal/domain"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Maintain the attachment backup",
}

var backupRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Write every attachment to the backup medium",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			report, err := a.Backups.BackupAll(ctx)
			if report != nil {
				fmt.Printf("status: %s, %d attachments, %s\n",
					report.Status, report.Items, humanize.Bytes(uint64(report.TotalSize)))
				for _, id := range report.Failed {
					fmt.Printf("  not backed up: module %d\n", id)
				}
			}
			return err
		})
	},
}

var backupStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the state recorded by the last backup pass",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			report, err := a.Backups.Status(ctx)
			if errors.Is(err, domain.ErrNotFound) {
				fmt.Println("no backup has been made yet")
				return nil
			}
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(report)
			}

			fmt.Printf("status:  %s\n", report.Status)
			if !report.Timestamp.IsZero() {
				fmt.Printf("taken:   %s (%s)\n", report.Timestamp.Format("2006-01-02 15:04:05"), humanize.Time(report.Timestamp))
			}
			fmt.Printf("items:   %d (%s)\n", report.Items, humanize.Bytes(uint64(report.TotalSize)))
			if report.Error != "" {
				fmt.Printf("error:   %s\n", report.Error)
			}
			for _, id := range report.Failed {
				fmt.Printf("missing: module %d\n", id)
			}
			return nil
		})
	},
}

var backupVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "List modules whose attachment is broken",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			problems := a.Backups.VerifyAll(ctx)
			if len(problems) == 0 {
				fmt.Println("all attachments are readable")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE\tPROBLEM")
			for _, p := range problems {
				fmt.Fprintf(w, "%d\t%s\t%s\n", p.ID, p.Title, p.Reason)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			return fmt.Errorf("%d attachments failed verification", len(problems))
		})
	},
}

var backupRestoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Restore broken or missing attachments from the backup",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			fmt.Printf("restored %d attachments\n", a.Backups.RestoreAll(ctx))
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(backupCmd)
	backupCmd.AddCommand(backupRunCmd, backupStatusCmd, backupVerifyCmd, backupRestoreCmd)

	backupStatusCmd.Flags().Bool("json", false, "print the raw report")
}
