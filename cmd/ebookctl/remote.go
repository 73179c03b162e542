package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"dressline/internal/app"

	"github.com/spf13/cobra"
)

var errNoRemote = errors.New("REMOTE_DB_URL is not set")

var remoteCmd = &cobra.Command{
	Use:   "remote",
	Short: "Synchronise with the remote mirror",
}

// withRemote is withApp for commands that need the remote mirror
func withRemote(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		if a.Sync == nil {
			return errNoRemote
		}
		return fn(ctx, a)
	})
}

var remotePushCmd = &cobra.Command{
	Use:   "push",
	Short: "Copy every local book and module to the remote mirror",
	Long: `Copy every local book and module to the remote mirror. Each push creates
new remote documents; pushing twice leaves two copies.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRemote(cmd, func(ctx context.Context, a *app.App) error {
			result, err := a.Sync.PushLocal(ctx)
			if result != nil {
				fmt.Printf("pushed %d books, %d modules (%d skipped)\n",
					len(result.BookIDs), result.ModulesPushed, result.ModulesSkipped)
			}
			return err
		})
	},
}

var remotePullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Replace the local store with the first remote book",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRemote(cmd, func(ctx context.Context, a *app.App) error {
			result, err := a.Sync.PullAll(ctx)
			if err != nil {
				return err
			}
			if result.Skipped {
				fmt.Println("remote holds no books; local store left unchanged")
				return nil
			}
			fmt.Printf("pulled remote book %s with %d modules\n", result.RemoteBookID, result.Modules)
			return nil
		})
	},
}

var remoteListCmd = &cobra.Command{
	Use:   "list",
	Short: "List remote books",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRemote(cmd, func(ctx context.Context, a *app.App) error {
			books, err := a.Sync.ListRemoteBooks(ctx)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE")
			for _, b := range books {
				fmt.Fprintf(w, "%s\t%s\n", b.ID, b.Title)
			}
			return w.Flush()
		})
	},
}

var remoteDeleteCmd = &cobra.Command{
	Use:   "delete <remote-book-id>",
	Short: "Delete a remote book and all of its modules",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRemote(cmd, func(ctx context.Context, a *app.App) error {
			if err := a.Sync.DeleteRemoteBook(ctx, args[0]); err != nil {
				return err
			}
			fmt.Printf("deleted remote book %s\n", args[0])
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(remoteCmd)
	remoteCmd.AddCommand(remotePushCmd, remotePullCmd, remoteListCmd, remoteDeleteCmd)
}
