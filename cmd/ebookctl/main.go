package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"dressline/internal/app"
	"dressline/internal/config"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	// Version is set at build time
	Version = "dev"

	verbose bool

	rootCmd = &cobra.Command{
		Use:   "ebookctl",
		Short: "Operate a DressLine e-book store from the command line",
		Long: `ebookctl works directly on the local store, the attachment backup
medium and the remote mirror configured for the server (.env, CONFIG_FILE
and environment variables). Stop the server before running commands that
replace the local store.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log at debug level")
}

// withApp loads configuration, opens every store and runs fn
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	cfg.Debug = verbose
	cfg.LogDir = ""

	logger, closeLog, err := config.NewLogger(cfg, "ebookctl")
	if err != nil {
		return err
	}
	defer closeLog()

	ctx := cmd.Context()
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(ctx, a)
}

// printJSON writes v indented to stdout
func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
