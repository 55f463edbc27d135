package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// rootOptions holds the global flags shared by every subcommand.
type rootOptions struct {
	ConfigPath string
}

// -----------------------------------------------------------------------------

// NewRootCmd creates the startpage-sync root command.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "startpage-sync",
		Short: "External asset synchronization for the start page",
		Long: `startpage-sync keeps the start page's derived assets in step with their
upstream sources: site favicons, the daily wallpaper, market quotes and page
metadata.

Run "serve" for the HTTP API, or one of the sync subcommands from cron.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Empty means built-in defaults
	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to YAML config file")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newSyncIconsCmd(opts))
	cmd.AddCommand(newSyncIconCmd(opts))
	cmd.AddCommand(newSyncWallpaperCmd(opts))
	cmd.AddCommand(newMarketCmd(opts))

	return cmd
}

// -----------------------------------------------------------------------------

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
