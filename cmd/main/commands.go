package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"startpage-sync/src/server"
)

// -----------------------------------------------------------------------------

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, websocket hub and quote refresher",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts, os.Stdout)
			if err != nil {
				return err
			}
			defer a.Close()
			return runServe(a)
		},
	}
}

// runServe blocks until SIGINT/SIGTERM, then stops the refresher before the
// server so the hub never receives a broadcast after it has shut down.
func runServe(a *app) error {
	srv := server.NewAPIServer(a.Config.MConfig, server.Services{
		Icons:      a.Icons,
		Wallpapers: a.Wallpapers,
		Quotes:     a.Quotes,
		Metadata:   a.Metadata,
		Fonts:      a.Fonts,
		Settings:   a.DB,
	}, a.newLogger("APIServer"))

	a.Icons.SetExchanger(srv)
	a.Wallpapers.SetExchanger(srv)
	a.Quotes.SetExchanger(srv)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start()
	}()

	if err := a.Quotes.Start(ctx); err != nil {
		a.Errors.Handle(err, "starting quote refresher")
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(quit)

	var runErr error
	select {
	case <-quit:
		a.Logger.Info("Shutting down...")
	case runErr = <-serverErr:
		if runErr != nil {
			a.Errors.Handle(runErr, "http server")
		}
	}

	cancel()
	a.Quotes.Stop()
	if err := srv.Stop(); err != nil {
		a.Errors.Handle(err, "stopping http server")
	}
	a.Logger.Info("Stopped (%d errors logged)", a.Errors.ErrorCount())
	return runErr
}

// -----------------------------------------------------------------------------

func newSyncIconsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync-icons",
		Short: "Download icons for every site that needs one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts, os.Stderr)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			metrics, err := a.Icons.SyncAll(ctx)
			if err != nil {
				a.Errors.Handle(err, "icon sync")
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "processed %d of %d sites (skipped %d, failed %d) in %.2fs\n",
				metrics.Processed, metrics.Total, metrics.Skipped, metrics.Failed, metrics.DurationSeconds)
			return nil
		},
	}
}

// -----------------------------------------------------------------------------

func newSyncIconCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync-icon <site-id>",
		Short: "Download the icon of a single site",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			siteID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || siteID <= 0 {
				return fmt.Errorf("invalid site id %q", args[0])
			}

			a, err := newApp(opts, os.Stderr)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := a.Icons.SyncOne(ctx, siteID); err != nil {
				a.Errors.Handle(err, fmt.Sprintf("icon sync for site %d", siteID))
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "site %d synced\n", siteID)
			return nil
		},
	}
}

// -----------------------------------------------------------------------------

func newSyncWallpaperCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync-wallpaper",
		Short: "Fetch and store the current daily wallpaper",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts, os.Stderr)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			w, err := a.Wallpapers.SyncBing(ctx)
			if err != nil {
				a.Errors.Handle(err, "wallpaper sync")
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), w.URL)
			return nil
		},
	}
}

// -----------------------------------------------------------------------------

func newMarketCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "market",
		Short: "Print the current quotes as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts, os.Stderr)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			quotes := a.Quotes.FetchAll(ctx, a.Quotes.Symbols())
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(quotes)
		},
	}
}
