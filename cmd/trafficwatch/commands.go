package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/deusflow/trafficwatch/internal/app"
	"github.com/deusflow/trafficwatch/internal/config"
	"github.com/deusflow/trafficwatch/internal/digest"
	"github.com/deusflow/trafficwatch/internal/logger"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "trafficwatch",
		Short: "Collect and classify news that may move mobile game traffic",
		Long: `trafficwatch searches news sources for events that can change mobile
game traffic (outages, disasters, unrest, holidays, competitor releases),
classifies them with keyword rules and optional LLM refinement, and keeps
them in a CSV store. A daily digest goes to Slack and Telegram.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newCollectCmd(), newDigestCmd(), newBackfillCmd())
	return root
}

// setup loads configuration, starts the optional monitoring server and
// wires the application.
func setup(ctx context.Context) (*app.App, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}
	if cfg.Debug {
		logger.InitWithWriter(os.Stdout, true)
	}
	if cfg.EnableMonitoring {
		go startMonitoringServer(cfg.MonitoringPort)
	}

	a, err := app.New(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return a, cfg, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func newCollectCmd() *cobra.Command {
	var withDigest bool

	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Fetch, classify and store news",
		Long: `Run one collection: fetch every configured source, classify and
refine candidates, merge them into the store and rewrite it.

Examples:
  trafficwatch collect             # collect only
  trafficwatch collect --digest    # collect, then send the daily digest`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			a, cfg, err := setup(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.Collect(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "fetched %d, kept %d, added %d, stored %d\n",
				report.Fetched, report.Classified, report.Added, report.StoreSize)

			if !withDigest {
				return nil
			}
			_, err = a.Digest(ctx, app.DigestOptions{Hours: cfg.DigestHours})
			return err
		},
	}

	cmd.Flags().BoolVar(&withDigest, "digest", false, "send the daily digest after collecting")
	return cmd
}

func newDigestCmd() *cobra.Command {
	var (
		hours  int
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "digest",
		Short: "Send the traffic digest for the recent window",
		Long: `Build the traffic digest from stored news and send it to every
configured channel. Without a channel, or with --dry-run, the Slack payload
is written to the preview file instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			a, cfg, err := setup(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if !cmd.Flags().Changed("hours") {
				hours = cfg.DigestHours
			}
			r, err := a.Digest(ctx, app.DigestOptions{Hours: hours, DryRun: dryRun})
			if dryRun {
				fmt.Fprintln(cmd.OutOrStdout(), digest.Telegram(r, cfg.DashboardURL))
			}
			return err
		},
	}

	cmd.Flags().IntVar(&hours, "hours", digest.DefaultHours, "window size in hours")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "write the preview instead of sending")
	return cmd
}

func newBackfillCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backfill-groups",
		Short: "Fill missing category groups in the store",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			a, _, err := setup(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.BackfillGroups(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "filled %d rows\n", n)
			return nil
		},
	}
}
