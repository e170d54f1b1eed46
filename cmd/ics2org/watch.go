package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"ics2org/internal/ics"
	appLog "ics2org/internal/log"
	"ics2org/internal/pipeline"
)

func newWatchCmd(flags *rootFlags) *cobra.Command {
	var refresh string
	var once bool
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-convert every configured source on a cron schedule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			if refresh != "" {
				cfg.Refresh = refresh
			}

			jobs := pipeline.JobsFromConfig(cfg)
			if len(jobs) == 0 {
				return errors.New("no sources configured")
			}

			sched, err := pipeline.NewScheduler(cfg.Refresh, ics.NewFetcher(cfg.CacheDir), jobs, pipeline.RenderOptions(cfg))
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if once {
				if failures := sched.RunOnce(ctx); failures > 0 {
					return fmt.Errorf("%d of %d sources failed", failures, len(jobs))
				}
				return nil
			}

			appLog.Info("watching sources", "refresh", cfg.Refresh, "source_count", len(jobs))
			sched.Start(ctx)
			<-ctx.Done()

			stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			return sched.Stop(stopCtx)
		},
	}
	cmd.Flags().StringVar(&refresh, "refresh", "", `Cron schedule (overrides config, e.g. "*/15 * * * *")`)
	cmd.Flags().BoolVar(&once, "once", false, "Convert every source once and exit")
	return cmd
}
