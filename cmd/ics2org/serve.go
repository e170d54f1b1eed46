package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ics2org/internal/ics"
	"ics2org/internal/web"
)

func newServeCmd(flags *rootFlags) *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve configured sources as JSON and Org over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			// CLI --listen overrides config file listen if provided.
			if listen != "" {
				cfg.Listen = listen
			}
			return web.ListenAndServe(cmd.Context(), cfg, ics.NewFetcher(cfg.CacheDir))
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "HTTP listen address (overrides config if set)")
	return cmd
}
