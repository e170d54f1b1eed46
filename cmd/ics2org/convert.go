package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ics2org/internal/config"
	"ics2org/internal/ics"
	appLog "ics2org/internal/log"
	"ics2org/internal/pipeline"
)

// convertFlags are the rendering overrides shared by the root command and
// "convert".
type convertFlags struct {
	output      string
	heading     string
	includeTime bool
	details     bool
}

func (f *convertFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.output, "output", "o", "", `Output file ("-" for stdout; default: input with .org extension)`)
	cmd.Flags().StringVar(&f.heading, "heading", "", "Top-level Org heading (overrides config)")
	cmd.Flags().BoolVar(&f.includeTime, "include-time", false, "Add the time of day to SCHEDULED timestamps")
	cmd.Flags().BoolVar(&f.details, "details", false, "Render location, organizer and description")
}

func (f *convertFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	if f.heading != "" {
		cfg.Heading = f.heading
	}
	if cmd.Flags().Changed("include-time") {
		cfg.IncludeTime = f.includeTime
	}
	if cmd.Flags().Changed("details") {
		cfg.Details = f.details
	}
}

func newConvertCmd(flags *rootFlags) *cobra.Command {
	conv := &convertFlags{}
	cmd := &cobra.Command{
		Use:   "convert <calendar.ics>",
		Short: "Convert one calendar file or URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd, flags, conv, args[0])
		},
	}
	conv.register(cmd)
	return cmd
}

func runConvert(cmd *cobra.Command, flags *rootFlags, conv *convertFlags, input string) error {
	cfg, err := loadConfig(flags)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	conv.apply(cmd, cfg)

	src := ics.Source{ID: input, URL: input}
	fetcher := ics.NewFetcher(cfg.CacheDir)
	opts := pipeline.RenderOptions(cfg)

	if conv.output == "-" {
		_, out, _, err := pipeline.Convert(cmd.Context(), fetcher, src, opts)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	}

	output := conv.output
	if output == "" {
		if src.IsRemote() {
			return fmt.Errorf("--output is required for remote calendar %s", input)
		}
		output = pipeline.OutputPath(input)
	}

	res, err := pipeline.Run(cmd.Context(), fetcher, pipeline.Job{Source: src, Output: output}, opts)
	if err != nil {
		return err
	}
	appLog.Info("wrote org file", "output", output, "event_count", res.Events)
	return nil
}
