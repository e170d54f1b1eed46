package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"ics2org/internal/config"
	appLog "ics2org/internal/log"
)

const version = "0.1.0"

// rootFlags holds the flags shared by every subcommand.
type rootFlags struct {
	configPath string
	logLevel   string
}

func init() {
	// A missing .env is the normal case.
	if err := godotenv.Load(); err != nil {
		appLog.Debug("no .env loaded", "reason", err.Error())
	}
}

func main() {
	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		appLog.Error("ics2org failed", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	conv := &convertFlags{}

	cmd := &cobra.Command{
		Use:   "ics2org <calendar.ics>",
		Short: "Convert an iCalendar export into an Org-mode outline",
		Long: `ics2org reads an iCalendar (.ics) export and writes one Org heading per
event with a SCHEDULED timestamp. Without a subcommand it converts a single
file (or URL); "watch" and "serve" work on the sources listed in the config.`,
		Version:       version,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return setupLogging(flags.logLevel)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd, flags, conv, args[0])
		},
	}

	cmd.PersistentFlags().StringVar(&flags.configPath, "config", os.Getenv("ICS2ORG_CONFIG"), "Path to YAML config file (created with defaults if missing)")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", os.Getenv("ICS2ORG_LOG_LEVEL"), "Log level: debug, info, warn, error")
	conv.register(cmd)

	cmd.AddCommand(
		newConvertCmd(flags),
		newCheckCmd(flags),
		newWatchCmd(flags),
		newServeCmd(flags),
	)
	return cmd
}

func setupLogging(level string) error {
	if level == "" {
		return nil
	}
	l, err := appLog.ParseLevel(level)
	if err != nil {
		return err
	}
	appLog.SetLevel(l)
	return nil
}

// loadConfig returns the defaults when no config path was given; otherwise
// it loads (or first creates) the file. A config log_level applies unless
// --log-level was set.
func loadConfig(flags *rootFlags) (*config.Config, error) {
	if flags.configPath == "" {
		return config.DefaultConfig(), nil
	}

	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}
	if flags.logLevel == "" {
		if err := setupLogging(cfg.LogLevel); err != nil {
			return nil, err
		}
	}

	appLog.Debug("effective config",
		"config_path", flags.configPath,
		"heading", cfg.Heading,
		"include_time", cfg.IncludeTime,
		"refresh", cfg.Refresh,
		"listen", cfg.Listen,
		"source_count", len(cfg.Sources),
	)
	return cfg, nil
}
