package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ics2org/internal/ics"
)

func newCheckCmd(flags *rootFlags) *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "check <calendar.ics>",
		Short: "Compare the line parser with a full iCalendar parser",
		Long: `check parses the calendar with both the fast line parser and a full
iCalendar library, then prints both event counts and every SUMMARY the line
parser did not pick up (for example summaries carrying parameters).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			src := ics.Source{ID: args[0], URL: args[0]}
			res, err := ics.NewFetcher(cfg.CacheDir).FetchOne(cmd.Context(), src)
			if err != nil {
				return err
			}

			report, err := ics.CrossCheck(src, res.Body)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, report.String())
			for _, s := range report.MissingSummaries {
				fmt.Fprintf(out, "  missing: %s\n", s)
			}

			if strict && !report.Consistent() {
				return fmt.Errorf("parsers disagree on %s", args[0])
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "Exit non-zero when the parsers disagree")
	return cmd
}
