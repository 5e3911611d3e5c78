package main

import (
	"bufio"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/actionsum/focuslog/internal/reporter"
)

func newReportCommand(opts *options) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:       "report [day|week|month|all]",
		Short:     "Generate a per-title time report",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"day", "today", "week", "month", "all"},
		RunE: func(cmd *cobra.Command, args []string) error {
			periodType := "day"
			if len(args) > 0 {
				periodType = args[0]
			}

			store, _, closeStore, err := openStore(opts.cfg)
			if err != nil {
				return fmt.Errorf("failed to open store: %w", err)
			}
			defer closeStore()

			rep := reporter.New(opts.cfg, store)
			report, err := rep.GenerateReport(cmd.Context(), periodType)
			if err != nil {
				return fmt.Errorf("failed to generate report: %w", err)
			}

			if jsonOutput {
				jsonStr, err := rep.FormatReportJSON(report)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), jsonStr)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), rep.FormatReportText(report))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the report as JSON")
	return cmd
}

func newClearCommand(opts *options) *cobra.Command {
	var (
		yes    bool
		before string
	)

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete stored intervals",
		Long: `clear deletes every stored interval, or with --before only the intervals
that ended before midnight of the given date (YYYY-MM-DD, report time zone).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			var cutoff time.Time
			if before != "" {
				loc, err := opts.cfg.Location()
				if err != nil {
					return err
				}
				cutoff, err = time.ParseInLocation("2006-01-02", before, loc)
				if err != nil {
					return fmt.Errorf("invalid --before date %q (want YYYY-MM-DD): %w", before, err)
				}
			}

			if !yes {
				// Prompt for confirmation
				prompt := "This will delete all tracking data."
				if !cutoff.IsZero() {
					prompt = fmt.Sprintf("This will delete tracking data from before %s.", before)
				}
				fmt.Fprintf(out, "%s Are you sure? (yes/no): ", prompt)
				response, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				response = strings.ToLower(strings.TrimSpace(response))
				if response != "yes" && response != "y" {
					fmt.Fprintln(out, "Operation cancelled")
					return nil
				}
			}

			store, _, closeStore, err := openStore(opts.cfg)
			if err != nil {
				return fmt.Errorf("failed to open store: %w", err)
			}
			defer closeStore()

			var n int64
			if cutoff.IsZero() {
				n, err = store.Clear(cmd.Context())
			} else {
				n, err = store.DeleteOldRows(cmd.Context(), cutoff)
			}
			if err != nil {
				return fmt.Errorf("failed to clear store: %w", err)
			}

			fmt.Fprintf(out, "Deleted %d intervals\n", n)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	cmd.Flags().StringVar(&before, "before", "", "Only delete intervals that ended before this date (YYYY-MM-DD)")
	return cmd
}
