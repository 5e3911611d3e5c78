package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/actionsum/focuslog/internal/activity"
	"github.com/actionsum/focuslog/internal/flush"
	"github.com/actionsum/focuslog/internal/memory"
	"github.com/actionsum/focuslog/internal/models"
	"github.com/actionsum/focuslog/internal/reporter"
	"github.com/actionsum/focuslog/internal/tracker"
	"github.com/actionsum/focuslog/pkg/detector"
)

// discardStore drops rows; watch never persists anything
type discardStore struct{}

func (discardStore) LoadRows(ctx context.Context) ([]activity.Row, error) { return nil, nil }
func (discardStore) SaveRows(ctx context.Context, rows []activity.Row) error { return nil }

var _ flush.Store = discardStore{}

func newWatchCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print every accounted title change until interrupted",
		Long: `watch runs the accounting engine in the foreground without writing to the
store. Each line shows the interval that was closed by a title change. On exit
the intervals of the run are summarized per title and discarded.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := *opts.cfg
			cfg.Flush.OnExit = false

			windows, inputs, err := detector.New(cfg.Tracker.Display, cfg.Tracker.InputPollInterval)
			if err != nil {
				return fmt.Errorf("failed to initialize window detector: %w", err)
			}

			out := cmd.OutOrStdout()
			svc := tracker.NewService(&cfg, windows, inputs, discardStore{}, memory.Fixed(0))
			svc.OnChange = func(title string, closed activity.Closed, ok bool) {
				fmt.Fprintf(out, "[%s] %s\n", time.Now().Format("15:04:05"), titleOrNone(title))
				if !ok {
					return
				}
				mark := ""
				if closed.Capped {
					mark = " (idle)"
				}
				fmt.Fprintf(out, "           closed %q after %v%s\n", label(closed.Title),
					closed.Interval.Duration().Round(time.Millisecond), mark)
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			fmt.Fprintf(out, "Watching focus changes (session %s), press Ctrl-C to stop\n", svc.Session())
			started := time.Now()
			runErr := svc.Start(ctx)

			period := models.ReportPeriod{Start: started, End: time.Now(), Type: "watch"}
			report := reporter.Summarize(svc.Snapshot().Rows(svc.Session()), period)
			fmt.Fprintf(out, "\n%d intervals this session\n", svc.Pending())
			fmt.Fprintln(out, reporter.New(&cfg, nil).FormatReportText(report))
			return runErr
		},
	}
}

func label(title string) string {
	if title == "" {
		return reporter.NoWindowLabel
	}
	return title
}
