package reporter

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/actionsum/focuslog/internal/activity"
	"github.com/actionsum/focuslog/internal/config"
	"github.com/actionsum/focuslog/internal/models"
	"github.com/actionsum/focuslog/pkg/utils"
)

// NoWindowLabel names time spent with no focused window
const NoWindowLabel = "(no window)"

// RowSource returns stored rows overlapping [start, end)
type RowSource interface {
	RowsBetween(ctx context.Context, start, end time.Time) ([]activity.Row, error)
}

// Reporter handles report generation
type Reporter struct {
	config *config.Config
	rows   RowSource
	now    func() time.Time
}

// New creates a new reporter
func New(cfg *config.Config, rows RowSource) *Reporter {
	return &Reporter{
		config: cfg,
		rows:   rows,
		now:    time.Now,
	}
}

// GenerateReport generates a report for the specified period
func (r *Reporter) GenerateReport(ctx context.Context, periodType string) (*models.Report, error) {
	period, err := r.getPeriod(periodType)
	if err != nil {
		return nil, err
	}

	rows, err := r.rows.RowsBetween(ctx, period.Start, period.End)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}

	report := Summarize(rows, *period)
	report.GeneratedAt = r.now()
	return report, nil
}

// getPeriod calculates the time range for the report
func (r *Reporter) getPeriod(periodType string) (*models.ReportPeriod, error) {
	loc, err := r.config.Location()
	if err != nil {
		return nil, err
	}
	now := r.now().In(loc)
	var start, end time.Time

	switch periodType {
	case "day", "today":
		periodType = "day"
		start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
		end = start.AddDate(0, 0, 1)

	case "week":
		// Start of week (Monday)
		weekday := int(now.Weekday())
		if weekday == 0 {
			weekday = 7 // Sunday = 7
		}
		start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, -(weekday - 1))
		end = start.AddDate(0, 0, 7)

	case "month":
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
		end = start.AddDate(0, 1, 0)

	case "all":
		start = time.Unix(0, 0).In(loc)
		end = now.Add(time.Second)

	default:
		return nil, fmt.Errorf("invalid period type: %s (valid: day, week, month, all)", periodType)
	}

	return &models.ReportPeriod{
		Start: start,
		End:   end,
		Type:  periodType,
	}, nil
}

// Summarize totals rows per title. Each row is clipped to the period first,
// so an interval crossing midnight only counts its share of the day.
func Summarize(rows []activity.Row, period models.ReportPeriod) *models.Report {
	type acc struct {
		d     time.Duration
		count int
	}
	byTitle := make(map[string]*acc)
	sessions := make(map[string]struct{})
	var total time.Duration

	for _, row := range rows {
		start, end := row.Start, row.End
		if start.Before(period.Start) {
			start = period.Start
		}
		if end.After(period.End) {
			end = period.End
		}
		if !end.After(start) {
			continue
		}

		title := row.Title
		if title == "" {
			title = NoWindowLabel
		}
		a, ok := byTitle[title]
		if !ok {
			a = &acc{}
			byTitle[title] = a
		}
		a.d += end.Sub(start)
		a.count++
		total += end.Sub(start)
		if row.Session != "" {
			sessions[row.Session] = struct{}{}
		}
	}

	summaries := make([]models.TitleSummary, 0, len(byTitle))
	for title, a := range byTitle {
		s := models.TitleSummary{
			Title:         title,
			TotalSeconds:  int64(a.d / time.Second),
			TotalMinutes:  a.d.Minutes(),
			TotalHours:    a.d.Hours(),
			IntervalCount: a.count,
		}
		if total > 0 {
			s.Percentage = float64(a.d) / float64(total) * 100.0
		}
		summaries = append(summaries, s)
	}
	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].TotalSeconds != summaries[j].TotalSeconds {
			return summaries[i].TotalSeconds > summaries[j].TotalSeconds
		}
		return summaries[i].Title < summaries[j].Title
	})

	return &models.Report{
		Period:       period,
		Titles:       summaries,
		TotalSeconds: int64(total / time.Second),
		TotalMinutes: total.Minutes(),
		TotalHours:   total.Hours(),
		Sessions:     len(sessions),
	}
}

// FormatReportText formats the report as human-readable text
func (r *Reporter) FormatReportText(report *models.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Activity Report - %s\n", report.Period.Type)
	fmt.Fprintf(&b, "Period: %s to %s\n",
		report.Period.Start.Format("2006-01-02 15:04"),
		report.Period.End.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "Total Time: %.2fh (%.0fm)\n\n", report.TotalHours, report.TotalMinutes)

	if len(report.Titles) == 0 {
		b.WriteString("No activity recorded for this period.\n")
		return b.String()
	}

	fmt.Fprintf(&b, "%-50s %8s %10s %8s\n", "Title", "Time", "Intervals", "Percent")
	fmt.Fprintf(&b, "%s\n", strings.Repeat("-", 80))

	for _, s := range report.Titles {
		fmt.Fprintf(&b, "%-50s %8s %10s %7.1f%%\n",
			truncate(s.Title, 50),
			utils.FormatRoundedUnit(s.TotalSeconds),
			humanize.Comma(int64(s.IntervalCount)),
			s.Percentage)
	}

	return b.String()
}

// FormatReportJSON formats the report as JSON
func (r *Reporter) FormatReportJSON(report *models.Report) (string, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(data), nil
}

// truncate shortens s to maxLen runes
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}
