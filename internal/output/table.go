package output

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/postpilot/postpilot/internal/core"
	"github.com/postpilot/postpilot/internal/core/store"
)

// TableFormatter renders reports as ASCII tables.
type TableFormatter struct{}

// FormatAnalytics renders an analytics report as a table.
func (f *TableFormatter) FormatAnalytics(report *AnalyticsReport) (string, error) {
	if report == nil {
		return "", nil
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Posted", "Text", "Likes", "Reposts", "Replies", "Impressions"})

	for _, post := range report.Posts {
		t.AppendRow(table.Row{
			post.CreatedAt.UTC().Format("2006-01-02 15:04"),
			previewText(post.Text, 48),
			post.Metrics.Likes,
			post.Metrics.Reposts,
			post.Metrics.Replies,
			post.Metrics.Impressions,
		})
	}

	t.AppendFooter(table.Row{
		"",
		fmt.Sprintf("%d posts", len(report.Posts)),
		report.Totals.Likes,
		report.Totals.Reposts,
		report.Totals.Replies,
		report.Totals.Impressions,
	})

	rendered := t.Render()
	if len(report.Interactions) > 0 {
		rendered += "\n" + renderInteractionLines(report.Interactions, false)
	}
	return rendered, nil
}

// FormatHistory renders stored analytics snapshots as a table, newest first.
func (f *TableFormatter) FormatHistory(snapshots []core.AnalyticsSnapshot) (string, error) {
	if len(snapshots) == 0 {
		return "No analytics snapshots recorded.", nil
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Captured", "Posts", "Likes", "Reposts", "Replies", "Impressions", "API Calls"})

	for _, snap := range snapshots {
		t.AppendRow(table.Row{
			snap.CapturedAt.UTC().Format("2006-01-02 15:04"),
			snap.PostsTracked,
			snap.Totals.Likes,
			snap.Totals.Reposts,
			snap.Totals.Replies,
			snap.Totals.Impressions,
			apiCallsLabel(snap.APICalls),
		})
	}

	return t.Render(), nil
}

// FormatGuards renders stored gate state as a table.
func (f *TableFormatter) FormatGuards(entries []store.GuardEntry) (string, error) {
	if len(entries) == 0 {
		return "No guard state recorded.", nil
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Gate", "Windows", "Breaker", "Last Failure", "Updated"})

	for _, entry := range entries {
		t.AppendRow(table.Row{
			entry.Gate,
			windowsLabel(entry),
			breakerLabel(entry),
			formatOptionalTime(entry.LastFailureAt),
			entry.UpdatedAt.UTC().Format(time.RFC3339),
		})
	}

	return t.Render(), nil
}

func formatOptionalTime(value *time.Time) string {
	if value == nil {
		return "-"
	}
	return value.UTC().Format(time.RFC3339)
}
