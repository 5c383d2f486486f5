// Package output renders analytics and guard-state reports for the CLI in
// table, JSON, and markdown formats.
package output

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/postpilot/postpilot/internal/core"
	"github.com/postpilot/postpilot/internal/core/store"
)

// Format represents an output format.
type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

// AnalyticsReport aggregates recent post performance for rendering.
type AnalyticsReport struct {
	CapturedAt   time.Time                    `json:"captured_at"`
	Posts        []core.Post                  `json:"posts"`
	Totals       core.PostMetrics             `json:"totals"`
	Interactions map[core.InteractionKind]int `json:"interactions,omitempty"`
}

// Formatter renders reports.
type Formatter interface {
	FormatAnalytics(report *AnalyticsReport) (string, error)
	FormatHistory(snapshots []core.AnalyticsSnapshot) (string, error)
	FormatGuards(entries []store.GuardEntry) (string, error)
}

// ParseFormat validates and normalizes a format string.
func ParseFormat(value string) (Format, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	switch normalized {
	case "", string(FormatTable):
		return FormatTable, nil
	case string(FormatJSON):
		return FormatJSON, nil
	case string(FormatMarkdown):
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", value)
	}
}

// NewFormatter returns a formatter for the requested format.
func NewFormatter(format Format) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	case FormatMarkdown:
		return &MarkdownFormatter{}
	default:
		return &TableFormatter{}
	}
}

// BuildAnalyticsReport assembles a report from stored posts and interaction
// counts, summing engagement totals.
func BuildAnalyticsReport(capturedAt time.Time, posts []core.Post, interactions map[core.InteractionKind]int) *AnalyticsReport {
	report := &AnalyticsReport{
		CapturedAt:   capturedAt,
		Posts:        posts,
		Interactions: interactions,
	}
	for _, post := range posts {
		report.Totals.Likes += post.Metrics.Likes
		report.Totals.Reposts += post.Metrics.Reposts
		report.Totals.Replies += post.Metrics.Replies
		report.Totals.Impressions += post.Metrics.Impressions
	}
	return report
}

// previewText shortens post text for single-line display.
func previewText(text string, maxRunes int) string {
	flattened := strings.Join(strings.Fields(text), " ")
	runes := []rune(flattened)
	if len(runes) <= maxRunes {
		return flattened
	}
	return string(runes[:maxRunes-1]) + "…"
}

// apiCallsLabel renders per-gate API usage in a stable order, e.g.
// "genai: 4, platform: 12".
func apiCallsLabel(calls map[string]int) string {
	if len(calls) == 0 {
		return "-"
	}
	names := make([]string, 0, len(calls))
	for name := range calls {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %d", name, calls[name]))
	}
	return strings.Join(parts, ", ")
}

// breakerLabel renders a stored breaker state with its failure count.
func breakerLabel(entry store.GuardEntry) string {
	label := string(entry.BreakerState)
	if entry.ConsecutiveFailures > 0 {
		label += fmt.Sprintf(" (%d failures)", entry.ConsecutiveFailures)
	}
	return label
}

// windowsLabel renders remaining tokens per window, e.g. "15m: 42/50".
func windowsLabel(entry store.GuardEntry) string {
	if len(entry.Windows) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(entry.Windows))
	for _, w := range entry.Windows {
		parts = append(parts, fmt.Sprintf("%s: %.0f/%d", w.Name, w.Tokens, w.Capacity))
	}
	return strings.Join(parts, ", ")
}
