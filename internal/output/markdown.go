package output

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/postpilot/postpilot/internal/core"
	"github.com/postpilot/postpilot/internal/core/store"
)

// MarkdownFormatter renders reports as markdown tables.
type MarkdownFormatter struct{}

// FormatAnalytics renders an analytics report as Markdown.
func (f *MarkdownFormatter) FormatAnalytics(report *AnalyticsReport) (string, error) {
	if report == nil {
		return "", nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Post performance (%s)\n\n", report.CapturedAt.UTC().Format("2006-01-02 15:04")))
	sb.WriteString("| Posted | Text | Likes | Reposts | Replies | Impressions |\n")
	sb.WriteString("|--------|------|-------|---------|---------|-------------|\n")

	for _, post := range report.Posts {
		sb.WriteString(fmt.Sprintf("| %s | %s | %d | %d | %d | %d |\n",
			post.CreatedAt.UTC().Format("2006-01-02 15:04"),
			escapeMarkdownCell(previewText(post.Text, 48)),
			post.Metrics.Likes,
			post.Metrics.Reposts,
			post.Metrics.Replies,
			post.Metrics.Impressions,
		))
	}

	sb.WriteString(fmt.Sprintf("\n**Totals**: %d likes, %d reposts, %d replies, %d impressions across %d posts\n",
		report.Totals.Likes,
		report.Totals.Reposts,
		report.Totals.Replies,
		report.Totals.Impressions,
		len(report.Posts),
	))

	if len(report.Interactions) > 0 {
		sb.WriteString("\n")
		sb.WriteString(renderInteractionLines(report.Interactions, true))
	}

	return sb.String(), nil
}

// FormatHistory renders stored analytics snapshots as a Markdown table.
func (f *MarkdownFormatter) FormatHistory(snapshots []core.AnalyticsSnapshot) (string, error) {
	if len(snapshots) == 0 {
		return "No analytics snapshots recorded.\n", nil
	}

	var sb strings.Builder
	sb.WriteString("## Analytics history\n\n")
	sb.WriteString("| Captured | Posts | Likes | Reposts | Replies | Impressions | API Calls |\n")
	sb.WriteString("|----------|-------|-------|---------|---------|-------------|-----------|\n")

	for _, snap := range snapshots {
		sb.WriteString(fmt.Sprintf("| %s | %d | %d | %d | %d | %d | %s |\n",
			snap.CapturedAt.UTC().Format("2006-01-02 15:04"),
			snap.PostsTracked,
			snap.Totals.Likes,
			snap.Totals.Reposts,
			snap.Totals.Replies,
			snap.Totals.Impressions,
			escapeMarkdownCell(apiCallsLabel(snap.APICalls)),
		))
	}

	return sb.String(), nil
}

// FormatGuards renders stored gate state as Markdown.
func (f *MarkdownFormatter) FormatGuards(entries []store.GuardEntry) (string, error) {
	if len(entries) == 0 {
		return "No guard state recorded.\n", nil
	}

	var sb strings.Builder
	sb.WriteString("## Guard state\n\n")
	sb.WriteString("| Gate | Windows | Breaker | Last Failure | Updated |\n")
	sb.WriteString("|------|---------|---------|--------------|--------|\n")

	for _, entry := range entries {
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s |\n",
			escapeMarkdownCell(entry.Gate),
			escapeMarkdownCell(windowsLabel(entry)),
			escapeMarkdownCell(breakerLabel(entry)),
			formatOptionalTime(entry.LastFailureAt),
			entry.UpdatedAt.UTC().Format(time.RFC3339),
		))
	}

	return sb.String(), nil
}

// renderInteractionLines lists engagement counts in a stable order.
func renderInteractionLines(interactions map[core.InteractionKind]int, markdown bool) string {
	kinds := make([]string, 0, len(interactions))
	for kind := range interactions {
		kinds = append(kinds, string(kind))
	}
	sort.Strings(kinds)

	var sb strings.Builder
	if markdown {
		sb.WriteString("**Interactions (24h)**:\n")
	} else {
		sb.WriteString("Interactions (24h):\n")
	}
	for _, kind := range kinds {
		if markdown {
			sb.WriteString(fmt.Sprintf("- %s: %d\n", kind, interactions[core.InteractionKind(kind)]))
		} else {
			sb.WriteString(fmt.Sprintf("  %s: %d\n", kind, interactions[core.InteractionKind(kind)]))
		}
	}
	return sb.String()
}

func escapeMarkdownCell(value string) string {
	return strings.ReplaceAll(value, "|", "\\|")
}
