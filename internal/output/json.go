package output

import (
	"encoding/json"
	"time"

	"github.com/postpilot/postpilot/internal/core"
	"github.com/postpilot/postpilot/internal/core/store"
	"github.com/postpilot/postpilot/internal/guard"
)

// JSONFormatter renders reports as JSON.
type JSONFormatter struct {
	Indent bool
}

// FormatAnalytics renders an analytics report as JSON.
func (f *JSONFormatter) FormatAnalytics(report *AnalyticsReport) (string, error) {
	if report == nil {
		return "", nil
	}
	return f.marshal(report)
}

// FormatHistory renders stored analytics snapshots as JSON.
func (f *JSONFormatter) FormatHistory(snapshots []core.AnalyticsSnapshot) (string, error) {
	return f.marshal(snapshots)
}

// guardEntryJSON gives stored guard state stable JSON field names.
type guardEntryJSON struct {
	Gate                string              `json:"gate"`
	Windows             []guard.WindowState `json:"windows"`
	BreakerState        guard.BreakerState  `json:"breaker_state"`
	ConsecutiveFailures int                 `json:"consecutive_failures"`
	LastFailureAt       *time.Time          `json:"last_failure_at,omitempty"`
	UpdatedAt           time.Time           `json:"updated_at"`
}

// FormatGuards renders stored gate state as JSON.
func (f *JSONFormatter) FormatGuards(entries []store.GuardEntry) (string, error) {
	converted := make([]guardEntryJSON, 0, len(entries))
	for _, entry := range entries {
		converted = append(converted, guardEntryJSON{
			Gate:                entry.Gate,
			Windows:             entry.Windows,
			BreakerState:        entry.BreakerState,
			ConsecutiveFailures: entry.ConsecutiveFailures,
			LastFailureAt:       entry.LastFailureAt,
			UpdatedAt:           entry.UpdatedAt,
		})
	}
	return f.marshal(converted)
}

func (f *JSONFormatter) marshal(value any) (string, error) {
	var (
		data []byte
		err  error
	)

	if f.Indent {
		data, err = json.MarshalIndent(value, "", "  ")
	} else {
		data, err = json.Marshal(value)
	}
	if err != nil {
		return "", err
	}

	return string(data), nil
}
