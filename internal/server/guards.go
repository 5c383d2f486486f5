package server

import (
	"encoding/json"
	"net/http"
	"sort"

	"github.com/postpilot/postpilot/internal/guard"
	"github.com/postpilot/postpilot/internal/metrics"
)

// GuardsResponse is the /guards payload.
type GuardsResponse struct {
	Gates []guard.Snapshot `json:"gates"`
}

// guardsHandler reports a point-in-time snapshot of every gate: remaining
// tokens per window and breaker state. Snapshots are also pushed to the
// telemetry gauges so a scrape after a status call sees the same numbers.
func (s *Server) guardsHandler(w http.ResponseWriter, r *http.Request) {
	snapshots := make([]guard.Snapshot, 0, len(s.gates))
	for _, gate := range s.gates {
		if gate == nil {
			continue
		}
		snapshot := gate.Snapshot()
		metrics.ObserveGate(snapshot)
		snapshots = append(snapshots, snapshot)
	}

	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].Name < snapshots[j].Name
	})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(GuardsResponse{Gates: snapshots})
}
