package server

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/errors"
	"go.uber.org/zap"

	apperrors "github.com/postpilot/postpilot/internal/errors"
	"github.com/postpilot/postpilot/internal/observability"
)

var metricsProxyClient = &http.Client{
	Timeout: 5 * time.Second,
}

// MetricsHandler proxies Prometheus metrics from the internal exporter so
// callers can scrape /metrics on the main HTTP server.
func MetricsHandler(w http.ResponseWriter, r *http.Request) {
	exporter := observability.PrometheusExporter
	if exporter == nil {
		apperrors.RespondWithEnvelope(w, r, errors.NewErrorEnvelope("SERVICE_UNAVAILABLE", "metrics exporter not initialized"))
		return
	}

	metricsPort := observability.GetMetricsPort()
	if metricsPort == 0 {
		metricsPort = 9090
	}
	metricsURL := fmt.Sprintf("http://127.0.0.1:%d/metrics", metricsPort)

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, metricsURL, nil)
	if err != nil {
		apperrors.RespondWithEnvelope(w, r, apperrors.WrapInternal(r.Context(), err, "unable to construct metrics request"))
		return
	}

	if accept := r.Header.Get("Accept"); accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := metricsProxyClient.Do(req)
	if err != nil {
		apperrors.RespondWithEnvelope(w, r, apperrors.WrapExternalService(r.Context(), err, "prometheus exporter unavailable"))
		return
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup

	for key, values := range resp.Header {
		if isHopByHopHeader(key) {
			continue
		}
		for _, v := range values {
			w.Header().Add(key, v)
		}
	}

	if resp.Header.Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	}

	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil && observability.AgentLogger != nil {
		observability.AgentLogger.Warn("Failed to write metrics response",
			zap.Error(err))
	}
}

func isHopByHopHeader(key string) bool {
	switch {
	case strings.EqualFold(key, "Connection"),
		strings.EqualFold(key, "Keep-Alive"),
		strings.EqualFold(key, "Proxy-Authenticate"),
		strings.EqualFold(key, "Proxy-Authorization"),
		strings.EqualFold(key, "TE"),
		strings.EqualFold(key, "Trailer"),
		strings.EqualFold(key, "Transfer-Encoding"),
		strings.EqualFold(key, "Upgrade"):
		return true
	}
	return false
}
