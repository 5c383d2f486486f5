package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/postpilot/postpilot/internal/config"
	"github.com/postpilot/postpilot/internal/guard"
)

func testServerConfig() config.ServerConfig {
	return config.ServerConfig{
		Host:         "localhost",
		Port:         0,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}

func testGate(t *testing.T, name string) *guard.Gate {
	t.Helper()
	gate, err := guard.New(name, guard.Config{
		Windows: []guard.Window{
			{Name: "1m", MaxRequests: 10, Period: time.Minute},
		},
	})
	require.NoError(t, err)
	return gate
}

func TestHealthAggregateHealthy(t *testing.T) {
	health := NewHealthManager("1.2.3")
	health.RegisterChecker("store", CheckFunc(func(ctx context.Context) error { return nil }))

	srv := New(testServerConfig(), health, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var response HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	require.Equal(t, "healthy", response.Status)
	require.Equal(t, "1.2.3", response.Version)
	require.Equal(t, "healthy", response.Checks["store"])
}

func TestHealthAggregateUnhealthy(t *testing.T) {
	health := NewHealthManager("1.2.3")
	health.RegisterChecker("store", CheckFunc(func(ctx context.Context) error {
		return errors.New("database unreachable")
	}))

	srv := New(testServerConfig(), health, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var response struct {
		Error struct {
			Code    string         `json:"code"`
			Details map[string]any `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	require.Equal(t, "SERVICE_UNAVAILABLE", response.Error.Code)
}

func TestLivenessIgnoresCheckers(t *testing.T) {
	health := NewHealthManager("1.2.3")
	health.RegisterChecker("store", CheckFunc(func(ctx context.Context) error {
		return errors.New("database unreachable")
	}))

	srv := New(testServerConfig(), health, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestReadinessUnhealthy(t *testing.T) {
	health := NewHealthManager("1.2.3")
	health.RegisterChecker("platform", CheckFunc(func(ctx context.Context) error {
		return errors.New("no bearer token")
	}))

	srv := New(testServerConfig(), health, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestVersionEndpoint(t *testing.T) {
	SetVersionInfo("2.0.0", "abc123", "2026-03-01")
	t.Cleanup(func() { SetVersionInfo("dev", "unknown", "unknown") })

	srv := New(testServerConfig(), NewHealthManager("2.0.0"), nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/version", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var response VersionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	require.Equal(t, "postpilot", response.App.Name)
	require.Equal(t, "2.0.0", response.App.Version)
	require.Equal(t, "abc123", response.App.Commit)
	require.NotZero(t, response.Runtime.NumCPU)
}

func TestGuardsEndpoint(t *testing.T) {
	gates := []*guard.Gate{
		testGate(t, "trends"),
		testGate(t, "platform"),
		nil,
	}

	srv := New(testServerConfig(), NewHealthManager("dev"), gates)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/guards", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var response GuardsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	require.Len(t, response.Gates, 2)
	require.Equal(t, "platform", response.Gates[0].Name)
	require.Equal(t, "trends", response.Gates[1].Name)
	require.Equal(t, guard.BreakerClosed, response.Gates[0].Breaker.State)
	require.Len(t, response.Gates[0].Windows, 1)
	require.Equal(t, 10, response.Gates[0].Windows[0].Capacity)
}

func TestNotFoundEnvelope(t *testing.T) {
	srv := New(testServerConfig(), NewHealthManager("dev"), nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))

	require.Equal(t, http.StatusNotFound, rec.Code)

	var response struct {
		Error struct {
			Code      string `json:"code"`
			RequestID string `json:"request_id"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	require.Equal(t, "NOT_FOUND", response.Error.Code)
	require.NotEmpty(t, response.Error.RequestID)
}

func TestRecoveryMiddleware(t *testing.T) {
	srv := New(testServerConfig(), NewHealthManager("dev"), nil)
	srv.router.Get("/boom", func(w http.ResponseWriter, r *http.Request) {
		panic("kaboom")
	})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var response struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	require.Equal(t, "INTERNAL_ERROR", response.Error.Code)
}
