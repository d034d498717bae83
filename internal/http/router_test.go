package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"encantar/internal/platform/logger"
	"encantar/internal/platform/metrics"
	"encantar/pkg/platform/httputil"
	"encantar/pkg/testutil"
)

type pingRoutes struct{}

func (pingRoutes) Register(r chi.Router) {
	r.Get("/api/ping", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteData(w, "pong")
	})
}

func newRouter(checks map[string]HealthCheck) http.Handler {
	reg := prometheus.NewRegistry()
	return NewRouter(Options{
		Env:            "test",
		Version:        "1.0.0",
		AllowedOrigins: []string{"http://localhost:3000"},
		RequestTimeout: 5 * time.Second,
		MaxBodyBytes:   1 << 20,
	}, Deps{
		Logger:   logger.Discard(),
		Metrics:  metrics.New(reg),
		Gatherer: reg,
		Checks:   checks,
		Handlers: []Registrar{pingRoutes{}},
	})
}

func TestHealth(t *testing.T) {
	t.Run("root reports liveness", func(t *testing.T) {
		rr := testutil.DoRequest(newRouter(nil), httptest.NewRequest(http.MethodGet, "/", nil))

		require.Equal(t, http.StatusOK, rr.Code)
		var body healthResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		assert.Equal(t, "OK", body.Status)
		assert.Equal(t, "test", body.Environment)
		assert.Equal(t, "1.0.0", body.Version)
	})

	t.Run("failed ping is 503", func(t *testing.T) {
		router := newRouter(map[string]HealthCheck{
			"postgres": func(context.Context) error { return nil },
			"redis":    func(context.Context) error { return errors.New("connection refused") },
		})
		rr := testutil.DoRequest(router, httptest.NewRequest(http.MethodGet, "/health", nil))

		require.Equal(t, http.StatusServiceUnavailable, rr.Code)
		var body healthResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		assert.Equal(t, "ERROR", body.Status)
		assert.Equal(t, map[string]string{"postgres": "up", "redis": "down"}, body.Checks)
	})
}

func TestUnknownRouteUsesErrorEnvelope(t *testing.T) {
	rr := testutil.DoRequest(newRouter(nil), httptest.NewRequest(http.MethodGet, "/api/nope", nil))
	testutil.AssertStatusAndError(t, rr, http.StatusNotFound, "not_found")
}

func TestPipelineHeaders(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/ping", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("X-Request-ID", "abc")
	rr := testutil.DoRequest(newRouter(nil), req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "abc", rr.Header().Get("X-Request-ID"))
	assert.Equal(t, "http://localhost:3000", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
}

func TestMetricsEndpoint(t *testing.T) {
	router := newRouter(nil)
	testutil.DoRequest(router, httptest.NewRequest(http.MethodGet, "/api/ping", nil))

	rr := testutil.DoRequest(router, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `encantar_http_requests_total{method="GET",route="/api/ping",status="200"} 1`)
}
