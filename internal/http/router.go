// Package httpapi assembles the HTTP surface: the global middleware pipeline,
// health and metrics endpoints, and every module's routes.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"encantar/internal/platform/metrics"
	"encantar/internal/platform/middleware"
	"encantar/pkg/platform/httputil"
	"encantar/pkg/platform/middleware/metadata"
	"encantar/pkg/platform/middleware/requesttime"
	"encantar/pkg/requestcontext"
)

// Registrar is implemented by every module handler.
type Registrar interface {
	Register(r chi.Router)
}

// HealthCheck pings one backing service.
type HealthCheck func(ctx context.Context) error

// Options carries the settings the pipeline needs.
type Options struct {
	Env            string
	Version        string
	Production     bool
	AllowedOrigins []string
	RequestTimeout time.Duration
	MaxBodyBytes   int64
}

// Deps are the collaborators the router mounts.
type Deps struct {
	Logger      *slog.Logger
	Metrics     *metrics.Metrics
	Gatherer    prometheus.Gatherer
	GlobalLimit middleware.Func
	Checks      map[string]HealthCheck
	Handlers    []Registrar
}

// NewRouter builds the chi router. Middleware order is outermost first.
func NewRouter(opts Options, deps Deps) http.Handler {
	if deps.GlobalLimit == nil {
		deps.GlobalLimit = middleware.Passthrough
	}
	r := chi.NewRouter()
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.SecurityHeaders(opts.Production))
	r.Use(middleware.CORS(opts.AllowedOrigins))
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware)
	}
	r.Use(deps.GlobalLimit)
	r.Use(middleware.Timeout(opts.RequestTimeout))
	r.Use(middleware.MaxBodyBytes(opts.MaxBodyBytes))
	r.Use(middleware.ContentTypeJSON)

	health := &healthHandler{opts: opts, checks: deps.Checks, logger: deps.Logger}
	r.Get("/", health.live)
	r.Get("/health", health.ready)
	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	for _, h := range deps.Handlers {
		h.Register(r)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteErrorCode(w, http.StatusNotFound, "not_found", "route "+r.Method+" "+r.URL.Path+" not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteErrorCode(w, http.StatusMethodNotAllowed, "method_not_allowed", "method "+r.Method+" not allowed")
	})
	return r
}

type healthResponse struct {
	Status      string            `json:"status"`
	Timestamp   time.Time         `json:"timestamp"`
	Environment string            `json:"environment"`
	Version     string            `json:"version"`
	Checks      map[string]string `json:"checks,omitempty"`
}

type healthHandler struct {
	opts   Options
	checks map[string]HealthCheck
	logger *slog.Logger
}

func (h *healthHandler) response(r *http.Request, status string) healthResponse {
	return healthResponse{
		Status:      status,
		Timestamp:   requestcontext.Now(r.Context()),
		Environment: h.opts.Env,
		Version:     h.opts.Version,
	}
}

func (h *healthHandler) live(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.response(r, "OK"))
}

// ready pings every backing service. One failure turns the answer into 503.
func (h *healthHandler) ready(w http.ResponseWriter, r *http.Request) {
	resp := h.response(r, "OK")
	status := http.StatusOK
	if len(h.checks) > 0 {
		resp.Checks = make(map[string]string, len(h.checks))
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			h.logger.ErrorContext(ctx, "health check failed",
				"check", name,
				"error", err,
				"request_id", requestcontext.RequestID(ctx),
			)
			resp.Checks[name] = "down"
			resp.Status = "ERROR"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "up"
	}
	httputil.WriteJSON(w, status, resp)
}
