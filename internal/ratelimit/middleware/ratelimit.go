package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"encantar/internal/ratelimit/metrics"
	"encantar/internal/ratelimit/models"
	"encantar/pkg/platform/circuit"
	"encantar/pkg/platform/httputil"
	"encantar/pkg/requestcontext"
)

const (
	HeaderLimit     = "X-RateLimit-Limit"
	HeaderRemaining = "X-RateLimit-Remaining"
	HeaderReset     = "X-RateLimit-Reset"
	HeaderStatus    = "X-RateLimit-Status"
)

// BucketStore admits or rejects one request for a key.
type BucketStore interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.RateLimitResult, error)
}

type Middleware struct {
	store    BucketStore
	fallback BucketStore
	breaker  *circuit.Breaker
	logger   *slog.Logger
	metrics  *metrics.Metrics
	disabled bool
}

type Option func(*Middleware)

// WithDisabled disables rate limiting entirely.
func WithDisabled(disabled bool) Option {
	return func(m *Middleware) {
		m.disabled = disabled
	}
}

// WithFallback serves limits from a local store while the primary store keeps
// failing.
func WithFallback(store BucketStore, breaker *circuit.Breaker) Option {
	return func(m *Middleware) {
		m.fallback = store
		m.breaker = breaker
	}
}

func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Middleware) {
		m.metrics = mt
	}
}

func New(store BucketStore, logger *slog.Logger, opts ...Option) *Middleware {
	m := &Middleware{
		store:  store,
		logger: logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.disabled {
		logger.Info("rate limiting disabled")
	}
	return m
}

// Limit enforces policy per client IP.
func (m *Middleware) Limit(policy models.Policy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m.disabled {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			ip := requestcontext.ClientIP(ctx)
			if ip == "" {
				ip = "unknown"
			}

			result, degraded, err := m.check(ctx, policy, policy.Key(ip))
			if err != nil {
				m.metrics.IncrementStoreErrors(policy.Name)
				m.logger.ErrorContext(ctx, "failed to check rate limit",
					"policy", policy.Name,
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				next.ServeHTTP(w, r)
				return
			}

			addRateLimitHeaders(w, result)
			if degraded {
				w.Header().Set(HeaderStatus, "degraded")
			}

			if !result.Allowed {
				m.metrics.IncrementRejected(policy.Name)
				m.logger.WarnContext(ctx, "rate limit exceeded",
					"policy", policy.Name,
					"client_ip", ip,
					"method", r.Method,
					"path", r.URL.Path,
					"request_id", requestcontext.RequestID(ctx),
				)
				writeRateLimitExceeded(w, policy, result)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// check asks the primary store and, once the breaker has opened, answers from
// the fallback store until the primary recovers.
func (m *Middleware) check(ctx context.Context, policy models.Policy, key string) (*models.RateLimitResult, bool, error) {
	result, err := m.store.Allow(ctx, key, policy.Limit, policy.Window)
	if m.breaker == nil || m.fallback == nil {
		return result, false, err
	}

	if err != nil {
		useFallback, change := m.breaker.RecordFailure()
		if change.Opened {
			m.logger.WarnContext(ctx, "rate limit store unavailable, using in-memory fallback",
				"breaker", m.breaker.Name(),
				"error", err,
			)
		}
		if !useFallback {
			return nil, false, err
		}
		fallback, ferr := m.fallback.Allow(ctx, key, policy.Limit, policy.Window)
		return fallback, true, ferr
	}

	usePrimary, change := m.breaker.RecordSuccess()
	if change.Closed {
		m.logger.InfoContext(ctx, "rate limit store recovered", "breaker", m.breaker.Name())
	}
	if usePrimary {
		return result, false, nil
	}
	fallback, ferr := m.fallback.Allow(ctx, key, policy.Limit, policy.Window)
	return fallback, true, ferr
}

func addRateLimitHeaders(w http.ResponseWriter, result *models.RateLimitResult) {
	if result == nil {
		return
	}
	w.Header().Set(HeaderLimit, strconv.Itoa(result.Limit))
	w.Header().Set(HeaderRemaining, strconv.Itoa(result.Remaining))
	w.Header().Set(HeaderReset, strconv.FormatInt(result.ResetAt.Unix(), 10))
}

func writeRateLimitExceeded(w http.ResponseWriter, policy models.Policy, result *models.RateLimitResult) {
	w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
	httputil.WriteErrorCode(w, http.StatusTooManyRequests, policy.Code, policy.Message)
}
