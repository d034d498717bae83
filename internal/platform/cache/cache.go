package cache

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"encantar/internal/platform/metrics"
	"encantar/pkg/requestcontext"
)

const (
	keyPrefix    = "cache:"
	HeaderStatus = "X-Cache"
)

// Entity names a cached resource family by its URL segment under /api.
type Entity string

const (
	EntityBeneficiaries     Entity = "beneficiaries"
	EntityItems             Entity = "items"
	EntityRoutes            Entity = "routes"
	EntityDeliveries        Entity = "deliveries"
	EntityDeliveryTemplates Entity = "delivery-templates"
	EntityDocTemplates      Entity = "document-templates"
	EntityDashboard         Entity = "dashboard"
)

// dependents lists the families whose cached payloads embed data from the
// key entity (counts, names, joined lines).
var dependents = map[Entity][]Entity{
	EntityBeneficiaries: {EntityRoutes, EntityDeliveries, EntityDashboard},
	EntityItems:         {EntityDeliveries, EntityDeliveryTemplates, EntityRoutes, EntityDashboard},
	EntityRoutes:        {EntityDeliveries, EntityDashboard},
	EntityDeliveries:    {EntityRoutes, EntityBeneficiaries, EntityItems, EntityDashboard},
}

// Invalidator drops cached responses after a mutation.
type Invalidator interface {
	Invalidate(ctx context.Context, entity Entity)
}

// ResponseCache serves GET responses from a Store.
type ResponseCache struct {
	store   Store
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures a ResponseCache.
type Option func(*ResponseCache)

func WithLogger(logger *slog.Logger) Option {
	return func(c *ResponseCache) { c.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *ResponseCache) { c.metrics = m }
}

// New creates a response cache backed by store.
func New(store Store, opts ...Option) *ResponseCache {
	c := &ResponseCache{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key returns the cache key for a request.
func Key(r *http.Request) string {
	return keyPrefix + r.URL.RequestURI()
}

// Middleware caches successful JSON GET responses for ttl. Store failures
// degrade to an uncached request.
func (c *ResponseCache) Middleware(ttl time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()
			key := Key(r)

			body, ok, err := c.store.Get(ctx, key)
			switch {
			case err != nil:
				c.metrics.ObserveCache("error")
				c.logger.WarnContext(ctx, "response cache read failed",
					"key", key,
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
			case ok:
				c.metrics.ObserveCache("hit")
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set(HeaderStatus, "HIT")
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write(body)
				return
			default:
				c.metrics.ObserveCache("miss")
			}

			w.Header().Set(HeaderStatus, "MISS")
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			var buf bytes.Buffer
			ww.Tee(&buf)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			if status != http.StatusOK || !strings.HasPrefix(ww.Header().Get("Content-Type"), "application/json") {
				return
			}
			if err := c.store.Set(ctx, key, buf.Bytes(), ttl); err != nil {
				c.logger.WarnContext(ctx, "response cache write failed",
					"key", key,
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
			}
		})
	}
}

// Invalidate drops every cached response of entity and of the families that
// embed it.
func (c *ResponseCache) Invalidate(ctx context.Context, entity Entity) {
	for _, e := range append([]Entity{entity}, dependents[entity]...) {
		prefix := keyPrefix + "/api/" + string(e)
		n, err := c.store.DeletePrefix(ctx, prefix)
		if err != nil {
			c.logger.WarnContext(ctx, "response cache invalidation failed",
				"entity", string(e),
				"error", err,
				"request_id", requestcontext.RequestID(ctx),
			)
			continue
		}
		c.logger.DebugContext(ctx, "response cache invalidated", "entity", string(e), "keys", n)
	}
}

// Noop is an Invalidator that does nothing, for tests and cacheless setups.
type Noop struct{}

func (Noop) Invalidate(context.Context, Entity) {}
