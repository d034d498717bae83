package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Mutations      *prometheus.CounterVec
	Renders        *prometheus.CounterVec
	RenderDuration prometheus.Histogram
	Rejected       prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Mutations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "encantar_document_template_mutations_total",
			Help: "Document template writes by operation",
		}, []string{"operation"}),
		Renders: f.NewCounterVec(prometheus.CounterOpts{
			Name: "encantar_document_renders_total",
			Help: "Route sheet renders by result",
		}, []string{"result"}),
		RenderDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "encantar_document_render_duration_seconds",
			Help:    "Time spent rendering and sanitizing a document",
			Buckets: prometheus.DefBuckets,
		}),
		Rejected: f.NewCounter(prometheus.CounterOpts{
			Name: "encantar_document_template_rejected_total",
			Help: "Template writes refused for unsafe content",
		}),
	}
}

func (m *Metrics) IncrementMutation(op string) {
	if m == nil {
		return
	}
	m.Mutations.WithLabelValues(op).Inc()
}

func (m *Metrics) ObserveRender(result string, start time.Time) {
	if m == nil {
		return
	}
	m.Renders.WithLabelValues(result).Inc()
	m.RenderDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncrementRejected() {
	if m == nil {
		return
	}
	m.Rejected.Inc()
}
