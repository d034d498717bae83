package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Rejected    *prometheus.CounterVec
	StoreErrors *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Rejected: f.NewCounterVec(prometheus.CounterOpts{
			Name: "encantar_ratelimit_rejected_total",
			Help: "Requests rejected by a rate limit policy",
		}, []string{"policy"}),
		StoreErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "encantar_ratelimit_store_errors_total",
			Help: "Bucket store failures; the request was let through",
		}, []string{"policy"}),
	}
}

func (m *Metrics) IncrementRejected(policy string) {
	if m == nil {
		return
	}
	m.Rejected.WithLabelValues(policy).Inc()
}

func (m *Metrics) IncrementStoreErrors(policy string) {
	if m == nil {
		return
	}
	m.StoreErrors.WithLabelValues(policy).Inc()
}
