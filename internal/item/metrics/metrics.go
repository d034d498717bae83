package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Mutations     *prometheus.CounterVec
	InUseRejected prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Mutations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "encantar_item_mutations_total",
			Help: "Item writes by operation",
		}, []string{"operation"}),
		InUseRejected: f.NewCounter(prometheus.CounterOpts{
			Name: "encantar_item_delete_in_use_total",
			Help: "Deletes refused because deliveries or templates reference the item",
		}),
	}
}

func (m *Metrics) IncrementMutation(op string) {
	if m == nil {
		return
	}
	m.Mutations.WithLabelValues(op).Inc()
}

func (m *Metrics) IncrementInUse() {
	if m == nil {
		return
	}
	m.InUseRejected.Inc()
}
