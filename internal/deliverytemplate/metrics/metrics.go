package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Mutations     *prometheus.CounterVec
	LinesPerWrite   prometheus.Histogram
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Mutations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "encantar_delivery_template_mutations_total",
			Help: "Delivery template writes by operation",
		}, []string{"operation"}),
		LinesPerWrite: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "encantar_delivery_template_lines",
			Help:    "Item lines stored per template write",
			Buckets: []float64{1, 2, 5, 10, 20, 50},
		}),
	}
}

func (m *Metrics) IncrementMutation(op string) {
	if m == nil {
		return
	}
	m.Mutations.WithLabelValues(op).Inc()
}

func (m *Metrics) ObserveLines(n int) {
	if m == nil {
		return
	}
	m.LinesPerWrite.Observe(float64(n))
}
