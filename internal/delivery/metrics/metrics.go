package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Mutations      *prometheus.CounterVec
	StatusChanges  *prometheus.CounterVec
	LinesPerCreate prometheus.Histogram
	Rejected       *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Mutations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "encantar_delivery_mutations_total",
			Help: "Delivery writes by operation",
		}, []string{"operation"}),
		StatusChanges: f.NewCounterVec(prometheus.CounterOpts{
			Name: "encantar_delivery_status_changes_total",
			Help: "Delivery status transitions by target status",
		}, []string{"status"}),
		LinesPerCreate: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "encantar_delivery_lines",
			Help:    "Item lines per created delivery",
			Buckets: []float64{1, 2, 3, 5, 8, 13, 21},
		}),
		Rejected: f.NewCounterVec(prometheus.CounterOpts{
			Name: "encantar_delivery_rejected_total",
			Help: "Delivery writes refused by reference checks",
		}, []string{"reason"}),
	}
}

func (m *Metrics) IncrementMutation(op string) {
	if m == nil {
		return
	}
	m.Mutations.WithLabelValues(op).Inc()
}

func (m *Metrics) IncrementStatus(status string) {
	if m == nil {
		return
	}
	m.StatusChanges.WithLabelValues(status).Inc()
}

func (m *Metrics) ObserveLines(n int) {
	if m == nil {
		return
	}
	m.LinesPerCreate.Observe(float64(n))
}

func (m *Metrics) IncrementRejected(reason string) {
	if m == nil {
		return
	}
	m.Rejected.WithLabelValues(reason).Inc()
}
