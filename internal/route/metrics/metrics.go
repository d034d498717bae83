package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Mutations      *prometheus.CounterVec
	Sheets         *prometheus.CounterVec
	BulkStatusRows prometheus.Counter
	DeleteRejected prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Mutations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "encantar_route_mutations_total",
			Help: "Route writes by operation",
		}, []string{"operation"}),
		Sheets: f.NewCounterVec(prometheus.CounterOpts{
			Name: "encantar_route_sheets_total",
			Help: "Route sheets produced by format",
		}, []string{"format"}),
		BulkStatusRows: f.NewCounter(prometheus.CounterOpts{
			Name: "encantar_route_bulk_status_deliveries_total",
			Help: "Deliveries changed through route-wide status updates",
		}),
		DeleteRejected: f.NewCounter(prometheus.CounterOpts{
			Name: "encantar_route_delete_rejected_total",
			Help: "Deletes refused because the route still has deliveries",
		}),
	}
}

func (m *Metrics) IncrementMutation(op string) {
	if m == nil {
		return
	}
	m.Mutations.WithLabelValues(op).Inc()
}

func (m *Metrics) IncrementSheet(format string) {
	if m == nil {
		return
	}
	m.Sheets.WithLabelValues(format).Inc()
}

func (m *Metrics) AddBulkStatus(n int) {
	if m == nil {
		return
	}
	m.BulkStatusRows.Add(float64(n))
}

func (m *Metrics) IncrementDeleteRejected() {
	if m == nil {
		return
	}
	m.DeleteRejected.Inc()
}
