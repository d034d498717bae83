package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Mutations   *prometheus.CounterVec
	Duplicates  prometheus.Counter
	SearchTerms prometheus.Histogram
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Mutations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "encantar_beneficiary_mutations_total",
			Help: "Beneficiary writes by operation (create, update, deactivate)",
		}, []string{"operation"}),
		Duplicates: f.NewCounter(prometheus.CounterOpts{
			Name: "encantar_beneficiary_duplicates_rejected_total",
			Help: "Creates or updates rejected because name and address were taken",
		}),
		SearchTerms: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "encantar_beneficiary_search_results",
			Help:    "Result count of autocomplete searches",
			Buckets: []float64{0, 1, 5, 10, 25, 50},
		}),
	}
}

func (m *Metrics) IncrementMutation(op string) {
	if m == nil {
		return
	}
	m.Mutations.WithLabelValues(op).Inc()
}

func (m *Metrics) IncrementDuplicates() {
	if m == nil {
		return
	}
	m.Duplicates.Inc()
}

func (m *Metrics) ObserveSearch(results int) {
	if m == nil {
		return
	}
	m.SearchTerms.Observe(float64(results))
}
