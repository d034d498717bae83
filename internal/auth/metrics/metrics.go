package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	LoginAttempts  *prometheus.CounterVec
	Registrations  prometheus.Counter
	InvitesCreated prometheus.Counter
	InvitesPurged  prometheus.Counter
	LoginDuration  prometheus.Histogram
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		LoginAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "encantar_auth_login_attempts_total",
			Help: "Login attempts by result (success, invalid_credentials, disabled)",
		}, []string{"result"}),
		Registrations: f.NewCounter(prometheus.CounterOpts{
			Name: "encantar_auth_registrations_total",
			Help: "Administrators registered through invites",
		}),
		InvitesCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "encantar_auth_invites_created_total",
			Help: "Invites created",
		}),
		InvitesPurged: f.NewCounter(prometheus.CounterOpts{
			Name: "encantar_auth_invites_purged_total",
			Help: "Expired invites removed by the cleanup job",
		}),
		LoginDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "encantar_auth_login_duration_seconds",
			Help:    "Login latency including password verification",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2},
		}),
	}
}

func (m *Metrics) ObserveLogin(result string, start time.Time) {
	if m == nil {
		return
	}
	m.LoginAttempts.WithLabelValues(result).Inc()
	m.LoginDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncrementRegistrations() {
	if m == nil {
		return
	}
	m.Registrations.Inc()
}

func (m *Metrics) IncrementInvitesCreated() {
	if m == nil {
		return
	}
	m.InvitesCreated.Inc()
}

func (m *Metrics) AddInvitesPurged(n int64) {
	if m == nil {
		return
	}
	m.InvitesPurged.Add(float64(n))
}
