package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	VouchesGiven    prometheus.Counter
	VouchesRevoked  prometheus.Counter
	WeightUpdates   prometheus.Counter
	Rejections      *prometheus.CounterVec
	ScoreComputeSec prometheus.Histogram
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		VouchesGiven: f.NewCounter(prometheus.CounterOpts{
			Name: "arisan_trust_vouches_given_total",
			Help: "Total number of vouches created",
		}),
		VouchesRevoked: f.NewCounter(prometheus.CounterOpts{
			Name: "arisan_trust_vouches_revoked_total",
			Help: "Total number of vouches revoked",
		}),
		WeightUpdates: f.NewCounter(prometheus.CounterOpts{
			Name: "arisan_trust_vouch_weight_updates_total",
			Help: "Total number of vouch weight changes",
		}),
		Rejections: f.NewCounterVec(prometheus.CounterOpts{
			Name: "arisan_trust_rejections_total",
			Help: "Rejected trust operations by reason",
		}, []string{"reason"}),
		ScoreComputeSec: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "arisan_trust_score_compute_seconds",
			Help:    "Latency of trust score computation",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}),
	}
}

func (m *Metrics) IncrementVouchesGiven() {
	m.VouchesGiven.Inc()
}

func (m *Metrics) IncrementVouchesRevoked() {
	m.VouchesRevoked.Inc()
}

func (m *Metrics) IncrementWeightUpdates() {
	m.WeightUpdates.Inc()
}

func (m *Metrics) IncrementRejection(reason string) {
	if reason == "" {
		reason = "other"
	}
	m.Rejections.WithLabelValues(reason).Inc()
}

func (m *Metrics) ObserveScoreCompute(seconds float64) {
	m.ScoreComputeSec.Observe(seconds)
}
