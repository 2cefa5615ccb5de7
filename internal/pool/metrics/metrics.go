package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Joins          prometheus.Counter
	PoolsStarted   prometheus.Counter
	Contributions  prometheus.Counter
	Settlements    prometheus.Counter
	PoolsCompleted prometheus.Counter
	FeesCollected  prometheus.Counter
	Rejections     *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Joins: f.NewCounter(prometheus.CounterOpts{
			Name: "arisan_pool_joins_total",
			Help: "Total number of successful pool joins",
		}),
		PoolsStarted: f.NewCounter(prometheus.CounterOpts{
			Name: "arisan_pool_started_total",
			Help: "Total number of pools that filled and became active",
		}),
		Contributions: f.NewCounter(prometheus.CounterOpts{
			Name: "arisan_pool_contributions_total",
			Help: "Total number of accepted contributions",
		}),
		Settlements: f.NewCounter(prometheus.CounterOpts{
			Name: "arisan_pool_cycles_settled_total",
			Help: "Total number of settled payout cycles",
		}),
		PoolsCompleted: f.NewCounter(prometheus.CounterOpts{
			Name: "arisan_pool_completed_total",
			Help: "Total number of pools that paid every member",
		}),
		FeesCollected: f.NewCounter(prometheus.CounterOpts{
			Name: "arisan_pool_fees_collected_units_total",
			Help: "Ujrah routed to treasuries, in smallest token units",
		}),
		Rejections: f.NewCounterVec(prometheus.CounterOpts{
			Name: "arisan_pool_rejections_total",
			Help: "Rejected pool operations by operation and reason",
		}, []string{"operation", "reason"}),
	}
}

func (m *Metrics) IncrementJoins(started bool) {
	m.Joins.Inc()
	if started {
		m.PoolsStarted.Inc()
	}
}

func (m *Metrics) IncrementContributions() {
	m.Contributions.Inc()
}

func (m *Metrics) RecordSettlement(fee uint64, completed bool) {
	m.Settlements.Inc()
	m.FeesCollected.Add(float64(fee))
	if completed {
		m.PoolsCompleted.Inc()
	}
}

func (m *Metrics) IncrementRejection(operation, reason string) {
	if reason == "" {
		reason = "other"
	}
	m.Rejections.WithLabelValues(operation, reason).Inc()
}
