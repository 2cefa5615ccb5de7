package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	PoolsCreated   prometheus.Counter
	DeploymentFees prometheus.Counter
	SettingChanges *prometheus.CounterVec
	Rejections     *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		PoolsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "arisan_registry_pools_created_total",
			Help: "Total number of pools created",
		}),
		DeploymentFees: f.NewCounter(prometheus.CounterOpts{
			Name: "arisan_registry_deployment_fees_units_total",
			Help: "Deployment fees collected, in smallest token units",
		}),
		SettingChanges: f.NewCounterVec(prometheus.CounterOpts{
			Name: "arisan_registry_setting_changes_total",
			Help: "Owner setting changes by setting",
		}, []string{"setting"}),
		Rejections: f.NewCounterVec(prometheus.CounterOpts{
			Name: "arisan_registry_rejections_total",
			Help: "Rejected registry operations by reason",
		}, []string{"reason"}),
	}
}

func (m *Metrics) RecordPoolCreated(fee uint64) {
	m.PoolsCreated.Inc()
	m.DeploymentFees.Add(float64(fee))
}

func (m *Metrics) IncrementSettingChange(setting string) {
	m.SettingChanges.WithLabelValues(setting).Inc()
}

func (m *Metrics) IncrementRejection(reason string) {
	if reason == "" {
		reason = "other"
	}
	m.Rejections.WithLabelValues(reason).Inc()
}
