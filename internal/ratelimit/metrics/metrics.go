package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"arisan/internal/ratelimit/models"
)

type Metrics struct {
	Rejections  *prometheus.CounterVec
	StoreErrors prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Rejections: f.NewCounterVec(prometheus.CounterOpts{
			Name: "arisan_ratelimit_rejections_total",
			Help: "Total number of requests rejected by rate limiting",
		}, []string{"class"}),
		StoreErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "arisan_ratelimit_store_errors_total",
			Help: "Total number of rate limit checks that failed open",
		}),
	}
}

func (m *Metrics) IncrementRejection(class models.Class) {
	m.Rejections.WithLabelValues(string(class)).Inc()
}

func (m *Metrics) IncrementStoreErrors() {
	m.StoreErrors.Inc()
}
