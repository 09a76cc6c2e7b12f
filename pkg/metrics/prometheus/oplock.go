package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/dittofs/clusterstate/pkg/metrics"
)

type oplockMetrics struct {
	grants        *prometheus.CounterVec
	breaks        *prometheus.CounterVec
	breakTimeouts prometheus.Counter
}

// NewOplockMetrics builds the Prometheus-backed metrics.OplockMetrics for C8.
func NewOplockMetrics() metrics.OplockMetrics {
	if !metrics.IsEnabled() {
		return nil
	}
	reg := metrics.GetRegistry()
	return &oplockMetrics{
		grants: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "clusterstate_oplock_grants_total",
			Help: "Total oplocks granted by type.",
		}, []string{"type"}),
		breaks: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "clusterstate_oplock_breaks_total",
			Help: "Total oplock breaks by from/to type.",
		}, []string{"from_type", "to_type"}),
		breakTimeouts: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "clusterstate_oplock_break_timeouts_total",
			Help: "Total oplock breaks that did not acknowledge before the lease deadline.",
		}),
	}
}

func (m *oplockMetrics) ObserveGrant(oplockType string) {
	m.grants.WithLabelValues(oplockType).Inc()
}

func (m *oplockMetrics) ObserveBreak(fromType, toType string) {
	m.breaks.WithLabelValues(fromType, toType).Inc()
}

func (m *oplockMetrics) ObserveBreakTimeout() {
	m.breakTimeouts.Inc()
}

func init() {
	metrics.RegisterOplockMetricsConstructor(NewOplockMetrics)
}
