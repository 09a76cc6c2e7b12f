package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/dittofs/clusterstate/pkg/metrics"
)

type reaperMetrics struct {
	removed          prometheus.Counter
	vetoed           prometheus.Counter
	nearCacheRemoved prometheus.Counter
}

// NewReaperMetrics builds the Prometheus-backed metrics.ReaperMetrics for C11.
func NewReaperMetrics() metrics.ReaperMetrics {
	if !metrics.IsEnabled() {
		return nil
	}
	reg := metrics.GetRegistry()
	return &reaperMetrics{
		removed: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "clusterstate_reaper_removed_total",
			Help: "Total states removed by the expiry reaper.",
		}),
		vetoed: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "clusterstate_reaper_vetoed_total",
			Help: "Total expired states whose removal was vetoed by the file_state_expired hook.",
		}),
		nearCacheRemoved: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "clusterstate_reaper_nearcache_swept_total",
			Help: "Total near-cache entries removed by the TTL sweep.",
		}),
	}
}

func (m *reaperMetrics) ObserveSweep(removed int, vetoed int) {
	m.removed.Add(float64(removed))
	m.vetoed.Add(float64(vetoed))
}

func (m *reaperMetrics) ObserveNearCacheSweep(removed int) {
	m.nearCacheRemoved.Add(float64(removed))
}

func init() {
	metrics.RegisterReaperMetricsConstructor(NewReaperMetrics)
}
