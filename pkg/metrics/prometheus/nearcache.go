package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/dittofs/clusterstate/pkg/metrics"
)

type nearCacheMetrics struct {
	hits        prometheus.Counter
	misses      prometheus.Counter
	admits      prometheus.Counter
	invalidates prometheus.Counter
	entries     prometheus.Gauge
}

// NewNearCacheMetrics builds the Prometheus-backed metrics.NearCacheMetrics.
func NewNearCacheMetrics() metrics.NearCacheMetrics {
	if !metrics.IsEnabled() {
		return nil
	}
	reg := metrics.GetRegistry()
	return &nearCacheMetrics{
		hits: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "clusterstate_nearcache_hits_total",
			Help: "Total near-cache reads served without falling through to the partition map.",
		}),
		misses: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "clusterstate_nearcache_misses_total",
			Help: "Total near-cache reads that fell through to the partition map.",
		}),
		admits: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "clusterstate_nearcache_admits_total",
			Help: "Total entries admitted into the near-cache.",
		}),
		invalidates: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "clusterstate_nearcache_invalidates_total",
			Help: "Total entries marked invalid by a remote mutation.",
		}),
		entries: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "clusterstate_nearcache_entries",
			Help: "Current number of entries held in the near-cache.",
		}),
	}
}

func (m *nearCacheMetrics) ObserveHit()         { m.hits.Inc() }
func (m *nearCacheMetrics) ObserveMiss()        { m.misses.Inc() }
func (m *nearCacheMetrics) ObserveAdmit()       { m.admits.Inc() }
func (m *nearCacheMetrics) ObserveInvalidate()  { m.invalidates.Inc() }
func (m *nearCacheMetrics) SetEntryCount(n int) { m.entries.Set(float64(n)) }

func init() {
	metrics.RegisterNearCacheMetricsConstructor(NewNearCacheMetrics)
}
