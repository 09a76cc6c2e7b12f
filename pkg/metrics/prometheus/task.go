package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/dittofs/clusterstate/pkg/metrics"
)

type taskMetrics struct {
	dispatched *prometheus.CounterVec
	errors     *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	lockWait   *prometheus.HistogramVec
}

// NewTaskMetrics builds the Prometheus-backed metrics.TaskMetrics, covering
// C3's remote-task dispatch latency and the per-key lock-wait time the
// RemoteTiming debug flag surfaces.
func NewTaskMetrics() metrics.TaskMetrics {
	if !metrics.IsEnabled() {
		return nil
	}
	reg := metrics.GetRegistry()
	return &taskMetrics{
		dispatched: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "clusterstate_task_dispatch_total",
			Help: "Total remote-task dispatches by kind and locality.",
		}, []string{"kind", "locality"}), // locality: "local", "remote"
		errors: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "clusterstate_task_dispatch_errors_total",
			Help: "Total remote-task dispatches that returned an error.",
		}, []string{"kind"}),
		duration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "clusterstate_task_dispatch_duration_milliseconds",
			Help:    "Remote-task dispatch duration in milliseconds, owner lookup through result.",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 50, 100, 500, 1000},
		}, []string{"kind", "locality"}),
		lockWait: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "clusterstate_task_lock_wait_milliseconds",
			Help:    "Time a task spent waiting on the per-key lock before executing.",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 50, 100, 500},
		}, []string{"kind"}),
	}
}

func (m *taskMetrics) ObserveDispatch(kind string, local bool, elapsed time.Duration, err error) {
	locality := "remote"
	if local {
		locality = "local"
	}
	m.dispatched.WithLabelValues(kind, locality).Inc()
	m.duration.WithLabelValues(kind, locality).Observe(float64(elapsed.Microseconds()) / 1000)
	if err != nil {
		m.errors.WithLabelValues(kind).Inc()
	}
}

func (m *taskMetrics) ObserveLockWait(kind string, wait time.Duration) {
	m.lockWait.WithLabelValues(kind).Observe(float64(wait.Microseconds()) / 1000)
}

func init() {
	metrics.RegisterTaskMetricsConstructor(NewTaskMetrics)
}
