// Package metrics provides the Prometheus registry this node's subsystems
// report to, plus the collaborator interfaces each subsystem's metrics
// implementation satisfies. Concrete collectors live in pkg/metrics/prometheus
// and register their constructors here to avoid an import cycle (this
// package cannot import prometheus/client_golang types directly without
// pkg/metrics/prometheus importing metrics back).
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	mu       sync.RWMutex
	registry *prometheus.Registry
	enabled  bool
)

// InitRegistry enables metrics collection and installs reg as the registry
// every subsequent New*Metrics call registers against. Passing nil creates
// a fresh prometheus.NewRegistry().
func InitRegistry(reg *prometheus.Registry) *prometheus.Registry {
	mu.Lock()
	defer mu.Unlock()
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	registry = reg
	enabled = true
	return registry
}

// IsEnabled reports whether InitRegistry has been called. Every New*Metrics
// constructor checks this first and returns nil when false, so callers can
// pass a nil metrics collaborator through the zero-overhead path.
func IsEnabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return enabled
}

// GetRegistry returns the active registry, initializing a default one if
// InitRegistry was never called explicitly.
func GetRegistry() *prometheus.Registry {
	mu.RLock()
	reg := registry
	mu.RUnlock()
	if reg != nil {
		return reg
	}
	return InitRegistry(nil)
}

// NearCacheMetrics reports C5 near-cache hit/miss/admit/invalidate counts
// and current entry count.
type NearCacheMetrics interface {
	ObserveHit()
	ObserveMiss()
	ObserveAdmit()
	ObserveInvalidate()
	SetEntryCount(n int)
}

// TaskMetrics reports C3 remote-task dispatch outcomes and latency. The
// runtime reports every dispatch whenever a TaskMetrics is configured; no
// debug flag gates it, and the collaborator itself has no notion of flags.
type TaskMetrics interface {
	ObserveDispatch(kind string, local bool, elapsed time.Duration, err error)
	ObserveLockWait(kind string, wait time.Duration)
}

// OplockMetrics reports C8 oplock grant/break outcomes.
type OplockMetrics interface {
	ObserveGrant(oplockType string)
	ObserveBreak(fromType, toType string)
	ObserveBreakTimeout()
}

// ReaperMetrics reports C11 reaper sweep outcomes.
type ReaperMetrics interface {
	ObserveSweep(removed int, vetoed int)
	ObserveNearCacheSweep(removed int)
}

var (
	nearCacheConstructor func() NearCacheMetrics
	taskConstructor      func() TaskMetrics
	oplockConstructor    func() OplockMetrics
	reaperConstructor    func() ReaperMetrics
)

// RegisterNearCacheMetricsConstructor is called by pkg/metrics/prometheus's
// package init to install the Prometheus-backed implementation.
func RegisterNearCacheMetricsConstructor(c func() NearCacheMetrics) { nearCacheConstructor = c }

// RegisterTaskMetricsConstructor is called by pkg/metrics/prometheus's
// package init to install the Prometheus-backed implementation.
func RegisterTaskMetricsConstructor(c func() TaskMetrics) { taskConstructor = c }

// RegisterOplockMetricsConstructor is called by pkg/metrics/prometheus's
// package init to install the Prometheus-backed implementation.
func RegisterOplockMetricsConstructor(c func() OplockMetrics) { oplockConstructor = c }

// RegisterReaperMetricsConstructor is called by pkg/metrics/prometheus's
// package init to install the Prometheus-backed implementation.
func RegisterReaperMetricsConstructor(c func() ReaperMetrics) { reaperConstructor = c }

// NewNearCacheMetrics returns nil if metrics are disabled or no
// implementation has registered itself (the prometheus subpackage was
// never imported).
func NewNearCacheMetrics() NearCacheMetrics {
	if !IsEnabled() || nearCacheConstructor == nil {
		return nil
	}
	return nearCacheConstructor()
}

// NewTaskMetrics mirrors NewNearCacheMetrics for C3.
func NewTaskMetrics() TaskMetrics {
	if !IsEnabled() || taskConstructor == nil {
		return nil
	}
	return taskConstructor()
}

// NewOplockMetrics mirrors NewNearCacheMetrics for C8.
func NewOplockMetrics() OplockMetrics {
	if !IsEnabled() || oplockConstructor == nil {
		return nil
	}
	return oplockConstructor()
}

// NewReaperMetrics mirrors NewNearCacheMetrics for C11.
func NewReaperMetrics() ReaperMetrics {
	if !IsEnabled() || reaperConstructor == nil {
		return nil
	}
	return reaperConstructor()
}
