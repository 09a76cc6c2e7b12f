package config

import (
	"strings"
	"time"

	"github.com/dittofs/clusterstate/pkg/nearcache"
	"github.com/dittofs/clusterstate/pkg/reaper"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyNearCacheDefaults(&cfg.NearCache)
	applyReaperDefaults(&cfg.Reaper)
	applyMetricsDefaults(&cfg.Metrics)
	applyTransportDefaults(&cfg.Transport)

	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}

	if cfg.Cluster.Topic == "" && cfg.Cluster.Name != "" {
		cfg.Cluster.Topic = cfg.Cluster.Name + "-events"
	}
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}
}

func applyNearCacheDefaults(cfg *NearCacheConfig) {
	if cfg.TimeoutSeconds == 0 {
		cfg.TimeoutSeconds = int(nearcache.DefaultTTL.Seconds())
	}
}

func applyReaperDefaults(cfg *ReaperConfig) {
	if cfg.IntervalSeconds == 0 {
		cfg.IntervalSeconds = int(reaper.DefaultInterval.Seconds())
	}
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Port == 0 {
		cfg.Port = 9090
	}
}

func applyTransportDefaults(cfg *TransportConfig) {
	if cfg.Kind == "" {
		cfg.Kind = "http"
	}
	if cfg.Kind == "kafka" && cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = "clusterstate"
	}
}
