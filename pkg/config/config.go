// Package config loads clusterstate's node configuration from a YAML file,
// environment variables, and defaults, in that order of increasing
// precedence — mirroring the teacher's viper/mapstructure/yaml layering.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is a clusterstate node's static configuration.
//
// Configuration sources (in order of precedence):
//  1. Environment variables (CLUSTERSTATE_*)
//  2. Configuration file (YAML)
//  3. Default values (lowest priority)
type Config struct {
	// Cluster identifies this deployment: the partition-map name and the
	// default cluster-topic name prefix (spec §6: clusterName, required).
	Cluster ClusterConfig `mapstructure:"cluster" yaml:"cluster"`

	// NearCache controls C5 (spec §6: nearCache.disable, nearCache.timeout).
	NearCache NearCacheConfig `mapstructure:"nearCache" yaml:"nearCache"`

	// CacheDebug selects which subsystems emit debug-level log lines
	// (spec §6: cacheDebug.flags).
	CacheDebug CacheDebugConfig `mapstructure:"cacheDebug" yaml:"cacheDebug"`

	// Reaper controls C11's wake interval.
	Reaper ReaperConfig `mapstructure:"reaper" yaml:"reaper"`

	// Logging controls log output behavior.
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Telemetry is a stub for future distributed tracing; no exporter is
	// wired in this repo (see DESIGN.md).
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`

	// Metrics contains Prometheus metrics server configuration.
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// Transport selects the cluster topic transport: "http" or "kafka".
	Transport TransportConfig `mapstructure:"transport" yaml:"transport"`
}

// ClusterConfig names this deployment, per spec §6.
type ClusterConfig struct {
	// Name is the cluster/map name (required, non-empty).
	Name string `mapstructure:"name" validate:"required" yaml:"name"`

	// Topic is the pub/sub topic name (required, non-empty). Defaults to
	// Name + "-events" if left empty after ApplyDefaults only when Name is
	// set; Validate still requires it be non-empty post-defaulting.
	Topic string `mapstructure:"topic" validate:"required" yaml:"topic"`

	// SelfNode is this process's node identifier within the cluster.
	SelfNode string `mapstructure:"self_node" yaml:"self_node"`

	// Peers maps every other known node to its base RPC URL, for the HTTP
	// transports (pkg/clustertask, pkg/clustertopic).
	Peers map[string]string `mapstructure:"peers" yaml:"peers"`
}

// NearCacheConfig controls C5. TimeoutSeconds's range is only enforced
// when Disable is false (validateNearCacheConfig, registered as a struct-
// level validator since validator/v10 struct tags can't express "required
// range unless a sibling bool is set").
type NearCacheConfig struct {
	// Disable turns off the near-cache entirely; every read falls through
	// to the partition map. Default false.
	Disable bool `mapstructure:"disable" yaml:"disable"`

	// TimeoutSeconds is the near-cache TTL, valid range [3, 120], default 5.
	TimeoutSeconds int `mapstructure:"timeout" yaml:"timeout"`
}

// CacheDebugConfig selects per-subsystem debug logging, spec §6's
// cacheDebug.flags bitset expressed as a comma list.
type CacheDebugConfig struct {
	Flags []string `mapstructure:"flags" validate:"dive,oneof=StateCache Expire NearCache Oplock ByteLock FileAccess Membership Cleanup PerNode ClusterEntry ClusterMessage RemoteTask RemoteTiming Rename FileDataUpdate FileStatus" yaml:"flags"`
}

// ReaperConfig controls C11's wake interval.
type ReaperConfig struct {
	// IntervalSeconds is how often the expiry reaper wakes. Default 15.
	IntervalSeconds int `mapstructure:"interval" validate:"min=1" yaml:"interval"`
}

// TransportConfig selects and configures the cluster topic transport.
// Kafka's fields are only required when Kind == "kafka"
// (validateTransportConfig, registered as a struct-level validator).
type TransportConfig struct {
	// Kind is "http" (default, in-process test topology) or "kafka"
	// (production).
	Kind string `mapstructure:"kind" validate:"required,oneof=http kafka" yaml:"kind"`

	// Kafka is only read when Kind == "kafka".
	Kafka KafkaConfig `mapstructure:"kafka" yaml:"kafka"`
}

// KafkaConfig configures the production clustertopic.KafkaTopic transport.
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers" yaml:"brokers"`
	Topic   string   `mapstructure:"topic" yaml:"topic"`
	GroupID string   `mapstructure:"group_id" yaml:"group_id"`
	Version string   `mapstructure:"version" yaml:"version"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output.
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized
	// to uppercase).
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format is "text" or "json".
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output is "stdout", "stderr", or a file path.
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// TelemetryConfig is an ambient stub: present in every config the teacher's
// layout carries, wired to nothing in this repo (see DESIGN.md's dropped-
// dependency entry for go.opentelemetry.io/otel/*).
type TelemetryConfig struct {
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled"`
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`
}

// MetricsConfig configures the Prometheus metrics HTTP server.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	Port    int  `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`
}

// Load loads configuration from file, environment, and defaults.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	found, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if found {
		if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// SaveConfig writes cfg to path in YAML.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("CLUSTERSTATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		configDir := getConfigDir()
		v.AddConfigPath(configDir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}
	return true, nil
}

func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(durationDecodeHook())
}

func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

func getConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "clusterstate")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "clusterstate")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}
