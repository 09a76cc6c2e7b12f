package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
cluster:
  name: "prod-cluster"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Logging.Format != "text" {
		t.Errorf("expected default format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.Logging.Output != "stdout" {
		t.Errorf("expected default output 'stdout', got %q", cfg.Logging.Output)
	}
	if cfg.ShutdownTimeout != 30*time.Second {
		t.Errorf("expected default shutdown_timeout 30s, got %v", cfg.ShutdownTimeout)
	}
	if cfg.NearCache.TimeoutSeconds != 5 {
		t.Errorf("expected default near-cache timeout 5s, got %d", cfg.NearCache.TimeoutSeconds)
	}
	if cfg.Cluster.Topic != "prod-cluster-events" {
		t.Errorf("expected derived topic name, got %q", cfg.Cluster.Topic)
	}
	if cfg.Transport.Kind != "http" {
		t.Errorf("expected default transport kind http, got %q", cfg.Transport.Kind)
	}
}

func TestLoadMissingClusterNameFailsValidation(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: DEBUG
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for missing cluster.name")
	}
}

func TestLoadRejectsOutOfRangeNearCacheTimeout(t *testing.T) {
	path := writeConfig(t, `
cluster:
  name: "prod-cluster"
  topic: "prod-cluster-events"
nearCache:
  timeout: 500
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for out-of-range near-cache timeout")
	}
}

func TestLoadAcceptsDisabledNearCacheRegardlessOfTimeout(t *testing.T) {
	path := writeConfig(t, `
cluster:
  name: "prod-cluster"
  topic: "prod-cluster-events"
nearCache:
  disable: true
  timeout: 999
`)
	if _, err := Load(path); err != nil {
		t.Fatalf("expected disabled near-cache to bypass timeout validation, got %v", err)
	}
}

func TestLoadRejectsUnrecognizedDebugFlag(t *testing.T) {
	path := writeConfig(t, `
cluster:
  name: "prod-cluster"
  topic: "prod-cluster-events"
cacheDebug:
  flags: ["Oplock", "NotARealFlag"]
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for unrecognized debug flag")
	}
}

func TestLoadAcceptsValidDebugFlags(t *testing.T) {
	path := writeConfig(t, `
cluster:
  name: "prod-cluster"
  topic: "prod-cluster-events"
cacheDebug:
  flags: ["Oplock", "RemoteTiming", "Rename"]
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !HasDebugFlag(cfg, "RemoteTiming") {
		t.Error("expected RemoteTiming flag recognized")
	}
	if HasDebugFlag(cfg, "Expire") {
		t.Error("expected Expire flag not set")
	}
}

func TestLoadKafkaTransportRequiresBrokers(t *testing.T) {
	path := writeConfig(t, `
cluster:
  name: "prod-cluster"
  topic: "prod-cluster-events"
transport:
  kind: kafka
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for kafka transport with no brokers")
	}
}
