package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/dittofs/clusterstate/pkg/nearcache"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterStructValidation(validateNearCacheConfig, NearCacheConfig{})
	v.RegisterStructValidation(validateTransportConfig, TransportConfig{})
	return v
}

// validateNearCacheConfig enforces C5's TTL range only when the near-cache
// is actually enabled — a cross-field rule validator/v10 struct tags can't
// express on their own.
func validateNearCacheConfig(sl validator.StructLevel) {
	cfg := sl.Current().Interface().(NearCacheConfig)
	if cfg.Disable {
		return
	}
	lo, hi := int(nearcache.MinTTL.Seconds()), int(nearcache.MaxTTL.Seconds())
	if cfg.TimeoutSeconds < lo || cfg.TimeoutSeconds > hi {
		sl.ReportError(cfg.TimeoutSeconds, "TimeoutSeconds", "TimeoutSeconds", "nearcachettlrange", fmt.Sprintf("%d-%d", lo, hi))
	}
}

// validateTransportConfig requires Kafka.Brokers only when Kind selects the
// kafka transport.
func validateTransportConfig(sl validator.StructLevel) {
	cfg := sl.Current().Interface().(TransportConfig)
	if cfg.Kind != "kafka" {
		return
	}
	if len(cfg.Kafka.Brokers) == 0 {
		sl.ReportError(cfg.Kafka.Brokers, "Kafka.Brokers", "Brokers", "requiredwithkafka", "")
	}
}

// Validate checks cfg against the bit-exact rules in spec §6 and rejects
// anything ApplyDefaults didn't already fix up. Most rules live as
// `validate:` struct tags on Config itself; the handful that are
// conditional on a sibling field are registered as struct-level validators
// above.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return translateValidationError(err)
	}

	for _, flag := range cfg.CacheDebug.Flags {
		if !validDebugFlags[flag] {
			return fmt.Errorf("cacheDebug.flags: unrecognized flag %q", flag)
		}
	}

	return nil
}

var validDebugFlags = map[string]bool{
	"StateCache": true, "Expire": true, "NearCache": true, "Oplock": true,
	"ByteLock": true, "FileAccess": true, "Membership": true, "Cleanup": true,
	"PerNode": true, "ClusterEntry": true, "ClusterMessage": true,
	"RemoteTask": true, "RemoteTiming": true, "Rename": true,
	"FileDataUpdate": true, "FileStatus": true,
}

func translateValidationError(err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldErrorMessage(fe))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

func fieldErrorMessage(fe validator.FieldError) string {
	field := fe.Namespace()
	if idx := strings.Index(field, "."); idx >= 0 {
		field = field[idx+1:]
	}
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", field, fe.Param(), fe.Value())
	case "min", "max", "gt":
		return fmt.Sprintf("%s fails %s=%s, got %v", field, fe.Tag(), fe.Param(), fe.Value())
	case "nearcachettlrange":
		return fmt.Sprintf("nearCache.timeout must be between %s seconds, got %v", strings.Replace(fe.Param(), "-", " and ", 1), fe.Value())
	case "requiredwithkafka":
		return "transport.kafka.brokers is required when transport.kind is kafka"
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

// HasDebugFlag reports whether flag is enabled in cfg.CacheDebug.Flags.
func HasDebugFlag(cfg *Config, flag string) bool {
	for _, f := range cfg.CacheDebug.Flags {
		if f == flag {
			return true
		}
	}
	return false
}
