package logger

import (
	"context"
	"time"
)

// contextKey is a private type for context keys to avoid collisions
type contextKey struct{}

// logContextKey is the key for LogContext in context.Context
var logContextKey = contextKey{}

// LogContext holds request-scoped logging context for a remote-task dispatch
// or pub/sub message handling call chain.
type LogContext struct {
	TraceID      string    // OpenTelemetry trace ID, when tracing is wired by the host
	SpanID       string    // OpenTelemetry span ID
	Node         string    // This node's cluster identity
	Task         string    // Remote task type being executed (GrantAccess, AddOpLock, ...)
	PartitionKey string    // Normalized path the call is operating on
	StartTime    time.Time // For duration calculation
}

// WithContext returns a new context with the given LogContext
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext retrieves the LogContext from context, or nil if not present
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey).(*LogContext)
	return lc
}

// NewLogContext creates a new LogContext for a call on the given node.
func NewLogContext(node string) *LogContext {
	return &LogContext{
		Node:      node,
		StartTime: time.Now(),
	}
}

// Clone creates a copy of the LogContext
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	return &LogContext{
		TraceID:      lc.TraceID,
		SpanID:       lc.SpanID,
		Node:         lc.Node,
		Task:         lc.Task,
		PartitionKey: lc.PartitionKey,
		StartTime:    lc.StartTime,
	}
}

// WithTask returns a copy with the task type set.
func (lc *LogContext) WithTask(task string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Task = task
	}
	return clone
}

// WithPartitionKey returns a copy with the partition key set.
func (lc *LogContext) WithPartitionKey(key string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.PartitionKey = key
	}
	return clone
}

// WithTrace returns a copy with trace info set
func (lc *LogContext) WithTrace(traceID, spanID string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.TraceID = traceID
		clone.SpanID = spanID
	}
	return clone
}

// DurationMs returns the duration since StartTime in milliseconds
func (lc *LogContext) DurationMs() float64 {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return float64(time.Since(lc.StartTime).Microseconds()) / 1000.0
}
