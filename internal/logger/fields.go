package logger

import (
	"fmt"
	"log/slog"
)

// Standard field keys for structured logging across the cluster state cache.
// Use these keys consistently across log statements for aggregation and querying.
const (
	// ========================================================================
	// Cluster & Partitioning
	// ========================================================================
	KeyNode         = "node"          // This node's cluster identity
	KeyOwnerNode    = "owner_node"    // Node that owns a partition key
	KeyPartitionKey = "partition_key" // Normalized path used as the partition key

	// ========================================================================
	// File State
	// ========================================================================
	KeyPath      = "path"       // Normalized path (the partition key)
	KeyOldPath   = "old_path"   // Source path for rename operations
	KeyNewPath   = "new_path"   // Destination path for rename operations
	KeyFileID    = "file_id"    // Opaque back-end file identifier
	KeyOpenCount = "open_count" // Current open handle count

	// ========================================================================
	// Remote tasks
	// ========================================================================
	KeyTask       = "task"        // Task type name (GrantAccess, AddOpLock, ...)
	KeyTaskID     = "task_id"     // Correlation id for a dispatched task
	KeyDurationMs = "duration_ms" // Task or operation duration in milliseconds
	KeyLockWaitMs = "lock_wait_ms"

	// ========================================================================
	// Topic / pub-sub
	// ========================================================================
	KeyMessageType = "message_type"
	KeyFromNode    = "from_node"
	KeyTargetNode  = "target_node"

	// ========================================================================
	// Oplocks
	// ========================================================================
	KeyOpLockType = "oplock_type"

	// ========================================================================
	// Byte-range locks
	// ========================================================================
	KeyLockOffset = "lock_offset"
	KeyLockLength = "lock_length"
	KeyLockOwner  = "lock_owner"

	// ========================================================================
	// Generic
	// ========================================================================
	KeyError     = "error"
	KeyErrorCode = "error_code"
	KeyReason    = "reason"
)

// Node returns a slog.Attr for this node's cluster identity.
func Node(id string) slog.Attr { return slog.String(KeyNode, id) }

// OwnerNode returns a slog.Attr for the node owning a partition key.
func OwnerNode(id string) slog.Attr { return slog.String(KeyOwnerNode, id) }

// PartitionKey returns a slog.Attr for a partition key.
func PartitionKey(key string) slog.Attr { return slog.String(KeyPartitionKey, key) }

// Path returns a slog.Attr for a normalized path.
func Path(p string) slog.Attr { return slog.String(KeyPath, p) }

// OldPath returns a slog.Attr for the source path of a rename.
func OldPath(p string) slog.Attr { return slog.String(KeyOldPath, p) }

// NewPath returns a slog.Attr for the destination path of a rename.
func NewPath(p string) slog.Attr { return slog.String(KeyNewPath, p) }

// FileID returns a slog.Attr for an opaque file identifier.
func FileID(id string) slog.Attr { return slog.String(KeyFileID, id) }

// OpenCount returns a slog.Attr for the current open handle count.
func OpenCount(n int) slog.Attr { return slog.Int(KeyOpenCount, n) }

// Task returns a slog.Attr for a remote task type name.
func Task(name string) slog.Attr { return slog.String(KeyTask, name) }

// TaskID returns a slog.Attr for a task correlation id.
func TaskID(id string) slog.Attr { return slog.String(KeyTaskID, id) }

// DurationMs returns a slog.Attr for a duration in milliseconds.
func DurationMs(ms float64) slog.Attr { return slog.Float64(KeyDurationMs, ms) }

// LockWaitMs returns a slog.Attr for lock-acquisition wait time in milliseconds.
func LockWaitMs(ms float64) slog.Attr { return slog.Float64(KeyLockWaitMs, ms) }

// MessageType returns a slog.Attr for a pub/sub message type.
func MessageType(t string) slog.Attr { return slog.String(KeyMessageType, t) }

// FromNode returns a slog.Attr for a message's publishing node.
func FromNode(id string) slog.Attr { return slog.String(KeyFromNode, id) }

// TargetNode returns a slog.Attr for a message's addressed node ("*" for all).
func TargetNode(id string) slog.Attr { return slog.String(KeyTargetNode, id) }

// OpLockType returns a slog.Attr for an oplock type.
func OpLockType(t string) slog.Attr { return slog.String(KeyOpLockType, t) }

// LockOffset returns a slog.Attr for a byte-range lock's starting offset.
func LockOffset(off uint64) slog.Attr { return slog.Uint64(KeyLockOffset, off) }

// LockLength returns a slog.Attr for a byte-range lock's length.
func LockLength(n uint64) slog.Attr { return slog.Uint64(KeyLockLength, n) }

// LockOwner returns a slog.Attr for a lock owner identifier.
func LockOwner(owner string) slog.Attr { return slog.String(KeyLockOwner, owner) }

// Err returns a slog.Attr for an error, or a no-op attr if err is nil.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// ErrorCode returns a slog.Attr for a numeric or named error code.
func ErrorCode(code fmt.Stringer) slog.Attr { return slog.String(KeyErrorCode, code.String()) }

// Reason returns a slog.Attr for a short human-readable reason string.
func Reason(r string) slog.Attr { return slog.String(KeyReason, r) }
