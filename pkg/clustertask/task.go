// Package clustertask implements the remote-task runtime (C3): typed
// operations dispatched to the routing key's partition owner, executed
// under the owning node's per-key lock, with results shipped back to the
// caller. Go has no portable way to serialize a closure across a process
// boundary, so where the source design used `FnOnce(map, key) -> Result<T>`
// closures, each canonical task shape from §4.3's table is instead a
// concrete, JSON-serializable struct implementing Task.
package clustertask

import (
	"github.com/dittofs/clusterstate/pkg/filestate"
	"github.com/dittofs/clusterstate/pkg/partition"
)

// Options are the per-task execution flags from §4.3.
type Options struct {
	// Lock makes the runtime take the per-key lock before load and release
	// it after store (the "LockState" task option).
	Lock bool
	// NoUpdate skips writing the (possibly mutated) state back to the
	// partition map after Execute returns.
	NoUpdate bool
	// Timing is carried with the task but not consulted by the runtime:
	// every Result reports ElapsedMs, and LockWaitMs for locking tasks,
	// whether or not it is set.
	Timing bool
}

// Task is implemented by every concrete cluster-task struct. Kind must be a
// stable string used to route an incoming HTTP request body back to the
// correct concrete type (see registry.go) and must match the JSON tag the
// wire envelope carries.
type Task interface {
	// Kind returns the task's registry name (e.g. "GrantAccess").
	Kind() string
	// RoutingKey returns the partition key the task must run against.
	RoutingKey() string
	// Options returns this task's lock/no-update/timing flags.
	Options() Options
	// Execute runs the task body against the authoritative state for the
	// routing key. m is the local shard on the node that owns the key --
	// by the time Execute is called the runtime has already confirmed
	// local ownership and, if Options().Lock is set, acquired the per-key
	// lock. state is nil for a not-yet-existing key unless the task creates
	// it (CreateIfMissing). Execute mutates state in place and returns an
	// arbitrary result payload serialized back to the caller; the runtime
	// writes state back unless Options().NoUpdate is set.
	Execute(m *partition.Map, state *filestate.State) (result any, err error)
}

// Result is the wire envelope returned by a task dispatch, whether executed
// locally or remotely.
type Result struct {
	Value      any     `json:"value,omitempty"`
	ElapsedMs  float64 `json:"elapsed_ms,omitempty"`
	LockWaitMs float64 `json:"lock_wait_ms,omitempty"`
}
