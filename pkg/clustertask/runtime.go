package clustertask

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/dittofs/clusterstate/internal/logger"
	"github.com/dittofs/clusterstate/pkg/errs"
	"github.com/dittofs/clusterstate/pkg/filestate"
	"github.com/dittofs/clusterstate/pkg/metrics"
	"github.com/dittofs/clusterstate/pkg/partition"
)

// OwnerResolver answers "who owns this key right now" for dispatch
// decisions; pkg/partition.Ring implements it.
type OwnerResolver interface {
	Owner(key string) (string, bool)
}

// Transport ships a task to a remote node and waits for its result. The
// HTTP implementation lives in transport_http.go.
type Transport interface {
	Send(ctx context.Context, targetNode string, kind string, task Task) (Result, error)
}

var holderSeq atomic.Uint64

// Runtime is the node-local remote-task dispatcher (C3). One Runtime exists
// per node; it owns that node's shard of the partition map and knows how to
// reach every other node through Transport.
type Runtime struct {
	selfNode  string
	shard     *partition.Map
	resolver  OwnerResolver
	transport Transport
	metrics   metrics.TaskMetrics
}

// NewRuntime constructs a Runtime for selfNode, dispatching against shard
// (this node's local partition-map slice), resolving ownership through
// resolver, and reaching remote nodes through transport.
func NewRuntime(selfNode string, shard *partition.Map, resolver OwnerResolver, transport Transport) *Runtime {
	return &Runtime{selfNode: selfNode, shard: shard, resolver: resolver, transport: transport, metrics: metrics.NewTaskMetrics()}
}

// Dispatch runs task on the current owner of its routing key, retrying once
// on a transient cluster error per §7's ClusterTransient policy before
// surfacing it to the caller.
func (rt *Runtime) Dispatch(ctx context.Context, task Task) (Result, error) {
	start := time.Now()
	local := rt.isLocal(task)

	res, err := rt.dispatchOnce(ctx, task)
	if err != nil && errs.Is(err, errs.ClusterTransient) {
		logger.WarnCtx(ctx, "retrying transient cluster task dispatch", logger.Task(task.Kind()), logger.Err(err))
		res, err = rt.dispatchOnce(ctx, task)
	}

	if rt.metrics != nil {
		rt.metrics.ObserveDispatch(task.Kind(), local, time.Since(start), err)
	}
	return res, err
}

func (rt *Runtime) isLocal(task Task) bool {
	owner, ok := rt.resolver.Owner(task.RoutingKey())
	return ok && owner == rt.selfNode
}

func (rt *Runtime) dispatchOnce(ctx context.Context, task Task) (Result, error) {
	key := task.RoutingKey()
	owner, ok := rt.resolver.Owner(key)
	if !ok {
		return Result{}, errs.NewFatal(nil)
	}
	if owner == rt.selfNode {
		return rt.executeLocal(task)
	}
	res, err := rt.transport.Send(ctx, owner, task.Kind(), task)
	if err != nil {
		return Result{}, errs.NewClusterTransient(key, err)
	}
	return res, nil
}

// executeLocal runs task against this node's shard, honoring the lock and
// no-update options. Called both for locally-owned dispatch and by the HTTP
// server handler when this node is the addressed owner.
func (rt *Runtime) executeLocal(task Task) (Result, error) {
	opts := task.Options()
	key := task.RoutingKey()
	holderID := holderSeq.Add(1)

	var lockWaitMs float64
	if opts.Lock {
		start := time.Now()
		rt.shard.Lock(key, holderID)
		waited := time.Since(start)
		lockWaitMs = logger.Duration(start)
		if rt.metrics != nil {
			rt.metrics.ObserveLockWait(task.Kind(), waited)
		}
		defer rt.shard.Unlock(key, holderID)
	}

	start := time.Now()
	state := rt.shard.Get(key)
	if state == nil {
		if c, ok := task.(creator); ok && c.CreateIfMissing() {
			state = filestate.New(key)
		}
	}

	value, err := task.Execute(rt.shard, state)
	elapsedMs := logger.Duration(start)
	if err != nil {
		return Result{}, err
	}

	if !opts.NoUpdate && state != nil {
		state.Valid = true
		rt.shard.Put(key, state)
	}

	return Result{Value: value, ElapsedMs: elapsedMs, LockWaitMs: lockWaitMs}, nil
}
