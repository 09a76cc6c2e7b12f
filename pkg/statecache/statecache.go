// Package statecache wires C1-C11 and §4.13's membership cleanup into the
// single host-facing facade spec §6 describes: one Cache per node,
// implementing every core operation the protocol dispatcher calls and
// exposing the three collaborator interfaces the host must satisfy.
package statecache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dittofs/clusterstate/internal/logger"
	"github.com/dittofs/clusterstate/pkg/access"
	"github.com/dittofs/clusterstate/pkg/clustertask"
	"github.com/dittofs/clusterstate/pkg/clustertopic"
	"github.com/dittofs/clusterstate/pkg/errs"
	"github.com/dittofs/clusterstate/pkg/filestate"
	"github.com/dittofs/clusterstate/pkg/membership"
	"github.com/dittofs/clusterstate/pkg/metrics"
	"github.com/dittofs/clusterstate/pkg/nearcache"
	"github.com/dittofs/clusterstate/pkg/oplock"
	"github.com/dittofs/clusterstate/pkg/partition"
	"github.com/dittofs/clusterstate/pkg/pernode"
	"github.com/dittofs/clusterstate/pkg/reaper"
	"github.com/dittofs/clusterstate/pkg/rename"
)

// OpLockManager is satisfied by the host: it owns live SMB sessions and
// therefore must allocate the unserializable local oplock handle and arm
// the break-timeout timer, per §6.
type OpLockManager interface {
	// AllocateLocalHandle builds the live local oplock handle for path from
	// session, the opaque SMB session the host already holds open.
	AllocateLocalHandle(path string, session any) pernode.LocalOpLockHandle
	// ScheduleBreakTimeout arms a timer that invokes onTimeout after the
	// break window elapses unless CancelBreakTimeout fires first.
	ScheduleBreakTimeout(path string, after time.Duration, onTimeout func())
	// CancelBreakTimeout disarms any timer armed for path.
	CancelBreakTimeout(path string)
}

// NotifyChangeHandler receives path-level notifications fired while
// processing an incoming cluster-topic message, per §6.
type NotifyChangeHandler interface {
	OnFileAdded(path string)
	OnFileRemoved(path string)
	OnFileRenamed(oldPath, newPath string, isFolder bool)
}

// ThreadPool reprocesses deferred SMB requests once an oplock break
// completes or times out, per §6.
type ThreadPool interface {
	Reprocess(req pernode.DeferredRequest, err error)
}

// DefaultBreakTimeout bounds how long request_oplock_break waits for a
// client to acknowledge before the deferred queue is drained with a
// failure, absent an OpLockManager-supplied timer.
const DefaultBreakTimeout = 35 * time.Second

// Cache is the node-local facade satisfying spec §6's API surface. One
// instance exists per node.
type Cache struct {
	selfNode string
	caseFold bool

	shard   *partition.Map
	near    *nearcache.Cache
	perNode *pernode.Table
	runtime *clustertask.Runtime
	topic   clustertopic.Topic

	renameEngine *rename.Engine
	reaper       *reaper.Reaper
	members      *membership.Tracker

	opLocks  OpLockManager
	notify   NotifyChangeHandler
	pool     ThreadPool
	tokens   *access.Tracker
	opMetrics metrics.OplockMetrics

	breakTimeout time.Duration
}

// Options configures a new Cache. Topic, OpLockManager, NotifyChangeHandler
// and ThreadPool may be nil for a single-node or test deployment; every
// method degrades to a local no-op for the collaborator it's missing.
type Options struct {
	SelfNode           string
	CaseSensitivePaths bool
	Shard              *partition.Map
	NearCache          *nearcache.Cache
	PerNode            *pernode.Table
	Runtime            *clustertask.Runtime
	Topic              clustertopic.Topic
	OpLockManager      OpLockManager
	Notify             NotifyChangeHandler
	Pool               ThreadPool
	BreakTimeout       time.Duration
}

// New constructs a Cache wired to opts' collaborators. It registers the
// rename engine's and its own topic handlers against Topic if one is
// supplied, and the membership tracker's departed-node listener against
// Shard.
func New(opts Options) *Cache {
	breakTimeout := opts.BreakTimeout
	if breakTimeout <= 0 {
		breakTimeout = DefaultBreakTimeout
	}

	c := &Cache{
		selfNode:     opts.SelfNode,
		caseFold:     !opts.CaseSensitivePaths,
		shard:        opts.Shard,
		near:         opts.NearCache,
		perNode:      opts.PerNode,
		runtime:      opts.Runtime,
		topic:        opts.Topic,
		renameEngine: rename.New(opts.SelfNode, opts.Runtime, opts.Shard, opts.NearCache, opts.PerNode, opts.Topic, opts.CaseSensitivePaths),
		members:      membership.NewTracker(membership.DefaultMissedThreshold),
		opLocks:      opts.OpLockManager,
		notify:       opts.Notify,
		pool:         opts.Pool,
		tokens:       access.NewTracker(),
		opMetrics:    metrics.NewOplockMetrics(),
		breakTimeout: breakTimeout,
	}

	c.members.OnListener(func(node string) {
		membership.Cleanup(context.Background(), c.shard, node)
	})

	if c.topic != nil {
		c.topic.Subscribe(c.renameEngine.OnRenameState)
		c.topic.Subscribe(c.onTopicMessage)
	}

	return c
}

func (c *Cache) normalize(path string) string {
	return filestate.Normalize(path, !c.caseFold)
}

// StartCluster starts the expiry reaper (C11) on a gocron schedule and
// brings the Cache online. hook, if non-nil, is the state-listener's
// file_state_expired veto.
func (c *Cache) StartCluster(ctx context.Context, reaperInterval, nearCacheTTL time.Duration, hook reaper.ExpiredHook) error {
	r, err := reaper.New(c.shard, c.near, hook, reaper.WithLeakTracker(c.tokens, reaper.DefaultLeakAge))
	if err != nil {
		return fmt.Errorf("constructing reaper: %w", err)
	}
	if err := r.Start(ctx, reaperInterval, nearCacheTTL); err != nil {
		return fmt.Errorf("starting reaper: %w", err)
	}
	c.reaper = r
	logger.InfoCtx(ctx, "cluster state cache started", logger.Node(c.selfNode))
	return nil
}

// ShutdownCluster stops the reaper and releases the topic, if any.
func (c *Cache) ShutdownCluster(ctx context.Context) error {
	if c.reaper != nil {
		if err := c.reaper.Stop(); err != nil {
			return fmt.Errorf("stopping reaper: %w", err)
		}
	}
	if c.topic != nil {
		if err := c.topic.Close(); err != nil {
			return fmt.Errorf("closing topic: %w", err)
		}
	}
	logger.InfoCtx(ctx, "cluster state cache shut down", logger.Node(c.selfNode))
	return nil
}

// TriggerReap runs the expiry reaper's sweep immediately instead of waiting
// for its next scheduled tick. A no-op if StartCluster hasn't run yet.
func (c *Cache) TriggerReap(ctx context.Context) {
	if c.reaper != nil {
		c.reaper.TriggerSweep(ctx)
	}
}

// OnMemberLeft registers l to be called whenever the membership tracker
// declares a peer departed, in addition to the built-in §4.13 cleanup.
func (c *Cache) OnMemberLeft(l membership.Listener) { c.members.OnListener(l) }

// ObserveHeartbeat feeds the membership tracker a heartbeat from node.
func (c *Cache) ObserveHeartbeat(node string) { c.members.Observe(node) }

// TickMembership runs one membership-tracker interval against the set of
// known peers that produced no heartbeat this tick.
func (c *Cache) TickMembership(silent []string) { c.members.Tick(silent) }

// ---------------------------------------------------------------------------
// find_state / find_or_create_state / remove_state / rename_state
// ---------------------------------------------------------------------------

// FindState implements find_state(path) -> Option<State>.
func (c *Cache) FindState(ctx context.Context, path string) (*filestate.State, error) {
	key := c.normalize(path)

	if s := c.near.Get(key); s != nil {
		return s, nil
	}

	res, err := c.runtime.Dispatch(ctx, &clustertask.FindStateTask{Path: key})
	if err != nil {
		return nil, err
	}
	s, _ := res.Value.(*filestate.State)
	if s == nil {
		return nil, nil
	}
	c.near.Admit(s)
	return s, nil
}

// FindOrCreateState implements find_or_create_state(path, initial_status) -> State.
func (c *Cache) FindOrCreateState(ctx context.Context, path string, initialStatus filestate.FileStatus) (*filestate.State, error) {
	key := c.normalize(path)

	res, err := c.runtime.Dispatch(ctx, &clustertask.FindOrCreateStateTask{Path: key, InitialStatus: initialStatus})
	if err != nil {
		return nil, err
	}
	s, _ := res.Value.(*filestate.State)
	if s != nil {
		c.near.Admit(s)
		if c.notify != nil {
			c.notify.OnFileAdded(key)
		}
	}
	return s, nil
}

// RemoveState implements remove_state(path) -> Option<State>.
func (c *Cache) RemoveState(ctx context.Context, path string) (*filestate.State, error) {
	key := c.normalize(path)

	res, err := c.runtime.Dispatch(ctx, &clustertask.RemoveStateTask{Path: key})
	if err != nil {
		return nil, err
	}
	s, _ := res.Value.(*filestate.State)
	c.near.Evict(key)
	if c.perNode != nil {
		c.perNode.Drop(key)
	}
	if s != nil && c.notify != nil {
		c.notify.OnFileRemoved(key)
	}
	return s, nil
}

// RenameState implements rename_state(old, new, is_folder), delegating to
// the rename engine (C10) for the full §4.10 sequence.
func (c *Cache) RenameState(ctx context.Context, oldPath, newPath string, isFolder bool) error {
	if err := c.renameEngine.Rename(ctx, oldPath, newPath, isFolder); err != nil {
		return err
	}
	if c.notify != nil {
		c.notify.OnFileRenamed(c.normalize(oldPath), c.normalize(newPath), isFolder)
	}
	return nil
}

// ---------------------------------------------------------------------------
// grant_file_access / release_file_access (C7)
// ---------------------------------------------------------------------------

// GrantFileAccess implements grant_file_access(open_params, initial_status) -> AccessToken.
func (c *Cache) GrantFileAccess(ctx context.Context, req access.Request) (*access.Guard, error) {
	req.Path = c.normalize(req.Path)

	res, err := c.runtime.Dispatch(ctx, &clustertask.GrantAccessTask{
		Path: req.Path, Node: req.Node, ProcessID: req.ProcessID, ImpersonationID: req.ImpersonationID,
		SharedAccess: req.SharedAccess, Access: req.Access, AttributesOnly: req.AttributesOnly,
		Action: req.Action, WantOpLock: req.WantOpLock,
	})
	if err != nil {
		return nil, err
	}
	tok, _ := res.Value.(*access.Token)
	if tok == nil {
		return nil, errs.NewAccessDenied("grant returned no token")
	}

	c.refreshNearCache(ctx, req.Path)

	if tok.GrantedOpLock != filestate.OpLockNone && c.opMetrics != nil {
		c.opMetrics.ObserveGrant(tok.GrantedOpLock.String())
	}

	return access.NewGuard(tok, c.tokens), nil
}

// ReleaseFileAccess implements release_file_access(token) -> new_open_count.
func (c *Cache) ReleaseFileAccess(ctx context.Context, path string, guard *access.Guard) (int, error) {
	key := c.normalize(path)

	res, err := c.runtime.Dispatch(ctx, &clustertask.ReleaseAccessTask{Path: key, Token: guard.Token()})
	if err != nil {
		return 0, err
	}
	guard.Abandon()

	result, _ := res.Value.(access.ReleaseResult)
	c.refreshNearCache(ctx, key)

	if result.ClearLocalOpLock {
		c.clearLocalHandleAndNotifyBreak(ctx, key)
	}

	return result.NewOpenCount, nil
}

// ---------------------------------------------------------------------------
// add_oplock / clear_oplock / change_oplock_type / request_oplock_break (C8)
// ---------------------------------------------------------------------------

// AddOpLock implements add_oplock(local_handle, network_file) -> bool.
// session is the opaque SMB session the host uses to build the local
// handle through OpLockManager; typ is the oplock type recorded for
// network_file.
func (c *Cache) AddOpLock(ctx context.Context, path string, session any, typ filestate.OpLockType) (bool, error) {
	key := c.normalize(path)

	res, err := c.runtime.Dispatch(ctx, &clustertask.AddOpLockTask{Path: key, Node: c.selfNode, Type: typ})
	if err != nil {
		return false, err
	}
	ok, _ := res.Value.(bool)
	if !ok {
		return false, nil
	}

	if c.perNode != nil && c.opLocks != nil {
		handle := c.opLocks.AllocateLocalHandle(key, session)
		c.perNode.GetOrCreate(key).SetHandle(handle)
	}
	if c.opMetrics != nil {
		c.opMetrics.ObserveGrant(typ.String())
	}
	return true, nil
}

// ClearOpLock implements clear_oplock(path).
func (c *Cache) ClearOpLock(ctx context.Context, path string) error {
	key := c.normalize(path)

	if _, err := c.runtime.Dispatch(ctx, &clustertask.ClearOpLockTask{Path: key}); err != nil {
		return err
	}

	c.clearLocalHandleAndNotifyBreak(ctx, key)
	c.near.Evict(key)
	return nil
}

// ChangeOpLockType implements change_oplock_type(path, new_type).
func (c *Cache) ChangeOpLockType(ctx context.Context, path string, newType filestate.OpLockType) error {
	key := c.normalize(path)

	prevType := filestate.OpLockInvalid
	if s := c.localSnapshot(key); s != nil && s.OpLock != nil {
		prevType = s.OpLock.Type
	}

	if _, err := c.runtime.Dispatch(ctx, &clustertask.ChangeOpLockTypeTask{Path: key, NewType: newType}); err != nil {
		return err
	}

	if c.topic != nil {
		c.publish(ctx, clustertopic.OplockTypeChange, clustertopic.OplockTypeChangePayload{Path: key})
	}
	c.near.Evict(key)

	if c.opMetrics != nil {
		c.opMetrics.ObserveBreak(prevType.String(), newType.String())
	}
	return nil
}

// RequestOpLockBreak implements request_oplock_break(path, session,
// pending_packet), per §4.8's Break step.
func (c *Cache) RequestOpLockBreak(ctx context.Context, path string, session, pendingPacket any) error {
	key := c.normalize(path)

	s, err := c.FindState(ctx, key)
	if err != nil {
		return err
	}
	if s == nil || s.OpLock == nil {
		return nil // nothing to break
	}

	req := pernode.DeferredRequest{Session: session, PendingPacket: pendingPacket, LeaseDeadline: time.Now().Add(c.breakTimeout)}
	entry := c.perNode.GetOrCreate(key)

	if oplock.HolderIsLocal(s, c.selfNode) {
		ok, breakErr := entry.RequestBreak()
		if !ok {
			return errs.NewDeferFailed(key, "no local oplock handle to break")
		}
		if breakErr != nil {
			return errs.NewDeferFailed(key, breakErr.Error())
		}
	} else {
		if c.topic != nil {
			c.publish(ctx, clustertopic.OpLockBreakRequest, clustertopic.OpLockBreakRequestPayload{Path: key, Owner: s.OpLock.OwnerNode})
		}
		entry.Defer(req)
		return nil
	}

	entry.Defer(req)
	c.armBreakTimeout(key, entry)
	return nil
}

func (c *Cache) armBreakTimeout(path string, entry *pernode.Entry) {
	if c.opLocks == nil {
		return
	}
	c.opLocks.ScheduleBreakTimeout(path, c.breakTimeout, func() {
		if !entry.Breaking() {
			return
		}
		drained := entry.DrainDeferred()
		if c.opMetrics != nil {
			c.opMetrics.ObserveBreakTimeout()
		}
		if c.pool == nil {
			return
		}
		timeoutErr := errs.NewOplockBreakTimeout(path)
		for _, req := range drained {
			c.pool.Reprocess(req, timeoutErr)
		}
	})
}

// clearLocalHandleAndNotifyBreak drops C6's local oplock handle for key and,
// if a break was in progress, publishes OpLockBreakNotify so deferred
// requests elsewhere unblock (§4.7's release policy, §4.8's Clear step).
func (c *Cache) clearLocalHandleAndNotifyBreak(ctx context.Context, key string) {
	if c.perNode == nil {
		return
	}
	entry := c.perNode.Get(key)
	if entry == nil {
		return
	}
	wasBreaking := entry.Breaking()
	entry.DropHandle()

	if c.opLocks != nil {
		c.opLocks.CancelBreakTimeout(key)
	}
	if wasBreaking && c.topic != nil {
		c.publish(ctx, clustertopic.OpLockBreakNotify, clustertopic.OpLockBreakNotifyPayload{Path: key})
	}
}

// ---------------------------------------------------------------------------
// add_byte_lock / remove_byte_lock / can_read_file / can_write_file (C9)
// ---------------------------------------------------------------------------

// AddByteLock implements add_byte_lock(path, lock).
func (c *Cache) AddByteLock(ctx context.Context, path string, lock filestate.ByteRangeLock) error {
	key := c.normalize(path)
	_, err := c.runtime.Dispatch(ctx, &clustertask.AddByteLockTask{Path: key, Lock: lock})
	if err != nil {
		return err
	}
	c.refreshNearCache(ctx, key)
	return nil
}

// RemoveByteLock implements remove_byte_lock(path, lock).
func (c *Cache) RemoveByteLock(ctx context.Context, path string, lock filestate.ByteRangeLock) error {
	key := c.normalize(path)
	_, err := c.runtime.Dispatch(ctx, &clustertask.RemoveByteLockTask{
		Path: key, Offset: lock.Offset, Length: lock.Length, OwnerNode: lock.OwnerNode, OwnerID: lock.OwnerID,
	})
	if err != nil {
		return err
	}
	c.refreshNearCache(ctx, key)
	return nil
}

// CanReadFile implements can_read_file(path, off, len, pid) -> bool.
func (c *Cache) CanReadFile(ctx context.Context, path string, offset, length uint64, ownerID string) (bool, error) {
	return c.checkByteAccess(ctx, path, offset, length, ownerID, false)
}

// CanWriteFile implements can_write_file(path, off, len, pid) -> bool.
func (c *Cache) CanWriteFile(ctx context.Context, path string, offset, length uint64, ownerID string) (bool, error) {
	return c.checkByteAccess(ctx, path, offset, length, ownerID, true)
}

// checkByteAccess applies §4.9's short-circuit: if a locally-visible copy of
// the state shows open_count <= 1, no other opener can hold a conflicting
// lock, so the check answers true locally without a remote dispatch.
func (c *Cache) checkByteAccess(ctx context.Context, path string, offset, length uint64, ownerID string, write bool) (bool, error) {
	key := c.normalize(path)

	if s := c.localSnapshot(key); s != nil && s.OpenCount <= 1 {
		return true, nil
	}

	res, err := c.runtime.Dispatch(ctx, &clustertask.CheckByteAccessTask{
		Path: key, Offset: offset, Length: length, OwnerNode: c.selfNode, OwnerID: ownerID, Write: write,
	})
	if err != nil {
		return false, err
	}
	ok, _ := res.Value.(bool)
	return ok, nil
}

// localSnapshot returns whatever copy of key this node has close at hand
// (near-cache, or the local shard if this node happens to own it) without
// dispatching a remote task. Returns nil if nothing is locally visible.
func (c *Cache) localSnapshot(key string) *filestate.State {
	if s := c.near.Get(key); s != nil {
		return s
	}
	return c.shard.Get(key)
}

// ---------------------------------------------------------------------------
// start_data_update / complete_data_update
// ---------------------------------------------------------------------------

// StartDataUpdate implements start_data_update(path).
func (c *Cache) StartDataUpdate(ctx context.Context, path string) (bool, error) {
	return c.fileDataUpdate(ctx, path, true)
}

// CompleteDataUpdate implements complete_data_update(path).
func (c *Cache) CompleteDataUpdate(ctx context.Context, path string) (bool, error) {
	return c.fileDataUpdate(ctx, path, false)
}

func (c *Cache) fileDataUpdate(ctx context.Context, path string, start bool) (bool, error) {
	key := c.normalize(path)

	res, err := c.runtime.Dispatch(ctx, &clustertask.FileDataUpdateTask{Path: key, Node: c.selfNode, Start: start})
	if err != nil {
		return false, err
	}
	ok, _ := res.Value.(bool)
	if !ok {
		return false, nil
	}

	if c.topic != nil {
		c.publish(ctx, clustertopic.DataUpdate, clustertopic.DataUpdatePayload{Path: key, FromNode: c.selfNode, Starting: start})
	}
	return true, nil
}

// ---------------------------------------------------------------------------
// Topic message handling (non-rename message types; RenameState is handled
// directly by the rename engine subscribed in New).
// ---------------------------------------------------------------------------

func (c *Cache) onTopicMessage(ctx context.Context, msg clustertopic.Message) {
	if msg.From == c.selfNode {
		return
	}
	switch msg.Type {
	case clustertopic.OpLockBreakRequest:
		c.onOpLockBreakRequest(ctx, msg)
	case clustertopic.OpLockBreakNotify:
		c.onOpLockBreakNotify(ctx, msg)
	case clustertopic.OplockTypeChange:
		c.onOplockTypeChange(ctx, msg)
	case clustertopic.DataUpdate:
		c.onDataUpdate(ctx, msg)
	case clustertopic.FileStateUpdate:
		c.onFileStateUpdate(ctx, msg)
	}
}

func (c *Cache) onOpLockBreakRequest(ctx context.Context, msg clustertopic.Message) {
	var payload clustertopic.OpLockBreakRequestPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		logger.WarnCtx(ctx, "malformed OpLockBreakRequest payload", logger.Err(err))
		return
	}
	if payload.Owner != c.selfNode || c.perNode == nil {
		return
	}
	entry := c.perNode.Get(payload.Path)
	if entry == nil {
		return
	}
	if _, err := entry.RequestBreak(); err != nil {
		logger.WarnCtx(ctx, "local oplock break request failed", logger.Path(payload.Path), logger.Err(err))
	}
}

func (c *Cache) onOpLockBreakNotify(ctx context.Context, msg clustertopic.Message) {
	var payload clustertopic.OpLockBreakNotifyPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		logger.WarnCtx(ctx, "malformed OpLockBreakNotify payload", logger.Err(err))
		return
	}
	c.near.Evict(payload.Path)
	c.drainAndReprocess(payload.Path, nil)
}

func (c *Cache) onOplockTypeChange(ctx context.Context, msg clustertopic.Message) {
	var payload clustertopic.OplockTypeChangePayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		logger.WarnCtx(ctx, "malformed OplockTypeChange payload", logger.Err(err))
		return
	}
	c.near.Invalidate(payload.Path)
	c.drainAndReprocess(payload.Path, nil)
}

func (c *Cache) onDataUpdate(ctx context.Context, msg clustertopic.Message) {
	var payload clustertopic.DataUpdatePayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		logger.WarnCtx(ctx, "malformed DataUpdate payload", logger.Err(err))
		return
	}
	c.near.Invalidate(payload.Path)
}

func (c *Cache) onFileStateUpdate(ctx context.Context, msg clustertopic.Message) {
	var payload clustertopic.FileStateUpdatePayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		logger.WarnCtx(ctx, "malformed FileStateUpdate payload", logger.Err(err))
		return
	}
	c.near.Invalidate(payload.Path)
}

// drainAndReprocess cancels path's armed break timer and hands its deferred
// requests back to the external thread pool (§4.8's "handed back to the
// external thread pool for reprocessing").
func (c *Cache) drainAndReprocess(path string, withErr error) {
	if c.perNode == nil {
		return
	}
	entry := c.perNode.Get(path)
	if entry == nil {
		return
	}
	if c.opLocks != nil {
		c.opLocks.CancelBreakTimeout(path)
	}
	drained := entry.DrainDeferred()
	if c.pool == nil {
		return
	}
	for _, req := range drained {
		c.pool.Reprocess(req, withErr)
	}
}

// refreshNearCache re-admits the authoritative current state for key, per
// §4.5's "Admit ... on any successful remote task result the local node
// originated": most mutating dispatches above return a result payload other
// than the full state (a token, a bool, a release result), so a lightweight
// FindState re-fetch is the simplest way to keep the near-cache faithful to
// what this node itself just caused to change.
func (c *Cache) refreshNearCache(ctx context.Context, key string) {
	res, err := c.runtime.Dispatch(ctx, &clustertask.FindStateTask{Path: key})
	if err != nil {
		return
	}
	if s, ok := res.Value.(*filestate.State); ok && s != nil {
		c.near.Admit(s)
	}
}

func (c *Cache) publish(ctx context.Context, typ clustertopic.MessageType, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		logger.WarnCtx(ctx, "marshaling topic payload", logger.Err(err), logger.MessageType(string(typ)))
		return
	}
	msg := clustertopic.Message{Target: clustertopic.Broadcast, From: c.selfNode, Type: typ, Payload: body}
	if err := c.topic.Publish(ctx, msg); err != nil {
		logger.WarnCtx(ctx, "publishing topic message failed", logger.Err(err), logger.MessageType(string(typ)))
	}
}
