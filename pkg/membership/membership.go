// Package membership implements §4.13's membership-loss cleanup. Since the
// retrieved corpus carries no gossip/membership protocol library, peer
// liveness is derived from the cluster topic's own heartbeat traffic: a
// node missing MissedThreshold consecutive heartbeats is declared departed
// (see DESIGN.md's Open Question decision on this).
package membership

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dittofs/clusterstate/internal/logger"
	"github.com/dittofs/clusterstate/pkg/filestate"
	"github.com/dittofs/clusterstate/pkg/partition"
)

// holderSeq mints per-call lock-holder ids for Cleanup, the same scheme
// pkg/clustertask.Runtime uses for task-dispatched mutations.
var holderSeq atomic.Uint64

// DefaultMissedThreshold is how many consecutive missed heartbeats before a
// peer is declared departed.
const DefaultMissedThreshold = 3

// DefaultHeartbeatInterval is how often this node expects to observe a
// heartbeat from every known peer.
const DefaultHeartbeatInterval = 5 * time.Second

// Listener is notified when a peer is declared departed.
type Listener func(node string)

// Tracker observes heartbeats (delivered out-of-band, e.g. as a
// clustertopic message type a host wires up) and declares a peer departed
// once it misses MissedThreshold consecutive intervals.
type Tracker struct {
	mu        sync.Mutex
	threshold int
	missed    map[string]int
	known     map[string]struct{}
	listeners []Listener
}

// NewTracker constructs a Tracker with the given missed-heartbeat
// threshold (DefaultMissedThreshold if zero).
func NewTracker(threshold int) *Tracker {
	if threshold <= 0 {
		threshold = DefaultMissedThreshold
	}
	return &Tracker{
		threshold: threshold,
		missed:    make(map[string]int),
		known:     make(map[string]struct{}),
	}
}

// OnListener registers a callback invoked on MemberLeft.
func (t *Tracker) OnListener(l Listener) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.listeners = append(t.listeners, l)
}

// Observe records a heartbeat from node, resetting its missed count.
func (t *Tracker) Observe(node string) {
	t.mu.Lock()
	t.known[node] = struct{}{}
	t.missed[node] = 0
	t.mu.Unlock()
}

// Tick is called once per heartbeat interval for every known peer that did
// not report in during that interval; it increments the miss count and
// fires MemberLeft once the threshold is crossed.
func (t *Tracker) Tick(silent []string) {
	var departed []string
	t.mu.Lock()
	for _, node := range silent {
		if _, ok := t.known[node]; !ok {
			continue
		}
		t.missed[node]++
		if t.missed[node] == t.threshold {
			departed = append(departed, node)
			delete(t.known, node)
			delete(t.missed, node)
		}
	}
	listeners := append([]Listener(nil), t.listeners...)
	t.mu.Unlock()

	for _, node := range departed {
		for _, l := range listeners {
			l(node)
		}
	}
}

// Cleanup applies §4.13's three rules against shard for a departed node.
// It scans LocalKeySet() best-effort (no ordering across keys); each key's
// read-modify-write runs under that key's per-key lock (I5, §5), the same
// serialization point every other C1 mutation — GrantAccess, byte-lock
// tasks, etc. — goes through, so a concurrent task for the same key can
// never race this cleanup.
func Cleanup(ctx context.Context, shard *partition.Map, departedNode string) {
	affected := 0
	for _, key := range shard.LocalKeySet() {
		holderID := holderSeq.Add(1)
		shard.Lock(key, holderID)
		s := shard.Get(key)
		if s != nil && applyCleanup(s, departedNode) {
			shard.Put(key, s)
			affected++
		}
		shard.Unlock(key, holderID)
	}
	if affected > 0 {
		logger.InfoCtx(ctx, "membership cleanup applied", logger.Node(departedNode))
	}
}

func applyCleanup(s *filestate.State, departedNode string) bool {
	changed := false

	if s.PrimaryOwner == departedNode {
		s.SharedAccess = filestate.ShareRead | filestate.ShareWrite | filestate.ShareDelete
		if s.OpenCount > 0 {
			s.OpenCount--
		}
		changed = true
	}

	kept := s.LockList[:0:0]
	for _, lk := range s.LockList {
		if lk.OwnerNode == departedNode {
			changed = true
			continue
		}
		kept = append(kept, lk)
	}
	s.LockList = kept

	if s.OpLock != nil && s.OpLock.OwnerNode == departedNode {
		s.OpLock = nil
		changed = true
	}

	return changed
}
