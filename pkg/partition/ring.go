package partition

import (
	"sync"

	"github.com/golang/groupcache/consistenthash"
)

// replicasPerNode controls how many virtual points each node gets on the
// hash ring. Higher values spread keys more evenly across nodes at the cost
// of a larger ring to search.
const replicasPerNode = 160

// Ring maps normalized paths to the node currently responsible for them. It
// wraps groupcache's consistenthash so that adding or removing a node only
// reshuffles the minority of keys adjacent to it on the ring, rather than
// the whole key space.
type Ring struct {
	mu    sync.RWMutex
	hash  *consistenthash.Map
	nodes map[string]struct{}
}

// NewRing constructs an empty ring.
func NewRing() *Ring {
	return &Ring{
		hash:  consistenthash.New(replicasPerNode, nil),
		nodes: make(map[string]struct{}),
	}
}

// AddNode adds node to the ring. A no-op if already present.
func (r *Ring) AddNode(node string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.nodes[node]; ok {
		return
	}
	r.nodes[node] = struct{}{}
	r.hash.Add(node)
}

// RemoveNode drops node from the ring and rebuilds it. consistenthash has no
// incremental remove, so membership changes (rare relative to key lookups)
// pay the cost of a full rebuild.
func (r *Ring) RemoveNode(node string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.nodes[node]; !ok {
		return
	}
	delete(r.nodes, node)
	rebuilt := consistenthash.New(replicasPerNode, nil)
	for n := range r.nodes {
		rebuilt.Add(n)
	}
	r.hash = rebuilt
}

// Owner returns the node currently owning key, per §4.2 partition_owner.
func (r *Ring) Owner(key string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.nodes) == 0 {
		return "", false
	}
	return r.hash.Get(key), true
}

// Nodes returns a snapshot of the current ring membership.
func (r *Ring) Nodes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.nodes))
	for n := range r.nodes {
		out = append(out, n)
	}
	return out
}
