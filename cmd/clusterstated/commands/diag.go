package commands

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dittofs/clusterstate/pkg/nearcache"
	"github.com/dittofs/clusterstate/pkg/partition"
	"github.com/dittofs/clusterstate/pkg/statecache"
)

// diagServer exposes diagnostics for clusterstatectl: partition ownership,
// near-cache occupancy, and a manual reap trigger. Only the last mutates
// cluster state, and only by running the regular expiry sweep early.
type diagServer struct {
	selfNode     string
	ring         *partition.Ring
	near         *nearcache.Cache
	nearCacheTTL int
	cache        *statecache.Cache
}

func newDiagServer(selfNode string, ring *partition.Ring, near *nearcache.Cache, nearCacheTTLSeconds int, cache *statecache.Cache) *diagServer {
	return &diagServer{selfNode: selfNode, ring: ring, near: near, nearCacheTTL: nearCacheTTLSeconds, cache: cache}
}

// Mount registers the diagnostic routes under r.
func (d *diagServer) Mount(r chi.Router) {
	r.Route("/internal/v1/diag", func(r chi.Router) {
		r.Get("/ring", d.handleRing)
		r.Get("/nearcache", d.handleNearCache)
		r.Post("/reap", d.handleReap)
	})
}

type ringResponse struct {
	SelfNode string   `json:"self_node"`
	Nodes    []string `json:"nodes"`
}

func (d *diagServer) handleRing(w http.ResponseWriter, r *http.Request) {
	resp := ringResponse{SelfNode: d.selfNode, Nodes: d.ring.Nodes()}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

type nearCacheResponse struct {
	Entries    int `json:"entries"`
	TTLSeconds int `json:"ttl_seconds"`
}

func (d *diagServer) handleNearCache(w http.ResponseWriter, r *http.Request) {
	resp := nearCacheResponse{Entries: d.near.Len(), TTLSeconds: d.nearCacheTTL}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (d *diagServer) handleReap(w http.ResponseWriter, r *http.Request) {
	d.cache.TriggerReap(r.Context())
	w.WriteHeader(http.StatusNoContent)
}
