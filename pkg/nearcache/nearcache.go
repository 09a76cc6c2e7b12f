// Package nearcache implements C5: a bounded, concurrent, local replica of
// recently-touched FileStates, invalidated via the cluster pub/sub topic.
// It wraps patrickmn/go-cache for storage and TTL sweeping and layers the
// admit/evict/invalidate/merge/rename-rewrite policy from §4.5 on top.
package nearcache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/dittofs/clusterstate/pkg/filestate"
)

// DefaultTTL and the valid configuration range from §4.5.
const (
	DefaultTTL = 5 * time.Second
	MinTTL     = 3 * time.Second
	MaxTTL     = 120 * time.Second
)

// Cache is the near-cache (C5). The *Cache returned by Disabled behaves as
// an always-miss cache, implementing the "disabling the near-cache is a
// supported configuration" requirement without scattering nil checks across
// every caller; a nil *Cache is not valid.
type Cache struct {
	disabled bool
	ttl      time.Duration
	store    *gocache.Cache
}

// New constructs a near-cache with the given TTL, clamped to [MinTTL, MaxTTL].
func New(ttl time.Duration) *Cache {
	if ttl < MinTTL {
		ttl = MinTTL
	}
	if ttl > MaxTTL {
		ttl = MaxTTL
	}
	return &Cache{ttl: ttl, store: gocache.New(ttl, ttl/2)}
}

// Disabled returns a near-cache that never admits or hits anything.
func Disabled() *Cache {
	return &Cache{disabled: true}
}

// Get returns a clone of the cached state for key if present and valid,
// bumping its access bookkeeping. A miss (absent, expired, or invalidated)
// returns nil, and callers are expected to fall through to the partition
// map (C2).
func (c *Cache) Get(key string) *filestate.State {
	if c.disabled {
		return nil
	}
	v, ok := c.store.Get(key)
	if !ok {
		return nil
	}
	s := v.(*filestate.State)
	if !s.Valid {
		return nil
	}
	s.Touch(time.Now())
	return s.Clone()
}

// Admit stores a clone of s under its path, per §4.5: called on
// find_or_create for the creator node and on any remote task result the
// local node originated. If a prior entry exists, its near-cache metadata
// (added-at, hit count) carries across the replacement (the "merge on
// update" rule).
func (c *Cache) Admit(s *filestate.State) {
	if c.disabled {
		return
	}
	clone := s.Clone()
	now := time.Now()
	if prior, ok := c.store.Get(s.Path); ok {
		priorState := prior.(*filestate.State)
		clone.MergeNearCacheMeta(priorState.NearCacheMeta)
	} else {
		clone.NearAddedAt = now
		clone.Valid = true
	}
	clone.NearLastAccess = now
	c.store.Set(s.Path, clone, gocache.DefaultExpiration)
}

// Invalidate marks the entry for key invalid without evicting it; the next
// Get falls through to C2. Used on any observed remote mutation the local
// node did not originate (I6).
func (c *Cache) Invalidate(key string) {
	if c.disabled {
		return
	}
	v, ok := c.store.Get(key)
	if !ok {
		return
	}
	s := v.(*filestate.State)
	s.Valid = false
	s.NearRemoteUpdateAt = time.Now()
}

// Evict removes key entirely — explicit remove, or an
// OpLockBreakNotify/OplockTypeChange/evict-listener event.
func (c *Cache) Evict(key string) {
	if c.disabled {
		return
	}
	c.store.Delete(key)
}

// SweepExpired removes every entry whose near_last_access predates
// now-TTL. go-cache already expires entries on its own janitor goroutine;
// this is called by the reaper (C11) for deterministic, testable sweeps and
// to double as the TTL sweep the spec calls out explicitly in §4.12.
func (c *Cache) SweepExpired(now time.Time) int {
	if c.disabled {
		return 0
	}
	removed := 0
	for key, item := range c.store.Items() {
		s, ok := item.Object.(*filestate.State)
		if !ok {
			continue
		}
		if now.Sub(s.NearLastAccess) > c.ttl {
			c.store.Delete(key)
			removed++
		}
	}
	return removed
}

// RenameRewrite implements §4.5's "rename rewrite": every key starting with
// oldPrefix+sep is re-keyed to newPrefix+sep+tail with attributes cleared.
// For a single-file rename (isFolder false), only the exact oldPrefix key
// is rewritten.
func (c *Cache) RenameRewrite(oldPrefix, newPrefix string, isFolder bool) {
	if c.disabled {
		return
	}
	if !isFolder {
		c.rewriteOne(oldPrefix, newPrefix)
		return
	}
	for key := range c.store.Items() {
		if filestate.HasPrefixDir(key, oldPrefix) {
			newKey := filestate.RewriteRenamedKey(key, oldPrefix, newPrefix)
			c.rewriteOne(key, newKey)
		}
	}
}

func (c *Cache) rewriteOne(oldKey, newKey string) {
	v, ok := c.store.Get(oldKey)
	if !ok {
		return
	}
	s := v.(*filestate.State)
	s.Path = newKey
	s.Attributes = make(map[string]any)
	c.store.Delete(oldKey)
	c.store.Set(newKey, s, gocache.DefaultExpiration)
}

// Len reports the current entry count, for metrics/diagnostics.
func (c *Cache) Len() int {
	if c.disabled {
		return 0
	}
	return c.store.ItemCount()
}
