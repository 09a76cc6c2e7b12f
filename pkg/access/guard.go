package access

import (
	"sync"
	"time"

	"github.com/dittofs/clusterstate/pkg/filestate"
)

// Guard wraps a granted Token with explicit-release discipline: the spec's
// source pattern detected leaked tokens with a runtime finalizer, which Go's
// GC gives no equivalent timing guarantee for. Guard instead registers
// itself with a Tracker that a scheduled job (pkg/reaper) sweeps
// periodically, logging anything still outstanding past its age threshold.
type Guard struct {
	token     *Token
	grantedAt time.Time
	tracker   *Tracker
}

// NewGuard wraps tok and registers it with tracker for leak detection.
// tracker may be nil to opt out (tests, or a caller managing its own
// lifetime tightly).
func NewGuard(tok *Token, tracker *Tracker) *Guard {
	g := &Guard{token: tok, grantedAt: time.Now()}
	if tracker != nil {
		g.tracker = tracker
		tracker.track(g)
	}
	return g
}

// Token returns the wrapped token.
func (g *Guard) Token() *Token { return g.token }

// Release marks the guarded token as cleanly released and applies the
// §4.7 release policy to s.
func (g *Guard) Release(s *filestate.State) ReleaseResult {
	defer g.untrack()
	return Release(s, g.token)
}

// Abandon marks the guard released without applying release policy — used
// when the caller already released through another path (e.g. a remote
// task) and only needs to stop leak tracking.
func (g *Guard) Abandon() {
	g.token.released = true
	g.untrack()
}

func (g *Guard) untrack() {
	if g.tracker != nil {
		g.tracker.untrack(g)
	}
}

// Tracker records outstanding Guards so a periodic sweep can flag ones that
// were never released — the replacement for finalizer-based leak detection.
type Tracker struct {
	mu   sync.Mutex
	live map[*Guard]struct{}
}

// NewTracker constructs an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{live: make(map[*Guard]struct{})}
}

func (t *Tracker) track(g *Guard) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.live[g] = struct{}{}
}

func (t *Tracker) untrack(g *Guard) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.live, g)
}

// LeakedOlderThan returns every tracked guard whose token has not been
// released and whose grant predates the given age threshold.
func (t *Tracker) LeakedOlderThan(age time.Duration) []*Guard {
	cutoff := time.Now().Add(-age)
	t.mu.Lock()
	defer t.mu.Unlock()
	var leaked []*Guard
	for g := range t.live {
		if !g.token.released && g.grantedAt.Before(cutoff) {
			leaked = append(leaked, g)
		}
	}
	return leaked
}
