package reaper

import (
	"context"
	"testing"
	"time"

	"github.com/dittofs/clusterstate/pkg/access"
	"github.com/dittofs/clusterstate/pkg/filestate"
	"github.com/dittofs/clusterstate/pkg/nearcache"
	"github.com/dittofs/clusterstate/pkg/partition"
)

func TestExpiredSkipsOpenFilesLocksAndOplocks(t *testing.T) {
	past := time.Now().Add(-time.Hour)

	open := filestate.New(`C:\OPEN.TXT`)
	open.OpenCount = 1
	open.ExpiryDeadline = past
	if expired(open, time.Now()) {
		t.Error("open file must not be reaped")
	}

	locked := filestate.New(`C:\LOCKED.TXT`)
	locked.LockList = []filestate.ByteRangeLock{{Offset: 0, Length: 10, OwnerNode: "n1"}}
	locked.ExpiryDeadline = past
	if expired(locked, time.Now()) {
		t.Error("locked file must not be reaped")
	}

	oplocked := filestate.New(`C:\OPLOCKED.TXT`)
	oplocked.OpLock = &filestate.RemoteOpLockRef{OwnerNode: "n1", Type: filestate.OpLockExclusive}
	oplocked.ExpiryDeadline = past
	if expired(oplocked, time.Now()) {
		t.Error("oplocked file must not be reaped")
	}

	permanent := filestate.New(`C:\PERM.TXT`)
	permanent.ExpiryDeadline = filestate.PermanentExpiry
	if expired(permanent, time.Now()) {
		t.Error("permanent (zero deadline) file must not be reaped")
	}

	idle := filestate.New(`C:\IDLE.TXT`)
	idle.ExpiryDeadline = past
	if !expired(idle, time.Now()) {
		t.Error("idle, past-deadline file should be expired")
	}
}

func TestSweepExpiredRemovesOnlyEligibleKeys(t *testing.T) {
	shard := partition.NewMap()
	past := time.Now().Add(-time.Hour)

	idle := filestate.New(`C:\IDLE.TXT`)
	idle.ExpiryDeadline = past
	shard.Put(idle.Path, idle)

	open := filestate.New(`C:\OPEN.TXT`)
	open.OpenCount = 1
	open.ExpiryDeadline = past
	shard.Put(open.Path, open)

	r, err := New(shard, nearcache.Disabled(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	r.sweepExpired(context.Background())

	if shard.Get(idle.Path) != nil {
		t.Error("expected idle file to be reaped")
	}
	if shard.Get(open.Path) == nil {
		t.Error("expected open file to survive the sweep")
	}
}

func TestSweepLeaksLogsUnreleasedGuardsWithoutRemovingThem(t *testing.T) {
	shard := partition.NewMap()
	tokens := access.NewTracker()
	guard := access.NewGuard(&access.Token{Kind: access.TokenGranted, Path: `C:\LEAKED.TXT`}, tokens)

	r, err := New(shard, nearcache.Disabled(), nil, WithLeakTracker(tokens, 0))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	r.sweepLeaks(context.Background())

	if guard.Token().Released() {
		t.Fatal("sweepLeaks must only log, never release, a leaked guard")
	}
	if leaked := tokens.LeakedOlderThan(0); len(leaked) != 1 {
		t.Fatalf("expected guard still tracked as leaked after sweep, got %d", len(leaked))
	}
}

func TestVetoHookPreventsRemoval(t *testing.T) {
	shard := partition.NewMap()
	past := time.Now().Add(-time.Hour)
	idle := filestate.New(`C:\IDLE.TXT`)
	idle.ExpiryDeadline = past
	shard.Put(idle.Path, idle)

	vetoed := false
	hook := func(path string, s *filestate.State) bool {
		vetoed = true
		return true
	}

	r, err := New(shard, nearcache.Disabled(), hook)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	r.sweepExpired(context.Background())

	if !vetoed {
		t.Fatal("expected hook to be invoked")
	}
	if shard.Get(idle.Path) == nil {
		t.Error("expected vetoed entry to survive")
	}
}
