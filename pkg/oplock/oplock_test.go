package oplock

import (
	"testing"

	"github.com/dittofs/clusterstate/pkg/errs"
	"github.com/dittofs/clusterstate/pkg/filestate"
)

func TestAddThenAddConflictingFails(t *testing.T) {
	s := filestate.New(`C:\FOO.TXT`)
	if _, err := Add(s, `C:\FOO.TXT`, "node-1", filestate.OpLockBatch); err != nil {
		t.Fatalf("unexpected error on first add: %v", err)
	}
	_, err := Add(s, `C:\FOO.TXT`, "node-2", filestate.OpLockExclusive)
	if !errs.Is(err, errs.ExistingOpLock) {
		t.Fatalf("expected ExistingOpLock, got %v", err)
	}
}

func TestAddCrossCheckAckIsNoOp(t *testing.T) {
	s := filestate.New(`C:\FOO.TXT`)
	Add(s, `C:\FOO.TXT`, "node-1", filestate.OpLockBatch)
	res, err := Add(s, `C:\FOO.TXT`, "node-1", filestate.OpLockBatch)
	if err != nil {
		t.Fatalf("expected no-op ack to succeed, got %v", err)
	}
	if !res.AlreadyGranted {
		t.Fatal("expected AlreadyGranted on matching re-add")
	}
}

func TestChangeTypeAndRemoveOwner(t *testing.T) {
	s := filestate.New(`C:\FOO.TXT`)
	Add(s, `C:\FOO.TXT`, "node-1", filestate.OpLockBatch)

	got := ChangeType(s, filestate.OpLockLevelII)
	if got != filestate.OpLockLevelII || s.OpLock.Type != filestate.OpLockLevelII {
		t.Fatalf("expected LevelII, got %v", got)
	}
	if len(s.OpLock.SharedOwners) != 1 {
		t.Fatalf("expected one shared owner seeded, got %v", s.OpLock.SharedOwners)
	}

	RemoveOwner(s, "node-1")
	if s.OpLock != nil {
		t.Fatal("expected oplock cleared once shared owners emptied")
	}
}

func TestClear(t *testing.T) {
	s := filestate.New(`C:\FOO.TXT`)
	if Clear(s) {
		t.Fatal("expected Clear on empty oplock to report false")
	}
	Add(s, `C:\FOO.TXT`, "node-1", filestate.OpLockExclusive)
	if !Clear(s) {
		t.Fatal("expected Clear to report true")
	}
	if s.OpLock != nil {
		t.Fatal("expected oplock nil after Clear")
	}
}
