package filestate

import (
	"testing"
	"time"
)

func TestResetForCloseAppliesI1(t *testing.T) {
	s := New(`C:\FOO.TXT`)
	s.OpenCount = 1
	s.PrimaryOwner = "node-1"
	s.ProcessID = "proc-42"
	s.SharedAccess = ShareRead

	s.ResetForClose()

	if s.OpenCount != 0 || s.PrimaryOwner != "" || s.ProcessID != "" {
		t.Fatalf("ResetForClose left stale owner state: %+v", s)
	}
	if s.SharedAccess != ShareRead|ShareWrite|ShareDelete {
		t.Fatalf("ResetForClose did not restore permissive default: %v", s.SharedAccess)
	}
}

func TestMarkNotExistAppliesI4(t *testing.T) {
	s := New(`C:\FOO.TXT`)
	s.FileID = "backend-id-1"
	s.Attributes["hidden"] = true

	s.MarkNotExist(ReasonFileDeleted)

	if s.FileStatus != NotExist {
		t.Fatalf("expected NotExist, got %v", s.FileStatus)
	}
	if s.FileID != UnknownFileID {
		t.Fatalf("expected file_id cleared, got %q", s.FileID)
	}
	if len(s.Attributes) != 0 {
		t.Fatalf("expected attributes cleared, got %v", s.Attributes)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	s := New(`C:\FOO.TXT`)
	s.Attributes["a"] = 1
	s.LockList = append(s.LockList, ByteRangeLock{Offset: 0, Length: 10, OwnerNode: "n1", OwnerID: "o1"})
	s.OpLock = &RemoteOpLockRef{OwnerNode: "n1", Type: OpLockLevelII, SharedOwners: []string{"n1"}}

	clone := s.Clone()
	clone.Attributes["a"] = 2
	clone.LockList[0].Offset = 99
	clone.OpLock.SharedOwners[0] = "n2"

	if s.Attributes["a"] != 1 {
		t.Error("mutating clone attributes leaked into original")
	}
	if s.LockList[0].Offset != 0 {
		t.Error("mutating clone lock list leaked into original")
	}
	if s.OpLock.SharedOwners[0] != "n1" {
		t.Error("mutating clone oplock owners leaked into original")
	}
}

func TestByteRangeLockOverlaps(t *testing.T) {
	a := ByteRangeLock{Offset: 0, Length: 10, OwnerNode: "n1", OwnerID: "o1"}
	b := ByteRangeLock{Offset: 5, Length: 10, OwnerNode: "n2", OwnerID: "o2"}
	c := ByteRangeLock{Offset: 10, Length: 10, OwnerNode: "n2", OwnerID: "o2"}

	if !a.Overlaps(b) {
		t.Error("expected overlap between a and b")
	}
	if a.Overlaps(c) {
		t.Error("adjacent non-overlapping ranges must not overlap")
	}
	if !a.SameOwner(ByteRangeLock{OwnerNode: "n1", OwnerID: "o1"}) {
		t.Error("expected same-owner match")
	}
}

func TestPostProcessingQueueCoalesces(t *testing.T) {
	q := NewPostProcessingQueue()
	q.QueueSize(`C:\FOO.TXT`, 100)
	q.QueueAlloc(`C:\FOO.TXT`, 4096)
	q.QueueTimestamps(`C:\FOO.TXT`, time.Now().UnixNano(), time.Now().UnixNano())
	q.QueueSize(`C:\FOO.TXT`, 200) // overwrite within the same batch

	drained := q.Drain()
	if len(drained) != 1 {
		t.Fatalf("expected exactly one coalesced update, got %d", len(drained))
	}
	u := drained[0]
	if u.FileSize != 200 {
		t.Errorf("expected latest size 200 to win, got %d", u.FileSize)
	}
	want := MaskSize | MaskAlloc | MaskModifyTime | MaskChangeTime
	if u.Mask != want {
		t.Errorf("mask = %b, want %b", u.Mask, want)
	}

	if drained2 := q.Drain(); drained2 != nil {
		t.Errorf("expected empty queue after drain, got %v", drained2)
	}
}
