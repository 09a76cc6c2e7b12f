package nearcache

import (
	"testing"
	"time"

	"github.com/dittofs/clusterstate/pkg/filestate"
)

func TestAdmitAndGet(t *testing.T) {
	c := New(DefaultTTL)
	s := filestate.New(`C:\FOO.TXT`)
	s.OpenCount = 1
	c.Admit(s)

	got := c.Get(`C:\FOO.TXT`)
	if got == nil {
		t.Fatal("expected a hit after admit")
	}
	if got == s {
		t.Fatal("expected Get to return a clone, not the original pointer")
	}
	if got.NearHitCount != 1 {
		t.Fatalf("expected Touch to bump hit count, got %d", got.NearHitCount)
	}
}

func TestInvalidateFallsThrough(t *testing.T) {
	c := New(DefaultTTL)
	c.Admit(filestate.New(`C:\FOO.TXT`))
	c.Invalidate(`C:\FOO.TXT`)

	if got := c.Get(`C:\FOO.TXT`); got != nil {
		t.Fatal("expected invalidated entry to miss")
	}
}

func TestMergeOnUpdateCarriesMetadata(t *testing.T) {
	c := New(DefaultTTL)
	first := filestate.New(`C:\FOO.TXT`)
	c.Admit(first)
	time.Sleep(time.Millisecond)
	c.Get(`C:\FOO.TXT`) // bump hit count to 1

	second := filestate.New(`C:\FOO.TXT`)
	second.FileSize = 42
	c.Admit(second)

	got := c.Get(`C:\FOO.TXT`)
	if got.FileSize != 42 {
		t.Fatalf("expected new authoritative field to win, got %d", got.FileSize)
	}
	if got.NearHitCount < 1 {
		t.Fatalf("expected prior hit count to carry across merge, got %d", got.NearHitCount)
	}
}

func TestDisabledCacheAlwaysMisses(t *testing.T) {
	c := Disabled()
	c.Admit(filestate.New(`C:\FOO.TXT`))
	if got := c.Get(`C:\FOO.TXT`); got != nil {
		t.Fatal("expected disabled cache to never hit")
	}
}

func TestRenameRewriteFolderSweep(t *testing.T) {
	c := New(DefaultTTL)
	c.Admit(filestate.New(`C:\FOO`))
	c.Admit(filestate.New(`C:\FOO\BAR.TXT`))
	c.Admit(filestate.New(`C:\FOOTHER.TXT`)) // must NOT match prefix C:\FOO

	c.RenameRewrite(`C:\FOO`, `C:\BAZ`, true)

	if c.Get(`C:\BAZ`) == nil {
		t.Error("expected root rewritten to C:\\BAZ")
	}
	if c.Get(`C:\BAZ\BAR.TXT`) == nil {
		t.Error("expected child rewritten to C:\\BAZ\\BAR.TXT")
	}
	if c.Get(`C:\FOOTHER.TXT`) == nil {
		t.Error("expected unrelated sibling left untouched")
	}
}

func TestSweepExpiredRemovesStaleEntries(t *testing.T) {
	c := New(MinTTL)
	s := filestate.New(`C:\FOO.TXT`)
	c.Admit(s)

	removed := c.SweepExpired(time.Now().Add(MinTTL + time.Second))
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	if c.Len() != 0 {
		t.Fatalf("expected cache empty after sweep, got %d entries", c.Len())
	}
}
