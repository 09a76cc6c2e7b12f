// Package bytelock implements the byte-range lock engine (C9): add, remove,
// test, and access-check operations over a FileState's ordered lock list.
// Like pkg/access and pkg/oplock, these run under the owning node's per-key
// lock; the "short-circuit to local true when open_count <= 1" optimization
// from §4.9 is the caller's responsibility (it decides whether to dispatch
// a remote task at all), not this package's.
package bytelock

import (
	"github.com/dittofs/clusterstate/pkg/errs"
	"github.com/dittofs/clusterstate/pkg/filestate"
)

// Add appends lock to s's lock list, rejecting any overlap held by a
// different (node, owner_id) pair. Equal-owner overlap (SMB re-lock of an
// owned region) is allowed.
func Add(s *filestate.State, lock filestate.ByteRangeLock) error {
	for _, existing := range s.LockList {
		if existing.Overlaps(lock) && !existing.SameOwner(lock) {
			return errs.NewLockConflict(s.Path)
		}
	}
	s.LockList = append(s.LockList, lock)
	return nil
}

// Remove deletes the lock exactly matching (offset, length, ownerNode,
// ownerID), failing with NotLocked if no such entry exists.
func Remove(s *filestate.State, offset, length uint64, ownerNode, ownerID string) error {
	for i, l := range s.LockList {
		if l.Offset == offset && l.Length == length && l.OwnerNode == ownerNode && l.OwnerID == ownerID {
			s.LockList = append(s.LockList[:i], s.LockList[i+1:]...)
			return nil
		}
	}
	return errs.NewNotLocked(s.Path)
}

// Test returns the first lock overlapping the given range, or nil if none.
func Test(s *filestate.State, offset, length uint64) *filestate.ByteRangeLock {
	probe := filestate.ByteRangeLock{Offset: offset, Length: length}
	for i := range s.LockList {
		if s.LockList[i].Overlaps(probe) {
			return &s.LockList[i]
		}
	}
	return nil
}

// CheckAccess reports whether (offset, length) may be accessed by
// (ownerNode, ownerID): permitted unless an overlapping lock exists whose
// owner differs; same-owner overlaps never block their own owner.
//
// write is accepted for symmetry with the caller's CanReadFile/CanWriteFile
// split but not read: ByteRangeLock carries no lock-type field, so there is
// no read-vs-write distinction to check against here.
func CheckAccess(s *filestate.State, offset, length uint64, ownerNode, ownerID string, write bool) bool {
	probe := filestate.ByteRangeLock{Offset: offset, Length: length, OwnerNode: ownerNode, OwnerID: ownerID}
	for _, l := range s.LockList {
		if !l.Overlaps(probe) {
			continue
		}
		if l.SameOwner(probe) {
			continue
		}
		return false
	}
	return true
}
