// Package oplock implements the remote side of the oplock state machine
// (C8): adding, breaking, changing the type of, and clearing the
// RemoteOpLockRef carried on a filestate.State. These functions run inside
// the per-key lock on the owning node, same as pkg/access; they never touch
// the network or the local SMB-session handle (C6, pkg/pernode) directly —
// callers are expected to publish the corresponding pub/sub message and
// drive C6 themselves based on the returned result.
package oplock

import (
	"github.com/dittofs/clusterstate/pkg/errs"
	"github.com/dittofs/clusterstate/pkg/filestate"
)

// AddResult reports what Add did so the caller knows whether to publish
// anything.
type AddResult struct {
	AlreadyGranted bool // the access arbiter already recorded this oplock; no-op ack
}

// Add writes a RemoteOpLockRef onto s for owner/typ. If s already carries an
// oplock for the same owner and type, this is treated as the
// cross-check acknowledgement described in §4.8 and succeeds as a no-op.
func Add(s *filestate.State, path, owner string, typ filestate.OpLockType) (AddResult, error) {
	if s.OpLock != nil {
		if s.OpLock.OwnerNode == owner && s.OpLock.Type == typ {
			return AddResult{AlreadyGranted: true}, nil
		}
		return AddResult{}, errs.NewExistingOpLock(path)
	}
	s.OpLock = &filestate.RemoteOpLockRef{OwnerNode: owner, Type: typ, Path: path}
	if typ == filestate.OpLockLevelII {
		s.OpLock.SharedOwners = []string{owner}
	}
	return AddResult{}, nil
}

// Clear zeros the oplock unconditionally. Returns false if there was nothing
// to clear.
func Clear(s *filestate.State) bool {
	if s.OpLock == nil {
		return false
	}
	s.OpLock = nil
	return true
}

// ChangeType updates the oplock's type in place (e.g. Batch -> LevelII on
// first client ack). Returns OpLockInvalid if no oplock is present.
func ChangeType(s *filestate.State, newType filestate.OpLockType) filestate.OpLockType {
	if s.OpLock == nil {
		return filestate.OpLockInvalid
	}
	s.OpLock.Type = newType
	if newType == filestate.OpLockLevelII && len(s.OpLock.SharedOwners) == 0 {
		s.OpLock.SharedOwners = []string{s.OpLock.OwnerNode}
	}
	return newType
}

// RemoveOwner drops one owner from a LevelII oplock's shared-owner list,
// clearing the oplock entirely once the list empties.
func RemoveOwner(s *filestate.State, owner string) *filestate.State {
	if s.OpLock == nil || s.OpLock.Type != filestate.OpLockLevelII {
		return s
	}
	owners := s.OpLock.SharedOwners[:0:0]
	for _, o := range s.OpLock.SharedOwners {
		if o != owner {
			owners = append(owners, o)
		}
	}
	if len(owners) == 0 {
		s.OpLock = nil
	} else {
		s.OpLock.SharedOwners = owners
	}
	return s
}

// HolderIsLocal reports whether the given node currently owns s's oplock.
func HolderIsLocal(s *filestate.State, localNode string) bool {
	return s.OpLock != nil && s.OpLock.OwnerNode == localNode
}
