// Package access implements the share-mode access arbiter (C7): the grant
// and release policy that runs under a path's per-key lock on the owning
// node. It operates purely on a *filestate.State already loaded by the
// caller (pkg/clustertask's GrantAccess/ReleaseAccess tasks); it never
// touches the partition map or the network itself.
package access

import (
	"github.com/dittofs/clusterstate/pkg/errs"
	"github.com/dittofs/clusterstate/pkg/filestate"
)

// OpenAction mirrors the SMB create-disposition distinction the arbiter
// cares about: whether the caller demanded the file not already exist.
type OpenAction int

const (
	OpenActionOpen OpenAction = iota
	OpenActionCreate
)

// Request carries everything the grant policy needs about the opener.
type Request struct {
	Path            string
	Node            string // requesting node, becomes primary_owner on first open
	ProcessID       string
	ImpersonationID string // opaque identity used for the same-process reopen check
	SharedAccess    filestate.SharedAccess // Q in §4.7's table
	Access          filestate.SharedAccess // R: ShareRead/ShareWrite/both, describing what the opener itself wants to do
	AttributesOnly  bool
	Action          OpenAction
	WantOpLock      filestate.OpLockType // requested oplock, or OpLockNone
}

// TokenKind distinguishes a normal open token from an attributes-only one;
// release policy branches on it (§4.7: attributes-only never decrements
// open_count).
type TokenKind int

const (
	TokenGranted TokenKind = iota
	TokenAttributesOnly
)

// Token is returned by Grant and consumed by Release. The host is
// responsible for calling Release exactly once per granted Token; a Guard
// wraps that discipline with explicit Release/Abandon semantics instead of
// relying on a finalizer.
type Token struct {
	Kind              TokenKind
	Path              string
	GrantedOpLock     filestate.OpLockType
	OpLockNotAvailable bool
	released          bool
}

// Released reports whether Release has already been called on this token.
func (t *Token) Released() bool { return t.released }

// Grant applies the §4.7 grant policy to s in place and returns the token
// the caller should hand back on close. s must already be under the
// partition map's per-key lock.
func Grant(s *filestate.State, req Request) (*Token, error) {
	if req.AttributesOnly {
		return &Token{Kind: TokenAttributesOnly, Path: req.Path}, nil
	}

	if s.OpenCount == 0 {
		s.SharedAccess = req.SharedAccess
		s.ProcessID = req.ProcessID
		s.PrimaryOwner = req.Node

		granted := filestate.OpLockNone
		oplockNotAvailable := false
		if wantsOpLock(req.WantOpLock) && !s.IsDirectory() {
			s.OpLock = &filestate.RemoteOpLockRef{
				OwnerNode: req.Node,
				Type:      req.WantOpLock,
				Path:      req.Path,
			}
			granted = req.WantOpLock
		} else if wantsOpLock(req.WantOpLock) {
			oplockNotAvailable = true
		}

		s.OpenCount = 1
		return &Token{Kind: TokenGranted, Path: req.Path, GrantedOpLock: granted, OpLockNotAvailable: oplockNotAvailable}, nil
	}

	if req.Action == OpenActionCreate {
		return nil, errs.NewFileExists(req.Path)
	}

	if sameOpener(s, req) {
		s.OpenCount++
		return &Token{Kind: TokenGranted, Path: req.Path, OpLockNotAvailable: true}, nil
	}

	if reason, ok := checkSharingMode(s.SharedAccess, req.Access, req.SharedAccess); !ok {
		return nil, errs.NewSharingViolation(req.Path, reason)
	}

	// Oplocks are never granted while any other opener holds the file open.
	s.OpenCount++
	return &Token{Kind: TokenGranted, Path: req.Path, OpLockNotAvailable: true}, nil
}

func wantsOpLock(t filestate.OpLockType) bool {
	return t == filestate.OpLockExclusive || t == filestate.OpLockBatch || t == filestate.OpLockLevelII
}

func sameOpener(s *filestate.State, req Request) bool {
	return s.PrimaryOwner == req.Node && s.ProcessID == req.ProcessID
}

// checkSharingMode implements the §4.7 intersection table. S is the current
// shared_access, R is the requester's own access mode, Q is the requester's
// offered shared_access.
func checkSharingMode(s, r, q filestate.SharedAccess) (errs.Reason, bool) {
	readOnly := r == filestate.ShareRead
	writeOnly := r == filestate.ShareWrite
	readWrite := r.Has(filestate.ShareRead) && r.Has(filestate.ShareWrite)

	if readOnly && s.Has(filestate.ShareRead) {
		return errs.ReasonNone, true
	}
	if writeOnly && s.Has(filestate.ShareWrite) {
		return errs.ReasonNone, true
	}
	if s == filestate.ShareNone {
		return errs.ReasonExclusive, false
	}
	if s.Intersect(q) != q {
		return errs.ReasonSharingMismatch, false
	}
	if q == filestate.ShareNone {
		return errs.ReasonRequesterExclusive, false
	}
	if readWrite && s.Has(filestate.ShareWrite) {
		// Allowed, but the caller must not also grant an oplock for this open.
		return errs.ReasonNone, true
	}
	if (writeOnly || readWrite) && !s.Has(filestate.ShareWrite) {
		return errs.ReasonWriteDisallowed, false
	}
	return errs.ReasonSharingMismatch, false
}

// ReleaseResult tells the caller what cleanup to perform outside the lock:
// the remaining open count and whether the local oplock handle (C6) should
// be dropped. Whether a break was in progress is not reported here; the
// caller reads that from its own C6 entry.
type ReleaseResult struct {
	NewOpenCount     int
	ClearLocalOpLock bool
}

// Release applies the §4.7 release policy to s in place.
func Release(s *filestate.State, tok *Token) ReleaseResult {
	if tok.released {
		return ReleaseResult{NewOpenCount: s.OpenCount}
	}
	tok.released = true

	if tok.Kind == TokenAttributesOnly {
		return ReleaseResult{NewOpenCount: s.OpenCount}
	}

	if s.OpenCount > 0 {
		s.OpenCount--
	}

	clearOpLock := false
	if s.OpenCount == 0 || tok.GrantedOpLock != filestate.OpLockNone {
		clearOpLock = true
	}
	if s.OpenCount == 0 {
		s.ResetForClose()
	}

	return ReleaseResult{NewOpenCount: s.OpenCount, ClearLocalOpLock: clearOpLock}
}
