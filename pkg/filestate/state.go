// Package filestate defines the FileState record (one per normalized path)
// and the low-level, non-atomic mutators the remote-task closures in
// pkg/clustertask apply to it. Atomicity is provided entirely by the
// partition map's per-key lock (pkg/partition); nothing in this package
// takes a lock of its own.
package filestate

import "time"

// FileStatus is the coarse existence state of the back-end path.
type FileStatus int

const (
	Unknown FileStatus = iota
	NotExist
	FileExists
	DirectoryExists
)

func (s FileStatus) String() string {
	switch s {
	case NotExist:
		return "NotExist"
	case FileExists:
		return "FileExists"
	case DirectoryExists:
		return "DirectoryExists"
	default:
		return "Unknown"
	}
}

// ChangeReason records why file_status last transitioned.
type ChangeReason int

const (
	ReasonNone ChangeReason = iota
	ReasonFileCreated
	ReasonFolderCreated
	ReasonFileDeleted
	ReasonFolderDeleted
)

// DataStatus tracks the lifecycle of cached file content relative to the
// origin store. The core cache never moves bytes itself; this is a marker
// field consumed by the back-end adapter (an external collaborator).
type DataStatus int

const (
	DataUnknown DataStatus = iota
	DataLoadWait
	DataLoading
	DataAvailable
	DataUpdated
	DataSaveWait
	DataSaving
	DataSaved
	DataDeleted
	DataRenamed
	DataDeleteOnClose
)

// SharedAccess is the SMB sharing-mode bitset.
type SharedAccess uint8

const (
	ShareNone SharedAccess = 0
	ShareRead SharedAccess = 1 << iota
	ShareWrite
	ShareDelete
)

// Has reports whether all bits in mask are set.
func (s SharedAccess) Has(mask SharedAccess) bool { return s&mask == mask }

// Intersect returns the bitwise AND of s and other.
func (s SharedAccess) Intersect(other SharedAccess) SharedAccess { return s & other }

// UnknownFileID is the sentinel value for an unresolved back-end identifier.
const UnknownFileID = ""

// OpLockType enumerates the oplock grant types, including the transitional
// Breaking states the state machine in pkg/oplock steps through.
type OpLockType int

const (
	OpLockNone OpLockType = iota
	OpLockLevelII
	OpLockExclusive
	OpLockBatch
	OpLockBreakingToLevelII
	OpLockBreakingToNone
	OpLockInvalid OpLockType = -1
)

func (t OpLockType) String() string {
	switch t {
	case OpLockLevelII:
		return "LevelII"
	case OpLockExclusive:
		return "Exclusive"
	case OpLockBatch:
		return "Batch"
	case OpLockBreakingToLevelII:
		return "Breaking->LevelII"
	case OpLockBreakingToNone:
		return "Breaking->None"
	case OpLockInvalid:
		return "Invalid"
	default:
		return "None"
	}
}

// RemoteOpLockRef is the cluster-visible record of an oplock grant. The
// local handle that backs it (live SMB session references, deferred-queue)
// never leaves C6 (pkg/pernode) and is not part of this struct.
type RemoteOpLockRef struct {
	OwnerNode    string
	Type         OpLockType
	Path         string
	SharedOwners []string // only meaningful when Type == OpLockLevelII
}

// ByteRangeLock is one entry of a file's ordered lock list.
type ByteRangeLock struct {
	Offset    uint64
	Length    uint64
	OwnerNode string
	OwnerID   string // lock owner handle, opaque to the cache
}

// Overlaps reports whether l and other cover any common byte.
func (l ByteRangeLock) Overlaps(other ByteRangeLock) bool {
	lEnd := l.Offset + l.Length
	oEnd := other.Offset + other.Length
	if l.Length == 0 || other.Length == 0 {
		return false
	}
	return l.Offset < oEnd && other.Offset < lEnd
}

// SameOwner reports whether l and other are held by the same (node, id) pair.
func (l ByteRangeLock) SameOwner(other ByteRangeLock) bool {
	return l.OwnerNode == other.OwnerNode && l.OwnerID == other.OwnerID
}

// NearCacheMeta holds the bookkeeping fields that are only meaningful on a
// near-cache clone (C5). On the authoritative C2 copy the task runtime sets
// Valid on every write-back and nothing reads these fields.
type NearCacheMeta struct {
	NearAddedAt       time.Time
	NearLastAccess    time.Time
	NearRemoteUpdateAt time.Time
	NearHitCount      uint64
	Valid             bool
}

// State is the FileState record: one per normalized path, owned by exactly
// one partition-map slot at a time (I5). Near-cache and per-node copies are
// independent clones; mutating a clone never affects the authoritative
// record except through a dispatched task.
type State struct {
	Path         string
	FileStatus   FileStatus
	ChangeReason ChangeReason

	FileID string

	OpenCount    int
	SharedAccess SharedAccess
	PrimaryOwner string // node name of the first opener
	ProcessID    string // opaque; opens from the same process/owner reopen without a share check

	FileSize        uint64
	AllocSize       uint64
	ModifyTime      time.Time
	ChangeTime      time.Time
	RetentionExpiry time.Time

	DataStatus     DataStatus
	DataUpdateNode string // node currently writing cached data back, or ""

	OpLock   *RemoteOpLockRef
	LockList []ByteRangeLock

	Attributes map[string]any

	ExpiryDeadline time.Time // monotonic; zero value means permanent

	NearCacheMeta
}

// PermanentExpiry is the sentinel ExpiryDeadline meaning "never expires".
var PermanentExpiry = time.Time{}

// New constructs a freshly created FileState for path, as produced by
// find_or_create on a cache miss.
func New(path string) *State {
	return &State{
		Path:         path,
		FileStatus:   Unknown,
		SharedAccess: ShareRead | ShareWrite | ShareDelete,
		DataStatus:   DataUnknown,
		Attributes:   make(map[string]any),
	}
}

// Clone returns a deep-enough copy suitable for a near-cache replica: slices
// and maps are copied so mutating the clone can never reach the original.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	clone := *s
	if s.OpLock != nil {
		oplock := *s.OpLock
		oplock.SharedOwners = append([]string(nil), s.OpLock.SharedOwners...)
		clone.OpLock = &oplock
	}
	clone.LockList = append([]ByteRangeLock(nil), s.LockList...)
	clone.Attributes = make(map[string]any, len(s.Attributes))
	for k, v := range s.Attributes {
		clone.Attributes[k] = v
	}
	return &clone
}

// ResetForClose applies invariant I1: once open_count drops to zero the
// owner/process identity and sharing mode reset to the permissive default.
func (s *State) ResetForClose() {
	s.OpenCount = 0
	s.PrimaryOwner = ""
	s.ProcessID = ""
	s.SharedAccess = ShareRead | ShareWrite | ShareDelete
}

// MarkNotExist applies invariant I4: transitioning to NotExist clears
// file_id and attributes.
func (s *State) MarkNotExist(reason ChangeReason) {
	s.FileStatus = NotExist
	s.ChangeReason = reason
	s.FileID = UnknownFileID
	s.Attributes = make(map[string]any)
}

// IsDirectory reports whether the state currently represents a directory.
func (s *State) IsDirectory() bool { return s.FileStatus == DirectoryExists }

// Touch bumps near-cache access bookkeeping; called on every near-cache hit.
func (s *State) Touch(now time.Time) {
	s.NearLastAccess = now
	s.NearHitCount++
}

// MergeNearCacheMeta carries near-cache bookkeeping across when a
// task-returned state replaces an existing near-cache copy (§4.5 "merge on
// update"): the new authoritative fields win, the old metadata survives.
func (s *State) MergeNearCacheMeta(prior NearCacheMeta) {
	s.NearAddedAt = prior.NearAddedAt
	s.NearHitCount = prior.NearHitCount
	s.NearLastAccess = prior.NearLastAccess
	s.Valid = true
}
