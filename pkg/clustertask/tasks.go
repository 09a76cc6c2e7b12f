package clustertask

import (
	"github.com/dittofs/clusterstate/pkg/access"
	"github.com/dittofs/clusterstate/pkg/bytelock"
	"github.com/dittofs/clusterstate/pkg/errs"
	"github.com/dittofs/clusterstate/pkg/filestate"
	"github.com/dittofs/clusterstate/pkg/oplock"
	"github.com/dittofs/clusterstate/pkg/partition"
)

// creator is implemented by tasks that operate on a path with find-or-create
// semantics (GrantAccess); the runtime constructs a fresh filestate.State
// when the key is missing instead of executing against nil.
type creator interface{ CreateIfMissing() bool }

// ---------------------------------------------------------------------------
// FindState / FindOrCreateState / RemoveState
// ---------------------------------------------------------------------------

type FindStateTask struct {
	Path string `json:"path"`
}

func (t *FindStateTask) Kind() string       { return "FindState" }
func (t *FindStateTask) RoutingKey() string { return t.Path }
func (t *FindStateTask) Options() Options   { return Options{Lock: true, NoUpdate: true} }

func (t *FindStateTask) Execute(_ *partition.Map, s *filestate.State) (any, error) {
	return s, nil
}

type FindOrCreateStateTask struct {
	Path          string               `json:"path"`
	InitialStatus filestate.FileStatus `json:"initial_status"`
}

func (t *FindOrCreateStateTask) Kind() string         { return "FindOrCreateState" }
func (t *FindOrCreateStateTask) RoutingKey() string   { return t.Path }
func (t *FindOrCreateStateTask) Options() Options     { return Options{Lock: true} }
func (t *FindOrCreateStateTask) CreateIfMissing() bool { return true }

func (t *FindOrCreateStateTask) Execute(_ *partition.Map, s *filestate.State) (any, error) {
	if s.FileStatus == filestate.Unknown {
		s.FileStatus = t.InitialStatus
	}
	return s, nil
}

type RemoveStateTask struct {
	Path string `json:"path"`
}

func (t *RemoveStateTask) Kind() string       { return "RemoveState" }
func (t *RemoveStateTask) RoutingKey() string { return t.Path }
func (t *RemoveStateTask) Options() Options   { return Options{Lock: true, NoUpdate: true} }

func (t *RemoveStateTask) Execute(m *partition.Map, s *filestate.State) (any, error) {
	if s == nil {
		return nil, nil
	}
	m.Remove(t.Path)
	return s, nil
}

// ---------------------------------------------------------------------------
// GrantAccess
// ---------------------------------------------------------------------------

type GrantAccessTask struct {
	Path            string                 `json:"path"`
	Node            string                 `json:"node"`
	ProcessID       string                 `json:"process_id"`
	ImpersonationID string                 `json:"impersonation_id"`
	SharedAccess    filestate.SharedAccess `json:"shared_access"`
	Access          filestate.SharedAccess `json:"access"`
	AttributesOnly  bool                   `json:"attributes_only"`
	Action          access.OpenAction      `json:"action"`
	WantOpLock      filestate.OpLockType   `json:"want_oplock"`
}

func (t *GrantAccessTask) Kind() string        { return "GrantAccess" }
func (t *GrantAccessTask) RoutingKey() string  { return t.Path }
func (t *GrantAccessTask) Options() Options    { return Options{Lock: true} }
func (t *GrantAccessTask) CreateIfMissing() bool { return true }

func (t *GrantAccessTask) Execute(_ *partition.Map, s *filestate.State) (any, error) {
	return access.Grant(s, access.Request{
		Path: t.Path, Node: t.Node, ProcessID: t.ProcessID, ImpersonationID: t.ImpersonationID,
		SharedAccess: t.SharedAccess, Access: t.Access, AttributesOnly: t.AttributesOnly,
		Action: t.Action, WantOpLock: t.WantOpLock,
	})
}

// ---------------------------------------------------------------------------
// ReleaseAccess
// ---------------------------------------------------------------------------

type ReleaseAccessTask struct {
	Path  string       `json:"path"`
	Token *access.Token `json:"token"`
}

func (t *ReleaseAccessTask) Kind() string       { return "ReleaseAccess" }
func (t *ReleaseAccessTask) RoutingKey() string { return t.Path }
func (t *ReleaseAccessTask) Options() Options   { return Options{Lock: true} }

func (t *ReleaseAccessTask) Execute(_ *partition.Map, s *filestate.State) (any, error) {
	if s == nil {
		return access.ReleaseResult{}, nil
	}
	return access.Release(s, t.Token), nil
}

// ---------------------------------------------------------------------------
// AddOpLock
// ---------------------------------------------------------------------------

type AddOpLockTask struct {
	Path  string               `json:"path"`
	Node  string               `json:"node"`
	Type  filestate.OpLockType `json:"type"`
}

func (t *AddOpLockTask) Kind() string       { return "AddOpLock" }
func (t *AddOpLockTask) RoutingKey() string { return t.Path }
func (t *AddOpLockTask) Options() Options   { return Options{Lock: true} }

func (t *AddOpLockTask) Execute(_ *partition.Map, s *filestate.State) (any, error) {
	if s == nil {
		return false, errs.New(errs.AccessDenied, "no such state")
	}
	_, err := oplock.Add(s, t.Path, t.Node, t.Type)
	if err != nil {
		return false, err
	}
	return true, nil
}

// ---------------------------------------------------------------------------
// ClearOpLock
// ---------------------------------------------------------------------------

type ClearOpLockTask struct {
	Path string `json:"path"`
}

func (t *ClearOpLockTask) Kind() string       { return "ClearOpLock" }
func (t *ClearOpLockTask) RoutingKey() string { return t.Path }
func (t *ClearOpLockTask) Options() Options   { return Options{Lock: true} }

func (t *ClearOpLockTask) Execute(_ *partition.Map, s *filestate.State) (any, error) {
	if s == nil {
		return nil, nil
	}
	oplock.Clear(s)
	return nil, nil
}

// ---------------------------------------------------------------------------
// ChangeOpLockType
// ---------------------------------------------------------------------------

type ChangeOpLockTypeTask struct {
	Path    string               `json:"path"`
	NewType filestate.OpLockType `json:"new_type"`
}

func (t *ChangeOpLockTypeTask) Kind() string       { return "ChangeOpLockType" }
func (t *ChangeOpLockTypeTask) RoutingKey() string { return t.Path }
func (t *ChangeOpLockTypeTask) Options() Options   { return Options{Lock: true} }

func (t *ChangeOpLockTypeTask) Execute(_ *partition.Map, s *filestate.State) (any, error) {
	if s == nil {
		return filestate.OpLockInvalid, nil
	}
	return oplock.ChangeType(s, t.NewType), nil
}

// ---------------------------------------------------------------------------
// RemoveOpLockOwner
// ---------------------------------------------------------------------------

type RemoveOpLockOwnerTask struct {
	Path  string `json:"path"`
	Owner string `json:"owner"`
}

func (t *RemoveOpLockOwnerTask) Kind() string       { return "RemoveOpLockOwner" }
func (t *RemoveOpLockOwnerTask) RoutingKey() string { return t.Path }
func (t *RemoveOpLockOwnerTask) Options() Options   { return Options{Lock: true} }

func (t *RemoveOpLockOwnerTask) Execute(_ *partition.Map, s *filestate.State) (any, error) {
	if s == nil {
		return nil, nil
	}
	return oplock.RemoveOwner(s, t.Owner), nil
}

// ---------------------------------------------------------------------------
// AddByteLock / RemoveByteLock / TestByteLock / CheckByteAccess
// ---------------------------------------------------------------------------

type AddByteLockTask struct {
	Path string                     `json:"path"`
	Lock filestate.ByteRangeLock    `json:"lock"`
}

func (t *AddByteLockTask) Kind() string       { return "AddByteLock" }
func (t *AddByteLockTask) RoutingKey() string { return t.Path }
func (t *AddByteLockTask) Options() Options   { return Options{Lock: true} }

func (t *AddByteLockTask) Execute(_ *partition.Map, s *filestate.State) (any, error) {
	if err := bytelock.Add(s, t.Lock); err != nil {
		return s, err
	}
	return s, nil
}

type RemoveByteLockTask struct {
	Path      string `json:"path"`
	Offset    uint64 `json:"offset"`
	Length    uint64 `json:"length"`
	OwnerNode string `json:"owner_node"`
	OwnerID   string `json:"owner_id"`
}

func (t *RemoveByteLockTask) Kind() string       { return "RemoveByteLock" }
func (t *RemoveByteLockTask) RoutingKey() string { return t.Path }
func (t *RemoveByteLockTask) Options() Options   { return Options{Lock: true} }

func (t *RemoveByteLockTask) Execute(_ *partition.Map, s *filestate.State) (any, error) {
	if err := bytelock.Remove(s, t.Offset, t.Length, t.OwnerNode, t.OwnerID); err != nil {
		return s, err
	}
	return s, nil
}

type TestByteLockTask struct {
	Path   string `json:"path"`
	Offset uint64 `json:"offset"`
	Length uint64 `json:"length"`
}

func (t *TestByteLockTask) Kind() string       { return "TestByteLock" }
func (t *TestByteLockTask) RoutingKey() string { return t.Path }
func (t *TestByteLockTask) Options() Options   { return Options{Lock: true, NoUpdate: true} }

func (t *TestByteLockTask) Execute(_ *partition.Map, s *filestate.State) (any, error) {
	if s == nil {
		return nil, nil
	}
	return bytelock.Test(s, t.Offset, t.Length), nil
}

type CheckByteAccessTask struct {
	Path      string `json:"path"`
	Offset    uint64 `json:"offset"`
	Length    uint64 `json:"length"`
	OwnerNode string `json:"owner_node"`
	OwnerID   string `json:"owner_id"`
	Write     bool   `json:"write"`
}

func (t *CheckByteAccessTask) Kind() string       { return "CheckByteAccess" }
func (t *CheckByteAccessTask) RoutingKey() string { return t.Path }
func (t *CheckByteAccessTask) Options() Options   { return Options{Lock: true, NoUpdate: true} }

func (t *CheckByteAccessTask) Execute(_ *partition.Map, s *filestate.State) (any, error) {
	if s == nil {
		return true, nil
	}
	return bytelock.CheckAccess(s, t.Offset, t.Length, t.OwnerNode, t.OwnerID, t.Write), nil
}

// ---------------------------------------------------------------------------
// UpdateFileStatus
// ---------------------------------------------------------------------------

type UpdateFileStatusTask struct {
	Path    string                  `json:"path"`
	Mask    filestate.UpdateMask    `json:"mask"`
	Update  filestate.PendingUpdate `json:"update"`
}

func (t *UpdateFileStatusTask) Kind() string       { return "UpdateFileStatus" }
func (t *UpdateFileStatusTask) RoutingKey() string { return t.Path }
func (t *UpdateFileStatusTask) Options() Options   { return Options{Lock: true} }

func (t *UpdateFileStatusTask) Execute(_ *partition.Map, s *filestate.State) (any, error) {
	if s == nil {
		return false, nil
	}
	changed := false
	if t.Mask&filestate.MaskSize != 0 && s.FileSize != t.Update.FileSize {
		s.FileSize = t.Update.FileSize
		changed = true
	}
	if t.Mask&filestate.MaskAlloc != 0 && s.AllocSize != t.Update.AllocSize {
		s.AllocSize = t.Update.AllocSize
		changed = true
	}
	if t.Mask&filestate.MaskStatus != 0 && s.FileStatus != t.Update.Status {
		s.FileStatus = t.Update.Status
		changed = true
	}
	return changed, nil
}

// ---------------------------------------------------------------------------
// FileDataUpdate
// ---------------------------------------------------------------------------

type FileDataUpdateTask struct {
	Path      string `json:"path"`
	Node      string `json:"node"`
	Start     bool   `json:"start"` // true = start_data_update, false = complete_data_update
}

func (t *FileDataUpdateTask) Kind() string       { return "FileDataUpdate" }
func (t *FileDataUpdateTask) RoutingKey() string { return t.Path }
func (t *FileDataUpdateTask) Options() Options   { return Options{Lock: true} }

func (t *FileDataUpdateTask) Execute(_ *partition.Map, s *filestate.State) (any, error) {
	if s == nil {
		return false, nil
	}
	if t.Start {
		if s.DataUpdateNode != "" {
			return false, nil
		}
		s.DataUpdateNode = t.Node
		return true, nil
	}
	if s.DataUpdateNode != t.Node {
		return false, nil
	}
	s.DataUpdateNode = ""
	return true, nil
}

// ---------------------------------------------------------------------------
// Rename
// ---------------------------------------------------------------------------

// RenameTask removes the record at OldPath and reinserts it under NewPath,
// per §4.10 step 2. It carries NoUpdate=true because it performs its own
// remove/put against the map directly instead of relying on the runtime's
// generic write-back (which would try to re-store the old key).
type RenameTask struct {
	OldPath  string `json:"old_path"`
	NewPath  string `json:"new_path"`
	IsFolder bool   `json:"is_folder"`
}

func (t *RenameTask) Kind() string       { return "Rename" }
func (t *RenameTask) RoutingKey() string { return t.OldPath }
func (t *RenameTask) Options() Options   { return Options{Lock: true, NoUpdate: true} }

func (t *RenameTask) Execute(m *partition.Map, s *filestate.State) (any, error) {
	if s == nil {
		return false, nil
	}
	m.Remove(t.OldPath)
	s.Path = t.NewPath
	s.Attributes = make(map[string]any)
	if s.IsDirectory() {
		s.FileStatus = filestate.DirectoryExists
	} else {
		s.FileStatus = filestate.FileExists
	}
	m.Put(t.NewPath, s)
	return true, nil
}
