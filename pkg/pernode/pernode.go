// Package pernode implements C6: per-node state that never leaves this
// process. It holds the authoritative local oplock handle (built from a
// live SMB session and therefore unserializable), each path's
// deferred-request queue, and an optional local cache of file_id/attributes
// for back-ends that want one even while the authoritative FileState lives
// on another node.
package pernode

import (
	"sync"
	"time"
)

// DeferredRequest is a queued SMB request waiting on an oplock break,
// per §4.8. Session and PendingPacket are opaque to the cache — they are
// handed back to the external thread pool exactly as received.
type DeferredRequest struct {
	Session        any
	PendingPacket  any
	LeaseDeadline  time.Time
}

// LocalOpLockHandle is the live, unserializable oplock handle for a path:
// the thing that actually holds SMB session references and can request a
// break against the client. The cache never constructs one itself — the
// host (an external collaborator, the SMB adapter) builds it from an open
// session and hands it in via Entry.SetHandle.
type LocalOpLockHandle interface {
	// RequestBreak asks the client to downgrade or relinquish its oplock.
	// Returns immediately; completion is signalled out-of-band by the host
	// calling Entry.CompleteBreak.
	RequestBreak() error
}

// Entry is one path's per-node bookkeeping.
type Entry struct {
	mu        sync.Mutex
	handle    LocalOpLockHandle
	deferred  []DeferredRequest
	fileID    string
	attrs     map[string]any
	breaking  bool
}

func newEntry() *Entry {
	return &Entry{attrs: make(map[string]any)}
}

// SetHandle installs the local oplock handle for this path.
func (e *Entry) SetHandle(h LocalOpLockHandle) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handle = h
}

// Handle returns the current local oplock handle, or nil.
func (e *Entry) Handle() LocalOpLockHandle {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.handle
}

// DropHandle clears the local oplock handle, e.g. once ClearOpLock lands.
func (e *Entry) DropHandle() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handle = nil
	e.breaking = false
}

// RequestBreak marks the entry as breaking and invokes the handle's
// RequestBreak. A no-op (returns false) if there's no local handle.
func (e *Entry) RequestBreak() (bool, error) {
	e.mu.Lock()
	h := e.handle
	if h == nil {
		e.mu.Unlock()
		return false, nil
	}
	e.breaking = true
	e.mu.Unlock()
	return true, h.RequestBreak()
}

// Breaking reports whether a break is currently in progress for this entry.
func (e *Entry) Breaking() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.breaking
}

// Defer appends a request to the deferred queue.
func (e *Entry) Defer(req DeferredRequest) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.deferred = append(e.deferred, req)
}

// DrainDeferred empties and returns the deferred queue, clearing the
// breaking flag. Called on OpLockBreakNotify/OplockTypeChange/timeout.
func (e *Entry) DrainDeferred() []DeferredRequest {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := e.deferred
	e.deferred = nil
	e.breaking = false
	return out
}

// SetFileID/FileID/SetAttribute/ClearAttributes back a local cache of
// back-end metadata.
func (e *Entry) SetFileID(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fileID = id
}

func (e *Entry) FileID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.fileID
}

func (e *Entry) SetAttribute(name string, value any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.attrs[name] = value
}

func (e *Entry) ClearAttributes() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.attrs = make(map[string]any)
}

// Table is the process-wide keyed collection of per-node Entry objects,
// indexed by the same normalized path C1/C2 use.
type Table struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

// NewTable constructs an empty table.
func NewTable() *Table {
	return &Table{entries: make(map[string]*Entry)}
}

// GetOrCreate returns the Entry for path, creating it if absent.
func (t *Table) GetOrCreate(path string) *Entry {
	t.mu.RLock()
	e, ok := t.entries[path]
	t.mu.RUnlock()
	if ok {
		return e
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.entries[path]; ok {
		return e
	}
	e = newEntry()
	t.entries[path] = e
	return e
}

// Get returns the Entry for path, or nil if none exists.
func (t *Table) Get(path string) *Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.entries[path]
}

// Drop removes path's entry entirely.
func (t *Table) Drop(path string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, path)
}

// Rename moves oldPath's entry to newPath, per §4.10 step 3.
func (t *Table) Rename(oldPath, newPath string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[oldPath]
	if !ok {
		return
	}
	delete(t.entries, oldPath)
	e.ClearAttributes()
	t.entries[newPath] = e
}

// Keys returns a snapshot of every path with a live entry, used by the
// folder-rename subtree sweep.
func (t *Table) Keys() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, 0, len(t.entries))
	for k := range t.entries {
		out = append(out, k)
	}
	return out
}
