// Package commands implements the clusterstated CLI: config loading,
// wiring, and the serve subcommand that runs a cluster node.
package commands

import (
	"sync"
	"time"

	"github.com/dittofs/clusterstate/internal/logger"
	"github.com/dittofs/clusterstate/pkg/pernode"
)

// standaloneHost satisfies statecache's three collaborator interfaces
// (OpLockManager, NotifyChangeHandler, ThreadPool) when clusterstated runs
// without a real SMB front-end attached — e.g. for cluster-only testing or
// as the seam a protocol adapter process would otherwise fill. It never
// holds a live session, so RequestBreak on its handles always succeeds
// immediately: there is no client to ask.
type standaloneHost struct {
	mu     sync.Mutex
	timers map[string]*time.Timer
}

func newStandaloneHost() *standaloneHost {
	return &standaloneHost{timers: make(map[string]*time.Timer)}
}

type noopOpLockHandle struct{ path string }

func (h *noopOpLockHandle) RequestBreak() error {
	logger.Debug("standalone host: oplock break requested with no attached session", "path", h.path)
	return nil
}

func (h *standaloneHost) AllocateLocalHandle(path string, _ any) pernode.LocalOpLockHandle {
	return &noopOpLockHandle{path: path}
}

func (h *standaloneHost) ScheduleBreakTimeout(path string, after time.Duration, onTimeout func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if t, ok := h.timers[path]; ok {
		t.Stop()
	}
	h.timers[path] = time.AfterFunc(after, onTimeout)
}

func (h *standaloneHost) CancelBreakTimeout(path string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if t, ok := h.timers[path]; ok {
		t.Stop()
		delete(h.timers, path)
	}
}

func (h *standaloneHost) OnFileAdded(path string) {
	logger.Debug("notify: file added", "path", path)
}

func (h *standaloneHost) OnFileRemoved(path string) {
	logger.Debug("notify: file removed", "path", path)
}

func (h *standaloneHost) OnFileRenamed(oldPath, newPath string, isFolder bool) {
	logger.Debug("notify: file renamed", "old_path", oldPath, "new_path", newPath, "is_folder", isFolder)
}

// Reprocess would normally re-submit a deferred SMB request to the
// protocol adapter's worker pool once its oplock break clears. With no
// adapter attached there is nothing to resubmit to; this only logs.
func (h *standaloneHost) Reprocess(req pernode.DeferredRequest, err error) {
	logger.Debug("reprocess deferred request", "lease_deadline", req.LeaseDeadline, "error", err)
}
