package filestate

import "sync"

// UpdateMask identifies which low-priority fields a queued update touches.
// Size/alloc/timestamp/retention/status changes made within one request are
// coalesced into a single FileStateUpdate broadcast instead of one per
// field (§4.1, §4.4).
type UpdateMask uint8

const (
	MaskSize UpdateMask = 1 << iota
	MaskAlloc
	MaskModifyTime
	MaskChangeTime
	MaskRetention
	MaskStatus
)

// PendingUpdate accumulates the coalesced low-priority field values for one
// path across the lifetime of a single request.
type PendingUpdate struct {
	Path            string
	Mask            UpdateMask
	FileSize        uint64
	AllocSize       uint64
	ModifyTime      int64 // unix nano, avoids importing time into the mask math
	ChangeTime      int64
	RetentionExpiry int64
	Status          FileStatus
}

// PostProcessingQueue batches low-priority FileState mutations so that a
// request touching size, timestamps and alloc size in sequence produces one
// broadcast rather than several. It is passed explicitly into every mutator
// that needs it rather than held as a package-level singleton, so callers
// control its lifetime and scope (one per request, or one per node).
type PostProcessingQueue struct {
	mu      sync.Mutex
	pending map[string]*PendingUpdate
}

// NewPostProcessingQueue returns an empty queue.
func NewPostProcessingQueue() *PostProcessingQueue {
	return &PostProcessingQueue{pending: make(map[string]*PendingUpdate)}
}

// QueueSize records a size update against path, merging with any update
// already queued for it in this batch.
func (q *PostProcessingQueue) QueueSize(path string, size uint64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	u := q.entry(path)
	u.Mask |= MaskSize
	u.FileSize = size
}

// QueueAlloc records an alloc-size update against path.
func (q *PostProcessingQueue) QueueAlloc(path string, alloc uint64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	u := q.entry(path)
	u.Mask |= MaskAlloc
	u.AllocSize = alloc
}

// QueueTimestamps records modify/change-time updates against path.
func (q *PostProcessingQueue) QueueTimestamps(path string, modifyUnixNano, changeUnixNano int64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	u := q.entry(path)
	u.Mask |= MaskModifyTime | MaskChangeTime
	u.ModifyTime = modifyUnixNano
	u.ChangeTime = changeUnixNano
}

// QueueRetention records a retention-expiry update against path.
func (q *PostProcessingQueue) QueueRetention(path string, expiryUnixNano int64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	u := q.entry(path)
	u.Mask |= MaskRetention
	u.RetentionExpiry = expiryUnixNano
}

// QueueStatus records a file_status update against path.
func (q *PostProcessingQueue) QueueStatus(path string, status FileStatus) {
	q.mu.Lock()
	defer q.mu.Unlock()
	u := q.entry(path)
	u.Mask |= MaskStatus
	u.Status = status
}

func (q *PostProcessingQueue) entry(path string) *PendingUpdate {
	u, ok := q.pending[path]
	if !ok {
		u = &PendingUpdate{Path: path}
		q.pending[path] = u
	}
	return u
}

// Drain removes and returns every pending update accumulated so far. The
// caller is expected to broadcast one FileStateUpdate message per returned
// entry and then discard the queue (or reuse it for the next batch).
func (q *PostProcessingQueue) Drain() []*PendingUpdate {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return nil
	}
	out := make([]*PendingUpdate, 0, len(q.pending))
	for _, u := range q.pending {
		out = append(out, u)
	}
	q.pending = make(map[string]*PendingUpdate)
	return out
}
