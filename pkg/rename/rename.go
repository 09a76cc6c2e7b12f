// Package rename implements C10: the rename orchestrator that rekeys a
// path across the partition map (C2), the near-cache (C5), and per-node
// local state (C6), then fans the change out to sibling nodes over the
// cluster topic.
package rename

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dittofs/clusterstate/internal/logger"
	"github.com/dittofs/clusterstate/pkg/clustertask"
	"github.com/dittofs/clusterstate/pkg/clustertopic"
	"github.com/dittofs/clusterstate/pkg/filestate"
	"github.com/dittofs/clusterstate/pkg/nearcache"
	"github.com/dittofs/clusterstate/pkg/partition"
	"github.com/dittofs/clusterstate/pkg/pernode"
)

// Engine drives rename(old_path, new_path, is_folder) per §4.10.
type Engine struct {
	selfNode string
	runtime  *clustertask.Runtime
	shard    *partition.Map
	near     *nearcache.Cache
	perNode  *pernode.Table
	topic    clustertopic.Topic
	caseFold bool
}

// New constructs a rename engine wired to this node's collaborators.
func New(selfNode string, runtime *clustertask.Runtime, shard *partition.Map, near *nearcache.Cache, perNode *pernode.Table, topic clustertopic.Topic, caseSensitivePaths bool) *Engine {
	return &Engine{
		selfNode: selfNode,
		runtime:  runtime,
		shard:    shard,
		near:     near,
		perNode:  perNode,
		topic:    topic,
		caseFold: !caseSensitivePaths,
	}
}

// Rename performs steps 1-4 of §4.10 on the initiating node: normalize,
// dispatch the Rename task to old_path's owner, rewrite C6/C5 locally on
// success, and publish RenameState for siblings to repeat step 3 (and, for
// folders, the subtree sweep) on their own shards.
func (e *Engine) Rename(ctx context.Context, oldPath, newPath string, isFolder bool) error {
	oldKey := filestate.Normalize(oldPath, !e.caseFold)
	newKey := filestate.Normalize(newPath, !e.caseFold)

	task := &clustertask.RenameTask{OldPath: oldKey, NewPath: newKey, IsFolder: isFolder}
	res, err := e.runtime.Dispatch(ctx, task)
	if err != nil {
		return fmt.Errorf("dispatching rename task: %w", err)
	}
	if ok, _ := res.Value.(bool); !ok {
		return fmt.Errorf("rename of %q: no such state", oldKey)
	}

	e.rewriteLocal(oldKey, newKey, isFolder)

	if e.topic != nil {
		payload, err := json.Marshal(clustertopic.RenameStatePayload{
			OldPath: oldKey, NewPath: newKey, IsFolder: isFolder,
		})
		if err != nil {
			return fmt.Errorf("marshaling rename payload: %w", err)
		}
		msg := clustertopic.Message{
			Target:  clustertopic.Broadcast,
			From:    e.selfNode,
			Type:    clustertopic.RenameState,
			Payload: payload,
		}
		if err := e.topic.Publish(ctx, msg); err != nil {
			logger.WarnCtx(ctx, "failed to publish rename notification", logger.Err(err), logger.Path(oldKey))
		}
	}

	return nil
}

// OnRenameState is the sibling-side handler for a received RenameState
// message: it repeats the C6/C5 rewrite and, for folders, additionally
// sweeps every locally-owned C2 key under the old prefix.
func (e *Engine) OnRenameState(ctx context.Context, msg clustertopic.Message) {
	if msg.From == e.selfNode {
		return
	}
	var payload clustertopic.RenameStatePayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		logger.WarnCtx(ctx, "malformed RenameState payload", logger.Err(err))
		return
	}

	e.rewriteLocal(payload.OldPath, payload.NewPath, payload.IsFolder)

	if payload.IsFolder {
		e.sweepOwnedSubtree(payload.OldPath, payload.NewPath)
	}
}

// rewriteLocal rewrites C6 and C5 for a single key. It does not touch C2 —
// the owner of the key already rewrote it via the Rename task's own
// map.Remove/map.Put, and on sibling nodes this single key was never
// locally owned in the first place (only a folder's other descendants
// might be, handled separately by sweepOwnedSubtree).
func (e *Engine) rewriteLocal(oldKey, newKey string, isFolder bool) {
	if e.perNode != nil {
		e.perNode.Rename(oldKey, newKey)
	}
	if e.near != nil {
		e.near.RenameRewrite(oldKey, newKey, isFolder)
	}
}

// sweepOwnedSubtree rekeys every locally-owned C2 entry whose path starts
// with oldPrefix+sep to newPrefix+sep+tail, per §4.10 step 5's "sibling
// nodes only rewrite the portions of C2 they own".
func (e *Engine) sweepOwnedSubtree(oldPrefix, newPrefix string) {
	for _, key := range e.shard.LocalKeySet() {
		if key == oldPrefix {
			continue // already handled by the owning node's Rename task
		}
		if !filestate.HasPrefixDir(key, oldPrefix) {
			continue
		}
		newKey := filestate.RewriteRenamedKey(key, oldPrefix, newPrefix)
		s := e.shard.Remove(key)
		if s == nil {
			continue
		}
		s.Path = newKey
		s.Attributes = make(map[string]any)
		if s.IsDirectory() {
			s.FileStatus = filestate.DirectoryExists
		} else {
			s.FileStatus = filestate.FileExists
		}
		e.shard.Put(newKey, s)

		if e.perNode != nil {
			e.perNode.Rename(key, newKey)
		}
		if e.near != nil {
			e.near.RenameRewrite(key, newKey, false)
		}
	}
}
