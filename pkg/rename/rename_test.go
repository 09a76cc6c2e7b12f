package rename

import (
	"context"
	"testing"

	"github.com/dittofs/clusterstate/pkg/clustertask"
	"github.com/dittofs/clusterstate/pkg/clustertopic"
	"github.com/dittofs/clusterstate/pkg/filestate"
	"github.com/dittofs/clusterstate/pkg/nearcache"
	"github.com/dittofs/clusterstate/pkg/partition"
	"github.com/dittofs/clusterstate/pkg/pernode"
)

type selfResolver struct{ node string }

func (r selfResolver) Owner(string) (string, bool) { return r.node, true }

type recordingTopic struct {
	published []clustertopic.Message
}

func (t *recordingTopic) Publish(_ context.Context, msg clustertopic.Message) error {
	t.published = append(t.published, msg)
	return nil
}
func (t *recordingTopic) Subscribe(clustertopic.Handler) {}
func (t *recordingTopic) Close() error                   { return nil }

func TestRenameRewritesShardNearCacheAndPerNode(t *testing.T) {
	shard := partition.NewMap()
	shard.Put(`C:\FOO.TXT`, filestate.New(`C:\FOO.TXT`))

	near := nearcache.New(nearcache.DefaultTTL)
	near.Admit(filestate.New(`C:\FOO.TXT`))

	perNode := pernode.NewTable()
	perNode.GetOrCreate(`C:\FOO.TXT`).SetFileID("fid-1")

	runtime := clustertask.NewRuntime("node-1", shard, selfResolver{node: "node-1"}, nil)
	topic := &recordingTopic{}

	engine := New("node-1", runtime, shard, near, perNode, topic, false)
	if err := engine.Rename(context.Background(), `C:\FOO.TXT`, `C:\BAR.TXT`, false); err != nil {
		t.Fatalf("Rename: %v", err)
	}

	if shard.Get(`C:\BAR.TXT`) == nil {
		t.Error("expected new key present in shard")
	}
	if shard.Get(`C:\FOO.TXT`) != nil {
		t.Error("expected old key removed from shard")
	}
	if near.Get(`C:\BAR.TXT`) == nil {
		t.Error("expected near-cache rewritten to new key")
	}
	if perNode.Get(`C:\BAR.TXT`) == nil {
		t.Error("expected per-node entry rewritten to new key")
	}
	if perNode.Get(`C:\BAR.TXT`).FileID() != "fid-1" {
		t.Error("expected per-node entry to carry over its file id")
	}

	if len(topic.published) != 1 {
		t.Fatalf("expected exactly one RenameState publish, got %d", len(topic.published))
	}
	if topic.published[0].Type != clustertopic.RenameState {
		t.Errorf("expected RenameState message type, got %v", topic.published[0].Type)
	}
}

func TestOnRenameStateSweepsOwnedFolderSubtree(t *testing.T) {
	shard := partition.NewMap()
	shard.Put(`C:\FOO\A.TXT`, filestate.New(`C:\FOO\A.TXT`))
	shard.Put(`C:\FOO\B.TXT`, filestate.New(`C:\FOO\B.TXT`))
	shard.Put(`C:\OTHER.TXT`, filestate.New(`C:\OTHER.TXT`))

	near := nearcache.New(nearcache.DefaultTTL)
	perNode := pernode.NewTable()

	runtime := clustertask.NewRuntime("node-2", shard, selfResolver{node: "node-2"}, nil)
	engine := New("node-2", runtime, shard, near, perNode, nil, false)

	payload := `{"old_path":"C:\\FOO","new_path":"C:\\BAZ","is_folder":true}`
	engine.OnRenameState(context.Background(), clustertopic.Message{
		From:    "node-1",
		Type:    clustertopic.RenameState,
		Payload: []byte(payload),
	})

	if shard.Get(`C:\BAZ\A.TXT`) == nil {
		t.Error("expected C:\\FOO\\A.TXT rewritten to C:\\BAZ\\A.TXT")
	}
	if shard.Get(`C:\BAZ\B.TXT`) == nil {
		t.Error("expected C:\\FOO\\B.TXT rewritten to C:\\BAZ\\B.TXT")
	}
	if shard.Get(`C:\FOO\A.TXT`) != nil || shard.Get(`C:\FOO\B.TXT`) != nil {
		t.Error("expected old subtree keys removed")
	}
	if shard.Get(`C:\OTHER.TXT`) == nil {
		t.Error("expected unrelated key left untouched")
	}
}

func TestOnRenameStateDropsSelfOriginatedMessages(t *testing.T) {
	shard := partition.NewMap()
	runtime := clustertask.NewRuntime("node-1", shard, selfResolver{node: "node-1"}, nil)
	engine := New("node-1", runtime, shard, nearcache.Disabled(), pernode.NewTable(), nil, false)

	payload := `{"old_path":"C:\\FOO.TXT","new_path":"C:\\BAR.TXT","is_folder":false}`
	engine.OnRenameState(context.Background(), clustertopic.Message{
		From:    "node-1",
		Type:    clustertopic.RenameState,
		Payload: []byte(payload),
	})

	// No assertion needed beyond "does not panic" — self-originated
	// messages are a no-op since this node already applied step 3 itself.
}
