// Package clustertopic implements the cluster-wide pub/sub topic (C4).
// Messages are delivered at-least-once, best-effort ordered per publisher
// (§4.4): every message carries the publishing node as its routing key so
// a Kafka-backed transport's native per-partition ordering is a literal
// match for that guarantee.
package clustertopic

import "context"

// MessageType enumerates the six message kinds from §4.4.
type MessageType string

const (
	OpLockBreakRequest MessageType = "OpLockBreakRequest"
	OpLockBreakNotify  MessageType = "OpLockBreakNotify"
	OplockTypeChange   MessageType = "OplockTypeChange"
	FileStateUpdate    MessageType = "FileStateUpdate"
	RenameState        MessageType = "RenameState"
	DataUpdate         MessageType = "DataUpdate"
)

// Broadcast is the target sentinel meaning "every node" rather than one.
const Broadcast = "*"

// Message is the wire envelope every published event travels in.
type Message struct {
	Target  string      `json:"target"` // node name, or Broadcast
	From    string      `json:"from_node"`
	Type    MessageType `json:"type"`
	Payload []byte      `json:"payload"` // JSON-encoded payload specific to Type
}

// Handler processes a received message. Handlers must return quickly;
// long-running work belongs on the external thread pool, not the
// dispatcher goroutine (§5).
type Handler func(ctx context.Context, msg Message)

// Topic is implemented by both the HTTP and Kafka transports.
type Topic interface {
	// Publish sends msg. Implementations set msg.From before sending if
	// unset.
	Publish(ctx context.Context, msg Message) error
	// Subscribe registers handler to receive every message delivered to
	// this node (including broadcasts). Multiple handlers may be
	// registered; all run for every message.
	Subscribe(handler Handler)
	// Close releases transport resources.
	Close() error
}

// Payload helpers — each message type's payload shape, JSON-encoded into
// Message.Payload.

type OpLockBreakRequestPayload struct {
	Path  string `json:"path"`
	Owner string `json:"owner,omitempty"`
}

type OpLockBreakNotifyPayload struct {
	Path string `json:"path"`
}

type OplockTypeChangePayload struct {
	Path string `json:"path"`
}

type FileStateUpdatePayload struct {
	Path   string `json:"path"`
	Mask   uint8  `json:"mask"`
	Values []byte `json:"values"` // JSON-encoded filestate.PendingUpdate
}

type RenameStatePayload struct {
	OldPath  string `json:"old_path"`
	NewPath  string `json:"new_path"`
	IsFolder bool   `json:"is_folder"`
}

type DataUpdatePayload struct {
	Path     string `json:"path"`
	FromNode string `json:"from_node"`
	Starting bool   `json:"starting"` // true = start, false = complete
}

// dropSelf reports whether msg must be dropped by this node's listener,
// per §4.4: a message from the local node is ignored except where the
// listener mirrors state into per-node structures (callers that need that
// exception check msg.From == selfNode themselves and proceed anyway).
func dropSelf(msg Message, selfNode string) bool {
	return msg.From == selfNode
}
