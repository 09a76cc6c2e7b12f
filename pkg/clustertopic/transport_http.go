package clustertopic

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dittofs/clusterstate/internal/logger"
)

// PeerLister supplies the current node addresses to fan a broadcast out to.
type PeerLister interface {
	// Peers returns every known node except selfNode, as node -> base URL.
	Peers() map[string]string
}

// HTTPTopic is a best-effort, at-most-once pub/sub transport built on
// plain HTTP POSTs to every peer, mirroring the teacher's own internal
// chi-routed RPC idiom (see pkg/clustertask). Delivery is fire-and-forget
// per peer: a failed POST is logged and not retried, so that peer never
// receives the message, matching the
// spec's "best-effort" delivery requirement — callers needing guaranteed
// delivery should prefer KafkaTopic.
type HTTPTopic struct {
	selfNode string
	peers    PeerLister
	client   *http.Client

	mu       sync.RWMutex
	handlers []Handler
}

// NewHTTPTopic constructs an HTTP-based topic for selfNode.
func NewHTTPTopic(selfNode string, peers PeerLister, timeout time.Duration) *HTTPTopic {
	return &HTTPTopic{selfNode: selfNode, peers: peers, client: &http.Client{Timeout: timeout}}
}

// Publish implements Topic.
func (h *HTTPTopic) Publish(ctx context.Context, msg Message) error {
	if msg.From == "" {
		msg.From = h.selfNode
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	for node, addr := range h.peers.Peers() {
		if node == h.selfNode {
			continue
		}
		go h.deliver(ctx, addr, body)
	}
	return nil
}

func (h *HTTPTopic) deliver(ctx context.Context, addr string, body []byte) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, addr+"/internal/v1/topic", bytes.NewReader(body))
	if err != nil {
		logger.WarnCtx(ctx, "topic delivery request build failed", logger.Err(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := h.client.Do(req)
	if err != nil {
		logger.WarnCtx(ctx, "topic delivery failed", logger.Err(err))
		return
	}
	resp.Body.Close()
}

// Subscribe implements Topic.
func (h *HTTPTopic) Subscribe(handler Handler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handlers = append(h.handlers, handler)
}

// Close implements Topic; the HTTP transport holds no persistent resources.
func (h *HTTPTopic) Close() error { return nil }

// Mount registers the inbound topic-delivery endpoint.
func (h *HTTPTopic) Mount(r chi.Router) {
	r.Post("/internal/v1/topic", h.handleDeliver)
}

func (h *HTTPTopic) handleDeliver(w http.ResponseWriter, r *http.Request) {
	var msg Message
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if msg.Target != Broadcast && msg.Target != h.selfNode {
		w.WriteHeader(http.StatusOK)
		return
	}

	h.mu.RLock()
	handlers := append([]Handler(nil), h.handlers...)
	h.mu.RUnlock()
	for _, fn := range handlers {
		fn(r.Context(), msg)
	}
	w.WriteHeader(http.StatusOK)
}
