package clustertopic

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

type staticPeers map[string]string

func (p staticPeers) Peers() map[string]string { return p }

func TestHTTPTopicDeliversToSubscriber(t *testing.T) {
	topicB := NewHTTPTopic("node-b", staticPeers{}, time.Second)
	received := make(chan Message, 1)
	topicB.Subscribe(func(_ context.Context, msg Message) { received <- msg })

	r := chi.NewRouter()
	topicB.Mount(r)
	srv := httptest.NewServer(r)
	defer srv.Close()

	topicA := NewHTTPTopic("node-a", staticPeers{"node-b": srv.URL}, time.Second)
	if err := topicA.Publish(context.Background(), Message{Target: Broadcast, Type: OpLockBreakNotify}); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	select {
	case msg := <-received:
		if msg.From != "node-a" || msg.Type != OpLockBreakNotify {
			t.Fatalf("unexpected message: %+v", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for delivery")
	}
}

func TestHTTPTopicDropsMessagesNotAddressedToIt(t *testing.T) {
	topicB := NewHTTPTopic("node-b", staticPeers{}, time.Second)
	received := make(chan Message, 1)
	topicB.Subscribe(func(_ context.Context, msg Message) { received <- msg })

	r := chi.NewRouter()
	topicB.Mount(r)
	srv := httptest.NewServer(r)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/internal/v1/topic", "application/json",
		strings.NewReader(`{"target":"node-c","from_node":"node-a","type":"FileStateUpdate"}`))
	if err != nil {
		t.Fatalf("post failed: %v", err)
	}
	resp.Body.Close()

	select {
	case msg := <-received:
		t.Fatalf("expected message addressed to node-c to be dropped, got %+v", msg)
	case <-time.After(200 * time.Millisecond):
	}
}
