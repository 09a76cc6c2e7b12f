package clustertask

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dittofs/clusterstate/internal/logger"
	"github.com/dittofs/clusterstate/pkg/errs"
)

// wireTask is the envelope a task travels the wire as: the registry kind
// plus its own JSON-encoded body, so the receiving node can look up the
// right concrete type before unmarshaling the body into it.
type wireTask struct {
	Kind      string          `json:"kind"`
	TaskID    string          `json:"task_id"`
	Body      json.RawMessage `json:"body"`
}

type wireError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Path    string `json:"path"`
	Reason  string `json:"reason,omitempty"`
}

// HTTPTransport dispatches tasks to remote nodes over plain HTTP+JSON using
// the node addresses resolved by Peers. It is the cluster transport for C3
// (see DESIGN.md decision 5): the retrieved corpus carries no production
// distributed-map client to bind to, so task dispatch reuses the teacher's
// own internal chi-routed HTTP/JSON RPC idiom end to end.
type HTTPTransport struct {
	client *http.Client
	peers  PeerResolver
}

// PeerResolver maps a node name to its base URL (e.g. "http://10.0.1.4:7420").
type PeerResolver interface {
	Addr(node string) (string, bool)
}

// NewHTTPTransport constructs a transport with the given per-call timeout.
func NewHTTPTransport(peers PeerResolver, timeout time.Duration) *HTTPTransport {
	return &HTTPTransport{client: &http.Client{Timeout: timeout}, peers: peers}
}

// Send implements Transport.
func (h *HTTPTransport) Send(ctx context.Context, targetNode, kind string, task Task) (Result, error) {
	addr, ok := h.peers.Addr(targetNode)
	if !ok {
		return Result{}, fmt.Errorf("no known address for node %q", targetNode)
	}

	body, err := json.Marshal(task)
	if err != nil {
		return Result{}, fmt.Errorf("encode task %s: %w", kind, err)
	}
	envelope := wireTask{Kind: kind, TaskID: uuid.NewString(), Body: body}
	payload, err := json.Marshal(envelope)
	if err != nil {
		return Result{}, fmt.Errorf("encode envelope: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, addr+"/internal/v1/tasks", bytes.NewReader(payload))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		var res Result
		if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
			return Result{}, fmt.Errorf("decode result: %w", err)
		}
		return res, nil
	}

	var wireErr wireError
	_ = json.NewDecoder(resp.Body).Decode(&wireErr)
	return Result{}, decodeWireError(wireErr)
}

func decodeWireError(w wireError) error {
	var code errs.Code
	switch w.Code {
	case "SharingViolation":
		code = errs.SharingViolation
	case "FileExists":
		code = errs.FileExists
	case "ExistingOpLock":
		code = errs.ExistingOpLock
	case "LockConflict":
		code = errs.LockConflict
	case "NotLocked":
		code = errs.NotLocked
	default:
		code = errs.AccessDenied
	}
	return &errs.CacheError{Code: code, Message: w.Message, Path: w.Path}
}

// Server exposes the task-dispatch endpoint other nodes' HTTPTransport
// talks to. It always executes via the local Runtime regardless of which
// node the caller thinks owns the key; callers are expected to have
// resolved ownership before sending.
type Server struct {
	rt *Runtime
}

// NewServer wraps rt for HTTP serving.
func NewServer(rt *Runtime) *Server { return &Server{rt: rt} }

// Mount registers the task endpoint on r, mirroring the teacher's
// controlplane API handler wiring (one route, one handler method).
func (s *Server) Mount(r chi.Router) {
	r.Post("/internal/v1/tasks", s.handleDispatch)
}

func (s *Server) handleDispatch(w http.ResponseWriter, r *http.Request) {
	var envelope wireTask
	if err := json.NewDecoder(r.Body).Decode(&envelope); err != nil {
		writeProblem(w, http.StatusBadRequest, "invalid task envelope", err.Error())
		return
	}

	task := newByKind(envelope.Kind)
	if task == nil {
		writeProblem(w, http.StatusBadRequest, "unknown task kind", envelope.Kind)
		return
	}
	if err := json.Unmarshal(envelope.Body, task); err != nil {
		writeProblem(w, http.StatusBadRequest, "invalid task body", err.Error())
		return
	}

	logger.DebugCtx(r.Context(), "executing dispatched task", logger.Task(task.Kind()), logger.TaskID(envelope.TaskID))

	res, err := s.rt.executeLocal(task)
	if err != nil {
		writeTaskError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(res)
}

func writeTaskError(w http.ResponseWriter, err error) {
	ce := errs.AsCacheError(err)
	if ce == nil {
		writeProblem(w, http.StatusInternalServerError, "task failed", err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusConflict)
	_ = json.NewEncoder(w).Encode(wireError{
		Code: ce.Code.String(), Message: ce.Message, Path: ce.Path, Reason: ce.Reason.String(),
	})
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"type": "about:blank", "title": title, "status": status, "detail": detail,
	})
}
