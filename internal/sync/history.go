package sync

import (
	stdsync "sync"
	"time"

	"github.com/google/uuid"
)

// Operation kinds and statuses.
const (
	KindBatch  = "batch"
	KindSingle = "single"

	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// historySize caps the retained operations. The history is session-scoped,
// not a durable audit log.
const historySize = 10

// Operation records one sync attempt for the status endpoint.
type Operation struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Status    string    `json:"status"`
	StartedAt time.Time `json:"startedAt"`
	EndedAt   time.Time `json:"endedAt,omitempty"`
	Total     int       `json:"total"`
	Processed int       `json:"processed"`
	Succeeded int       `json:"succeeded"`
	Failed    int       `json:"failed"`
	Error     string    `json:"error,omitempty"`
}

type history struct {
	mu  stdsync.Mutex
	ops []Operation
}

func newHistory() *history {
	return &history{}
}

// begin records a running operation and returns its id.
func (h *history) begin(kind string, total int, at time.Time) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	op := Operation{
		ID:        uuid.NewString(),
		Kind:      kind,
		Status:    StatusRunning,
		StartedAt: at,
		Total:     total,
	}
	h.ops = append(h.ops, op)
	if len(h.ops) > historySize {
		h.ops = h.ops[len(h.ops)-historySize:]
	}
	return op.ID
}

func (h *history) finish(id string, processed, succeeded int, errMsg string, at time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i := range h.ops {
		if h.ops[i].ID != id {
			continue
		}
		h.ops[i].Processed = processed
		h.ops[i].Succeeded = succeeded
		h.ops[i].Failed = processed - succeeded
		h.ops[i].EndedAt = at
		h.ops[i].Error = errMsg
		if errMsg != "" {
			h.ops[i].Status = StatusFailed
		} else {
			h.ops[i].Status = StatusCompleted
		}
		return
	}
}

// recent returns the retained operations, newest first.
func (h *history) recent() []Operation {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Operation, 0, len(h.ops))
	for i := len(h.ops) - 1; i >= 0; i-- {
		out = append(out, h.ops[i])
	}
	return out
}
