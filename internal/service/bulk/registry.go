package bulk

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Registry keeps operations addressable by ID after they start.
type Registry struct {
	mu  sync.RWMutex
	ops map[string]*Operation
}

func NewRegistry() *Registry {
	return &Registry{ops: make(map[string]*Operation)}
}

func (r *Registry) Add(op *Operation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops[op.id] = op
}

func (r *Registry) Get(id string) (*Operation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	op, ok := r.ops[id]
	if !ok {
		return nil, ErrOperationNotFound
	}
	return op, nil
}

// List returns every operation, newest first.
func (r *Registry) List() []*Operation {
	r.mu.RLock()
	ops := make([]*Operation, 0, len(r.ops))
	for _, op := range r.ops {
		ops = append(ops, op)
	}
	r.mu.RUnlock()

	sort.Slice(ops, func(i, j int) bool {
		return ops[i].startedAt.After(ops[j].startedAt)
	})
	return ops
}

// Prune drops terminal operations that finished before cutoff and returns
// how many were removed.
func (r *Registry) Prune(cutoff time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, op := range r.ops {
		if op.finishedBefore(cutoff) {
			delete(r.ops, id)
			removed++
		}
	}
	return removed
}

// Shutdown cancels every running operation and waits for them to reach a
// terminal state or for ctx to end.
func (r *Registry) Shutdown(ctx context.Context) error {
	ops := r.List()
	for _, op := range ops {
		op.Cancel()
	}
	for _, op := range ops {
		select {
		case <-op.Done():
		case <-ctx.Done():
			slog.Warn("Bulk operations still running at shutdown", "operation_id", op.id)
			return ctx.Err()
		}
	}
	return nil
}
