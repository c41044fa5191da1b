package bulk

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/cmlabs-hris/filing-tracker-go/internal/pkg/metrics"
	"github.com/cmlabs-hris/filing-tracker-go/internal/pkg/sse"
)

// DefaultWorkerLimit bounds concurrent units when no limit is configured.
const DefaultWorkerLimit = 4

// SSE event names published under the operation ID.
const (
	EventProgress = "progress"
	EventDone     = "done"
)

// UnitFunc performs one unit. A returned error is recorded against the
// unit and never stops its siblings.
type UnitFunc func(ctx context.Context, u Unit) error

type ProgressEvent struct {
	Progress
	Unit UnitResult `json:"unit"`
}

type Orchestrator struct {
	base     context.Context
	stop     context.CancelFunc
	limit    int
	registry *Registry
	hub      *sse.Hub
	metrics  *metrics.Metrics
	now      func() time.Time
}

// NewOrchestrator creates an orchestrator running at most limit units at
// once. A limit of 0 runs every unit concurrently. hub and m may be nil.
func NewOrchestrator(limit int, registry *Registry, hub *sse.Hub, m *metrics.Metrics) *Orchestrator {
	if limit < 0 {
		limit = DefaultWorkerLimit
	}
	if registry == nil {
		registry = NewRegistry()
	}
	base, stop := context.WithCancel(context.Background())
	return &Orchestrator{
		base:     base,
		stop:     stop,
		limit:    limit,
		registry: registry,
		hub:      hub,
		metrics:  m,
		now:      time.Now,
	}
}

func (o *Orchestrator) Registry() *Registry {
	return o.registry
}

// Context is cancelled only when Shutdown gives up waiting. Flows run their
// operations under it so they outlive the request that started them.
func (o *Orchestrator) Context() context.Context {
	return o.base
}

// Shutdown cancels every operation and waits for them to stop. Units still
// running when ctx ends have their context cancelled.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	err := o.registry.Shutdown(ctx)
	o.stop()
	return err
}

// Start registers a new operation and runs fn for every unit in the
// background under ctx.
func (o *Orchestrator) Start(ctx context.Context, kind Kind, units []Unit, fn UnitFunc) *Operation {
	return o.start(ctx, kind, units, fn, nil)
}

func (o *Orchestrator) start(ctx context.Context, kind Kind, units []Unit, fn UnitFunc, archive *Archive) *Operation {
	op := newOperation(uuid.NewString(), kind, units, archive, o.now())
	o.registry.Add(op)

	slog.Info("Bulk operation started", "operation_id", op.id, "kind", kind, "units", len(units), "limit", o.limit)
	go o.run(ctx, op, units, fn)
	return op
}

func (o *Orchestrator) run(ctx context.Context, op *Operation, units []Unit, fn UnitFunc) {
	tracker := o.metrics.Track(string(op.kind))

	var g errgroup.Group
	if o.limit > 0 {
		g.SetLimit(o.limit)
	}

	for i, u := range units {
		if op.Cancelled() || ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			// Cancellation may land while waiting for a free worker.
			if op.Cancelled() || ctx.Err() != nil {
				return nil
			}
			err := fn(ctx, u)
			if err != nil {
				slog.Warn("Bulk unit failed", "operation_id", op.id, "record_id", u.RecordID, "document_type", u.Slot, "error", err)
			}
			tracker.Unit(err)
			res, progress := op.resolve(i, err)
			o.publish(op.id, EventProgress, ProgressEvent{Progress: progress, Unit: res})
			return nil
		})
	}
	_ = g.Wait()

	state := op.terminalState()
	tracker.End(string(state))
	op.finish(state, o.now())

	report := op.Report()
	o.publish(op.id, EventDone, report)
	op.close()

	slog.Info("Bulk operation finished",
		"operation_id", op.id,
		"kind", op.kind,
		"state", state,
		"completed", report.Completed,
		"total", report.Total,
		"failures", report.FailureCount,
	)
}

func (o *Orchestrator) publish(topic, event string, data any) {
	if o.hub == nil {
		return
	}
	o.hub.Publish(topic, sse.Event{Event: event, Data: data})
}
