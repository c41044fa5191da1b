package bulk

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/cmlabs-hris/filing-tracker-go/internal/domain/payroll"
)

type Kind string

const (
	KindExtract Kind = "extract"
	KindExport  Kind = "export"
	KindUpload  Kind = "upload"
)

// State is the position of an operation. Every state except running is
// terminal.
type State string

const (
	StateRunning        State = "running"
	StateCompleted      State = "completed"
	StatePartialSuccess State = "partial_success"
	StateCancelled      State = "cancelled"
)

type UnitStatus string

const (
	UnitPending UnitStatus = "pending"
	UnitSuccess UnitStatus = "success"
	UnitError   UnitStatus = "error"
)

// Unit is one (record, document type) pair of an operation.
type Unit struct {
	RecordID    string               `json:"record_id"`
	CompanyID   string               `json:"company_id,omitempty"`
	CompanyName string               `json:"company_name"`
	Slot        payroll.DocumentSlot `json:"document_type"`
}

type UnitResult struct {
	Unit
	Status UnitStatus `json:"status"`
	Error  string     `json:"error,omitempty"`
}

type Progress struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
}

type Report struct {
	ID           string       `json:"id"`
	Kind         Kind         `json:"kind"`
	State        State        `json:"state"`
	Total        int          `json:"total"`
	Completed    int          `json:"completed"`
	SuccessCount int          `json:"success_count"`
	FailureCount int          `json:"failure_count"`
	Results      []UnitResult `json:"results"`
	StartedAt    time.Time    `json:"started_at"`
	FinishedAt   *time.Time   `json:"finished_at,omitempty"`
}

// Operation is a running or finished bulk operation. Results are indexed
// by unit position and only ever move from pending to resolved.
type Operation struct {
	id        string
	kind      Kind
	startedAt time.Time
	cancelled atomic.Bool
	done      chan struct{}
	archive   *Archive

	mu         sync.Mutex
	results    []UnitResult
	completed  int
	success    int
	failure    int
	state      State
	finishedAt time.Time
}

func newOperation(id string, kind Kind, units []Unit, archive *Archive, now time.Time) *Operation {
	results := make([]UnitResult, len(units))
	for i, u := range units {
		results[i] = UnitResult{Unit: u, Status: UnitPending}
	}
	return &Operation{
		id:        id,
		kind:      kind,
		startedAt: now,
		done:      make(chan struct{}),
		archive:   archive,
		results:   results,
		state:     StateRunning,
	}
}

func (op *Operation) ID() string { return op.id }

func (op *Operation) Kind() Kind { return op.kind }

// Cancel asks the operation to stop dispatching units. Units already
// running finish and keep their results.
func (op *Operation) Cancel() {
	op.cancelled.Store(true)
}

func (op *Operation) Cancelled() bool {
	return op.cancelled.Load()
}

// Done is closed once the operation reaches a terminal state.
func (op *Operation) Done() <-chan struct{} {
	return op.done
}

func (op *Operation) Progress() Progress {
	op.mu.Lock()
	defer op.mu.Unlock()
	return Progress{Completed: op.completed, Total: len(op.results)}
}

// Wait blocks until the operation is terminal and returns its report.
func (op *Operation) Wait() Report {
	<-op.done
	return op.Report()
}

// Report returns a snapshot. While running the state is running.
func (op *Operation) Report() Report {
	op.mu.Lock()
	defer op.mu.Unlock()

	r := Report{
		ID:           op.id,
		Kind:         op.kind,
		State:        op.state,
		Total:        len(op.results),
		Completed:    op.completed,
		SuccessCount: op.success,
		FailureCount: op.failure,
		Results:      append([]UnitResult(nil), op.results...),
		StartedAt:    op.startedAt,
	}
	if !op.finishedAt.IsZero() {
		finished := op.finishedAt
		r.FinishedAt = &finished
	}
	return r
}

// Archive returns the export archive once the operation is terminal.
func (op *Operation) Archive() (*Archive, error) {
	if op.archive == nil {
		return nil, ErrNoArchive
	}
	op.mu.Lock()
	defer op.mu.Unlock()
	if op.state == StateRunning {
		return nil, ErrOperationRunning
	}
	return op.archive, nil
}

func (op *Operation) resolve(i int, err error) (UnitResult, Progress) {
	op.mu.Lock()
	defer op.mu.Unlock()

	res := &op.results[i]
	if err != nil {
		res.Status = UnitError
		res.Error = err.Error()
		op.failure++
	} else {
		res.Status = UnitSuccess
		op.success++
	}
	op.completed++
	return *res, Progress{Completed: op.completed, Total: len(op.results)}
}

// terminalState derives the state the operation ends in from its results.
func (op *Operation) terminalState() State {
	op.mu.Lock()
	defer op.mu.Unlock()

	switch {
	case op.completed < len(op.results):
		return StateCancelled
	case op.success == len(op.results):
		return StateCompleted
	default:
		return StatePartialSuccess
	}
}

// finish records the terminal state. Done stays open until close.
func (op *Operation) finish(state State, now time.Time) {
	op.mu.Lock()
	defer op.mu.Unlock()
	op.state = state
	op.finishedAt = now
}

func (op *Operation) close() {
	close(op.done)
}

func (op *Operation) finishedBefore(t time.Time) bool {
	op.mu.Lock()
	defer op.mu.Unlock()
	return op.state != StateRunning && op.finishedAt.Before(t)
}
