package payroll

import (
	"fmt"
	"strings"
	"time"
)

// RecordState is the lifecycle position of a record.
type RecordState string

const (
	StatePending      RecordState = "pending"
	StateFinalized    RecordState = "finalized"
	StateFinalizedNil RecordState = "finalized_nil"
	StateFiled        RecordState = "filed"
)

// StateOf derives the lifecycle state from a status.
func StateOf(s Status) RecordState {
	switch {
	case s.IsFiled():
		return StateFiled
	case s.IsNil():
		return StateFinalizedNil
	case s.IsFinalized():
		return StateFinalized
	default:
		return StatePending
	}
}

// Finalize records the intent to file. Document completeness is not
// checked. Re-finalizing overwrites the previous values.
func Finalize(s Status, isNil bool, assignedTo string, date *time.Time, now time.Time) Status {
	var finalized string
	switch {
	case isNil:
		finalized = NilMarker
	case date != nil:
		finalized = date.UTC().Format(time.RFC3339)
	default:
		finalized = now.UTC().Format(time.RFC3339)
	}

	next := s
	next.FinalizationDate = &finalized
	next.Status = StatusCompleted
	next.AssignedTo = optionalString(assignedTo)
	return next
}

// RevertFinalize returns the status to pending.
func RevertFinalize(s Status) Status {
	next := s
	next.FinalizationDate = nil
	next.Status = StatusPending
	next.AssignedTo = nil
	return next
}

// File validates the record against the filing preconditions and returns
// the status carrying the new filing. The input is never modified.
func File(r PayrollRecord, set DocumentSet, date time.Time) (Status, error) {
	if !AllDocumentsUploaded(r, set) {
		return Status{}, fmt.Errorf("%w (missing: %s)", ErrDocumentsIncomplete, joinSlots(MissingDocuments(r, set)))
	}
	if !r.Status.IsFinalized() {
		return Status{}, ErrNotFinalized
	}

	isNil := r.Status.IsNil()
	filingDate := date.UTC().Format(time.RFC3339)
	if isNil {
		filingDate = NilMarker
	}
	filedBy := UnassignedFiler
	if r.Status.AssignedTo != nil && strings.TrimSpace(*r.Status.AssignedTo) != "" {
		filedBy = *r.Status.AssignedTo
	}

	next := r.Status
	next.Filing = &Filing{
		FilingDate: filingDate,
		IsNil:      isNil,
		FiledBy:    filedBy,
	}
	return next, nil
}

// RemoveFiling drops the filing entirely. No history is kept.
func RemoveFiling(s Status) Status {
	next := s
	next.Filing = nil
	return next
}

func optionalString(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}

func joinSlots(slots []DocumentSlot) string {
	names := make([]string, 0, len(slots))
	for _, s := range slots {
		names = append(names, string(s))
	}
	return strings.Join(names, ", ")
}
