package extraction

import (
	"context"
	"errors"
)

var (
	// ErrBackendUnavailable means the extraction service could not be
	// reached or answered with a server error.
	ErrBackendUnavailable = errors.New("extraction backend unavailable")
	ErrJobFailed          = errors.New("extraction job failed")
	ErrJobNotFound        = errors.New("extraction job not found")
)

type JobState string

const (
	JobQueued    JobState = "queued"
	JobRunning   JobState = "running"
	JobCompleted JobState = "completed"
	JobFailed    JobState = "failed"
)

// IsTerminal reports whether the backend will not change the job again.
func (s JobState) IsTerminal() bool {
	return s == JobCompleted || s == JobFailed
}

// CompanyTarget is one company a job extracts documents for. RecordID is
// the key of the per-company results.
type CompanyTarget struct {
	RecordID    string `json:"record_id"`
	CompanyID   string `json:"company_id"`
	CompanyName string `json:"company_name"`
}

type JobSpec struct {
	CycleID      string          `json:"cycle_id"`
	MonthYear    string          `json:"month_year"`
	DocumentType string          `json:"document_type"`
	Companies    []CompanyTarget `json:"companies"`
}

type CompanyResult struct {
	State      JobState `json:"state"`
	OutputPath string   `json:"output_path,omitempty"`
	Error      string   `json:"error,omitempty"`
}

type JobStatus struct {
	JobID      string                   `json:"job_id"`
	State      JobState                 `json:"state"`
	PerCompany map[string]CompanyResult `json:"per_company,omitempty"`
	Error      string                   `json:"error,omitempty"`
}

// Backend is the remote service that extracts statutory documents from the
// authorities' portals.
type Backend interface {
	Submit(ctx context.Context, spec JobSpec) (string, error)
	PollStatus(ctx context.Context, jobID string) (JobStatus, error)
}
