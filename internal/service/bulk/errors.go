package bulk

import "errors"

var (
	ErrOperationNotFound = errors.New("operation not found")
	ErrOperationRunning  = errors.New("operation is still running")
	ErrNoArchive         = errors.New("operation has no archive")
	ErrNothingSelected   = errors.New("no records selected")
)
