package payroll

import (
	"errors"
	"fmt"
)

var (
	ErrRecordNotFound      = errors.New("payroll record not found")
	ErrCycleNotFound       = errors.New("payroll cycle not found")
	ErrPreconditionFailed  = errors.New("precondition failed")
	ErrDocumentsIncomplete = fmt.Errorf("%w: all required documents must be uploaded before filing", ErrPreconditionFailed)
	ErrNotFinalized        = fmt.Errorf("%w: record must be finalized before filing", ErrPreconditionFailed)
	ErrUnknownDocumentSlot = errors.New("unknown document slot")
	ErrUnknownDocumentSet  = errors.New("unknown document set")
	ErrStorage             = errors.New("document storage failed")
)
