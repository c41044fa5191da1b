package response

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/filing-tracker-go/internal/domain/company"
	"github.com/cmlabs-hris/filing-tracker-go/internal/domain/payroll"
	"github.com/cmlabs-hris/filing-tracker-go/internal/pkg/extraction"
	"github.com/cmlabs-hris/filing-tracker-go/internal/pkg/validator"
	"github.com/cmlabs-hris/filing-tracker-go/internal/service/bulk"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	switch {
	// Payroll domain errors
	case errors.Is(err, payroll.ErrPreconditionFailed):
		PreconditionFailed(w, err.Error())
	case errors.Is(err, payroll.ErrRecordNotFound):
		NotFound(w, "Payroll record not found")
	case errors.Is(err, payroll.ErrCycleNotFound):
		NotFound(w, "Payroll cycle not found")
	case errors.Is(err, payroll.ErrUnknownDocumentSlot),
		errors.Is(err, payroll.ErrUnknownDocumentSet):
		BadRequest(w, err.Error(), nil)
	case errors.Is(err, payroll.ErrStorage):
		slog.Error("Document storage failed", "error", err)
		BadGateway(w, "Document storage is unavailable")

	// Company domain errors
	case errors.Is(err, company.ErrCompanyNotFound):
		NotFound(w, "Company not found")
	case errors.Is(err, company.ErrUnknownObligation),
		errors.Is(err, company.ErrUnknownCategory):
		BadRequest(w, err.Error(), nil)

	// Bulk operation errors
	case errors.Is(err, bulk.ErrOperationNotFound):
		NotFound(w, "Operation not found")
	case errors.Is(err, bulk.ErrNoArchive):
		NotFound(w, "Operation has no archive")
	case errors.Is(err, bulk.ErrOperationRunning):
		Conflict(w, "Operation is still running")
	case errors.Is(err, bulk.ErrNothingSelected):
		PreconditionFailed(w, err.Error())

	// Extraction backend errors
	case errors.Is(err, extraction.ErrBackendUnavailable):
		ServiceUnavailable(w, "Extraction service is not running")

	// Default
	default:
		slog.Error("Unhandled error", "error", err)
		InternalServerError(w, "An unexpected error occurred")
	}
}
