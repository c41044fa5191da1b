package bulk

import (
	"fmt"
	"time"

	playground "github.com/go-playground/validator/v10"

	"github.com/cmlabs-hris/filing-tracker-go/internal/domain/payroll"
	"github.com/cmlabs-hris/filing-tracker-go/internal/pkg/validator"
)

func init() {
	validator.RegisterStructRule(uniqueUploads, "unique_document", "duplicate document for record", BatchUploadRequest{})
}

// SelectionRequest picks records of a cycle and the document types to
// process for each. No record IDs selects the whole cycle.
type SelectionRequest struct {
	RecordIDs     []string               `json:"record_ids" validate:"dive,notblank"`
	DocumentTypes []payroll.DocumentSlot `json:"document_types" validate:"dive,document_slot"`
}

func (r *SelectionRequest) Validate() error {
	return validator.Struct(r)
}

// UploadItem is one file of a batch. Empty content is left to the unit
// so it fails alone.
type UploadItem struct {
	RecordID    string               `json:"record_id" validate:"notblank"`
	Slot        payroll.DocumentSlot `json:"document_type" validate:"document_slot"`
	Filename    string               `json:"filename"`
	ContentType string               `json:"content_type"`
	Content     []byte               `json:"-"`
	Date        time.Time            `json:"date"`
}

type BatchUploadRequest struct {
	Items []UploadItem `json:"files" validate:"min=1,dive"`
}

func (r *BatchUploadRequest) Validate() error {
	return validator.Struct(r)
}

// uniqueUploads rejects a second file for the same record and document type.
func uniqueUploads(sl playground.StructLevel) {
	req, ok := sl.Current().Interface().(BatchUploadRequest)
	if !ok {
		return
	}
	seen := make(map[string]bool, len(req.Items))
	for i, item := range req.Items {
		key := item.RecordID + "/" + string(item.Slot)
		if seen[key] {
			sl.ReportError(item.RecordID, fmt.Sprintf("files[%d]", i), fmt.Sprintf("Items[%d]", i), "unique_document", "")
		}
		seen[key] = true
	}
}

type OperationResponse struct {
	ID       string   `json:"id"`
	Kind     Kind     `json:"kind"`
	State    State    `json:"state"`
	Progress Progress `json:"progress"`
}

func ToOperationResponse(op *Operation) OperationResponse {
	r := op.Report()
	return OperationResponse{
		ID:       r.ID,
		Kind:     r.Kind,
		State:    r.State,
		Progress: Progress{Completed: r.Completed, Total: r.Total},
	}
}
