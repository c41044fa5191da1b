package payroll

import (
	"regexp"
	"time"

	"github.com/cmlabs-hris/filing-tracker-go/internal/pkg/validator"
)

// ========== CYCLE DTOs ==========

var monthYearPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

func init() {
	validator.RegisterRule("month_year", monthYearPattern.MatchString, "must be in YYYY-MM format")
	validator.RegisterRule("document_slot", func(value string) bool {
		_, ok := SetForSlot(DocumentSlot(value))
		return ok
	}, "unknown document type")
	validator.RegisterRule("document_set", func(value string) bool {
		_, ok := DocumentSets[value]
		return ok
	}, "unknown document set")
}

type OpenCycleRequest struct {
	MonthYear string `json:"month_year" validate:"required,month_year"`
}

func (r *OpenCycleRequest) Validate() error {
	return validator.Struct(r)
}

// ========== LIFECYCLE DTOs ==========

type FinalizeRequest struct {
	IsNil      bool    `json:"is_nil"`
	AssignedTo string  `json:"assigned_to" validate:"max=255"`
	Date       *string `json:"date,omitempty" validate:"omitempty,timestamp"`
}

func (r *FinalizeRequest) Validate() error {
	return validator.Struct(r)
}

// ParsedDate returns the requested finalization date, if any.
func (r *FinalizeRequest) ParsedDate() *time.Time {
	if r.Date == nil {
		return nil
	}
	t, ok := validator.ParseTimestamp(*r.Date)
	if !ok {
		return nil
	}
	return &t
}

type FileRequest struct {
	Date        string `json:"date" validate:"notblank,timestamp"`
	DocumentSet string `json:"document_set,omitempty" validate:"omitempty,document_set"`
}

func (r *FileRequest) Validate() error {
	return validator.Struct(r)
}

type UploadDocumentRequest struct {
	RecordID    string       `json:"record_id" validate:"notblank"`
	Slot        DocumentSlot `json:"slot" validate:"document_slot"`
	Filename    string       `json:"filename" validate:"notblank"`
	ContentType string       `json:"content_type"`
	Content     []byte       `json:"file" validate:"min=1,max=20971520"` // 20MB
	Date        time.Time    `json:"date"`
}

func (r *UploadDocumentRequest) Validate() error {
	return validator.Struct(r)
}

type UpdateEmployeeCountRequest struct {
	NumberOfEmployees int `json:"number_of_employees" validate:"gte=0"`
}

func (r *UpdateEmployeeCountRequest) Validate() error {
	return validator.Struct(r)
}

type DeleteDocumentsResponse struct {
	Attempted int `json:"attempted"`
}

type SeedCycleResponse struct {
	CycleID  string `json:"cycle_id"`
	Inserted int    `json:"inserted"`
}

// ========== RECORD VIEW DTOs ==========

type FilingResponse struct {
	FilingDate string `json:"filing_date"`
	IsNil      bool   `json:"is_nil"`
	FiledBy    string `json:"filed_by"`
}

type RecordResponse struct {
	ID                string                   `json:"id"`
	PayrollCycleID    string                   `json:"payroll_cycle_id"`
	CompanyID         string                   `json:"company_id"`
	CompanyName       string                   `json:"company_name"`
	Documents         map[DocumentSlot]*string `json:"documents"`
	FinalizationDate  *string                  `json:"finalization_date,omitempty"`
	Status            string                   `json:"status"`
	AssignedTo        *string                  `json:"assigned_to,omitempty"`
	Filing            *FilingResponse          `json:"filing,omitempty"`
	State             RecordState              `json:"state"`
	DocumentStatus    DocumentStatus           `json:"document_status"`
	UploadedDocuments int                      `json:"uploaded_documents"`
	RequiredDocuments int                      `json:"required_documents"`
	ObligationBucket  string                   `json:"obligation_bucket,omitempty"`
	NumberOfEmployees int                      `json:"number_of_employees"`
}

// ToRecordResponse maps a record for the given document set.
func ToRecordResponse(r PayrollRecord, set DocumentSet) RecordResponse {
	uploaded, required := DocumentCount(r, set)
	status := r.Status.Status
	if status == "" {
		status = StatusPending
	}

	var filing *FilingResponse
	if r.Status.Filing != nil {
		filing = &FilingResponse{
			FilingDate: r.Status.Filing.FilingDate,
			IsNil:      r.Status.Filing.IsNil,
			FiledBy:    r.Status.Filing.FiledBy,
		}
	}

	docs := make(map[DocumentSlot]*string, len(set.Slots))
	for _, slot := range set.Slots {
		docs[slot] = r.Documents[slot]
	}
	if p, ok := r.Documents[SlotAllCSV]; ok && set.Name == PreparationDocuments.Name {
		docs[SlotAllCSV] = p
	}

	return RecordResponse{
		ID:                r.ID,
		PayrollCycleID:    r.PayrollCycleID,
		CompanyID:         r.CompanyID,
		CompanyName:       r.CompanyName,
		Documents:         docs,
		FinalizationDate:  r.Status.FinalizationDate,
		Status:            status,
		AssignedTo:        r.Status.AssignedTo,
		Filing:            filing,
		State:             StateOf(r.Status),
		DocumentStatus:    DocumentStatusOf(r, set),
		UploadedDocuments: uploaded,
		RequiredDocuments: required,
		NumberOfEmployees: r.NumberOfEmployees,
	}
}
