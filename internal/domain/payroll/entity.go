package payroll

import (
	"strings"
	"time"
)

// DocumentSlot names one statutory document kind held by a record.
type DocumentSlot string

const (
	SlotPAYE   DocumentSlot = "paye"
	SlotHSLevy DocumentSlot = "hslevy"
	SlotZip    DocumentSlot = "zip"
	SlotSHIF   DocumentSlot = "shif"
	SlotNSSF   DocumentSlot = "nssf"
	// SlotAllCSV points at the combined export of a cycle. It is a
	// convenience pointer and never required.
	SlotAllCSV DocumentSlot = "all_csv"

	SlotPAYEReceipt   DocumentSlot = "paye_receipt"
	SlotHSLevyReceipt DocumentSlot = "hslevy_receipt"
	SlotSHIFReceipt   DocumentSlot = "shif_receipt"
	SlotNSSFReceipt   DocumentSlot = "nssf_receipt"
	SlotNITAReceipt   DocumentSlot = "nita_receipt"

	SlotPAYESlip   DocumentSlot = "paye_slip"
	SlotHSLevySlip DocumentSlot = "hslevy_slip"
	SlotSHIFSlip   DocumentSlot = "shif_slip"
	SlotNSSFSlip   DocumentSlot = "nssf_slip"
	SlotNITASlip   DocumentSlot = "nita_slip"
)

// DocumentSet is the fixed list of documents a view requires.
type DocumentSet struct {
	Name      string
	SubFolder string
	Slots     []DocumentSlot
}

var (
	PreparationDocuments = DocumentSet{
		Name:      "preparation",
		SubFolder: "PREP DOCS",
		Slots:     []DocumentSlot{SlotPAYE, SlotHSLevy, SlotZip, SlotSHIF, SlotNSSF},
	}
	PaymentReceiptDocuments = DocumentSet{
		Name:      "payment_receipts",
		SubFolder: "PAYMENT RECEIPTS",
		Slots:     []DocumentSlot{SlotPAYEReceipt, SlotHSLevyReceipt, SlotSHIFReceipt, SlotNSSFReceipt, SlotNITAReceipt},
	}
	PaymentSlipDocuments = DocumentSet{
		Name:      "payment_slips",
		SubFolder: "PAYMENT SLIPS",
		Slots:     []DocumentSlot{SlotPAYESlip, SlotHSLevySlip, SlotSHIFSlip, SlotNSSFSlip, SlotNITASlip},
	}
)

// DocumentSets lists the sets by name.
var DocumentSets = map[string]DocumentSet{
	PreparationDocuments.Name:    PreparationDocuments,
	PaymentReceiptDocuments.Name: PaymentReceiptDocuments,
	PaymentSlipDocuments.Name:    PaymentSlipDocuments,
}

// RequiredSlots returns the slots that count towards completeness.
func (s DocumentSet) RequiredSlots() []DocumentSlot {
	slots := make([]DocumentSlot, 0, len(s.Slots))
	for _, slot := range s.Slots {
		if slot == SlotAllCSV {
			continue
		}
		slots = append(slots, slot)
	}
	return slots
}

// Contains reports whether slot belongs to the set.
func (s DocumentSet) Contains(slot DocumentSlot) bool {
	for _, known := range s.Slots {
		if known == slot {
			return true
		}
	}
	return false
}

// SetForSlot finds the set a slot belongs to. all_csv belongs to the
// preparation set.
func SetForSlot(slot DocumentSlot) (DocumentSet, bool) {
	if slot == SlotAllCSV {
		return PreparationDocuments, true
	}
	for _, set := range DocumentSets {
		if set.Contains(slot) {
			return set, true
		}
	}
	return DocumentSet{}, false
}

// NilMarker is stored in place of a date for NIL finalizations and filings.
const NilMarker = "NIL"

// Record status values.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
)

// UnassignedFiler is recorded when a filing has no assignee.
const UnassignedFiler = "Unassigned"

type Filing struct {
	FilingDate string `json:"filingDate"`
	IsNil      bool   `json:"isNil"`
	FiledBy    string `json:"filedBy"`
}

type Status struct {
	FinalizationDate *string `json:"finalization_date,omitempty"`
	Status           string  `json:"status,omitempty"`
	AssignedTo       *string `json:"assigned_to,omitempty"`
	Filing           *Filing `json:"filing,omitempty"`
	ReadyToFile      bool    `json:"ready_to_file,omitempty"`
}

// IsNil reports whether the record was finalized as a NIL return.
func (s Status) IsNil() bool {
	return s.FinalizationDate != nil && *s.FinalizationDate == NilMarker
}

// IsFinalized reports whether any finalization date is recorded.
func (s Status) IsFinalized() bool {
	return s.FinalizationDate != nil && strings.TrimSpace(*s.FinalizationDate) != ""
}

// IsFiled reports whether a filing date is recorded.
func (s Status) IsFiled() bool {
	return s.Filing != nil && s.Filing.FilingDate != ""
}

// PayrollCycle groups one record per company for a month.
type PayrollCycle struct {
	ID        string
	MonthYear string
	CreatedAt time.Time
}

type PayrollRecord struct {
	ID                string
	PayrollCycleID    string
	CompanyID         string
	CompanyName       string
	Documents         map[DocumentSlot]*string
	Status            Status
	NumberOfEmployees int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// DocumentPath returns the stored path for a slot, or "" when absent.
func (r PayrollRecord) DocumentPath(slot DocumentSlot) string {
	p, ok := r.Documents[slot]
	if !ok || p == nil {
		return ""
	}
	return strings.TrimSpace(*p)
}

// RecordUpdate is a partial update of a record. Documents are merged by
// slot, a nil path clears the slot. Status replaces the stored status.
type RecordUpdate struct {
	Documents         map[DocumentSlot]*string
	Status            *Status
	NumberOfEmployees *int
}

// IsEmpty reports whether the update changes nothing.
func (u RecordUpdate) IsEmpty() bool {
	return len(u.Documents) == 0 && u.Status == nil && u.NumberOfEmployees == nil
}
