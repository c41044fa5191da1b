package summary_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cmlabs-hris/filing-tracker-go/internal/domain/payroll"
	"github.com/cmlabs-hris/filing-tracker-go/internal/service/summary"
)

func strPtr(s string) *string { return &s }

func withDocs(id string, slots ...payroll.DocumentSlot) payroll.PayrollRecord {
	docs := map[payroll.DocumentSlot]*string{}
	for _, slot := range slots {
		docs[slot] = strPtr("2024-05/" + string(slot) + ".pdf")
	}
	return payroll.PayrollRecord{ID: id, Documents: docs}
}

func TestSummarize(t *testing.T) {
	all := payroll.PreparationDocuments.RequiredSlots()

	complete := withDocs("complete", all...)
	complete.Status.FinalizationDate = strPtr("2024-05-01T00:00:00Z")

	partial := withDocs("partial", payroll.SlotPAYE)

	nilRecord := withDocs("nil", payroll.SlotPAYE)
	nilRecord.Status.FinalizationDate = strPtr(payroll.NilMarker)
	nilRecord.Status.Filing = &payroll.Filing{FilingDate: payroll.NilMarker, IsNil: true, FiledBy: "Ann"}

	ready := withDocs("ready")
	ready.Status.ReadyToFile = true

	s := summary.Summarize([]payroll.PayrollRecord{complete, partial, nilRecord, ready}, payroll.PreparationDocuments)

	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 1, s.Nil)
	assert.Equal(t, 2, s.Finalized)
	assert.Equal(t, 1, s.Complete)
	assert.Equal(t, 2, s.Pending)
	assert.Equal(t, 2, s.ReadyToFile)

	assert.Len(t, s.Documents, len(all))
	assert.Equal(t, summary.DocumentCounts{All: 3, Complete: 1, Pending: 1}, s.Documents[payroll.SlotPAYE])
	assert.Equal(t, summary.DocumentCounts{All: 1, Complete: 1, Pending: 0}, s.Documents[payroll.SlotNSSF])
	assert.NotContains(t, s.Documents, payroll.SlotAllCSV)
}

func TestSummarize_Empty(t *testing.T) {
	s := summary.Summarize(nil, payroll.PaymentSlipDocuments)

	assert.Zero(t, s.Total)
	assert.Len(t, s.Documents, len(payroll.PaymentSlipDocuments.Slots))
	for _, counts := range s.Documents {
		assert.Equal(t, summary.DocumentCounts{}, counts)
	}
}

func TestSummarize_CompletePlusPendingPlusNilIsTotal(t *testing.T) {
	records := []payroll.PayrollRecord{
		withDocs("a"),
		withDocs("b", payroll.PaymentReceiptDocuments.Slots...),
		withDocs("c", payroll.SlotPAYEReceipt, payroll.SlotNITAReceipt),
	}
	records[0].Status.FinalizationDate = strPtr(payroll.NilMarker)

	s := summary.Summarize(records, payroll.PaymentReceiptDocuments)

	assert.Equal(t, s.Total, s.Complete+s.Pending+s.Nil)
	assert.Equal(t, summary.DocumentCounts{All: 2, Complete: 1, Pending: 1}, s.Documents[payroll.SlotNITAReceipt])
}

func TestSummarizeViews(t *testing.T) {
	views := []payroll.RecordView{
		{Record: withDocs("a", payroll.PreparationDocuments.RequiredSlots()...)},
		{Record: withDocs("b")},
	}

	s := summary.SummarizeViews(views, payroll.PreparationDocuments)

	assert.Equal(t, 2, s.Total)
	assert.Equal(t, 1, s.Complete)
	assert.Equal(t, 1, s.Pending)
}
