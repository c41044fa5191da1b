package payroll

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmlabs-hris/filing-tracker-go/internal/pkg/validator"
)

func validationFields(t *testing.T, err error) map[string]string {
	t.Helper()
	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	return verrs.ToMap()
}

func TestOpenCycleRequest_Validate(t *testing.T) {
	assert.NoError(t, (&OpenCycleRequest{MonthYear: "2024-05"}).Validate())

	fields := validationFields(t, (&OpenCycleRequest{MonthYear: "2024-13"}).Validate())
	assert.Equal(t, "must be in YYYY-MM format", fields["month_year"])

	fields = validationFields(t, (&OpenCycleRequest{}).Validate())
	assert.Equal(t, "is required", fields["month_year"])
}

func TestFinalizeRequest_Validate(t *testing.T) {
	date := "2024-04-30T12:00:00+03:00"
	assert.NoError(t, (&FinalizeRequest{AssignedTo: "Tushar", Date: &date}).Validate())
	assert.NoError(t, (&FinalizeRequest{IsNil: true}).Validate())

	bad := "yesterday"
	fields := validationFields(t, (&FinalizeRequest{Date: &bad}).Validate())
	assert.Equal(t, "must be YYYY-MM-DD or an ISO-8601 timestamp", fields["date"])

	long := make([]byte, 256)
	for i := range long {
		long[i] = 'a'
	}
	fields = validationFields(t, (&FinalizeRequest{AssignedTo: string(long)}).Validate())
	assert.Equal(t, "must not exceed 255 characters", fields["assigned_to"])
}

func TestFileRequest_Validate(t *testing.T) {
	assert.NoError(t, (&FileRequest{Date: "2024-05-01", DocumentSet: "payment_receipts"}).Validate())

	fields := validationFields(t, (&FileRequest{Date: "  ", DocumentSet: "vat"}).Validate())
	assert.Equal(t, "must not be blank", fields["date"])
	assert.Equal(t, "unknown document set", fields["document_set"])
}

func TestUploadDocumentRequest_Validate(t *testing.T) {
	valid := UploadDocumentRequest{RecordID: "r1", Slot: SlotPAYE, Filename: "paye.pdf", Content: []byte("x")}
	assert.NoError(t, valid.Validate())

	fields := validationFields(t, (&UploadDocumentRequest{Slot: "p9_form"}).Validate())
	assert.Equal(t, "must not be blank", fields["record_id"])
	assert.Equal(t, "unknown document type", fields["slot"])
	assert.Equal(t, "must not be blank", fields["filename"])
	assert.Equal(t, "must be at least 1 bytes", fields["file"])

	tooBig := valid
	tooBig.Content = make([]byte, 20<<20+1)
	fields = validationFields(t, tooBig.Validate())
	assert.Equal(t, "must not exceed 20971520 bytes", fields["file"])
}

func TestUpdateEmployeeCountRequest_Validate(t *testing.T) {
	assert.NoError(t, (&UpdateEmployeeCountRequest{NumberOfEmployees: 0}).Validate())

	fields := validationFields(t, (&UpdateEmployeeCountRequest{NumberOfEmployees: -1}).Validate())
	assert.Equal(t, "must be greater than or equal to 0", fields["number_of_employees"])
}
