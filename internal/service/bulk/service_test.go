package bulk_test

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmlabs-hris/filing-tracker-go/internal/domain/company"
	"github.com/cmlabs-hris/filing-tracker-go/internal/domain/payroll"
	"github.com/cmlabs-hris/filing-tracker-go/internal/pkg/extraction"
	"github.com/cmlabs-hris/filing-tracker-go/internal/pkg/storage"
	"github.com/cmlabs-hris/filing-tracker-go/internal/pkg/validator"
	"github.com/cmlabs-hris/filing-tracker-go/internal/repository/memory"
	"github.com/cmlabs-hris/filing-tracker-go/internal/service/bulk"
	payrollservice "github.com/cmlabs-hris/filing-tracker-go/internal/service/payroll"
)

// fakeBackend completes every job on the first poll. Companies listed in
// failFor fail with a portal error.
type fakeBackend struct {
	mu      sync.Mutex
	jobs    map[string]extraction.JobSpec
	failFor map[string]bool
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{jobs: map[string]extraction.JobSpec{}, failFor: map[string]bool{}}
}

func (b *fakeBackend) Submit(ctx context.Context, spec extraction.JobSpec) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := fmt.Sprintf("job-%d", len(b.jobs)+1)
	b.jobs[id] = spec
	return id, nil
}

func (b *fakeBackend) PollStatus(ctx context.Context, jobID string) (extraction.JobStatus, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	spec, ok := b.jobs[jobID]
	if !ok {
		return extraction.JobStatus{}, extraction.ErrJobNotFound
	}
	st := extraction.JobStatus{JobID: jobID, State: extraction.JobCompleted, PerCompany: map[string]extraction.CompanyResult{}}
	for _, c := range spec.Companies {
		if b.failFor[c.CompanyName] {
			st.PerCompany[c.RecordID] = extraction.CompanyResult{State: extraction.JobFailed, Error: "login failed"}
			continue
		}
		st.PerCompany[c.RecordID] = extraction.CompanyResult{
			State:      extraction.JobCompleted,
			OutputPath: fmt.Sprintf("%s/extracted/%s/%s.pdf", spec.MonthYear, c.CompanyName, spec.DocumentType),
		}
	}
	return st, nil
}

func (b *fakeBackend) submitted() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.jobs)
}

type flowFixture struct {
	svc     *bulk.Service
	records *memory.RecordStore
	storage storage.FileStorage
	backend *fakeBackend
	cycle   payroll.PayrollCycle
	acme    payroll.PayrollRecord
	beta    payroll.PayrollRecord
}

func newFlowFixture(t *testing.T) *flowFixture {
	t.Helper()
	ctx := context.Background()

	companies := memory.NewCompanyStore()
	acme := companies.AddCompany(company.Company{Name: "Acme Ltd"})
	beta := companies.AddCompany(company.Company{Name: "Beta"})
	records := memory.NewRecordStore(companies)

	cycle, err := records.EnsureCycle(ctx, "2024-05")
	require.NoError(t, err)
	_, err = records.InsertMany(ctx, cycle.ID, []string{acme.ID, beta.ID})
	require.NoError(t, err)
	list, err := records.ListByCycle(ctx, cycle.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)

	local, err := storage.NewLocalStorage(t.TempDir(), "")
	require.NoError(t, err)

	backend := newFakeBackend()
	o := bulk.NewOrchestrator(2, nil, nil, nil)
	svc := bulk.NewService(
		o,
		records,
		payrollservice.NewPayrollService(records, companies, local),
		local,
		backend,
		extraction.NewPoller(backend, 10*time.Millisecond),
	)

	return &flowFixture{svc: svc, records: records, storage: local, backend: backend, cycle: cycle, acme: list[0], beta: list[1]}
}

func TestExtractAll_WritesOutputPerSlot(t *testing.T) {
	f := newFlowFixture(t)
	f.backend.failFor["Beta"] = true
	ctx := context.Background()

	op, err := f.svc.ExtractAll(ctx, f.cycle.ID, bulk.SelectionRequest{
		DocumentTypes: []payroll.DocumentSlot{payroll.SlotPAYE, payroll.SlotNSSF},
	})
	require.NoError(t, err)
	report := waitReport(t, op)

	assert.Equal(t, bulk.StatePartialSuccess, report.State)
	assert.Equal(t, 4, report.Total)
	assert.Equal(t, 2, report.SuccessCount)
	assert.Equal(t, 2, report.FailureCount)
	assert.Equal(t, 4, f.backend.submitted())

	acme, err := f.records.GetByID(ctx, f.acme.ID)
	require.NoError(t, err)
	assert.Equal(t, "2024-05/extracted/Acme Ltd/paye.pdf", acme.DocumentPath(payroll.SlotPAYE))
	assert.Equal(t, "2024-05/extracted/Acme Ltd/nssf.pdf", acme.DocumentPath(payroll.SlotNSSF))

	beta, err := f.records.GetByID(ctx, f.beta.ID)
	require.NoError(t, err)
	assert.Empty(t, beta.DocumentPath(payroll.SlotPAYE))
	for _, r := range report.Results {
		if r.CompanyName == "Beta" {
			assert.Equal(t, bulk.UnitError, r.Status)
			assert.Contains(t, r.Error, "login failed")
		}
	}
}

func TestExtractAll_SelectionErrors(t *testing.T) {
	f := newFlowFixture(t)
	ctx := context.Background()

	_, err := f.svc.ExtractAll(ctx, "missing-cycle", bulk.SelectionRequest{})
	assert.ErrorIs(t, err, payroll.ErrCycleNotFound)

	_, err = f.svc.ExtractAll(ctx, f.cycle.ID, bulk.SelectionRequest{RecordIDs: []string{"nope"}})
	assert.ErrorIs(t, err, payroll.ErrRecordNotFound)

	_, err = f.svc.ExtractAll(ctx, f.cycle.ID, bulk.SelectionRequest{DocumentTypes: []payroll.DocumentSlot{"vat"}})
	var verrs validator.ValidationErrors
	assert.ErrorAs(t, err, &verrs)

	assert.Zero(t, f.backend.submitted())
}

func TestExportAll_ArchivesUploadedDocuments(t *testing.T) {
	f := newFlowFixture(t)
	ctx := context.Background()

	stored, err := f.storage.Upload(ctx, bytes.NewReader([]byte("paye")), "2024-05/PREP DOCS/Acme Ltd/PAYE.pdf", "application/pdf")
	require.NoError(t, err)
	missing := "2024-05/PREP DOCS/Beta/ZIP.zip"
	require.NoError(t, f.records.Update(ctx, f.acme.ID, payroll.RecordUpdate{Documents: map[payroll.DocumentSlot]*string{payroll.SlotPAYE: &stored}}))
	require.NoError(t, f.records.Update(ctx, f.beta.ID, payroll.RecordUpdate{Documents: map[payroll.DocumentSlot]*string{payroll.SlotZip: &missing}}))

	op, err := f.svc.ExportAll(ctx, f.cycle.ID, bulk.SelectionRequest{})
	require.NoError(t, err)
	report := waitReport(t, op)

	assert.Equal(t, 2, report.Total)
	assert.Equal(t, bulk.StatePartialSuccess, report.State)

	archive, err := op.Archive()
	require.NoError(t, err)
	assert.Equal(t, []string{"Acme Ltd/paye"}, archive.Keys())
}

func TestExportAll_SelectedRecordsOnly(t *testing.T) {
	f := newFlowFixture(t)
	ctx := context.Background()

	for _, r := range []payroll.PayrollRecord{f.acme, f.beta} {
		p, err := f.storage.Upload(ctx, bytes.NewReader([]byte(r.CompanyName)), "2024-05/"+r.CompanyName+"/nssf.pdf", "application/pdf")
		require.NoError(t, err)
		require.NoError(t, f.records.Update(ctx, r.ID, payroll.RecordUpdate{Documents: map[payroll.DocumentSlot]*string{payroll.SlotNSSF: &p}}))
	}

	op, err := f.svc.ExportAll(ctx, f.cycle.ID, bulk.SelectionRequest{RecordIDs: []string{f.beta.ID}})
	require.NoError(t, err)
	report := waitReport(t, op)

	assert.Equal(t, bulk.StateCompleted, report.State)
	archive, err := op.Archive()
	require.NoError(t, err)
	assert.Equal(t, []string{"Beta/nssf"}, archive.Keys())
}

func TestBatchUpload(t *testing.T) {
	f := newFlowFixture(t)
	ctx := context.Background()
	date := time.Date(2024, time.May, 2, 0, 0, 0, 0, time.UTC)

	op, err := f.svc.BatchUpload(ctx, f.cycle.ID, bulk.BatchUploadRequest{Items: []bulk.UploadItem{
		{RecordID: f.acme.ID, Slot: payroll.SlotPAYEReceipt, Filename: "receipt.pdf", Content: []byte("r"), Date: date},
		{RecordID: f.beta.ID, Slot: payroll.SlotNSSFSlip, Filename: "slip.pdf", Content: []byte("s"), Date: date},
		{RecordID: f.beta.ID, Slot: payroll.SlotSHIFSlip, Filename: "empty.pdf", Date: date},
	}})
	require.NoError(t, err)
	report := waitReport(t, op)

	assert.Equal(t, bulk.StatePartialSuccess, report.State)
	assert.Equal(t, 2, report.SuccessCount)
	assert.Equal(t, bulk.UnitError, report.Results[2].Status)

	acme, err := f.records.GetByID(ctx, f.acme.ID)
	require.NoError(t, err)
	assert.Equal(t, "2024-05/PAYMENT RECEIPTS/Acme Ltd/PAYE_RECEIPT - Acme Ltd - 2024-05-02.pdf", acme.DocumentPath(payroll.SlotPAYEReceipt))
}

func TestBatchUpload_UnknownRecordFailsAlone(t *testing.T) {
	f := newFlowFixture(t)
	ctx := context.Background()
	date := time.Date(2024, time.May, 2, 0, 0, 0, 0, time.UTC)

	op, err := f.svc.BatchUpload(ctx, f.cycle.ID, bulk.BatchUploadRequest{Items: []bulk.UploadItem{
		{RecordID: "missing-record", Slot: payroll.SlotPAYE, Filename: "paye.pdf", Content: []byte("p"), Date: date},
		{RecordID: f.acme.ID, Slot: payroll.SlotNSSF, Filename: "nssf.pdf", Content: []byte("n"), Date: date},
	}})
	require.NoError(t, err)
	report := waitReport(t, op)

	assert.Equal(t, bulk.StatePartialSuccess, report.State)
	assert.Equal(t, 1, report.SuccessCount)
	assert.Equal(t, bulk.UnitError, report.Results[0].Status)
	assert.Equal(t, "missing-record", report.Results[0].RecordID)
	assert.Contains(t, report.Results[0].Error, payroll.ErrRecordNotFound.Error())
	assert.Equal(t, bulk.UnitSuccess, report.Results[1].Status)

	acme, err := f.records.GetByID(ctx, f.acme.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, acme.DocumentPath(payroll.SlotNSSF))

	_, err = f.svc.BatchUpload(ctx, "missing-cycle", bulk.BatchUploadRequest{Items: []bulk.UploadItem{
		{RecordID: f.acme.ID, Slot: payroll.SlotPAYE, Filename: "paye.pdf", Content: []byte("p")},
	}})
	assert.ErrorIs(t, err, payroll.ErrCycleNotFound)
}

func TestBatchUpload_RejectsDuplicates(t *testing.T) {
	f := newFlowFixture(t)

	item := bulk.UploadItem{RecordID: f.acme.ID, Slot: payroll.SlotPAYE, Filename: "a.pdf", Content: []byte("a")}
	_, err := f.svc.BatchUpload(context.Background(), f.cycle.ID, bulk.BatchUploadRequest{Items: []bulk.UploadItem{item, item}})

	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "files[1]", verrs[0].Field)
}
