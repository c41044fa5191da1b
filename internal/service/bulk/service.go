package bulk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/cmlabs-hris/filing-tracker-go/internal/domain/payroll"
	"github.com/cmlabs-hris/filing-tracker-go/internal/pkg/extraction"
	"github.com/cmlabs-hris/filing-tracker-go/internal/pkg/storage"
)

// Service builds the extract, export and batch-upload flows on top of the
// orchestrator.
type Service struct {
	orchestrator *Orchestrator
	records      payroll.RecordRepository
	payroll      payroll.PayrollService
	storage      storage.FileStorage
	backend      extraction.Backend
	poller       *extraction.Poller
}

func NewService(
	orchestrator *Orchestrator,
	records payroll.RecordRepository,
	payrollService payroll.PayrollService,
	fileStorage storage.FileStorage,
	backend extraction.Backend,
	poller *extraction.Poller,
) *Service {
	return &Service{
		orchestrator: orchestrator,
		records:      records,
		payroll:      payrollService,
		storage:      fileStorage,
		backend:      backend,
		poller:       poller,
	}
}

// ExtractAll submits one extraction job per (record, document type) and
// writes each job's output path into the record's slot.
func (s *Service) ExtractAll(ctx context.Context, cycleID string, req SelectionRequest) (*Operation, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	cycle, records, err := s.selectRecords(ctx, cycleID, req.RecordIDs)
	if err != nil {
		return nil, err
	}

	slots := req.DocumentTypes
	if len(slots) == 0 {
		slots = payroll.PreparationDocuments.RequiredSlots()
	}

	units := make([]Unit, 0, len(records)*len(slots))
	for _, r := range records {
		for _, slot := range slots {
			units = append(units, unitFor(r, slot))
		}
	}

	return s.orchestrator.Start(s.orchestrator.Context(), KindExtract, units, s.extractUnit(cycle)), nil
}

func (s *Service) extractUnit(cycle payroll.PayrollCycle) UnitFunc {
	return func(ctx context.Context, u Unit) error {
		jobID, err := s.backend.Submit(ctx, extraction.JobSpec{
			CycleID:      cycle.ID,
			MonthYear:    cycle.MonthYear,
			DocumentType: string(u.Slot),
			Companies: []extraction.CompanyTarget{{
				RecordID:    u.RecordID,
				CompanyID:   u.CompanyID,
				CompanyName: u.CompanyName,
			}},
		})
		if err != nil {
			return err
		}

		status, err := s.poller.Await(ctx, jobID)
		if err != nil {
			return err
		}

		result, ok := status.PerCompany[u.RecordID]
		if !ok {
			return fmt.Errorf("job %s returned no result for %s", jobID, u.CompanyName)
		}
		if result.State == extraction.JobFailed {
			return fmt.Errorf("%w: %s", extraction.ErrJobFailed, result.Error)
		}
		output := strings.TrimSpace(result.OutputPath)
		if output == "" {
			return fmt.Errorf("job %s produced no document for %s", jobID, u.CompanyName)
		}

		return s.records.Update(ctx, u.RecordID, payroll.RecordUpdate{
			Documents: map[payroll.DocumentSlot]*string{u.Slot: &output},
		})
	}
}

// ExportAll downloads every uploaded document of the selection into an
// in-memory archive. Slots without a document are not scheduled.
func (s *Service) ExportAll(ctx context.Context, cycleID string, req SelectionRequest) (*Operation, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	_, records, err := s.selectRecords(ctx, cycleID, req.RecordIDs)
	if err != nil {
		return nil, err
	}

	slots := req.DocumentTypes
	if len(slots) == 0 {
		slots = payroll.PreparationDocuments.Slots
	}

	var units []Unit
	paths := make(map[string]string)
	for _, r := range records {
		for _, slot := range slots {
			p := r.DocumentPath(slot)
			if p == "" {
				continue
			}
			u := unitFor(r, slot)
			units = append(units, u)
			paths[unitKey(u)] = p
		}
	}

	archive := NewArchive()
	fn := func(ctx context.Context, u Unit) error {
		p := paths[unitKey(u)]
		rc, err := s.storage.Download(ctx, p)
		if err != nil {
			return err
		}
		defer rc.Close()

		data, err := io.ReadAll(rc)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", p, err)
		}
		archive.Add(u.CompanyName, u.Slot, p, data)
		return nil
	}

	return s.orchestrator.start(s.orchestrator.Context(), KindExport, units, fn, archive), nil
}

// BatchUpload uploads each item through the payroll service so every item
// gets the single-upload rollback. An item naming a record outside the cycle
// fails alone with ErrRecordNotFound.
func (s *Service) BatchUpload(ctx context.Context, cycleID string, req BatchUploadRequest) (*Operation, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	_, records, err := s.selectRecords(ctx, cycleID, nil)
	if err != nil && !errors.Is(err, ErrNothingSelected) {
		return nil, err
	}
	byID := make(map[string]payroll.PayrollRecord, len(records))
	for _, r := range records {
		byID[r.ID] = r
	}

	units := make([]Unit, len(req.Items))
	items := make(map[string]UploadItem, len(req.Items))
	for i, item := range req.Items {
		rec, ok := byID[item.RecordID]
		if !ok {
			rec = payroll.PayrollRecord{ID: item.RecordID}
		}
		units[i] = unitFor(rec, item.Slot)
		items[unitKey(units[i])] = item
	}

	fn := func(ctx context.Context, u Unit) error {
		if _, ok := byID[u.RecordID]; !ok {
			return fmt.Errorf("%w: %s", payroll.ErrRecordNotFound, u.RecordID)
		}
		item := items[unitKey(u)]
		_, err := s.payroll.UploadDocument(ctx, payroll.UploadDocumentRequest{
			RecordID:    item.RecordID,
			Slot:        item.Slot,
			Filename:    item.Filename,
			ContentType: item.ContentType,
			Content:     item.Content,
			Date:        item.Date,
		})
		return err
	}

	return s.orchestrator.Start(s.orchestrator.Context(), KindUpload, units, fn), nil
}

// selectRecords loads the cycle and the requested records in cycle order.
// Unknown IDs fail the whole selection.
func (s *Service) selectRecords(ctx context.Context, cycleID string, ids []string) (payroll.PayrollCycle, []payroll.PayrollRecord, error) {
	cycle, err := s.records.GetCycle(ctx, cycleID)
	if err != nil {
		return payroll.PayrollCycle{}, nil, err
	}
	records, err := s.records.ListByCycle(ctx, cycle.ID)
	if err != nil {
		return payroll.PayrollCycle{}, nil, err
	}
	if len(ids) == 0 {
		if len(records) == 0 {
			return payroll.PayrollCycle{}, nil, ErrNothingSelected
		}
		return cycle, records, nil
	}

	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	selected := make([]payroll.PayrollRecord, 0, len(wanted))
	for _, r := range records {
		if wanted[r.ID] {
			selected = append(selected, r)
			delete(wanted, r.ID)
		}
	}
	for id := range wanted {
		slog.Warn("Bulk selection references unknown record", "cycle_id", cycle.ID, "record_id", id)
		return payroll.PayrollCycle{}, nil, fmt.Errorf("%w: %s", payroll.ErrRecordNotFound, id)
	}
	return cycle, selected, nil
}

func unitFor(r payroll.PayrollRecord, slot payroll.DocumentSlot) Unit {
	return Unit{
		RecordID:    r.ID,
		CompanyID:   r.CompanyID,
		CompanyName: r.CompanyName,
		Slot:        slot,
	}
}

func unitKey(u Unit) string {
	return u.RecordID + "/" + string(u.Slot)
}
