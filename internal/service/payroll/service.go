package payroll

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cmlabs-hris/filing-tracker-go/internal/domain/company"
	"github.com/cmlabs-hris/filing-tracker-go/internal/domain/payroll"
	"github.com/cmlabs-hris/filing-tracker-go/internal/pkg/storage"
	"github.com/cmlabs-hris/filing-tracker-go/internal/pkg/validator"
)

type PayrollServiceImpl struct {
	records   payroll.RecordRepository
	companies company.CompanyRepository
	storage   storage.FileStorage
	now       func() time.Time
}

func NewPayrollService(
	records payroll.RecordRepository,
	companies company.CompanyRepository,
	fileStorage storage.FileStorage,
) payroll.PayrollService {
	return &PayrollServiceImpl{
		records:   records,
		companies: companies,
		storage:   fileStorage,
		now:       time.Now,
	}
}

// ========== CYCLES ==========

// OpenCycle implements payroll.PayrollService.
func (s *PayrollServiceImpl) OpenCycle(ctx context.Context, req payroll.OpenCycleRequest) (payroll.SeedCycleResponse, error) {
	if err := req.Validate(); err != nil {
		return payroll.SeedCycleResponse{}, err
	}

	cycle, err := s.records.EnsureCycle(ctx, req.MonthYear)
	if err != nil {
		return payroll.SeedCycleResponse{}, fmt.Errorf("failed to open cycle: %w", err)
	}
	return s.SeedCycle(ctx, cycle.ID)
}

// SeedCycle implements payroll.PayrollService.
func (s *PayrollServiceImpl) SeedCycle(ctx context.Context, cycleID string) (payroll.SeedCycleResponse, error) {
	if _, err := s.records.GetCycle(ctx, cycleID); err != nil {
		return payroll.SeedCycleResponse{}, err
	}

	companies, err := s.companies.List(ctx)
	if err != nil {
		return payroll.SeedCycleResponse{}, fmt.Errorf("failed to list companies: %w", err)
	}
	ids := make([]string, 0, len(companies))
	for _, c := range companies {
		ids = append(ids, c.ID)
	}

	inserted, err := s.records.InsertMany(ctx, cycleID, ids)
	if err != nil {
		return payroll.SeedCycleResponse{}, err
	}

	slog.Info("Payroll cycle seeded", "cycle_id", cycleID, "companies", len(ids), "inserted", inserted)
	return payroll.SeedCycleResponse{CycleID: cycleID, Inserted: inserted}, nil
}

// ListView implements payroll.PayrollService.
func (s *PayrollServiceImpl) ListView(ctx context.Context, cycleID string) ([]payroll.RecordView, error) {
	if _, err := s.records.GetCycle(ctx, cycleID); err != nil {
		return nil, err
	}

	records, err := s.records.ListByCycle(ctx, cycleID)
	if err != nil {
		return nil, err
	}
	companies, err := s.companies.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}
	obligations, err := s.companies.ListObligations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list obligation details: %w", err)
	}

	byID := make(map[string]company.Company, len(companies))
	for _, c := range companies {
		byID[c.ID] = c
	}
	byName := make(map[string]company.ObligationDetails, len(obligations))
	for _, o := range obligations {
		byName[normalizeName(o.CompanyName)] = o
	}

	views := make([]payroll.RecordView, 0, len(records))
	for _, rec := range records {
		comp, ok := byID[rec.CompanyID]
		if !ok {
			comp = company.Company{ID: rec.CompanyID, Name: rec.CompanyName}
		}
		view := payroll.RecordView{Record: rec, Company: comp}
		if o, ok := byName[normalizeName(comp.Name)]; ok {
			view.Obligation = &o
		}
		views = append(views, view)
	}
	return views, nil
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// ========== LIFECYCLE ==========

// Finalize implements payroll.PayrollService.
func (s *PayrollServiceImpl) Finalize(ctx context.Context, id string, req payroll.FinalizeRequest) (payroll.PayrollRecord, error) {
	if err := req.Validate(); err != nil {
		return payroll.PayrollRecord{}, err
	}

	rec, err := s.records.GetByID(ctx, id)
	if err != nil {
		return payroll.PayrollRecord{}, err
	}

	status := payroll.Finalize(rec.Status, req.IsNil, req.AssignedTo, req.ParsedDate(), s.now())
	return s.updateStatus(ctx, id, status)
}

// RevertFinalize implements payroll.PayrollService.
func (s *PayrollServiceImpl) RevertFinalize(ctx context.Context, id string) (payroll.PayrollRecord, error) {
	rec, err := s.records.GetByID(ctx, id)
	if err != nil {
		return payroll.PayrollRecord{}, err
	}
	return s.updateStatus(ctx, id, payroll.RevertFinalize(rec.Status))
}

// File implements payroll.PayrollService. The record is re-read right
// before the filing is merged so unrelated status fields written in the
// meantime are kept.
func (s *PayrollServiceImpl) File(ctx context.Context, id string, req payroll.FileRequest) (payroll.PayrollRecord, error) {
	if err := req.Validate(); err != nil {
		return payroll.PayrollRecord{}, err
	}
	set := resolveSet(req.DocumentSet)
	date, _ := validator.ParseTimestamp(req.Date)

	rec, err := s.records.GetByID(ctx, id)
	if err != nil {
		return payroll.PayrollRecord{}, err
	}

	status, err := payroll.File(rec, set, date)
	if err != nil {
		return payroll.PayrollRecord{}, err
	}
	return s.updateStatus(ctx, id, status)
}

// RemoveFiling implements payroll.PayrollService.
func (s *PayrollServiceImpl) RemoveFiling(ctx context.Context, id string) (payroll.PayrollRecord, error) {
	rec, err := s.records.GetByID(ctx, id)
	if err != nil {
		return payroll.PayrollRecord{}, err
	}
	return s.updateStatus(ctx, id, payroll.RemoveFiling(rec.Status))
}

func (s *PayrollServiceImpl) updateStatus(ctx context.Context, id string, status payroll.Status) (payroll.PayrollRecord, error) {
	if err := s.records.Update(ctx, id, payroll.RecordUpdate{Status: &status}); err != nil {
		return payroll.PayrollRecord{}, err
	}
	return s.records.GetByID(ctx, id)
}

// ========== DOCUMENTS ==========

// UploadDocument implements payroll.PayrollService. When the record
// update fails the uploaded blob is removed again.
func (s *PayrollServiceImpl) UploadDocument(ctx context.Context, req payroll.UploadDocumentRequest) (payroll.PayrollRecord, error) {
	if err := req.Validate(); err != nil {
		return payroll.PayrollRecord{}, err
	}
	set, _ := payroll.SetForSlot(req.Slot)

	rec, err := s.records.GetByID(ctx, req.RecordID)
	if err != nil {
		return payroll.PayrollRecord{}, err
	}
	cycle, err := s.records.GetCycle(ctx, rec.PayrollCycleID)
	if err != nil {
		return payroll.PayrollRecord{}, err
	}

	date := req.Date
	if date.IsZero() {
		date = s.now()
	}
	path := payroll.BuildDocumentPath(cycle.MonthYear, set, rec.CompanyName, req.Slot, date, req.Filename)

	stored, err := s.storage.Upload(ctx, bytes.NewReader(req.Content), path, req.ContentType)
	if err != nil {
		return payroll.PayrollRecord{}, fmt.Errorf("%w: %v", payroll.ErrStorage, err)
	}

	update := payroll.RecordUpdate{Documents: map[payroll.DocumentSlot]*string{req.Slot: &stored}}
	if err := s.records.Update(ctx, rec.ID, update); err != nil {
		if delErr := s.storage.Delete(ctx, stored); delErr != nil {
			slog.Warn("Failed to roll back uploaded document", "record_id", rec.ID, "path", stored, "error", delErr)
		}
		return payroll.PayrollRecord{}, fmt.Errorf("failed to record uploaded document: %w", err)
	}

	if previous := rec.DocumentPath(req.Slot); previous != "" && previous != stored {
		if err := s.storage.Delete(ctx, previous); err != nil {
			slog.Warn("Failed to delete replaced document", "record_id", rec.ID, "path", previous, "error", err)
		}
	}

	slog.Info("Document uploaded", "record_id", rec.ID, "slot", req.Slot, "path", stored)
	return s.records.GetByID(ctx, rec.ID)
}

// DeleteDocument implements payroll.PayrollService.
func (s *PayrollServiceImpl) DeleteDocument(ctx context.Context, id string, slot payroll.DocumentSlot) (payroll.PayrollRecord, error) {
	if _, ok := payroll.SetForSlot(slot); !ok {
		return payroll.PayrollRecord{}, fmt.Errorf("%w: %s", payroll.ErrUnknownDocumentSlot, slot)
	}

	rec, err := s.records.GetByID(ctx, id)
	if err != nil {
		return payroll.PayrollRecord{}, err
	}

	// The record must never point at a deleted blob: clear the slot first.
	update := payroll.RecordUpdate{Documents: map[payroll.DocumentSlot]*string{slot: nil}}
	if err := s.records.Update(ctx, id, update); err != nil {
		return payroll.PayrollRecord{}, err
	}

	if path := rec.DocumentPath(slot); path != "" {
		if err := s.storage.Delete(ctx, path); err != nil {
			slog.Warn("Failed to delete document blob", "record_id", id, "slot", slot, "path", path, "error", err)
		}
	}
	return s.records.GetByID(ctx, id)
}

// DeleteAllDocuments implements payroll.PayrollService. Blob deletes are
// best effort; every required slot is cleared in one update afterwards.
func (s *PayrollServiceImpl) DeleteAllDocuments(ctx context.Context, id string, setName string) (payroll.DeleteDocumentsResponse, error) {
	set, ok := payroll.DocumentSets[setName]
	if setName == "" {
		set, ok = payroll.PreparationDocuments, true
	}
	if !ok {
		return payroll.DeleteDocumentsResponse{}, fmt.Errorf("%w: %s", payroll.ErrUnknownDocumentSet, setName)
	}

	rec, err := s.records.GetByID(ctx, id)
	if err != nil {
		return payroll.DeleteDocumentsResponse{}, err
	}

	attempted := 0
	cleared := make(map[payroll.DocumentSlot]*string)
	for _, slot := range set.RequiredSlots() {
		path := rec.DocumentPath(slot)
		if path == "" {
			continue
		}
		attempted++
		cleared[slot] = nil
		if err := s.storage.Delete(ctx, path); err != nil {
			slog.Warn("Failed to delete document blob", "record_id", id, "slot", slot, "path", path, "error", err)
		}
	}
	if attempted == 0 {
		return payroll.DeleteDocumentsResponse{}, nil
	}

	if err := s.records.Update(ctx, id, payroll.RecordUpdate{Documents: cleared}); err != nil {
		return payroll.DeleteDocumentsResponse{}, err
	}
	return payroll.DeleteDocumentsResponse{Attempted: attempted}, nil
}

// UpdateEmployeeCount implements payroll.PayrollService.
func (s *PayrollServiceImpl) UpdateEmployeeCount(ctx context.Context, id string, req payroll.UpdateEmployeeCountRequest) (payroll.PayrollRecord, error) {
	if err := req.Validate(); err != nil {
		return payroll.PayrollRecord{}, err
	}

	n := req.NumberOfEmployees
	if err := s.records.Update(ctx, id, payroll.RecordUpdate{NumberOfEmployees: &n}); err != nil {
		return payroll.PayrollRecord{}, err
	}
	return s.records.GetByID(ctx, id)
}

func resolveSet(name string) payroll.DocumentSet {
	if set, ok := payroll.DocumentSets[name]; ok {
		return set
	}
	return payroll.PreparationDocuments
}
