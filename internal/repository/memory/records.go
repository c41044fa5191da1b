package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cmlabs-hris/filing-tracker-go/internal/domain/payroll"
	"github.com/google/uuid"
)

// RecordStore implements payroll.RecordRepository. Company names are
// resolved through the optional company store when records are seeded.
type RecordStore struct {
	mu        sync.Mutex
	companies *CompanyStore
	cycles    map[string]payroll.PayrollCycle
	records   map[string]payroll.PayrollRecord

	updateErr error
	listCalls int
}

var _ payroll.RecordRepository = (*RecordStore)(nil)

func NewRecordStore(companies *CompanyStore) *RecordStore {
	return &RecordStore{
		companies: companies,
		cycles:    make(map[string]payroll.PayrollCycle),
		records:   make(map[string]payroll.PayrollRecord),
	}
}

// PutRecord stores rec as is, assigning an ID when empty.
func (s *RecordStore) PutRecord(rec payroll.PayrollRecord) payroll.PayrollRecord {
	if rec.CompanyName == "" {
		rec.CompanyName = s.companies.name(rec.CompanyID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Documents == nil {
		rec.Documents = make(map[payroll.DocumentSlot]*string)
	}
	s.records[rec.ID] = cloneRecord(rec)
	return rec
}

// FailUpdates makes every following Update return err. nil restores
// normal behaviour.
func (s *RecordStore) FailUpdates(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updateErr = err
}

// ListCalls counts ListByCycle calls.
func (s *RecordStore) ListCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listCalls
}

func (s *RecordStore) GetCycle(ctx context.Context, cycleID string) (payroll.PayrollCycle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cycle, ok := s.cycles[cycleID]
	if !ok {
		return payroll.PayrollCycle{}, payroll.ErrCycleNotFound
	}
	return cycle, nil
}

func (s *RecordStore) EnsureCycle(ctx context.Context, monthYear string) (payroll.PayrollCycle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, cycle := range s.cycles {
		if cycle.MonthYear == monthYear {
			return cycle, nil
		}
	}
	cycle := payroll.PayrollCycle{ID: uuid.NewString(), MonthYear: monthYear, CreatedAt: time.Now()}
	s.cycles[cycle.ID] = cycle
	return cycle, nil
}

func (s *RecordStore) ListByCycle(ctx context.Context, cycleID string) ([]payroll.PayrollRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.listCalls++
	var out []payroll.PayrollRecord
	for _, rec := range s.records {
		if rec.PayrollCycleID == cycleID {
			out = append(out, cloneRecord(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CompanyName != out[j].CompanyName {
			return out[i].CompanyName < out[j].CompanyName
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *RecordStore) GetByID(ctx context.Context, id string) (payroll.PayrollRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return payroll.PayrollRecord{}, payroll.ErrRecordNotFound
	}
	return cloneRecord(rec), nil
}

func (s *RecordStore) Update(ctx context.Context, id string, update payroll.RecordUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.updateErr != nil {
		return s.updateErr
	}
	rec, ok := s.records[id]
	if !ok {
		return payroll.ErrRecordNotFound
	}
	for slot, path := range update.Documents {
		rec.Documents[slot] = clonePath(path)
	}
	if update.Status != nil {
		rec.Status = cloneStatus(*update.Status)
	}
	if update.NumberOfEmployees != nil {
		rec.NumberOfEmployees = *update.NumberOfEmployees
	}
	rec.UpdatedAt = time.Now()
	s.records[id] = rec
	return nil
}

func (s *RecordStore) InsertMany(ctx context.Context, cycleID string, companyIDs []string) (int, error) {
	names := make(map[string]string, len(companyIDs))
	for _, id := range companyIDs {
		names[id] = s.companies.name(id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing := make(map[string]bool)
	for _, rec := range s.records {
		if rec.PayrollCycleID == cycleID {
			existing[rec.CompanyID] = true
		}
	}

	inserted := 0
	now := time.Now()
	for _, companyID := range companyIDs {
		if existing[companyID] {
			continue
		}
		existing[companyID] = true
		rec := payroll.PayrollRecord{
			ID:             uuid.NewString(),
			PayrollCycleID: cycleID,
			CompanyID:      companyID,
			CompanyName:    names[companyID],
			Documents:      make(map[payroll.DocumentSlot]*string),
			Status:         payroll.Status{Status: payroll.StatusPending},
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		s.records[rec.ID] = rec
		inserted++
	}
	return inserted, nil
}

func cloneRecord(rec payroll.PayrollRecord) payroll.PayrollRecord {
	docs := make(map[payroll.DocumentSlot]*string, len(rec.Documents))
	for slot, path := range rec.Documents {
		docs[slot] = clonePath(path)
	}
	rec.Documents = docs
	rec.Status = cloneStatus(rec.Status)
	return rec
}

func cloneStatus(s payroll.Status) payroll.Status {
	s.FinalizationDate = clonePath(s.FinalizationDate)
	s.AssignedTo = clonePath(s.AssignedTo)
	if s.Filing != nil {
		f := *s.Filing
		s.Filing = &f
	}
	return s
}

func clonePath(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
