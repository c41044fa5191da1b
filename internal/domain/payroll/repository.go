package payroll

import "context"

// RecordRepository is the record store the lifecycle and bulk flows persist
// through. Updates only touch the fields present in RecordUpdate.
type RecordRepository interface {
	GetCycle(ctx context.Context, cycleID string) (PayrollCycle, error)
	// EnsureCycle returns the cycle of monthYear, creating it if needed.
	EnsureCycle(ctx context.Context, monthYear string) (PayrollCycle, error)
	ListByCycle(ctx context.Context, cycleID string) ([]PayrollRecord, error)
	GetByID(ctx context.Context, id string) (PayrollRecord, error)
	Update(ctx context.Context, id string, update RecordUpdate) error
	// InsertMany seeds one record per company for the cycle, skipping
	// companies that already have one. It returns the number inserted.
	InsertMany(ctx context.Context, cycleID string, companyIDs []string) (int, error)
}
