package payroll

import "context"

type PayrollService interface {
	// OpenCycle creates the cycle of a month if needed and seeds it.
	OpenCycle(ctx context.Context, req OpenCycleRequest) (SeedCycleResponse, error)
	SeedCycle(ctx context.Context, cycleID string) (SeedCycleResponse, error)
	ListView(ctx context.Context, cycleID string) ([]RecordView, error)

	Finalize(ctx context.Context, id string, req FinalizeRequest) (PayrollRecord, error)
	RevertFinalize(ctx context.Context, id string) (PayrollRecord, error)
	File(ctx context.Context, id string, req FileRequest) (PayrollRecord, error)
	RemoveFiling(ctx context.Context, id string) (PayrollRecord, error)

	UploadDocument(ctx context.Context, req UploadDocumentRequest) (PayrollRecord, error)
	DeleteDocument(ctx context.Context, id string, slot DocumentSlot) (PayrollRecord, error)
	DeleteAllDocuments(ctx context.Context, id string, setName string) (DeleteDocumentsResponse, error)
	UpdateEmployeeCount(ctx context.Context, id string, req UpdateEmployeeCountRequest) (PayrollRecord, error)
}
