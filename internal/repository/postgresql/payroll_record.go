package postgresql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/cmlabs-hris/filing-tracker-go/internal/domain/payroll"
	"github.com/cmlabs-hris/filing-tracker-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type recordRepositoryImpl struct {
	db *database.DB
}

func NewRecordRepository(db *database.DB) payroll.RecordRepository {
	return &recordRepositoryImpl{db: db}
}

const recordColumns = `
	r.id, r.payroll_cycle_id, r.company_id, c.name,
	r.documents, r.status, r.number_of_employees,
	r.created_at, r.updated_at
`

// GetCycle implements payroll.RecordRepository.
func (r *recordRepositoryImpl) GetCycle(ctx context.Context, cycleID string) (payroll.PayrollCycle, error) {
	q := GetQuerier(ctx, r.db)

	var cycle payroll.PayrollCycle
	err := q.QueryRow(ctx, `SELECT id, month_year, created_at FROM payroll_cycles WHERE id = $1`, cycleID).
		Scan(&cycle.ID, &cycle.MonthYear, &cycle.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidID(err) {
			return payroll.PayrollCycle{}, payroll.ErrCycleNotFound
		}
		return payroll.PayrollCycle{}, fmt.Errorf("failed to get payroll cycle: %w", err)
	}
	return cycle, nil
}

// EnsureCycle implements payroll.RecordRepository.
func (r *recordRepositoryImpl) EnsureCycle(ctx context.Context, monthYear string) (payroll.PayrollCycle, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO payroll_cycles (month_year)
		VALUES ($1)
		ON CONFLICT (month_year) DO UPDATE SET month_year = EXCLUDED.month_year
		RETURNING id, month_year, created_at
	`

	var cycle payroll.PayrollCycle
	if err := q.QueryRow(ctx, query, monthYear).Scan(&cycle.ID, &cycle.MonthYear, &cycle.CreatedAt); err != nil {
		return payroll.PayrollCycle{}, fmt.Errorf("failed to ensure payroll cycle %s: %w", monthYear, err)
	}
	return cycle, nil
}

// ListByCycle implements payroll.RecordRepository.
func (r *recordRepositoryImpl) ListByCycle(ctx context.Context, cycleID string) ([]payroll.PayrollRecord, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT` + recordColumns + `
		FROM payroll_records r
		JOIN companies c ON c.id = r.company_id
		WHERE r.payroll_cycle_id = $1
		ORDER BY c.name ASC
	`

	rows, err := q.Query(ctx, query, cycleID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payroll records: %w", err)
	}
	defer rows.Close()

	var records []payroll.PayrollRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payroll record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating payroll records: %w", err)
	}

	return records, nil
}

// GetByID implements payroll.RecordRepository.
func (r *recordRepositoryImpl) GetByID(ctx context.Context, id string) (payroll.PayrollRecord, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT` + recordColumns + `
		FROM payroll_records r
		JOIN companies c ON c.id = r.company_id
		WHERE r.id = $1
	`

	rec, err := scanRecord(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidID(err) {
			return payroll.PayrollRecord{}, payroll.ErrRecordNotFound
		}
		return payroll.PayrollRecord{}, fmt.Errorf("failed to get payroll record: %w", err)
	}
	return rec, nil
}

// Update implements payroll.RecordRepository. Documents are merged into
// the stored map key by key so concurrent writers of different slots do
// not overwrite each other.
func (r *recordRepositoryImpl) Update(ctx context.Context, id string, update payroll.RecordUpdate) error {
	if update.IsEmpty() {
		return fmt.Errorf("no updatable fields provided for payroll record update")
	}
	q := GetQuerier(ctx, r.db)

	setClauses := make([]string, 0, 4)
	args := make([]interface{}, 0, 4)
	add := func(clause string, val interface{}) {
		args = append(args, val)
		setClauses = append(setClauses, fmt.Sprintf(clause, len(args)))
	}

	if len(update.Documents) > 0 {
		docsJSON, err := json.Marshal(update.Documents)
		if err != nil {
			return fmt.Errorf("failed to marshal documents: %w", err)
		}
		add("documents = documents || $%d::jsonb", string(docsJSON))
	}
	if update.Status != nil {
		statusJSON, err := json.Marshal(update.Status)
		if err != nil {
			return fmt.Errorf("failed to marshal status: %w", err)
		}
		add("status = $%d::jsonb", string(statusJSON))
	}
	if update.NumberOfEmployees != nil {
		add("number_of_employees = $%d", *update.NumberOfEmployees)
	}
	setClauses = append(setClauses, "updated_at = NOW()")

	args = append(args, id)
	sql := "UPDATE payroll_records SET " + strings.Join(setClauses, ", ") + fmt.Sprintf(" WHERE id = $%d", len(args))

	tag, err := q.Exec(ctx, sql, args...)
	if err != nil {
		if isInvalidID(err) {
			return payroll.ErrRecordNotFound
		}
		return fmt.Errorf("failed to update payroll record with id %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return payroll.ErrRecordNotFound
	}
	return nil
}

// InsertMany implements payroll.RecordRepository. The cycle row is locked
// for the duration so concurrent seeds of one cycle run one after another.
func (r *recordRepositoryImpl) InsertMany(ctx context.Context, cycleID string, companyIDs []string) (int, error) {
	if len(companyIDs) == 0 {
		return 0, nil
	}

	var inserted int
	err := WithTransaction(ctx, r.db, func(ctx context.Context) error {
		q := GetQuerier(ctx, r.db)

		var locked string
		err := q.QueryRow(ctx, `SELECT id FROM payroll_cycles WHERE id = $1 FOR UPDATE`, cycleID).Scan(&locked)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) || isInvalidID(err) {
				return payroll.ErrCycleNotFound
			}
			return fmt.Errorf("failed to lock payroll cycle: %w", err)
		}

		query := `
			INSERT INTO payroll_records (payroll_cycle_id, company_id, status)
			SELECT $1::uuid, company_id, '{"status":"pending"}'::jsonb
			FROM unnest($2::uuid[]) AS company_id
			ON CONFLICT ON CONSTRAINT uk_payroll_record_company_cycle DO NOTHING
		`
		tag, err := q.Exec(ctx, query, cycleID, companyIDs)
		if err != nil {
			return fmt.Errorf("failed to seed payroll records: %w", err)
		}
		inserted = int(tag.RowsAffected())
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

func scanRecord(row pgx.Row) (payroll.PayrollRecord, error) {
	var rec payroll.PayrollRecord
	var documentsJSON, statusJSON []byte
	err := row.Scan(
		&rec.ID, &rec.PayrollCycleID, &rec.CompanyID, &rec.CompanyName,
		&documentsJSON, &statusJSON, &rec.NumberOfEmployees,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return payroll.PayrollRecord{}, err
	}

	rec.Documents = make(map[payroll.DocumentSlot]*string)
	if len(documentsJSON) > 0 {
		if err := json.Unmarshal(documentsJSON, &rec.Documents); err != nil {
			return payroll.PayrollRecord{}, fmt.Errorf("invalid documents for record %s: %w", rec.ID, err)
		}
	}
	if len(statusJSON) > 0 {
		if err := json.Unmarshal(statusJSON, &rec.Status); err != nil {
			return payroll.PayrollRecord{}, fmt.Errorf("invalid status for record %s: %w", rec.ID, err)
		}
	}
	return rec, nil
}

// isInvalidID reports a malformed uuid parameter, which can never match a row.
func isInvalidID(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "22P02"
}
