package postgresql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/filing-tracker-go/internal/domain/company"
	"github.com/cmlabs-hris/filing-tracker-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type companyRepositoryImpl struct {
	db *database.DB
}

func NewCompanyRepository(db *database.DB) company.CompanyRepository {
	return &companyRepositoryImpl{db: db}
}

// GetByID implements company.CompanyRepository.
func (c *companyRepositoryImpl) GetByID(ctx context.Context, id string) (company.Company, error) {
	q := GetQuerier(ctx, c.db)

	query := `
		SELECT id, name, categories, created_at, updated_at
		FROM companies
		WHERE id = $1
	`

	comp, err := scanCompany(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidID(err) {
			return company.Company{}, company.ErrCompanyNotFound
		}
		return company.Company{}, fmt.Errorf("failed to get company with id %s: %w", id, err)
	}
	return comp, nil
}

// List implements company.CompanyRepository.
func (c *companyRepositoryImpl) List(ctx context.Context) ([]company.Company, error) {
	q := GetQuerier(ctx, c.db)

	query := `
		SELECT id, name, categories, created_at, updated_at
		FROM companies
		ORDER BY name ASC
	`

	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}
	defer rows.Close()

	var companies []company.Company
	for rows.Next() {
		comp, err := scanCompany(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan company: %w", err)
		}
		companies = append(companies, comp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating companies: %w", err)
	}

	return companies, nil
}

// ListObligations implements company.CompanyRepository.
func (c *companyRepositoryImpl) ListObligations(ctx context.Context) ([]company.ObligationDetails, error) {
	q := GetQuerier(ctx, c.db)

	rows, err := q.Query(ctx, `SELECT company_name, status, effective_from FROM obligation_details`)
	if err != nil {
		return nil, fmt.Errorf("failed to list obligation details: %w", err)
	}
	defer rows.Close()

	var details []company.ObligationDetails
	for rows.Next() {
		var d company.ObligationDetails
		if err := rows.Scan(&d.CompanyName, &d.Status, &d.EffectiveFrom); err != nil {
			return nil, fmt.Errorf("failed to scan obligation details: %w", err)
		}
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating obligation details: %w", err)
	}

	return details, nil
}

func scanCompany(row pgx.Row) (company.Company, error) {
	var comp company.Company
	var categoriesJSON []byte
	if err := row.Scan(&comp.ID, &comp.Name, &categoriesJSON, &comp.CreatedAt, &comp.UpdatedAt); err != nil {
		return company.Company{}, err
	}
	if len(categoriesJSON) > 0 {
		if err := json.Unmarshal(categoriesJSON, &comp.Categories); err != nil {
			return company.Company{}, fmt.Errorf("invalid categories for company %s: %w", comp.ID, err)
		}
	}
	return comp, nil
}
