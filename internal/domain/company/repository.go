package company

import "context"

type CompanyRepository interface {
	GetByID(ctx context.Context, id string) (Company, error)
	List(ctx context.Context) ([]Company, error)
	// ListObligations returns the obligation details known for every company
	// name. Companies without a match are simply absent from the result.
	ListObligations(ctx context.Context) ([]ObligationDetails, error)
}
