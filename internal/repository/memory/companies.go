// Package memory holds in-process record and company stores. They back
// tests and local runs without a database.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/cmlabs-hris/filing-tracker-go/internal/domain/company"
	"github.com/google/uuid"
)

// CompanyStore implements company.CompanyRepository.
type CompanyStore struct {
	mu          sync.RWMutex
	companies   map[string]company.Company
	obligations map[string]company.ObligationDetails
}

var _ company.CompanyRepository = (*CompanyStore)(nil)

func NewCompanyStore() *CompanyStore {
	return &CompanyStore{
		companies:   make(map[string]company.Company),
		obligations: make(map[string]company.ObligationDetails),
	}
}

// AddCompany stores c, assigning an ID when empty.
func (s *CompanyStore) AddCompany(c company.Company) company.Company {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	s.companies[c.ID] = c
	return c
}

func (s *CompanyStore) AddObligation(d company.ObligationDetails) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.obligations[d.CompanyName] = d
}

func (s *CompanyStore) GetByID(ctx context.Context, id string) (company.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.companies[id]
	if !ok {
		return company.Company{}, company.ErrCompanyNotFound
	}
	return c, nil
}

func (s *CompanyStore) List(ctx context.Context) ([]company.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]company.Company, 0, len(s.companies))
	for _, c := range s.companies {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *CompanyStore) ListObligations(ctx context.Context) ([]company.ObligationDetails, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]company.ObligationDetails, 0, len(s.obligations))
	for _, d := range s.obligations {
		out = append(out, d)
	}
	return out, nil
}

func (s *CompanyStore) name(id string) string {
	if s == nil {
		return ""
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.companies[id].Name
}
