package filter

import (
	"testing"
	"time"

	"github.com/cmlabs-hris/filing-tracker-go/internal/domain/company"
	"github.com/cmlabs-hris/filing-tracker-go/internal/domain/payroll"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, time.May, 15, 12, 0, 0, 0, time.Local)

func view(id, name string, cats map[company.Category]company.CategoryWindow, obl *company.ObligationDetails) payroll.RecordView {
	return payroll.RecordView{
		Record:     payroll.PayrollRecord{ID: id, CompanyName: name},
		Company:    company.Company{ID: "c-" + id, Name: name, Categories: cats},
		Obligation: obl,
	}
}

func testViews() []payroll.RecordView {
	return []payroll.RecordView{
		view("1", "Acme Ltd", map[company.Category]company.CategoryWindow{
			company.CategoryAccounting: {From: "01/01/2024", To: "31/12/2024"},
			company.CategoryLegal:      {From: "2019-01-01", To: "2020-12-31"},
		}, &company.ObligationDetails{CompanyName: "Acme Ltd", Status: "Registered", EffectiveFrom: "01/01/2019"}),
		view("2", "Beta Traders", nil,
			&company.ObligationDetails{CompanyName: "Beta Traders", Status: "CANCELLED", EffectiveFrom: "01/01/2019"}),
		view("3", "Acme Holdings", map[company.Category]company.CategoryWindow{
			company.CategoryAuditTax: {From: "2025-01-01", To: "2025-12-31"},
		}, &company.ObligationDetails{CompanyName: "Acme Holdings", EffectiveFrom: "No Obligation"}),
		view("4", "Gamma Foods", map[company.Category]company.CategoryWindow{
			company.CategoryLegal: {From: "2024-05-15", To: "2024-05-15"},
		}, nil),
	}
}

func ids(views []payroll.RecordView) []string {
	out := make([]string, 0, len(views))
	for _, v := range views {
		out = append(out, v.Record.ID)
	}
	return out
}

func TestApply(t *testing.T) {
	tests := []struct {
		name     string
		criteria Criteria
		want     []string
	}{
		{"empty criteria", Criteria{}, []string{"1", "2", "3", "4"}},
		{"search is case insensitive", Criteria{SearchTerm: "aCmE"}, []string{"1", "3"}},
		{"bare category includes inactive windows", Criteria{Categories: []string{"legal"}}, []string{"1", "4"}},
		{"active category", Criteria{Categories: []string{"legal_status_active"}}, []string{"4"}},
		{"inactive category", Criteria{Categories: []string{"legal_status_inactive"}}, []string{"1"}},
		{"future window is inactive", Criteria{Categories: []string{"audit_tax_status_inactive"}}, []string{"3"}},
		{"categories combine with OR", Criteria{Categories: []string{"accounting_status_active", "audit_tax"}}, []string{"1", "3"}},
		{"unknown category matches nothing", Criteria{Categories: []string{"payroll"}}, []string{}},
		{"unknown token does not block others", Criteria{Categories: []string{"payroll", "accounting"}}, []string{"1"}},
		{"obligations combine with OR", Criteria{Obligations: []company.ObligationBucket{company.ObligationCancelled, company.ObligationMissing}}, []string{"2", "4"}},
		{"groups combine with AND", Criteria{SearchTerm: "acme", Categories: []string{"accounting", "audit_tax"}, Obligations: []company.ObligationBucket{company.ObligationNoObligation}}, []string{"3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Apply(testViews(), tt.criteria, now)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestApply_FiltersOnlyShrinkTheSearchResult(t *testing.T) {
	views := testViews()
	tokens := []string{"", "legal", "legal_status_active", "accounting_status_inactive", "immigration", "bogus"}
	buckets := append([]company.ObligationBucket{""}, company.ObligationBuckets...)

	for _, search := range []string{"", "acme", "zzz"} {
		base := Apply(views, Criteria{SearchTerm: search}, now)
		allowed := map[string]bool{}
		for _, id := range ids(base) {
			allowed[id] = true
		}

		for _, token := range tokens {
			for _, bucket := range buckets {
				c := Criteria{SearchTerm: search}
				if token != "" {
					c.Categories = []string{token}
				}
				if bucket != "" {
					c.Obligations = []company.ObligationBucket{bucket}
				}
				got := Apply(views, c, now)
				assert.LessOrEqual(t, len(got), len(base))
				for _, id := range ids(got) {
					assert.True(t, allowed[id], "record %s not in search-only result", id)
				}
				if c.IsOpen() {
					assert.Len(t, got, len(base))
				}
			}
		}
	}
}

func TestApply_IsOrderIndependent(t *testing.T) {
	a := Criteria{Categories: []string{"legal", "accounting"}, Obligations: []company.ObligationBucket{company.ObligationActive, company.ObligationMissing}}
	b := Criteria{Categories: []string{"accounting", "legal"}, Obligations: []company.ObligationBucket{company.ObligationMissing, company.ObligationActive}}

	assert.Equal(t, ids(Apply(testViews(), a, now)), ids(Apply(testViews(), b, now)))
	assert.Equal(t, a.key(), b.key())
}

func TestParseCriteria(t *testing.T) {
	c, err := ParseCriteria(" acme ", "legal, accounting_status_active,", "active,MISSING")
	require.NoError(t, err)
	assert.Equal(t, "acme", c.SearchTerm)
	assert.Equal(t, []string{"legal", "accounting_status_active"}, c.Categories)
	assert.Equal(t, []company.ObligationBucket{company.ObligationActive, company.ObligationMissing}, c.Obligations)

	_, err = ParseCriteria("", "", "overdue")
	assert.ErrorIs(t, err, company.ErrUnknownObligation)
}

func TestEngine_Memoizes(t *testing.T) {
	e := NewEngine(4)
	views := testViews()
	c := Criteria{SearchTerm: "acme"}

	first := e.Apply("cycle-1", views, c, now)
	second := e.Apply("cycle-1", views, c, now.Add(time.Hour))
	assert.Equal(t, ids(first), ids(second))

	hits, misses := e.Stats()
	assert.Equal(t, uint64(1), hits)
	assert.Equal(t, uint64(1), misses)
}

func TestEngine_NewGenerationOnRecordChange(t *testing.T) {
	e := NewEngine(4)
	views := testViews()
	c := Criteria{Categories: []string{"legal"}}

	e.Apply("cycle-1", views, c, now)
	assert.Equal(t, uint64(0), e.Generation("cycle-1"))

	views[1].Company.Categories = map[company.Category]company.CategoryWindow{
		company.CategoryLegal: {From: "2024-01-01", To: "2024-12-31"},
	}
	got := e.Apply("cycle-1", views, c, now)
	assert.Equal(t, []string{"1", "2", "4"}, ids(got))
	assert.Equal(t, uint64(1), e.Generation("cycle-1"))

	hits, _ := e.Stats()
	assert.Equal(t, uint64(0), hits)
}

func TestEngine_DayBoundaryRecomputes(t *testing.T) {
	e := NewEngine(4)
	views := testViews()
	c := Criteria{Categories: []string{"legal_status_active"}}

	assert.Equal(t, []string{"4"}, ids(e.Apply("cycle-1", views, c, now)))
	assert.Empty(t, e.Apply("cycle-1", views, c, now.AddDate(0, 0, 1)))

	hits, misses := e.Stats()
	assert.Equal(t, uint64(0), hits)
	assert.Equal(t, uint64(2), misses)
}

func TestEngine_HitReturnsCurrentRecordState(t *testing.T) {
	e := NewEngine(4)
	views := testViews()
	c := Criteria{SearchTerm: "acme"}

	e.Apply("cycle-1", views, c, now)

	path := "2024-05/PREP DOCS/Acme Ltd/PAYE.pdf"
	views[0].Record.Status = payroll.Status{Status: payroll.StatusCompleted}
	views[0].Record.Documents = map[payroll.DocumentSlot]*string{payroll.SlotPAYE: &path}
	got := e.Apply("cycle-1", views, c, now)

	require.Equal(t, []string{"1", "3"}, ids(got))
	assert.Equal(t, payroll.StatusCompleted, got[0].Record.Status.Status)
	assert.Equal(t, path, got[0].Record.DocumentPath(payroll.SlotPAYE))
	assert.Equal(t, uint64(0), e.Generation("cycle-1"), "status and documents are not filter inputs")

	hits, misses := e.Stats()
	assert.Equal(t, uint64(1), hits)
	assert.Equal(t, uint64(1), misses)
}
