package filter

import (
	"sort"
	"strings"
	"time"

	"github.com/cmlabs-hris/filing-tracker-go/internal/domain/company"
	"github.com/cmlabs-hris/filing-tracker-go/internal/domain/payroll"
	"github.com/cmlabs-hris/filing-tracker-go/internal/pkg/validator"
)

const (
	suffixActive   = "_status_active"
	suffixInactive = "_status_inactive"
)

// Criteria selects records. Groups combine with AND, tokens within a group
// with OR. Empty groups match everything.
type Criteria struct {
	SearchTerm string
	// Categories holds bare category tokens ("legal") or tokens with a
	// status suffix ("legal_status_active", "legal_status_inactive").
	Categories  []string
	Obligations []company.ObligationBucket
}

// ParseCriteria builds criteria from comma separated query values.
func ParseCriteria(search, categories, obligations string) (Criteria, error) {
	c := Criteria{
		SearchTerm: strings.TrimSpace(search),
		Categories: validator.SplitList(categories),
	}
	for _, token := range validator.SplitList(obligations) {
		b, err := company.ParseObligationBucket(token)
		if err != nil {
			return Criteria{}, err
		}
		c.Obligations = append(c.Obligations, b)
	}
	return c, nil
}

// IsOpen reports whether only the search term restricts the result.
func (c Criteria) IsOpen() bool {
	return len(c.Categories) == 0 && len(c.Obligations) == 0
}

// key is an order independent identity of the criteria.
func (c Criteria) key() string {
	cats := make([]string, len(c.Categories))
	for i, t := range c.Categories {
		cats[i] = strings.ToLower(strings.TrimSpace(t))
	}
	sort.Strings(cats)

	obls := make([]string, len(c.Obligations))
	for i, b := range c.Obligations {
		obls[i] = string(b)
	}
	sort.Strings(obls)

	return strings.ToLower(c.SearchTerm) + "\x00" + strings.Join(cats, ",") + "\x00" + strings.Join(obls, ",")
}

// Matches applies the search, category and obligation groups in order.
func Matches(v payroll.RecordView, c Criteria, now time.Time) bool {
	return matchesSearch(v, c.SearchTerm) &&
		matchesCategories(v.Company, c.Categories, now) &&
		matchesObligations(v, c.Obligations)
}

// Apply returns the views matching c, keeping their order.
func Apply(views []payroll.RecordView, c Criteria, now time.Time) []payroll.RecordView {
	out := make([]payroll.RecordView, 0, len(views))
	for _, v := range views {
		if Matches(v, c, now) {
			out = append(out, v)
		}
	}
	return out
}

func matchesSearch(v payroll.RecordView, term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	name := v.Company.Name
	if name == "" {
		name = v.Record.CompanyName
	}
	return strings.Contains(strings.ToLower(name), term)
}

func matchesCategories(c company.Company, tokens []string, now time.Time) bool {
	if len(tokens) == 0 {
		return true
	}
	for _, token := range tokens {
		if matchesCategoryToken(c, token, now) {
			return true
		}
	}
	return false
}

func matchesCategoryToken(c company.Company, token string, now time.Time) bool {
	token = strings.ToLower(strings.TrimSpace(token))

	wantActive, wantInactive := false, false
	switch {
	case strings.HasSuffix(token, suffixActive):
		token, wantActive = strings.TrimSuffix(token, suffixActive), true
	case strings.HasSuffix(token, suffixInactive):
		token, wantInactive = strings.TrimSuffix(token, suffixInactive), true
	}

	category := company.Category(token)
	if !category.IsValid() {
		return false
	}
	w, ok := c.Window(category)
	if !ok {
		return false
	}

	switch {
	case wantActive:
		return w.IsActive(now)
	case wantInactive:
		return !w.IsActive(now)
	default:
		return true
	}
}

func matchesObligations(v payroll.RecordView, buckets []company.ObligationBucket) bool {
	if len(buckets) == 0 {
		return true
	}
	bucket := v.ObligationBucket()
	for _, b := range buckets {
		if b == bucket {
			return true
		}
	}
	return false
}
