package company

import "time"

// Category is a service line a company can be a client of.
type Category string

const (
	CategoryAccounting  Category = "accounting"
	CategoryAuditTax    Category = "audit_tax"
	CategoryLegal       Category = "legal"
	CategoryImmigration Category = "immigration"
)

// Categories lists every known service category.
var Categories = []Category{
	CategoryAccounting,
	CategoryAuditTax,
	CategoryLegal,
	CategoryImmigration,
}

// IsValid reports whether c is a known category.
func (c Category) IsValid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// CategoryWindow is the membership window of a company in a category.
// Either bound may be empty when it was never recorded.
type CategoryWindow struct {
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
}

// HasWindow reports whether any bound of the window is recorded.
func (w CategoryWindow) HasWindow() bool {
	return w.From != "" || w.To != ""
}

type Company struct {
	ID         string
	Name       string
	Categories map[Category]CategoryWindow
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Window returns the membership window for a category and whether the
// company participates in it at all.
func (c Company) Window(category Category) (CategoryWindow, bool) {
	w, ok := c.Categories[category]
	if !ok || !w.HasWindow() {
		return CategoryWindow{}, false
	}
	return w, true
}

// ObligationDetails is the tax-obligation registration of a company.
// It is joined to companies by name, not by foreign key.
type ObligationDetails struct {
	CompanyName   string
	Status        string
	EffectiveFrom string
}
