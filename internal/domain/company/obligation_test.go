package company

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyObligation(t *testing.T) {
	cases := []struct {
		status        string
		effectiveFrom string
		want          ObligationBucket
	}{
		{"cancelled", "01/01/2020", ObligationCancelled},
		{"Cancelled", "No Obligation", ObligationCancelled},
		{"dormant", "", ObligationDormant},
		{"dormant", "missing", ObligationDormant},
		{"registered", "No Obligation", ObligationNoObligation},
		{"", "no obligation since 2019", ObligationNoObligation},
		{"registered", "", ObligationMissing},
		{"registered", "  ", ObligationMissing},
		{"registered", "MISSING", ObligationMissing},
		{"registered", "01/01/2020", ObligationActive},
		{"", "2021-07-01", ObligationActive},
		{"unknown", "pending review", ObligationActive},
	}
	for _, c := range cases {
		got := ClassifyObligation(c.status, c.effectiveFrom)
		assert.Equal(t, c.want, got, "ClassifyObligation(%q, %q)", c.status, c.effectiveFrom)
	}
}

func TestClassifyObligation_ExactlyOneBucket(t *testing.T) {
	statuses := []string{"", "cancelled", "dormant", "registered", "CANCELLED"}
	effective := []string{"", "missing", "no obligation", "01/02/2023", "no obligation missing"}

	for _, s := range statuses {
		for _, e := range effective {
			got := ClassifyObligation(s, e)
			assert.Contains(t, ObligationBuckets, got)
		}
	}
}

func TestObligationDetails_ClassifyNil(t *testing.T) {
	var details *ObligationDetails
	assert.Equal(t, ObligationMissing, details.Classify())

	details = &ObligationDetails{CompanyName: "Acme", Status: "registered", EffectiveFrom: "01/01/2022"}
	assert.Equal(t, ObligationActive, details.Classify())
}

func TestParseObligationBucket(t *testing.T) {
	b, err := ParseObligationBucket(" No_Obligation ")
	require.NoError(t, err)
	assert.Equal(t, ObligationNoObligation, b)

	_, err = ParseObligationBucket("overdue")
	assert.ErrorIs(t, err, ErrUnknownObligation)
}
