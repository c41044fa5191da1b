package company

import (
	"fmt"
	"strings"
)

// ObligationBucket is the tax-obligation classification of a company.
type ObligationBucket string

const (
	ObligationActive       ObligationBucket = "active"
	ObligationCancelled    ObligationBucket = "cancelled"
	ObligationDormant      ObligationBucket = "dormant"
	ObligationNoObligation ObligationBucket = "no_obligation"
	ObligationMissing      ObligationBucket = "missing"
)

// ObligationBuckets lists every bucket in precedence order.
var ObligationBuckets = []ObligationBucket{
	ObligationCancelled,
	ObligationDormant,
	ObligationNoObligation,
	ObligationMissing,
	ObligationActive,
}

// ParseObligationBucket converts a request token into a bucket.
func ParseObligationBucket(value string) (ObligationBucket, error) {
	v := ObligationBucket(strings.ToLower(strings.TrimSpace(value)))
	for _, b := range ObligationBuckets {
		if v == b {
			return b, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownObligation, value)
}

// ClassifyObligation assigns exactly one bucket. The checks are ordered:
// cancelled, dormant, no obligation, missing, then active.
func ClassifyObligation(status, effectiveFrom string) ObligationBucket {
	s := strings.ToLower(strings.TrimSpace(status))
	eff := strings.ToLower(strings.TrimSpace(effectiveFrom))

	switch {
	case s == string(ObligationCancelled):
		return ObligationCancelled
	case s == string(ObligationDormant):
		return ObligationDormant
	case strings.Contains(eff, "no obligation"):
		return ObligationNoObligation
	case eff == "" || strings.Contains(eff, "missing"):
		return ObligationMissing
	default:
		return ObligationActive
	}
}

// Classify returns the bucket of the obligation details, treating a nil
// value (no match by company name) as missing.
func (o *ObligationDetails) Classify() ObligationBucket {
	if o == nil {
		return ObligationMissing
	}
	return ClassifyObligation(o.Status, o.EffectiveFrom)
}
