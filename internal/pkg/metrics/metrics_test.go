package metrics_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmlabs-hris/filing-tracker-go/internal/pkg/metrics"
)

func TestTracker(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg)

	tracker := m.Track("extract")
	tracker.Unit(nil)
	tracker.Unit(nil)
	tracker.Unit(errors.New("boom"))
	tracker.End("partial_success")

	expected := `
# HELP filing_bulk_units_total Total bulk units processed partitioned by kind and result.
# TYPE filing_bulk_units_total counter
filing_bulk_units_total{kind="extract",result="failure"} 1
filing_bulk_units_total{kind="extract",result="success"} 2
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "filing_bulk_units_total"))

	expected = `
# HELP filing_bulk_operations_total Total bulk operations partitioned by kind and terminal state.
# TYPE filing_bulk_operations_total counter
filing_bulk_operations_total{kind="extract",state="partial_success"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "filing_bulk_operations_total"))

	count, err := testutil.GatherAndCount(reg, "filing_bulk_operations_in_flight")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *metrics.Metrics
	tracker := m.Track("export")
	assert.NotPanics(t, func() {
		tracker.Unit(nil)
		tracker.End("completed")
	})
}
