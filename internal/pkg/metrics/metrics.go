package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors for bulk operations.
type Metrics struct {
	operations *prometheus.CounterVec
	units      *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	inFlight   *prometheus.GaugeVec
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// NewMetrics registers the collectors against registerer. A nil registerer
// uses the default Prometheus registerer.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		defaultOnce.Do(func() {
			defaultMetrics = buildMetrics(prometheus.DefaultRegisterer)
		})
		return defaultMetrics
	}
	return buildMetrics(registerer)
}

// Tracker instruments a single operation run.
type Tracker struct {
	metrics *Metrics
	kind    string
	start   time.Time
}

// Track starts tracking an operation of the given kind.
func (m *Metrics) Track(kind string) *Tracker {
	if m == nil {
		return &Tracker{kind: kind, start: time.Now()}
	}
	m.inFlight.WithLabelValues(kind).Inc()
	return &Tracker{metrics: m, kind: kind, start: time.Now()}
}

// Unit records the outcome of one unit.
func (t *Tracker) Unit(err error) {
	if t == nil || t.metrics == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	t.metrics.units.WithLabelValues(t.kind, result).Inc()
}

// End records the terminal state and duration of the operation.
func (t *Tracker) End(state string) {
	if t == nil || t.metrics == nil {
		return
	}
	t.metrics.inFlight.WithLabelValues(t.kind).Dec()
	t.metrics.operations.WithLabelValues(t.kind, state).Inc()
	t.metrics.duration.WithLabelValues(t.kind).Observe(time.Since(t.start).Seconds())
}

func buildMetrics(registerer prometheus.Registerer) *Metrics {
	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "filing_bulk_operations_total",
		Help: "Total bulk operations partitioned by kind and terminal state.",
	}, []string{"kind", "state"})
	units := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "filing_bulk_units_total",
		Help: "Total bulk units processed partitioned by kind and result.",
	}, []string{"kind", "result"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "filing_bulk_operation_duration_seconds",
		Help:    "Duration in seconds of bulk operations.",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})
	inFlight := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "filing_bulk_operations_in_flight",
		Help: "Bulk operations currently running.",
	}, []string{"kind"})
	registerer.MustRegister(operations, units, duration, inFlight)
	return &Metrics{operations: operations, units: units, duration: duration, inFlight: inFlight}
}
