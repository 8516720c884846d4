package wait

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks orchestrator activity.
//
// Metrics:
//   - <namespace>_wait_outcomes_total{operation,status}
//   - <namespace>_wait_candidates_total{classification}
//   - <namespace>_wait_scan_duration_seconds{operation}
type Metrics struct {
	outcomesTotal   *prometheus.CounterVec
	candidatesTotal *prometheus.CounterVec
	scanDuration    *prometheus.HistogramVec
}

// NewMetrics creates orchestrator metrics and registers them when registry
// is not nil.
func NewMetrics(namespace string, registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		outcomesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "wait_outcomes_total",
				Help:      "Total number of resolved waits and counts by status",
			},
			[]string{"operation", "status"},
		),
		candidatesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "wait_candidates_total",
				Help:      "Total number of scanned candidates by classification",
			},
			[]string{"classification"},
		),
		scanDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "wait_scan_duration_seconds",
				Help:      "Duration of stream scans",
				Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 15, 60},
			},
			[]string{"operation"},
		),
	}
	if registry != nil {
		registry.MustRegister(m.outcomesTotal, m.candidatesTotal, m.scanDuration)
	}
	return m
}

// RecordOutcome records a resolved operation.
func (m *Metrics) RecordOutcome(operation, status string) {
	if m == nil {
		return
	}
	m.outcomesTotal.WithLabelValues(operation, status).Inc()
}

// RecordCandidate records one scanned candidate.
func (m *Metrics) RecordCandidate(classification string) {
	if m == nil {
		return
	}
	m.candidatesTotal.WithLabelValues(classification).Inc()
}

// ObserveScan records how long a scan took.
func (m *Metrics) ObserveScan(operation string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.scanDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}
