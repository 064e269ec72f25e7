package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	transitionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "phasebook",
		Subsystem: "workflow",
		Name:      "transitions_total",
		Help:      "Phase status transitions by target status.",
	}, []string{"to"})
	operationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "phasebook",
		Subsystem: "workflow",
		Name:      "operations_total",
		Help:      "State machine operations applied, by operation.",
	}, []string{"op"})
	phasesCompleted = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "phasebook",
		Subsystem: "workflow",
		Name:      "phases_completed",
		Help:      "Number of phases currently completed.",
	})
	generationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "phasebook",
		Subsystem: "generation",
		Name:      "requests_total",
		Help:      "Generation requests by outcome.",
	}, []string{"outcome"})
	generationDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "phasebook",
		Subsystem: "generation",
		Name:      "duration_seconds",
		Help:      "Latency of generation provider calls.",
		Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80},
	})
	exportsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "phasebook",
		Subsystem: "document",
		Name:      "exports_total",
		Help:      "Documents exported to disk.",
	})
)

func init() {
	prometheus.MustRegister(
		transitionsTotal,
		operationsTotal,
		phasesCompleted,
		generationsTotal,
		generationDuration,
		exportsTotal,
	)
}

// RecordOperation counts one applied state machine operation.
func RecordOperation(op string) {
	operationsTotal.WithLabelValues(op).Inc()
}

// RecordTransition counts a status change.
func RecordTransition(to string) {
	transitionsTotal.WithLabelValues(to).Inc()
}

// SetPhasesCompleted updates the completed phases gauge.
func SetPhasesCompleted(n int) {
	phasesCompleted.Set(float64(n))
}

// RecordGeneration observes one provider call. outcome is "ok" or an error class.
func RecordGeneration(outcome string, elapsed time.Duration) {
	generationsTotal.WithLabelValues(outcome).Inc()
	if elapsed > 0 {
		generationDuration.Observe(elapsed.Seconds())
	}
}

// RecordExport counts a written document.
func RecordExport() {
	exportsTotal.Inc()
}
