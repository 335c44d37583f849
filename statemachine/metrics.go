package statemachine

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/zeebo/xxh3"
)

// Metric outcome constants.
const (
	outcomeSuccess     = "success"
	outcomeError       = "error"
	outcomeUnreachable = "unreachable"
	outcomeCancelled   = "cancelled"
)

// Metric definitions with appropriate labels.
var (
	// stepsTotal tracks executed steps by edge and outcome.
	stepsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "statecrawler_steps_total",
		Help: "Total number of transition steps by crawler, from_state, to_state and outcome",
	}, []string{"crawler", "from_state", "to_state", "outcome"})

	// stepDuration tracks the time spent in an action plus its verification.
	stepDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "statecrawler_step_duration_seconds",
		Help:    "Duration of a transition step (action and verification) by crawler and outcome",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"crawler", "outcome"})

	// movesTotal tracks moves by outcome.
	movesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "statecrawler_moves_total",
		Help: "Total number of moves by crawler and outcome (success, error, unreachable, cancelled)",
	}, []string{"crawler", "outcome"})

	// errorStatesGauge tracks the number of states currently known to be unreachable.
	errorStatesGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "statecrawler_error_states",
		Help: "Number of states currently known to be unreachable by crawler and run",
	}, []string{"crawler", "run_id_hash"})

	// runDuration tracks end-to-end verification runs.
	runDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "statecrawler_run_duration_seconds",
		Help:    "Duration of a verify-all run by crawler and outcome",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
	}, []string{"crawler", "outcome"})
)

// Helper functions for label sanitization.
func sanitizeCrawler(name string) string {
	if name == "" {
		return "unknown"
	}

	return name
}

func sanitizeRunID(runID string) string {
	if runID == "" {
		return "none"
	}

	return fmt.Sprintf("%016x", xxh3.HashString(runID))[:8]
}

func sanitizeState(state string) string {
	if state == "" {
		return "none"
	}

	return state
}

func outcomeOf(err error) string {
	if err == nil {
		return outcomeSuccess
	}

	return outcomeError
}
