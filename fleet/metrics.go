package fleet

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// declarationsTotal counts finished declarations by outcome.
	declarationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "statecrawler_fleet_declarations_total",
		Help: "Total number of declarations verified by a fleet run, by outcome (passed, failed)",
	}, []string{"outcome"})

	// inFlight tracks declarations currently being verified.
	inFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "statecrawler_fleet_in_flight",
		Help: "Number of declarations currently being verified",
	})
)

func outcome(passed bool) string {
	if passed {
		return "passed"
	}

	return "failed"
}
