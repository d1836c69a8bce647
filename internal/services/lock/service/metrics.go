package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// acquireTotal labels: outcome (acquired, adopted, busy, error)
	acquireTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "callrota",
		Subsystem: "lock",
		Name:      "acquire_total",
		Help:      "Apply lock acquisitions by outcome",
	}, []string{"outcome"})

	// releaseTotal labels: outcome (released, noop, error)
	releaseTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "callrota",
		Subsystem: "lock",
		Name:      "release_total",
		Help:      "Apply lock releases by outcome",
	}, []string{"outcome"})
)

func releaseOutcome(ok bool, err error) string {
	switch {
	case err != nil:
		return "error"
	case ok:
		return "released"
	default:
		return "noop"
	}
}
