package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// triggersTotal labels: trigger (boundary, command, retry), disposition (accepted, in_flight, duplicate, ignored, lock_busy)
	triggersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "callrota",
		Subsystem: "orchestrator",
		Name:      "triggers_total",
		Help:      "Apply triggers by disposition",
	}, []string{"trigger", "disposition"})

	// finishedTotal labels: result_code
	finishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "callrota",
		Subsystem: "orchestrator",
		Name:      "attempts_finished_total",
		Help:      "Finished apply attempts by result code",
	}, []string{"result_code"})

	transitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "callrota",
		Subsystem: "orchestrator",
		Name:      "transitions_total",
		Help:      "State machine transitions by target state",
	}, []string{"state"})

	confirmSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "callrota",
		Subsystem: "orchestrator",
		Name:      "confirm_seconds",
		Help:      "Dial to confirmation latency",
		Buckets:   []float64{1, 2, 5, 10, 20, 30, 45, 60},
	})

	// statusWrites labels: result (written, suppressed, failed)
	statusWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "callrota",
		Subsystem: "orchestrator",
		Name:      "status_writes_total",
		Help:      "Status snapshots by write result",
	}, []string{"result"})
)
