// Package metrics exposes Prometheus instrumentation for the swap engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SwapsProposed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "slotswapper_swaps_proposed_total",
		Help: "Total number of swap requests successfully created.",
	})

	SwapsResolved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "slotswapper_swaps_resolved_total",
		Help: "Total number of swap requests resolved, labelled by outcome.",
	}, []string{"outcome"})

	SwapConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "slotswapper_swap_conflicts_total",
		Help: "Total number of swap operations aborted by a concurrent race.",
	})

	CompetingSwept = promauto.NewCounter(prometheus.CounterOpts{
		Name: "slotswapper_competing_requests_swept_total",
		Help: "Total number of competing pending requests auto-rejected by an accept.",
	})
)
