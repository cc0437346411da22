// Package metrics exposes Prometheus instrumentation for the engine's polling
// loops and a Redis-backed implementation of the daily analytics counters.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// LoopMetrics instruments the four engine polling loops. Every loop tick
// records its duration and the number of items it processed; failures are
// counted per loop so one noisy workflow is visible without log diving.
type LoopMetrics struct {
	TickDuration   *prometheus.HistogramVec
	ItemsProcessed *prometheus.CounterVec
	ItemFailures   *prometheus.CounterVec
	Executions     *prometheus.CounterVec
}

// NewLoopMetrics registers the engine collectors on the given registerer. Pass
// prometheus.DefaultRegisterer in binaries and a fresh registry in tests.
func NewLoopMetrics(reg prometheus.Registerer) *LoopMetrics {
	factory := promauto.With(reg)

	return &LoopMetrics{
		TickDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "dripflow",
			Subsystem: "engine",
			Name:      "loop_tick_duration_seconds",
			Help:      "Duration of one polling loop tick.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"loop"}),
		ItemsProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dripflow",
			Subsystem: "engine",
			Name:      "loop_items_processed_total",
			Help:      "Items handled by each polling loop.",
		}, []string{"loop"}),
		ItemFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dripflow",
			Subsystem: "engine",
			Name:      "loop_item_failures_total",
			Help:      "Items that failed in each polling loop.",
		}, []string{"loop"}),
		Executions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dripflow",
			Subsystem: "engine",
			Name:      "executions_total",
			Help:      "Executions finished, by terminal status.",
		}, []string{"status"}),
	}
}
