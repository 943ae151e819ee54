// Package telemetry carries the ambient observability stack: Prometheus
// counters/gauges for a running simulation and a read-only websocket feed
// of per-tick world snapshots. Neither touches simulation state beyond
// reading it after a tick completes.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collectors are the metrics a running Simulator reports once --metrics-addr
// is set.
type Collectors struct {
	TicksTotal       prometheus.Counter
	TasksCompleted   prometheus.Gauge
	TasksRemaining   prometheus.Gauge
	AgentsDistance   prometheus.Gauge
	TickDuration     prometheus.Histogram
	GenerationRounds prometheus.Counter
}

// NewCollectors registers a fresh set of collectors against reg, labeled
// with the run's id and strategy so collectors of several runs registered
// against one registry don't collide.
func NewCollectors(reg prometheus.Registerer, runID, strategy string) *Collectors {
	labels := prometheus.Labels{"run_id": runID, "strategy": strategy}
	factory := promauto.With(reg)

	return &Collectors{
		TicksTotal: factory.NewCounter(prometheus.CounterOpts{
			Name:        "space_ticks_total",
			Help:        "Number of simulation ticks processed.",
			ConstLabels: labels,
		}),
		TasksCompleted: factory.NewGauge(prometheus.GaugeOpts{
			Name:        "space_tasks_completed",
			Help:        "Number of tasks completed so far.",
			ConstLabels: labels,
		}),
		TasksRemaining: factory.NewGauge(prometheus.GaugeOpts{
			Name:        "space_tasks_remaining",
			Help:        "Number of incomplete tasks.",
			ConstLabels: labels,
		}),
		AgentsDistance: factory.NewGauge(prometheus.GaugeOpts{
			Name:        "space_agents_total_distance_moved",
			Help:        "Sum of distance moved across all agents.",
			ConstLabels: labels,
		}),
		TickDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:        "space_tick_duration_seconds",
			Help:        "Wall-clock duration of a single simulation tick.",
			ConstLabels: labels,
			Buckets:     prometheus.DefBuckets,
		}),
		GenerationRounds: factory.NewCounter(prometheus.CounterOpts{
			Name:        "space_task_generation_rounds_total",
			Help:        "Number of dynamic task generation rounds fired.",
			ConstLabels: labels,
		}),
	}
}
