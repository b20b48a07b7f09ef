// Package metrics provides Prometheus instrumentation for fibertask components.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds all metric instances for the scheduler.
type Registry struct {
	// Task flow
	TasksSubmitted prometheus.Counter
	TasksExecuted  *prometheus.CounterVec
	TasksStolen    *prometheus.CounterVec

	// Fiber lifecycle
	FiberSwitches  *prometheus.CounterVec
	FiberWaits     prometheus.Counter
	ReadyResumes   prometheus.Counter
	PinnedResumes  prometheus.Counter
	FiberPoolInUse prometheus.Gauge

	// Pool shape
	Workers prometheus.Gauge
}

// DefaultRegistry is the default metrics registry used by fibertask components.
var DefaultRegistry *Registry

func init() {
	DefaultRegistry = NewRegistry(prometheus.DefaultRegisterer)
}

// NewRegistry creates a new metrics registry with the given Prometheus registerer.
func NewRegistry(reg prometheus.Registerer) *Registry {
	factory := promauto.With(reg)

	return &Registry{
		TasksSubmitted: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "fibertask",
				Subsystem: "scheduler",
				Name:      "tasks_submitted_total",
				Help:      "Total number of tasks submitted to the scheduler",
			},
		),

		TasksExecuted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "fibertask",
				Subsystem: "scheduler",
				Name:      "tasks_executed_total",
				Help:      "Total number of task functions run to completion",
			},
			[]string{"worker"},
		),

		TasksStolen: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "fibertask",
				Subsystem: "scheduler",
				Name:      "tasks_stolen_total",
				Help:      "Total number of tasks stolen from other workers' queues",
			},
			[]string{"worker"},
		),

		FiberSwitches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "fibertask",
				Subsystem: "fiber",
				Name:      "switches_total",
				Help:      "Total number of fiber context switches",
			},
			[]string{"worker"},
		),

		FiberWaits: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "fibertask",
				Subsystem: "fiber",
				Name:      "waits_total",
				Help:      "Total number of waits that parked a fiber",
			},
		),

		ReadyResumes: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "fibertask",
				Subsystem: "fiber",
				Name:      "ready_resumes_total",
				Help:      "Total number of unpinned fibers resumed from ready lists",
			},
		),

		PinnedResumes: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "fibertask",
				Subsystem: "fiber",
				Name:      "pinned_resumes_total",
				Help:      "Total number of pinned fibers resumed on their parking worker",
			},
		),

		FiberPoolInUse: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "fibertask",
				Subsystem: "fiber",
				Name:      "pool_in_use",
				Help:      "Number of fibers currently checked out of the pool",
			},
		),

		Workers: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "fibertask",
				Subsystem: "scheduler",
				Name:      "workers",
				Help:      "Number of worker threads in the pool",
			},
		),
	}
}

// WorkerLabel converts a worker index to the label value used by the
// per-worker metric vectors.
func WorkerLabel(i int) string {
	return strconv.Itoa(i)
}
