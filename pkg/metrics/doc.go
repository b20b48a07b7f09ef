// Package metrics provides Prometheus instrumentation for fibertask components.
//
// # Overview
//
// The Registry exposes instruments for the scheduler's task flow (submitted,
// executed, stolen), the fiber lifecycle (switches, waits, resumes, pool
// occupancy) and the pool shape (worker count). Per-worker instruments are
// labelled with the worker index.
//
// # Quick Start
//
// Enable metrics through the scheduler configuration:
//
//	cfg := taskscheduler.Config{
//		FiberPoolSize: 25,
//		Metrics:       metrics.DefaultConfig(),
//	}
//	taskscheduler.Run(cfg, mainTask, nil)
//
// Then expose metrics via HTTP:
//
//	http.Handle("/metrics", promhttp.Handler())
//	log.Fatal(http.ListenAndServe(":8080", nil))
//
// # Custom Registry
//
// Use a custom Prometheus registry for isolation:
//
//	registry := prometheus.NewRegistry()
//	cfg.Metrics = metrics.Config{
//		Enabled:  true,
//		Registry: registry,
//	}
//
// # Available Metrics
//
//   - fibertask_scheduler_tasks_submitted_total
//   - fibertask_scheduler_tasks_executed_total{worker}
//   - fibertask_scheduler_tasks_stolen_total{worker}
//   - fibertask_scheduler_workers
//   - fibertask_fiber_switches_total{worker}
//   - fibertask_fiber_waits_total
//   - fibertask_fiber_ready_resumes_total
//   - fibertask_fiber_pinned_resumes_total
//   - fibertask_fiber_pool_in_use
//
// # Performance
//
// Instruments on the hot path are resolved to per-worker children once at
// startup, so a task execution costs one counter increment. With metrics
// disabled (the default) the scheduler skips instrumentation entirely.
package metrics
