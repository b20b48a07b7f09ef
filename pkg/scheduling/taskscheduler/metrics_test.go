package taskscheduler

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/vnykmshr/fibertask/internal/testutil"
	"github.com/vnykmshr/fibertask/pkg/metrics"
)

func gatherSum(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	testutil.AssertNoError(t, err)

	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		var sum float64
		for _, m := range mf.GetMetric() {
			switch mf.GetType() {
			case dto.MetricType_COUNTER:
				sum += m.GetCounter().GetValue()
			case dto.MetricType_GAUGE:
				sum += m.GetGauge().GetValue()
			}
		}
		return sum
	}
	return 0
}

func TestMetricsCollection(t *testing.T) {
	const numTasks = 100

	reg := prometheus.NewRegistry()
	cfg := testConfig()
	cfg.Metrics = metrics.Config{Enabled: true, Registry: reg}

	var x atomic.Int64
	err := Run(cfg, func(s *TaskScheduler, _ any) {
		// A slow gate task guarantees at least one wait actually parks.
		gate := s.NewCounter()
		s.AddTask(Task{Func: func(*TaskScheduler, any) {
			time.Sleep(10 * time.Millisecond)
		}}, gate)
		s.WaitForCounter(gate, 0, true)

		counter := s.NewCounter()
		tasks := make([]Task, numTasks)
		for i := range tasks {
			tasks[i] = Task{Func: func(*TaskScheduler, any) { x.Add(1) }}
		}
		s.AddTasks(tasks, counter)
		s.WaitForCounter(counter, 0, false)
	}, nil)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, x.Load(), int64(numTasks))

	// numTasks plus the gate task.
	testutil.AssertEqual(t, gatherSum(t, reg, "fibertask_scheduler_tasks_submitted_total"), float64(numTasks+1))
	testutil.AssertEqual(t, gatherSum(t, reg, "fibertask_scheduler_tasks_executed_total"), float64(numTasks+1))
	testutil.AssertEqual(t, gatherSum(t, reg, "fibertask_scheduler_workers"), float64(4))
	if waits := gatherSum(t, reg, "fibertask_fiber_waits_total"); waits < 1 {
		t.Fatalf("expected at least one recorded wait, got %v", waits)
	}
}

func TestMetricsDisabledByDefault(t *testing.T) {
	var x atomic.Int64
	var instNil bool
	err := Run(testConfig(), func(s *TaskScheduler, _ any) {
		instNil = s.inst == nil
		c := s.NewCounter()
		s.AddTask(Task{Func: func(*TaskScheduler, any) { x.Add(1) }}, c)
		s.WaitForCounter(c, 0, false)
	}, nil)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, instNil, true)
	testutil.AssertEqual(t, x.Load(), int64(1))
}
