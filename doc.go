/*
Package fibertask provides a fiber-based task scheduler for latency-sensitive,
CPU-bound parallel workloads.

A fixed pool of worker threads, each pinned to a logical processor, executes
short-lived tasks drawn from per-worker work-stealing queues. A task that must
block on the completion of other tasks parks its fiber on an atomic counter and
switches to a replacement fiber; the worker thread itself never blocks. This
yields cheap "wait for N subtasks" composition without kernel context switches.

Scheduling (pkg/scheduling):
  - taskscheduler: the scheduler core — lifecycle, task submission,
    counter-based wait/notify, work stealing

Building blocks:
  - pkg/fiber: cooperative execution contexts with explicit switching
  - pkg/deque: lock-free work-stealing deque

Observability:
  - pkg/metrics: Prometheus instrumentation for scheduler internals

Example usage:

	import "github.com/vnykmshr/fibertask/pkg/scheduling/taskscheduler"

	func mainTask(s *taskscheduler.TaskScheduler, arg any) {
		c := s.NewCounter()
		tasks := make([]taskscheduler.Task, 100)
		for i := range tasks {
			tasks[i] = taskscheduler.Task{Func: work, Arg: i}
		}
		s.AddTasks(tasks, c)
		s.WaitForCounter(c, 0, false)
	}

	func main() {
		cfg := taskscheduler.Config{FiberPoolSize: 25}
		if err := taskscheduler.Run(cfg, mainTask, nil); err != nil {
			log.Fatal(err)
		}
	}
*/
package fibertask
