/*
Package taskscheduler provides a fiber-based task scheduler for CPU-bound
parallel workloads.

A fixed pool of worker threads, one pinned to each logical processor, runs
short-lived tasks drawn from per-worker work-stealing queues. When a task
must wait for other tasks it parks its fiber on an atomic counter and the
worker switches to a replacement fiber from the pool, so the thread keeps
executing work instead of blocking in the kernel.

Basic usage:

	func mainTask(s *taskscheduler.TaskScheduler, arg any) {
		counter := s.NewCounter()

		tasks := make([]taskscheduler.Task, 1000)
		for i := range tasks {
			tasks[i] = taskscheduler.Task{Func: doWork, Arg: i}
		}
		s.AddTasks(tasks, counter)

		// Parks this fiber; the worker keeps running other tasks.
		s.WaitForCounter(counter, 0, false)
	}

	func main() {
		cfg := taskscheduler.Config{FiberPoolSize: 25, ThreadPoolSize: 0}
		if err := taskscheduler.Run(cfg, mainTask, nil); err != nil {
			log.Fatal(err)
		}
	}

Counters:

A Counter is set to the number of tasks submitted against it and
decremented as each task function returns. WaitForCounter(c, 0, false)
therefore means "wait until all of those tasks finished". Waits nest:
a task may itself submit subtasks with a fresh counter and wait on it,
to any depth.

Pinned waits:

WaitForCounter(c, v, true) guarantees the waiting task resumes on the
worker it parked on, for code that relies on worker-local state. Unpinned
waits may resume on any worker.

Scheduling guarantees and limits:

Tasks run to completion on one fiber between waits; there is no
preemption, no priorities, and no cancellation. Fibers migrate across
workers only at unpinned park/resume boundaries. The fiber pool is a hard
resource: parking more fibers than the pool holds deadlocks the scheduler,
which reports the exhaustion and keeps scanning.

Submission is only valid from a worker (the main task or any task it
transitively spawned); AddTask returns an error otherwise.
*/
package taskscheduler
