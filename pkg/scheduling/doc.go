/*
Package scheduling provides task scheduling and execution primitives for Go applications.

This package hosts the fiber task scheduler:

  - taskscheduler: Fixed worker-thread pool with work stealing and
    counter-based fiber waits

Task Scheduler:

The scheduler executes CPU-bound tasks on worker threads pinned to logical
processors. Tasks wait on counters by parking their fiber, never by
blocking the worker:

	func mainTask(s *taskscheduler.TaskScheduler, arg any) {
		counter := s.NewCounter()
		s.AddTasks(tasks, counter)
		s.WaitForCounter(counter, 0, false)
	}

	cfg := taskscheduler.Config{FiberPoolSize: 25}
	taskscheduler.Run(cfg, mainTask, nil)

Submission is only valid from inside a task (or the main task); the
scheduler has no external submission surface and no time-based scheduling.
*/
package scheduling
