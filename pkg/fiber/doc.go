/*
Package fiber provides cooperative execution contexts with explicit
switching, the primitive underneath the task scheduler.

A Fiber can be thought of as a goroutine that is always either running or
parked on a private one-token channel. SwitchTo wakes the target fiber and
parks the caller, so from the scheduler's perspective control transfers from
one stack to another without the hosting worker ever blocking in the kernel.

Fibers never migrate while running. The logical worker index rides along
with every switch, and the package keeps a goroutine-to-fiber registry so
code deep inside a task can recover its execution context:

	f := fiber.Current() // nil when not running on a fiber
	worker := f.Worker()

Lifecycle: New creates a parked fiber; Reset repurposes one that has not
started; Own wraps the calling goroutine so a thread's original context can
participate in switches; closing the done channel passed to New unwinds any
still-parked fibers at shutdown.
*/
package fiber
