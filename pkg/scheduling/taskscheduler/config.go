package taskscheduler

import (
	"fmt"

	"github.com/vnykmshr/fibertask/internal/platform"
	fterrors "github.com/vnykmshr/fibertask/pkg/common/errors"
	"github.com/vnykmshr/fibertask/pkg/metrics"
)

// EmptyQueueBehavior selects what a worker does when every queue is empty.
type EmptyQueueBehavior int32

const (
	// BehaviorSpin re-polls immediately.
	BehaviorSpin EmptyQueueBehavior = iota

	// BehaviorYield surrenders the processor between polls.
	BehaviorYield

	// BehaviorSleep parks the worker briefly; task submission wakes it
	// early, and a short timeout bounds the latency of pinned resumes.
	BehaviorSleep
)

// Config holds configuration options for running a scheduler.
type Config struct {
	// FiberPoolSize is the number of fibers in the pool. Must cover every
	// worker plus at least one wait; a task that parks more fibers than
	// the pool holds deadlocks the scheduler.
	FiberPoolSize int

	// ThreadPoolSize is the number of worker threads. If 0, one worker is
	// created per logical processor.
	ThreadPoolSize int

	// Behavior is the initial empty-queue behavior. It can be changed at
	// runtime with SetEmptyQueueBehavior.
	Behavior EmptyQueueBehavior

	// Metrics configures Prometheus instrumentation. Disabled by default.
	Metrics metrics.Config
}

// resolve validates the configuration and fills in derived values.
func (c Config) resolve() (numThreads int, err error) {
	if c.FiberPoolSize <= 0 {
		return 0, fmt.Errorf("taskscheduler: fiber pool size must be positive: %w", fterrors.ErrInvalidConfiguration)
	}
	if c.ThreadPoolSize < 0 {
		return 0, fmt.Errorf("taskscheduler: thread pool size cannot be negative: %w", fterrors.ErrInvalidConfiguration)
	}
	numThreads = c.ThreadPoolSize
	if numThreads == 0 {
		numThreads = platform.NumHardwareThreads()
	}
	if c.FiberPoolSize < numThreads+1 {
		return 0, fmt.Errorf("taskscheduler: fiber pool size %d cannot host %d workers plus a wait: %w",
			c.FiberPoolSize, numThreads, fterrors.ErrInvalidConfiguration)
	}
	return numThreads, nil
}
