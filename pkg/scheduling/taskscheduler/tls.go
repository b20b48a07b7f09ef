package taskscheduler

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/vnykmshr/fibertask/pkg/deque"
	"github.com/vnykmshr/fibertask/pkg/fiber"
)

// fiberDestination records what must happen to the fiber a worker switched
// away from, once the incoming fiber has control of the thread.
type fiberDestination int

const (
	destNone fiberDestination = iota
	destToPool
	destToWaiting
)

// readyFiber is an unpinned fiber some counter has declared eligible to
// resume on this worker. It may be consumed only once stored is true, i.e.
// once the parking worker has fully switched off the fiber's stack.
type readyFiber struct {
	index  int
	stored *atomic.Bool
}

// pinnedBundle is a fiber that must resume on the worker that parked it.
// The worker polls the counter itself, so no stored flag is needed: by the
// time this worker is back in its loop, the parking switch has completed.
type pinnedBundle struct {
	index   int
	counter *Counter
	target  int64
}

// threadLocalState is the per-worker slice of scheduler state. It is only
// ever touched by code running on that worker's logical slot; the slot
// moves between fibers through channel handoffs, which order every access.
type threadLocalState struct {
	// threadFiber represents the worker's original goroutine, used to
	// bootstrap the worker and to return during shutdown.
	threadFiber *fiber.Fiber

	// currentFiberIndex is the fiber now executing on this worker. It is
	// updated by the departing fiber before every switch.
	currentFiberIndex int

	// Deferred cleanup: the fiber this worker last switched away from and
	// the release action the incoming fiber must perform.
	oldFiberIndex       int
	oldFiberDestination fiberDestination
	oldFiberStoredFlag  *atomic.Bool

	taskQueue   *deque.Deque[taskBundle]
	pinnedTasks []pinnedBundle
	readyFibers []readyFiber

	// lastSuccessfulSteal is the worker the previous steal succeeded
	// against; the next scan starts there to keep victim affinity.
	lastSuccessfulSteal int

	// Per-worker metric children, resolved once at startup. Nil when
	// metrics are disabled.
	mExecuted prometheus.Counter
	mStolen   prometheus.Counter
	mSwitches prometheus.Counter
}
