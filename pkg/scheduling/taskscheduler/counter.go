package taskscheduler

import "sync/atomic"

// defaultWaitingSlots bounds how many fibers can wait on one counter at
// once. Sized for the common fan-in shape of one or two waiters; counters
// shared by many waiters should be created with NewCounterWithSlots.
const defaultWaitingSlots = 4

// Counter is an atomic integer with attached waiting-fiber slots. Tasks are
// submitted against a counter, each completed task decrements it, and a
// fiber can park until the counter reaches a target value.
type Counter struct {
	sched *TaskScheduler
	value atomic.Int64
	slots []waitingSlot
}

// waitingSlot tracks one parked fiber. free gates slot reservation; inUse
// gates claimability and flips exactly once per park, so concurrent
// decrements cannot double-resume a fiber.
type waitingSlot struct {
	free  atomic.Bool
	inUse atomic.Bool

	fiberIndex int
	target     int64
	stored     *atomic.Bool
}

// NewCounter creates a counter bound to the scheduler with the default
// number of waiting slots.
func (s *TaskScheduler) NewCounter() *Counter {
	return s.NewCounterWithSlots(defaultWaitingSlots)
}

// NewCounterWithSlots creates a counter that can hold up to slots waiting
// fibers at once.
func (s *TaskScheduler) NewCounterWithSlots(slots int) *Counter {
	if slots <= 0 {
		slots = defaultWaitingSlots
	}
	c := &Counter{
		sched: s,
		slots: make([]waitingSlot, slots),
	}
	for i := range c.slots {
		c.slots[i].free.Store(true)
	}
	return c
}

// Load returns the current value.
func (c *Counter) Load() int64 {
	return c.value.Load()
}

// Store sets the value and resumes any fibers waiting for it. Must run on a
// worker when fibers may be waiting.
func (c *Counter) Store(v int64) {
	c.value.Store(v)
	c.checkWaiters(v)
}

// FetchAdd adds n, returns the new value, and resumes any fibers waiting
// for it.
func (c *Counter) FetchAdd(n int64) int64 {
	v := c.value.Add(n)
	c.checkWaiters(v)
	return v
}

// FetchSub subtracts n, returns the new value, and resumes any fibers
// waiting for it.
func (c *Counter) FetchSub(n int64) int64 {
	v := c.value.Add(-n)
	c.checkWaiters(v)
	return v
}

// addWaiter reserves a waiting slot for a fiber about to park, publishes
// the (fiber, target, stored flag) tuple, then re-reads the counter.
// Returning true means the counter already sits at the target — the caller
// must not park. The recheck closes the window where the last decrement
// lands between the caller's fast-path check and the slot publication.
func (c *Counter) addWaiter(fiberIndex int, target int64, stored *atomic.Bool) bool {
	for i := range c.slots {
		slot := &c.slots[i]
		if !slot.free.CompareAndSwap(true, false) {
			continue
		}

		slot.fiberIndex = fiberIndex
		slot.target = target
		slot.stored = stored
		slot.inUse.Store(true)

		if c.value.Load() == target {
			// A decrement may have claimed the slot already; only the
			// side that wins the CAS owns the wakeup.
			if slot.inUse.CompareAndSwap(true, false) {
				slot.free.Store(true)
				return true
			}
		}
		return false
	}

	panic("taskscheduler: counter has no free waiting slots; raise the slot count")
}

// checkWaiters runs after every value change: each claimable slot whose
// target matches the new value is claimed via CAS and its fiber handed to
// the current worker's ready list. The fiber loop gates the actual resume
// on the stored flag, so a fiber whose stack is still unwinding is never
// revived early.
func (c *Counter) checkWaiters(value int64) {
	for i := range c.slots {
		slot := &c.slots[i]
		if slot.free.Load() {
			continue
		}
		if !slot.inUse.Load() {
			continue
		}
		if slot.target != value {
			continue
		}
		if !slot.inUse.CompareAndSwap(true, false) {
			continue
		}
		c.sched.addReadyFiber(slot.fiberIndex, slot.stored)
		slot.free.Store(true)
	}
}
