package taskscheduler

import (
	"sync/atomic"
	"testing"

	"github.com/vnykmshr/fibertask/internal/testutil"
)

func newDetachedCounter(slots int) *Counter {
	c := &Counter{slots: make([]waitingSlot, slots)}
	for i := range c.slots {
		c.slots[i].free.Store(true)
	}
	return c
}

func TestCounterArithmetic(t *testing.T) {
	c := newDetachedCounter(2)

	c.value.Store(10)
	testutil.AssertEqual(t, c.Load(), int64(10))
	testutil.AssertEqual(t, c.FetchSub(3), int64(7))
	testutil.AssertEqual(t, c.FetchAdd(5), int64(12))
	testutil.AssertEqual(t, c.Load(), int64(12))
}

func TestAddWaiterAlreadyDone(t *testing.T) {
	c := newDetachedCounter(2)
	c.value.Store(5)

	// The counter already sits at the target: the caller must not park,
	// and the slot must be released for reuse.
	stored := new(atomic.Bool)
	testutil.AssertEqual(t, c.addWaiter(3, 5, stored), true)
	testutil.AssertEqual(t, c.slots[0].free.Load(), true)
	testutil.AssertEqual(t, c.slots[0].inUse.Load(), false)
}

func TestAddWaiterPublishesSlot(t *testing.T) {
	c := newDetachedCounter(2)
	c.value.Store(5)

	stored := new(atomic.Bool)
	testutil.AssertEqual(t, c.addWaiter(7, 0, stored), false)

	slot := &c.slots[0]
	testutil.AssertEqual(t, slot.free.Load(), false)
	testutil.AssertEqual(t, slot.inUse.Load(), true)
	testutil.AssertEqual(t, slot.fiberIndex, 7)
	testutil.AssertEqual(t, slot.target, int64(0))
	testutil.AssertEqual(t, slot.stored == stored, true)
}

func TestAddWaiterSkipsOccupiedSlots(t *testing.T) {
	c := newDetachedCounter(3)
	c.value.Store(5)

	c.addWaiter(1, 0, new(atomic.Bool))
	c.addWaiter(2, 1, new(atomic.Bool))

	testutil.AssertEqual(t, c.addWaiter(3, 2, new(atomic.Bool)), false)
	testutil.AssertEqual(t, c.slots[2].fiberIndex, 3)
}

func TestAddWaiterExhaustionPanics(t *testing.T) {
	c := newDetachedCounter(2)
	c.value.Store(5)

	c.addWaiter(1, 0, new(atomic.Bool))
	c.addWaiter(2, 0, new(atomic.Bool))

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on waiting-slot exhaustion")
		}
	}()
	c.addWaiter(3, 0, new(atomic.Bool))
}

func TestCounterSlotReuseAcrossWaits(t *testing.T) {
	// A counter must survive many sequential waits with a small slot array.
	var x atomic.Int64

	err := Run(testConfig(), func(s *TaskScheduler, _ any) {
		counter := s.NewCounter()
		for i := 0; i < 50; i++ {
			s.AddTask(Task{Func: func(*TaskScheduler, any) { x.Add(1) }}, counter)
			s.WaitForCounter(counter, 0, false)
		}
	}, nil)

	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, x.Load(), int64(50))
}

func TestNewCounterWithSlotsSizing(t *testing.T) {
	err := Run(testConfig(), func(s *TaskScheduler, _ any) {
		testutil.AssertEqual(t, len(s.NewCounter().slots), defaultWaitingSlots)
		testutil.AssertEqual(t, len(s.NewCounterWithSlots(16).slots), 16)
		testutil.AssertEqual(t, len(s.NewCounterWithSlots(0).slots), defaultWaitingSlots)
	}, nil)
	testutil.AssertNoError(t, err)
}

func TestManyWaitersOnOneCounter(t *testing.T) {
	// Several tasks wait on the same counter; the slot array must hold all
	// of them at once.
	const numWaiters = 6
	var resumed atomic.Int64

	err := Run(Config{FiberPoolSize: 16, ThreadPoolSize: 2}, func(s *TaskScheduler, _ any) {
		all := s.NewCounter()
		gate := s.NewCounterWithSlots(numWaiters)
		gate.Store(1)

		waiters := make([]Task, numWaiters)
		for i := range waiters {
			waiters[i] = Task{Func: func(s *TaskScheduler, _ any) {
				s.WaitForCounter(gate, 0, false)
				resumed.Add(1)
			}}
		}
		s.AddTasks(waiters, all)

		s.AddTask(Task{Func: func(*TaskScheduler, any) {
			gate.FetchSub(1)
		}}, nil)

		s.WaitForCounter(all, 0, false)
	}, nil)

	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, resumed.Load(), int64(numWaiters))
}
