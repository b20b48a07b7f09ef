package fiber

import "runtime"

// NoWorker is the worker index of a fiber that is not currently hosted by
// any worker.
const NoWorker = -1

// Entry is the function a fiber runs once it is first switched to.
// An entry must never return; a fiber gives up control only by switching.
type Entry func()

// Fiber is a cooperative execution context: an independently parkable stack
// plus the ability to transfer control to another fiber. Each fiber is backed
// by a goroutine blocked on a one-token resume channel; switching wakes the
// target's goroutine and parks the caller's.
//
// Exactly one goroutine runs a given fiber at any instant. The worker index
// travels with the control transfer, so a fiber always knows which logical
// worker is hosting it.
type Fiber struct {
	resume chan struct{}
	done   <-chan struct{}
	exited chan struct{}
	entry  Entry
	worker int
	goid   uint64
}

// New creates a fiber whose goroutine is parked until the first SwitchTo.
// When done is closed while the fiber is parked, the goroutine unwinds and
// Exited is closed; this is how a scheduler reclaims fibers at teardown.
func New(done <-chan struct{}, entry Entry) *Fiber {
	f := &Fiber{
		resume: make(chan struct{}, 1),
		done:   done,
		exited: make(chan struct{}),
		entry:  entry,
		worker: NoWorker,
	}
	go func() {
		defer close(f.exited)
		id := curID()
		register(id, f)
		defer unregister(id)

		f.park()
		f.entry()
		panic("fiber: entry function returned")
	}()
	return f
}

// Own registers the calling goroutine as a fiber, representing the thread's
// original context. It is used to bootstrap a worker and to return to the
// plain goroutine during shutdown. Release must be called when the context
// is no longer a fiber.
func Own() *Fiber {
	f := &Fiber{
		resume: make(chan struct{}, 1),
		worker: NoWorker,
		goid:   curID(),
	}
	register(f.goid, f)
	return f
}

// Release removes a fiber created by Own from the goroutine registry.
func (f *Fiber) Release() {
	unregister(f.goid)
}

// Reset repurposes a fiber that has not yet started with a new entry.
// Calling Reset on a fiber that has already run is a race.
func (f *Fiber) Reset(entry Entry) {
	f.entry = entry
}

// SwitchTo transfers control to next. The target inherits the caller's
// worker index. The caller parks until some fiber switches back to it; if
// the scheduler shuts down first, the caller's goroutine unwinds instead.
func (f *Fiber) SwitchTo(next *Fiber) {
	next.worker = f.worker
	next.resume <- struct{}{}
	f.park()
}

// Worker reports the index of the worker currently hosting the fiber, or
// NoWorker.
func (f *Fiber) Worker() int {
	return f.worker
}

// SetWorker assigns the hosting worker. Only meaningful before a fiber has
// been switched to, or on a fiber obtained from Own.
func (f *Fiber) SetWorker(i int) {
	f.worker = i
}

// Exited is closed once the fiber's goroutine has unwound after the done
// channel fired. Fibers from Own have no goroutine and return nil.
func (f *Fiber) Exited() <-chan struct{} {
	return f.exited
}

func (f *Fiber) park() {
	select {
	case <-f.resume:
	case <-f.done:
		runtime.Goexit()
	}
}
