package taskscheduler

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/vnykmshr/fibertask/internal/platform"
	fterrors "github.com/vnykmshr/fibertask/pkg/common/errors"
	"github.com/vnykmshr/fibertask/pkg/deque"
	"github.com/vnykmshr/fibertask/pkg/fiber"
	"github.com/vnykmshr/fibertask/pkg/metrics"
)

// poolScanWarnThreshold is the number of full free-fiber scans before the
// scheduler reports a probable deadlock.
const poolScanWarnThreshold = 10

// sleepInterval bounds how long a worker parks under BehaviorSleep before
// re-polling; pinned fibers can only be noticed by their own worker, so the
// park must not be open-ended.
const sleepInterval = 100 * time.Microsecond

// TaskScheduler runs tasks on a fixed pool of worker threads, one pinned to
// each logical processor. Tasks that wait on counters park their fiber and
// the worker switches to another, so worker threads never block.
//
// All state lives in the scheduler value; its lifetime spans one Run call.
type TaskScheduler struct {
	numThreads    int
	fiberPoolSize int

	fibers     []*fiber.Fiber
	freeFibers []atomic.Bool
	tls        []threadLocalState

	initialized atomic.Bool
	quit        atomic.Bool
	behavior    atomic.Int32

	// done tears down still-parked fibers once every worker has returned.
	done     chan struct{}
	workerWG sync.WaitGroup

	// wake lets BehaviorSleep workers cut their park short on submission.
	wake chan struct{}

	inst *metrics.Registry
}

// Run builds a scheduler from the configuration, executes mainTask on it,
// and blocks until mainTask returns and every worker has joined. The
// calling goroutine is claimed as worker 0 and pinned to CPU 0 for the
// duration.
func Run(cfg Config, mainTask TaskFunc, mainArg any) error {
	if mainTask == nil {
		return fmt.Errorf("taskscheduler: main task cannot be nil: %w", fterrors.ErrInvalidConfiguration)
	}
	numThreads, err := cfg.resolve()
	if err != nil {
		return err
	}

	s := &TaskScheduler{
		numThreads:    numThreads,
		fiberPoolSize: cfg.FiberPoolSize,
		done:          make(chan struct{}),
		wake:          make(chan struct{}, 1),
	}
	s.behavior.Store(int32(cfg.Behavior))

	if cfg.Metrics.Enabled {
		s.inst = metrics.DefaultRegistry
		// DefaultRegistry is already registered on the default registerer.
		if reg := cfg.Metrics.Registry; reg != nil && reg != prometheus.DefaultRegisterer {
			s.inst = metrics.NewRegistry(reg)
		}
		s.inst.Workers.Set(float64(numThreads))
	}

	// Create and populate the fiber pool. Every fiber starts in the loop;
	// one is repurposed below as the main-task fiber.
	s.fibers = make([]*fiber.Fiber, cfg.FiberPoolSize)
	s.freeFibers = make([]atomic.Bool, cfg.FiberPoolSize)
	for i := range s.fibers {
		s.fibers[i] = fiber.New(s.done, s.fiberLoop)
		s.freeFibers[i].Store(true)
	}

	s.tls = make([]threadLocalState, numThreads)
	for i := range s.tls {
		t := &s.tls[i]
		t.currentFiberIndex = InvalidIndex
		t.oldFiberIndex = InvalidIndex
		t.taskQueue = deque.New[taskBundle](64)
		if s.inst != nil {
			label := metrics.WorkerLabel(i)
			t.mExecuted = s.inst.TasksExecuted.WithLabelValues(label)
			t.mStolen = s.inst.TasksStolen.WithLabelValues(label)
			t.mSwitches = s.inst.FiberSwitches.WithLabelValues(label)
		}
	}

	// Claim the calling thread as worker 0.
	platform.PinThread(0)
	defer platform.UnpinThread()
	threadFiber := fiber.Own()
	threadFiber.SetWorker(0)
	defer threadFiber.Release()
	s.tls[0].threadFiber = threadFiber

	for i := 1; i < numThreads; i++ {
		s.workerWG.Add(1)
		go s.workerEntry(i)
	}

	s.initialized.Store(true)

	// Reserve a free fiber, repurpose it as the main-task fiber, and hand
	// the thread over. Control returns here only once shutdown completes.
	mainIndex := s.nextFreeFiber()
	mainFiber := s.fibers[mainIndex]
	mainFiber.Reset(func() { s.mainFiberStart(mainTask, mainArg) })
	s.tls[0].currentFiberIndex = mainIndex
	threadFiber.SwitchTo(mainFiber)

	s.workerWG.Wait()

	// Unwind any fibers still parked (free in the pool, or abandoned in a
	// waiting list) so Run returns with no goroutines left behind.
	close(s.done)
	for _, f := range s.fibers {
		<-f.Exited()
	}
	return nil
}

// workerEntry is the body of workers 1..N-1.
func (s *TaskScheduler) workerEntry(index int) {
	defer s.workerWG.Done()

	platform.PinThread(index)
	defer platform.UnpinThread()

	threadFiber := fiber.Own()
	threadFiber.SetWorker(index)
	defer threadFiber.Release()
	s.tls[index].threadFiber = threadFiber

	for !s.initialized.Load() {
		platform.Yield()
	}

	freeIndex := s.nextFreeFiber()
	s.tls[index].currentFiberIndex = freeIndex
	threadFiber.SwitchTo(s.fibers[freeIndex])

	// Control only returns here at shutdown.
}

// mainFiberStart runs the application's main task, then starts the quit
// sequence and hands the hosting worker's thread back.
func (s *TaskScheduler) mainFiberStart(mainTask TaskFunc, arg any) {
	mainTask(s, arg)

	s.quit.Store(true)
	s.signalWake()

	tls := &s.tls[s.GetCurrentThreadIndex()]
	s.fibers[tls.currentFiberIndex].SwitchTo(tls.threadFiber)

	panic("taskscheduler: main fiber resumed after shutdown")
}

// fiberLoop is the body of every pooled fiber: release the previous fiber,
// resume parked fibers that became eligible, and otherwise execute tasks.
func (s *TaskScheduler) fiberLoop() {
	// The switch that started this fiber may have left a release pending.
	s.cleanUpOldFiber()

	for !s.quit.Load() {
		// Re-resolve the worker every pass: an unpinned wait inside a task
		// can resume this fiber on a different worker.
		index := s.GetCurrentThreadIndex()
		tls := &s.tls[index]

		waitingFiberIndex := InvalidIndex
		pinned := false

		// Pinned fibers first: they can only ever resume here.
		for i := range tls.pinnedTasks {
			bundle := tls.pinnedTasks[i]
			if bundle.counter.Load() == bundle.target {
				waitingFiberIndex = bundle.index
				tls.pinnedTasks = append(tls.pinnedTasks[:i], tls.pinnedTasks[i+1:]...)
				pinned = true
				break
			}
		}

		if waitingFiberIndex == InvalidIndex {
			for i := range tls.readyFibers {
				rf := tls.readyFibers[i]
				if !rf.stored.Load() {
					// The parking worker is still switching off this
					// fiber's stack.
					continue
				}
				waitingFiberIndex = rf.index
				tls.readyFibers = append(tls.readyFibers[:i], tls.readyFibers[i+1:]...)
				break
			}
		}

		if waitingFiberIndex != InvalidIndex {
			if s.inst != nil {
				if pinned {
					s.inst.PinnedResumes.Inc()
				} else {
					s.inst.ReadyResumes.Inc()
				}
				tls.mSwitches.Inc()
			}

			tls.oldFiberIndex = tls.currentFiberIndex
			tls.currentFiberIndex = waitingFiberIndex
			tls.oldFiberDestination = destToPool

			s.fibers[tls.oldFiberIndex].SwitchTo(s.fibers[waitingFiberIndex])

			s.cleanUpOldFiber()
			continue
		}

		bundle, ok := s.getNextTask(index)
		if !ok {
			switch EmptyQueueBehavior(s.behavior.Load()) {
			case BehaviorYield:
				platform.Yield()
			case BehaviorSleep:
				s.sleepForWork()
			default:
				// Spin.
			}
			continue
		}

		bundle.task.Func(s, bundle.task.Arg)
		if bundle.counter != nil {
			bundle.counter.FetchSub(1)
		}
		if s.inst != nil {
			// The task may have migrated this fiber; resolve afresh.
			s.tls[s.GetCurrentThreadIndex()].mExecuted.Inc()
		}
	}

	// Quit: hand the thread back to its original context.
	tls := &s.tls[s.GetCurrentThreadIndex()]
	s.fibers[tls.currentFiberIndex].SwitchTo(tls.threadFiber)

	panic("taskscheduler: fiber loop resumed after shutdown")
}

// cleanUpOldFiber performs the release deferred by the switch that brought
// the current fiber onto this worker. Running it on the incoming fiber
// guarantees the departing fiber's stack is quiescent before the fiber is
// published as reusable or resumable.
func (s *TaskScheduler) cleanUpOldFiber() {
	tls := &s.tls[s.GetCurrentThreadIndex()]
	switch tls.oldFiberDestination {
	case destToPool:
		s.releaseFiber(tls.oldFiberIndex)
	case destToWaiting:
		tls.oldFiberStoredFlag.Store(true)
	case destNone:
		return
	}
	tls.oldFiberDestination = destNone
	tls.oldFiberIndex = InvalidIndex
	tls.oldFiberStoredFlag = nil
}

// addReadyFiber hands a claimed waiter to the current worker's ready list.
func (s *TaskScheduler) addReadyFiber(fiberIndex int, stored *atomic.Bool) {
	index := s.GetCurrentThreadIndex()
	if index == InvalidIndex {
		panic("taskscheduler: counter reached a waited-for value off a worker")
	}
	tls := &s.tls[index]
	tls.readyFibers = append(tls.readyFibers, readyFiber{index: fiberIndex, stored: stored})
}

// getNextTask pops from the worker's own queue, then tries to steal from
// the others, starting at the offset of the last successful steal.
func (s *TaskScheduler) getNextTask(current int) (taskBundle, bool) {
	tls := &s.tls[current]

	if bundle, ok := tls.taskQueue.Pop(); ok {
		return bundle, true
	}

	start := tls.lastSuccessfulSteal
	for i := 0; i < s.numThreads; i++ {
		victim := (start + i) % s.numThreads
		if victim == current {
			continue
		}
		if bundle, ok := s.tls[victim].taskQueue.Steal(); ok {
			tls.lastSuccessfulSteal = victim
			if tls.mStolen != nil {
				tls.mStolen.Inc()
			}
			return bundle, true
		}
	}

	return taskBundle{}, false
}

// nextFreeFiber claims a fiber from the pool. It never fails: exhausting
// the pool means the application parked more fibers than the pool holds,
// which only the application can fix, so the scheduler keeps scanning and
// reports the probable deadlock.
func (s *TaskScheduler) nextFreeFiber() int {
	for scan := 0; ; scan++ {
		for i := range s.freeFibers {
			if !s.freeFibers[i].Load() {
				continue
			}
			if s.freeFibers[i].CompareAndSwap(true, false) {
				if s.inst != nil {
					s.inst.FiberPoolInUse.Inc()
				}
				return i
			}
		}
		if scan == poolScanWarnThreshold {
			log.Printf("taskscheduler: no free fibers in the pool, possible deadlock")
		}
		platform.Yield()
	}
}

func (s *TaskScheduler) releaseFiber(index int) {
	s.freeFibers[index].Store(true)
	if s.inst != nil {
		s.inst.FiberPoolInUse.Dec()
	}
}

// AddTask submits one task. If counter is non-nil it is set to 1 and
// decremented when the task's function returns. Must be called from a
// worker, i.e. from inside a task or the main task.
func (s *TaskScheduler) AddTask(task Task, counter *Counter) error {
	index := s.GetCurrentThreadIndex()
	if index == InvalidIndex {
		return fmt.Errorf("taskscheduler: AddTask: %w", fterrors.ErrNotWorker)
	}
	if task.Func == nil {
		return fmt.Errorf("taskscheduler: task function cannot be nil")
	}

	if counter != nil {
		counter.Store(1)
	}
	s.tls[index].taskQueue.Push(taskBundle{task: task, counter: counter})
	s.signalWork(1)
	return nil
}

// AddTasks submits a batch. If counter is non-nil it is set to len(tasks)
// and decremented as each task's function returns.
func (s *TaskScheduler) AddTasks(tasks []Task, counter *Counter) error {
	index := s.GetCurrentThreadIndex()
	if index == InvalidIndex {
		return fmt.Errorf("taskscheduler: AddTasks: %w", fterrors.ErrNotWorker)
	}
	for i := range tasks {
		if tasks[i].Func == nil {
			return fmt.Errorf("taskscheduler: task %d has a nil function", i)
		}
	}

	if counter != nil {
		counter.Store(int64(len(tasks)))
	}
	tls := &s.tls[index]
	for _, task := range tasks {
		tls.taskQueue.Push(taskBundle{task: task, counter: counter})
	}
	s.signalWork(len(tasks))
	return nil
}

// WaitForCounter blocks the calling task until the counter reaches value,
// without blocking the worker thread: the task's fiber parks and the
// worker switches to a replacement fiber. With pinToCurrentThread the fiber
// resumes on the same worker it parked on; otherwise any worker may resume
// it.
func (s *TaskScheduler) WaitForCounter(c *Counter, value int64, pinToCurrentThread bool) {
	if c.Load() == value {
		return
	}

	index := s.GetCurrentThreadIndex()
	if index == InvalidIndex {
		panic("taskscheduler: WaitForCounter called from outside a worker")
	}
	tls := &s.tls[index]
	currentFiberIndex := tls.currentFiberIndex

	// The replacement fiber that will keep this worker busy.
	freeFiberIndex := s.nextFreeFiber()

	if pinToCurrentThread {
		tls.pinnedTasks = append(tls.pinnedTasks, pinnedBundle{
			index:   currentFiberIndex,
			counter: c,
			target:  value,
		})
		tls.currentFiberIndex = freeFiberIndex
	} else {
		stored := new(atomic.Bool)
		if c.addWaiter(currentFiberIndex, value, stored) {
			// The counter finished while the wait was being arranged.
			s.releaseFiber(freeFiberIndex)
			return
		}
		tls.oldFiberIndex = currentFiberIndex
		tls.currentFiberIndex = freeFiberIndex
		tls.oldFiberDestination = destToWaiting
		tls.oldFiberStoredFlag = stored
	}

	if s.inst != nil {
		s.inst.FiberWaits.Inc()
		tls.mSwitches.Inc()
	}
	s.fibers[currentFiberIndex].SwitchTo(s.fibers[freeFiberIndex])

	// Resumed, possibly on a different worker.
	s.cleanUpOldFiber()
}

// GetCurrentThreadIndex resolves the calling goroutine to a worker index of
// this scheduler, or InvalidIndex when the caller is not one of its fibers.
func (s *TaskScheduler) GetCurrentThreadIndex() int {
	f := fiber.Current()
	if f == nil {
		return InvalidIndex
	}
	worker := f.Worker()
	if worker < 0 || worker >= s.numThreads {
		return InvalidIndex
	}
	tls := &s.tls[worker]
	if tls.threadFiber == f {
		return worker
	}
	if current := tls.currentFiberIndex; current != InvalidIndex && s.fibers[current] == f {
		return worker
	}
	return InvalidIndex
}

// NumThreads returns the size of the worker pool.
func (s *TaskScheduler) NumThreads() int {
	return s.numThreads
}

// SetEmptyQueueBehavior changes what idle workers do, effective from their
// next empty poll.
func (s *TaskScheduler) SetEmptyQueueBehavior(behavior EmptyQueueBehavior) {
	s.behavior.Store(int32(behavior))
}

func (s *TaskScheduler) signalWork(n int) {
	if s.inst != nil {
		s.inst.TasksSubmitted.Add(float64(n))
	}
	s.signalWake()
}

func (s *TaskScheduler) signalWake() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *TaskScheduler) sleepForWork() {
	timer := time.NewTimer(sleepInterval)
	select {
	case <-s.wake:
	case <-timer.C:
	}
	timer.Stop()
}
