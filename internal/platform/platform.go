// Package platform wraps the small set of OS capabilities the scheduler
// needs: pinning the calling goroutine to an OS thread and a logical CPU,
// querying the hardware-thread count, and yielding the thread.
package platform

import "runtime"

// NumHardwareThreads returns the number of logical processors.
func NumHardwareThreads() int {
	return runtime.NumCPU()
}

// PinThread locks the calling goroutine to its OS thread and pins that
// thread to the given logical CPU. Out-of-range CPUs and platforms without
// affinity support leave the thread unpinned but still locked.
func PinThread(cpu int) {
	runtime.LockOSThread()
	setAffinity(cpu)
}

// UnpinThread releases the thread lock taken by PinThread. Any CPU affinity
// set on the thread dies with it once the runtime retires the thread.
func UnpinThread() {
	runtime.UnlockOSThread()
}

// Yield surrenders the processor so other goroutines can run.
func Yield() {
	runtime.Gosched()
}
