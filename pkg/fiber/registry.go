package fiber

import (
	"runtime"
	"sync"
)

// Goroutine-local registry: one entry for each goroutine currently backing
// a fiber. Lookup is the reverse mapping the scheduler needs to answer
// "which fiber, and therefore which worker, is executing this call?".
var (
	gmu     sync.RWMutex
	gfibers = make(map[uint64]*Fiber)
)

// Current returns the fiber backed by the calling goroutine, or nil when the
// caller is not a fiber.
func Current() *Fiber {
	gmu.RLock()
	f := gfibers[curID()]
	gmu.RUnlock()
	return f
}

func register(id uint64, f *Fiber) {
	gmu.Lock()
	gfibers[id] = f
	gmu.Unlock()
}

func unregister(id uint64) {
	gmu.Lock()
	delete(gfibers, id)
	gmu.Unlock()
}

// curID extracts the goroutine id from the first line of a stack dump
// ("goroutine 123 [running]:"). The runtime offers no portable accessor;
// the alternatives link against unexported runtime symbols.
func curID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	const prefix = len("goroutine ")
	var id uint64
	for i := prefix; i < n; i++ {
		c := buf[i]
		if c < '0' || c > '9' {
			break
		}
		id = id*10 + uint64(c-'0')
	}
	return id
}
