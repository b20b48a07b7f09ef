//go:build linux

package platform

import "golang.org/x/sys/unix"

// setAffinity pins the current thread to a single logical CPU. Errors are
// swallowed: on containerised or cgroup-restricted systems the call may
// return EPERM/EINVAL and the fallback is simply no pin.
func setAffinity(cpu int) {
	if cpu < 0 {
		return
	}
	var set unix.CPUSet
	set.Zero()
	set.Set(cpu)
	_ = unix.SchedSetaffinity(0, &set)
}
