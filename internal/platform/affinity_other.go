//go:build !linux

package platform

// Thread affinity is only wired up on linux.
func setAffinity(int) {}
