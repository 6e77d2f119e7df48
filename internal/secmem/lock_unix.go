//go:build linux || darwin

package secmem

import "golang.org/x/sys/unix"

// lockMemory pins the pages backing b so they cannot be swapped to
// disk. Failure is tolerated: RLIMIT_MEMLOCK is often tiny for
// unprivileged processes and the zero-fill guarantee does not depend
// on the lock.
func lockMemory(b []byte) bool {
	if len(b) == 0 {
		return false
	}
	return unix.Mlock(b) == nil
}

func unlockMemory(b []byte) {
	if len(b) == 0 {
		return
	}
	_ = unix.Munlock(b)
}
