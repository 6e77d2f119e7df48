//go:build !linux && !darwin

package secmem

// Page locking is not wired up on this platform. Buffers still get the
// zero-fill guarantee, they just are not pinned against swapping.

func lockMemory(_ []byte) bool { return false }

func unlockMemory(_ []byte) {}
