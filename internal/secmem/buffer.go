// Package secmem holds secret material in wipeable byte buffers.
//
// Go strings are immutable and garbage collected, so a secret that ever
// becomes a string stays in memory until the runtime decides otherwise.
// Buffer keeps the secret as a mutable byte slice instead: it takes
// ownership of the caller's bytes, pins them with mlock where the
// platform allows it, and guarantees zero-fill on Wipe.
package secmem

import (
	"runtime"
	"sync"
)

// Buffer owns a secret byte slice for its lifetime.
type Buffer struct {
	mu     sync.Mutex
	data   []byte
	locked bool
	wiped  bool
}

// NewBuffer takes ownership of src: the bytes are copied into a fresh
// allocation and src is zeroed before NewBuffer returns, so the caller
// is left with nothing to leak. A zero-length src yields a buffer that
// is already wiped.
func NewBuffer(src []byte) *Buffer {
	b := &Buffer{}
	if len(src) == 0 {
		b.wiped = true
		return b
	}

	b.data = make([]byte, len(src))
	copy(b.data, src)
	Zero(src)

	b.locked = lockMemory(b.data)
	return b
}

// Bytes returns the live secret bytes, or nil after Wipe. The slice
// aliases the buffer's storage and must not be retained.
func (b *Buffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.wiped {
		return nil
	}
	return b.data
}

// String copies the secret into an immutable string for display. The
// copy cannot be wiped, so callers should only do this at the moment
// the secret is actually shown.
func (b *Buffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.wiped {
		return ""
	}
	return string(b.data)
}

// Len reports the secret length in bytes, or 0 after Wipe.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.wiped {
		return 0
	}
	return len(b.data)
}

// Wiped reports whether the secret has been destroyed.
func (b *Buffer) Wiped() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.wiped
}

// Wipe zero-fills the secret and releases the storage. It is
// idempotent and never fails; wiping an already wiped buffer is a
// no-op.
func (b *Buffer) Wipe() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.wiped {
		return
	}

	Zero(b.data)
	if b.locked {
		unlockMemory(b.data)
		b.locked = false
	}
	b.data = nil
	b.wiped = true
}

// Zero overwrites every byte of s with 0x00. The KeepAlive call stops
// the compiler from eliding the store when s is about to go out of
// scope.
func Zero(s []byte) {
	for i := range s {
		s[i] = 0
	}
	runtime.KeepAlive(s)
}
