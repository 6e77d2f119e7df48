package scanner

import (
	"bytes"

	"github.com/secretlens/secretlens/internal/secmem"
)

// LineAccumulator reassembles line-delimited records from arbitrarily
// sized byte chunks. The scanner's stdout arrives in whatever chunk
// sizes the pipe delivers, so a record may span chunks or a chunk may
// hold several records.
//
// Consumed bytes are zeroed as soon as a line has been emitted; raw
// secrets inside finding records must not linger in the accumulator's
// backing array.
type LineAccumulator struct {
	buf []byte
}

// Feed appends chunk and emits every complete line found, in order,
// without the trailing newline. The slice passed to emit aliases
// internal storage and is zeroed after emit returns.
func (a *LineAccumulator) Feed(chunk []byte, emit func(line []byte)) {
	a.buf = append(a.buf, chunk...)

	for {
		idx := bytes.IndexByte(a.buf, '\n')
		if idx < 0 {
			return
		}
		line := a.buf[:idx]
		emit(line)
		secmem.Zero(a.buf[:idx+1])
		a.buf = a.buf[idx+1:]
	}
}

// Flush emits any unterminated trailing content as a final line. The
// scanner does not always newline-terminate its last record.
func (a *LineAccumulator) Flush(emit func(line []byte)) {
	if len(a.buf) == 0 {
		a.buf = nil
		return
	}
	emit(a.buf)
	secmem.Zero(a.buf)
	a.buf = nil
}

// Discard wipes any buffered bytes without emitting them. Used when a
// scan is cancelled mid-line.
func (a *LineAccumulator) Discard() {
	secmem.Zero(a.buf)
	a.buf = nil
}

// Pending reports how many buffered bytes await a newline.
func (a *LineAccumulator) Pending() int {
	return len(a.buf)
}
