// Package flushio provides flush-able writers for the machine's output
// streams, so that buffered output can be forced out on halt or before
// blocking on input.
package flushio

import (
	"bufio"
	"io"

	"github.com/mattn/go-isatty"
)

// WriteFlusher is a flush-able io.Writer.
type WriteFlusher interface {
	io.Writer
	Flush() error
}

var discardWriteFlusher WriteFlusher = nopFlusher{io.Discard}

// NewWriteFlusher creates a new flushable writer around w:
// - io.Discard and in-memory buffers get a noop Flush
// - terminals are written through unbuffered, so that interactive output is
//   never held back waiting for a flush
// - an existing WriteFlusher is returned as is
// - anything else gets a bufio.Writer
func NewWriteFlusher(w io.Writer) WriteFlusher {
	if w == io.Discard {
		return discardWriteFlusher
	}

	if wf, is := w.(WriteFlusher); is {
		return wf
	}

	// in memory buffers, as implemented by types like bytes.Buffer and
	// strings.Builder, do not need to be flushed
	type buffer interface {
		io.Writer
		Cap() int
		Len() int
		Grow(n int)
		Reset()
	}
	if _, isBuffer := w.(buffer); isBuffer {
		return nopFlusher{w}
	}

	if IsTerminal(w) {
		return nopFlusher{w}
	}

	return bufio.NewWriter(w)
}

// IsTerminal returns true if w is a file descriptor attached to a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

type nopFlusher struct{ io.Writer }

func (nf nopFlusher) Flush() error { return nil }
