// Package iobuf holds the buffer registry: the opened files and connections
// of one evaluation, behind a uniform byte read/write capability.
package iobuf

import (
	"io"

	"github.com/jcorbin/voz/internal/fault"
)

// Word is a buffer handle.
type Word = uint64

// Reserved handles bind to the process streams and never enter a Registry.
const (
	Input       Word = 0
	Output      Word = 1
	Error       Word = 2
	FirstHandle Word = 3
)

// Buffer is an opaque resource exposing byte read and write capability.
type Buffer interface {
	io.Reader
	io.Writer
	io.Closer
}

// Registry is an append-only table of buffers, owning each one until Close.
type Registry struct {
	bufs   []Buffer
	closed bool
}

// Len returns the number of registered buffers.
func (reg *Registry) Len() int { return len(reg.bufs) }

// Add registers b and returns its handle.
// Adding to a closed registry closes b immediately and returns an error.
func (reg *Registry) Add(b Buffer) (Word, error) {
	if reg.closed {
		b.Close()
		return 0, fault.IO("register", io.ErrClosedPipe)
	}
	reg.bufs = append(reg.bufs, b)
	return FirstHandle + Word(len(reg.bufs)-1), nil
}

// Get resolves a handle; reserved and unknown handles are address faults.
func (reg *Registry) Get(handle Word) (Buffer, error) {
	if handle < FirstHandle || handle-FirstHandle >= Word(len(reg.bufs)) {
		return nil, fault.AddressError{Space: "buffer", Index: handle, Size: FirstHandle + Word(len(reg.bufs))}
	}
	return reg.bufs[handle-FirstHandle], nil
}

// Close releases every buffer in reverse registration order, returning the
// first error. It is safe to call more than once.
func (reg *Registry) Close() (err error) {
	if reg.closed {
		return nil
	}
	reg.closed = true
	for i := len(reg.bufs) - 1; i >= 0; i-- {
		if cerr := reg.bufs[i].Close(); err == nil {
			err = cerr
		}
	}
	return err
}
