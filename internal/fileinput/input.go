// Package fileinput implements the machine's input stream: a queue of
// readers consumed in order, with position tracking for diagnostics.
package fileinput

import (
	"bytes"
	"fmt"
	"io"
)

// Location names a position within one queued input stream.
type Location struct {
	Name   string
	Line   int
	Offset int64
}

func (loc Location) String() string {
	return fmt.Sprintf("%v:%v (byte %v)", loc.Name, loc.Line, loc.Offset)
}

// Input reads bytes sequentially through a Queue of one or more input
// streams. When a stream is exhausted it is closed, if it is an io.Closer,
// and reading continues with the next. Only after the final stream ends
// does Read return io.EOF.
type Input struct {
	r     io.Reader
	Queue []io.Reader
	Loc   Location
}

// Read reads from the current stream, advancing to the next at EOF.
func (in *Input) Read(p []byte) (int, error) {
	for {
		if in.r == nil && !in.nextIn() {
			return 0, io.EOF
		}
		n, err := in.r.Read(p)
		in.advance(p[:n])
		if err == io.EOF {
			in.closeIn()
			if n > 0 {
				return n, nil
			}
			continue
		}
		return n, err
	}
}

// Close closes the current and any queued streams that are io.Closers.
func (in *Input) Close() (err error) {
	in.closeIn()
	for _, r := range in.Queue {
		if cl, ok := r.(io.Closer); ok {
			if cerr := cl.Close(); err == nil {
				err = cerr
			}
		}
	}
	in.Queue = nil
	return err
}

func (in *Input) advance(p []byte) {
	in.Loc.Offset += int64(len(p))
	in.Loc.Line += bytes.Count(p, []byte{'\n'})
}

func (in *Input) closeIn() {
	if in.r != nil {
		if cl, ok := in.r.(io.Closer); ok {
			cl.Close()
		}
		in.r = nil
	}
}

func (in *Input) nextIn() bool {
	in.closeIn()
	if len(in.Queue) > 0 {
		r := in.Queue[0]
		in.Queue = in.Queue[1:]
		in.r = r
		in.Loc = Location{Name: nameOf(r), Line: 1}
	}
	return in.r != nil
}

func nameOf(obj interface{}) string {
	if nom, ok := obj.(interface{ Name() string }); ok {
		return nom.Name()
	}
	return fmt.Sprintf("<unnamed %T>", obj)
}

// NamedReader attaches a name to r for Location reporting.
func NamedReader(name string, r io.Reader) io.Reader {
	if cl, ok := r.(io.Closer); ok {
		return namedReadCloser{namedReader{r, name}, cl}
	}
	return namedReader{r, name}
}

type namedReader struct {
	io.Reader
	name string
}

func (nr namedReader) Name() string { return nr.name }

type namedReadCloser struct {
	namedReader
	io.Closer
}
