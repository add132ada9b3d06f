// Package fault defines the failure kinds shared by the interpreter and the
// assembly generator.
//
// Every typed error in this package matches its kind sentinel under
// errors.Is, so callers may test for a kind without caring which component
// raised it:
//
//	if errors.Is(err, fault.ErrAddress) { ... }
package fault

import (
	"errors"
	"fmt"
)

// Kind sentinels.
var (
	ErrAddress     = errors.New("address out of range")
	ErrArithmetic  = errors.New("arithmetic fault")
	ErrControl     = errors.New("control fault")
	ErrIO          = errors.New("i/o fault")
	ErrEncoding    = errors.New("invalid code point")
	ErrUnsupported = errors.New("unsupported operation")
)

// AddressError reports an index or a [Index, Index+Len) range that falls
// outside of a Space of the given Size.
type AddressError struct {
	Space string // "memory", "constant", "buffer", ...
	Index uint64
	Len   uint64
	Size  uint64
}

func (e AddressError) Error() string {
	if e.Len > 0 {
		return fmt.Sprintf("%v range [%v, %v+%v) out of bounds (size %v)", e.Space, e.Index, e.Index, e.Len, e.Size)
	}
	return fmt.Sprintf("%v index %v out of bounds (size %v)", e.Space, e.Index, e.Size)
}

func (e AddressError) Is(target error) bool { return target == ErrAddress }

// ArithmeticError reports an arithmetic fault, like division by zero.
type ArithmeticError string

func (e ArithmeticError) Error() string        { return string(e) }
func (e ArithmeticError) Is(target error) bool { return target == ErrArithmetic }

// ControlError reports a control flow fault: a return with an empty call
// stack, or a jump outside of the program.
type ControlError struct {
	Reason string
	Target uint64
}

func (e ControlError) Error() string {
	if e.Target != 0 {
		return fmt.Sprintf("%v (target %v)", e.Reason, e.Target)
	}
	return e.Reason
}

func (e ControlError) Is(target error) bool { return target == ErrControl }

// IOError wraps an open, connect, accept, read or write failure.
type IOError struct {
	Op  string
	Err error
}

func (e IOError) Error() string        { return fmt.Sprintf("%v: %v", e.Op, e.Err) }
func (e IOError) Is(target error) bool { return target == ErrIO }
func (e IOError) Unwrap() error        { return e.Err }

// EncodingError reports a word that is not a valid unicode scalar value.
type EncodingError struct {
	Offset int
	Word   uint64
}

func (e EncodingError) Error() string {
	return fmt.Sprintf("invalid code point %#x at offset %v", e.Word, e.Offset)
}

func (e EncodingError) Is(target error) bool { return target == ErrEncoding }

// UnsupportedError reports an operation that some backend cannot perform.
type UnsupportedError struct {
	Op     string
	Reason string
}

func (e UnsupportedError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%v unsupported: %v", e.Op, e.Reason)
	}
	return fmt.Sprintf("%v unsupported", e.Op)
}

func (e UnsupportedError) Is(target error) bool { return target == ErrUnsupported }

// IO wraps any non-nil err as an IOError.
func IO(op string, err error) error {
	if err == nil {
		return nil
	}
	var ioe IOError
	if errors.As(err, &ioe) {
		return err
	}
	return IOError{op, err}
}
