package fault_test

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jcorbin/voz/internal/fault"
)

func TestKinds(t *testing.T) {
	for _, tc := range []struct {
		name string
		err  error
		kind error
		str  string
	}{
		{"address", fault.AddressError{Space: "memory", Index: 1024, Size: 1024}, fault.ErrAddress,
			"memory index 1024 out of bounds (size 1024)"},
		{"address range", fault.AddressError{Space: "memory", Index: 1020, Len: 8, Size: 1024}, fault.ErrAddress,
			"memory range [1020, 1020+8) out of bounds (size 1024)"},
		{"arithmetic", fault.ArithmeticError("division by zero"), fault.ErrArithmetic,
			"division by zero"},
		{"control", fault.ControlError{Reason: "return with empty call stack"}, fault.ErrControl,
			"return with empty call stack"},
		{"control target", fault.ControlError{Reason: "jump out of program", Target: 99}, fault.ErrControl,
			"jump out of program (target 99)"},
		{"io", fault.IO("read", io.ErrUnexpectedEOF), fault.ErrIO,
			"read: unexpected EOF"},
		{"encoding", fault.EncodingError{Offset: 2, Word: 0xd800}, fault.ErrEncoding,
			"invalid code point 0xd800 at offset 2"},
		{"unsupported", fault.UnsupportedError{Op: "listen", Reason: "no socket lowering"}, fault.ErrUnsupported,
			"listen unsupported: no socket lowering"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.EqualError(t, tc.err, tc.str)
			assert.True(t, errors.Is(tc.err, tc.kind), "expected %v kind", tc.kind)
			wrapped := fmt.Errorf("@3: %w", tc.err)
			assert.True(t, errors.Is(wrapped, tc.kind), "expected wrapped %v kind", tc.kind)
			for _, other := range []error{fault.ErrAddress, fault.ErrArithmetic, fault.ErrControl, fault.ErrIO, fault.ErrEncoding, fault.ErrUnsupported} {
				if other != tc.kind {
					assert.False(t, errors.Is(tc.err, other), "unexpected %v kind", other)
				}
			}
		})
	}
}

func TestIO(t *testing.T) {
	assert.NoError(t, fault.IO("write", nil))

	err := fault.IO("read", io.ErrUnexpectedEOF)
	assert.True(t, errors.Is(err, io.ErrUnexpectedEOF), "expected cause to unwrap")

	again := fault.IO("outer", err)
	assert.Equal(t, err, again, "expected IO to not rewrap an IOError")
}
