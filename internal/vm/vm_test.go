package vm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jcorbin/voz/internal/fileinput"
	"github.com/jcorbin/voz/internal/isa"
	"github.com/jcorbin/voz/internal/logio"
)

type vmTestCases []vmTestCase

func (vmts vmTestCases) run(t *testing.T) {
	{
		var exclusive []vmTestCase
		for _, vmt := range vmts {
			if vmt.exclusive {
				exclusive = append(exclusive, vmt)
			}
		}
		if len(exclusive) > 0 {
			vmts = exclusive
		}
	}
	for _, vmt := range vmts {
		if !t.Run(vmt.name, vmt.run) {
			return
		}
	}
}

func vmTest(name string) (vmt vmTestCase) {
	vmt.name = name
	return vmt
}

type optFunc func(vm *VM)

func (f optFunc) apply(vm *VM) { f(vm) }

type vmTestCase struct {
	name    string
	consts  []string
	prog    isa.Program
	opts    []interface{}
	expect  []func(t *testing.T, vm *VM)
	timeout time.Duration
	wantErr error
	wantAt  *Word

	exclusive   bool
	nextInputID int
}

func (vmt vmTestCase) apply(wraps ...func(vmTestCase) vmTestCase) vmTestCase {
	for _, wrap := range wraps {
		vmt = wrap(vmt)
	}
	return vmt
}

func (vmt vmTestCase) exclusiveTest() vmTestCase {
	vmt.exclusive = true
	return vmt
}

func (vmt vmTestCase) withOptions(opts ...Option) vmTestCase {
	for _, opt := range opts {
		vmt.opts = append(vmt.opts, opt)
	}
	return vmt
}

func (vmt vmTestCase) withConsts(strs ...string) vmTestCase {
	vmt.consts = append(vmt.consts, strs...)
	return vmt
}

func (vmt vmTestCase) withProg(prog ...isa.Instruction) vmTestCase {
	vmt.prog = append(vmt.prog, prog...)
	return vmt
}

func (vmt vmTestCase) withMemAt(addr Word, values ...Word) vmTestCase {
	if len(values) != 0 {
		vmt.opts = append(vmt.opts, optFunc(func(vm *VM) {
			if err := vm.mem.StorRange(addr, values...); err != nil {
				panic(err)
			}
		}))
	}
	return vmt
}

func (vmt vmTestCase) withInput(input string) vmTestCase {
	vmt.opts = append(vmt.opts, func(vmt *vmTestCase, t *testing.T) Option {
		name := t.Name() + "/input"
		if id := vmt.nextInputID; id > 0 {
			name += "_" + strconv.Itoa(id+1)
		}
		vmt.nextInputID++
		return WithInput(fileinput.NamedReader(name, strings.NewReader(input)))
	})
	return vmt
}

func (vmt vmTestCase) withTimeout(timeout time.Duration) vmTestCase {
	vmt.timeout = timeout
	return vmt
}

func (vmt vmTestCase) withTestOutput() vmTestCase {
	vmt.opts = append(vmt.opts, func(vmt *vmTestCase, t *testing.T) Option {
		return WithTee(&logio.Writer{Logf: t.Logf, Prefix: "out: "})
	})
	return vmt
}

func (vmt vmTestCase) expectError(err error) vmTestCase {
	vmt.wantErr = err
	return vmt
}

func (vmt vmTestCase) expectErrorAt(ptr Word, err error) vmTestCase {
	vmt.wantErr = err
	vmt.wantAt = &ptr
	return vmt
}

func (vmt vmTestCase) expectExitCode(code int) vmTestCase {
	vmt.expect = append(vmt.expect, func(t *testing.T, vm *VM) {
		assert.Equal(t, code, vm.ExitCode(), "expected exit code")
	})
	return vmt
}

func (vmt vmTestCase) expectPointer(ptr Word) vmTestCase {
	vmt.expect = append(vmt.expect, func(t *testing.T, vm *VM) {
		assert.Equal(t, ptr, vm.Pointer(), "expected instruction pointer")
	})
	return vmt
}

func (vmt vmTestCase) expectCalls(values ...Word) vmTestCase {
	vmt.expect = append(vmt.expect, func(t *testing.T, vm *VM) {
		if values == nil {
			values = []Word{}
		}
		calls := vm.CallStack()
		if calls == nil {
			calls = []Word{}
		}
		assert.Equal(t, values, calls, "expected call stack")
	})
	return vmt
}

func (vmt vmTestCase) expectMemAt(addr Word, values ...Word) vmTestCase {
	vmt.expect = append(vmt.expect, func(t *testing.T, vm *VM) {
		buf := make([]Word, len(values))
		if assert.NoError(t, vm.mem.LoadInto(addr, buf)) {
			assert.Equal(t, values, buf, "expected memory values @%v", addr)
		}
	})
	return vmt
}

func (vmt vmTestCase) expectConst(k Word, s string) vmTestCase {
	vmt.expect = append(vmt.expect, func(t *testing.T, vm *VM) {
		text, err := vm.consts.Text(k)
		if assert.NoError(t, err, "expected valid constant #%v", k) {
			assert.Equal(t, s, text, "expected constant #%v", k)
		}
	})
	return vmt
}

func (vmt vmTestCase) expectConstCount(n int) vmTestCase {
	vmt.expect = append(vmt.expect, func(t *testing.T, vm *VM) {
		assert.Equal(t, n, vm.consts.Len(), "expected constant count")
	})
	return vmt
}

func (vmt vmTestCase) expectBufferCount(n int) vmTestCase {
	vmt.expect = append(vmt.expect, func(t *testing.T, vm *VM) {
		assert.Equal(t, n, vm.bufs.Len(), "expected buffer count")
	})
	return vmt
}

func (vmt vmTestCase) expectOutput(output string) vmTestCase {
	var out strings.Builder
	vmt.opts = append(vmt.opts, WithOutput(&out))
	vmt.expect = append(vmt.expect, func(t *testing.T, vm *VM) {
		assert.Equal(t, output, out.String(), "expected output")
	})
	return vmt
}

func (vmt vmTestCase) expectErrOutput(output string) vmTestCase {
	var out strings.Builder
	vmt.opts = append(vmt.opts, WithError(&out))
	vmt.expect = append(vmt.expect, func(t *testing.T, vm *VM) {
		assert.Equal(t, output, out.String(), "expected error output")
	})
	return vmt
}

func (vmt vmTestCase) expectDump(dump string) vmTestCase {
	vmt.expect = append(vmt.expect, func(t *testing.T, vm *VM) {
		var out strings.Builder
		vm.Dump(&out)
		assert.Equal(t, dump, out.String(), "expected dump")
	})
	return vmt
}

func (vmt vmTestCase) run(t *testing.T) {
	defer func(then time.Time) {
		label := "PASS"
		if t.Failed() {
			label = "FAIL"
		}
		t.Logf("%v\t%v\t%v", label, t.Name(), time.Now().Sub(then))
	}(time.Now())

	// trace lines are only interesting when something went wrong
	var trace []string
	defer func() {
		if t.Failed() {
			for _, line := range trace {
				t.Log(line)
			}
		}
	}()
	vm := vmt.buildVM(t)
	WithLogf(func(mess string, args ...interface{}) {
		trace = append(trace, fmt.Sprintf(mess, args...))
	}).apply(vm)

	vmt.runVMTest(context.Background(), t, vm)
}

func (vmt vmTestCase) runVMTest(ctx context.Context, t *testing.T, vm *VM) {
	const defaultTimeout = time.Second
	timeout := vmt.timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	defer func() {
		if t.Failed() {
			vmt.dumpToTest(t, vm)
		}
	}()

	err := vmt.runVM(ctx, vm)
	if vmt.wantErr != nil {
		assert.True(t, errors.Is(err, vmt.wantErr), "expected error: %v\ngot: %+v", vmt.wantErr, err)
		if vmt.wantAt != nil {
			var se *StepError
			if assert.True(t, errors.As(err, &se), "expected a step error, got: %+v", err) {
				assert.Equal(t, *vmt.wantAt, se.Ptr, "expected fault pointer")
			}
		}
	} else {
		assert.NoError(t, err, "unexpected VM run error")
	}

	if !t.Failed() {
		for _, expect := range vmt.expect {
			expect(t, vm)
		}
	}
}

func (vmt vmTestCase) runVM(ctx context.Context, vm *VM) (rerr error) {
	defer func() {
		if err := vm.Close(); err != nil && rerr == nil {
			rerr = fmt.Errorf("vm.Close failed: %w", err)
		}
	}()
	return vm.Run(ctx)
}

func (vmt vmTestCase) buildVM(t *testing.T) *VM {
	var opts []Option
	for _, o := range vmt.opts {
		switch impl := o.(type) {
		case func(vmt *vmTestCase, t *testing.T) Option:
			opts = append(opts, impl(&vmt, t))
		case Option:
			opts = append(opts, impl)
		default:
			t.Logf("unsupported vmTestCase opt type %T", o)
			t.FailNow()
		}
	}
	return New(vmt.consts, vmt.prog, opts...)
}

func (vmt vmTestCase) dumpToTest(t *testing.T, vm *VM) {
	lw := logio.Writer{Logf: t.Logf}
	defer lw.Close()
	vm.Dump(&lw)
}

//// utilities

func lines(parts ...string) string {
	return strings.Join(parts, "\n") + "\n"
}

// flushRecorder is an unbuffered writer that is not recognized as an in
// memory buffer, so the machine wraps it in a bufio.Writer.
type flushRecorder struct{ sb strings.Builder }

func (fr *flushRecorder) Write(p []byte) (int, error) { return fr.sb.Write(p) }

// peekReader records what was visible through out when first read.
type peekReader struct {
	io.Reader
	out  *flushRecorder
	seen *string
}

func (pr peekReader) Read(p []byte) (int, error) {
	if *pr.seen == "" {
		*pr.seen = pr.out.sb.String()
	}
	return pr.Reader.Read(p)
}
