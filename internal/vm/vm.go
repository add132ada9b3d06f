// Package vm implements the voz interpreter: a register machine over a
// fixed word memory, a constant pool, and a registry of I/O buffers.
package vm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/jcorbin/voz/internal/consts"
	"github.com/jcorbin/voz/internal/fault"
	"github.com/jcorbin/voz/internal/fileinput"
	"github.com/jcorbin/voz/internal/flushio"
	"github.com/jcorbin/voz/internal/iobuf"
	"github.com/jcorbin/voz/internal/isa"
	"github.com/jcorbin/voz/internal/mem"
	"github.com/jcorbin/voz/internal/panicerr"
)

// Word is the universal value type.
type Word = isa.Word

// VM holds the complete state of one evaluation. It owns its memory,
// constant pool, buffer registry and call stack until Run returns.
type VM struct {
	logging

	in     fileinput.Input
	out    flushio.WriteFlusher
	errOut flushio.WriteFlusher
	notify func(net.Addr)

	prog  isa.Program
	at    Word // pointer of the instruction being executed
	ptr   Word // pointer of the next instruction
	calls []Word

	mem    mem.Words
	consts *consts.Pool
	bufs   iobuf.Registry

	exitCode int
	ran      bool
}

var errRan = errors.New("vm has already run")

// New creates a machine that will run prog with the given constants seeding
// its pool.
func New(constants []string, prog isa.Program, opts ...Option) *VM {
	vm := &VM{
		prog:   prog,
		consts: consts.New(constants),
	}
	defaultOptions.apply(vm)
	Options(opts...).apply(vm)
	return vm
}

// Run executes the program to completion, returning nil after a Halt or
// after the pointer runs off the end of the program. Any fault is returned
// as a *StepError. The buffer registry is closed before Run returns.
// A machine may only be run once.
func (vm *VM) Run(ctx context.Context) error {
	if vm.ran {
		return errRan
	}
	vm.ran = true

	err := panicerr.Recover("vm", func() error {
		vm.exec(ctx)
		return nil
	})
	var halted haltError
	if errors.As(err, &halted) {
		err = halted.error
	}
	if cerr := vm.bufs.Close(); err == nil {
		err = fault.IO("close", cerr)
	}
	return err
}

// Close releases any buffers and input streams still held by the machine.
func (vm *VM) Close() (err error) {
	if cerr := vm.bufs.Close(); cerr != nil {
		err = cerr
	}
	if cerr := vm.in.Close(); err == nil {
		err = cerr
	}
	return err
}

// ExitCode returns the code given to the Halt instruction that stopped the
// machine, or 0.
func (vm *VM) ExitCode() int { return vm.exitCode }

// Pointer returns the index of the next instruction.
func (vm *VM) Pointer() Word { return vm.ptr }

// Memory returns the machine's word file.
func (vm *VM) Memory() *mem.Words { return &vm.mem }

// Constants returns the machine's constant pool.
func (vm *VM) Constants() *consts.Pool { return vm.consts }

// CallStack returns a copy of the saved return addresses, oldest first.
func (vm *VM) CallStack() []Word { return append([]Word(nil), vm.calls...) }

// StepError is a fault raised while executing a single instruction.
type StepError struct {
	Ptr  Word
	Inst isa.Instruction
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("@%v %v: %v", e.Ptr, e.Inst, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

type haltError struct{ error }

func (err haltError) Error() string {
	if err.error != nil {
		return fmt.Sprintf("halted: %v", err.error)
	}
	return "halted"
}

func (err haltError) Unwrap() error { return err.error }

// halt flushes output, then stops the machine by panicking with a
// haltError; Run recovers it.
func (vm *VM) halt(err error) {
	// ignore any panics while trying to flush output
	func() {
		defer func() { recover() }()
		if ferr := vm.flush(); err == nil {
			err = ferr
		}
	}()

	// ignore any panics while logging
	func() {
		defer func() { recover() }()
		if err != nil {
			vm.logf("#", "halt error: %v", err)
		} else {
			vm.logf("#", "halt code:%v", vm.exitCode)
		}
	}()

	panic(haltError{err})
}

// fault halts with err attributed to the current instruction.
func (vm *VM) fault(err error) {
	var inst isa.Instruction
	if vm.at < Word(len(vm.prog)) {
		inst = vm.prog[vm.at]
	}
	vm.halt(&StepError{Ptr: vm.at, Inst: inst, Err: err})
}

func (vm *VM) faultif(err error) {
	if err != nil {
		vm.fault(err)
	}
}

func (vm *VM) flush() (err error) {
	for _, wf := range [...]flushio.WriteFlusher{vm.out, vm.errOut} {
		if wf == nil {
			continue
		}
		if ferr := wf.Flush(); err == nil && ferr != nil {
			err = fault.IO("flush", ferr)
		}
	}
	return err
}

func (vm *VM) exec(ctx context.Context) {
	if vm.logfn != nil {
		defer vm.withLogPrefix("	")()
	}
	vm.ptr = 0
	for vm.ptr < Word(len(vm.prog)) {
		if err := ctx.Err(); err != nil {
			vm.halt(err)
		}
		vm.step(ctx)
	}
	vm.halt(nil)
}

// writer resolves a Write target handle.
func (vm *VM) writer(target Word) io.Writer {
	switch target {
	case iobuf.Input:
		vm.fault(fault.AddressError{Space: "output buffer", Index: target, Size: iobuf.FirstHandle + Word(vm.bufs.Len())})
	case iobuf.Output:
		return vm.out
	case iobuf.Error:
		return vm.errOut
	}
	b, err := vm.bufs.Get(target)
	vm.faultif(err)
	return b
}

// reader resolves a Read target handle.
func (vm *VM) reader(target Word) io.Reader {
	switch target {
	case iobuf.Input:
		// prompts written so far must be visible before blocking on input
		vm.faultif(vm.flush())
		return &vm.in
	case iobuf.Output, iobuf.Error:
		vm.fault(fault.AddressError{Space: "input buffer", Index: target, Size: iobuf.FirstHandle + Word(vm.bufs.Len())})
	}
	b, err := vm.bufs.Get(target)
	vm.faultif(err)
	return b
}
