package vm

import (
	"context"
	"io"

	"github.com/jcorbin/voz/internal/fault"
	"github.com/jcorbin/voz/internal/iobuf"
	"github.com/jcorbin/voz/internal/isa"
)

func (vm *VM) step(ctx context.Context) {
	vm.at = vm.ptr
	vm.ptr++
	in := vm.prog[vm.at]
	if vm.logfn != nil {
		vm.logf("exec", "@%v %v -- calls:%v", vm.at, in, vm.calls)
	}

	switch in.Op {
	case isa.OpHalt:
		vm.exitCode = int(in.A)
		vm.halt(nil)

	case isa.OpReturn:
		i := len(vm.calls) - 1
		if i < 0 {
			vm.fault(fault.ControlError{Reason: "return with empty call stack"})
		}
		vm.ptr, vm.calls = vm.calls[i], vm.calls[:i]

	case isa.OpMove:
		vm.stor(in.A, in.B)
	case isa.OpDuplicate:
		vm.stor(in.A, vm.load(in.B))
	case isa.OpIncrement:
		vm.stor(in.A, vm.load(in.A)+1)
	case isa.OpDecrement:
		vm.stor(in.A, vm.load(in.A)-1)
	case isa.OpAdd:
		vm.stor(in.A, vm.load(in.A)+vm.load(in.B))
	case isa.OpSub:
		vm.stor(in.A, vm.load(in.A)-vm.load(in.B))
	case isa.OpMul:
		vm.stor(in.A, vm.load(in.A)*vm.load(in.B))
	case isa.OpDiv:
		a, b := vm.load(in.A), vm.load(in.B)
		if b == 0 {
			vm.fault(fault.ArithmeticError("division by zero"))
		}
		vm.stor(in.A, a/b)

	case isa.OpCall:
		vm.jump(in.A)
		vm.calls = append(vm.calls, vm.at+1)
	case isa.OpJump:
		vm.jump(in.A)
	case isa.OpJumpEq, isa.OpJumpNe, isa.OpJumpGt, isa.OpJumpGe, isa.OpJumpLt, isa.OpJumpLe:
		if compare(in.Op, vm.load(in.B), vm.load(in.C)) {
			vm.jump(in.A)
		}

	case isa.OpMoveConst:
		words, err := vm.consts.Get(in.B)
		vm.faultif(err)
		vm.faultif(vm.mem.StorRange(in.A, words...))
	case isa.OpCaptureConst:
		words, err := vm.mem.Range(in.A, in.B)
		vm.faultif(err)
		k := vm.consts.Append(words)
		vm.logf("#", "capconst @%v+%v -> const #%v", in.A, in.B, k)

	case isa.OpCreateFile:
		vm.register("createfile", func(name string) (iobuf.Buffer, error) {
			return iobuf.Create(name)
		}, in.A)
	case isa.OpOpenFile:
		vm.register("openfile", func(name string) (iobuf.Buffer, error) {
			return iobuf.Open(name)
		}, in.A)
	case isa.OpConnect:
		vm.register("connect", func(addr string) (iobuf.Buffer, error) {
			return iobuf.Dial(ctx, addr)
		}, in.A)
	case isa.OpListen:
		vm.register("listen", func(addr string) (iobuf.Buffer, error) {
			return iobuf.Accept(ctx, addr, vm.notify)
		}, in.A)

	case isa.OpWrite:
		p, err := vm.mem.Bytes(in.B, in.C)
		vm.faultif(err)
		w := vm.writer(in.A)
		n, err := w.Write(p)
		if err == nil && n < len(p) {
			err = io.ErrShortWrite
		}
		vm.faultif(fault.IO("write", err))

	case isa.OpRead:
		words, err := vm.mem.Range(in.B, in.C)
		vm.faultif(err)
		r := vm.reader(in.A)
		p := make([]byte, len(words))
		if _, err := io.ReadFull(r, p); err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			vm.fault(fault.IO("read", err))
		}
		for i, b := range p {
			words[i] = Word(b)
		}

	default:
		vm.fault(fault.UnsupportedError{Op: in.Op.String(), Reason: "invalid opcode"})
	}
}

func (vm *VM) load(addr Word) Word {
	val, err := vm.mem.Load(addr)
	vm.faultif(err)
	return val
}

func (vm *VM) stor(addr, val Word) {
	vm.faultif(vm.mem.Stor(addr, val))
}

// jump moves the pointer to target; a target equal to the program length
// ends the program.
func (vm *VM) jump(target Word) {
	if target > Word(len(vm.prog)) {
		vm.fault(fault.ControlError{Reason: "jump out of program", Target: target})
	}
	vm.ptr = target
}

func compare(op isa.Opcode, a, b Word) bool {
	switch op {
	case isa.OpJumpEq:
		return a == b
	case isa.OpJumpNe:
		return a != b
	case isa.OpJumpGt:
		return a > b
	case isa.OpJumpGe:
		return a >= b
	case isa.OpJumpLt:
		return a < b
	case isa.OpJumpLe:
		return a <= b
	}
	return false
}

// register decodes constant k, opens a buffer with it, and adds that buffer
// to the registry.
func (vm *VM) register(op string, open func(string) (iobuf.Buffer, error), k Word) {
	name, err := vm.consts.Text(k)
	vm.faultif(err)
	b, err := open(name)
	vm.faultif(fault.IO(op, err))
	handle, err := vm.bufs.Add(b)
	vm.faultif(err)
	vm.logf("#", "%v %q -> buffer %v", op, name, handle)
}
