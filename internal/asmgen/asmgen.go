// Package asmgen lowers a voz program to x86-64 Linux assembly in NASM
// syntax.
//
// The generated program has no runtime word array: memory slot i is a fixed
// qword inside one stack frame that _start sets up and zeroes, anchored at
// rbp. Below memory the frame holds a handle count and a table of up to
// MaxHandles file descriptors. Each file create/open that runs appends its
// descriptor to the table, so handles are numbered in execution order from
// 3, as in the interpreter; opening past MaxHandles, or writing to a handle
// not yet opened, is a fault. Control flow jumps to labels named by the
// target instruction index, defined after lowering by the label resolver.
//
// Connect, Listen, and Read have no lowering, nor does CaptureConst, whose
// runtime constants would have no address in the static data section; all
// four fail generation with a fault.UnsupportedError.
package asmgen

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/jcorbin/voz/internal/artifact"
	"github.com/jcorbin/voz/internal/asmstr"
	"github.com/jcorbin/voz/internal/fault"
	"github.com/jcorbin/voz/internal/iobuf"
	"github.com/jcorbin/voz/internal/isa"
	"github.com/jcorbin/voz/internal/mem"
	"github.com/jcorbin/voz/internal/runeio"
)

// Word is the machine word.
type Word = isa.Word

const wordSize = 8

// MaxHandles is the capacity of the generated program's descriptor table.
const MaxHandles = 256

// Frame layout, as byte offsets below rbp: memory, then the handle count,
// then the descriptor table, rounded to 16 bytes.
const (
	memBytes    = mem.Size * wordSize
	countOffset = memBytes + wordSize
	tableOffset = countOffset + MaxHandles*wordSize
	frameSize   = (tableOffset + 15) / 16 * 16
)

// linux x86-64 system call numbers and open(2) flags
const (
	sysWrite = 1
	sysOpen  = 2
	sysExit  = 60

	oRDWR  = 0x2
	oCREAT = 0x40
	oTRUNC = 0x200
)

// InstError is a generation failure attributed to one instruction.
type InstError struct {
	At   Word
	Inst isa.Instruction
	Err  error
}

func (e *InstError) Error() string { return fmt.Sprintf("@%v %v: %v", e.At, e.Inst, e.Err) }
func (e *InstError) Unwrap() error { return e.Err }

// Generate returns the complete assembly text for prog, or the first error.
// No output is returned along with an error.
func Generate(constants []string, prog isa.Program) ([]byte, error) {
	gen := newGenerator(constants, prog)
	for i, in := range prog {
		if err := gen.lower(Word(i), in); err != nil {
			return nil, &InstError{At: Word(i), Inst: in, Err: err}
		}
	}
	var buf bytes.Buffer
	gen.writeTo(&buf)
	return buf.Bytes(), nil
}

// GenerateFile generates assembly for prog and atomically writes it to path.
// Nothing is written when generation fails.
func GenerateFile(path string, constants []string, prog isa.Program) error {
	data, err := Generate(constants, prog)
	if err != nil {
		return err
	}
	return artifact.WriteFile(path, data, 0644)
}

// block is the text lines emitted for one instruction, or for one label.
type block []string

type generator struct {
	consts []string
	prog   isa.Program

	blocks []block
	labels labels
}

func newGenerator(constants []string, prog isa.Program) *generator {
	return &generator{
		consts: constants,
		prog:   prog,
		blocks: make([]block, 0, len(prog)),
	}
}

// slot returns the memory operand for memory slot i.
func (gen *generator) slot(i Word) string {
	return fmt.Sprintf("[rbp-%d]", memBytes-int(i)*wordSize)
}

func imm(w Word) string {
	if w < 1<<31 {
		return fmt.Sprintf("%d", w)
	}
	return fmt.Sprintf("0x%x", w)
}

func checkAddr(addr Word) error {
	if addr >= mem.Size {
		return fault.AddressError{Space: "memory", Index: addr, Size: mem.Size}
	}
	return nil
}

func checkRange(addr, n Word) error {
	if addr >= mem.Size || n > mem.Size-addr {
		return fault.AddressError{Space: "memory", Index: addr, Len: n, Size: mem.Size}
	}
	return nil
}

func (gen *generator) checkTarget(target Word) error {
	if target > Word(len(gen.prog)) {
		return fault.ControlError{Reason: "jump out of program", Target: target}
	}
	return nil
}

func (gen *generator) constant(k Word) ([]Word, error) {
	if k >= Word(len(gen.consts)) {
		return nil, fault.AddressError{Space: "constant", Index: k, Size: Word(len(gen.consts))}
	}
	return runeio.ToWords(gen.consts[k]), nil
}

// filename checks that constant k can be passed to open(2) as a NUL
// terminated path.
func (gen *generator) filename(k Word) error {
	words, err := gen.constant(k)
	if err != nil {
		return err
	}
	for i, w := range words {
		if w == 0 {
			return fault.EncodingError{Offset: i, Word: w}
		}
	}
	return nil
}

var jumpOps = map[isa.Opcode]string{
	isa.OpCall:   "call",
	isa.OpJump:   "jmp",
	isa.OpJumpEq: "je",
	isa.OpJumpNe: "jne",
	isa.OpJumpGt: "ja",
	isa.OpJumpGe: "jae",
	isa.OpJumpLt: "jb",
	isa.OpJumpLe: "jbe",
}

var arithOps = map[isa.Opcode]string{
	isa.OpAdd: "add",
	isa.OpSub: "sub",
}

// lower appends the block for instruction i.
func (gen *generator) lower(i Word, in isa.Instruction) error {
	b := block{fmt.Sprintf("; @%v %v", i, in)}
	emit := func(format string, args ...interface{}) {
		b = append(b, "\t"+fmt.Sprintf(format, args...))
	}

	switch in.Op {
	case isa.OpHalt:
		emit("mov rdi, %v", imm(in.A))
		emit("mov eax, %d", sysExit)
		emit("syscall")

	case isa.OpReturn:
		emit("ret")

	case isa.OpMove:
		if err := checkAddr(in.A); err != nil {
			return err
		}
		if in.B < 1<<31 {
			emit("mov qword %v, %v", gen.slot(in.A), imm(in.B))
		} else {
			emit("mov rax, %v", imm(in.B))
			emit("mov %v, rax", gen.slot(in.A))
		}

	case isa.OpDuplicate:
		if err := firstErr(checkAddr(in.A), checkAddr(in.B)); err != nil {
			return err
		}
		emit("mov rax, %v", gen.slot(in.B))
		emit("mov %v, rax", gen.slot(in.A))

	case isa.OpIncrement, isa.OpDecrement:
		if err := checkAddr(in.A); err != nil {
			return err
		}
		emit("%v qword %v", in.Op, gen.slot(in.A))

	case isa.OpAdd, isa.OpSub:
		if err := firstErr(checkAddr(in.A), checkAddr(in.B)); err != nil {
			return err
		}
		emit("mov rax, %v", gen.slot(in.B))
		emit("%v %v, rax", arithOps[in.Op], gen.slot(in.A))

	case isa.OpMul:
		if err := firstErr(checkAddr(in.A), checkAddr(in.B)); err != nil {
			return err
		}
		emit("mov rax, %v", gen.slot(in.A))
		emit("imul rax, %v", gen.slot(in.B))
		emit("mov %v, rax", gen.slot(in.A))

	case isa.OpDiv:
		if err := firstErr(checkAddr(in.A), checkAddr(in.B)); err != nil {
			return err
		}
		emit("mov rcx, %v", gen.slot(in.B))
		emit("test rcx, rcx")
		emit("jz voz_fault")
		emit("mov rax, %v", gen.slot(in.A))
		emit("xor edx, edx")
		emit("div rcx")
		emit("mov %v, rax", gen.slot(in.A))

	case isa.OpCall, isa.OpJump:
		if err := gen.checkTarget(in.A); err != nil {
			return err
		}
		emit("%v %v", jumpOps[in.Op], gen.labels.ref(in.A))

	case isa.OpJumpEq, isa.OpJumpNe, isa.OpJumpGt, isa.OpJumpGe, isa.OpJumpLt, isa.OpJumpLe:
		if err := firstErr(gen.checkTarget(in.A), checkAddr(in.B), checkAddr(in.C)); err != nil {
			return err
		}
		emit("mov rax, %v", gen.slot(in.B))
		emit("cmp rax, %v", gen.slot(in.C))
		emit("%v %v", jumpOps[in.Op], gen.labels.ref(in.A))

	case isa.OpMoveConst:
		words, err := gen.constant(in.B)
		if err != nil {
			return err
		}
		if len(words) > 0 {
			if err := checkRange(in.A, Word(len(words))); err != nil {
				return err
			}
		}
		for j, w := range words {
			emit("mov qword %v, %v", gen.slot(in.A+Word(j)), imm(w))
		}

	case isa.OpCreateFile, isa.OpOpenFile:
		if err := gen.filename(in.A); err != nil {
			return err
		}
		flags, perm := oRDWR, 0
		if in.Op == isa.OpCreateFile {
			flags, perm = oRDWR|oCREAT|oTRUNC, 0644
		}
		emit("mov eax, %d", sysOpen)
		emit("lea rdi, [rel voz_const_%d]", in.A)
		emit("mov esi, 0x%x", flags)
		emit("mov edx, %d", perm)
		emit("syscall")
		emit("test rax, rax")
		emit("js voz_fault")
		emit("mov rcx, [rbp-%d]", countOffset)
		emit("cmp rcx, %d", MaxHandles)
		emit("jae voz_fault")
		emit("lea rdx, [rbp-%d]", tableOffset)
		emit("mov [rdx+rcx*8], rax")
		emit("inc qword [rbp-%d]", countOffset)

	case isa.OpWrite:
		if in.A == iobuf.Input {
			return fault.AddressError{Space: "output buffer", Index: in.A, Size: iobuf.FirstHandle + MaxHandles}
		}
		if in.C > 0 {
			if err := checkRange(in.B, in.C); err != nil {
				return err
			}
		}
		if in.A < iobuf.FirstHandle {
			emit("mov r8d, %d", in.A)
		} else {
			// handles past the count of opens run so far are a fault
			emit("mov rax, %v", imm(in.A-iobuf.FirstHandle))
			emit("cmp rax, [rbp-%d]", countOffset)
			emit("jae voz_fault")
			emit("lea rdx, [rbp-%d]", tableOffset)
			emit("mov r8, [rdx+rax*8]")
		}
		if in.C == 0 {
			b = append(b, "\t; nothing to write")
			break
		}
		gather := fmt.Sprintf("voz_gather_%d", i)
		emit("lea rsi, %v", gen.slot(in.B))
		emit("lea rdi, [rel voz_scratch]")
		emit("mov ecx, %d", in.C)
		b = append(b, gather+":")
		emit("mov al, [rsi]")
		emit("mov [rdi], al")
		emit("add rsi, %d", wordSize)
		emit("inc rdi")
		emit("dec ecx")
		emit("jnz %v", gather)
		emit("mov eax, %d", sysWrite)
		emit("mov rdi, r8")
		emit("lea rsi, [rel voz_scratch]")
		emit("mov edx, %d", in.C)
		emit("syscall")
		emit("cmp rax, %d", in.C)
		emit("jne voz_fault")

	case isa.OpCaptureConst:
		return fault.UnsupportedError{Op: in.Op.String(), Reason: "constants are static in generated code"}

	case isa.OpConnect, isa.OpListen, isa.OpRead:
		return fault.UnsupportedError{Op: in.Op.String(), Reason: "no lowering"}

	default:
		return fault.UnsupportedError{Op: in.Op.String(), Reason: "invalid opcode"}
	}

	gen.blocks = append(gen.blocks, b)
	return nil
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func (gen *generator) writeTo(w io.Writer) {
	fmt.Fprintf(w, "; generated by voz: %v instructions, %v constants\n", len(gen.prog), len(gen.consts))
	fmt.Fprintf(w, "\tbits 64\n")
	fmt.Fprintf(w, "\tglobal _start\n\n")
	fmt.Fprintf(w, "\tsection .text\n")

	fmt.Fprintf(w, "_start:\n")
	fmt.Fprintf(w, "\tmov rbp, rsp\n")
	fmt.Fprintf(w, "\tsub rsp, %d\n", frameSize)
	fmt.Fprintf(w, "\tmov rdi, rsp\n")
	fmt.Fprintf(w, "\tmov ecx, %d\n", frameSize/wordSize)
	fmt.Fprintf(w, "\txor eax, eax\n")
	fmt.Fprintf(w, "\trep stosq\n")
	// a return with an empty call stack lands in voz_fault
	fmt.Fprintf(w, "\tlea rax, [rel voz_fault]\n")
	fmt.Fprintf(w, "\tpush rax\n")

	for _, b := range gen.labels.splice(gen.blocks) {
		io.WriteString(w, strings.Join(b, "\n"))
		io.WriteString(w, "\n")
	}

	fmt.Fprintf(w, "voz_exit:\n")
	fmt.Fprintf(w, "\txor edi, edi\n")
	fmt.Fprintf(w, "\tmov eax, %d\n", sysExit)
	fmt.Fprintf(w, "\tsyscall\n")
	fmt.Fprintf(w, "voz_fault:\n")
	fmt.Fprintf(w, "\tmov edi, 1\n")
	fmt.Fprintf(w, "\tmov eax, %d\n", sysExit)
	fmt.Fprintf(w, "\tsyscall\n")

	fmt.Fprintf(w, "\n\tsection .data\n")
	for k, s := range gen.consts {
		fmt.Fprintf(w, "voz_const_%d: db %v\n", k, asmstr.Encode(s))
		fmt.Fprintf(w, "voz_const_%d_len equ %d\n", k, len(s))
	}

	fmt.Fprintf(w, "\n\tsection .bss\n")
	fmt.Fprintf(w, "voz_scratch: resb %d\n", mem.Size)
}

// WriteTo writes the generated assembly for prog to w.
func WriteTo(w io.Writer, constants []string, prog isa.Program) error {
	data, err := Generate(constants, prog)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
