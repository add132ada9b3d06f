// Package isa defines the voz instruction model: a closed set of opcodes,
// three-operand instructions, and programs addressed by instruction index.
package isa

import (
	"fmt"
	"strings"
)

// Word is the machine's only value type.
type Word = uint64

// Opcode names one machine operation; its numeric value is the wire code.
type Opcode uint8

const (
	// Here's a handy summary of all the operations and their operands:
	OpHalt         Opcode = iota // hlt        (code)             stop with an exit code
	OpReturn                     // ret        ()                 pop the call stack into the pointer
	OpMove                       // mov        (dst, imm)         mem[dst] = imm
	OpDuplicate                  // dup        (dst, src)         mem[dst] = mem[src]
	OpIncrement                  // inc        (dst)              mem[dst]++
	OpDecrement                  // dec        (dst)              mem[dst]--
	OpAdd                        // add        (dst, src)         mem[dst] += mem[src]
	OpSub                        // sub        (dst, src)         mem[dst] -= mem[src]
	OpMul                        // mul        (dst, src)         mem[dst] *= mem[src]
	OpDiv                        // div        (dst, src)         mem[dst] /= mem[src]
	OpCall                       // call       (target)           push return address, jump
	OpJump                       // jmp        (target)           jump
	OpJumpEq                     // je         (target, a, b)     jump if mem[a] == mem[b]
	OpJumpNe                     // jne        (target, a, b)     jump if mem[a] != mem[b]
	OpJumpGt                     // jg         (target, a, b)     jump if mem[a] > mem[b]
	OpJumpGe                     // jge        (target, a, b)     jump if mem[a] >= mem[b]
	OpJumpLt                     // jl         (target, a, b)     jump if mem[a] < mem[b]
	OpJumpLe                     // jle        (target, a, b)     jump if mem[a] <= mem[b]
	OpMoveConst                  // movconst   (dst, k)           copy constant k into memory at dst
	OpCaptureConst               // capconst   (src, len)         append mem[src:src+len] as a new constant
	OpCreateFile                 // createfile (k)                create/truncate the file named by constant k
	OpOpenFile                   // openfile   (k)                open the file named by constant k read-write
	OpConnect                    // connect    (k)                dial the address named by constant k
	OpListen                     // listen     (k)                accept one connection on the address named by constant k
	OpWrite                      // write      (target, src, len) write byte(mem[src:src+len]) to target
	OpRead                       // read       (target, dst, len) read exactly len bytes from target into mem[dst:]

	opMax
)

var opNames = [opMax]string{
	"hlt",
	"ret",
	"mov",
	"dup",
	"inc",
	"dec",
	"add",
	"sub",
	"mul",
	"div",
	"call",
	"jmp",
	"je",
	"jne",
	"jg",
	"jge",
	"jl",
	"jle",
	"movconst",
	"capconst",
	"createfile",
	"openfile",
	"connect",
	"listen",
	"write",
	"read",
}

// opArity is the number of meaningful operands for each opcode.
var opArity = [opMax]int{
	OpHalt:         1,
	OpReturn:       0,
	OpMove:         2,
	OpDuplicate:    2,
	OpIncrement:    1,
	OpDecrement:    1,
	OpAdd:          2,
	OpSub:          2,
	OpMul:          2,
	OpDiv:          2,
	OpCall:         1,
	OpJump:         1,
	OpJumpEq:       3,
	OpJumpNe:       3,
	OpJumpGt:       3,
	OpJumpGe:       3,
	OpJumpLt:       3,
	OpJumpLe:       3,
	OpMoveConst:    2,
	OpCaptureConst: 2,
	OpCreateFile:   1,
	OpOpenFile:     1,
	OpConnect:      1,
	OpListen:       1,
	OpWrite:        3,
	OpRead:         3,
}

var opsByName map[string]Opcode

func init() {
	opsByName = make(map[string]Opcode, len(opNames))
	for op, name := range opNames {
		opsByName[name] = Opcode(op)
	}
}

// NumOpcodes is one more than the highest valid opcode.
const NumOpcodes = int(opMax)

// Valid returns true only for opcodes in the canonical table.
func (op Opcode) Valid() bool { return op < opMax }

func (op Opcode) String() string {
	if op.Valid() {
		return opNames[op]
	}
	return fmt.Sprintf("op(%d)", uint8(op))
}

// Arity returns how many operands op uses; trailing operands beyond it are
// always zero in a well formed instruction.
func (op Opcode) Arity() int {
	if op.Valid() {
		return opArity[op]
	}
	return 3
}

// IsJump returns true for operations whose first operand is an instruction
// index: call, jmp, and the conditional jumps.
func (op Opcode) IsJump() bool {
	return op == OpCall || op == OpJump || (OpJumpEq <= op && op <= OpJumpLe)
}

// IsCompare returns true for the conditional jumps.
func (op Opcode) IsCompare() bool { return OpJumpEq <= op && op <= OpJumpLe }

// ParseOpcode returns the opcode for a mnemonic, case insensitively.
func ParseOpcode(name string) (Opcode, error) {
	if op, ok := opsByName[strings.ToLower(name)]; ok {
		return op, nil
	}
	return 0, fmt.Errorf("unknown opcode %q", name)
}

// Instruction is an opcode plus exactly three operands; unused operands are 0.
type Instruction struct {
	Op      Opcode
	A, B, C Word
}

// Inst is shorthand for building an instruction from up to three operands.
func Inst(op Opcode, args ...Word) Instruction {
	in := Instruction{Op: op}
	if len(args) > 0 {
		in.A = args[0]
	}
	if len(args) > 1 {
		in.B = args[1]
	}
	if len(args) > 2 {
		in.C = args[2]
	}
	return in
}

func (in Instruction) String() string {
	var sb strings.Builder
	sb.WriteString(in.Op.String())
	for i, arg := range [3]Word{in.A, in.B, in.C} {
		if i >= in.Op.Arity() {
			break
		}
		fmt.Fprintf(&sb, " %d", arg)
	}
	return sb.String()
}

// Program is a fixed sequence of instructions; jump targets index into it.
type Program []Instruction

// Decode builds a program from flat 4-word records (opcode, a, b, c).
func Decode(quads []Word) (Program, error) {
	if n := len(quads) % 4; n != 0 {
		return nil, fmt.Errorf("partial instruction record: %v trailing words", n)
	}
	prog := make(Program, 0, len(quads)/4)
	for i := 0; i < len(quads); i += 4 {
		code := quads[i]
		if code >= Word(opMax) {
			return nil, fmt.Errorf("instruction %v: invalid opcode %v", i/4, code)
		}
		prog = append(prog, Instruction{Opcode(code), quads[i+1], quads[i+2], quads[i+3]})
	}
	return prog, nil
}

// Encode flattens the program into 4-word records, the inverse of Decode.
func (prog Program) Encode() []Word {
	quads := make([]Word, 0, 4*len(prog))
	for _, in := range prog {
		quads = append(quads, Word(in.Op), in.A, in.B, in.C)
	}
	return quads
}

// Targets returns the jump target of every control flow instruction, in
// program order, duplicates included.
func (prog Program) Targets() []Word {
	var targets []Word
	for _, in := range prog {
		if in.Op.IsJump() {
			targets = append(targets, in.A)
		}
	}
	return targets
}
