package vm

import (
	"bytes"
	"fmt"
	"io"
	"strconv"

	"github.com/jcorbin/voz/internal/mem"
	"github.com/jcorbin/voz/internal/runeio"
)

// Dump writes a human readable summary of machine state to w: the pointer
// and call stack, the constant pool, the buffer registry, and every run of
// non-zero memory.
func (vm *VM) Dump(w io.Writer) {
	vmDumper{vm: vm, out: w}.dump()
}

type vmDumper struct {
	vm  *VM
	out io.Writer

	addrWidth int
}

func (dump vmDumper) dump() {
	fmt.Fprintf(dump.out, "# VM Dump\n")
	fmt.Fprintf(dump.out, "  ptr: %v / %v\n", dump.vm.ptr, len(dump.vm.prog))
	if at := dump.vm.at; at < Word(len(dump.vm.prog)) {
		fmt.Fprintf(dump.out, "  last: @%v %v\n", at, dump.vm.prog[at])
	}
	fmt.Fprintf(dump.out, "  calls: %v\n", dump.vm.calls)
	fmt.Fprintf(dump.out, "  exit: %v\n", dump.vm.exitCode)
	fmt.Fprintf(dump.out, "  buffers: %v\n", dump.vm.bufs.Len())

	dump.dumpProg()
	dump.dumpConsts()
	dump.dumpMem()
}

func (dump vmDumper) dumpProg() {
	prog := dump.vm.prog
	fmt.Fprintf(dump.out, "# Program (%v)\n", len(prog))
	width := len(strconv.Itoa(len(prog)))
	for i, in := range prog {
		mark := " "
		if Word(i) == dump.vm.at && dump.vm.ran {
			mark = ">"
		}
		fmt.Fprintf(dump.out, " %v%*v %v\n", mark, width, i, in)
	}
}

func (dump vmDumper) dumpConsts() {
	pool := dump.vm.consts
	fmt.Fprintf(dump.out, "# Constants (%v)\n", pool.Len())
	for k := 0; k < pool.Len(); k++ {
		words, _ := pool.Get(Word(k))
		fmt.Fprintf(dump.out, "  #%v %v\n", k, runeio.FormatWords(words))
	}
}

func (dump vmDumper) dumpMem() {
	if dump.addrWidth == 0 {
		dump.addrWidth = len(strconv.Itoa(mem.Size - 1))
	}
	fmt.Fprintf(dump.out, "# Memory\n")
	var buf lineBuffer
	dump.vm.mem.Runs(func(addr Word, values []Word) {
		fmt.Fprintf(&buf, "  @%*v %v", dump.addrWidth, addr, values)
		if looksLikeText(values) {
			buf.WriteByte(' ')
			buf.WriteString(runeio.FormatWords(values))
		}
		buf.WriteTo(dump.out)
	})
}

// looksLikeText is true when every value is a byte sized code point.
func looksLikeText(values []Word) bool {
	if len(values) < 2 {
		return false
	}
	for _, v := range values {
		if v > 0xff {
			return false
		}
	}
	return true
}

// lineBuffer accumulates one line, terminating it when written out.
type lineBuffer struct{ bytes.Buffer }

func (lb *lineBuffer) WriteTo(w io.Writer) (int64, error) {
	if b := lb.Bytes(); len(b) > 0 && b[len(b)-1] != '\n' {
		lb.WriteByte('\n')
	}
	return lb.Buffer.WriteTo(w)
}
