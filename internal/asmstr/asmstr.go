// Package asmstr encodes text as a NASM byte string operand list.
package asmstr

import (
	"strconv"
	"strings"
)

// Encode returns a db operand list for the bytes of s followed by a NUL
// terminator. Runs of printable ASCII are quoted; every other byte,
// newline included, is written as its decimal value:
//
//	Encode("a\nb") == `"a",10,"b",0`
//
// A newline is never left inside a quoted run, so the assembler always
// sees the real byte rather than a source line break.
func Encode(s string) string {
	var sb strings.Builder
	quoted := false
	sep := func() {
		if sb.Len() > 0 {
			sb.WriteByte(',')
		}
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if printable(c) {
			if !quoted {
				sep()
				sb.WriteByte('"')
				quoted = true
			}
			sb.WriteByte(c)
			continue
		}
		if quoted {
			sb.WriteByte('"')
			quoted = false
		}
		sep()
		sb.WriteString(strconv.Itoa(int(c)))
	}
	if quoted {
		sb.WriteByte('"')
	}
	sep()
	sb.WriteByte('0')
	return sb.String()
}

// printable is true for bytes that may appear inside a double quoted NASM
// string without escaping.
func printable(c byte) bool {
	return ' ' <= c && c <= '~' && c != '"'
}
