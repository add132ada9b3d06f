package runeio

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/jcorbin/voz/internal/fault"
)

// Word is the machine word that carries one code point.
type Word = uint64

// ToWords returns the code points of s, one word per rune.
func ToWords(s string) []Word {
	words := make([]Word, 0, len(s))
	for _, r := range s {
		words = append(words, Word(r))
	}
	return words
}

// DecodeWords validates that every word is a unicode scalar value and
// returns the text they spell. The first invalid word is reported as a
// fault.EncodingError.
func DecodeWords(words []Word) (string, error) {
	var sb strings.Builder
	sb.Grow(len(words))
	for i, w := range words {
		if w > utf8.MaxRune || !utf8.ValidRune(rune(w)) {
			return "", fault.EncodingError{Offset: i, Word: w}
		}
		sb.WriteRune(rune(w))
	}
	return sb.String(), nil
}

// FormatWords renders words for diagnostics: printable runes are written as
// is, control runes by mnemonic, and anything else as a hex escape.
func FormatWords(words []Word) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for _, w := range words {
		r := rune(w)
		switch {
		case w > utf8.MaxRune || !utf8.ValidRune(r):
			sb.WriteString(`\x{`)
			sb.WriteString(strconv.FormatUint(w, 16))
			sb.WriteByte('}')
		case r == '"' || r == '\\':
			sb.WriteByte('\\')
			sb.WriteRune(r)
		case r == ' ':
			sb.WriteRune(r)
		default:
			if name := ControlName(r); name != "" {
				sb.WriteString(name)
			} else {
				sb.WriteRune(r)
			}
		}
	}
	sb.WriteByte('"')
	return sb.String()
}

// ParseWord parses an operand literal: a decimal or 0x/0o/0b prefixed
// unsigned integer, a quoted rune like 'A' or '\n', a control mnemonic like
// <NL>, or a caret form like ^J.
func ParseWord(token string) (Word, error) {
	if n, err := strconv.ParseUint(token, 0, 64); err == nil {
		return n, nil
	} else if token != "" && '0' <= token[0] && token[0] <= '9' {
		return 0, err
	}
	r, err := UnquoteRune(token)
	if err != nil {
		return 0, err
	}
	return Word(r), nil
}
