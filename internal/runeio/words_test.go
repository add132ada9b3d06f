package runeio_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcorbin/voz/internal/fault"
	"github.com/jcorbin/voz/internal/runeio"
)

func TestWordsRoundTrip(t *testing.T) {
	for _, s := range []string{
		"",
		"Hello World!\n",
		"127.0.0.1:8080",
		"naïve ☃ \U0001F600",
		"line one\nline two\n\n",
	} {
		words := runeio.ToWords(s)
		assert.Equal(t, len([]rune(s)), len(words), "expected one word per rune for %q", s)
		back, err := runeio.DecodeWords(words)
		require.NoError(t, err, "must decode %q", s)
		assert.Equal(t, s, back)
	}
}

func TestDecodeWordsInvalid(t *testing.T) {
	for _, tc := range []struct {
		name   string
		words  []runeio.Word
		offset int
		word   runeio.Word
	}{
		{"surrogate", []runeio.Word{'a', 0xd800}, 1, 0xd800},
		{"past max rune", []runeio.Word{0x110000}, 0, 0x110000},
		{"wider than rune", []runeio.Word{'o', 'k', 1 << 32}, 2, 1 << 32},
		{"int32 wrap", []runeio.Word{1<<32 | 'A'}, 0, 1<<32 | 'A'},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := runeio.DecodeWords(tc.words)
			require.Error(t, err)
			assert.True(t, errors.Is(err, fault.ErrEncoding), "expected encoding error kind")
			var ee fault.EncodingError
			require.True(t, errors.As(err, &ee))
			assert.Equal(t, tc.offset, ee.Offset)
			assert.Equal(t, tc.word, ee.Word)
		})
	}
}

func TestFormatWords(t *testing.T) {
	assert.Equal(t, `"Hello World!<NL>"`, runeio.FormatWords(runeio.ToWords("Hello World!\n")))
	assert.Equal(t, `"say \"hi\"<HT>"`, runeio.FormatWords(runeio.ToWords("say \"hi\"\t")))
	assert.Equal(t, `"a\x{d800}"`, runeio.FormatWords([]runeio.Word{'a', 0xd800}))
}

func TestParseWord(t *testing.T) {
	for _, tc := range []struct {
		token string
		word  runeio.Word
		err   string
	}{
		{token: "0", word: 0},
		{token: "1019", word: 1019},
		{token: "0x41", word: 0x41},
		{token: "18446744073709551615", word: ^runeio.Word(0)},
		{token: "'A'", word: 'A'},
		{token: `'\n'`, word: '\n'},
		{token: "<NL>", word: '\n'},
		{token: "<esc>", word: 0x1b},
		{token: "^J", word: '\n'},
		{token: "12abc", err: `strconv.ParseUint: parsing "12abc": invalid syntax`},
		{token: "bogus", err: `rune literal must be "^X" "<NAME>" or 'X'`},
	} {
		t.Run(tc.token, func(t *testing.T) {
			w, err := runeio.ParseWord(tc.token)
			if tc.err != "" {
				assert.EqualError(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.word, w)
		})
	}
}

func TestControlName(t *testing.T) {
	assert.Equal(t, "<NUL>", runeio.ControlName(0))
	assert.Equal(t, "<NL>", runeio.ControlName('\n'))
	assert.Equal(t, "<SP>", runeio.ControlName(' '))
	assert.Equal(t, "<DEL>", runeio.ControlName(0x7f))
	assert.Equal(t, "<CSI>", runeio.ControlName(0x9b))
	assert.Equal(t, "", runeio.ControlName('x'))
	assert.Equal(t, "^J", runeio.CaretForm('\n'))
}
