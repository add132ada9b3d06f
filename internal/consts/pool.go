// Package consts implements the constant pool: an append-only table of code
// point sequences used for filenames, network addresses and literal text.
package consts

import (
	"github.com/jcorbin/voz/internal/fault"
	"github.com/jcorbin/voz/internal/runeio"
)

// Word is one code point of a constant.
type Word = uint64

// Pool is an ordered, append-only sequence of constants indexed from 0.
type Pool struct {
	words [][]Word
}

// New seeds a pool from string literals, one constant per string.
func New(strs []string) *Pool {
	var pool Pool
	pool.words = make([][]Word, 0, len(strs))
	for _, s := range strs {
		pool.words = append(pool.words, runeio.ToWords(s))
	}
	return &pool
}

// Len returns the number of constants.
func (pool *Pool) Len() int { return len(pool.words) }

// Get returns constant k; the returned slice must not be modified.
func (pool *Pool) Get(k Word) ([]Word, error) {
	if k >= Word(len(pool.words)) {
		return nil, fault.AddressError{Space: "constant", Index: k, Size: Word(len(pool.words))}
	}
	return pool.words[k], nil
}

// Append adds a copy of words as a new constant, returning its index.
func (pool *Pool) Append(words []Word) Word {
	pool.words = append(pool.words, append([]Word(nil), words...))
	return Word(len(pool.words) - 1)
}

// Text decodes constant k as unicode text, validating every code point.
func (pool *Pool) Text(k Word) (string, error) {
	words, err := pool.Get(k)
	if err != nil {
		return "", err
	}
	return runeio.DecodeWords(words)
}

// Strings decodes every constant; it stops at the first invalid one.
func (pool *Pool) Strings() ([]string, error) {
	strs := make([]string, len(pool.words))
	for k := range pool.words {
		s, err := pool.Text(Word(k))
		if err != nil {
			return nil, err
		}
		strs[k] = s
	}
	return strs, nil
}
