// Package mem provides the machine's word file: a fixed array of words that
// serves both as scalar registers and as byte ranges for I/O transfers.
//
// The dual use is observable: a Write of len bytes from
// address a emits the low byte of each word in [a, a+len), while a Read
// stores one byte per word. There is no separate typed storage.
package mem

import "github.com/jcorbin/voz/internal/fault"

// Size is the number of words in a Words file.
const Size = 1024

// Word is a single memory cell.
type Word = uint64

// Words is a fixed size, zero initialized word file. Every access must lie
// within [0, Size); anything else is a fault.AddressError.
type Words struct {
	cells [Size]Word
}

func checkRange(addr, n Word) error {
	if addr >= Size || n > Size-addr {
		return fault.AddressError{Space: "memory", Index: addr, Len: n, Size: Size}
	}
	return nil
}

// Load returns the value at addr.
func (m *Words) Load(addr Word) (Word, error) {
	if addr >= Size {
		return 0, fault.AddressError{Space: "memory", Index: addr, Size: Size}
	}
	return m.cells[addr], nil
}

// Stor stores a single value at addr.
func (m *Words) Stor(addr, val Word) error {
	if addr >= Size {
		return fault.AddressError{Space: "memory", Index: addr, Size: Size}
	}
	m.cells[addr] = val
	return nil
}

// LoadInto copies len(buf) words starting at addr into buf.
// No partial load is done if the range is out of bounds.
func (m *Words) LoadInto(addr Word, buf []Word) error {
	if len(buf) == 0 {
		return nil
	}
	if err := checkRange(addr, Word(len(buf))); err != nil {
		return err
	}
	copy(buf, m.cells[addr:])
	return nil
}

// StorRange stores values starting at addr.
// No partial store is done if the range is out of bounds.
func (m *Words) StorRange(addr Word, values ...Word) error {
	if len(values) == 0 {
		return nil
	}
	if err := checkRange(addr, Word(len(values))); err != nil {
		return err
	}
	copy(m.cells[addr:], values)
	return nil
}

// Range returns the live slice [addr, addr+n); callers must not retain it
// beyond the current instruction.
func (m *Words) Range(addr, n Word) ([]Word, error) {
	if n == 0 {
		return nil, nil
	}
	if err := checkRange(addr, n); err != nil {
		return nil, err
	}
	return m.cells[addr : addr+n], nil
}

// Bytes returns the low byte of every word in [addr, addr+n).
func (m *Words) Bytes(addr, n Word) ([]byte, error) {
	words, err := m.Range(addr, n)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, len(words))
	for i, w := range words {
		buf[i] = byte(w)
	}
	return buf, nil
}

// StorBytes stores each byte of p as one word starting at addr.
func (m *Words) StorBytes(addr Word, p []byte) error {
	words, err := m.Range(addr, Word(len(p)))
	if err != nil {
		return err
	}
	for i, b := range p {
		words[i] = Word(b)
	}
	return nil
}

// Runs calls f for every maximal run of non-zero words, in address order.
func (m *Words) Runs(f func(addr Word, values []Word)) {
	for i := 0; i < Size; {
		if m.cells[i] == 0 {
			i++
			continue
		}
		j := i + 1
		for j < Size && m.cells[j] != 0 {
			j++
		}
		f(Word(i), m.cells[i:j])
		i = j
	}
}
