package mem_test

import (
	"errors"
	"log"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcorbin/voz/internal/fault"
	"github.com/jcorbin/voz/internal/logio"
	"github.com/jcorbin/voz/internal/mem"
	"github.com/jcorbin/voz/internal/panicerr"
)

func Test_Words(t *testing.T) {
	for _, tc := range []wordsTestCase{
		wordsTest("basic",
			"init", func(t *testing.T, m *mem.Words) {
				val, err := m.Load(0)
				require.NoError(t, err, "unexpected load error")
				require.Equal(t, mem.Word(0), val, "expected 0 @0")
				expectMemValuesAt(t, m, mem.Size-4, 0, 0, 0, 0)
			},

			"9 -> 0", func(t *testing.T, m *mem.Words) {
				require.NoError(t, m.Stor(0, 9), "must stor @0")
				expectMemValueAt(t, m, 0, 9)
				expectMemValuesAt(t, m, 0, 9, 0, 0)
			},

			"{1, 2, 3, 4, 5, 6} -> 0x9", func(t *testing.T, m *mem.Words) {
				require.NoError(t, m.StorRange(0x9, 1, 2, 3, 4, 5, 6), "must stor @0x9")
				expectMemValuesAt(t, m, 0x8,
					0, 1, 2, 3,
					4, 5, 6, 0)
			},

			"top of memory", func(t *testing.T, m *mem.Words) {
				require.NoError(t, m.StorRange(mem.Size-2, 7, 8), "must stor at the last two words")
				expectMemValuesAt(t, m, mem.Size-3, 0, 7, 8)
			},

			"runs", func(t *testing.T, m *mem.Words) {
				type run struct {
					Addr   mem.Word
					Values []mem.Word
				}
				var runs []run
				m.Runs(func(addr mem.Word, values []mem.Word) {
					runs = append(runs, run{addr, append([]mem.Word(nil), values...)})
				})
				assert.Equal(t, []run{
					{0, []mem.Word{9}},
					{0x9, []mem.Word{1, 2, 3, 4, 5, 6}},
					{mem.Size - 2, []mem.Word{7, 8}},
				}, runs)
			},
		),

		wordsTest("bounds",
			"load", func(t *testing.T, m *mem.Words) {
				_, err := m.Load(mem.Size)
				expectAddressError(t, err, mem.Size, 0)
			},

			"stor", func(t *testing.T, m *mem.Words) {
				expectAddressError(t, m.Stor(1<<40, 1), 1<<40, 0)
			},

			"no partial store", func(t *testing.T, m *mem.Words) {
				expectAddressError(t, m.StorRange(mem.Size-1, 1, 2), mem.Size-1, 2)
				expectMemValueAt(t, m, mem.Size-1, 0)
			},

			"no partial load", func(t *testing.T, m *mem.Words) {
				buf := []mem.Word{42, 42}
				expectAddressError(t, m.LoadInto(mem.Size-1, buf), mem.Size-1, 2)
				assert.Equal(t, []mem.Word{42, 42}, buf, "expected buffer untouched")
			},

			"overflowing range", func(t *testing.T, m *mem.Words) {
				_, err := m.Range(2, ^mem.Word(0))
				expectAddressError(t, err, 2, ^mem.Word(0))
			},

			"empty ranges", func(t *testing.T, m *mem.Words) {
				words, err := m.Range(mem.Size+5, 0)
				require.NoError(t, err, "empty ranges are never out of bounds")
				assert.Len(t, words, 0)
				require.NoError(t, m.StorRange(mem.Size+5))
				require.NoError(t, m.LoadInto(mem.Size+5, nil))
			},
		),

		wordsTest("bytes",
			"stor bytes", func(t *testing.T, m *mem.Words) {
				require.NoError(t, m.StorBytes(100, []byte("hi\n")))
				expectMemValuesAt(t, m, 100, 'h', 'i', '\n', 0)
			},

			"truncating load", func(t *testing.T, m *mem.Words) {
				require.NoError(t, m.StorRange(200, 0x141, 0xffff_ff42, 0x43))
				p, err := m.Bytes(200, 3)
				require.NoError(t, err)
				assert.Equal(t, []byte("ABC"), p)
			},

			"out of bounds", func(t *testing.T, m *mem.Words) {
				expectAddressError(t, m.StorBytes(mem.Size-1, []byte("ab")), mem.Size-1, 2)
				_, err := m.Bytes(mem.Size, 1)
				expectAddressError(t, err, mem.Size, 1)
			},
		),
	} {
		t.Run(tc.name, func(t *testing.T) {
			tcLogOut := &logio.Writer{Logf: t.Logf}
			log.SetOutput(tcLogOut)
			defer log.SetOutput(os.Stderr)

			var m mem.Words
			defer func() {
				if t.Failed() {
					m.Runs(func(addr mem.Word, values []mem.Word) {
						t.Logf("@%v %v", addr, values)
					})
				}
			}()

			for _, step := range tc.steps {
				if !t.Run(step.name, func(t *testing.T) {
					stepLogOut := &logio.Writer{Logf: t.Logf}
					log.SetOutput(stepLogOut)
					defer log.SetOutput(tcLogOut)

					isolateTest(t, step.bind(&m))
				}) {
					break
				}
			}
		})
	}
}

func isolateTest(t *testing.T, f func(t *testing.T)) {
	if err := panicerr.Recover(t.Name(), func() error {
		f(t)
		return nil
	}); err != nil {
		t.Logf("%+v", err)
		t.Fail()
	}
}

func expectAddressError(t *testing.T, err error, addr, n mem.Word) {
	require.Error(t, err, "expected an address error")
	assert.True(t, errors.Is(err, fault.ErrAddress), "expected address kind, got %v", err)
	var ae fault.AddressError
	if assert.True(t, errors.As(err, &ae), "expected AddressError") {
		assert.Equal(t, "memory", ae.Space)
		assert.Equal(t, addr, ae.Index, "expected index")
		assert.Equal(t, n, ae.Len, "expected range length")
	}
}

func expectMemValueAt(t *testing.T, m *mem.Words, addr, value mem.Word) {
	val, err := m.Load(addr)
	require.NoError(t, err, "unexpected load @0x%x error", addr)
	require.Equal(t, value, val, "expected value @0x%x", addr)
}

func expectMemValuesAt(t *testing.T, m *mem.Words, addr mem.Word, values ...mem.Word) {
	buf := make([]mem.Word, len(values))
	require.NoError(t, m.LoadInto(addr, buf),
		"must load %v values from @0x%x", len(values), addr)
	require.Equal(t, values, buf, "expected values @0x%x", addr)
}

func wordsTest(name string, args ...interface{}) (tc wordsTestCase) {
	tc.name = name
	for i := 0; i < len(args); i++ {
		var step wordsTestStep

		step.name = args[i].(string)

		if i++; i >= len(args) {
			panic("wordsTest: missing function argument after name")
		}
		step.f = args[i].(func(t *testing.T, m *mem.Words))

		tc.steps = append(tc.steps, step)
	}
	return tc
}

type wordsTestCase struct {
	name  string
	steps []wordsTestStep
}

type wordsTestStep struct {
	name string
	f    func(t *testing.T, m *mem.Words)

	m *mem.Words
}

func (step wordsTestStep) bind(m *mem.Words) func(t *testing.T) {
	step.m = m
	return step.boundTest
}

func (step wordsTestStep) boundTest(t *testing.T) {
	step.f(t, step.m)
}
