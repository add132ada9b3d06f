// Package progfile reads and writes voz programs: text program files in YAML
// or TOML, compact CBOR images, and the command line form of constants
// followed by numeric quadruples.
//
// A text program file lists constants and one instruction per entry:
//
//	constants:
//	  - "Hello World!\n"
//	program:
//	  - movconst 0 0
//	  - write 1 0 13
//
// Operands are decimal or 0x/0o/0b prefixed numbers, quoted runes like 'A',
// or control mnemonics like <NL> and ^J; missing operands are 0.
package progfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/fxamacker/cbor/v2"
	"gopkg.in/yaml.v3"

	"github.com/jcorbin/voz/internal/isa"
	"github.com/jcorbin/voz/internal/runeio"
)

// Source is a decoded program with the constants that seed its pool.
type Source struct {
	Constants []string
	Program   isa.Program
}

// Format identifies a program file encoding.
type Format int

// Program file formats.
const (
	FormatYAML Format = iota + 1
	FormatTOML
	FormatImage
)

var formatNames = map[Format]string{
	FormatYAML:  "yaml",
	FormatTOML:  "toml",
	FormatImage: "image",
}

func (f Format) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return fmt.Sprintf("format(%d)", int(f))
}

// ImageExt is the file extension of CBOR program images.
const ImageExt = ".vozc"

// FormatOf returns the format implied by path's extension.
func FormatOf(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, true
	case ".toml":
		return FormatTOML, true
	case ImageExt:
		return FormatImage, true
	}
	return 0, false
}

type textFile struct {
	Constants []string `yaml:"constants" toml:"constants"`
	Program   []string `yaml:"program" toml:"program"`
}

type image struct {
	Constants []string    `cbor:"constants"`
	Code      [][4]uint64 `cbor:"code"`
}

var imageEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("progfile: failed to create CBOR enc mode: %v", err))
	}
	imageEncMode = em
}

// Load reads the program file at path, choosing a format by extension.
func Load(path string) (*Source, error) {
	format, ok := FormatOf(path)
	if !ok {
		return nil, fmt.Errorf("%v: unknown program file extension", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	src, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", path, err)
	}
	return src, nil
}

// Parse decodes a program file in the given format.
func Parse(data []byte, format Format) (*Source, error) {
	switch format {
	case FormatYAML:
		var tf textFile
		if err := yaml.Unmarshal(data, &tf); err != nil {
			return nil, fmt.Errorf("parsing yaml: %w", err)
		}
		return tf.source()

	case FormatTOML:
		var tf textFile
		if err := toml.Unmarshal(data, &tf); err != nil {
			return nil, fmt.Errorf("parsing toml: %w", err)
		}
		return tf.source()

	case FormatImage:
		var img image
		if err := cbor.Unmarshal(data, &img); err != nil {
			return nil, fmt.Errorf("unmarshal image: %w", err)
		}
		quads := make([]isa.Word, 0, 4*len(img.Code))
		for _, rec := range img.Code {
			quads = append(quads, rec[:]...)
		}
		prog, err := isa.Decode(quads)
		if err != nil {
			return nil, err
		}
		return &Source{Constants: img.Constants, Program: prog}, nil
	}
	return nil, fmt.Errorf("unsupported program format %v", format)
}

func (tf textFile) source() (*Source, error) {
	src := &Source{
		Constants: tf.Constants,
		Program:   make(isa.Program, 0, len(tf.Program)),
	}
	for i, line := range tf.Program {
		in, err := ParseInstruction(line)
		if err != nil {
			return nil, fmt.Errorf("instruction %v: %w", i, err)
		}
		src.Program = append(src.Program, in)
	}
	return src, nil
}

// MarshalImage encodes src as a canonical CBOR program image.
func (src *Source) MarshalImage() ([]byte, error) {
	img := image{
		Constants: src.Constants,
		Code:      make([][4]uint64, len(src.Program)),
	}
	for i, in := range src.Program {
		img.Code[i] = [4]uint64{uint64(in.Op), in.A, in.B, in.C}
	}
	return imageEncMode.Marshal(img)
}

// ParseInstruction parses one text instruction like "write 1 0 13".
// Operands may be separated by spaces, tabs, or commas.
func ParseInstruction(line string) (isa.Instruction, error) {
	toks, err := fields(line)
	if err != nil {
		return isa.Instruction{}, err
	}
	if len(toks) == 0 {
		return isa.Instruction{}, errors.New("empty instruction")
	}
	op, err := isa.ParseOpcode(toks[0])
	if err != nil {
		return isa.Instruction{}, err
	}
	args := toks[1:]
	if len(args) > 3 {
		return isa.Instruction{}, fmt.Errorf("%v: too many operands (%v)", op, len(args))
	}
	words := make([]isa.Word, len(args))
	for i, arg := range args {
		if words[i], err = runeio.ParseWord(arg); err != nil {
			return isa.Instruction{}, fmt.Errorf("%v operand %v %q: %w", op, i+1, arg, err)
		}
	}
	return isa.Inst(op, words...), nil
}

var errUnterminatedRune = errors.New("unterminated rune literal")

// fields splits line on spaces, tabs and commas, keeping quoted rune
// literals like ' ' or ',' whole.
func fields(line string) ([]string, error) {
	var toks []string
	isSep := func(c byte) bool { return c == ' ' || c == '\t' || c == ',' }
	for i := 0; i < len(line); {
		c := line[i]
		if isSep(c) {
			i++
			continue
		}
		j := i + 1
		if c == '\'' {
			for j < len(line) && line[j] != '\'' {
				if line[j] == '\\' {
					j++
				}
				j++
			}
			if j >= len(line) {
				return nil, errUnterminatedRune
			}
			j++
		} else {
			for j < len(line) && !isSep(line[j]) {
				j++
			}
		}
		toks = append(toks, line[i:j])
		i = j
	}
	return toks, nil
}

// FromArgs decodes the command line convention: leading arguments that are
// not decimal numbers are constants, and every argument after them is part
// of a flat list of (opcode, a, b, c) quadruples.
func FromArgs(args []string) (*Source, error) {
	var src Source
	i := 0
	for ; i < len(args); i++ {
		if _, err := strconv.ParseUint(args[i], 10, 64); err == nil {
			break
		}
		src.Constants = append(src.Constants, args[i])
	}
	quads := make([]isa.Word, 0, len(args)-i)
	for _, arg := range args[i:] {
		w, err := strconv.ParseUint(arg, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("program word %q: %w", arg, err)
		}
		quads = append(quads, w)
	}
	prog, err := isa.Decode(quads)
	if err != nil {
		return nil, err
	}
	src.Program = prog
	return &src, nil
}
