package asmgen

import (
	"fmt"
	"sort"

	"github.com/jcorbin/voz/internal/isa"
)

// labels records the instruction indices referenced by control flow while
// lowering. Nothing is emitted for a reference; after the pass, splice
// places one label definition in front of each referenced block.
type labels struct {
	refs []isa.Word
}

func labelName(target isa.Word) string { return fmt.Sprintf("voz_L%d", target) }

// ref notes a reference to target and returns the label to use for it.
func (ls *labels) ref(target isa.Word) string {
	ls.refs = append(ls.refs, target)
	return labelName(target)
}

// targets returns every referenced index once, ascending.
func (ls *labels) targets() []isa.Word {
	targets := append([]isa.Word(nil), ls.refs...)
	sort.Slice(targets, func(i, j int) bool { return targets[i] < targets[j] })
	uniq := targets[:0]
	for i, t := range targets {
		if i == 0 || t != targets[i-1] {
			uniq = append(uniq, t)
		}
	}
	return uniq
}

// splice returns blocks with a label definition inserted before the block of
// each target instruction. Each insertion point is shifted by the number of
// labels already inserted before it. A target equal to len(blocks) is
// defined after the last block. Every target must be <= len(blocks).
func (ls *labels) splice(blocks []block) []block {
	targets := ls.targets()
	out := make([]block, len(blocks), len(blocks)+len(targets))
	copy(out, blocks)
	for i, target := range targets {
		at := int(target) + i
		out = append(out, nil)
		copy(out[at+1:], out[at:])
		out[at] = block{labelName(target) + ":"}
	}
	return out
}
