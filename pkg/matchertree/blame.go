// Copyright 2024 mtcov authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package matchertree

import (
	"fmt"
	"sort"

	"golang.org/x/exp/maps"

	"github.com/irfuzzer-tools/mtcov/pkg/lookup"
	"github.com/irfuzzer-tools/mtcov/pkg/shadowmap"
)

// Blamee is one matcher held responsible for a run of uncovered bytes.
type Blamee struct {
	MatcherIndex int
	Loss         int
	Blamers      []int // pattern indices that would have been reached had this blamee succeeded
	Depth        int
	EarlyExit    bool // true when the blamee itself was never entered, rather than a check that ran and failed
}

// BlameList is the result of a Blame call: the raw Blamee entries plus the
// table needed to turn matcher/pattern indices into human-facing names.
type BlameList struct {
	table   *lookup.Table
	Entries []Blamee
}

// Blame localizes the uncovered bytes of observed against t's matcher
// tree. observed must have exactly t's MatcherTableSize bits.
func (t *Tree) Blame(observed shadowmap.Map) (*BlameList, error) {
	m := t.table.Matchers
	bl := &BlameList{table: t.table}
	if len(m) == 0 {
		return bl, nil
	}
	if len(observed) != t.table.MatcherTableSize {
		return nil, fmt.Errorf("matchertree: observed shadow map has %d bits, want %d", len(observed), t.table.MatcherTableSize)
	}

	allUncovered := true
	for _, bit := range observed {
		if !bit {
			allUncovered = false
			break
		}
	}
	if allUncovered {
		allPatterns := make([]int, len(t.table.Patterns))
		for i := range allPatterns {
			allPatterns[i] = i
		}
		bl.Entries = append(bl.Entries, Blamee{
			MatcherIndex: 0,
			Loss:         len(observed),
			Blamers:      allPatterns,
			EarlyExit:    true,
		})
		return bl, nil
	}

	rootDepth := 0
	if m[0].Kind.IncrementsDepth() {
		rootDepth = 1
	}
	if m[0].Kind.IsLeaf() {
		// A bare leaf root has no children to blame; it is its own
		// container-less span.
		if observed[m[0].Begin] {
			bl.Entries = append(bl.Entries, Blamee{MatcherIndex: 0, Loss: m[0].Size(), Depth: rootDepth, EarlyExit: true})
		}
		return bl, nil
	}
	visitContainerBlame(m, 0, rootDepth, observed, bl)
	return bl, nil
}

// visitContainerBlame walks the direct children of container p.
// Unlike the upper-bound walk, it never needs to cut a
// recursion short based on propagated "always matches" signals — the
// observed map already tells us definitively which bytes ran — except
// that once a plain check fails, every remaining sibling of p is known
// to be uncovered too and is folded into that one check's loss rather
// than re-discovered one sibling at a time.
func visitContainerBlame(m []lookup.Matcher, p, depth int, observed shadowmap.Map, bl *BlameList) {
	parentEnd := m[p].End
	i := p + 1
	attributedToParentEnd := false

	for i < len(m) && m[i].Begin <= parentEnd {
		childIdx := i
		child := &m[childIdx]
		covered := !observed[child.Begin]

		if covered {
			if !child.Kind.IsLeaf() {
				childDepth := depth
				if child.Kind.IncrementsDepth() {
					childDepth++
				}
				visitContainerBlame(m, childIdx, childDepth, observed, bl)
			}
			i = indexAfterSubtree(m, childIdx)
			continue
		}

		if isCaseOrSubscope(child.Kind) {
			end := indexAfterSubtree(m, childIdx)
			bl.Entries = append(bl.Entries, Blamee{
				MatcherIndex: childIdx,
				Loss:         child.Size(),
				Blamers:      collectPatterns(m, childIdx, end),
				Depth:        depth,
				EarlyExit:    true,
			})
			i = end
			continue
		}

		// A plain check (or a bare Scope/SwitchOpcode/SwitchType that
		// somehow sits beside leaf siblings) failed to run: everything
		// from here to the end of p is unreachable, and the check that
		// actually ran and failed is the previous matcher.
		end := skipToParentEnd(m, childIdx, parentEnd)
		bl.Entries = append(bl.Entries, Blamee{
			MatcherIndex: childIdx - 1,
			Loss:         parentEnd - child.Begin + 1,
			Blamers:      collectPatterns(m, childIdx, end),
			Depth:        depth,
			EarlyExit:    false,
		})
		i = end
		attributedToParentEnd = true
		break
	}

	// The terminator byte appended to the outermost scope's End (see
	// lookup.Load) can be uncovered on its own when every direct child
	// ran to completion right up to it. That unit is attributed to the
	// parent rather than a separate category.
	if !attributedToParentEnd && observed[parentEnd] {
		bl.Entries = append(bl.Entries, Blamee{MatcherIndex: p, Loss: 1, Depth: depth})
	}
}

// KindLoss is one row of the ByKind rollup.
type KindLoss struct {
	Kind lookup.Kind
	Loss int
}

// ByKind sums Loss grouped by the blamee matcher's Kind, descending.
func (bl *BlameList) ByKind() []KindLoss {
	sums := make(map[lookup.Kind]int)
	for _, e := range bl.Entries {
		k := bl.table.Matchers[e.MatcherIndex].Kind
		sums[k] += e.Loss
	}
	out := make([]KindLoss, 0, len(sums))
	for _, k := range maps.Keys(sums) {
		out = append(out, KindLoss{Kind: k, Loss: sums[k]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Loss > out[j].Loss })
	return out
}

// PatPredLoss is one row of ByPatternPredicate; Index is -1 for blame not
// gated by any CheckPatternPredicate.
type PatPredLoss struct {
	Index int
	Loss  int
}

// ByPatternPredicate sums Loss grouped by the blamee matcher's pattern
// predicate index, descending.
func (bl *BlameList) ByPatternPredicate() []PatPredLoss {
	sums := make(map[int]int)
	for _, e := range bl.Entries {
		mm := bl.table.Matchers[e.MatcherIndex]
		idx := -1
		if mm.Kind == lookup.CheckPatternPredicate {
			idx = mm.PatPred
		}
		sums[idx] += e.Loss
	}
	out := make([]PatPredLoss, 0, len(sums))
	for _, idx := range maps.Keys(sums) {
		out = append(out, PatPredLoss{Index: idx, Loss: sums[idx]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Loss > out[j].Loss })
	return out
}

// DepthLoss is one row of ByDepth.
type DepthLoss struct {
	Depth int
	Loss  int
}

// ByDepth sums Loss grouped by depth, ascending by depth. If kind is
// non-nil, only blamees of that matcher kind are included.
func (bl *BlameList) ByDepth(kind *lookup.Kind) []DepthLoss {
	sums := make(map[int]int)
	for _, e := range bl.Entries {
		if kind != nil && bl.table.Matchers[e.MatcherIndex].Kind != *kind {
			continue
		}
		sums[e.Depth] += e.Loss
	}
	out := make([]DepthLoss, 0, len(sums))
	for _, d := range maps.Keys(sums) {
		out = append(out, DepthLoss{Depth: d, Loss: sums[d]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Depth < out[j].Depth })
	return out
}

// PatternLoss is one row of ByPattern.
type PatternLoss struct {
	Loss         int
	MatcherIndex int
	Depth        int
	BlameeKind   string
	Pattern      string // "src -> dst"
}

// ByPattern expands every blamee across its blamers, one row per
// (blamee, blamer pattern) pair. When useLossPerPattern is set, a
// blamee's loss is divided evenly across its blamers instead of being
// repeated for each. Rows are sorted by loss, descending.
func (bl *BlameList) ByPattern(useLossPerPattern bool) []PatternLoss {
	var out []PatternLoss
	for _, e := range bl.Entries {
		if len(e.Blamers) == 0 {
			continue
		}
		loss := e.Loss
		if useLossPerPattern {
			loss /= len(e.Blamers)
		}
		kind := bl.table.Matchers[e.MatcherIndex].Kind
		for _, pat := range e.Blamers {
			out = append(out, PatternLoss{
				Loss:         loss,
				MatcherIndex: e.MatcherIndex,
				Depth:        e.Depth,
				BlameeKind:   kind.String(),
				Pattern:      bl.table.Patterns[pat].Source,
			})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Loss > out[j].Loss })
	return out
}

// PossiblePatterns returns the distinct pattern source strings reachable
// via a blamee that is not itself a CheckPatternPredicate: patterns the
// fuzzer could plausibly hit by varying input, as opposed to patterns
// gated off entirely by a predicate assignment.
func (bl *BlameList) PossiblePatterns() []string {
	seen := make(map[string]bool)
	var out []string
	for _, e := range bl.Entries {
		if bl.table.Matchers[e.MatcherIndex].Kind == lookup.CheckPatternPredicate {
			continue
		}
		for _, pat := range e.Blamers {
			src := bl.table.Patterns[pat].Source
			if !seen[src] {
				seen[src] = true
				out = append(out, src)
			}
		}
	}
	sort.Strings(out)
	return out
}
