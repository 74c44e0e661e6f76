// Copyright 2024 mtcov authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package matchertree treats a lookup.Table's sorted matcher vector as an
// implicit nested-interval tree and walks it to compute either the
// upper-bound shadow map reachable under a predicate assignment, or a
// blame list localizing the uncovered bytes of an observed shadow map.
// Both walks share the same DFS-over-a-sorted-vector shape; see
// upperbound.go and blame.go.
package matchertree

import (
	"github.com/irfuzzer-tools/mtcov/pkg/lookup"
	"github.com/irfuzzer-tools/mtcov/pkg/shadowmap"
)

// Tree borrows a lookup.Table for the duration of an analysis. It owns
// nothing; the table (and its PredicateKeeper) outlives any Tree built
// from it.
type Tree struct {
	table *lookup.Table
}

// New wraps t. Callers mutate t.Predicates via Enable/Disable/Resolve
// before calling UpperBound; Blame reads only the observed map passed to it.
func New(t *lookup.Table) *Tree {
	return &Tree{table: t}
}

// isCaseOrSubscope reports whether k is one of the "never entered as a
// whole" container kinds blame analysis treats specially: an alternative
// attempt that either ran or didn't, as opposed to a check in a sequence.
func isCaseOrSubscope(k lookup.Kind) bool {
	return k == lookup.Subscope || k == lookup.SwitchOpcodeCase || k == lookup.SwitchTypeCase
}

// indexAfterSubtree returns the index of the first matcher after the
// subtree rooted at idx, exploiting the sorted-DFS-preorder invariant: a
// subtree occupies a contiguous index run ending where Begin first
// exceeds the root's End.
func indexAfterSubtree(m []lookup.Matcher, idx int) int {
	end := m[idx].End
	j := idx + 1
	for j < len(m) && m[j].Begin <= end {
		j++
	}
	return j
}

// skipToParentEnd advances from idx past every remaining matcher whose
// Begin still falls within parentEnd, regardless of nesting.
func skipToParentEnd(m []lookup.Matcher, idx, parentEnd int) int {
	j := idx
	for j < len(m) && m[j].Begin <= parentEnd {
		j++
	}
	return j
}

// collectPatterns returns the distinct pattern indices carried by any
// CompleteMatch/MorphNodeTo matcher in index range [lo, hi), in the order
// they are first seen.
func collectPatterns(m []lookup.Matcher, lo, hi int) []int {
	if hi > len(m) {
		hi = len(m)
	}
	seen := make(map[int]bool)
	var out []int
	for k := lo; k < hi; k++ {
		if m[k].Kind.HasPattern() && m[k].Pattern >= 0 && !seen[m[k].Pattern] {
			seen[m[k].Pattern] = true
			out = append(out, m[k].Pattern)
		}
	}
	return out
}

// markRange sets sm[a..b] (inclusive) to uncovered, clamped to sm's bounds.
func markRange(sm shadowmap.Map, a, b int) {
	if a < 0 {
		a = 0
	}
	if b >= len(sm) {
		b = len(sm) - 1
	}
	for i := a; i <= b; i++ {
		sm[i] = true
	}
}
