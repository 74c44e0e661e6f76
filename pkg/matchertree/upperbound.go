// Copyright 2024 mtcov authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package matchertree

import (
	"github.com/irfuzzer-tools/mtcov/pkg/lookup"
	"github.com/irfuzzer-tools/mtcov/pkg/predicate"
	"github.com/irfuzzer-tools/mtcov/pkg/shadowmap"
)

// UpperBound computes the shadow map of bytes statically unreachable
// under the current state of t's PredicateKeeper: callers Enable/Disable
// named predicates and optionally call UpdatePatternPredicates, then
// Resolve, before calling UpperBound.
func (t *Tree) UpperBound() shadowmap.Map {
	sm := make(shadowmap.Map, t.table.MatcherTableSize)
	m := t.table.Matchers
	if len(m) == 0 {
		return sm
	}
	if m[0].Kind.IsLeaf() {
		visitLeafUB(m, 0, t.table.Predicates)
		return sm
	}
	visitContainerUB(m, 0, t.table.Predicates, sm)
	return sm
}

// visitLeafUB evaluates a single leaf matcher. Only CheckPatternPredicate
// can statically fail here: every other leaf kind checks a runtime value
// that some input could always satisfy, so it can't shrink the upper
// bound on its own.
func visitLeafUB(m []lookup.Matcher, i int, pk *predicate.Keeper) (ok bool, next int) {
	mm := &m[i]
	if mm.Kind == lookup.CheckPatternPredicate && mm.PatPred >= 0 {
		if !pk.Satisfied(pk.Pat(mm.PatPred)) {
			return false, i + 1
		}
	}
	return true, i + 1
}

// visitContainerUB walks the direct children of the container at index p
// (a Scope, Subscope, SwitchOpcode/Type, or a case):
//
//   - the first child that fails dooms every remaining sibling; the rest
//     of p's byte range is marked uncovered and the walk returns ok, since
//     p itself still ran.
//   - if p is a Subscope whose direct children never included a fallible
//     check but did include a pattern match, p is guaranteed to succeed
//     once reached, so it is reported "failed" to its own caller — any
//     siblings of p are themselves unreachable.
func visitContainerUB(m []lookup.Matcher, p int, pk *predicate.Keeper, sm shadowmap.Map) (ok bool, next int) {
	parentEnd := m[p].End
	i := p + 1
	matchedPattern := false
	anyFallible := false
	for i < len(m) && m[i].Begin <= parentEnd {
		childIdx := i
		childEnd := m[childIdx].End
		childKind := m[childIdx].Kind
		if childKind.HasPattern() {
			matchedPattern = true
		}
		if childKind.Fallible() {
			anyFallible = true
		}

		var childOK bool
		if childKind.IsLeaf() {
			childOK, i = visitLeafUB(m, childIdx, pk)
		} else {
			childOK, i = visitContainerUB(m, childIdx, pk, sm)
		}
		if !childOK {
			markRange(sm, childEnd+1, parentEnd)
			i = skipToParentEnd(m, i, parentEnd)
			return true, i
		}
	}
	if m[p].Kind == lookup.Subscope && matchedPattern && !anyFallible {
		return false, i
	}
	return true, i
}
