// Copyright 2024 mtcov authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package matchertree

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/irfuzzer-tools/mtcov/pkg/lookup"
	"github.com/irfuzzer-tools/mtcov/pkg/predicate"
	"github.com/irfuzzer-tools/mtcov/pkg/shadowmap"
)

func newTable(size int, m []lookup.Matcher, patterns []lookup.Pattern, pk *predicate.Keeper) *lookup.Table {
	if pk == nil {
		pk = predicate.NewKeeper(false)
	}
	return &lookup.Table{
		Matchers:         m,
		Patterns:         patterns,
		MatcherTableSize: size,
		Predicates:       pk,
	}
}

func completeMatch(begin, end, pattern int) lookup.Matcher {
	return lookup.Matcher{Begin: begin, End: end, Kind: lookup.CompleteMatch, Pattern: pattern, PatPred: -1}
}

func TestIndexAfterSubtree(t *testing.T) {
	m := []lookup.Matcher{
		{Begin: 0, End: 9, Kind: lookup.Scope},
		{Begin: 1, End: 4, Kind: lookup.Subscope},
		{Begin: 1, End: 1, Kind: lookup.CheckType},
		{Begin: 5, End: 9, Kind: lookup.CompleteMatch},
	}
	require.Equal(t, 3, indexAfterSubtree(m, 1))
}

func TestSkipToParentEnd(t *testing.T) {
	m := []lookup.Matcher{
		{Begin: 0, End: 9, Kind: lookup.Scope},
		{Begin: 1, End: 1, Kind: lookup.CheckType},
		{Begin: 2, End: 2, Kind: lookup.CompleteMatch},
		{Begin: 10, End: 10, Kind: lookup.CompleteMatch},
	}
	require.Equal(t, 3, skipToParentEnd(m, 1, 9))
}

func TestCollectPatternsDeduplicatesAndOrders(t *testing.T) {
	m := []lookup.Matcher{
		completeMatch(0, 0, 2),
		completeMatch(1, 1, 0),
		completeMatch(2, 2, 2),
	}
	require.Equal(t, []int{2, 0}, collectPatterns(m, 0, 3))
}

func TestMarkRangeClampsToBounds(t *testing.T) {
	sm := make(shadowmap.Map, 5)
	markRange(sm, -2, 2)
	require.Equal(t, shadowmap.Map{true, true, true, false, false}, sm)
	markRange(sm, 4, 10)
	require.Equal(t, shadowmap.Map{true, true, true, false, true}, sm)
}
