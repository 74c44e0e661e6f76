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

func mustBlame(t *testing.T, table *lookup.Table, observed shadowmap.Map) *BlameList {
	t.Helper()
	bl, err := New(table).Blame(observed)
	require.NoError(t, err)
	return bl
}

// TestBlameSwitchOpcodeCase: of two SwitchOpcodeCase children, the second
// (15 bytes) never ran; ByKind attributes its full loss to SwitchOpcodeCase.
func TestBlameSwitchOpcodeCase(t *testing.T) {
	m := []lookup.Matcher{
		{Begin: 0, End: 31, Kind: lookup.SwitchOpcode},
		{Begin: 1, End: 15, Kind: lookup.SwitchOpcodeCase, Case: "ADD"},
		{Begin: 16, End: 30, Kind: lookup.SwitchOpcodeCase, Case: "SUB"},
	}
	table := newTable(32, m, nil, nil)

	observed := make(shadowmap.Map, 32)
	for i := 16; i <= 30; i++ {
		observed[i] = true
	}

	bl := mustBlame(t, table, observed)
	byKind := bl.ByKind()
	require.Len(t, byKind, 1)
	require.Equal(t, lookup.SwitchOpcodeCase, byKind[0].Kind)
	require.Equal(t, 15, byKind[0].Loss)
}

// TestBlameFailingCheckDoomsSiblingPatterns: a CheckType leaf runs but
// fails, so three sibling CompleteMatch patterns behind it never run;
// ByPattern(false) must report all three at the same loss.
func TestBlameFailingCheckDoomsSiblingPatterns(t *testing.T) {
	m := []lookup.Matcher{
		{Begin: 0, End: 5, Kind: lookup.Scope},
		{Begin: 1, End: 4, Kind: lookup.Subscope},
		{Begin: 1, End: 1, Kind: lookup.CheckType},
		completeMatch(2, 2, 0),
		completeMatch(3, 3, 1),
		completeMatch(4, 4, 2),
	}
	patterns := []lookup.Pattern{
		{Index: 0, PatPredicate: -1, Source: "pat0"},
		{Index: 1, PatPredicate: -1, Source: "pat1"},
		{Index: 2, PatPredicate: -1, Source: "pat2"},
	}
	table := newTable(6, m, patterns, nil)

	observed := make(shadowmap.Map, 6)
	observed[2], observed[3], observed[4] = true, true, true

	bl := mustBlame(t, table, observed)
	require.Len(t, bl.Entries, 1)
	require.Equal(t, 2, bl.Entries[0].MatcherIndex) // the CheckType that ran and failed
	require.Equal(t, 3, bl.Entries[0].Loss)
	require.ElementsMatch(t, []int{0, 1, 2}, bl.Entries[0].Blamers)

	rows := bl.ByPattern(false)
	require.Len(t, rows, 3)
	srcs := map[string]bool{}
	for _, r := range rows {
		require.Equal(t, 3, r.Loss)
		srcs[r.Pattern] = true
	}
	require.Len(t, srcs, 3)
}

// TestBlameByPatternDividesLossWhenRequested covers the useLossPerPattern
// branch: the same blamee's loss split evenly across its blamers.
func TestBlameByPatternDividesLossWhenRequested(t *testing.T) {
	m := []lookup.Matcher{
		{Begin: 0, End: 5, Kind: lookup.Scope},
		{Begin: 1, End: 4, Kind: lookup.Subscope},
		{Begin: 1, End: 1, Kind: lookup.CheckType},
		completeMatch(2, 2, 0),
		completeMatch(3, 3, 1),
		completeMatch(4, 4, 2),
	}
	patterns := []lookup.Pattern{
		{Index: 0, PatPredicate: -1, Source: "pat0"},
		{Index: 1, PatPredicate: -1, Source: "pat1"},
		{Index: 2, PatPredicate: -1, Source: "pat2"},
	}
	table := newTable(6, m, patterns, nil)

	observed := make(shadowmap.Map, 6)
	observed[2], observed[3], observed[4] = true, true, true

	bl := mustBlame(t, table, observed)
	rows := bl.ByPattern(true)
	require.Len(t, rows, 3)
	for _, r := range rows {
		require.Equal(t, 1, r.Loss) // 3 / 3 blamers
	}
}

// TestBlameAllUncoveredShortCircuits: an entirely uncovered map becomes one
// synthetic entry naming every pattern as a blamer.
func TestBlameAllUncoveredShortCircuits(t *testing.T) {
	m := []lookup.Matcher{
		{Begin: 0, End: 3, Kind: lookup.Scope},
		completeMatch(1, 3, 0),
	}
	patterns := []lookup.Pattern{{Index: 0, PatPredicate: -1, Source: "pat0"}}
	table := newTable(4, m, patterns, nil)

	observed := make(shadowmap.Map, 4)
	for i := range observed {
		observed[i] = true
	}

	bl := mustBlame(t, table, observed)
	require.Len(t, bl.Entries, 1)
	require.True(t, bl.Entries[0].EarlyExit)
	require.Equal(t, 4, bl.Entries[0].Loss)
	require.Equal(t, []int{0}, bl.Entries[0].Blamers)
}

// TestBlameRejectsSizeMismatch.
func TestBlameRejectsSizeMismatch(t *testing.T) {
	m := []lookup.Matcher{{Begin: 0, End: 3, Kind: lookup.Scope}}
	table := newTable(4, m, nil, nil)
	_, err := New(table).Blame(make(shadowmap.Map, 3))
	require.Error(t, err)
}

// TestBlameEmptyTableIsANoOp.
func TestBlameEmptyTableIsANoOp(t *testing.T) {
	table := newTable(4, nil, nil, nil)
	bl := mustBlame(t, table, make(shadowmap.Map, 4))
	require.Empty(t, bl.Entries)
}

// TestBlameConservation: the sum of every Blamee's Loss equals the number
// of uncovered bytes, modulo at most one terminator-byte unit per parent
// whose own range happens to end on an uncovered byte.
func TestBlameConservation(t *testing.T) {
	m := []lookup.Matcher{
		{Begin: 0, End: 15, Kind: lookup.Scope},
		{Begin: 1, End: 2, Kind: lookup.CheckPatternPredicate, PatPred: 0, Pattern: -1},
		completeMatch(3, 15, 0),
	}
	table := newTable(16, m, []lookup.Pattern{{Index: 0, PatPredicate: -1, Source: "a"}}, nil)

	observed := make(shadowmap.Map, 16)
	for i := 3; i <= 15; i++ {
		observed[i] = true
	}

	bl := mustBlame(t, table, observed)
	total := 0
	for _, e := range bl.Entries {
		total += e.Loss
	}
	uncovered := 0
	for _, bit := range observed {
		if bit {
			uncovered++
		}
	}
	require.Equal(t, uncovered, total)
}

// TestBlameByDepthFiltersByKind exercises ByDepth's depth rollup and its
// optional kind filter, using a blame list with a single blamee at depth 0.
func TestBlameByDepthFiltersByKind(t *testing.T) {
	m := []lookup.Matcher{
		{Begin: 0, End: 31, Kind: lookup.SwitchOpcode},
		{Begin: 1, End: 15, Kind: lookup.SwitchOpcodeCase, Case: "ADD"},
		{Begin: 16, End: 30, Kind: lookup.SwitchOpcodeCase, Case: "SUB"},
	}
	table := newTable(32, m, nil, nil)

	observed := make(shadowmap.Map, 32)
	for i := 16; i <= 30; i++ {
		observed[i] = true
	}

	bl := mustBlame(t, table, observed)
	all := bl.ByDepth(nil)
	require.Len(t, all, 1)
	require.Equal(t, 0, all[0].Depth)
	require.Equal(t, 15, all[0].Loss)

	caseKind := lookup.SwitchOpcodeCase
	filtered := bl.ByDepth(&caseKind)
	require.Equal(t, all, filtered)

	otherKind := lookup.Scope
	require.Empty(t, bl.ByDepth(&otherKind))
}

// TestBlamePossiblePatternsExcludesPatternPredicate: a blamee on a
// CheckPatternPredicate is a deliberate predicate assignment, not
// something a fuzzer could stumble into by varying bytes, so its
// patterns are left out of PossiblePatterns.
func TestBlamePossiblePatternsExcludesPatternPredicate(t *testing.T) {
	pk := predicate.NewKeeper(false)
	require.NoError(t, pk.AddPattern([]string{"false"}))

	m := []lookup.Matcher{
		{Begin: 0, End: 15, Kind: lookup.Scope},
		{Begin: 1, End: 2, Kind: lookup.CheckPatternPredicate, PatPred: 0, Pattern: -1},
		completeMatch(3, 15, 0),
	}
	table := newTable(16, m, []lookup.Pattern{{Index: 0, PatPredicate: -1, Source: "a -> b"}}, pk)

	observed := make(shadowmap.Map, 16)
	for i := 3; i <= 15; i++ {
		observed[i] = true
	}

	bl := mustBlame(t, table, observed)
	require.Empty(t, bl.PossiblePatterns())
}

// TestBlamePossiblePatternsIncludesPlainCheckBlamee mirrors the doomed-
// siblings scenario: a failing CheckType is not a CheckPatternPredicate,
// so the patterns behind it are all "possible".
func TestBlamePossiblePatternsIncludesPlainCheckBlamee(t *testing.T) {
	m := []lookup.Matcher{
		{Begin: 0, End: 5, Kind: lookup.Scope},
		{Begin: 1, End: 4, Kind: lookup.Subscope},
		{Begin: 1, End: 1, Kind: lookup.CheckType},
		completeMatch(2, 2, 0),
		completeMatch(3, 3, 1),
		completeMatch(4, 4, 2),
	}
	patterns := []lookup.Pattern{
		{Index: 0, PatPredicate: -1, Source: "pat0"},
		{Index: 1, PatPredicate: -1, Source: "pat1"},
		{Index: 2, PatPredicate: -1, Source: "pat2"},
	}
	table := newTable(6, m, patterns, nil)

	observed := make(shadowmap.Map, 6)
	observed[2], observed[3], observed[4] = true, true, true

	bl := mustBlame(t, table, observed)
	require.ElementsMatch(t, []string{"pat0", "pat1", "pat2"}, bl.PossiblePatterns())
}

func TestTargetIntrinsicsFiltersByKnown(t *testing.T) {
	m := []lookup.Matcher{
		{Begin: 0, End: 2, Kind: lookup.Scope},
		completeMatch(1, 2, 0),
	}
	patterns := []lookup.Pattern{
		{Index: 0, PatPredicate: -1, Source: "(intrinsic_wo_chain 42: ..."},
	}
	table := newTable(3, m, patterns, nil)

	observed := make(shadowmap.Map, 3)
	observed[1], observed[2] = true, true
	bl := mustBlame(t, table, observed)

	require.Empty(t, bl.TargetIntrinsics(func(id int) bool { return false }))
	require.Equal(t, []int{42}, bl.TargetIntrinsics(func(id int) bool { return true }))
	require.Equal(t, []int{42}, bl.TargetIntrinsics(nil))
}
