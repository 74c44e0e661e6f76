// Copyright 2024 mtcov authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package shadowmap

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSortOrderFlagValue(t *testing.T) {
	var s SortOrder
	require.Equal(t, "none", s.String())

	require.NoError(t, s.Set("asc"))
	require.Equal(t, SortAsc, s)
	require.Equal(t, "asc", s.String())

	require.NoError(t, s.Set("desc"))
	require.Equal(t, SortDesc, s)

	require.NoError(t, s.Set(""))
	require.Equal(t, SortNone, s)

	require.Error(t, s.Set("bogus"))
}

func TestStatPrinterFormatsAlignedRows(t *testing.T) {
	sp := NewStatPrinter()
	sp.AddMap("short.map", bits("0011"))
	sp.SetRowDescription("run-2")
	sp.AddMap("averyverylongname.map", bits("00000011"))

	var out strings.Builder
	sp.Print(&out)
	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	for _, l := range lines {
		require.Contains(t, l, "out of")
		require.Contains(t, l, "%)")
	}
	// Filenames are right-aligned to the widest filename column.
	require.True(t, strings.HasPrefix(lines[0], strings.Repeat(" ", len("averyverylongname.map")-len("short.map"))))
}

func TestStatPrinterLimitAndAtLimit(t *testing.T) {
	sp := NewStatPrinter()
	sp.Limit(2)
	sp.AddStat("a", 1, 4)
	require.False(t, sp.AtLimit())
	sp.AddStat("b", 2, 4)
	require.True(t, sp.AtLimit())
	sp.AddStat("c", 3, 4) // dropped, at limit

	var out strings.Builder
	sp.Print(&out)
	require.Equal(t, 2, strings.Count(out.String(), "\n"))
}

func TestStatPrinterSummarizeBypassesLimit(t *testing.T) {
	sp := NewStatPrinter()
	sp.Limit(0)
	sp.AddStat("dropped", 1, 4)
	sp.Summarize("total", 3, 4, true)

	var out strings.Builder
	sp.Print(&out)
	require.Contains(t, out.String(), "total")
	require.Equal(t, 1, strings.Count(out.String(), "\n"))
}

func TestStatPrinterSort(t *testing.T) {
	sp := NewStatPrinter()
	sp.AddStat("a", 1, 10)
	sp.AddStat("b", 5, 10)
	sp.AddStat("c", 3, 10)

	sp.Sort(SortAsc)
	require.Equal(t, []int{1, 3, 5}, coveredOrder(sp))

	sp.Sort(SortDesc)
	require.Equal(t, []int{5, 3, 1}, coveredOrder(sp))
}

func coveredOrder(sp *StatPrinter) []int {
	out := make([]int, len(sp.rows))
	for i, r := range sp.rows {
		out[i] = r.covered
	}
	return out
}

func TestStatPrinterPrintResetsState(t *testing.T) {
	sp := NewStatPrinter()
	sp.AddStat("a", 1, 4)
	var out strings.Builder
	sp.Print(&out)
	require.Empty(t, sp.rows)

	var out2 strings.Builder
	sp.Print(&out2)
	require.Empty(t, out2.String())
}
