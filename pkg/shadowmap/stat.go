// Copyright 2024 mtcov authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package shadowmap

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
)

// SortOrder controls StatPrinter.Sort.
type SortOrder int

const (
	// SortNone leaves rows in insertion order, the default.
	SortNone SortOrder = iota
	SortAsc
	SortDesc
)

// String implements flag.Value's String method so SortOrder can be used
// directly as a -sort flag value.
func (s SortOrder) String() string {
	switch s {
	case SortAsc:
		return "asc"
	case SortDesc:
		return "desc"
	default:
		return "none"
	}
}

// Set implements flag.Value.
func (s *SortOrder) Set(v string) error {
	switch v {
	case "none", "":
		*s = SortNone
	case "asc":
		*s = SortAsc
	case "desc":
		*s = SortDesc
	default:
		return fmt.Errorf("unknown sort order %q (want none, asc, or desc)", v)
	}
	return nil
}

type statRow struct {
	filename string
	desc     string
	covered  int
	size     int
}

// StatPrinter accumulates coverage rows and prints them aligned:
// "filename: desc: covered out of size (pct%)". Each call to Print clears
// the accumulated state.
type StatPrinter struct {
	rows        []statRow
	desc        string
	maxFilename int
	maxDesc     int
	maxSize     int
	limit       int // <0 means unlimited
}

// NewStatPrinter returns an empty StatPrinter with no row limit.
func NewStatPrinter() *StatPrinter {
	return &StatPrinter{limit: -1}
}

// SetRowDescription sets the description column used by AddFile/AddMap
// until changed again.
func (p *StatPrinter) SetRowDescription(desc string) { p.desc = desc }

// Limit caps the number of non-summary rows accepted by AddStat.
func (p *StatPrinter) Limit(n int) { p.limit = n }

// AtLimit reports whether Limit(0) has been reached.
func (p *StatPrinter) AtLimit() bool { return p.limit == 0 }

// AddMap adds a row for an already-loaded map, using the current row description.
func (p *StatPrinter) AddMap(filename string, m Map) {
	p.addStat(filename, p.desc, Covered(m), len(m))
}

// AddFile reads path as a size-bit shadow map and adds a row for it.
func (p *StatPrinter) AddFile(path string, size int) error {
	m, err := ReadFile(path, size)
	if err != nil {
		return err
	}
	p.AddMap(path, m)
	return nil
}

// AddStat adds a row from already-computed counts, bypassing a re-read.
func (p *StatPrinter) AddStat(filename string, covered, size int) {
	p.addStat(filename, p.desc, covered, size)
}

// Summarize adds a row outside the row Limit, so summary lines always
// print regardless of how many per-file rows were truncated.
func (p *StatPrinter) Summarize(desc string, covered, size int, alignToDesc bool) {
	saved := p.limit
	p.limit = -1
	if alignToDesc {
		p.addStat("", desc, covered, size)
	} else {
		p.addStat(desc, "", covered, size)
	}
	p.limit = saved
}

func (p *StatPrinter) addStat(filename, desc string, covered, size int) {
	if p.limit == 0 {
		return
	}
	if p.limit > 0 {
		p.limit--
	}
	if len(filename) > p.maxFilename {
		p.maxFilename = len(filename)
	}
	if len(desc) > p.maxDesc {
		p.maxDesc = len(desc)
	}
	if size > p.maxSize {
		p.maxSize = size
	}
	p.rows = append(p.rows, statRow{filename, desc, covered, size})
}

// Sort reorders the accumulated rows by covered count.
func (p *StatPrinter) Sort(order SortOrder) {
	switch order {
	case SortAsc:
		sort.SliceStable(p.rows, func(i, j int) bool { return p.rows[i].covered < p.rows[j].covered })
	case SortDesc:
		sort.SliceStable(p.rows, func(i, j int) bool { return p.rows[i].covered > p.rows[j].covered })
	}
}

func (p *StatPrinter) format(r statRow) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%*s", p.maxFilename, r.filename)
	if r.filename != "" {
		b.WriteString(": ")
	} else if p.maxFilename > 0 {
		b.WriteString("  ")
	}
	fmt.Fprintf(&b, "%*s", p.maxDesc, r.desc)
	if r.desc != "" {
		b.WriteString(": ")
	} else if p.maxDesc > 0 {
		b.WriteString("  ")
	}
	idxWidth := len(fmt.Sprintf("%d", p.maxSize))
	fmt.Fprintf(&b, "%*d out of %*d", idxWidth, r.covered, idxWidth, r.size)
	pct := 0.0
	if r.size > 0 {
		pct = float64(r.covered) / float64(r.size) * 100
	}
	fmt.Fprintf(&b, " (%s%%)", formatPercent(pct))
	return b.String()
}

func formatPercent(pct float64) string {
	if math.IsNaN(pct) {
		pct = 0
	}
	return fmt.Sprintf("%f", pct)
}

// Print writes one line per accumulated row, in insertion order unless
// Sort was called, then clears all accumulated state and the row limit.
func (p *StatPrinter) Print(w io.Writer) {
	for _, r := range p.rows {
		fmt.Fprintln(w, p.format(r))
	}
	p.rows = nil
	p.maxFilename = 0
	p.maxDesc = 0
	p.maxSize = 0
	p.desc = ""
	p.limit = -1
}
