// Copyright 2024 mtcov authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package main

import (
	"flag"
	"fmt"
	"math"
	"os"

	"github.com/irfuzzer-tools/mtcov/pkg/lookup"
	"github.com/irfuzzer-tools/mtcov/pkg/matchertree"
	"github.com/irfuzzer-tools/mtcov/pkg/shadowmap"
	"github.com/irfuzzer-tools/mtcov/pkg/tool"
)

// cmdUpperBound implements `mtcov upperbound <lookup-table>
// [true-predicate-name-or-index...] [-p pat-pred-bits] [-o out.map] [-s]
// [-b] [-l N] [-pat file] [-loss-per-pattern]`.
func cmdUpperBound(args []string) {
	fs := flag.NewFlagSet("upperbound", flag.ExitOnError)
	patPredStr := fs.String("p", "", "manually set pattern predicate values (bit string or file)")
	outFile := fs.String("o", "", "write the resulting shadow map here")
	caseSensitive := fs.Bool("s", false, "make predicate names case sensitive")
	showBlame := fs.Bool("b", false, "show matcher coverage blame list")
	maxEntries := fs.Int("l", math.MaxInt32, "limit blame list entries printed")
	patOut := fs.String("pat", "", "write uncovered patterns sorted by loss to this file")
	lossPerPattern := fs.Bool("loss-per-pattern", false, "divide blamee loss by number of blamers in -pat output")
	verbose := fs.Bool("v", false, "increase verbosity")
	fs.Parse(args)

	pos := fs.Args()
	if len(pos) < 1 {
		tool.Failf("usage: mtcov upperbound <lookup-table> [true-pred...]")
	}
	table, err := lookup.Load(pos[0], *caseSensitive)
	if err != nil {
		tool.Fail(err)
	}

	for _, p := range pos[1:] {
		if p == "" {
			continue
		}
		if idx, ok := parseUint(p); ok {
			table.Predicates.Enable(idx)
			continue
		}
		if !table.Predicates.EnableByName(p) {
			fmt.Fprintf(os.Stderr, "ERROR: unknown named predicate %q\n", p)
		}
	}
	table.Predicates.Resolve()

	if *patPredStr != "" {
		bits, ok := parseBitString(*patPredStr)
		if !ok || len(bits) != table.Predicates.PatternCount() {
			data, rerr := os.ReadFile(*patPredStr)
			if rerr != nil {
				tool.Failf("-p: %q is neither a valid bit string nor a readable file", *patPredStr)
			}
			bits, ok = parseBitString(string(data))
			if !ok {
				tool.Failf("-p: file %q does not contain a bit string", *patPredStr)
			}
		}
		table.Predicates.UpdatePatternPredicates(bits)
	}

	tree := matchertree.New(table)
	sm := tree.UpperBound()

	if *verbose || *showBlame {
		sp := shadowmap.NewStatPrinter()
		sp.Summarize("Upper bound", shadowmap.Covered(sm), len(sm), true)
		sp.Print(os.Stdout)
	}

	if *showBlame {
		fmt.Println()
		fmt.Print("Loss from pattern predicate indices")
		fmt.Printf(" (top %d):\n", *maxEntries)

		bl, err := matchertree.New(table).Blame(sm)
		if err != nil {
			tool.Fail(err)
		}
		printPatPredLoss(bl.ByPatternPredicate(), *maxEntries, table.MatcherTableSize)
		if *patOut != "" {
			writePatternLoss(*patOut, bl.ByPattern(*lossPerPattern))
		}
	}

	if *outFile != "" {
		if err := shadowmap.WriteFile(*outFile, sm); err != nil {
			tool.Fail(err)
		}
	}
}

func parseUint(s string) (int, bool) {
	n := 0
	if s == "" {
		return 0, false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}
