// Copyright 2024 mtcov authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/irfuzzer-tools/mtcov/pkg/lookup"
	"github.com/irfuzzer-tools/mtcov/pkg/matchertree"
	"github.com/irfuzzer-tools/mtcov/pkg/mtfile"
	"github.com/irfuzzer-tools/mtcov/pkg/shadowmap"
	"github.com/irfuzzer-tools/mtcov/pkg/tool"
)

// cmdAnalyze implements `mtcov analyze [-l N] [-pat file]
// [-loss-per-pattern] <lookup-table> <map>`: load an observed shadow map, localize its
// uncovered bytes, and report loss grouped by matcher kind and by
// pattern-predicate index.
func cmdAnalyze(args []string) {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	maxEntries := fs.Int("l", math.MaxInt32, "limit blame list entries printed")
	patOut := fs.String("pat", "", "write uncovered patterns sorted by loss to this file")
	lossPerPattern := fs.Bool("loss-per-pattern", false, "divide blamee loss by number of blamers in -pat output")
	fs.Parse(args)

	pos := fs.Args()
	if len(pos) < 2 {
		tool.Failf("usage: mtcov analyze <lookup-table> <map>")
	}
	table, err := lookup.Load(pos[0], false)
	if err != nil {
		tool.Fail(err)
	}
	observed, err := shadowmap.ReadFile(pos[1], table.MatcherTableSize)
	if err != nil {
		tool.Fail(err)
	}

	sp := shadowmap.NewStatPrinter()
	sp.AddMap(pos[1], observed)
	sp.Print(os.Stdout)
	fmt.Println()

	tree := matchertree.New(table)
	bl, err := tree.Blame(observed)
	if err != nil {
		tool.Fail(err)
	}

	fmt.Println("Top coverage loss cause by matcher kind:")
	printKindLoss(bl.ByKind(), *maxEntries, len(observed))

	fmt.Println()
	fmt.Println("Loss from pattern predicate indices:")
	printPatPredLoss(bl.ByPatternPredicate(), *maxEntries, table.MatcherTableSize)

	if *patOut != "" {
		writePatternLoss(*patOut, bl.ByPattern(*lossPerPattern))
	}
}

func printKindLoss(rows []matchertree.KindLoss, limit, tableSize int) {
	sp := shadowmap.NewStatPrinter()
	sp.Limit(limit)
	sum := 0
	for _, r := range rows {
		if sp.AtLimit() {
			break
		}
		sp.AddStat(r.Kind.String(), r.Loss, tableSize)
		sum += r.Loss
	}
	sp.Summarize("Sum", sum, tableSize, true)
	sp.Print(os.Stdout)
}

func printPatPredLoss(rows []matchertree.PatPredLoss, limit, tableSize int) {
	sp := shadowmap.NewStatPrinter()
	sp.Limit(limit)
	sum := 0
	for _, r := range rows {
		if sp.AtLimit() {
			break
		}
		sp.AddStat(fmt.Sprintf("%d", r.Index), r.Loss, tableSize)
		sum += r.Loss
	}
	sp.Summarize("Sum", sum, tableSize, true)
	sp.Print(os.Stdout)
}

func writePatternLoss(path string, rows []matchertree.PatternLoss) {
	var b strings.Builder
	for _, r := range rows {
		fmt.Fprintf(&b, "%d\t%s\t%d\t%s\n", r.Loss, r.BlameeKind, r.Depth, r.Pattern)
	}
	if err := mtfile.WriteFile(path, []byte(b.String())); err != nil {
		tool.Fail(err)
	}
}
