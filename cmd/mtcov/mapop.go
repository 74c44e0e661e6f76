// Copyright 2024 mtcov authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package main

import (
	"flag"
	"os"
	"strconv"

	"github.com/irfuzzer-tools/mtcov/pkg/shadowmap"
	"github.com/irfuzzer-tools/mtcov/pkg/tool"
)

// cmdIntersect implements `mtcov intersect [-o file] [-v] <table-size>
// <maps...>`: the bytes every run covered.
func cmdIntersect(args []string) {
	runMapOp(args, "Intersection", shadowmap.Intersection)
}

// cmdUnion implements `mtcov union [-o file] [-v] <table-size> <maps...>`:
// the bytes at least one run covered.
func cmdUnion(args []string) {
	runMapOp(args, "Union", shadowmap.Union)
}

// cmdDiff implements `mtcov diff [-o file] [-v] <table-size> <maps...>`:
// the bytes the first map covers that the rest of the maps don't.
// Flags go before the positional arguments; parsing stops at the first
// non-flag argument, for this and the other subcommands alike.
func cmdDiff(args []string) {
	runMapOp(args, "Diff", func(maps []shadowmap.Map) (shadowmap.Map, error) {
		r := maps[0]
		for _, m := range maps[1:] {
			var err error
			r, err = shadowmap.Difference(r, m)
			if err != nil {
				return nil, err
			}
		}
		return r, nil
	})
}

func runMapOp(args []string, desc string, op func([]shadowmap.Map) (shadowmap.Map, error)) {
	fs := flag.NewFlagSet(desc, flag.ExitOnError)
	outFile := fs.String("o", "", "write the resulting shadow map here")
	verbose := fs.Bool("v", false, "increase verbosity")
	fs.Parse(args)

	pos := fs.Args()
	if len(pos) < 2 {
		tool.Failf("usage: mtcov <intersect|diff|union> <table-size> <maps...>")
	}
	size, err := strconv.Atoi(pos[0])
	if err != nil || size < 0 {
		tool.Failf("invalid table size %q", pos[0])
	}
	files := pos[1:]

	maps, err := shadowmap.ReadFiles(files, size)
	if err != nil {
		tool.Fail(err)
	}
	result, err := op(maps)
	if err != nil {
		tool.Fail(err)
	}

	if *verbose || *outFile == "" {
		sp := shadowmap.NewStatPrinter()
		for i, f := range files {
			sp.AddMap(f, maps[i])
		}
		sp.Summarize(desc, shadowmap.Covered(result), len(result), true)
		sp.Print(os.Stdout)
	}

	if *outFile != "" {
		if err := shadowmap.WriteFile(*outFile, result); err != nil {
			tool.Fail(err)
		}
	}
}
