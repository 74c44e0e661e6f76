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

// cmdStat implements `mtcov stat [--sort none|asc|desc] <table-size>
// <maps...>`.
func cmdStat(args []string) {
	fs := flag.NewFlagSet("stat", flag.ExitOnError)
	var sortOrder shadowmap.SortOrder
	fs.Var(&sortOrder, "sort", "sort rows by covered count: none, asc, or desc")
	fs.Parse(args)

	pos := fs.Args()
	if len(pos) < 2 {
		tool.Failf("usage: mtcov stat <table-size> <maps...>")
	}
	size, err := strconv.Atoi(pos[0])
	if err != nil || size < 0 {
		tool.Failf("invalid table size %q", pos[0])
	}

	sp := shadowmap.NewStatPrinter()
	for _, f := range pos[1:] {
		if err := sp.AddFile(f, size); err != nil {
			tool.Fail(err)
		}
	}
	sp.Sort(sortOrder)
	sp.Print(os.Stdout)
}
