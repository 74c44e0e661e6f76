// Copyright 2024 mtcov authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Command mtcov analyzes matcher-table coverage for a compiler backend's
// instruction-selection fuzzing harness. It dispatches to one of six
// subcommands: analyze, upperbound, intersect, diff, union, stat.
package main

import (
	"flag"

	"github.com/irfuzzer-tools/mtcov/pkg/log"
	"github.com/irfuzzer-tools/mtcov/pkg/tool"
)

var subcommands = map[string]func([]string){
	"analyze":    cmdAnalyze,
	"upperbound": cmdUpperBound,
	"intersect":  cmdIntersect,
	"diff":       cmdDiff,
	"union":      cmdUnion,
	"stat":       cmdStat,
}

func main() {
	flagDebug := flag.Bool("debug", false, "panic on an unnamed predicate literal instead of treating it as false")
	defer tool.Init()()
	log.Strict = *flagDebug

	args := flag.Args()
	if len(args) == 0 {
		tool.Failf("usage: mtcov <analyze|upperbound|intersect|diff|union|stat> ...")
	}
	handler, ok := subcommands[args[0]]
	if !ok {
		tool.Failf("unknown subcommand %q", args[0])
	}
	handler(args[1:])
}

// parseBitString parses a string of '0'/'1' characters into a []bool, or
// reports !ok if it contains anything else.
func parseBitString(s string) (bits []bool, ok bool) {
	bits = make([]bool, len(s))
	for i, c := range s {
		switch c {
		case '0':
			bits[i] = false
		case '1':
			bits[i] = true
		default:
			return nil, false
		}
	}
	return bits, true
}
