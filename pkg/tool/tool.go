// Copyright 2020 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package tool contains various helper utilities useful for implementation of command line tools.
package tool

import (
	"flag"
	"fmt"
	"os"
)

func Failf(msg string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, msg+"\n", args...)
	os.Exit(1)
}

func Fail(err error) {
	Failf("%v", err)
}

var (
	flagCPUProfile = flag.String("cpuprofile", "", "write cpu profile to file")
	flagMemProfile = flag.String("memprofile", "", "write memory profile to file")
)

// Init parses the command line flags and returns a function that must be
// deferred by main to flush any requested profiles. The mtcov main calls
// `defer tool.Init()()` before dispatching to a subcommand.
func Init() func() {
	flag.Parse()
	return installProfiling(*flagCPUProfile, *flagMemProfile)
}
