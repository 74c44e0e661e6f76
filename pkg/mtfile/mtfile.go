// Copyright 2017 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package mtfile holds the one file helper the CLI needs: writing an
// output artifact. It is a narrow, analyzer-specific slice of a broader
// OS-utility package — the rest of that surface (subprocess execution,
// PDEATHSIG, temp files, tar archives) has no caller in a
// single-threaded, no-subprocess analyzer and was dropped.
package mtfile

import (
	"os"
)

const DefaultFilePerm = 0644

// WriteFile writes data to filename; creating parent directories is not
// attempted, the caller is expected to pass a path in an existing
// directory, matching every -o/-pat flag in the CLI surface.
func WriteFile(filename string, data []byte) error {
	return os.WriteFile(filename, data, DefaultFilePerm)
}
