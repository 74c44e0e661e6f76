// Copyright 2024 mtcov authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package shadowmap reads, writes, and combines shadow maps: one bit per
// matcher-table byte, packed big-endian, where bit value true means the
// byte was never executed. The inversion (1 = uncovered) is preserved for
// byte-for-byte compatibility with existing corpora.
package shadowmap

import (
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"
)

// Map is an unpacked shadow map: one entry per matcher-table byte, true
// meaning the byte was never executed.
type Map []bool

// ShortFileError reports a shadow-map file that held fewer bits than the
// requested size.
type ShortFileError struct {
	File string
	Want int
	Got  int
}

func (e *ShortFileError) Error() string {
	return fmt.Sprintf("%s: expected %d bits, got %d", e.File, e.Want, e.Got)
}

// ReadFile reads a packed shadow map of exactly size bits from path.
// Padding bits beyond size in the file's trailing byte are discarded; a
// file holding fewer than size bits is a fatal ShortFileError.
func ReadFile(path string, size int) (Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	m := make(Map, 0, size)
	for _, b := range data {
		for bit := 0; bit < 8 && len(m) < size; bit++ {
			m = append(m, (b>>(7-bit))&1 != 0)
		}
		if len(m) == size {
			break
		}
	}
	if len(m) != size {
		return nil, &ShortFileError{File: path, Want: size, Got: len(m)}
	}
	return m, nil
}

// ReadFiles reads every path's shadow map concurrently. Each read is
// independent I/O with no shared mutable state; the fan-out itself is the
// only concurrent step.
func ReadFiles(paths []string, size int) ([]Map, error) {
	maps := make([]Map, len(paths))
	g := new(errgroup.Group)
	for i, p := range paths {
		i, p := i, p
		g.Go(func() error {
			m, err := ReadFile(p, size)
			if err != nil {
				return err
			}
			maps[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return maps, nil
}

// WriteFile packs m into big-endian bytes and writes it to path. The
// trailing byte, if m's length isn't a multiple of 8, is zero-padded.
func WriteFile(path string, m Map) error {
	data := make([]byte, (len(m)+7)/8)
	for i, bit := range m {
		if !bit {
			continue
		}
		data[i/8] |= 1 << (7 - uint(i%8))
	}
	return os.WriteFile(path, data, 0644)
}

// Op combines two bits from the same index across two maps, folding into a
// running result.
type Op func(r, m bool) bool

// Combine folds maps[1:] into a copy of maps[0] using op, left to right.
// The bit-op names are deliberately the inverse of the coverage-facing
// names below: the convention inverts (1 = uncovered), so op = and is
// "union of covered sets" and so on.
func Combine(maps []Map, op Op) (Map, error) {
	if len(maps) == 0 {
		return nil, nil
	}
	size := len(maps[0])
	for _, m := range maps {
		if len(m) != size {
			return nil, fmt.Errorf("shadowmap: combine: size mismatch, want %d got %d", size, len(m))
		}
	}
	r := make(Map, size)
	copy(r, maps[0])
	for _, m := range maps[1:] {
		for i := range r {
			r[i] = op(r[i], m[i])
		}
	}
	return r, nil
}

// Union returns, for each byte, covered if any map covers it: the union of
// the covered sets, i.e. every byte at least one run covered.
func Union(maps []Map) (Map, error) {
	return Combine(maps, func(r, m bool) bool { return r && m })
}

// Intersection returns, for each byte, uncovered unless every map covers
// it: the intersection of the covered sets, i.e. the bytes every run covered.
func Intersection(maps []Map) (Map, error) {
	return Combine(maps, func(r, m bool) bool { return r || m })
}

// Difference returns the bytes the first map covers that the second
// doesn't: r | !m, restricted to exactly two maps.
func Difference(a, b Map) (Map, error) {
	return Combine([]Map{a, b}, func(r, m bool) bool { return r || !m })
}

// Covered returns the number of covered (false) bits in m.
func Covered(m Map) int {
	n := 0
	for _, bit := range m {
		if !bit {
			n++
		}
	}
	return n
}
