// Copyright 2024 mtcov authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package predicate owns the DAG of boolean predicates parsed from
// backend-emitted condition strings (TableGen's CondString / pattern
// predicate expressions). Every predicate node lives in a single arena
// owned by a Keeper; composites reference atoms by handle, never by
// pointer ownership, so flipping one atom's value is visible to every
// composite that references it without any reference counting.
package predicate

import "strings"

// Kind tags the four predicate node shapes.
type Kind int

const (
	Literal Kind = iota
	Not
	And
	Or
)

func (k Kind) String() string {
	switch k {
	case Literal:
		return "Literal"
	case Not:
		return "Not"
	case And:
		return "And"
	case Or:
		return "Or"
	default:
		return "Unknown"
	}
}

// Handle is an index into a Keeper's arena.
type Handle int

// node is one entry in the arena. Only one of the fields relevant to Kind
// is used; composites reference children by Handle, never by pointer, so
// the arena is the sole owner.
type node struct {
	kind     Kind
	value    bool // cached resolved value; literal nodes hold their truth directly here
	child    Handle
	children []Handle
}

// Keeper owns every predicate node parsed from a lookup table, plus the
// bookkeeping needed to parse, flip, and resolve them. The zero Keeper is
// not usable; use NewKeeper.
type Keeper struct {
	arena []node

	// True and False are the two sentinel literals every Keeper carries.
	True, False Handle

	named          []Handle
	nameLookup     map[string]int
	literalExprs   map[string]string // source expression text -> named predicate name
	pattern        []Handle
	caseSensitive  bool
	patternsCustom bool // set once UpdatePatternPredicates has been called
	dirty          bool
}

// NewKeeper creates an empty Keeper with the True/False sentinels installed
// at fixed positions.
func NewKeeper(caseSensitive bool) *Keeper {
	k := &Keeper{
		nameLookup:    make(map[string]int),
		literalExprs:  make(map[string]string),
		caseSensitive: caseSensitive,
	}
	k.True = k.newNode(node{kind: Literal, value: true})
	k.False = k.newNode(node{kind: Literal, value: false})
	return k
}

func (k *Keeper) newNode(n node) Handle {
	k.arena = append(k.arena, n)
	return Handle(len(k.arena) - 1)
}

// CaseSensitive reports whether named-predicate lookups are case sensitive.
func (k *Keeper) CaseSensitive() bool { return k.caseSensitive }

// CustomizedPatternPredicates reports whether UpdatePatternPredicates has
// replaced the pattern predicate DAG roots with explicit sentinel values.
// The flag is only recorded: pkg/matchertree does not read it and does not
// check leaves against their patterns' named predicates.
func (k *Keeper) CustomizedPatternPredicates() bool { return k.patternsCustom }

func (k *Keeper) normalize(name string) string {
	if k.caseSensitive {
		return name
	}
	return strings.ToLower(name)
}

// Kind returns the kind of the node at h.
func (k *Keeper) Kind(h Handle) Kind { return k.arena[h].kind }

// Satisfied returns the node's last-resolved cached value.
func (k *Keeper) Satisfied(h Handle) bool { return k.arena[h].value }

// NamedCount returns the number of declared named predicates.
func (k *Keeper) NamedCount() int { return len(k.named) }

// PatternCount returns the number of compiled pattern predicates.
func (k *Keeper) PatternCount() int { return len(k.pattern) }

// NameByIndex accesses a named predicate by insertion index.
func (k *Keeper) NameByIndex(i int) Handle { return k.named[i] }

// NameIndex returns the named-predicate index for name, and whether it was found.
func (k *Keeper) NameIndex(name string) (int, bool) {
	if name == "TruePredicate" {
		return -1, false
	}
	idx, ok := k.nameLookup[k.normalize(name)]
	return idx, ok
}

// Name accesses a named predicate by its declared name, honoring the
// TruePredicate/FalsePredicate sentinel aliases the backend emits.
func (k *Keeper) Name(name string) (Handle, bool) {
	if name == "TruePredicate" {
		return k.True, true
	}
	if name == "FalsePredicate" {
		return k.False, true
	}
	idx, ok := k.nameLookup[k.normalize(name)]
	if !ok {
		return 0, false
	}
	return k.named[idx], true
}

// Pat accesses a pattern predicate by insertion index.
func (k *Keeper) Pat(i int) Handle { return k.pattern[i] }

// IsDirty reports whether a literal has been flipped since the last resolve.
func (k *Keeper) IsDirty() bool { return k.dirty }

// Resolve evaluates every node in the arena. Order does not matter because
// every literal holds its own cached value already; composites only read
// children's cached values, so a single linear pass over the arena (in
// insertion order, which places atoms before the composites that were
// parsed to reference them) is sufficient.
func (k *Keeper) Resolve() {
	for i := range k.arena {
		k.resolveNode(Handle(i))
	}
	k.dirty = false
}

func (k *Keeper) resolveNode(h Handle) bool {
	n := &k.arena[h]
	switch n.kind {
	case Literal:
		return n.value
	case Not:
		n.value = !k.arena[n.child].value
	case And:
		v := true
		for _, c := range n.children {
			if !k.arena[c].value {
				v = false
				break
			}
		}
		n.value = v
	case Or:
		v := false
		for _, c := range n.children {
			if k.arena[c].value {
				v = true
				break
			}
		}
		n.value = v
	}
	return n.value
}

// Enable forces the named predicate at index i to true and marks the
// keeper dirty. The change propagates recursively through composites
// per the rules documented on force.
func (k *Keeper) Enable(i int) { k.force(k.named[i], true); k.dirty = true }

// Disable forces the named predicate at index i to false.
func (k *Keeper) Disable(i int) { k.force(k.named[i], false); k.dirty = true }

// EnableByName is Enable by declared name.
func (k *Keeper) EnableByName(name string) bool {
	h, ok := k.Name(name)
	if !ok {
		return false
	}
	k.force(h, true)
	k.dirty = true
	return true
}

// DisableByName is Disable by declared name.
func (k *Keeper) DisableByName(name string) bool {
	h, ok := k.Name(name)
	if !ok {
		return false
	}
	k.force(h, false)
	k.dirty = true
	return true
}

// force is a best-effort recursive propagation of a forced truth value
// through a predicate DAG, following these enable/disable rules:
//
//   - Literal: set directly.
//   - Not: negate and recurse into the child.
//   - And: when forcing true, force every child true (the only way an And
//     is true); when forcing false, leave children unchanged (a conjunction
//     has many ways to be false, so there's no unique child to blame).
//   - Or: when forcing true, force only the first child true (any single
//     true child suffices); when forcing false, force every child false
//     (an Or is false only if every child is false).
func (k *Keeper) force(h Handle, v bool) {
	n := &k.arena[h]
	switch n.kind {
	case Literal:
		n.value = v
	case Not:
		n.value = v
		k.force(n.child, !v)
	case And:
		n.value = v
		if v {
			for _, c := range n.children {
				k.force(c, true)
			}
		}
	case Or:
		n.value = v
		if v {
			if len(n.children) > 0 {
				k.force(n.children[0], true)
			}
		} else {
			for _, c := range n.children {
				k.force(c, false)
			}
		}
	}
}

// UpdatePatternPredicates overwrites every pattern predicate's resolved
// value with the corresponding bit and replaces its DAG root with the
// True/False sentinel, so no later Resolve() call can drift it back. This
// also sets CustomizedPatternPredicates.
func (k *Keeper) UpdatePatternPredicates(bits []bool) {
	k.patternsCustom = true
	for i, b := range bits {
		if i >= len(k.pattern) {
			break
		}
		// Best-effort propagate the new value into the old DAG (it will be
		// discarded right after, but this keeps any atoms it touched
		// consistent with the bit the caller supplied).
		k.force(k.pattern[i], b)
		if b {
			k.pattern[i] = k.True
		} else {
			k.pattern[i] = k.False
		}
	}
}
