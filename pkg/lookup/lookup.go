// Copyright 2024 mtcov authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package lookup parses the JSON lookup-table artifact a compiler
// backend's build step emits alongside its matcher table: the sorted list
// of matcher opcode spans, the pattern rewrite rules they resolve to, and
// the predicate expressions that gate them.
package lookup

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/irfuzzer-tools/mtcov/pkg/predicate"
)

// Matcher is one opcode span in the matcher table. Begin/End form a closed
// byte range [Begin, End]. Pattern and PatPred are set only for the kinds
// noted on each field and are -1 otherwise; Case holds the record's case
// label, if it has one, and is "" otherwise.
type Matcher struct {
	Begin, End int
	Kind       Kind
	Pattern    int    // valid when Kind.HasPattern()
	PatPred    int    // valid when Kind == CheckPatternPredicate
	Case       string // valid when Kind == SwitchOpcodeCase || Kind == SwitchTypeCase
}

func (m *Matcher) Size() int { return m.End - m.Begin + 1 }

// Pattern is a rewrite rule a matcher may resolve to.
type Pattern struct {
	Index           int
	NamedPredicates []int
	PatPredicate    int // -1 if the pattern takes no pattern-predicate index (treated as True)
	Path            string
	Source          string // combined "src -> dst" text, used only for human-facing blame output
	Complexity      int
}

// Table is everything parsed from a single lookup-table JSON file:
// matchers sorted per the containment invariant, the patterns they
// resolve to, and the predicate keeper holding every named/pattern
// predicate expression.
type Table struct {
	Matchers         []Matcher
	Patterns         []Pattern
	MatcherTableSize int
	Predicates       *predicate.Keeper
}

// Error reports a malformed input or semantic violation found while
// loading a lookup table.
type Error struct {
	File string
	Msg  string
}

func (e *Error) Error() string {
	if e.File != "" {
		return fmt.Sprintf("%s: %s", e.File, e.Msg)
	}
	return e.Msg
}

type rawMatcher struct {
	Index     int     `json:"index"`
	Size      int     `json:"size"`
	Kind      *int    `json:"kind"`
	Pattern   *int    `json:"pattern"`
	Predicate *int    `json:"predicate"`
	Case      *string `json:"case"`
}

type rawPattern struct {
	Predicates   []int  `json:"predicates"`
	PatPredicate *int   `json:"pat_predicate"`
	Complexity   int    `json:"complexity"`
	Path         string `json:"path"`
	Pattern      string `json:"pattern"`
}

type rawTable struct {
	TableSize     int          `json:"table_size"`
	Predicates    []string     `json:"predicates"`
	PatPredicates []string     `json:"pat_predicates"`
	Patterns      []rawPattern `json:"patterns"`
	Matchers      []rawMatcher `json:"matchers"`
}

// Load reads and parses the lookup-table JSON artifact at path.
func Load(path string, caseSensitive bool) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{File: path, Msg: err.Error()}
	}
	if len(data) == 0 {
		return nil, &Error{File: path, Msg: "empty lookup table"}
	}
	var raw rawTable
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &Error{File: path, Msg: fmt.Sprintf("invalid JSON: %v", err)}
	}
	if len(raw.Matchers) == 0 {
		return &Table{
			MatcherTableSize: raw.TableSize,
			Predicates:       predicate.NewKeeper(caseSensitive),
		}, nil
	}

	matchers := make([]Matcher, len(raw.Matchers))
	for i, rm := range raw.Matchers {
		m := Matcher{
			Begin:   rm.Index,
			End:     rm.Index + rm.Size - 1,
			Kind:    pendingKind,
			Pattern: -1,
			PatPred: -1,
		}
		if rm.Kind != nil {
			m.Kind = Kind(*rm.Kind)
			if _, ok := kindNames[m.Kind]; !ok {
				m.Kind = Unknown
			}
		}
		if m.Kind.HasPattern() && rm.Pattern != nil {
			m.Pattern = *rm.Pattern
		}
		if m.Kind == CheckPatternPredicate && rm.Predicate != nil {
			m.PatPred = *rm.Predicate
		}
		if rm.Case != nil {
			m.Case = *rm.Case
		}
		matchers[i] = m
	}

	sortMatchers(matchers)
	inferSyntheticKinds(matchers)
	if err := checkContainment(matchers); err != nil {
		return nil, &Error{File: path, Msg: err.Error()}
	}
	// The terminating null byte after the outermost scope is counted as
	// covered territory.
	matchers[0].End++

	patterns := make([]Pattern, len(raw.Patterns))
	for i, rp := range raw.Patterns {
		p := Pattern{
			Index:           i,
			NamedPredicates: rp.Predicates,
			PatPredicate:    -1,
			Path:            rp.Path,
			Source:          rp.Pattern,
			Complexity:      rp.Complexity,
		}
		if len(rp.Predicates) > 0 && rp.PatPredicate != nil {
			p.PatPredicate = *rp.PatPredicate
		}
		patterns[i] = p
	}

	pk := predicate.NewKeeper(caseSensitive)
	if err := pk.AddNamed(raw.Predicates); err != nil {
		return nil, &Error{File: path, Msg: err.Error()}
	}
	if err := pk.AddPattern(raw.PatPredicates); err != nil {
		return nil, &Error{File: path, Msg: err.Error()}
	}

	return &Table{
		Matchers:         matchers,
		Patterns:         patterns,
		MatcherTableSize: raw.TableSize,
		Predicates:       pk,
	}, nil
}

// sortMatchers linearizes the nested-interval tree into a DFS preorder:
// begin ascending, end descending (so a container sorts before its
// children), and on an exact tie a non-leaf before a leaf (the container
// subsumes a same-range terminator).
func sortMatchers(m []Matcher) {
	sort.SliceStable(m, func(i, j int) bool {
		if m[i].Begin != m[j].Begin {
			return m[i].Begin < m[j].Begin
		}
		if m[i].End != m[j].End {
			return m[i].End > m[j].End
		}
		return !m[i].Kind.IsLeaf() && m[j].Kind.IsLeaf()
	})
}

// inferSyntheticKinds assigns Subscope/SwitchOpcodeCase/SwitchTypeCase to
// matchers whose JSON record carried no "kind" field, using the nearest
// enclosing matcher found via a containment stack walked in the same
// preorder the traversal itself uses. A pending matcher with a non-empty
// Case whose enclosing matcher is a SwitchOpcode/SwitchType becomes that
// switch's case kind; every other pending matcher becomes a Subscope,
// whatever kind its enclosing matcher has.
func inferSyntheticKinds(m []Matcher) {
	var stack []int // indices into m, innermost (current parent) last
	for i := range m {
		for len(stack) > 0 && m[i].Begin > m[stack[len(stack)-1]].End {
			stack = stack[:len(stack)-1]
		}
		if m[i].Kind == pendingKind {
			parent := Scope
			if len(stack) > 0 {
				parent = m[stack[len(stack)-1]].Kind
			}
			switch {
			case m[i].Case != "" && parent == SwitchOpcode:
				m[i].Kind = SwitchOpcodeCase
			case m[i].Case != "" && parent == SwitchType:
				m[i].Kind = SwitchTypeCase
			default:
				m[i].Kind = Subscope
			}
		}
		stack = append(stack, i)
	}
}

// checkContainment enforces that for any two matchers, either their
// intervals are disjoint or one strictly contains the other.
func checkContainment(m []Matcher) error {
	var stack []Matcher
	for _, cur := range m {
		for len(stack) > 0 {
			top := stack[len(stack)-1]
			if cur.Begin > top.End {
				stack = stack[:len(stack)-1]
				continue
			}
			break
		}
		if len(stack) > 0 {
			top := stack[len(stack)-1]
			if !(top.Begin <= cur.Begin && cur.End <= top.End) {
				return fmt.Errorf("matcher [%d,%d] overlaps but does not nest within [%d,%d]",
					cur.Begin, cur.End, top.Begin, top.End)
			}
		}
		stack = append(stack, cur)
	}
	return nil
}
