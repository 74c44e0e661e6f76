// Copyright 2024 mtcov authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package predicate

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/irfuzzer-tools/mtcov/pkg/log"
)

// ParseError reports a failure to parse a predicate condition string,
// carrying enough context (the expression and the offset within it) to
// regenerate the report.
type ParseError struct {
	Expr   string
	Offset int
	Want   string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("expected %q at char %d in %q", e.Want, e.Offset+1, e.Expr)
}

var condStringRe = regexp.MustCompile(`string CondString = "(.*?)";`)
var nonLiteralRe = regexp.MustCompile(`!|\|\|?|&&?`)

// literalRe matches the restrictive BareExpr grammar: an identifier,
// optionally namespaced and/or called, optionally chained through -> or
// . member access (each with at most one level of call), optionally
// compared against another such value.
var identifier = `[A-Za-z_][A-Za-z0-9_]*`
var maybeCall = identifier + `(\([^()]*\))?`
var noSpaceValue = `(?:` + identifier + `::)?` + maybeCall + `(?:(?:->|\.)` + maybeCall + `)*`
var literalRe = regexp.MustCompile(`^` + noSpaceValue + `(?: (?:==|!=) ` + noSpaceValue + `)?`)

// AddNamed loads named predicates from backend-emitted records of the form
// `Name ... string CondString = "..."; ...`. Literal (non-composite)
// conditions are installed first so that composite expressions parsed
// afterwards can reference them by name.
func (k *Keeper) AddNamed(records []string) error {
	type pending struct {
		name, cond string
	}
	var toParse []pending

	for _, record := range records {
		fields := strings.SplitN(record, " ", 2)
		rawName := fields[0]
		name := rawName
		if !k.caseSensitive {
			name = strings.ToLower(rawName)
		}

		m := condStringRe.FindStringSubmatch(record)
		if m == nil {
			return fmt.Errorf("failed to extract condition for predicate %s", name)
		}
		cond := m[1]
		if cond == "" {
			return fmt.Errorf("got empty condition for predicate %s", name)
		}

		var h Handle
		if nonLiteralRe.MatchString(cond) {
			toParse = append(toParse, pending{name, cond})
			h = 0 // placeholder, filled in once the composite is parsed below
		} else {
			if cond == "true" {
				h = k.True
			} else {
				h = k.newNode(node{kind: Literal, value: false})
			}
			k.literalExprs[cond] = name
		}
		k.nameLookup[name] = len(k.named)
		k.named = append(k.named, h)
	}

	// Parse composite expressions in a stable (sorted) order so that
	// diagnostics are deterministic regardless of input ordering.
	sort.Slice(toParse, func(i, j int) bool { return toParse[i].name < toParse[j].name })
	for _, p := range toParse {
		h, err := k.parsePredicate(p.cond)
		if err != nil {
			return fmt.Errorf("failed to parse condition for predicate %s: %w", p.name, err)
		}
		k.named[k.nameLookup[p.name]] = h
	}
	return nil
}

// AddPattern parses each pattern predicate expression and resolves the
// whole DAG once all of them have been installed.
func (k *Keeper) AddPattern(expressions []string) error {
	for _, expr := range expressions {
		h, err := k.parsePredicate(expr)
		if err != nil {
			return err
		}
		k.pattern = append(k.pattern, h)
	}
	k.Resolve()
	return nil
}

func (k *Keeper) parsePredicate(cond string) (Handle, error) {
	if cond == "" {
		return 0, &ParseError{Expr: cond, Offset: 0, Want: "<expr>"}
	}
	p := &parser{k: k, s: cond}
	h, err := p.parseOr()
	if err != nil {
		return 0, err
	}
	return h, nil
}

// parser is a hand-written recursive-descent parser over the restrictive
// grammar Expr := Or, Or := And (" ||" And)*, And := Not (" &&" Not)*,
// Not := "!" Literal | Literal, Literal := "(" Expr ")" | BareExpr.
// There is no tokenizer: the backend's generated expressions are spaced
// consistently enough that whitespace alone disambiguates tokens.
type parser struct {
	k   *Keeper
	s   string
	pos int
}

func (p *parser) fail(want string) error {
	return &ParseError{Expr: p.s, Offset: p.pos, Want: want}
}

func (p *parser) consumeOp(op string) bool {
	spaced := " " + op + " "
	if strings.HasPrefix(p.s[p.pos:], spaced) {
		p.pos += len(spaced)
		return true
	}
	bare := " " + op
	if strings.HasPrefix(p.s[p.pos:], bare) {
		p.pos += len(bare)
		return true
	}
	return false
}

func (p *parser) parseOr() (Handle, error) {
	first, err := p.parseAnd()
	if err != nil {
		return 0, err
	}
	children := []Handle{first}
	for p.consumeOp("||") {
		c, err := p.parseAnd()
		if err != nil {
			return 0, err
		}
		children = append(children, c)
	}
	if len(children) == 1 {
		return children[0], nil
	}
	return p.k.newNode(node{kind: Or, children: children}), nil
}

func (p *parser) parseAnd() (Handle, error) {
	first, err := p.parseNot()
	if err != nil {
		return 0, err
	}
	children := []Handle{first}
	for p.consumeOp("&&") {
		c, err := p.parseNot()
		if err != nil {
			return 0, err
		}
		children = append(children, c)
	}
	if len(children) == 1 {
		return children[0], nil
	}
	return p.k.newNode(node{kind: And, children: children}), nil
}

func (p *parser) parseNot() (Handle, error) {
	if p.pos < len(p.s) && p.s[p.pos] == '!' {
		p.pos++
		child, err := p.parseLiteral()
		if err != nil {
			return 0, err
		}
		return p.k.newNode(node{kind: Not, child: child}), nil
	}
	return p.parseLiteral()
}

func (p *parser) parseLiteral() (Handle, error) {
	if p.pos < len(p.s) && p.s[p.pos] == '(' {
		return p.parseGroup()
	}
	loc := literalRe.FindStringIndex(p.s[p.pos:])
	if loc == nil {
		return 0, p.fail("<literal>")
	}
	expr := p.s[p.pos : p.pos+loc[1]]
	p.pos += loc[1]
	return p.k.internLiteral(expr), nil
}

func (p *parser) parseGroup() (Handle, error) {
	if p.s[p.pos] != '(' {
		return 0, p.fail("(")
	}
	p.pos++
	h, err := p.parseOr()
	if err != nil {
		return 0, err
	}
	if p.pos >= len(p.s) || p.s[p.pos] != ')' {
		return 0, p.fail(")")
	}
	p.pos++
	return h, nil
}

// internLiteral returns the named predicate handle for a bare expression,
// creating a fresh false literal under a lowercased synthetic name if the
// expression was never declared as a named predicate. This is a recoverable
// condition: a warning at verbosity >= 2, and the analysis proceeds by
// treating the unknown expression as false. Under log.Strict it panics
// instead, since a well-formed lookup table should never reference a
// literal the named predicate list didn't declare.
func (k *Keeper) internLiteral(expr string) Handle {
	if name, ok := k.literalExprs[expr]; ok {
		h, _ := k.Name(name)
		return h
	}
	if log.Strict {
		panic(fmt.Sprintf("predicate: unnamed predicate literal: %s", expr))
	}
	log.Logf(2, "WARNING: found unnamed predicate literal: %s", expr)
	h := k.newNode(node{kind: Literal, value: false})
	name := expr
	if !k.caseSensitive {
		name = strings.ToLower(expr)
	}
	k.nameLookup[name] = len(k.named)
	k.named = append(k.named, h)
	k.literalExprs[expr] = name
	return h
}
