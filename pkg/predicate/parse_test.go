// Copyright 2024 mtcov authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package predicate

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/irfuzzer-tools/mtcov/pkg/log"
)

func TestParsePredicateGrammar(t *testing.T) {
	tests := []struct {
		name string
		expr string
		ok   bool
	}{
		{"plain-identifier", "Subtarget->hasFeature()", true},
		{"member-chain", "Subtarget->getFeature().isValid()", true},
		{"comparison", "N->getOpcode() == ISD::ADD", true},
		{"namespaced", "ISD::ADD", true},
		{"not", "!Subtarget->hasFeature()", true},
		{"and", "A && B", true},
		{"or", "A || B", true},
		{"group", "(A && B) || C", true},
		{"unclosed-group", "(A && B", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k := NewKeeper(false)
			_, err := k.parsePredicate(tt.expr)
			if tt.ok {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
				var perr *ParseError
				require.ErrorAs(t, err, &perr)
			}
		})
	}
}

func TestAddNamedRejectsMalformedRecord(t *testing.T) {
	k := NewKeeper(false)
	err := k.AddNamed([]string{"Garbage record with no CondString"})
	require.Error(t, err)
}

func TestAddNamedRejectsEmptyCondition(t *testing.T) {
	k := NewKeeper(false)
	err := k.AddNamed([]string{namedRecord("A", "")})
	require.Error(t, err)
}

func TestInternLiteralPanicsUnderStrict(t *testing.T) {
	log.Strict = true
	defer func() { log.Strict = false }()

	require.Panics(t, func() {
		k := NewKeeper(false)
		k.AddNamed([]string{namedRecord("Root", "A() && B()")})
	})
}
