// Copyright 2024 mtcov authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package lookup

// Kind tags a matcher opcode span. The numeric values of the first 37
// constants are a stable wire encoding that comes straight from LLVM's
// DAG ISel Matcher::KindTy, as produced by the backend's TableGen-generated
// matcher table. Subscope, SwitchOpcodeCase,
// and SwitchTypeCase are synthetic: the backend's JSON dump never assigns
// them a kind integer, they are inferred at load time from the matcher's
// position relative to its parent (see inferSyntheticKinds in lookup.go).
type Kind int

// pendingKind marks a matcher whose JSON record carried no "kind" field.
// It is resolved to Subscope/SwitchOpcodeCase/SwitchTypeCase by
// inferSyntheticKinds once the matcher's position in the sorted,
// nested-interval vector is known. It is never observed outside lookup.Load.
const pendingKind Kind = -1

const (
	Scope Kind = iota
	RecordNode
	RecordChild
	RecordMemRef
	CaptureGlueInput
	MoveChild
	MoveParent
	CheckSame
	CheckChildSame
	CheckPatternPredicate
	CheckPredicate
	CheckOpcode
	SwitchOpcode
	CheckType
	SwitchType
	CheckChildType
	CheckInteger
	CheckChildInteger
	CheckCondCode
	CheckChild2CondCode
	CheckValueType
	CheckComplexPat
	CheckAndImm
	CheckOrImm
	CheckImmAllOnesV
	CheckImmAllZerosV
	CheckFoldableChainNode
	EmitInteger
	EmitStringInteger
	EmitRegister
	EmitConvertToTarget
	EmitMergeInputChains
	EmitCopyToReg
	EmitNode
	EmitNodeXForm
	CompleteMatch
	MorphNodeTo

	// Unknown preserves any kind integer the loader doesn't recognize, for
	// forward compatibility with newer backend-generated tables.
	Unknown Kind = 1000 + iota

	// Synthetic kinds. These never appear in the JSON's "kind" field;
	// they're inferred from matcher nesting at load time.
	Subscope
	SwitchOpcodeCase
	SwitchTypeCase
)

var kindNames = map[Kind]string{
	Scope:                   "Scope",
	RecordNode:              "RecordNode",
	RecordChild:             "RecordChild",
	RecordMemRef:            "RecordMemRef",
	CaptureGlueInput:        "CaptureGlueInput",
	MoveChild:               "MoveChild",
	MoveParent:              "MoveParent",
	CheckSame:               "CheckSame",
	CheckChildSame:          "CheckChildSame",
	CheckPatternPredicate:   "CheckPatternPredicate",
	CheckPredicate:          "CheckPredicate",
	CheckOpcode:             "CheckOpcode",
	SwitchOpcode:            "SwitchOpcode",
	CheckType:               "CheckType",
	SwitchType:              "SwitchType",
	CheckChildType:          "CheckChildType",
	CheckInteger:            "CheckInteger",
	CheckChildInteger:       "CheckChildInteger",
	CheckCondCode:           "CheckCondCode",
	CheckChild2CondCode:     "CheckChild2CondCode",
	CheckValueType:          "CheckValueType",
	CheckComplexPat:         "CheckComplexPat",
	CheckAndImm:             "CheckAndImm",
	CheckOrImm:              "CheckOrImm",
	CheckImmAllOnesV:        "CheckImmAllOnesV",
	CheckImmAllZerosV:       "CheckImmAllZerosV",
	CheckFoldableChainNode:  "CheckFoldableChainNode",
	EmitInteger:             "EmitInteger",
	EmitStringInteger:       "EmitStringInteger",
	EmitRegister:            "EmitRegister",
	EmitConvertToTarget:     "EmitConvertToTarget",
	EmitMergeInputChains:    "EmitMergeInputChains",
	EmitCopyToReg:           "EmitCopyToReg",
	EmitNode:                "EmitNode",
	EmitNodeXForm:           "EmitNodeXForm",
	CompleteMatch:           "CompleteMatch",
	MorphNodeTo:             "MorphNodeTo",
	Unknown:                 "Unknown",
	Subscope:                "Subscope",
	SwitchOpcodeCase:        "SwitchOpcodeCase",
	SwitchTypeCase:          "SwitchTypeCase",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "Unknown"
}

// IsLeaf reports whether k has no children. The non-leaf kinds are Scope,
// Subscope, SwitchOpcode, SwitchType, the two case kinds, and the
// not-yet-inferred pendingKind.
func (k Kind) IsLeaf() bool {
	switch k {
	case Scope, Subscope, SwitchOpcode, SwitchType, SwitchOpcodeCase, SwitchTypeCase, pendingKind:
		return false
	default:
		return true
	}
}

// Fallible reports whether a failed check of this kind can prevent a
// Subscope from matching. This is the set the "does this subscope always
// match" inference uses. The set is fixed by the switch below; callers
// cannot add kinds to it at run time.
func (k Kind) Fallible() bool {
	switch k {
	case CheckSame, CheckChildSame, CheckPredicate, CheckType, CheckChildType,
		CheckInteger, CheckChildInteger, CheckCondCode, CheckChild2CondCode,
		CheckValueType, CheckAndImm, CheckOrImm, CheckImmAllOnesV,
		CheckImmAllZerosV, CheckFoldableChainNode:
		return true
	default:
		return false
	}
}

// HasPattern reports whether this kind carries a pattern-index payload.
func (k Kind) HasPattern() bool {
	return k == CompleteMatch || k == MorphNodeTo
}

// IncrementsDepth reports whether entering a matcher of this kind should
// increment the blame-analysis nesting depth counter: only Scope/Subscope
// parents count, Switch* cases do not.
func (k Kind) IncrementsDepth() bool {
	return k == Scope || k == Subscope
}
