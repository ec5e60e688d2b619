// Package casedef implements the case-definition grammar: annotating a raw
// definition file against the code dictionary, and parsing the annotated file
// into the rule set used for patient extraction.
//
// A case definition names a clinical condition and lists the codes that
// indicate it (positively or negatively), restrictions on which code
// occurrences count, the selection modes that choose representative
// occurrences, and the output projections to emit per mode.
package casedef

import (
	"strings"
)

// Mode selects which qualifying occurrence(s) represent a patient's history
// for a case.
type Mode string

const (
	ModeAll      Mode = "all"
	ModeEarliest Mode = "earliest"
	ModeLatest   Mode = "latest"
	ModeMax1     Mode = "max1"
	ModeMax2     Mode = "max2"
	ModeMin1     Mode = "min1"
	ModeMin2     Mode = "min2"
)

// Output projects a selected occurrence set onto one scalar output column.
type Output string

const (
	OutputCode    Output = "code"
	OutputCount   Output = "count"
	OutputDate    Output = "date"
	OutputExists  Output = "exists"
	OutputMax1    Output = "max1"
	OutputMax2    Output = "max2"
	OutputMean1   Output = "mean1"
	OutputMean2   Output = "mean2"
	OutputMedian1 Output = "median1"
	OutputMedian2 Output = "median2"
	OutputMin1    Output = "min1"
	OutputMin2    Output = "min2"
	OutputVal1    Output = "val1"
	OutputVal2    Output = "val2"
)

// Choices is the immutable vocabulary of recognized modes, outputs and
// operators. It is constructed once and passed explicitly into the annotator
// and parser rather than living in mutable package state.
type Choices struct {
	Modes     map[Mode]struct{}
	Outputs   map[Output]struct{}
	Operators map[Op]struct{}
}

// DefaultChoices returns the full vocabulary.
func DefaultChoices() Choices {
	return Choices{
		Modes: map[Mode]struct{}{
			ModeAll: {}, ModeEarliest: {}, ModeLatest: {},
			ModeMax1: {}, ModeMax2: {}, ModeMin1: {}, ModeMin2: {},
		},
		Outputs: map[Output]struct{}{
			OutputCode: {}, OutputCount: {}, OutputDate: {}, OutputExists: {},
			OutputMax1: {}, OutputMax2: {}, OutputMean1: {}, OutputMean2: {},
			OutputMedian1: {}, OutputMedian2: {}, OutputMin1: {}, OutputMin2: {},
			OutputVal1: {}, OutputVal2: {},
		},
		Operators: map[Op]struct{}{
			OpLT: {}, OpLE: {}, OpGT: {}, OpGE: {},
		},
	}
}

// CaseDefinition is one named rule: which codes indicate the condition, which
// rule it out, and how qualifying occurrences are selected and projected.
type CaseDefinition struct {
	Name         string
	Positive     map[string]struct{}
	Negative     map[string]struct{}
	Modes        []Mode
	Outputs      []Output
	Restrictions Restrictions
}

// RuleSet holds every parsed case definition, with Order preserving the
// first-appearance order from the source file (which fixes the output column
// order).
type RuleSet struct {
	Order []string
	Defs  map[string]*CaseDefinition
}

// CanonicalName collapses whitespace runs in a raw case name and replaces the
// remaining spaces with underscores.
func CanonicalName(raw string) string {
	return strings.Join(strings.Fields(raw), "_")
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
