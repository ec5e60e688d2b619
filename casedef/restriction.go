package casedef

import (
	"cloud.google.com/go/civil"
)

// Op is a value-restriction comparison operator. The tested value is always
// the left operand; the annotator canonicalizes numeric-first restrictions so
// this holds by the time an Op is compiled.
type Op string

const (
	OpLT Op = "<"
	OpLE Op = "<="
	OpGT Op = ">"
	OpGE Op = ">="
)

// mirror returns the operator as seen from the other side of the comparison,
// swapping '<' and '>' character-wise (so "<=" becomes ">=").
func (o Op) mirror() Op {
	out := make([]byte, len(o))
	for i := 0; i < len(o); i++ {
		switch o[i] {
		case '<':
			out[i] = '>'
		case '>':
			out[i] = '<'
		default:
			out[i] = o[i]
		}
	}
	return Op(out)
}

// DateRange keeps occurrences whose date falls between Start and End,
// inclusive at both ends.
type DateRange struct {
	Start civil.Date
	End   civil.Date
}

func (r DateRange) Contains(d civil.Date) bool {
	return !d.Before(r.Start) && !d.After(r.End)
}

// ValueBound keeps occurrences whose value satisfies `value Op Ref`.
type ValueBound struct {
	Op  Op
	Ref float64
}

func (b ValueBound) Holds(v float64) bool {
	switch b.Op {
	case OpLT:
		return v < b.Ref
	case OpLE:
		return v <= b.Ref
	case OpGT:
		return v > b.Ref
	case OpGE:
		return v >= b.Ref
	}
	return false
}

// Restrictions collects every restriction a case definition places on an
// occurrence. An occurrence must satisfy all of them to survive filtering.
type Restrictions struct {
	Dates []DateRange
	Val1  []ValueBound
	Val2  []ValueBound
}

// Empty reports whether no restrictions are present.
func (r Restrictions) Empty() bool {
	return len(r.Dates) == 0 && len(r.Val1) == 0 && len(r.Val2) == 0
}
