package casedef

import (
	"testing"

	"cloud.google.com/go/civil"
)

func TestDateRangeInclusive(t *testing.T) {
	r := DateRange{
		Start: civil.Date{Year: 2019, Month: 1, Day: 1},
		End:   civil.Date{Year: 2019, Month: 12, Day: 31},
	}

	tests := []struct {
		date civil.Date
		want bool
	}{
		{civil.Date{Year: 2018, Month: 12, Day: 31}, false},
		{civil.Date{Year: 2019, Month: 1, Day: 1}, true},
		{civil.Date{Year: 2019, Month: 6, Day: 15}, true},
		{civil.Date{Year: 2019, Month: 12, Day: 31}, true},
		{civil.Date{Year: 2020, Month: 1, Day: 1}, false},
	}

	for _, test := range tests {
		if got := r.Contains(test.date); got != test.want {
			t.Errorf("Contains(%s): expected %t, got %t", test.date, test.want, got)
		}
	}
}

func TestValueBoundHolds(t *testing.T) {
	tests := []struct {
		op   Op
		ref  float64
		v    float64
		want bool
	}{
		{OpLT, 5, 4.9, true},
		{OpLT, 5, 5, false},
		{OpLE, 5, 5, true},
		{OpLE, 5, 5.1, false},
		{OpGT, 5, 5.1, true},
		{OpGT, 5, 5, false},
		{OpGE, 5, 5, true},
		{OpGE, 5, 4.9, false},
	}

	for _, test := range tests {
		b := ValueBound{Op: test.op, Ref: test.ref}
		if got := b.Holds(test.v); got != test.want {
			t.Errorf("%f %s %f: expected %t, got %t", test.v, test.op, test.ref, test.want, got)
		}
	}
}

func TestOpMirror(t *testing.T) {
	tests := []struct {
		op   Op
		want Op
	}{
		{OpLT, OpGT},
		{OpLE, OpGE},
		{OpGT, OpLT},
		{OpGE, OpLE},
	}

	for _, test := range tests {
		if got := test.op.mirror(); got != test.want {
			t.Errorf("mirror(%s): expected %s, got %s", test.op, test.want, got)
		}
	}
}

func TestRestrictionsEmpty(t *testing.T) {
	var r Restrictions
	if !r.Empty() {
		t.Error("expected a zero Restrictions to be empty")
	}

	r.Val1 = append(r.Val1, ValueBound{Op: OpLT, Ref: 1})
	if r.Empty() {
		t.Error("expected a populated Restrictions to be non-empty")
	}
}
