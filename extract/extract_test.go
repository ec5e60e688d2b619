package extract

import (
	"strings"
	"testing"

	"github.com/emrtools/caseextract/casedef"
)

const testDefinitions = `#CAD
>mode earliest
>out date count
C10..	Coronary disease

#Recent
>out date
>from 2020-01-01 to 2021-12-31
C10..	Coronary disease

#Untreated
>out exists
C10..	Coronary disease
-T20..	Transplant
`

const testPatients = `P1	{"C10":[{"Date":"2019-05-05","Val1":1,"Val2":0,"Text":""},{"Date":"2020-01-01","Val1":2,"Val2":0,"Text":""}]}
P2	{"X99":[{"Date":"2018-01-01","Val1":0,"Val2":0,"Text":""}]}
P3	{"C10":[{"Date":"2020-06-06","Val1":3,"Val2":0,"Text":""}],"T20":[{"Date":"2021-01-01","Val1":0,"Val2":0,"Text":""}]}
`

func testRules(t *testing.T) *casedef.RuleSet {
	t.Helper()

	rules, err := casedef.Parse(strings.NewReader(testDefinitions), casedef.DefaultChoices())
	if err != nil {
		t.Fatal(err)
	}
	return rules
}

func TestHeader(t *testing.T) {
	header := New(testRules(t)).Header()

	want := []string{
		"PatientID",
		"CAD__MODE-earliest__OUT-date",
		"CAD__MODE-earliest__OUT-count",
		"Recent__MODE-all__OUT-date",
		"Untreated__MODE-all__OUT-exists",
	}

	if len(header) != len(want) {
		t.Fatalf("expected %d columns, got %d: %v", len(want), len(header), header)
	}
	for i := range want {
		if header[i] != want[i] {
			t.Errorf("column %d: expected %q, got %q", i, want[i], header[i])
		}
	}
}

func TestRun(t *testing.T) {
	var out strings.Builder
	if err := New(testRules(t)).Run(strings.NewReader(testPatients), nil, &out); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected a header plus 3 patients, got %d lines:\n%s", len(lines), out.String())
	}

	want := map[string]string{
		// Earliest qualifying occurrence is 2019-05-05; the date window keeps
		// only the 2020 occurrence; no transplant code, so Untreated fires.
		"P1": "P1\t2019-05-05\t1\t2020-01-01\t1",
		// No positive code at all: every case's columns stay blank.
		"P2": "P2\t\t\t\t",
		// The transplant code vetoes Untreated but not the other cases.
		"P3": "P3\t2020-06-06\t1\t2020-06-06\t",
	}

	for _, line := range lines[1:] {
		id := line[:strings.IndexByte(line, '\t')]
		if line != want[id] {
			t.Errorf("patient %s: expected %q, got %q", id, want[id], line)
		}
	}
}

func TestRunSubset(t *testing.T) {
	subset := map[string]struct{}{"P2": {}}

	var out strings.Builder
	if err := New(testRules(t)).Run(strings.NewReader(testPatients), subset, &out); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected a header plus 1 patient, got %d lines:\n%s", len(lines), out.String())
	}
	if !strings.HasPrefix(lines[1], "P2\t") {
		t.Errorf("expected only P2, got %q", lines[1])
	}
}

func TestRunSkipsMalformedLines(t *testing.T) {
	patients := "garbage-without-a-tab\nP1\t{\"C10\":[{\"Date\":\"2019-05-05\",\"Val1\":1,\"Val2\":0,\"Text\":\"\"}]}\n"

	var out strings.Builder
	if err := New(testRules(t)).Run(strings.NewReader(patients), nil, &out); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected the malformed line to be skipped, got %d lines:\n%s", len(lines), out.String())
	}
}
