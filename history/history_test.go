package history

import (
	"strings"
	"testing"
)

func TestParseLine(t *testing.T) {
	line := `P123	{"C10":[{"Date":"2019-05-05","Val1":1.5,"Val2":0,"Text":"note"},{"Date":"2020-01-01","Val1":2,"Val2":3,"Text":""}],"X99":[{"Date":"2018-12-31","Val1":0,"Val2":0,"Text":""}]}`

	id, rec, err := ParseLine(line)
	if err != nil {
		t.Fatal(err)
	}

	if id != "P123" {
		t.Errorf("expected patient P123, got %s", id)
	}
	if len(rec) != 2 {
		t.Fatalf("expected 2 codes, got %d", len(rec))
	}
	if len(rec["C10"]) != 2 {
		t.Fatalf("expected 2 occurrences of C10, got %d", len(rec["C10"]))
	}

	first := rec["C10"][0]
	if first.Date.String() != "2019-05-05" {
		t.Errorf("expected date 2019-05-05, got %s", first.Date)
	}
	if first.Val1 != 1.5 {
		t.Errorf("expected Val1 1.5, got %f", first.Val1)
	}
	if first.Text != "note" {
		t.Errorf("expected text %q, got %q", "note", first.Text)
	}
}

func TestParseLineMalformed(t *testing.T) {
	if _, _, err := ParseLine("P123-no-tab-separator"); err == nil {
		t.Error("expected an error for a line without a tab")
	}

	if _, _, err := ParseLine("P123\tnot-json"); err == nil {
		t.Error("expected an error for an unparseable record")
	}
}

func TestCodesSorted(t *testing.T) {
	rec := Record{
		"Z9": nil,
		"A1": nil,
		"M5": nil,
	}

	codes := rec.Codes()
	if len(codes) != 3 || codes[0] != "A1" || codes[1] != "M5" || codes[2] != "Z9" {
		t.Errorf("expected [A1 M5 Z9], got %v", codes)
	}
}

func TestLoadSubset(t *testing.T) {
	subset, err := LoadSubset(strings.NewReader("P1\n\n  P2  \nP3\n"))
	if err != nil {
		t.Fatal(err)
	}

	if len(subset) != 3 {
		t.Fatalf("expected 3 patients, got %d", len(subset))
	}
	for _, id := range []string{"P1", "P2", "P3"} {
		if _, ok := subset[id]; !ok {
			t.Errorf("expected %s in the subset", id)
		}
	}
}
