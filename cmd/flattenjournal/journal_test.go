package main

import (
	"strings"
	"testing"
)

func TestSplitQuoted(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"a,b,c", []string{"a", "b", "c"}},
		{"'a,b',c", []string{"a,b", "c"}},
		{`"x",'y,z',w`, []string{"x", "y,z", "w"}},
		{"a,,c", []string{"a", "", "c"}},
	}

	for _, test := range tests {
		got := splitQuoted(test.in)
		if len(got) != len(test.want) {
			t.Errorf("splitQuoted(%q): expected %v, got %v", test.in, test.want, got)
			continue
		}
		for i := range test.want {
			if got[i] != test.want[i] {
				t.Errorf("splitQuoted(%q)[%d]: expected %q, got %q", test.in, i, test.want[i], got[i])
			}
		}
	}
}

func TestParseInsert(t *testing.T) {
	line := `INSERT INTO journal VALUES ('P1','C10,flag','2020-01-02','1.5','','Some text');`

	entry, ok, err := parseInsert(line)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected the insert to be recognized")
	}

	if entry.PatientID != "P1" {
		t.Errorf("expected patient P1, got %q", entry.PatientID)
	}
	if entry.Code != "C10" {
		t.Errorf("expected code C10, got %q", entry.Code)
	}
	if entry.Date.String() != "2020-01-02" {
		t.Errorf("expected date 2020-01-02, got %s", entry.Date)
	}
	if entry.Val1 != 1.5 || entry.Val2 != 0 {
		t.Errorf("expected values (1.5, 0), got (%f, %f)", entry.Val1, entry.Val2)
	}
	if entry.Text != "Some text" {
		t.Errorf("expected text %q, got %q", "Some text", entry.Text)
	}
}

func TestParseInsertNullText(t *testing.T) {
	entry, ok, err := parseInsert(`insert into journal values ('P1','C10','2020-01-02','','','null');`)
	if err != nil || !ok {
		t.Fatalf("expected a clean parse, got ok=%t err=%v", ok, err)
	}
	if entry.Text != "" {
		t.Errorf("expected null text to become empty, got %q", entry.Text)
	}
}

func TestParseInsertSkipsNonInserts(t *testing.T) {
	for _, line := range []string{
		"CREATE TABLE journal (id int);",
		"-- comment",
		"",
	} {
		if _, ok, err := parseInsert(line); ok || err != nil {
			t.Errorf("parseInsert(%q): expected (false, nil), got ok=%t err=%v", line, ok, err)
		}
	}
}

func TestParseInsertBadDate(t *testing.T) {
	if _, _, err := parseInsert(`INSERT INTO journal VALUES ('P1','C10','not-a-date','','','');`); err == nil {
		t.Error("expected an error for an unparseable date")
	}
}

func TestFlatten(t *testing.T) {
	journal := `INSERT INTO journal VALUES ('P1','C10','2020-03-04','1','2','first');
INSERT INTO journal VALUES ('P1','C10','2019-01-01','3','4','earlier');
INSERT INTO journal VALUES ('P1','T20','2021-05-06','','','');
INSERT INTO journal VALUES ('P2','C10','2018-07-08','','','');
`

	var out strings.Builder
	codeIndex, patients, err := flatten(strings.NewReader(journal), &out)
	if err != nil {
		t.Fatal(err)
	}

	if patients != 2 {
		t.Errorf("expected 2 patients, got %d", patients)
	}

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 store lines, got %d:\n%s", len(lines), out.String())
	}

	// Occurrences come out date-ascending regardless of dump order.
	wantP1 := `P1	{"C10":[{"Date":"2019-01-01","Val1":3,"Val2":4,"Text":"earlier"},{"Date":"2020-03-04","Val1":1,"Val2":2,"Text":"first"}],"T20":[{"Date":"2021-05-06","Val1":0,"Val2":0,"Text":""}]}`
	if lines[0] != wantP1 {
		t.Errorf("expected:\n%s\ngot:\n%s", wantP1, lines[0])
	}

	if len(codeIndex) != 2 {
		t.Fatalf("expected 2 indexed codes, got %v", codeIndex)
	}
	if _, ok := codeIndex["C10"]["P2"]; !ok {
		t.Error("expected P2 indexed under C10")
	}
	if _, ok := codeIndex["T20"]["P1"]; !ok {
		t.Error("expected P1 indexed under T20")
	}
}

func TestWriteCodeIndex(t *testing.T) {
	codeIndex := map[string]map[string]struct{}{
		"T20": {"P3": {}, "P1": {}},
		"C10": {"P2": {}},
	}

	var out strings.Builder
	if err := writeCodeIndex(codeIndex, &out); err != nil {
		t.Fatal(err)
	}

	want := "C10\tP2\nT20\tP1,P3\n"
	if out.String() != want {
		t.Errorf("expected:\n%s\ngot:\n%s", want, out.String())
	}
}
