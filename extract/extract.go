package extract

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/carbocation/pfx"

	"github.com/emrtools/caseextract/casedef"
	"github.com/emrtools/caseextract/history"
)

// Extractor applies an immutable rule set to patient records, one patient at
// a time. Nothing is shared between patients beyond the rule set itself.
type Extractor struct {
	Rules *casedef.RuleSet
}

func New(rules *casedef.RuleSet) *Extractor {
	return &Extractor{Rules: rules}
}

// Header returns the output column names: PatientID followed by one column
// per (case, mode, output) triple in case-file order, then mode order, then
// output order.
func (e *Extractor) Header() []string {
	header := []string{"PatientID"}
	for _, name := range e.Rules.Order {
		def := e.Rules.Defs[name]
		for _, mode := range def.Modes {
			for _, out := range def.Outputs {
				header = append(header, fmt.Sprintf("%s__MODE-%s__OUT-%s", name, mode, out))
			}
		}
	}
	return header
}

// Row evaluates every case definition against one patient's record and
// returns the patient's output columns in header order.
func (e *Extractor) Row(patientID string, rec history.Record) []string {
	row := []string{patientID}

	for _, name := range e.Rules.Order {
		def := e.Rules.Defs[name]

		if !applies(def, rec) {
			// The case does not apply; its whole column block stays blank.
			for i := 0; i < len(def.Modes)*len(def.Outputs); i++ {
				row = append(row, "")
			}
			continue
		}

		qualifying := positiveSubset(def, rec)
		qualifying = ApplyRestrictions(qualifying, def.Restrictions)
		selected := Select(qualifying, def.Modes)

		for _, mode := range def.Modes {
			for _, out := range def.Outputs {
				row = append(row, Output(selected[mode], out))
			}
		}
	}

	return row
}

// applies implements the indicator-code gate: the patient needs at least one
// positive code, and any negative code vetoes the case outright.
func applies(def *casedef.CaseDefinition, rec history.Record) bool {
	for code := range def.Negative {
		if len(rec[code]) > 0 {
			return false
		}
	}
	for code := range def.Positive {
		if len(rec[code]) > 0 {
			return true
		}
	}
	return false
}

// positiveSubset restricts the record to occurrences of the case's positive
// indicator codes.
func positiveSubset(def *casedef.CaseDefinition, rec history.Record) history.Record {
	out := make(history.Record)
	for code := range def.Positive {
		if occurrences := rec[code]; len(occurrences) > 0 {
			out[code] = occurrences
		}
	}
	return out
}

// Run streams the patient store, evaluating each (subset-filtered) patient
// and writing the header plus one TSV row per patient. Malformed store lines
// are logged and skipped.
func (e *Extractor) Run(patients io.Reader, subset map[string]struct{}, out io.Writer) error {
	w := bufio.NewWriter(out)

	if _, err := fmt.Fprintln(w, strings.Join(e.Header(), "\t")); err != nil {
		return pfx.Err(err)
	}

	scanner := bufio.NewScanner(patients)
	scanner.Buffer(make([]byte, 1024*1024), 256*1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		patientID, rec, err := history.ParseLine(line)
		if err != nil {
			log.Printf("Warning: skipping malformed patient line %d: %v", lineNum, err)
			continue
		}

		if len(subset) > 0 {
			if _, wanted := subset[patientID]; !wanted {
				continue
			}
		}

		if _, err := fmt.Fprintln(w, strings.Join(e.Row(patientID, rec), "\t")); err != nil {
			return pfx.Err(err)
		}
	}
	if err := scanner.Err(); err != nil {
		return pfx.Err(err)
	}

	if err := w.Flush(); err != nil {
		return pfx.Err(err)
	}

	return nil
}
