// Package history holds patient medical records as read from the flat-file
// store: for each patient, a mapping from code to the dated occurrences of
// that code in the patient's history.
package history

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/carbocation/pfx"
)

// Occurrence is one observed association between a patient and a code. Val1
// and Val2 default to 0.0 when the source recorded nothing; zero is a valid
// and common recorded value, not a null marker.
type Occurrence struct {
	Date civil.Date `json:"Date"`
	Val1 float64    `json:"Val1"`
	Val2 float64    `json:"Val2"`
	Text string     `json:"Text"`
}

// Record maps each code in a patient's history to its occurrences. The store
// guarantees that each code's occurrences are sorted ascending by date;
// selection relies on that ordering and nothing downstream disturbs it.
type Record map[string][]Occurrence

// Codes returns the record's codes in ascending order.
func (r Record) Codes() []string {
	codes := make([]string, 0, len(r))
	for code := range r {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// ParseLine reads one line of the patient store: a patient ID, a tab, and the
// patient's record as a JSON object.
func ParseLine(line string) (string, Record, error) {
	id, blob, found := cut(line, '\t')
	if !found {
		return "", nil, pfx.Err(fmt.Errorf("patient line has no tab separator"))
	}

	rec := make(Record)
	if err := json.Unmarshal([]byte(blob), &rec); err != nil {
		return "", nil, pfx.Err(fmt.Errorf("patient %s: %v", id, err))
	}

	return id, rec, nil
}

// LoadSubset reads a patient-subset file, one patient ID per line. An empty
// file yields an empty set, which callers treat as "all patients".
func LoadSubset(r io.Reader) (map[string]struct{}, error) {
	subset := make(map[string]struct{})

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		id := strings.TrimSpace(scanner.Text())
		if id != "" {
			subset[id] = struct{}{}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, pfx.Err(err)
	}

	return subset, nil
}

func cut(s string, sep byte) (before, after string, found bool) {
	if i := strings.IndexByte(s, sep); i >= 0 {
		return s[:i], s[i+1:], true
	}
	return s, "", false
}
