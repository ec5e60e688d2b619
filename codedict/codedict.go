// Package codedict loads the clinical code dictionary: the mapping from each
// coded diagnosis/procedure/observation to its human-readable description.
// The dictionary is loaded once per run and is read-only thereafter.
package codedict

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"io/ioutil"
	"sort"
	"strings"

	"github.com/carbocation/pfx"
	"github.com/gocarina/gocsv"

	caseextract "github.com/emrtools/caseextract"
)

// NotRecognised is the sentinel description substituted for codes that are
// absent from the dictionary. Callers should log a warning when they see it,
// but the code remains usable for matching.
const NotRecognised = "Code not recognised"

type dictRow struct {
	Code        string `csv:"code"`
	Description string `csv:"description"`
}

// Dict maps each code to its description.
type Dict struct {
	descriptions map[string]string
	codes        []string // sorted, for deterministic expansion
}

// Load reads a dictionary with one code-description pair per line. The
// delimiter is nominally a tab but is sniffed, so comma-separated exports of
// the same tables load too. A line without the separator fails the load.
func Load(r io.Reader) (*Dict, error) {
	raw, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, pfx.Err(err)
	}

	delim := caseextract.DetectDelimiter(bytes.NewReader(raw))

	// Tell gocsv to use the sniffed delimiter. The dictionary files carry no
	// header row, so one is prepended to drive the field mapping.
	gocsv.SetCSVReader(func(in io.Reader) gocsv.CSVReader {
		c := csv.NewReader(in)
		c.Comma = delim
		c.LazyQuotes = true
		return c
	})

	header := fmt.Sprintf("code%cdescription\n", delim)
	rows := []*dictRow{}
	if err := gocsv.UnmarshalBytes(append([]byte(header), raw...), &rows); err != nil {
		return nil, pfx.Err(fmt.Errorf("malformed code dictionary: %v", err))
	}

	d := &Dict{descriptions: make(map[string]string, len(rows))}
	for _, row := range rows {
		code := strings.TrimSpace(row.Code)
		if code == "" {
			continue
		}
		if _, seen := d.descriptions[code]; !seen {
			d.codes = append(d.codes, code)
		}
		d.descriptions[code] = strings.TrimSpace(row.Description)
	}
	sort.Strings(d.codes)

	return d, nil
}

// Has reports whether code is present in the dictionary.
func (d *Dict) Has(code string) bool {
	_, exists := d.descriptions[code]
	return exists
}

// Describe returns the description for code, or the NotRecognised sentinel
// and false when the code is unknown.
func (d *Dict) Describe(code string) (string, bool) {
	desc, exists := d.descriptions[code]
	if !exists {
		return NotRecognised, false
	}
	return desc, true
}

// Expand returns all dictionary codes beginning with prefix, in ascending
// order. Prefix matching is a plain string comparison, not hierarchy-aware.
func (d *Dict) Expand(prefix string) []string {
	// codes is sorted, so the matches form one contiguous run.
	start := sort.SearchStrings(d.codes, prefix)

	var out []string
	for _, code := range d.codes[start:] {
		if !strings.HasPrefix(code, prefix) {
			break
		}
		out = append(out, code)
	}

	return out
}

// Len returns the number of codes in the dictionary.
func (d *Dict) Len() int {
	return len(d.codes)
}
