package main

import (
	"fmt"
	"strconv"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/araddon/dateparse"

	"github.com/emrtools/caseextract/history"
)

// journalEntry is one coded event pulled out of a journal INSERT statement,
// before it is grouped into a patient record.
type journalEntry struct {
	PatientID string
	Code      string
	history.Occurrence
}

// parseInsert extracts one journal entry from an INSERT statement. Lines that
// are not inserts yield ok=false without error; inserts whose fields cannot be
// interpreted yield an error so the caller can warn and move on.
func parseInsert(line string) (journalEntry, bool, error) {
	var entry journalEntry

	lowered := strings.ToLower(line)
	if !strings.Contains(lowered, "insert") {
		return entry, false, nil
	}

	// Everything between the opening parenthesis after VALUES and the
	// closing ");" is the comma-separated field list.
	valuesAt := strings.Index(lowered, "values")
	if valuesAt < 0 {
		return entry, false, fmt.Errorf("insert statement has no VALUES clause")
	}
	open := strings.IndexByte(line[valuesAt:], '(')
	if open < 0 {
		return entry, false, fmt.Errorf("insert statement has no value list")
	}
	values := line[valuesAt+open+1:]
	values = strings.TrimSuffix(strings.TrimSpace(values), ";")
	values = strings.TrimSuffix(strings.TrimSpace(values), ")")

	fields := splitQuoted(values)
	if len(fields) < 6 {
		return entry, false, fmt.Errorf("insert statement has %d fields, want at least 6", len(fields))
	}

	entry.PatientID = strings.TrimSpace(fields[0])
	if entry.PatientID == "" {
		return entry, false, fmt.Errorf("insert statement has an empty patient ID")
	}

	// The code field may carry trailing annotations after a comma inside the
	// quoted value; only the leading token is the code itself.
	code := strings.TrimSpace(fields[1])
	if i := strings.IndexByte(code, ','); i >= 0 {
		code = code[:i]
	}
	entry.Code = code

	when, err := dateparse.ParseAny(strings.TrimSpace(fields[2]))
	if err != nil {
		return entry, false, fmt.Errorf("parsing event date %q: %v", fields[2], err)
	}
	entry.Date = civil.DateOf(when)

	if entry.Val1, err = parseValue(fields[3]); err != nil {
		return entry, false, fmt.Errorf("parsing value 1 %q: %v", fields[3], err)
	}
	if entry.Val2, err = parseValue(fields[4]); err != nil {
		return entry, false, fmt.Errorf("parsing value 2 %q: %v", fields[4], err)
	}

	if text := strings.TrimSpace(fields[5]); !strings.EqualFold(text, "null") {
		entry.Text = text
	}

	return entry, true, nil
}

// parseValue interprets a numeric journal field, treating blank and null as
// zero.
func parseValue(field string) (float64, error) {
	field = strings.TrimSpace(field)
	if field == "" || strings.EqualFold(field, "null") {
		return 0, nil
	}
	return strconv.ParseFloat(field, 64)
}

// splitQuoted splits a comma-separated field list, ignoring commas inside
// single- or double-quoted runs. The quotes themselves are dropped from the
// output.
func splitQuoted(s string) []string {
	var fields []string
	var field strings.Builder
	var quote byte

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			} else {
				field.WriteByte(c)
			}
		case c == '\'' || c == '"':
			quote = c
		case c == ',':
			fields = append(fields, field.String())
			field.Reset()
		default:
			field.WriteByte(c)
		}
	}
	fields = append(fields, field.String())

	return fields
}
