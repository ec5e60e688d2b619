package casedef

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/carbocation/pfx"
)

// Parse reads an annotated case-definition file (the output of Annotate) and
// builds the rule set. Consecutive lines accumulate into the active case; a
// case name recurring later in the file extends the earlier definition rather
// than replacing it. Cases that specify no modes default to "all", and no
// outputs defaults to "count".
func Parse(annotated io.Reader, choices Choices) (*RuleSet, error) {
	rs := &RuleSet{Defs: make(map[string]*CaseDefinition)}
	var current *CaseDefinition

	scanner := bufio.NewScanner(annotated)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
		case line[0] == '#':
			name := CanonicalName(line[1:])
			def, exists := rs.Defs[name]
			if !exists {
				def = &CaseDefinition{
					Name:     name,
					Positive: make(map[string]struct{}),
					Negative: make(map[string]struct{}),
				}
				rs.Defs[name] = def
				rs.Order = append(rs.Order, name)
			}
			current = def
		case current == nil:
			// Stray content before the first case name; the annotator has
			// already warned about anything malformed, so just skip.
		case line[0] == '>':
			parseControl(current, strings.ToLower(line[1:]), choices)
		default:
			parseCodeLine(current, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, pfx.Err(err)
	}

	for _, def := range rs.Defs {
		if len(def.Modes) == 0 {
			def.Modes = []Mode{ModeAll}
		}
		if len(def.Outputs) == 0 {
			def.Outputs = []Output{OutputCount}
		}
	}

	return rs, nil
}

// parseControl compiles one already-validated control line into the case
// definition.
func parseControl(def *CaseDefinition, rest string, choices Choices) {
	chunks := strings.Fields(rest)
	if len(chunks) == 0 {
		return
	}

	switch chunks[0] {
	case "mode":
		for _, tok := range chunks[1:] {
			if _, ok := choices.Modes[Mode(tok)]; ok {
				def.Modes = appendMode(def.Modes, Mode(tok))
			}
		}
	case "out":
		for _, tok := range chunks[1:] {
			if _, ok := choices.Outputs[Output(tok)]; ok {
				def.Outputs = appendOutput(def.Outputs, Output(tok))
			}
		}
	case "from":
		switch len(chunks) {
		case 2:
			start, err := civil.ParseDate(chunks[1])
			if err != nil {
				return
			}
			// Open-ended restrictions run to the present day.
			def.Restrictions.Dates = append(def.Restrictions.Dates,
				DateRange{Start: start, End: civil.DateOf(time.Now())})
		case 4:
			start, errStart := civil.ParseDate(chunks[1])
			end, errEnd := civil.ParseDate(chunks[3])
			if errStart != nil || errEnd != nil {
				return
			}
			def.Restrictions.Dates = append(def.Restrictions.Dates,
				DateRange{Start: start, End: end})
		}
	case "val1", "val2":
		if len(chunks) != 3 {
			return
		}
		op := Op(chunks[1])
		if _, ok := choices.Operators[op]; !ok {
			return
		}
		ref, err := strconv.ParseFloat(chunks[2], 64)
		if err != nil {
			return
		}
		bound := ValueBound{Op: op, Ref: ref}
		if chunks[0] == "val1" {
			def.Restrictions.Val1 = append(def.Restrictions.Val1, bound)
		} else {
			def.Restrictions.Val2 = append(def.Restrictions.Val2, bound)
		}
	}
}

// parseCodeLine reads one annotated code line: sign, dot-padded code, tab,
// description.
func parseCodeLine(def *CaseDefinition, line string) {
	code := line
	if i := strings.IndexByte(code, '\t'); i >= 0 {
		code = code[:i]
	}

	negative := strings.HasPrefix(code, "-")
	code = strings.TrimPrefix(code, "-")
	code = strings.ReplaceAll(code, ".", "") // strip padding
	if code == "" {
		return
	}

	if negative {
		def.Negative[code] = struct{}{}
	} else {
		def.Positive[code] = struct{}{}
	}
}

func appendMode(modes []Mode, m Mode) []Mode {
	for _, existing := range modes {
		if existing == m {
			return modes
		}
	}
	return append(modes, m)
}

func appendOutput(outputs []Output, o Output) []Output {
	for _, existing := range outputs {
		if existing == o {
			return outputs
		}
	}
	return append(outputs, o)
}
