package casedef

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/carbocation/pfx"

	"github.com/emrtools/caseextract/codedict"
)

// Warning records a recoverable problem found while annotating. Line is
// 1-based; zero means the warning is not tied to a single line.
type Warning struct {
	Line    int
	Message string
}

func (w Warning) String() string {
	if w.Line > 0 {
		return fmt.Sprintf("line %d: %s", w.Line, w.Message)
	}
	return w.Message
}

// Correctly formatted code tokens: optional negation prefix, alphanumerics
// with embedded dots (stripped before lookup), optional expansion suffix.
var codePattern = regexp.MustCompile(`^-?[A-Za-z0-9][A-Za-z0-9.]*%?$`)

// Annotate validates a raw case-definition file and writes the annotated
// form: control lines lower-cased and canonicalized, each case's code lines
// replaced by a sorted listing of sign, dot-padded code and description.
// Malformed lines and unrecognized tokens are dropped with a warning; nothing
// in the document itself aborts annotation.
func Annotate(dict *codedict.Dict, raw io.Reader, annotated io.Writer, choices Choices) ([]Warning, error) {
	a := &annotator{
		dict:     dict,
		choices:  choices,
		out:      bufio.NewWriter(annotated),
		positive: make(map[string]struct{}),
		negative: make(map[string]struct{}),
	}

	scanner := bufio.NewScanner(raw)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		a.line(lineNum, strings.TrimSpace(scanner.Text()))
	}
	if err := scanner.Err(); err != nil {
		return a.warnings, pfx.Err(err)
	}

	// Flush the codes of the final case definition.
	a.flushCodes()

	if err := a.out.Flush(); err != nil {
		return a.warnings, pfx.Err(err)
	}
	return a.warnings, nil
}

type annotator struct {
	dict     *codedict.Dict
	choices  Choices
	out      *bufio.Writer
	warnings []Warning

	positive map[string]struct{}
	negative map[string]struct{}
}

func (a *annotator) warnf(line int, format string, args ...interface{}) {
	a.warnings = append(a.warnings, Warning{Line: line, Message: fmt.Sprintf(format, args...)})
}

func (a *annotator) writeLine(s string) {
	a.out.WriteString(s)
	a.out.WriteByte('\n')
}

func (a *annotator) line(num int, line string) {
	switch {
	case line == "":
		// Blank lines carry nothing.
	case line[0] == '#':
		// A new case definition starts; list the previous case's codes first.
		a.flushCodes()
		a.writeLine(collapseSpace(line))
	case line[0] == '>':
		a.control(num, strings.ToLower(collapseSpace(line[1:])))
	case codePattern.MatchString(line):
		a.code(line)
	default:
		a.warnf(num, "contains a non-blank line that could not be processed")
	}
}

// control validates one mode/out/restriction line. The argument has had its
// leading '>' stripped, whitespace collapsed and case lowered.
func (a *annotator) control(num int, rest string) {
	chunks := strings.Split(rest, " ")
	if rest == "" {
		a.warnf(num, "contains no control information")
		return
	}

	switch first := chunks[0]; {
	case first == "mode":
		a.modeLine(num, rest, chunks[1:])
	case first == "out":
		a.outLine(num, rest, chunks[1:])
	case first == "from":
		a.dateLine(num, rest, chunks)
	case isNumber(first):
		a.numericFirstValueLine(num, chunks)
	case first == "val1" || first == "val2":
		a.valueLine(num, rest, chunks)
	default:
		a.warnf(num, "first argument was %q, but should have been a number or one of mode, out, from, val1 or val2", first)
	}
}

func (a *annotator) modeLine(num int, rest string, tokens []string) {
	var valid, invalid []string
	for _, tok := range tokens {
		if _, ok := a.choices.Modes[Mode(tok)]; ok {
			valid = append(valid, tok)
		} else {
			invalid = append(invalid, tok)
		}
	}

	if len(invalid) == 0 {
		a.writeLine(">" + rest)
		return
	}
	a.warnf(num, "contains invalid modes [%s] that will be ignored", strings.Join(invalid, ","))
	if len(valid) > 0 {
		a.writeLine(">mode " + strings.Join(valid, " "))
	}
}

func (a *annotator) outLine(num int, rest string, tokens []string) {
	var valid, invalid []string
	for _, tok := range tokens {
		if _, ok := a.choices.Outputs[Output(tok)]; ok {
			valid = append(valid, tok)
		} else {
			invalid = append(invalid, tok)
		}
	}

	if len(invalid) == 0 {
		a.writeLine(">" + rest)
		return
	}
	a.warnf(num, "contains invalid output methods [%s] that will be ignored", strings.Join(invalid, ","))
	if len(valid) > 0 {
		a.writeLine(">out " + strings.Join(valid, " "))
	}
}

func (a *annotator) dateLine(num int, rest string, chunks []string) {
	switch len(chunks) {
	case 2:
		if _, err := civil.ParseDate(chunks[1]); err != nil {
			a.warnf(num, "is a two argument date restriction, but the second argument is %s when it should be a YYYY-MM-DD formatted date", chunks[1])
			return
		}
		a.writeLine(">" + rest)
	case 4:
		if chunks[2] != "to" {
			a.warnf(num, "has 4 arguments, but the third argument is not 'to'")
			return
		}
		start, errStart := civil.ParseDate(chunks[1])
		end, errEnd := civil.ParseDate(chunks[3])
		if errStart != nil || errEnd != nil {
			a.warnf(num, "is a four argument date restriction; the second and fourth arguments should be YYYY-MM-DD formatted dates, but were %s and %s", chunks[1], chunks[3])
			return
		}
		if end.Before(start) {
			a.warnf(num, "date restriction has an end date %q before its start date %q", chunks[3], chunks[1])
			return
		}
		a.writeLine(">" + rest)
	default:
		a.warnf(num, "contains %d arguments but date restrictions need 2 or 4", len(chunks))
	}
}

// numericFirstValueLine canonicalizes `n OP valN [OP n]` restrictions into the
// `valN OP n` form by swapping operands and mirroring the operator. A
// five-token range denotes two restrictions and is split into two lines.
func (a *annotator) numericFirstValueLine(num int, chunks []string) {
	if len(chunks) != 3 && len(chunks) != 5 {
		a.warnf(num, "contains %d values but value restrictions starting with a number should have 3 or 5", len(chunks))
		return
	}

	bad := false
	if _, ok := a.choices.Operators[Op(chunks[1])]; !ok {
		a.warnf(num, "is a value restriction beginning with a number, but the second argument is not a valid operator")
		bad = true
	}
	if chunks[2] != "val1" && chunks[2] != "val2" {
		a.warnf(num, "is a value restriction beginning with a number, but the third argument is not val1 or val2")
		bad = true
	}
	if len(chunks) == 5 {
		if _, ok := a.choices.Operators[Op(chunks[3])]; !ok {
			a.warnf(num, "is a five argument value restriction beginning with a number, but the fourth argument is not a valid operator")
			bad = true
		}
		if !isNumber(chunks[4]) {
			a.warnf(num, "is a five argument value restriction beginning with a number, but the fifth argument is not a number")
			bad = true
		}
	}
	if bad {
		return
	}

	a.writeLine(fmt.Sprintf(">%s %s %s", chunks[2], Op(chunks[1]).mirror(), chunks[0]))
	if len(chunks) == 5 {
		a.writeLine(fmt.Sprintf(">%s %s %s", chunks[2], chunks[3], chunks[4]))
	}
}

func (a *annotator) valueLine(num int, rest string, chunks []string) {
	if len(chunks) != 3 {
		a.warnf(num, "contains %d values but value restrictions starting with val1 or val2 should have 3", len(chunks))
		return
	}
	if _, ok := a.choices.Operators[Op(chunks[1])]; !ok {
		a.warnf(num, "is a value restriction beginning with %s, but the second argument is not a valid operator", chunks[0])
		return
	}
	if !isNumber(chunks[2]) {
		a.warnf(num, "is a value restriction beginning with %s, but the third argument is not a number", chunks[0])
		return
	}
	a.writeLine(">" + rest)
}

// code records one code token for the current case, expanding a trailing '%'
// against the dictionary.
func (a *annotator) code(line string) {
	code := strings.ReplaceAll(line, ".", "")

	target := a.positive
	if code[0] == '-' {
		target = a.negative
		code = code[1:]
	}

	if strings.HasSuffix(code, "%") {
		code = strings.TrimSuffix(code, "%")
		expanded := a.dict.Expand(code)
		if len(expanded) == 0 {
			// An unmatched wildcard is kept as a literal request so a
			// genuinely unknown but user-intended code is not dropped.
			expanded = []string{code}
		}
		for _, c := range expanded {
			target[c] = struct{}{}
		}
		return
	}

	target[code] = struct{}{}
}

// flushCodes writes the sorted, signed code listing for the case gathered so
// far. A code listed both positively and negatively is written once, signed
// negative, since the negative indicator wins at evaluation time.
func (a *annotator) flushCodes() {
	codes := make([]string, 0, len(a.positive)+len(a.negative))
	for code := range a.positive {
		if _, alsoNegative := a.negative[code]; !alsoNegative {
			codes = append(codes, code)
		}
	}
	for code := range a.negative {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	for _, code := range codes {
		sign := ""
		if _, isNegative := a.negative[code]; isNegative {
			sign = "-"
		}
		desc, known := a.dict.Describe(code)
		if !known {
			a.warnf(0, "code %s was not found in the dictionary", code)
		}
		a.writeLine(fmt.Sprintf("%s%s\t%s", sign, padCode(code), desc))
	}

	a.positive = make(map[string]struct{})
	a.negative = make(map[string]struct{})
}

// padCode right-pads short codes with dots to the fixed 5-character column.
func padCode(code string) string {
	if len(code) >= 5 {
		return code
	}
	return code + strings.Repeat(".", 5-len(code))
}

// isNumber accepts finite float literals only. ParseFloat also accepts inf
// and nan, which would compile into restrictions that silently reject every
// occurrence.
func isNumber(s string) bool {
	f, err := strconv.ParseFloat(s, 64)
	return err == nil && !math.IsInf(f, 0) && !math.IsNaN(f)
}
