// Package extract evaluates a rule set against patient medical records:
// restriction filtering, selection modes, output projections and the driver
// that writes the extraction TSV.
package extract

import (
	"github.com/emrtools/caseextract/casedef"
	"github.com/emrtools/caseextract/history"
)

// ApplyRestrictions returns a new record holding only the occurrences that
// satisfy every restriction. Codes left with no occurrences are dropped; the
// source record is not modified.
func ApplyRestrictions(rec history.Record, r casedef.Restrictions) history.Record {
	out := make(history.Record, len(rec))

	for code, occurrences := range rec {
		var kept []history.Occurrence
		for _, occ := range occurrences {
			if occurrenceAllowed(occ, r) {
				kept = append(kept, occ)
			}
		}
		if len(kept) > 0 {
			out[code] = kept
		}
	}

	return out
}

func occurrenceAllowed(occ history.Occurrence, r casedef.Restrictions) bool {
	for _, dr := range r.Dates {
		if !dr.Contains(occ.Date) {
			return false
		}
	}
	for _, vb := range r.Val1 {
		if !vb.Holds(occ.Val1) {
			return false
		}
	}
	for _, vb := range r.Val2 {
		if !vb.Holds(occ.Val2) {
			return false
		}
	}
	return true
}

// Select reduces a restriction-filtered record once per mode. An empty input
// yields an empty record for every mode, which the outputters render blank.
// Every mode other than "all" reduces to a single code with a single
// occurrence; ties on the selection criterion go to the alphabetically
// earlier code so repeated runs produce identical output.
func Select(rec history.Record, modes []casedef.Mode) map[casedef.Mode]history.Record {
	selected := make(map[casedef.Mode]history.Record, len(modes))

	if len(rec) == 0 {
		for _, mode := range modes {
			selected[mode] = history.Record{}
		}
		return selected
	}

	for _, mode := range modes {
		selected[mode] = selectOne(rec, mode)
	}
	return selected
}

func selectOne(rec history.Record, mode casedef.Mode) history.Record {
	switch mode {
	case casedef.ModeAll:
		out := make(history.Record, len(rec))
		for code, occurrences := range rec {
			out[code] = occurrences
		}
		return out
	case casedef.ModeEarliest:
		return selectEarliest(rec)
	case casedef.ModeLatest:
		return selectLatest(rec)
	case casedef.ModeMax1:
		return selectExtreme(rec, val1, greater)
	case casedef.ModeMax2:
		return selectExtreme(rec, val2, greater)
	case casedef.ModeMin1:
		return selectExtreme(rec, val1, less)
	case casedef.ModeMin2:
		return selectExtreme(rec, val2, less)
	}

	// Unreachable once the annotator has validated the mode vocabulary.
	return history.Record{}
}

// selectEarliest picks the globally earliest occurrence. Each code's
// occurrence list is date-ascending, so only its first entry can win.
func selectEarliest(rec history.Record) history.Record {
	var bestCode string
	var best history.Occurrence
	for i, code := range rec.Codes() {
		candidate := rec[code][0]
		if i == 0 || candidate.Date.Before(best.Date) {
			bestCode, best = code, candidate
		}
	}
	return history.Record{bestCode: []history.Occurrence{best}}
}

// selectLatest picks the globally latest occurrence via each code's last
// entry.
func selectLatest(rec history.Record) history.Record {
	var bestCode string
	var best history.Occurrence
	for i, code := range rec.Codes() {
		occurrences := rec[code]
		candidate := occurrences[len(occurrences)-1]
		if i == 0 || candidate.Date.After(best.Date) {
			bestCode, best = code, candidate
		}
	}
	return history.Record{bestCode: []history.Occurrence{best}}
}

type valueOf func(history.Occurrence) float64

func val1(o history.Occurrence) float64 { return o.Val1 }
func val2(o history.Occurrence) float64 { return o.Val2 }

func greater(a, b float64) bool { return a > b }
func less(a, b float64) bool    { return a < b }

// selectExtreme picks the code whose extreme occurrence value is globally
// most extreme, then emits only that occurrence. Within a code, the first of
// several equally extreme occurrences (the earliest dated) wins.
func selectExtreme(rec history.Record, value valueOf, better func(a, b float64) bool) history.Record {
	var bestCode string
	var best history.Occurrence
	for i, code := range rec.Codes() {
		occurrences := rec[code]
		candidate := occurrences[0]
		for _, occ := range occurrences[1:] {
			if better(value(occ), value(candidate)) {
				candidate = occ
			}
		}
		if i == 0 || better(value(candidate), value(best)) {
			bestCode, best = code, candidate
		}
	}
	return history.Record{bestCode: []history.Occurrence{best}}
}
