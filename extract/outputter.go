package extract

import (
	"fmt"

	"github.com/montanaflynn/stats"

	"github.com/emrtools/caseextract/casedef"
	"github.com/emrtools/caseextract/history"
)

// Output projects a selected record onto one scalar output column. Every
// projection tolerates an empty record: count and exists emit "0", everything
// else emits the empty string. "Arbitrary" projections (code, date, valN) use
// the smallest code key so output is reproducible even when the "all" mode
// leaves several codes in the record.
func Output(rec history.Record, out casedef.Output) string {
	switch out {
	case casedef.OutputCode:
		if len(rec) == 0 {
			return ""
		}
		return rec.Codes()[0]

	case casedef.OutputCount:
		count := 0
		for _, occurrences := range rec {
			count += len(occurrences)
		}
		return fmt.Sprintf("%d", count)

	case casedef.OutputDate:
		if len(rec) == 0 {
			return ""
		}
		return rec[rec.Codes()[0]][0].Date.String()

	case casedef.OutputExists:
		if len(rec) == 0 {
			return "0"
		}
		return "1"

	case casedef.OutputVal1:
		return firstValue(rec, val1)
	case casedef.OutputVal2:
		return firstValue(rec, val2)

	case casedef.OutputMax1:
		return aggregate(rec, val1, stats.Max)
	case casedef.OutputMax2:
		return aggregate(rec, val2, stats.Max)
	case casedef.OutputMin1:
		return aggregate(rec, val1, stats.Min)
	case casedef.OutputMin2:
		return aggregate(rec, val2, stats.Min)
	case casedef.OutputMean1:
		return aggregate(rec, val1, stats.Mean)
	case casedef.OutputMean2:
		return aggregate(rec, val2, stats.Mean)
	case casedef.OutputMedian1:
		return aggregate(rec, val1, stats.Median)
	case casedef.OutputMedian2:
		return aggregate(rec, val2, stats.Median)
	}

	// Unreachable once the annotator has validated the output vocabulary.
	return ""
}

// firstValue emits the value field of the smallest code's earliest
// occurrence.
func firstValue(rec history.Record, value valueOf) string {
	if len(rec) == 0 {
		return ""
	}
	return fmt.Sprintf("%.2f", value(rec[rec.Codes()[0]][0]))
}

// aggregate runs one statistic over the chosen value field of every
// occurrence across all codes in the record.
func aggregate(rec history.Record, value valueOf, stat func(stats.Float64Data) (float64, error)) string {
	var values []float64
	for _, code := range rec.Codes() {
		for _, occ := range rec[code] {
			values = append(values, value(occ))
		}
	}
	if len(values) == 0 {
		return ""
	}

	result, err := stat(values)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%.2f", result)
}
