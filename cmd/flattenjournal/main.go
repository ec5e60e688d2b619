// flattenjournal converts a raw journal-table dump (SQL INSERT statements,
// one coded event per statement) into the flat patient store consumed by
// caseextract, plus a code-to-patients index for cohort browsing.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/carbocation/pfx"

	caseextract "github.com/emrtools/caseextract"
	_ "github.com/emrtools/caseextract/compileinfoprint"
	"github.com/emrtools/caseextract/history"
)

const (
	patientDataFile = "FlatPatientData.tsv"
	codeIndexFile   = "PatientsWithCodes.tsv"
)

func main() {
	var journalPath string
	var outDir string

	flag.StringVar(&journalPath, "journal", "", "Path to the journal-table dump (SQL INSERT statements)")
	flag.StringVar(&outDir, "outdir", ".", "Directory to write the flat patient store and code index to")
	flag.Parse()

	if journalPath == "" {
		fmt.Fprintln(os.Stderr, "Please provide -journal")
		flag.PrintDefaults()
		os.Exit(1)
	}

	outDir = caseextract.ExpandHome(outDir)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		log.Fatalln(pfx.Err(err))
	}

	journal, err := caseextract.Open(journalPath)
	if err != nil {
		log.Fatalln("Opening journal dump:", err)
	}
	defer journal.Close()

	patientsOut, err := os.Create(filepath.Join(outDir, patientDataFile))
	if err != nil {
		log.Fatalln(pfx.Err(err))
	}
	defer patientsOut.Close()

	codeIndex, patients, err := flatten(journal, patientsOut)
	if err != nil {
		log.Fatalln("Flattening journal:", err)
	}
	log.Printf("Wrote %d patients to %s", patients, filepath.Join(outDir, patientDataFile))

	indexOut, err := os.Create(filepath.Join(outDir, codeIndexFile))
	if err != nil {
		log.Fatalln(pfx.Err(err))
	}
	defer indexOut.Close()

	if err := writeCodeIndex(codeIndex, indexOut); err != nil {
		log.Fatalln("Writing code index:", err)
	}
	log.Printf("Wrote %d codes to %s", len(codeIndex), filepath.Join(outDir, codeIndexFile))
}

// flatten streams the journal dump, grouping consecutive same-patient inserts
// into one record per patient, and writes each record as a store line. It
// returns the code-to-patients index accumulated along the way.
func flatten(journal io.Reader, out io.Writer) (map[string]map[string]struct{}, int, error) {
	w := bufio.NewWriter(out)
	codeIndex := make(map[string]map[string]struct{})

	var currentID string
	current := make(history.Record)
	patients := 0

	emit := func() error {
		if currentID == "" {
			return nil
		}
		for _, occurrences := range current {
			sort.SliceStable(occurrences, func(i, j int) bool {
				return occurrences[i].Date.Before(occurrences[j].Date)
			})
		}
		blob, err := json.Marshal(current)
		if err != nil {
			return pfx.Err(err)
		}
		if _, err := fmt.Fprintf(w, "%s\t%s\n", currentID, blob); err != nil {
			return pfx.Err(err)
		}
		patients++
		return nil
	}

	scanner := bufio.NewScanner(journal)
	scanner.Buffer(make([]byte, 1024*1024), 256*1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		entry, ok, err := parseInsert(line)
		if err != nil {
			log.Printf("Warning: skipping journal line %d: %v", lineNum, err)
			continue
		}
		if !ok || entry.Code == "" {
			continue
		}

		// The dump lists each patient's events contiguously, so a change of
		// patient ID closes out the previous record.
		if entry.PatientID != currentID {
			if err := emit(); err != nil {
				return nil, patients, err
			}
			currentID = entry.PatientID
			current = make(history.Record)
		}

		current[entry.Code] = append(current[entry.Code], entry.Occurrence)

		if codeIndex[entry.Code] == nil {
			codeIndex[entry.Code] = make(map[string]struct{})
		}
		codeIndex[entry.Code][entry.PatientID] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, patients, pfx.Err(err)
	}

	if err := emit(); err != nil {
		return nil, patients, err
	}
	if err := w.Flush(); err != nil {
		return nil, patients, pfx.Err(err)
	}

	return codeIndex, patients, nil
}

// writeCodeIndex emits one line per code: the code, a tab, and the sorted
// comma-joined IDs of the patients whose histories contain it.
func writeCodeIndex(codeIndex map[string]map[string]struct{}, out io.Writer) error {
	w := bufio.NewWriter(out)

	codes := make([]string, 0, len(codeIndex))
	for code := range codeIndex {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	for _, code := range codes {
		ids := make([]string, 0, len(codeIndex[code]))
		for id := range codeIndex[code] {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		if _, err := fmt.Fprintf(w, "%s\t%s\n", code, strings.Join(ids, ",")); err != nil {
			return pfx.Err(err)
		}
	}

	if err := w.Flush(); err != nil {
		return pfx.Err(err)
	}

	return nil
}
