// caseextract runs the full case-definition pipeline: it annotates a raw
// case-definition file against the code dictionary, parses the annotated file
// into a rule set, and evaluates every patient in the flat-file store,
// writing one TSV row per patient.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/carbocation/pfx"

	caseextract "github.com/emrtools/caseextract"
	"github.com/emrtools/caseextract/casedef"
	"github.com/emrtools/caseextract/codedict"
	_ "github.com/emrtools/caseextract/compileinfoprint"
	"github.com/emrtools/caseextract/extract"
	"github.com/emrtools/caseextract/history"
)

// Output file written into -outdir, alongside the annotated definitions.
const extractionFile = "DataExtraction.tsv"

func main() {
	var definitionsPath string
	var codesPath string
	var patientsPath string
	var subsetPath string
	var outDir string

	flag.StringVar(&definitionsPath, "definitions", "", "Path to the raw case-definition file")
	flag.StringVar(&codesPath, "codes", "", "Path to the tab-separated code-description dictionary")
	flag.StringVar(&patientsPath, "patients", "", "Path to the flat patient store (patientID<TAB>JSON record per line)")
	flag.StringVar(&subsetPath, "subset", "", "Optional path to a file of patient IDs, one per line, restricting the extraction")
	flag.StringVar(&outDir, "outdir", ".", "Directory to write the annotated definitions and extraction TSV to")
	flag.Parse()

	if definitionsPath == "" || codesPath == "" || patientsPath == "" {
		fmt.Fprintln(os.Stderr, "Please provide -definitions, -codes, and -patients")
		flag.PrintDefaults()
		os.Exit(1)
	}

	outDir = caseextract.ExpandHome(outDir)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		log.Fatalln(pfx.Err(err))
	}

	// Load the code dictionary.
	dict, err := loadDict(codesPath)
	if err != nil {
		log.Fatalln("Loading code dictionary:", err)
	}
	log.Printf("Loaded %d code descriptions", dict.Len())

	// Annotate the case definitions.
	annotatedPath := filepath.Join(outDir, annotatedName(definitionsPath))
	warnings, err := annotate(dict, definitionsPath, annotatedPath)
	if err != nil {
		log.Fatalln("Annotating case definitions:", err)
	}
	for _, w := range warnings {
		log.Println("Warning:", w)
	}
	log.Println("Wrote annotated case definitions to", annotatedPath)

	// Parse the annotated definitions into the rule set.
	rules, err := parseRules(annotatedPath)
	if err != nil {
		log.Fatalln("Parsing annotated case definitions:", err)
	}
	if len(rules.Order) == 0 {
		log.Fatalln("No case definitions found in", definitionsPath)
	}
	log.Printf("Parsed %d case definitions: %s", len(rules.Order), strings.Join(rules.Order, ", "))

	// Load the optional patient subset.
	subset, err := loadSubset(subsetPath)
	if err != nil {
		log.Fatalln("Loading patient subset:", err)
	}
	if len(subset) > 0 {
		log.Printf("Restricting extraction to %d patients", len(subset))
	}

	// Run the extraction.
	patients, err := caseextract.Open(patientsPath)
	if err != nil {
		log.Fatalln("Opening patient store:", err)
	}
	defer patients.Close()

	outPath := filepath.Join(outDir, extractionFile)
	out, err := os.Create(outPath)
	if err != nil {
		log.Fatalln(pfx.Err(err))
	}
	defer out.Close()

	if err := extract.New(rules).Run(patients, subset, out); err != nil {
		log.Fatalln("Extraction failed:", err)
	}
	log.Println("Wrote extraction to", outPath)
}

func loadDict(path string) (*codedict.Dict, error) {
	f, err := caseextract.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return codedict.Load(f)
}

func annotate(dict *codedict.Dict, rawPath, annotatedPath string) ([]casedef.Warning, error) {
	raw, err := caseextract.Open(rawPath)
	if err != nil {
		return nil, err
	}
	defer raw.Close()

	annotated, err := os.Create(annotatedPath)
	if err != nil {
		return nil, pfx.Err(err)
	}
	defer annotated.Close()

	return casedef.Annotate(dict, raw, annotated, casedef.DefaultChoices())
}

func parseRules(annotatedPath string) (*casedef.RuleSet, error) {
	f, err := os.Open(annotatedPath)
	if err != nil {
		return nil, pfx.Err(err)
	}
	defer f.Close()

	return casedef.Parse(f, casedef.DefaultChoices())
}

func loadSubset(path string) (map[string]struct{}, error) {
	if path == "" {
		return nil, nil
	}

	f, err := caseextract.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return history.LoadSubset(f)
}

// annotatedName derives the annotated file's name from the raw definition
// file's: CaseDefinitions.txt becomes CaseDefinitions_Annotated.txt.
func annotatedName(rawPath string) string {
	base := filepath.Base(rawPath)
	ext := filepath.Ext(base)
	return strings.TrimSuffix(base, ext) + "_Annotated" + ext
}
