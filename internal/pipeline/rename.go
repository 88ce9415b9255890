// Package pipeline implements the row-filtering state machine that turns a
// raw scored-response table into analysis-ready partitions: role-column
// standardization, flag/label/feature/candidate filtering with an explicit
// excluded-rows accumulator, and the final dataset assembly.
package pipeline

import (
	"fmt"

	"scoreprep/domain/table"
)

// Canonical column names the pipeline standardizes onto
const (
	ColumnID        = "spkitemid"
	ColumnLabel     = "sc1"
	ColumnSecond    = "sc2"
	ColumnLength    = "length"
	ColumnSystem    = "raw"
	ColumnCandidate = "candidate"
)

// ReasonColumn tags every excluded row with the stage that removed it
const ReasonColumn = "exclusion_reason"

// Exclusion reasons recorded in the excluded-rows table
const (
	ReasonFlag           = "flag"
	ReasonLabel          = "label"
	ReasonFeature        = "feature"
	ReasonCandidateCount = "candidate-count"
)

var canonicalNames = []string{ColumnID, ColumnLabel, ColumnSecond, ColumnLength, ColumnSystem, ColumnCandidate}

// Alias renders the bracketed name a colliding column is relocated to
func Alias(name string) string {
	return fmt.Sprintf("##%s##", name)
}

// RenameDefaultColumns standardizes the configured role columns onto the
// canonical names. Any pre-existing column whose name equals a canonical
// name, but is neither filling that role nor a requested feature, is first
// relocated to a bracketed alias so the canonical rename cannot silently
// overwrite it. Empty source names mean the role is unused.
func RenameDefaultColumns(tbl *table.Table, requestedFeatures []string,
	idColumn, labelColumn, secondColumn, lengthColumn, systemColumn, candidateColumn string) {

	sources := []string{idColumn, labelColumn, secondColumn, lengthColumn, systemColumn, candidateColumn}

	nameMapping := map[string]string{}
	for i, source := range sources {
		if source != "" {
			nameMapping[source] = canonicalNames[i]
		}
	}

	// role columns already carrying their canonical name stay untouched
	correctlyNamed := map[string]bool{}
	for source, canonical := range nameMapping {
		if source == canonical {
			correctlyNamed[source] = true
		}
	}

	isRequestedFeature := map[string]bool{}
	for _, name := range requestedFeatures {
		isRequestedFeature[name] = true
	}

	// relocate columns squatting on canonical names they do not own
	relocated := map[string]bool{}
	aliasMapping := map[string]string{}
	for _, column := range tbl.Columns {
		if !isCanonical(column) || correctlyNamed[column] || isRequestedFeature[column] {
			continue
		}
		aliasMapping[column] = Alias(column)
		relocated[column] = true
	}
	tbl.RenameColumns(aliasMapping)

	// rename each custom-named role column to its canonical target, chasing
	// the alias if the source was itself just relocated
	for source, canonical := range nameMapping {
		if correctlyNamed[source] {
			continue
		}
		if relocated[source] {
			tbl.RenameColumns(map[string]string{Alias(source): canonical})
		} else {
			tbl.RenameColumns(map[string]string{source: canonical})
		}
	}
}

func isCanonical(name string) bool {
	for _, c := range canonicalNames {
		if c == name {
			return true
		}
	}
	return false
}
