package pipeline

import (
	"scoreprep/domain/table"
)

// Assemble slices the surviving rows into disjoint projections: features and
// label for modeling, metadata (subgroups, candidate), length, secondary
// human score, and everything left over. Each column is claimed by at most
// one projection; spkitemid keys them all.
func Assemble(filtered table.Table, featureNames, subgroups []string,
	candidateColumn, lengthColumn, secondColumn string, excludeZeroScores bool) *Dataset {

	claimed := map[string]bool{ColumnID: true}

	featureColumns := append([]string{ColumnID, ColumnLabel}, featureNames...)
	features := filtered.Select(featureColumns...)
	for _, c := range featureColumns {
		claimed[c] = true
	}

	metadataColumns := append([]string{ColumnID}, subgroups...)
	if candidateColumn != "" {
		metadataColumns = append(metadataColumns, ColumnCandidate)
	}
	metadata := filtered.Select(metadataColumns...)
	for _, c := range metadataColumns {
		claimed[c] = true
	}

	var length table.Table
	if lengthColumn != "" && filtered.HasColumn(ColumnLength) {
		length = filtered.Select(ColumnID, ColumnLength)
		claimed[ColumnLength] = true
	}

	var humanScores table.Table
	if secondColumn != "" && filtered.HasColumn(ColumnSecond) {
		humanScores = filtered.Select(ColumnID, ColumnLabel, ColumnSecond)
		claimed[ColumnSecond] = true
		// the second score is advisory: non-numeric values become blanks
		// instead of excluding rows, and zeros are blanked when zero
		// exclusion is configured
		for _, r := range humanScores.Rows {
			v, ok := table.ParseNumeric(r[ColumnSecond])
			switch {
			case !ok:
				r[ColumnSecond] = ""
			case excludeZeroScores && v == 0:
				r[ColumnSecond] = ""
			default:
				r[ColumnSecond] = table.FormatNumeric(v)
			}
		}
	}

	otherColumns := []string{ColumnID}
	for _, c := range filtered.Columns {
		if !claimed[c] {
			otherColumns = append(otherColumns, c)
		}
	}
	other := filtered.Select(otherColumns...)

	return &Dataset{
		Features:    features,
		Metadata:    metadata,
		Other:       other,
		Length:      length,
		HumanScores: humanScores,
	}
}
