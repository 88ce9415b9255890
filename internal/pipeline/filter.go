package pipeline

import (
	"math"
	"sort"
	"strings"

	"scoreprep/domain/table"
	"scoreprep/internal/errors"

	"gonum.org/v1/gonum/stat"
)

// zero-variance tolerance, matching the original pipeline's absolute
// tolerance for a zero standard deviation
const zeroSDTolerance = 1e-7

// FilterOnFlagColumns partitions rows by flag membership: a row survives only
// if, for every configured flag column, its value is in the column's allowed
// set. Missing flag columns are a schema error.
func FilterOnFlagColumns(tbl table.Table, flags map[string][]string) (table.Table, table.Table, error) {
	var missing []string
	for column := range flags {
		if !tbl.HasColumn(column) {
			missing = append(missing, column)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return table.Table{}, table.Table{}, errors.SchemaError(
			"the data does not contain the flag columns specified in the "+
				"configuration file: %s", strings.Join(missing, ", "))
	}

	kept, excluded := tbl.Partition(func(r table.Row) bool {
		for column, allowed := range flags {
			if !flagMatches(r[column], allowed) {
				return false
			}
		}
		return true
	})
	return kept, excluded, nil
}

// flagMatches compares a cell against the allowed values both literally and
// numerically, so a cell "1.0" satisfies an allowed value of 1
func flagMatches(cell string, allowed []string) bool {
	trimmed := strings.TrimSpace(cell)
	cellNum, cellNumeric := table.ParseNumeric(trimmed)
	for _, v := range allowed {
		if trimmed == v {
			return true
		}
		if cellNumeric {
			if vNum, ok := table.ParseNumeric(v); ok && vNum == cellNum {
				return true
			}
		}
	}
	return false
}

// FilterOnColumn coerces the named column to numeric form, excluding rows
// whose value does not parse and, when excludeZeros is set, rows whose value
// is exactly zero. Surviving cells are rewritten in canonical numeric form.
func FilterOnColumn(tbl table.Table, column string, excludeZeros bool) (table.Table, table.Table) {
	kept, excluded := tbl.Partition(func(r table.Row) bool {
		v, ok := table.ParseNumeric(r[column])
		if !ok {
			return false
		}
		if excludeZeros && v == 0 {
			return false
		}
		return true
	})
	for _, r := range kept.Rows {
		v, _ := table.ParseNumeric(r[column])
		r[column] = table.FormatNumeric(v)
	}
	return kept, excluded
}

// HasZeroVariance reports whether the numeric values of the named column
// have a standard deviation of (effectively) zero. A single row never counts
// as zero-variance.
func HasZeroVariance(tbl table.Table, column string) bool {
	values, parsed := tbl.NumericColumn(column)
	numeric := make([]float64, 0, len(values))
	for i, v := range values {
		if parsed[i] {
			numeric = append(numeric, v)
		}
	}
	if len(numeric) < 2 {
		return false
	}
	sd := stat.StdDev(numeric, nil)
	return !math.IsNaN(sd) && sd < zeroSDTolerance
}

// SelectCandidatesWithMinItems keeps only rows belonging to candidates with
// at least minItems surviving responses
func SelectCandidatesWithMinItems(tbl table.Table, candidateColumn string, minItems int) (table.Table, table.Table) {
	counts := map[string]int{}
	for _, r := range tbl.Rows {
		counts[r[candidateColumn]]++
	}
	return tbl.Partition(func(r table.Row) bool {
		return counts[r[candidateColumn]] >= minItems
	})
}

// withReason returns a copy of the partition with every row tagged with the
// exclusion reason
func withReason(excluded table.Table, reason string) table.Table {
	tagged := excluded.Clone()
	tagged.FillColumn(ReasonColumn, reason)
	return tagged
}
