// Package feature resolves feature specifications: reading and validating
// explicit spec tables, normalizing the legacy nested-object format, deriving
// feature names from data columns, and checking subset files.
package feature

import (
	"fmt"
	"sort"
	"strings"

	"scoreprep/domain/table"
	"scoreprep/internal"
	"scoreprep/internal/errors"
)

// Spec describes one feature: its column name, the expected sign of its
// correlation with the label, and the transform applied before modeling.
type Spec struct {
	Name      string
	Sign      float64
	Transform string
}

const (
	defaultSign      = 1.0
	defaultTransform = "raw"
)

var logger = internal.DefaultLogger

// ValidateSpecs checks a feature specification table: a 'feature' column
// (or the title-cased legacy 'Feature') must exist, feature names must be
// unique, and any 'sign' column must contain only -1 or 1. Sign defaults to
// +1 and transform to "raw" when absent.
func ValidateSpecs(specs table.Table) ([]Spec, error) {
	nameColumn := "feature"
	if !specs.HasColumn("feature") {
		if specs.HasColumn("Feature") {
			nameColumn = "Feature"
		} else {
			return nil, errors.SchemaError("the feature file must contain a column named 'feature'")
		}
	}

	seen := map[string]int{}
	for _, row := range specs.Rows {
		seen[row[nameColumn]]++
	}
	var duplicates []string
	for name, count := range seen {
		if count > 1 {
			duplicates = append(duplicates, name)
		}
	}
	if len(duplicates) > 0 {
		sort.Strings(duplicates)
		return nil, errors.SchemaError("the following feature names are duplicated "+
			"in the feature file: %s", strings.Join(duplicates, ", "))
	}

	hasSign := specs.HasColumn("sign")
	hasTransform := specs.HasColumn("transform")

	out := make([]Spec, 0, specs.Len())
	for _, row := range specs.Rows {
		spec := Spec{
			Name:      row[nameColumn],
			Sign:      defaultSign,
			Transform: defaultTransform,
		}
		if hasSign {
			v, ok := table.ParseNumeric(row["sign"])
			if !ok || (v != -1 && v != 1) {
				return nil, errors.SchemaError("the 'sign' column in the feature file " +
					"can only contain '1' or '-1'")
			}
			spec.Sign = v
		}
		if hasTransform {
			if t := strings.TrimSpace(row["transform"]); t != "" {
				spec.Transform = t
			}
		}
		out = append(out, spec)
	}
	return out, nil
}

// DefaultSpecs builds specs with default sign and transform for the given
// feature names
func DefaultSpecs(names []string) []Spec {
	out := make([]Spec, len(names))
	for i, name := range names {
		out[i] = Spec{Name: name, Sign: defaultSign, Transform: defaultTransform}
	}
	return out
}

// legacyFieldMapping maps legacy nested-object field names to canonical ones
var legacyFieldMapping = map[string]string{
	"wt":    "sign",
	"featN": "feature",
	"trans": "transform",
}

var legacyRequiredFields = []string{"feature", "sign", "transform"}

// NormalizeLegacy normalizes the legacy nested-object feature format into a
// spec table ready for ValidateSpecs. Every entry must carry all of feature,
// sign and transform after field-name normalization.
func NormalizeLegacy(obj map[string]interface{}) (table.Table, error) {
	entries, ok := obj["features"].([]interface{})
	if !ok {
		entries, ok = obj["feats"].([]interface{})
		if !ok {
			return table.Table{}, errors.SchemaError("the legacy feature file must contain " +
				"a 'features' list")
		}
	}

	specs := table.New("feature", "sign", "transform")
	for _, entry := range entries {
		fields, ok := entry.(map[string]interface{})
		if !ok {
			return table.Table{}, errors.SchemaError("each entry in the legacy feature " +
				"file must be an object")
		}
		row := table.Row{}
		for name, value := range fields {
			canonical := name
			if mapped, ok := legacyFieldMapping[name]; ok {
				canonical = mapped
			}
			row[canonical] = legacyValue(value)
		}
		var missing []string
		for _, required := range legacyRequiredFields {
			if _, ok := row[required]; !ok {
				missing = append(missing, required)
			}
		}
		if len(missing) > 0 {
			sort.Strings(missing)
			return table.Table{}, errors.SchemaError("the feature file does not contain "+
				"the following fields: %s", strings.Join(missing, ","))
		}
		specs.AppendRow(row)
	}
	return specs, nil
}

func legacyValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return table.FormatNumeric(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// GenerateNames derives feature names from the data columns when no explicit
// feature file was given: every column not in the reserved set is a
// candidate, optionally narrowed to a named subset from the subset specs or
// to columns matching one of the given prefixes. Bracket-aliased columns
// (##name##) are relocated collisions, never features.
func GenerateNames(data table.Table, reserved []string, subsetSpecs *table.Table, subset string, prefixes []string) []string {
	reservedSet := map[string]bool{}
	for _, name := range reserved {
		reservedSet[name] = true
	}

	var candidates []string
	for _, column := range data.Columns {
		if reservedSet[column] {
			continue
		}
		if strings.HasPrefix(column, "##") && strings.HasSuffix(column, "##") {
			continue
		}
		candidates = append(candidates, column)
	}

	if subset != "" && subsetSpecs != nil {
		return selectBySubset(candidates, *subsetSpecs, subset)
	}
	if len(prefixes) > 0 {
		var matched []string
		for _, column := range candidates {
			for _, prefix := range prefixes {
				if strings.HasPrefix(column, prefix) {
					matched = append(matched, column)
					break
				}
			}
		}
		return matched
	}
	return candidates
}

// selectBySubset keeps the candidate columns marked with 1 in the named
// subset column of the subset specs
func selectBySubset(candidates []string, specs table.Table, subset string) []string {
	nameColumn := "feature"
	if !specs.HasColumn("feature") && specs.HasColumn("Feature") {
		nameColumn = "Feature"
	}

	inSubset := map[string]bool{}
	for _, row := range specs.Rows {
		if strings.TrimSpace(row[subset]) == "1" {
			inSubset[row[nameColumn]] = true
		}
	}

	var selected []string
	for _, column := range candidates {
		if inSubset[column] {
			selected = append(selected, column)
			delete(inSubset, column)
		}
	}
	if len(inSubset) > 0 {
		var missing []string
		for name := range inSubset {
			missing = append(missing, name)
		}
		sort.Strings(missing)
		logger.Warn("The following features from subset %q are not present in "+
			"the data and will be skipped: %s", subset, strings.Join(missing, ", "))
	}
	return selected
}

// CheckSubsetFile verifies a feature subset table: the subset column, if
// requested, must exist and contain only 0 or 1; the sign column for the
// requested sign label (sign_<label> or the title-cased legacy variant) must
// exist and contain only '-' or '+'.
func CheckSubsetFile(specs table.Table, subset, sign string) error {
	if !specs.HasColumn("feature") && !specs.HasColumn("Feature") {
		return errors.SchemaError("the feature_subset_file must contain a column " +
			"named 'feature' containing the feature names")
	}

	if subset != "" {
		if !specs.HasColumn(subset) {
			return errors.ConfigInvalid("unknown value for feature_subset: %s", subset)
		}
		for _, row := range specs.Rows {
			v := strings.TrimSpace(row[subset])
			if v != "0" && v != "1" {
				return errors.SchemaError("the subset columns in the feature file " +
					"can only contain 0 or 1")
			}
		}
	}

	if sign != "" {
		signColumn := "sign_" + sign
		if !specs.HasColumn(signColumn) {
			signColumn = "Sign_" + sign
			if !specs.HasColumn(signColumn) {
				return errors.SchemaError("the feature_subset_file must contain the "+
					"requested sign column 'sign_%s'", sign)
			}
		}
		for _, row := range specs.Rows {
			v := strings.TrimSpace(row[signColumn])
			if v != "-" && v != "+" {
				return errors.SchemaError("the sign columns in the feature file " +
					"can only contain - or +")
			}
		}
	}
	return nil
}
