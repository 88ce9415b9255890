package tabfile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"scoreprep/domain/feature"
	"scoreprep/domain/table"
)

// ReadSpecFile reads a feature specification file in tabular (.csv/.tsv/
// .xls/.xlsx) or legacy nested-object JSON format, validates it, and returns
// the normalized specs.
func ReadSpecFile(path string) ([]feature.Spec, error) {
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		logger.Warn("The .json format for feature files is deprecated and will be removed "+
			"in a future release. Please convert %s to a .csv/.tsv file with three "+
			"columns: feature, sign and transform", path)
		specs, err := readLegacySpecFile(path)
		if err != nil {
			return nil, err
		}
		return feature.ValidateSpecs(specs)
	}

	specs, err := ReadDataFile(path)
	if err != nil {
		return nil, err
	}
	return feature.ValidateSpecs(specs)
}

func readLegacySpecFile(path string) (table.Table, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return table.Table{}, fmt.Errorf("failed to read feature file: %w", err)
	}
	var obj map[string]interface{}
	if err := json.Unmarshal(content, &obj); err != nil {
		return table.Table{}, fmt.Errorf("the feature file '%s' exists but is formatted "+
			"incorrectly: %w", path, err)
	}
	return feature.NormalizeLegacy(obj)
}
