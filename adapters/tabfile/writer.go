package tabfile

import (
	"encoding/csv"
	"os"
	"path/filepath"

	"scoreprep/domain/table"
	"scoreprep/internal/errors"
)

// WriteDataFile writes a table as CSV, creating parent directories as needed.
// Column order is preserved; missing cells become empty fields.
func WriteDataFile(path string, tbl table.Table) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "failed to create output directory for %s", path)
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create output file %s", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(tbl.Columns); err != nil {
		return errors.Wrapf(err, "failed to write header to %s", path)
	}
	record := make([]string, len(tbl.Columns))
	for _, r := range tbl.Rows {
		for i, column := range tbl.Columns {
			record[i] = r[column]
		}
		if err := w.Write(record); err != nil {
			return errors.Wrapf(err, "failed to write row to %s", path)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return errors.Wrapf(err, "failed to flush output file %s", path)
	}
	return nil
}
