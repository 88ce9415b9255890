// Package tabfile reads tabular data files (.csv, .tsv, .xls/.xlsx) and
// feature specification files into domain tables.
package tabfile

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"scoreprep/domain/table"
	"scoreprep/internal"

	"github.com/xuri/excelize/v2"
)

var logger = internal.DefaultLogger

// DataReader handles reading delimited-text and spreadsheet files
type DataReader struct {
	filePath string
	fileType string // "csv", "tsv" or "xlsx"
}

// NewDataReader creates a reader for the given file, dispatching on its
// extension
func NewDataReader(filePath string) (*DataReader, error) {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".csv":
		return &DataReader{filePath: filePath, fileType: "csv"}, nil
	case ".tsv":
		return &DataReader{filePath: filePath, fileType: "tsv"}, nil
	case ".xls", ".xlsx":
		return &DataReader{filePath: filePath, fileType: "xlsx"}, nil
	default:
		return nil, fmt.Errorf("only files in .csv, .tsv or .xls/.xlsx format are supported; "+
			"the file should have the extension which matches its format: %s", filePath)
	}
}

// ReadData reads the file into a table. The first row supplies the column
// headers; headers and cells are whitespace-trimmed.
func (r *DataReader) ReadData() (table.Table, error) {
	logger.Debug("Reading %s file: %s", r.fileType, r.filePath)

	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return table.Table{}, fmt.Errorf("%s file not found: %s", strings.ToUpper(r.fileType), r.filePath)
	}

	switch r.fileType {
	case "csv", "tsv":
		return r.readDelimited()
	default:
		return r.readExcel()
	}
}

func (r *DataReader) readDelimited() (table.Table, error) {
	file, err := os.Open(r.filePath)
	if err != nil {
		return table.Table{}, fmt.Errorf("failed to open %s file: %w", r.fileType, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	if r.fileType == "tsv" {
		reader.Comma = '\t'
	}
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return table.Table{}, fmt.Errorf("cannot read %s; please check that it is not "+
			"corrupt or in an incompatible format: %w", r.filePath, err)
	}
	if len(rows) == 0 {
		return table.Table{}, fmt.Errorf("%s file is empty: %s", r.fileType, r.filePath)
	}
	return r.processRows(rows)
}

func (r *DataReader) readExcel() (table.Table, error) {
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return table.Table{}, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return table.Table{}, fmt.Errorf("Excel file has no sheets: %s", r.filePath)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return table.Table{}, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return table.Table{}, fmt.Errorf("Excel file is empty: %s", r.filePath)
	}
	return r.processRows(rows)
}

// processRows converts raw string rows into a table
func (r *DataReader) processRows(rows [][]string) (table.Table, error) {
	headerRow := rows[0]
	headers := make([]string, len(headerRow))
	for i, header := range headerRow {
		headers[i] = strings.TrimSpace(header)
	}

	out := table.New(headers...)
	for i := 1; i < len(rows); i++ {
		row := make(table.Row, len(headers))
		for j, cell := range rows[i] {
			if j < len(headers) {
				row[headers[j]] = strings.TrimSpace(cell)
			}
		}
		out.AppendRow(row)
	}

	logger.Debug("%s file processed (%d columns, %d rows)",
		strings.ToUpper(r.fileType), len(headers), out.Len())
	return out, nil
}

// ReadDataFile is a convenience wrapper that constructs a reader and reads
// the file in one call
func ReadDataFile(path string) (table.Table, error) {
	reader, err := NewDataReader(path)
	if err != nil {
		return table.Table{}, err
	}
	return reader.ReadData()
}
