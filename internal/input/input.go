// Package input loads the institutions to look up from a CSV or XLSX file.
package input

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/pfrederiksen/collegenav/internal/institution"
)

// Required header columns.
const (
	ColumnName  = "INST_NAME"
	ColumnCity  = "CITY"
	ColumnState = "STATE"
)

// Load reads every record of path. The format follows the file extension: .xlsx is read from
// the workbook's first sheet, anything else as CSV.
func Load(path string) ([]institution.InputRecord, error) {
	var (
		rows [][]string
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		rows, err = readXLSX(path)
	default:
		rows, err = readCSV(path)
	}
	if err != nil {
		return nil, err
	}
	return parse(rows)
}

// Read parses CSV input from r
func Read(r io.Reader) ([]institution.InputRecord, error) {
	rows, err := csvRows(r)
	if err != nil {
		return nil, err
	}
	return parse(rows)
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening input: %w", err)
	}
	defer f.Close()

	rows, err := csvRows(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rows, nil
}

func csvRows(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading CSV: %w", err)
	}
	return rows, nil
}

func readXLSX(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening input workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%s: workbook has no sheets", path)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("reading sheet %s: %w", sheets[0], err)
	}
	return rows, nil
}

// parse maps rows onto records using the header row
func parse(rows [][]string) ([]institution.InputRecord, error) {
	if len(rows) == 0 {
		return nil, errors.New("input is empty")
	}

	index := map[string]int{}
	for i, name := range rows[0] {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}

	var missing []string
	for _, col := range []string{ColumnName, ColumnCity, ColumnState} {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("input is missing required columns: %s", strings.Join(missing, ", "))
	}

	cell := func(row []string, col string) string {
		i := index[col]
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	records := make([]institution.InputRecord, 0, len(rows)-1)
	for n, row := range rows[1:] {
		record := institution.InputRecord{
			Position: n + 1,
			Name:     cell(row, ColumnName),
			City:     cell(row, ColumnCity),
			State:    cell(row, ColumnState),
		}
		if record.Name == "" && record.City == "" && record.State == "" {
			continue
		}
		records = append(records, record)
	}
	return records, nil
}
