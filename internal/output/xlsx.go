package output

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/pfrederiksen/collegenav/internal/institution"
)

// XLSXWriter writes a workbook with a School and a Program sheet
type XLSXWriter struct {
	path string
}

// NewXLSXWriter writes to path
func NewXLSXWriter(path string) *XLSXWriter {
	return &XLSXWriter{path: path}
}

func (w *XLSXWriter) Path() string {
	return w.path
}

// Write builds the workbook in a temp file and renames it over the target
func (w *XLSXWriter) Write(schools []institution.InstitutionRecord, programs []institution.ProgramRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SchoolSheet); err != nil {
		return persistenceError("build workbook", w.path, err)
	}
	if _, err := f.NewSheet(ProgramSheet); err != nil {
		return persistenceError("build workbook", w.path, err)
	}

	schoolRows := make([][]interface{}, 0, len(schools)+1)
	schoolRows = append(schoolRows, cells(institution.SchoolColumns()))
	for _, s := range schools {
		schoolRows = append(schoolRows, cells(s.Row()))
	}
	if err := setRows(f, SchoolSheet, schoolRows); err != nil {
		return persistenceError("build workbook", w.path, err)
	}

	programRows := make([][]interface{}, 0, len(programs)+1)
	programRows = append(programRows, cells(institution.ProgramColumns()))
	for _, p := range programs {
		programRows = append(programRows, p.Row())
	}
	if err := setRows(f, ProgramSheet, programRows); err != nil {
		return persistenceError("build workbook", w.path, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(w.path), "."+filepath.Base(w.path)+".*.tmp")
	if err != nil {
		return persistenceError("write workbook", w.path, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := f.WriteTo(tmp); err != nil {
		tmp.Close()
		return persistenceError("write workbook", w.path, err)
	}
	if err := tmp.Close(); err != nil {
		return persistenceError("write workbook", w.path, err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		return persistenceError("write workbook", w.path, err)
	}
	if err := os.Rename(tmpPath, w.path); err != nil {
		return persistenceError("write workbook", w.path, err)
	}
	return nil
}

func setRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &rows[i]); err != nil {
			return fmt.Errorf("sheet %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

// cells converts text values for excelize and database/sql
func cells(values []string) []interface{} {
	row := make([]interface{}, len(values))
	for i, v := range values {
		row[i] = v
	}
	return row
}
