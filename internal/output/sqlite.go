package output

import (
	"database/sql"
	_ "embed"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/pfrederiksen/collegenav/internal/institution"
)

//go:embed schema.sql
var schema string

// SQLiteWriter writes the tables into a SQLite database file
type SQLiteWriter struct {
	path string
}

// NewSQLiteWriter writes to path
func NewSQLiteWriter(path string) *SQLiteWriter {
	return &SQLiteWriter{path: path}
}

func (w *SQLiteWriter) Path() string {
	return w.path
}

// Write recreates both tables in a single transaction
func (w *SQLiteWriter) Write(schools []institution.InstitutionRecord, programs []institution.ProgramRecord) error {
	db, err := sql.Open("sqlite", w.path)
	if err != nil {
		return persistenceError("open database", w.path, err)
	}
	defer db.Close()

	if err := w.replace(db, schools, programs); err != nil {
		return persistenceError("write database", w.path, err)
	}
	return nil
}

func (w *SQLiteWriter) replace(db *sql.DB, schools []institution.InstitutionRecord, programs []institution.ProgramRecord) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(schema); err != nil {
		return fmt.Errorf("creating tables: %w", err)
	}

	insertSchool, err := tx.Prepare(insertStatement(SchoolSheet, institution.SchoolColumns()))
	if err != nil {
		return fmt.Errorf("preparing school insert: %w", err)
	}
	defer insertSchool.Close()

	for _, s := range schools {
		if _, err := insertSchool.Exec(cells(s.Row())...); err != nil {
			return fmt.Errorf("inserting school %s: %w", s.OPEID, err)
		}
	}

	insertProgram, err := tx.Prepare(insertStatement(ProgramSheet, institution.ProgramColumns()))
	if err != nil {
		return fmt.Errorf("preparing program insert: %w", err)
	}
	defer insertProgram.Close()

	for _, p := range programs {
		if _, err := insertProgram.Exec(p.Row()...); err != nil {
			return fmt.Errorf("inserting program %s/%d: %w", p.OPEID, p.ProgramID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing: %w", err)
	}
	return nil
}

func insertStatement(table string, columns []string) string {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = `"` + c + `"`
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	return fmt.Sprintf(`INSERT INTO "%s" (%s) VALUES (%s)`, table, strings.Join(quoted, ", "), placeholders)
}
