package output

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pfrederiksen/collegenav/internal/institution"
)

// Format selects the output file type
type Format string

const (
	FormatXLSX   Format = "xlsx"
	FormatSQLite Format = "sqlite"
)

const (
	SchoolSheet  = "School"
	ProgramSheet = "Program"

	timestampLayout = "02-01-2006_03-04-PM"
)

// Writer persists the School and Program tables
type Writer interface {
	Write(schools []institution.InstitutionRecord, programs []institution.ProgramRecord) error
	Path() string
}

// ParseFormat parses a format name, case-insensitively
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatXLSX, FormatSQLite:
		return f, nil
	}
	return "", fmt.Errorf("unknown output format %q (want xlsx or sqlite)", s)
}

// FileName returns the output file name for a run started at now
func FileName(format Format, now time.Time) string {
	return "output_" + now.Format(timestampLayout) + "." + string(format)
}

// New creates a writer for format in dir. A run started in the same minute as an earlier
// one gets a numbered name so neither overwrites the other.
func New(format Format, dir string, now time.Time) (Writer, error) {
	path := availablePath(dir, FileName(format, now))
	switch format {
	case FormatXLSX:
		return NewXLSXWriter(path), nil
	case FormatSQLite:
		return NewSQLiteWriter(path), nil
	}
	return nil, fmt.Errorf("unknown output format %q", format)
}

// availablePath returns dir/name, or dir/<base>_<n><ext> with the smallest n >= 2 that
// does not exist yet
func availablePath(dir, name string) string {
	path := filepath.Join(dir, name)
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for n := 2; exists(path); n++ {
		path = filepath.Join(dir, fmt.Sprintf("%s_%d%s", base, n, ext))
	}
	return path
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func persistenceError(op, path string, err error) error {
	return &institution.PersistenceError{Op: op, Path: path, Err: err}
}
