package institution

import (
	"strconv"
	"strings"

	"github.com/pfrederiksen/collegenav/internal/normalize"
)

// InputRecord is one row of the input file
type InputRecord struct {
	Position int    `json:"position"` // 1-based row number, excluding the header
	Name     string `json:"name"`
	City     string `json:"city"`
	State    string `json:"state"` // two-letter code
}

// Target is the normalized search key for an InputRecord
type Target struct {
	Name      string // key of the institution name
	City      string // key of the city
	State     string // key of the expanded state name
	StateName string // what gets typed into the state selector
}

// NewTarget builds the comparison keys for in
func NewTarget(in InputRecord) Target {
	stateName, ok := normalize.StateName(in.State)
	if !ok {
		stateName = strings.TrimSpace(in.State)
	}
	return Target{
		Name:      normalize.Key(in.Name),
		City:      normalize.Key(in.City),
		State:     normalize.StateKey(in.State),
		StateName: stateName,
	}
}

// Matches reports whether row describes the target institution. The name test is a
// substring test so listings like "Foo College - Main Campus" still match "Foo College";
// it also lets short names match longer unrelated ones. Listing states may be spelled out or
// abbreviated.
func (t Target) Matches(row SearchResultRow) bool {
	return strings.Contains(normalize.Key(row.Name), t.Name) &&
		normalize.StateKey(row.State) == t.State &&
		normalize.Key(row.City) == t.City
}

// SearchResultRow is one row of a results listing
type SearchResultRow struct {
	Name    string
	City    string
	State   string
	Locator string // href of the detail page, relative to the listing
}

// Crime statistic categories and the number of rows read for each.
var CrimeCategories = []CrimeCategory{
	{Label: "Criminal Offenses", Column: "Criminal_Offenses", Rows: 11},
	{Label: "VAWA Offenses", Column: "VAWA_Offenses", Rows: 3},
	{Label: "Arrests", Column: "Arrests", Rows: 3},
	{Label: "Disciplinary Actions", Column: "Disciplinary_Actions", Rows: 3},
}

// CrimeCategory names a block of counters in the crime statistics table
type CrimeCategory struct {
	Label  string
	Column string
	Rows   int
}

// Columns returns the output column names for the category, suffixed _a, _b, ...
func (c CrimeCategory) Columns() []string {
	cols := make([]string, c.Rows)
	for i := range cols {
		cols[i] = c.Column + "_" + string(rune('a'+i))
	}
	return cols
}

// InstitutionRecord is a "School" output row
type InstitutionRecord struct {
	OPEID               string
	SchoolName          string
	City                string
	State               string
	ProgramIDs          string // semicolon-joined program IDs in encounter order
	TotalEnrollment     string
	StudentPopulation   string
	CriminalOffenses    [11]string
	VAWAOffenses        [3]string
	Arrests             [3]string
	DisciplinaryActions [3]string
}

// Counters returns the counter slice backing category label, or nil for unknown labels.
// The slice aliases the record so writes land in it.
func (r *InstitutionRecord) Counters(label string) []string {
	switch label {
	case "Criminal Offenses":
		return r.CriminalOffenses[:]
	case "VAWA Offenses":
		return r.VAWAOffenses[:]
	case "Arrests":
		return r.Arrests[:]
	case "Disciplinary Actions":
		return r.DisciplinaryActions[:]
	}
	return nil
}

// SchoolColumns returns the "School" header in output order
func SchoolColumns() []string {
	cols := []string{
		"OPEID", "School_Name", "City", "State", "Program_IDs",
		"Total_Enrollment", "Student_Population",
	}
	for _, c := range CrimeCategories {
		cols = append(cols, c.Columns()...)
	}
	return cols
}

// Row returns the record's values in SchoolColumns order
func (r InstitutionRecord) Row() []string {
	row := []string{
		r.OPEID, r.SchoolName, r.City, r.State, r.ProgramIDs,
		r.TotalEnrollment, r.StudentPopulation,
	}
	for _, c := range CrimeCategories {
		row = append(row, r.Counters(c.Label)...)
	}
	return row
}

// JoinProgramIDs renders ids in the Program_IDs format
func JoinProgramIDs(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ";")
}

// ProgramRecord is a "Program" output row
type ProgramRecord struct {
	OPEID     string
	MajorID   int
	ProgramID int
	Major     string
	Program   string
}

// ProgramColumns returns the "Program" header in output order
func ProgramColumns() []string {
	return []string{"OPEID", "Major_ID", "Program_ID", "Major", "Program"}
}

// Row returns the record's values in ProgramColumns order
func (p ProgramRecord) Row() []interface{} {
	return []interface{}{p.OPEID, p.MajorID, p.ProgramID, p.Major, p.Program}
}
