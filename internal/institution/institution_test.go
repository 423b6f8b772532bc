package institution

import (
	"strings"
	"testing"
)

func TestNewTarget(t *testing.T) {
	target := NewTarget(InputRecord{Name: "Springfield Coll.", City: "Springfield", State: "IL"})

	if target.Name != "springfieldcoll" {
		t.Errorf("Name = %q, want springfieldcoll", target.Name)
	}
	if target.City != "springfield" {
		t.Errorf("City = %q, want springfield", target.City)
	}
	if target.State != "illinois" {
		t.Errorf("State = %q, want illinois", target.State)
	}
	if target.StateName != "Illinois" {
		t.Errorf("StateName = %q, want Illinois", target.StateName)
	}
}

func TestNewTarget_UnknownState(t *testing.T) {
	target := NewTarget(InputRecord{Name: "Overseas Academy", City: "APO", State: " AE "})

	if target.StateName != "AE" {
		t.Errorf("StateName = %q, want AE", target.StateName)
	}
	if target.State != "ae" {
		t.Errorf("State = %q, want ae", target.State)
	}
}

func TestTarget_Matches(t *testing.T) {
	target := NewTarget(InputRecord{Name: "Springfield Coll", City: "Springfield", State: "IL"})

	tests := []struct {
		name string
		row  SearchResultRow
		want bool
	}{
		{
			name: "substring name with exact city and state",
			row:  SearchResultRow{Name: "Springfield College", City: "Springfield", State: "Illinois"},
			want: true,
		},
		{
			name: "punctuation and case differences",
			row:  SearchResultRow{Name: "SPRINGFIELD COLL.", City: "springfield", State: "ILLINOIS"},
			want: true,
		},
		{
			name: "abbreviated listing state",
			row:  SearchResultRow{Name: "Springfield College", City: "Springfield", State: "IL"},
			want: true,
		},
		{
			name: "abbreviated listing of another state",
			row:  SearchResultRow{Name: "Springfield College", City: "Springfield", State: "MA"},
			want: false,
		},
		{
			name: "wrong state",
			row:  SearchResultRow{Name: "Springfield College", City: "Springfield", State: "Massachusetts"},
			want: false,
		},
		{
			name: "wrong city",
			row:  SearchResultRow{Name: "Springfield College", City: "Chicago", State: "Illinois"},
			want: false,
		},
		{
			name: "name not contained",
			row:  SearchResultRow{Name: "Lincoln Land Community College", City: "Springfield", State: "Illinois"},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := target.Matches(tt.row); got != tt.want {
				t.Errorf("Matches(%+v) = %v, want %v", tt.row, got, tt.want)
			}
		})
	}
}

// Short names are substrings of longer, unrelated names. This is a known source of false
// positives and is kept as is.
func TestTarget_Matches_ShortNameOverMatches(t *testing.T) {
	target := NewTarget(InputRecord{Name: "Art Institute", City: "Chicago", State: "IL"})
	row := SearchResultRow{Name: "School of the Art Institute of Chicago", City: "Chicago", State: "Illinois"}

	if !target.Matches(row) {
		t.Error("Matches() = false, substring policy should accept the longer name")
	}
}

func TestSchoolColumns(t *testing.T) {
	cols := SchoolColumns()

	if len(cols) != 7+11+3+3+3 {
		t.Fatalf("len(SchoolColumns()) = %d, want 27", len(cols))
	}
	if cols[0] != "OPEID" || cols[4] != "Program_IDs" || cols[6] != "Student_Population" {
		t.Errorf("unexpected leading columns: %v", cols[:7])
	}
	if cols[7] != "Criminal_Offenses_a" || cols[17] != "Criminal_Offenses_k" {
		t.Errorf("criminal offense columns = %v", cols[7:18])
	}
	if cols[18] != "VAWA_Offenses_a" || cols[21] != "Arrests_a" || cols[26] != "Disciplinary_Actions_c" {
		t.Errorf("trailing columns = %v", cols[18:])
	}
}

func TestInstitutionRecord_Row(t *testing.T) {
	rec := InstitutionRecord{OPEID: "00169400", SchoolName: "Springfield College", ProgramIDs: "1;2"}
	rec.Counters("Arrests")[1] = "7"
	rec.CriminalOffenses[10] = "3"

	row := rec.Row()
	cols := SchoolColumns()
	if len(row) != len(cols) {
		t.Fatalf("len(Row()) = %d, want %d", len(row), len(cols))
	}

	byName := make(map[string]string)
	for i, c := range cols {
		byName[c] = row[i]
	}
	if byName["Arrests_b"] != "7" {
		t.Errorf("Arrests_b = %q, want 7", byName["Arrests_b"])
	}
	if byName["Criminal_Offenses_k"] != "3" {
		t.Errorf("Criminal_Offenses_k = %q, want 3", byName["Criminal_Offenses_k"])
	}
	if byName["Program_IDs"] != "1;2" {
		t.Errorf("Program_IDs = %q, want 1;2", byName["Program_IDs"])
	}
}

func TestCounters_UnknownLabel(t *testing.T) {
	var rec InstitutionRecord
	if got := rec.Counters("Hate Crimes"); got != nil {
		t.Errorf("Counters(unknown) = %v, want nil", got)
	}
}

func TestJoinProgramIDs(t *testing.T) {
	tests := []struct {
		ids  []int
		want string
	}{
		{nil, ""},
		{[]int{4}, "4"},
		{[]int{1, 2, 3, 4}, "1;2;3;4"},
		{[]int{2, 2}, "2;2"},
	}

	for _, tt := range tests {
		if got := JoinProgramIDs(tt.ids); got != tt.want {
			t.Errorf("JoinProgramIDs(%v) = %q, want %q", tt.ids, got, tt.want)
		}
	}
}

func TestProgramRecord_Row(t *testing.T) {
	p := ProgramRecord{OPEID: "001", MajorID: 2, ProgramID: 5, Major: "Engineering", Program: "Civil"}
	row := p.Row()
	if len(row) != len(ProgramColumns()) {
		t.Fatalf("len(Row()) = %d, want %d", len(row), len(ProgramColumns()))
	}
	if row[1] != 2 || row[2] != 5 || !strings.EqualFold(row[3].(string), "engineering") {
		t.Errorf("Row() = %v", row)
	}
}
