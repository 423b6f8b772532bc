package extractor

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pfrederiksen/collegenav/internal/directorytest"
	"github.com/pfrederiksen/collegenav/internal/institution"
	"github.com/pfrederiksen/collegenav/internal/logger"
	"github.com/pfrederiksen/collegenav/internal/registry"
	"github.com/pfrederiksen/collegenav/internal/session"
)

var criminal = []string{"0", "1", "2", "3", "4", "5", "6", "7", "8", "9", "10"}

func fullInstitution() directorytest.Institution {
	return directorytest.Institution{
		ID:                "166629",
		OPEID:             "00222100",
		Name:              "Springfield College",
		City:              "Springfield",
		State:             "Massachusetts",
		TotalEnrollment:   "4,321",
		StudentPopulation: "3,210",
		Crime: map[string][]string{
			"Criminal Offenses":    criminal,
			"VAWA Offenses":        {"11", "12", "13"},
			"Arrests":              {"14", "15", "16"},
			"Disciplinary Actions": {"17", "18", "19"},
		},
		Majors: []directorytest.Major{
			{Name: "Engineering", Programs: []string{"Civil Engineering", "Mechanical Engineering"}},
			{Name: "Health Professions", Programs: []string{"Nursing", "Physical Therapy"}},
		},
	}
}

func newRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg, err := registry.Load(filepath.Join(t.TempDir(), "ids.json"))
	require.NoError(t, err)
	return reg
}

func newExtractor(t *testing.T, d *directorytest.Directory, ids IDAssigner) *Extractor {
	t.Helper()
	_, baseURL := directorytest.NewServer(t, d)

	sess, err := session.NewHTTPSession(session.Options{PollInterval: 5 * time.Millisecond})
	require.NoError(t, err)
	t.Cleanup(func() { _ = sess.Close() })

	e, err := New(sess, ids, Options{
		BaseURL:     baseURL,
		WaitTimeout: 100 * time.Millisecond,
		Logger:      logger.New(logger.LevelError, io.Discard),
	})
	require.NoError(t, err)
	return e
}

func TestExtract(t *testing.T) {
	d := &directorytest.Directory{Institutions: []directorytest.Institution{fullInstitution()}}
	reg := newRegistry(t)
	e := newExtractor(t, d, reg)

	in := institution.InputRecord{Position: 1, Name: "Springfield Coll", City: "Springfield", State: "MA"}
	record, programs, err := e.Extract(context.Background(), "?id=166629", in)
	require.NoError(t, err)

	want := &institution.InstitutionRecord{
		OPEID:               "00222100",
		SchoolName:          "Springfield Coll",
		City:                "Springfield",
		State:               "MA",
		ProgramIDs:          "1;2;3;4",
		TotalEnrollment:     "4,321",
		StudentPopulation:   "3,210 (all undergraduate)",
		CriminalOffenses:    [11]string{"0", "1", "2", "3", "4", "5", "6", "7", "8", "9", "10"},
		VAWAOffenses:        [3]string{"11", "12", "13"},
		Arrests:             [3]string{"14", "15", "16"},
		DisciplinaryActions: [3]string{"17", "18", "19"},
	}
	if diff := cmp.Diff(want, record); diff != "" {
		t.Errorf("record mismatch (-want +got):\n%s", diff)
	}

	wantPrograms := []institution.ProgramRecord{
		{OPEID: "00222100", MajorID: 1, ProgramID: 1, Major: "Engineering", Program: "Civil Engineering"},
		{OPEID: "00222100", MajorID: 1, ProgramID: 2, Major: "Engineering", Program: "Mechanical Engineering"},
		{OPEID: "00222100", MajorID: 2, ProgramID: 3, Major: "Health Professions", Program: "Nursing"},
		{OPEID: "00222100", MajorID: 2, ProgramID: 4, Major: "Health Professions", Program: "Physical Therapy"},
	}
	if diff := cmp.Diff(wantPrograms, programs); diff != "" {
		t.Errorf("programs mismatch (-want +got):\n%s", diff)
	}

	majors, programCount := reg.Len()
	assert.Equal(t, 2, majors)
	assert.Equal(t, 4, programCount)
}

func TestExtract_ReusesRegistryIDs(t *testing.T) {
	other := fullInstitution()
	other.ID = "2"
	other.OPEID = "00999900"
	other.Majors = []directorytest.Major{
		{Name: "Engineering", Programs: []string{"Electrical Engineering", "Civil Engineering"}},
	}
	d := &directorytest.Directory{Institutions: []directorytest.Institution{fullInstitution(), other}}
	e := newExtractor(t, d, newRegistry(t))
	ctx := context.Background()

	_, _, err := e.Extract(ctx, "?id=166629", institution.InputRecord{Name: "A"})
	require.NoError(t, err)
	record, programs, err := e.Extract(ctx, "?id=2", institution.InputRecord{Name: "B"})
	require.NoError(t, err)

	require.Len(t, programs, 2)
	assert.Equal(t, 1, programs[0].MajorID, "shared major keeps its id")
	assert.Equal(t, 5, programs[0].ProgramID, "new program gets the next id")
	assert.Equal(t, 1, programs[1].ProgramID, "known program keeps its id")
	assert.Equal(t, "5;1", record.ProgramIDs)
}

func TestExtract_MissingHeaderIsNotFound(t *testing.T) {
	inst := fullInstitution()
	inst.NoHeader = true
	d := &directorytest.Directory{Institutions: []directorytest.Institution{inst}}
	e := newExtractor(t, d, newRegistry(t))

	_, _, err := e.Extract(context.Background(), "?id=166629", institution.InputRecord{})
	assert.ErrorIs(t, err, institution.ErrNotFound)
}

func TestExtract_HTTPFailureIsTransient(t *testing.T) {
	d := &directorytest.Directory{Institutions: []directorytest.Institution{fullInstitution()}}
	e := newExtractor(t, d, newRegistry(t))

	_, _, err := e.Extract(context.Background(), "?id=404", institution.InputRecord{})
	require.Error(t, err)
	assert.Equal(t, institution.ClassTransient, institution.Classify(err))
}

func parseHTML(t *testing.T, page string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	require.NoError(t, err)
	return doc
}

type memoryIDs struct {
	majors   map[string]int
	programs map[string]int
	err      error
}

func newMemoryIDs() *memoryIDs {
	return &memoryIDs{majors: map[string]int{}, programs: map[string]int{}}
}

func (m *memoryIDs) assign(ids map[string]int, name string) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	if id, ok := ids[name]; ok {
		return id, nil
	}
	ids[name] = len(ids) + 1
	return ids[name], nil
}

func (m *memoryIDs) MajorID(name string) (int, error)   { return m.assign(m.majors, name) }
func (m *memoryIDs) ProgramID(name string) (int, error) { return m.assign(m.programs, name) }

func TestParse_SparsePage(t *testing.T) {
	page := `<html><body>
<span class="headerlg">Tiny College</span>
<div id="programs"><table class="pmtabular"><tbody>
<tr class="level1indent"><td>Orphan Program</td></tr>
<tr class="subrow nb"><td>  Arts  </td></tr>
<tr class="level1indent"><td> Music </td><td>X</td></tr>
<tr class="level1indent"><td>Music</td><td>X</td></tr>
</tbody></table></div>
<div id="crime">
<div class="tablenames">On-Campus Student Housing Facilities</div>
<table><tbody><tr class="subrow nb"><td>Criminal Offenses</td></tr><tr><td>a</td><td>99</td></tr></tbody></table>
<div class="tablenames">On-Campus</div>
<table><tbody>
<tr class="subrow nb"><td>Criminal Offenses</td></tr>
<tr><td>Murder</td><td>0</td><td>1</td></tr>
<tr><td>Rape</td><td>0</td><td>2</td></tr>
<tr class="subrow nb"><td>Arrests</td></tr>
<tr><td>Weapons</td><td>3</td></tr>
</tbody></table>
</div>
</body></html>`

	ids := newMemoryIDs()
	record, programs, err := Parse(parseHTML(t, page), institution.InputRecord{Name: "Tiny"}, ids)
	require.NoError(t, err)

	assert.Empty(t, record.OPEID)
	assert.Empty(t, record.TotalEnrollment)
	assert.Empty(t, record.StudentPopulation)
	assert.Equal(t, [11]string{"1", "2"}, record.CriminalOffenses)
	assert.Equal(t, [3]string{"3"}, record.Arrests)
	assert.Equal(t, [3]string{}, record.VAWAOffenses)

	require.Len(t, programs, 2, "programs before the first major are skipped")
	assert.Equal(t, "Arts", programs[0].Major)
	assert.Equal(t, "Music", programs[0].Program)
	assert.Equal(t, "1;1", record.ProgramIDs, "repeated programs keep their duplicate ids")
}

func TestParse_MajorWithoutProgramsTakesNoID(t *testing.T) {
	page := `<html><body><div id="programs"><table class="pmtabular"><tbody>
<tr class="subrow nb"><td>Empty Major</td></tr>
<tr class="subrow nb"><td>Engineering</td></tr>
<tr class="level1indent"><td>Civil</td><td>X</td></tr>
<tr class="subrow nb"><td>Arts</td></tr>
<tr class="level1indent"><td>Music</td></tr>
<tr class="level1indent"><td>Dance</td></tr>
</tbody></table></div></body></html>`

	ids := newMemoryIDs()
	_, programs, err := Parse(parseHTML(t, page), institution.InputRecord{}, ids)
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"Engineering": 1, "Arts": 2}, ids.majors)
	require.Len(t, programs, 3)
	assert.Equal(t, 1, programs[0].MajorID)
	assert.Equal(t, 2, programs[1].MajorID)
	assert.Equal(t, 2, programs[2].MajorID)
}

func TestParse_NamesUseDirectText(t *testing.T) {
	page := `<html><body><div id="programs"><table class="pmtabular"><tbody>
<tr class="subrow nb"><td>Health Professions<sup>1</sup></td></tr>
<tr class="level1indent"><td>Nursing <a href="#fn">*</a></td><td><img alt="x"></td></tr>
</tbody></table></div></body></html>`

	ids := newMemoryIDs()
	_, programs, err := Parse(parseHTML(t, page), institution.InputRecord{}, ids)
	require.NoError(t, err)

	require.Len(t, programs, 1)
	assert.Equal(t, "Health Professions", programs[0].Major)
	assert.Equal(t, "Nursing", programs[0].Program)
	assert.Contains(t, ids.programs, "Nursing")
}

func TestParse_AssignerFailure(t *testing.T) {
	page := `<html><body><div id="programs"><table class="pmtabular"><tbody>
<tr class="subrow nb"><td>Arts</td></tr><tr class="level1indent"><td>Music</td></tr>
</tbody></table></div></body></html>`

	ids := newMemoryIDs()
	ids.err = &institution.PersistenceError{Op: "save", Path: "ids.json", Err: errors.New("disk full")}

	_, _, err := Parse(parseHTML(t, page), institution.InputRecord{}, ids)
	require.Error(t, err)
	assert.Equal(t, institution.ClassPersistence, institution.Classify(err))
}

func TestOPEID(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{"labelled", `<span class="ipeds"><strong>IPEDS ID:</strong> 1&nbsp;&nbsp;<strong>OPE ID:</strong> 00169400</span>`, "00169400"},
		{"plain", `<span class="ipeds">OPE ID: 00123400</span>`, "00123400"},
		{"missing label", `<span class="ipeds">IPEDS ID: 1</span>`, ""},
		{"no span", `<p>OPE ID: 1</p>`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, opeID(parseHTML(t, tt.html)))
		})
	}
}
