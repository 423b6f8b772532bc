package input

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/pfrederiksen/collegenav/internal/institution"
)

func TestRead(t *testing.T) {
	data := "\ufeffUNITID, INST_NAME ,CITY,STATE,NOTES\n" +
		"1,Springfield College, Springfield ,MA,first\n" +
		",,,,\n" +
		"3,\"Washington, D.C. College\",Washington,DC\n" +
		"4,Short Row\n"

	records, err := Read(strings.NewReader(data))
	require.NoError(t, err)

	want := []institution.InputRecord{
		{Position: 1, Name: "Springfield College", City: "Springfield", State: "MA"},
		{Position: 3, Name: "Washington, D.C. College", City: "Washington", State: "DC"},
		{Position: 4, Name: "Short Row"},
	}
	assert.Equal(t, want, records)
}

func TestRead_MissingColumns(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		missing string
	}{
		{"no state", "INST_NAME,CITY\nA,B\n", "STATE"},
		{"lowercase header", "inst_name,city,state\nA,B,C\n", "INST_NAME, CITY, STATE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(tt.data))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.missing)
		})
	}
}

func TestRead_Empty(t *testing.T) {
	_, err := Read(strings.NewReader(""))
	assert.Error(t, err)
}

func TestLoad_CSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "input.csv")
	require.NoError(t, os.WriteFile(path, []byte("INST_NAME,CITY,STATE\nFoo College,Boise,ID\n"), 0644))

	records, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []institution.InputRecord{{Position: 1, Name: "Foo College", City: "Boise", State: "ID"}}, records)

	_, err = Load(filepath.Join(t.TempDir(), "absent.csv"))
	assert.Error(t, err)
}

func TestLoad_XLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "input.xlsx")

	f := excelize.NewFile()
	rows := [][]interface{}{
		{"STATE", "INST_NAME", "CITY"},
		{"IL", "Beta University", "Chicago"},
		{"ID", "Alpha College", "Boise"},
	}
	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &rows[i]))
	}
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	records, err := Load(path)
	require.NoError(t, err)

	want := []institution.InputRecord{
		{Position: 1, Name: "Beta University", City: "Chicago", State: "IL"},
		{Position: 2, Name: "Alpha College", City: "Boise", State: "ID"},
	}
	assert.Equal(t, want, records)
}
