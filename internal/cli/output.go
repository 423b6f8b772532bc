package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/pfrederiksen/collegenav/internal/institution"
	"github.com/pfrederiksen/collegenav/internal/runner"
)

// OutputFormat specifies the summary format
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

// Report is the run summary printed when the run ends
type Report struct {
	StartedAt         time.Time        `json:"started_at"`
	Duration          string           `json:"duration"`
	Input             string           `json:"input"`
	Output            string           `json:"output"`
	Total             int              `json:"total"`
	Done              int              `json:"done"`
	NotFound          int              `json:"not_found"`
	Abandoned         int              `json:"abandoned"`
	Schools           int              `json:"schools"`
	Programs          int              `json:"programs"`
	KnownMajors       int              `json:"known_majors"`
	KnownPrograms     int              `json:"known_programs"`
	Halted            string           `json:"halted,omitempty"`
	Counters          map[string]int64 `json:"counters,omitempty"`
	AverageRecordTime string           `json:"average_record_time,omitempty"`
	Records           []RecordReport   `json:"records"`
}

// RecordReport is one input record's outcome
type RecordReport struct {
	Position int    `json:"position"`
	Name     string `json:"name"`
	City     string `json:"city"`
	State    string `json:"state"`
	Status   string `json:"status"`
	Attempts int    `json:"attempts"`
	Programs int    `json:"programs"`
	Closest  string `json:"closest,omitempty"`
	Error    string `json:"error,omitempty"`
}

// NewReport builds the report for a run. majors and programs are the registry sizes.
func NewReport(summary *runner.Summary, startedAt time.Time, inputPath string, majors, programs int, runErr error) *Report {
	report := &Report{
		StartedAt:     startedAt.UTC(),
		Duration:      summary.Duration.Round(time.Millisecond).String(),
		Input:         inputPath,
		Total:         summary.Total,
		Done:          summary.Done,
		NotFound:      summary.NotFound,
		Abandoned:     summary.Abandoned,
		Schools:       summary.Schools,
		Programs:      summary.Programs,
		KnownMajors:   majors,
		KnownPrograms: programs,
		Counters:      summary.Metrics.Counters,
		Records:       make([]RecordReport, 0, len(summary.Outcomes)),
	}
	if summary.Done > 0 {
		report.Output = summary.OutputPath
	}
	if runErr != nil {
		report.Halted = runErr.Error()
	}
	if timing, ok := summary.Metrics.Timings["record.duration"]; ok && timing.Count > 0 {
		report.AverageRecordTime = timing.Average.Round(time.Millisecond).String()
	}

	for _, o := range summary.Outcomes {
		rec := RecordReport{
			Position: o.Input.Position,
			Name:     o.Input.Name,
			City:     o.Input.City,
			State:    o.Input.State,
			Status:   o.Status(),
			Attempts: o.Attempts,
			Programs: o.Programs,
		}
		if o.Err != nil {
			rec.Error = o.Err.Error()
		}
		var nf *institution.NotFoundError
		if errors.As(o.Err, &nf) {
			rec.Closest = nf.Closest
		}
		report.Records = append(report.Records, rec)
	}

	return report
}

// WriteOutput writes the report in the specified format
func WriteOutput(w io.Writer, report *Report, format OutputFormat, verbose bool) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, report)
	case FormatText:
		return writeText(w, report, verbose)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// writeJSON outputs the report as JSON
func writeJSON(w io.Writer, report *Report) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}

// writeText outputs the report as a table followed by totals
func writeText(w io.Writer, report *Report, verbose bool) error {
	if len(report.Records) == 0 {
		fmt.Fprintln(w, "No records processed.")
	} else {
		t := table.NewWriter()
		t.SetOutputMirror(w)

		header := table.Row{"#", "Institution", "City", "State", "Status", "Attempts", "Programs"}
		if verbose {
			header = append(header, "Detail")
		}
		t.AppendHeader(header)

		for _, rec := range report.Records {
			row := table.Row{rec.Position, rec.Name, rec.City, rec.State, rec.Status, rec.Attempts, rec.Programs}
			if verbose {
				detail := rec.Error
				if rec.Closest != "" {
					detail = fmt.Sprintf("closest listing: %s", rec.Closest)
				}
				row = append(row, detail)
			}
			t.AppendRow(row)
		}

		t.SetStyle(table.StyleRounded)
		t.Render()
	}

	fmt.Fprintf(w, "\nDone: %d  Not found: %d  Abandoned: %d  (of %d)\n", report.Done, report.NotFound, report.Abandoned, report.Total)
	fmt.Fprintf(w, "Rows written: %d schools, %d programs\n", report.Schools, report.Programs)
	fmt.Fprintf(w, "Known ids: %d majors, %d programs\n", report.KnownMajors, report.KnownPrograms)
	if report.Output != "" {
		fmt.Fprintf(w, "Output: %s\n", report.Output)
	}
	if verbose {
		fmt.Fprintf(w, "Duration: %s", report.Duration)
		if report.AverageRecordTime != "" {
			fmt.Fprintf(w, " (%s per record)", report.AverageRecordTime)
		}
		fmt.Fprintln(w)
	}
	if report.Halted != "" {
		fmt.Fprintf(w, "Run halted: %s\n", report.Halted)
	}

	return nil
}
