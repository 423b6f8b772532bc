// Package directorytest serves a fake institution directory for tests.
//
// The fake mirrors the parts of the College Navigator markup collegenav reads: a search form
// with a name box and a state select, a paginated results table, and detail pages with the
// enrollment, program and crime sections.
package directorytest

import (
	"fmt"
	"html"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// Form control names and ids used by the fake search page.
const (
	NameField  = "ctl00$cphCollegeNavBody$ucSearchMain$txtName"
	NameID     = "ctl00_cphCollegeNavBody_ucSearchMain_txtName"
	StateField = "ctl00$cphCollegeNavBody$ucSearchMain$ucMapMain$lstState"
	StateID    = "ctl00_cphCollegeNavBody_ucSearchMain_ucMapMain_lstState"
	NamePrompt = "Type name of school here"

	// Path is where the directory is mounted on the test server.
	Path = "/collegenavigator/"
)

// StateOption is one entry of the state select
type StateOption struct {
	Code string
	Name string
}

// DefaultStates is a small, alphabetically ordered option list with several shared prefixes.
var DefaultStates = []StateOption{
	{"AL", "Alabama"},
	{"DC", "District of Columbia"},
	{"ID", "Idaho"},
	{"IL", "Illinois"},
	{"IN", "Indiana"},
	{"IA", "Iowa"},
	{"MA", "Massachusetts"},
	{"NY", "New York"},
}

// Major groups programs on a detail page
type Major struct {
	Name     string
	Programs []string
}

// Institution is one directory entry
type Institution struct {
	ID                string
	OPEID             string
	Name              string
	City              string
	State             string // full state name as shown in listings
	TotalEnrollment   string
	StudentPopulation string
	Crime             map[string][]string // category label -> counter values
	Majors            []Major
	NoHeader          bool // render the detail page without its header
}

// Directory is the fake site's content and behaviour
type Directory struct {
	Institutions []Institution
	States       []StateOption
	PageSize     int
	Method       string // search form method, GET by default

	// FailRequests makes the next N requests answer 503.
	FailRequests int

	mu       sync.Mutex
	requests int
	searches int
}

// Requests returns how many requests the server has seen
func (d *Directory) Requests() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.requests
}

// Searches returns how many search submissions the server has seen
func (d *Directory) Searches() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.searches
}

// SetFailRequests makes the next n requests fail
func (d *Directory) SetFailRequests(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.FailRequests = n
}

// NewServer starts a test server for d and returns it with the directory's base URL.
func NewServer(t testing.TB, d *Directory) (*httptest.Server, string) {
	t.Helper()
	if d.States == nil {
		d.States = DefaultStates
	}
	if d.PageSize <= 0 {
		d.PageSize = 15
	}
	if d.Method == "" {
		d.Method = "get"
	}

	server := httptest.NewServer(http.HandlerFunc(d.serve))
	t.Cleanup(server.Close)
	return server, server.URL + Path
}

func (d *Directory) serve(w http.ResponseWriter, r *http.Request) {
	d.mu.Lock()
	d.requests++
	fail := d.FailRequests > 0
	if fail {
		d.FailRequests--
	}
	d.mu.Unlock()

	if fail {
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}
	if r.URL.Path != Path {
		http.NotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	if id := r.Form.Get("id"); id != "" {
		inst, ok := d.find(id)
		if !ok {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, d.detailPage(inst))
		return
	}

	q := r.Form.Get("q")
	state := r.Form.Get("s")
	if name, ok := r.Form[NameField]; ok {
		q = name[0]
		state = r.Form.Get(StateField)
		d.mu.Lock()
		d.searches++
		d.mu.Unlock()
	}
	if q == "" && state == "" {
		fmt.Fprint(w, d.searchPage(""))
		return
	}

	page, _ := strconv.Atoi(r.Form.Get("pg"))
	if page < 1 {
		page = 1
	}
	fmt.Fprint(w, d.resultsPage(q, state, page))
}

func (d *Directory) find(id string) (Institution, bool) {
	for _, inst := range d.Institutions {
		if inst.ID == id {
			return inst, true
		}
	}
	return Institution{}, false
}

func (d *Directory) stateName(code string) string {
	for _, s := range d.States {
		if s.Code == code {
			return s.Name
		}
	}
	return ""
}

func (d *Directory) searchPage(body string) string {
	var b strings.Builder
	b.WriteString("<html><head><title>College Navigator</title></head><body>")
	fmt.Fprintf(&b, `<form id="aspnetForm" method="%s" action="./">`, d.Method)
	fmt.Fprintf(&b, `<input type="hidden" name="__VIEWSTATE" value="abc123">`)
	fmt.Fprintf(&b, `<input name="%s" type="text" value="%s" id="%s">`, NameField, NamePrompt, NameID)
	fmt.Fprintf(&b, `<select name="%s" id="%s"><option value="">All States</option>`, StateField, StateID)
	for _, s := range d.States {
		fmt.Fprintf(&b, `<option value="%s">%s</option>`, s.Code, html.EscapeString(s.Name))
	}
	b.WriteString(`</select><input type="submit" name="btnSearch" value="Show Results"></form>`)
	b.WriteString(body)
	b.WriteString("</body></html>")
	return b.String()
}

func (d *Directory) resultsPage(q, state string, page int) string {
	stateName := d.stateName(state)
	var matches []Institution
	for _, inst := range d.Institutions {
		if !strings.Contains(strings.ToLower(inst.Name), strings.ToLower(q)) {
			continue
		}
		if state != "" && inst.State != stateName {
			continue
		}
		matches = append(matches, inst)
	}

	if len(matches) == 0 {
		return d.searchPage(`<div class="noresults">No results found for your search.</div>`)
	}

	start := (page - 1) * d.PageSize
	if start >= len(matches) {
		start = len(matches)
	}
	end := start + d.PageSize
	if end > len(matches) {
		end = len(matches)
	}

	query := "q=" + urlEscape(q) + "&amp;s=" + urlEscape(state)

	var b strings.Builder
	b.WriteString(`<table class="resultsTable"><thead><tr><th></th><th>Name</th></tr></thead><tbody>`)
	for _, inst := range matches[start:end] {
		fmt.Fprintf(&b, `<tr><td><input type="checkbox"></td><td><a href="?%s&amp;id=%s"><strong>%s</strong></a><br>%s, %s</td><td>4-year, Private</td></tr>`,
			query, inst.ID, html.EscapeString(inst.Name), html.EscapeString(inst.City), html.EscapeString(inst.State))
	}
	b.WriteString(`</tbody></table>`)
	if end < len(matches) {
		fmt.Fprintf(&b, `<div class="colorful"><a href="?%s&amp;pg=%d">Next Page »</a></div>`, query, page+1)
	}
	return d.searchPage(b.String())
}

func (d *Directory) detailPage(inst Institution) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	if !inst.NoHeader {
		fmt.Fprintf(&b, `<div class="dashboard"><span class="headerlg">%s</span><br>%s, %s</div>`,
			html.EscapeString(inst.Name), html.EscapeString(inst.City), html.EscapeString(inst.State))
	}
	fmt.Fprintf(&b, `<span class="ipeds"><strong>IPEDS ID:</strong> %s&nbsp;&nbsp;&nbsp;<strong>OPE ID:</strong> %s</span>`, inst.ID, inst.OPEID)

	if inst.StudentPopulation != "" {
		fmt.Fprintf(&b, `<table class="layouttab"><tr><td class="srb">Student population:</td><td>%s (all undergraduate)</td></tr></table>`, inst.StudentPopulation)
	}
	if inst.TotalEnrollment != "" {
		fmt.Fprintf(&b, `<div id="enrolmt"><table class="tabular"><thead><tr><th scope="col">Total enrollment</th><th scope="col">%s</th></tr></thead></table></div>`, inst.TotalEnrollment)
	}

	if len(inst.Majors) > 0 {
		b.WriteString(`<div id="programs"><table class="pmtabular"><tbody><tr><th>Programs</th><th>Certificate</th><th>Bachelor's</th></tr>`)
		for _, m := range inst.Majors {
			fmt.Fprintf(&b, `<tr class="subrow nb"><td colspan="3">%s</td></tr>`, html.EscapeString(m.Name))
			for _, p := range m.Programs {
				fmt.Fprintf(&b, `<tr class="level1indent"><td>%s</td><td>&nbsp;</td><td><img alt="Offered"></td></tr>`, html.EscapeString(p))
			}
		}
		b.WriteString(`</tbody></table></div>`)
	}

	if len(inst.Crime) > 0 {
		b.WriteString(`<div id="crime"><div class="tablenames">On-Campus</div><table class="tabular"><tbody><tr><th>Type</th><th>2021</th><th>2022</th></tr>`)
		for _, label := range []string{"Criminal Offenses", "VAWA Offenses", "Arrests", "Disciplinary Actions"} {
			values, ok := inst.Crime[label]
			if !ok {
				continue
			}
			fmt.Fprintf(&b, `<tr class="subrow nb"><td colspan="3">%s</td></tr>`, label)
			for i, v := range values {
				fmt.Fprintf(&b, `<tr><td>%s row %d</td><td>0</td><td>%s</td></tr>`, label, i+1, v)
			}
		}
		b.WriteString(`</tbody></table><div class="tablenames">Residence Hall</div><table class="tabular"><tbody><tr class="subrow nb"><td colspan="3">Criminal Offenses</td></tr><tr><td>x</td><td>0</td><td>999</td></tr></tbody></table></div>`)
	}

	b.WriteString("</body></html>")
	return b.String()
}

func urlEscape(s string) string {
	r := strings.NewReplacer(" ", "+", "&", "%26", "?", "%3F", "#", "%23", "=", "%3D")
	return r.Replace(s)
}
