package extractor

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/pfrederiksen/collegenav/internal/htmlutil"
	"github.com/pfrederiksen/collegenav/internal/institution"
	"github.com/pfrederiksen/collegenav/internal/logger"
	"github.com/pfrederiksen/collegenav/internal/session"
)

const DefaultWaitTimeout = 5 * time.Second

// Selectors for the detail page.
const (
	HeaderSelector     = "span.headerlg"
	IPEDSSelector      = "span.ipeds"
	EnrollmentSelector = "th[scope=col]"
	PopulationSelector = "td.srb"
	CrimeTableNames    = "#crime div.tablenames"
	ProgramsSelector   = "#programs table.pmtabular"
)

const onCampus = "On-Campus"

// IDAssigner hands out stable major and program ids
type IDAssigner interface {
	MajorID(name string) (int, error)
	ProgramID(name string) (int, error)
}

// Options configures an Extractor
type Options struct {
	BaseURL     string
	WaitTimeout time.Duration
	Logger      *logger.Logger
}

// Extractor loads detail pages through a session
type Extractor struct {
	session session.Session
	ids     IDAssigner
	base    *url.URL
	timeout time.Duration
	log     *logger.Logger
}

// New creates an Extractor. Locators are resolved against opts.BaseURL.
func New(sess session.Session, ids IDAssigner, opts Options) (*Extractor, error) {
	base, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base url: %w", err)
	}
	if opts.WaitTimeout <= 0 {
		opts.WaitTimeout = DefaultWaitTimeout
	}
	if opts.Logger == nil {
		opts.Logger = logger.Default()
	}
	return &Extractor{
		session: sess,
		ids:     ids,
		base:    base,
		timeout: opts.WaitTimeout,
		log:     opts.Logger,
	}, nil
}

// Extract opens the detail page at locator and parses it. A page without the institution
// header is NotFound; navigation failures are transient.
func (e *Extractor) Extract(ctx context.Context, locator string, in institution.InputRecord) (*institution.InstitutionRecord, []institution.ProgramRecord, error) {
	ref, err := url.Parse(strings.TrimSpace(locator))
	if err != nil {
		return nil, nil, institution.Transient("parsing locator", err)
	}
	target := e.base.ResolveReference(ref).String()

	if err := e.session.Navigate(ctx, target); err != nil {
		return nil, nil, wrap("opening detail page", err)
	}
	if _, err := e.session.Wait(ctx, HeaderSelector, e.timeout); err != nil {
		if errors.Is(err, session.ErrTimeout) {
			return nil, nil, &institution.NotFoundError{Reason: "detail page has no institution header"}
		}
		return nil, nil, wrap("waiting for detail page", err)
	}

	doc, err := e.session.Document()
	if err != nil {
		return nil, nil, institution.Transient("reading detail page", err)
	}

	record, programs, err := Parse(doc, in, e.ids)
	if err != nil {
		return nil, nil, err
	}

	e.log.Debug("Detail page parsed", logger.Fields{
		"institution": in.Name,
		"opeid":       record.OPEID,
		"programs":    len(programs),
	})
	return record, programs, nil
}

func wrap(op string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	return institution.Transient(op, err)
}

// Parse reads a detail page. Fields missing from the page are left empty; the only errors are
// id assignment failures.
func Parse(doc *goquery.Document, in institution.InputRecord, ids IDAssigner) (*institution.InstitutionRecord, []institution.ProgramRecord, error) {
	record := &institution.InstitutionRecord{
		OPEID:             opeID(doc),
		SchoolName:        in.Name,
		City:              in.City,
		State:             in.State,
		TotalEnrollment:   totalEnrollment(doc),
		StudentPopulation: studentPopulation(doc),
	}

	if table := crimeTable(doc); table != nil {
		rows := table.Find("tr")
		for _, c := range institution.CrimeCategories {
			readCounters(rows, c.Label, record.Counters(c.Label))
		}
	}

	programs, err := parsePrograms(doc, record.OPEID, ids)
	if err != nil {
		return nil, nil, err
	}

	programIDs := make([]int, len(programs))
	for i, p := range programs {
		programIDs[i] = p.ProgramID
	}
	record.ProgramIDs = institution.JoinProgramIDs(programIDs)

	return record, programs, nil
}

func opeID(doc *goquery.Document) string {
	text := doc.Find(IPEDSSelector).First().Text()
	_, after, ok := strings.Cut(text, "OPE ID")
	if !ok {
		return ""
	}
	if _, value, ok := strings.Cut(after, ":"); ok {
		after = value
	}
	fields := strings.Fields(after)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func totalEnrollment(doc *goquery.Document) string {
	label := doc.Find(EnrollmentSelector).FilterFunction(func(_ int, th *goquery.Selection) bool {
		return strings.Contains(th.Text(), "Total enrollment")
	}).First()
	return clean(label.NextAllFiltered(EnrollmentSelector).First().Text())
}

func studentPopulation(doc *goquery.Document) string {
	label := doc.Find(PopulationSelector).FilterFunction(func(_ int, td *goquery.Selection) bool {
		return strings.Contains(td.Text(), "Student population")
	}).First()
	return clean(label.NextAllFiltered("td").First().Text())
}

// crimeTable returns the first table after the "On-Campus" caption, or nil
func crimeTable(doc *goquery.Document) *goquery.Selection {
	caption := doc.Find(CrimeTableNames).FilterFunction(func(_ int, div *goquery.Selection) bool {
		return clean(div.Text()) == onCampus
	}).First()
	if caption.Length() == 0 {
		return nil
	}
	table := caption.NextAllFiltered("table").First()
	if table.Length() == 0 {
		return nil
	}
	return table
}

// readCounters copies the last cell of the rows following the label's category header into
// dst. It stops early at the end of the table or at the next category header.
func readCounters(rows *goquery.Selection, label string, dst []string) {
	start := -1
	rows.EachWithBreak(func(i int, tr *goquery.Selection) bool {
		if isCategory(tr) && strings.Contains(tr.Text(), label) {
			start = i
			return false
		}
		return true
	})
	if start < 0 {
		return
	}

	for k := range dst {
		tr := rows.Eq(start + 1 + k)
		if tr.Length() == 0 || isCategory(tr) {
			return
		}
		dst[k] = clean(tr.Find("td").Last().Text())
	}
}

func isCategory(tr *goquery.Selection) bool {
	return tr.HasClass("subrow") && tr.HasClass("nb")
}

// parsePrograms walks the program table: category rows are majors, indented rows are
// programs of the closest preceding major.
func parsePrograms(doc *goquery.Document, opeid string, ids IDAssigner) ([]institution.ProgramRecord, error) {
	table := doc.Find(ProgramsSelector).FilterFunction(func(_ int, t *goquery.Selection) bool {
		return t.Find("tr").FilterFunction(func(_ int, tr *goquery.Selection) bool {
			return isCategory(tr)
		}).Length() > 0
	}).First()
	if table.Length() == 0 {
		return nil, nil
	}

	var (
		programs []institution.ProgramRecord
		major    string
		majorID  int
		assigned bool
		err      error
	)
	// a major takes an id only once a program row under it is read
	table.Find("tr").EachWithBreak(func(_ int, tr *goquery.Selection) bool {
		switch {
		case isCategory(tr):
			major = htmlutil.DirectText(tr.Find("td"))
			assigned = false
		case tr.HasClass("level1indent"):
			if major == "" {
				return true
			}
			name := htmlutil.DirectText(tr.Find("td").First())
			if name == "" {
				return true
			}
			if !assigned {
				if majorID, err = ids.MajorID(major); err != nil {
					err = fmt.Errorf("assigning major id for %q: %w", major, err)
					return false
				}
				assigned = true
			}
			var programID int
			if programID, err = ids.ProgramID(name); err != nil {
				err = fmt.Errorf("assigning program id for %q: %w", name, err)
				return false
			}
			programs = append(programs, institution.ProgramRecord{
				OPEID:     opeid,
				MajorID:   majorID,
				ProgramID: programID,
				Major:     major,
				Program:   name,
			})
		}
		return true
	})
	if err != nil {
		return nil, err
	}

	return programs, nil
}

// clean trims the text and collapses runs of white space, including non-breaking spaces
func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
