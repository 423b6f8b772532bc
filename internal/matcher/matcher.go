package matcher

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/antzucaro/matchr"

	"github.com/pfrederiksen/collegenav/internal/htmlutil"
	"github.com/pfrederiksen/collegenav/internal/institution"
	"github.com/pfrederiksen/collegenav/internal/logger"
	"github.com/pfrederiksen/collegenav/internal/normalize"
	"github.com/pfrederiksen/collegenav/internal/session"
)

const (
	DefaultBaseURL     = "https://nces.ed.gov/collegenavigator/"
	DefaultWaitTimeout = 5 * time.Second
	DefaultMaxPages    = 100
)

// Selectors for the search and results pages.
const (
	SearchBoxSelector = "#ctl00_cphCollegeNavBody_ucSearchMain_txtName"
	StateSelector     = "#ctl00_cphCollegeNavBody_ucSearchMain_ucMapMain_lstState"
	NoResultsSelector = "div.noresults"
	ResultsSelector   = "table.resultsTable"
	RowSelector       = "table.resultsTable tbody tr"
	NameSelector      = "td:nth-child(2) > a > strong"
	NextPageSelector  = `a:contains("Next Page")`
)

// Options configures a Matcher
type Options struct {
	BaseURL     string
	WaitTimeout time.Duration
	MaxPages    int
	Logger      *logger.Logger
}

// Matcher locates institutions through a page session
type Matcher struct {
	session  session.Session
	baseURL  string
	timeout  time.Duration
	maxPages int
	log      *logger.Logger
}

// New creates a Matcher. Zero options take the package defaults.
func New(sess session.Session, opts Options) *Matcher {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.WaitTimeout <= 0 {
		opts.WaitTimeout = DefaultWaitTimeout
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = DefaultMaxPages
	}
	if opts.Logger == nil {
		opts.Logger = logger.Default()
	}
	return &Matcher{
		session:  sess,
		baseURL:  opts.BaseURL,
		timeout:  opts.WaitTimeout,
		maxPages: opts.MaxPages,
		log:      opts.Logger,
	}
}

// Find searches for in and returns the locator of its detail page.
//
// Errors are *institution.NotFoundError when the directory has no matching listing, context
// errors when ctx ends, and *institution.TransientError for everything else.
func (m *Matcher) Find(ctx context.Context, in institution.InputRecord) (string, error) {
	target := institution.NewTarget(in)

	if err := m.search(ctx, in.Name, target.StateName); err != nil {
		return "", err
	}

	nearest := candidate{}
	for page := 1; ; page++ {
		if err := m.waitResults(ctx); err != nil {
			return "", err
		}

		doc, err := m.session.Document()
		if err != nil {
			return "", institution.Transient("reading results", err)
		}
		rows := ParseResults(doc)

		m.log.Debug("Results page parsed", logger.Fields{
			"institution": in.Name,
			"page":        page,
			"rows":        len(rows),
		})

		for _, row := range rows {
			if target.Matches(row) {
				m.log.Debug("Institution matched", logger.Fields{
					"institution": in.Name,
					"page":        page,
					"listing":     row.Name,
				})
				return row.Locator, nil
			}
			nearest.consider(target.Name, row.Name)
		}

		if doc.Find(NextPageSelector).Length() == 0 {
			return "", nearest.notFound("no matching listing")
		}
		if page >= m.maxPages {
			return "", nearest.notFound(fmt.Sprintf("no match within %d result pages", m.maxPages))
		}
		if err := m.session.Click(ctx, NextPageSelector); err != nil {
			return "", wrap("opening next results page", err)
		}
	}
}

// search fills in and submits the search form
func (m *Matcher) search(ctx context.Context, name, stateName string) error {
	if err := m.session.Navigate(ctx, m.baseURL); err != nil {
		return wrap("opening search page", err)
	}
	if _, err := m.session.Wait(ctx, SearchBoxSelector, m.timeout); err != nil {
		return wrap("waiting for search box", err)
	}
	if err := m.session.SendInput(ctx, SearchBoxSelector, session.KeySelectAll+session.KeyDelete); err != nil {
		return wrap("clearing search box", err)
	}
	if err := m.session.SendInput(ctx, SearchBoxSelector, name); err != nil {
		return wrap("typing institution name", err)
	}
	// one rune at a time so the selector's type-ahead lands on the full name
	for _, r := range stateName {
		if err := m.session.SendInput(ctx, StateSelector, string(r)); err != nil {
			return wrap("choosing state", err)
		}
	}
	if err := m.session.SendInput(ctx, StateSelector, session.KeyEnter); err != nil {
		return wrap("submitting search", err)
	}
	return nil
}

// waitResults waits for a results table. The no-results indicator and a missing table are
// both NotFound.
func (m *Matcher) waitResults(ctx context.Context) error {
	_, err := m.session.Wait(ctx, ResultsSelector+", "+NoResultsSelector, m.timeout)
	switch {
	case errors.Is(err, session.ErrTimeout):
		return &institution.NotFoundError{Reason: "results table did not appear"}
	case err != nil:
		return wrap("waiting for results", err)
	}

	doc, err := m.session.Document()
	if err != nil {
		return institution.Transient("reading results", err)
	}
	if doc.Find(ResultsSelector).Length() == 0 && doc.Find(NoResultsSelector).Length() > 0 {
		return &institution.NotFoundError{Reason: "search returned no results"}
	}
	return nil
}

// wrap passes context errors through and marks the rest transient
func wrap(op string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	return institution.Transient(op, err)
}

// ParseResults reads the listing rows of a results page. Locators are resolved against the
// document URL when it is known.
func ParseResults(doc *goquery.Document) []institution.SearchResultRow {
	var rows []institution.SearchResultRow

	doc.Find(RowSelector).Each(func(_ int, tr *goquery.Selection) {
		name := tr.Find(NameSelector).First()
		if name.Length() == 0 {
			return
		}
		cell := name.Closest("td")
		city, state := SplitLocation(htmlutil.DirectText(cell))

		row := institution.SearchResultRow{
			Name:  strings.TrimSpace(name.Text()),
			City:  city,
			State: state,
		}
		if href, ok := name.Parent().Attr("href"); ok {
			row.Locator = resolve(doc.Url, href)
		}
		rows = append(rows, row)
	})

	return rows
}

// SplitLocation splits "City, State" text into its first and last comma-separated segments.
// Cities that themselves contain commas lose everything after their first comma.
func SplitLocation(text string) (city, state string) {
	parts := strings.Split(text, ",")
	city = strings.TrimSpace(parts[0])
	if len(parts) > 1 {
		state = strings.TrimSpace(parts[len(parts)-1])
	}
	return city, state
}

func resolve(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if base == nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

// candidate tracks the listing most similar to the target name
type candidate struct {
	name       string
	similarity float64
}

func (c *candidate) consider(targetKey, listing string) {
	score := matchr.JaroWinkler(targetKey, normalize.Key(listing), false)
	if c.name == "" || score > c.similarity {
		c.name = listing
		c.similarity = score
	}
}

func (c candidate) notFound(reason string) error {
	return &institution.NotFoundError{
		Reason:     reason,
		Closest:    c.name,
		Similarity: c.similarity,
	}
}
