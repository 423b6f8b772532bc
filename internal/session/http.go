package session

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"golang.org/x/net/html"
	"golang.org/x/time/rate"
)

const (
	DefaultUserAgent      = "collegenav/1.0 (github.com/pfrederiksen/collegenav)"
	DefaultRequestTimeout = 30 * time.Second
	DefaultPollInterval   = 100 * time.Millisecond
)

// Options configures an HTTPSession
type Options struct {
	UserAgent         string
	RequestTimeout    time.Duration
	RequestsPerSecond float64 // 0 disables rate limiting
	PollInterval      time.Duration
}

// HTTPSession is a Session backed by plain HTTP requests
type HTTPSession struct {
	client       *resty.Client
	pollInterval time.Duration

	url *url.URL
	doc *goquery.Document

	// per-element keyboard state, reset on every page load
	allSelected map[*html.Node]bool
	typeahead   map[*html.Node]string
}

// NewHTTPSession creates a session with its own cookie jar
func NewHTTPSession(opts Options) (*HTTPSession, error) {
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("creating cookie jar: %w", err)
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	limiter := rate.NewLimiter(limit, 1)

	client := resty.New()
	client.SetCookieJar(jar)
	client.SetHeader("User-Agent", opts.UserAgent)
	client.SetTimeout(opts.RequestTimeout)
	client.SetRedirectPolicy(resty.FlexibleRedirectPolicy(10))
	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return limiter.Wait(req.Context())
	})

	return &HTTPSession{
		client:       client,
		pollInterval: opts.PollInterval,
	}, nil
}

// Navigate fetches rawURL with GET
func (s *HTTPSession) Navigate(ctx context.Context, rawURL string) error {
	target, err := s.resolve(rawURL)
	if err != nil {
		return err
	}
	resp, err := s.client.R().SetContext(ctx).Get(target.String())
	return s.load(target, resp, err)
}

func (s *HTTPSession) post(ctx context.Context, target *url.URL, form url.Values) error {
	resp, err := s.client.R().SetContext(ctx).SetFormDataFromValues(form).Post(target.String())
	return s.load(target, resp, err)
}

// load installs the response as the current document
func (s *HTTPSession) load(requested *url.URL, resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("fetching %s: %w", requested, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return &StatusError{URL: requested.String(), StatusCode: resp.StatusCode()}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body()))
	if err != nil {
		return fmt.Errorf("parsing HTML from %s: %w", requested, err)
	}

	final := requested
	if resp.RawResponse != nil && resp.RawResponse.Request != nil && resp.RawResponse.Request.URL != nil {
		final = resp.RawResponse.Request.URL
	}
	doc.Url = final

	s.url = final
	s.doc = doc
	s.allSelected = make(map[*html.Node]bool)
	s.typeahead = make(map[*html.Node]string)
	return nil
}

// resolve makes ref absolute against the current page
func (s *HTTPSession) resolve(ref string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return nil, fmt.Errorf("parsing url %q: %w", ref, err)
	}
	if s.url != nil {
		u = s.url.ResolveReference(u)
	}
	if !u.IsAbs() {
		return nil, fmt.Errorf("url %q is not absolute and no page is loaded", ref)
	}
	u.Fragment = ""
	return u, nil
}

// Wait polls the current document for selector
func (s *HTTPSession) Wait(ctx context.Context, selector string, timeout time.Duration) (*goquery.Selection, error) {
	deadline := time.Now().Add(timeout)
	for {
		if s.doc != nil {
			if sel := s.doc.Find(selector); sel.Length() > 0 {
				return sel, nil
			}
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, fmt.Errorf("waiting for %q: %w", selector, ErrTimeout)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(min(s.pollInterval, remaining)):
		}
	}
}

// Document returns the current document
func (s *HTTPSession) Document() (*goquery.Document, error) {
	if s.doc == nil {
		return nil, ErrNoPage
	}
	return s.doc, nil
}

// URL returns the address of the current document, or nil before the first load
func (s *HTTPSession) URL() *url.URL {
	return s.url
}

// Close drops idle connections
func (s *HTTPSession) Close() error {
	s.client.GetClient().CloseIdleConnections()
	s.doc = nil
	s.url = nil
	return nil
}

func (s *HTTPSession) element(selector string) (*goquery.Selection, error) {
	if s.doc == nil {
		return nil, ErrNoPage
	}
	sel := s.doc.Find(selector).First()
	if sel.Length() == 0 {
		return nil, fmt.Errorf("%q: %w", selector, ErrNoElement)
	}
	return sel, nil
}

// SendInput types text into a text input or a select element
func (s *HTTPSession) SendInput(ctx context.Context, selector, text string) error {
	el, err := s.element(selector)
	if err != nil {
		return err
	}

	tag := goquery.NodeName(el)
	if tag != "input" && tag != "select" && tag != "textarea" {
		return fmt.Errorf("cannot type into <%s> %q", tag, selector)
	}

	node := el.Nodes[0]
	ctrl := false
	for _, r := range text {
		key := string(r)
		switch {
		case key == KeyControl:
			ctrl = true
		case ctrl:
			// chords other than select-all are ignored
			ctrl = false
			if r == 'a' || r == 'A' {
				s.allSelected[node] = true
			}
		case key == KeyEnter:
			return s.submit(ctx, el, nil)
		case key == KeyDelete || key == KeyBackspace:
			if tag == "select" {
				continue
			}
			value := fieldValue(el)
			switch {
			case s.allSelected[node]:
				value = ""
			case key == KeyBackspace && value != "":
				rs := []rune(value)
				value = string(rs[:len(rs)-1])
			}
			s.allSelected[node] = false
			setFieldValue(el, value)
		case r >= 0xe000 && r <= 0xe05f:
			// other WebDriver keys have no effect on a static document
		default:
			if tag == "select" {
				s.typeahead[node] += key
				selectByPrefix(el, s.typeahead[node])
				continue
			}
			value := fieldValue(el)
			if s.allSelected[node] {
				value = ""
				s.allSelected[node] = false
			}
			setFieldValue(el, value+key)
		}
	}
	return nil
}

// Click follows a link or presses a submit button
func (s *HTTPSession) Click(ctx context.Context, selector string) error {
	el, err := s.element(selector)
	if err != nil {
		return err
	}

	switch goquery.NodeName(el) {
	case "a":
		href, ok := el.Attr("href")
		href = strings.TrimSpace(href)
		if !ok || href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(strings.ToLower(href), "javascript:") {
			return fmt.Errorf("link %q has no navigable href", selector)
		}
		return s.Navigate(ctx, href)
	case "input", "button":
		typ := strings.ToLower(el.AttrOr("type", "submit"))
		if typ != "submit" && typ != "image" {
			return fmt.Errorf("%q is not a submit control", selector)
		}
		return s.submit(ctx, el, el)
	}
	return fmt.Errorf("clicking <%s> %q is not supported", goquery.NodeName(el), selector)
}

// submit sends the form owning el. submitter, when set, contributes its name/value.
func (s *HTTPSession) submit(ctx context.Context, el, submitter *goquery.Selection) error {
	form := el.Closest("form")
	if form.Length() == 0 {
		return fmt.Errorf("element is not inside a form")
	}

	target, err := s.resolve(form.AttrOr("action", ""))
	if err != nil {
		return err
	}
	values := formValues(form, submitter)

	if strings.EqualFold(form.AttrOr("method", "get"), "post") {
		return s.post(ctx, target, values)
	}
	target.RawQuery = values.Encode()
	resp, err := s.client.R().SetContext(ctx).Get(target.String())
	return s.load(target, resp, err)
}
