package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Keystrokes use the WebDriver code points so the same strings drive a browser backend.
const (
	KeyBackspace = "\ue003"
	KeyEnter     = "\ue007"
	KeyControl   = "\ue009"
	KeyDelete    = "\ue017"

	// KeySelectAll selects the whole content of a text field. KeyControl modifies only the
	// rune that follows it.
	KeySelectAll = KeyControl + "a"
)

var (
	ErrTimeout   = errors.New("timed out waiting for element")
	ErrNoElement = errors.New("element not found")
	ErrNoPage    = errors.New("no page loaded")
)

// Session is a single, stateful page session. It is not safe for concurrent use.
type Session interface {
	// Navigate loads url, replacing the current document.
	Navigate(ctx context.Context, url string) error
	// Wait polls until selector matches in the current document or timeout elapses.
	Wait(ctx context.Context, selector string, timeout time.Duration) (*goquery.Selection, error)
	// SendInput types text, which may contain Key* sequences, into the first match of selector.
	SendInput(ctx context.Context, selector, text string) error
	// Click activates the first match of selector.
	Click(ctx context.Context, selector string) error
	// Document returns the current document.
	Document() (*goquery.Document, error)
	// Close releases the session.
	Close() error
}

// StatusError is returned for non-200 responses
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code %d from %s", e.StatusCode, e.URL)
}
