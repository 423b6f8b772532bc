// Package session defines the page session the matcher and extractor drive, and an HTTP
// implementation of it.
//
// A Session navigates, waits for elements, types, clicks and exposes the current document.
// HTTPSession does this without a browser: it fetches pages with resty, keeps the parsed
// document as form state, and submits forms when Enter is pressed. Any other automation
// backend can be used by implementing Session.
package session
