// Package htmlutil holds small DOM text helpers shared by the matcher and extractor.
package htmlutil

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// DirectText concatenates the text nodes that are direct children of the selected
// elements, skipping text inside nested markup such as <sup> footnotes or links.
func DirectText(sel *goquery.Selection) string {
	var b strings.Builder
	for _, n := range sel.Nodes {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.TextNode {
				b.WriteString(c.Data)
			}
		}
	}
	return strings.TrimSpace(b.String())
}
