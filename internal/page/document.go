// Package page wraps a fetched HTML document with its resolved base URL so
// extractors can select fragments and absolutize discovered links.
package page

import (
	"bytes"
	"fmt"
	"net/url"

	"github.com/PuerkitoBio/goquery"
)

// Document is a parsed HTML page plus the URL it was ultimately served from
// (after redirects).
type Document struct {
	doc  *goquery.Document
	base *url.URL
}

// New parses body into a Document rooted at baseURL.
func New(baseURL string, body []byte) (*Document, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url %q: %w", baseURL, err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return &Document{doc: doc, base: base}, nil
}

// URL returns the document's resolved base URL.
func (d *Document) URL() string {
	return d.base.String()
}

// Find selects fragments by CSS selector.
func (d *Document) Find(selector string) *goquery.Selection {
	return d.doc.Find(selector)
}

// AbsoluteURL resolves ref against the document's base URL. It returns the
// empty string when ref cannot be parsed, mirroring how link discovery
// treats unusable hrefs.
func (d *Document) AbsoluteURL(ref string) string {
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	return d.base.ResolveReference(u).String()
}
