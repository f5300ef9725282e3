// Package links turns raw HTML into the set of canonical outbound URLs a page references.
package links

import (
	"bytes"
	"net/url"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
)

// linkSources maps a CSS selector to the attribute carrying the link target
var linkSources = []struct {
	selector string
	attr     string
}{
	{"a[href], area[href]", "href"},
	{"frame[src], iframe[src]", "src"},
}

// Extractor pulls hyperlinks out of HTML documents
type Extractor struct{}

// NewExtractor creates a link extractor
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract returns the distinct canonical http(s) URLs referenced by body,
// resolved against baseURL. The page's own URL is never part of the result.
// Malformed input yields an empty or partial set, never an error.
func (e *Extractor) Extract(body []byte, baseURL string) []string {
	base, err := url.Parse(baseURL)
	if err != nil {
		logrus.Debugf("Skipping extraction, bad base url %q: %v", baseURL, err)
		return []string{}
	}
	self, _ := canonical(base)

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		logrus.Debugf("Failed to parse HTML from %s: %v", baseURL, err)
		return []string{}
	}

	seen := make(map[string]bool)
	result := make([]string, 0)

	for _, source := range linkSources {
		doc.Find(source.selector).Each(func(_ int, s *goquery.Selection) {
			raw, _ := s.Attr(source.attr)
			link, ok := resolve(base, raw)
			if !ok || link == self || seen[link] {
				return
			}
			seen[link] = true
			result = append(result, link)
		})
	}

	return result
}

// resolve turns a raw attribute value into a canonical absolute URL
func resolve(base *url.URL, raw string) (string, bool) {
	ref, err := url.Parse(trimRef(raw))
	if err != nil {
		return "", false
	}
	link, err := canonical(base.ResolveReference(ref))
	if err != nil {
		return "", false
	}
	return link, true
}
