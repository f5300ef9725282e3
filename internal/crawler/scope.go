package crawler

import (
	"strings"

	"github.com/alvmarrod/link-graph/internal/config"
	"github.com/alvmarrod/link-graph/internal/links"
)

// Scope decides whether a discovered link belongs to the crawl domain
type Scope struct {
	token string
	mode  string
}

// NewScope creates a domain restriction for token using the given match mode
func NewScope(token, mode string) *Scope {
	if mode == "" {
		mode = config.MatchSubstring
	}
	return &Scope{
		token: strings.TrimSpace(token),
		mode:  mode,
	}
}

// Allows reports whether link is eligible for crawling and graph inclusion.
//
// In substring mode the token may appear anywhere in the URL, so
// "caltech.edu" also accepts "http://notcaltech.education.org/". Host mode
// requires the hostname to equal the token or end with "."+token.
func (s *Scope) Allows(link string) bool {
	if s.token == "" {
		return false
	}

	if s.mode == config.MatchHost {
		host := links.Host(link)
		token := strings.ToLower(s.token)
		return host == token || strings.HasSuffix(host, "."+token)
	}

	return strings.Contains(link, s.token)
}
