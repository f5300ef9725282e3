package fetch

import "time"

// Reason explains why a fetch did or did not produce content
type Reason string

const (
	ReasonOK         Reason = "ok"
	ReasonTimeout    Reason = "timeout"
	ReasonNonHTML    Reason = "non_html"
	ReasonHTTPStatus Reason = "http_status"
	ReasonDecode     Reason = "decode"
	ReasonError      Reason = "error"
)

// Result is the outcome of fetching one URL
type Result struct {
	URL         string // requested url
	FinalURL    string // url after redirects
	StatusCode  int
	ContentType string
	Body        []byte // only set when Reason is ReasonOK
	Reason      Reason
	Err         error // underlying failure, if any
	Duration    time.Duration
}

// HasContent reports whether the fetch produced an HTML body
func (r Result) HasContent() bool {
	return r.Reason == ReasonOK
}
