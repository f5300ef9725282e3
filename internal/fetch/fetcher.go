// Package fetch retrieves single pages over HTTP and reports why a page
// produced no usable HTML instead of failing.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gocolly/colly/v2"
)

const (
	DefaultUserAgent = "Mozilla/5.0"
	DefaultTimeout   = 2 * time.Second
)

var errNoResponse = errors.New("fetch produced no response")

// Config controls collector behavior
type Config struct {
	UserAgent string
	Timeout   time.Duration
}

// Fetcher performs one GET per call using a Colly collector
type Fetcher struct {
	cfg           Config
	baseCollector *colly.Collector
}

// New builds a Fetcher
func New(cfg Config) *Fetcher {
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	c := colly.NewCollector(
		colly.Async(false),
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(), // deduplication belongs to the scheduler
		colly.IgnoreRobotsTxt(),
		colly.ParseHTTPErrorResponse(), // status is judged in handleResponse
		colly.MaxBodySize(0),           // links at the end of large pages count too
	)
	c.WithTransport(newHTTPTransport(cfg.Timeout))
	c.SetRequestTimeout(cfg.Timeout)

	return &Fetcher{
		cfg:           cfg,
		baseCollector: c,
	}
}

// Fetch GETs rawURL and returns the page when it is HTML.
// Ordinary failures are reported through Result.Reason with a nil error;
// only cancellation of ctx is returned as an error.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (Result, error) {
	result := Result{URL: rawURL, FinalURL: rawURL}
	if err := ctx.Err(); err != nil {
		return result, fmt.Errorf("fetch %s: %w", rawURL, err)
	}

	start := time.Now()
	collector := f.baseCollector.Clone()
	collector.Context = ctx

	var fetchErr error
	collector.OnResponse(func(r *colly.Response) {
		f.handleResponse(r, &result)
	})
	collector.OnError(func(r *colly.Response, err error) {
		fetchErr = err
		if r != nil {
			result.StatusCode = r.StatusCode
			if r.Request != nil && r.Request.URL != nil {
				result.FinalURL = r.Request.URL.String()
			}
		}
	})

	visitErr := collector.Visit(rawURL)
	result.Duration = time.Since(start)

	if err := ctx.Err(); err != nil {
		return Result{URL: rawURL, FinalURL: rawURL, Duration: result.Duration},
			fmt.Errorf("fetch %s: %w", rawURL, err)
	}

	if fetchErr == nil {
		fetchErr = visitErr
	}
	if fetchErr == nil && result.Reason == "" {
		fetchErr = errNoResponse
	}
	if fetchErr != nil {
		result.Body = nil
		result.Reason = classify(fetchErr, result.StatusCode)
		result.Err = fetchErr
	}

	return result, nil
}

func (f *Fetcher) handleResponse(r *colly.Response, result *Result) {
	result.StatusCode = r.StatusCode
	if r.Request != nil && r.Request.URL != nil {
		result.FinalURL = r.Request.URL.String()
	}
	if r.Headers != nil {
		result.ContentType = r.Headers.Get("Content-Type")
	}

	switch {
	case r.StatusCode < 200 || r.StatusCode >= 300:
		result.Reason = ReasonHTTPStatus
		result.Err = fmt.Errorf("unexpected status %d %s", r.StatusCode, http.StatusText(r.StatusCode))
	case !IsHTML(result.ContentType):
		result.Reason = ReasonNonHTML
	case !utf8.Valid(r.Body):
		result.Reason = ReasonDecode
	default:
		result.Reason = ReasonOK
		result.Body = append([]byte(nil), r.Body...)
	}
}

// IsHTML reports whether a Content-Type header denotes an HTML document
func IsHTML(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "text/html")
}

// classify maps a transport or protocol failure to a Reason
func classify(err error, statusCode int) Reason {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return ReasonTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		return ReasonTimeout
	case statusCode != 0:
		return ReasonHTTPStatus
	default:
		return ReasonError
	}
}

func newHTTPTransport(timeout time.Duration) *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   timeout,
		ResponseHeaderTimeout: timeout,
		MaxIdleConns:          16,
		IdleConnTimeout:       30 * time.Second,
	}
}
