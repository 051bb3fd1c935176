// Package fetch downloads web pages for discovery and search.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/net/html/charset"
)

const (
	DefaultTimeout  = 12 * time.Second
	DefaultRetryMax = 2
	DefaultMaxBody  = 2 << 20

	DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64; rv:128.0) Gecko/20100101 Firefox/128.0"
)

// Header is a single request header.
type Header struct {
	Name  string
	Value string
}

// Request describes one GET.
type Request struct {
	URL     string
	Headers []Header
}

// Page is a fetched and decoded response.
type Page struct {
	URL         string
	StatusCode  int
	ContentType string
	Body        string
}

// Error is returned for every failed fetch.
type Error struct {
	URL        string
	StatusCode int
	// Transient is true for failures worth retrying on a later run:
	// timeouts, connection errors, 5xx and 429.
	Transient bool
	Cause     error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

// Options configures a Fetcher. Unset durations and sizes fall back to the
// defaults; a negative RetryMax selects DefaultRetryMax.
type Options struct {
	Timeout      time.Duration
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	MaxBody      int64
	UserAgent    string
	Limiter      *HostLimiter
}

// Fetcher is a retrying, rate-limited HTTP client.
type Fetcher struct {
	client  *retryablehttp.Client
	limiter *HostLimiter
	maxBody int64
	ua      string
}

// New builds a Fetcher.
func New(opts Options) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.RetryMax < 0 {
		opts.RetryMax = DefaultRetryMax
	}
	if opts.MaxBody <= 0 {
		opts.MaxBody = DefaultMaxBody
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}

	c := retryablehttp.NewClient()
	c.Logger = log.New(io.Discard, "", 0)
	c.RetryMax = opts.RetryMax
	if opts.RetryWaitMin > 0 {
		c.RetryWaitMin = opts.RetryWaitMin
	}
	if opts.RetryWaitMax > 0 {
		c.RetryWaitMax = opts.RetryWaitMax
	}
	c.HTTPClient.Timeout = opts.Timeout
	c.CheckRetry = checkRetry
	c.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &Fetcher{
		client:  c,
		limiter: opts.Limiter,
		maxBody: opts.MaxBody,
		ua:      opts.UserAgent,
	}
}

// checkRetry retries connection errors and 5xx. A 429 means the host wants
// us gone, so it is not retried within a run.
func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if resp != nil && resp.StatusCode == http.StatusTooManyRequests {
		return false, nil
	}
	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}

// Fetch GETs rawURL with browser-like headers.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	return f.Do(ctx, Request{URL: rawURL})
}

// Do performs req. Any non-200 answer is an *Error.
func (f *Fetcher) Do(ctx context.Context, req Request) (*Page, error) {
	if f.limiter != nil {
		if err := f.limiter.WaitURL(ctx, req.URL); err != nil {
			return nil, err
		}
	}

	hreq, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return nil, &Error{URL: req.URL, Cause: err}
	}
	hreq.Header.Set("User-Agent", f.ua)
	hreq.Header.Set("Accept", "text/html,application/xhtml+xml,application/json;q=0.9,*/*;q=0.8")
	hreq.Header.Set("Accept-Language", "en-US,en;q=0.5")
	for _, h := range req.Headers {
		hreq.Header.Set(h.Name, h.Value)
	}

	resp, err := f.client.Do(hreq)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &Error{URL: req.URL, Transient: isTransient(err), Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, &Error{
			URL:        req.URL,
			StatusCode: resp.StatusCode,
			Transient:  resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests,
			Cause:      fmt.Errorf("unexpected status %s", resp.Status),
		}
	}

	ct := resp.Header.Get("Content-Type")
	body, err := readBody(resp.Body, ct, f.maxBody)
	if err != nil {
		return nil, &Error{URL: req.URL, StatusCode: resp.StatusCode, Transient: true, Cause: err}
	}

	final := req.URL
	if resp.Request != nil && resp.Request.URL != nil {
		final = resp.Request.URL.String()
	}
	return &Page{URL: final, StatusCode: resp.StatusCode, ContentType: ct, Body: body}, nil
}

func readBody(r io.Reader, contentType string, max int64) (string, error) {
	limited := io.LimitReader(r, max)
	if strings.Contains(strings.ToLower(contentType), "json") {
		b, err := io.ReadAll(limited)
		return string(b), err
	}
	decoded, err := charset.NewReader(limited, contentType)
	if err != nil {
		return "", fmt.Errorf("decode charset: %w", err)
	}
	b, err := io.ReadAll(decoded)
	if err != nil {
		return "", err
	}
	return strings.ToValidUTF8(string(b), ""), nil
}

func isTransient(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr) || errors.Is(err, io.ErrUnexpectedEOF)
}

// IsTransient reports whether err is a fetch error worth retrying later.
func IsTransient(err error) bool {
	var fe *Error
	return errors.As(err, &fe) && fe.Transient
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.StatusCode
	}
	return 0
}
