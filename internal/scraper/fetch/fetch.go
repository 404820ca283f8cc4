// Package fetch issues single HTTP requests against the provider and the
// payment gateway and returns the decoded document text.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/grez-lucas/portal-scraper/internal/scraper/portal"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

const (
	DefaultTimeout = 15 * time.Second

	// MinimalUserAgent is sent to every endpoint that does not care.
	MinimalUserAgent = "Mozilla/5.0"
)

var (
	// Provider pages are served in a legacy single-byte encoding.
	Windows1251 encoding.Encoding = charmap.Windows1251
	UTF8        encoding.Encoding = unicode.UTF8
)

// Lookup resolves an encoding label such as "windows-1251" or "utf-8".
func Lookup(label string) (encoding.Encoding, error) {
	enc, name := charset.Lookup(strings.TrimSpace(label))
	if enc == nil {
		return nil, fmt.Errorf("unknown encoding %q", label)
	}
	if name == "utf-8" {
		return UTF8, nil
	}
	return enc, nil
}

type Request struct {
	Method  string
	URL     string
	Form    url.Values
	Cookies map[string]string
	// UserAgent defaults to MinimalUserAgent.
	UserAgent string
	// Encoding the body is decoded with. The choice is per endpoint and
	// never sniffed from the response; nil means the Fetcher default.
	Encoding encoding.Encoding
}

type Response struct {
	Body       string
	StatusCode int
	URL        *url.URL
	// Cookies set by the final response and by every redirect before it.
	Cookies map[string]string
	// Truncated reports that the server closed the connection early and
	// Body holds what arrived before that.
	Truncated bool
}

// StatusError reports an error status from the server. Fetch returns it
// next to a Response whose Body holds the decoded error page.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%v: %s %s: HTTP %d", portal.ErrTransport, e.Method, e.URL, e.StatusCode)
}

func (e *StatusError) Unwrap() error {
	return portal.ErrTransport
}

type Fetcher struct {
	client   *http.Client
	encoding encoding.Encoding
	logger   *slog.Logger
}

type Option func(*Fetcher)

func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.client.Timeout = d
	}
}

// WithTransport swaps the round tripper, e.g. for HAR replay in tests.
func WithTransport(rt http.RoundTripper) Option {
	return func(f *Fetcher) {
		f.client.Transport = rt
	}
}

func WithDefaultEncoding(enc encoding.Encoding) Option {
	return func(f *Fetcher) {
		f.encoding = enc
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		client:   &http.Client{Timeout: DefaultTimeout},
		encoding: Windows1251,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch performs one request. A body cut short by the server is returned as
// success as long as at least one byte arrived. An HTTP status of 400 or
// above yields both the Response and a *StatusError.
func (f *Fetcher) Fetch(ctx context.Context, req Request) (*Response, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	httpReq, err := f.newRequest(ctx, method, req)
	if err != nil {
		return nil, err
	}

	cookies := make(map[string]string)
	client := *f.client
	client.CheckRedirect = func(next *http.Request, via []*http.Request) error {
		if len(via) >= 10 {
			return errors.New("stopped after 10 redirects")
		}
		if next.Response != nil {
			for _, c := range next.Response.Cookies() {
				cookies[c.Name] = c.Value
			}
		}
		overlayCookies(next, cookies)
		return nil
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, classify(err)
	}
	defer resp.Body.Close()

	f.logger.Debug("portal request", "method", method, "url", req.URL, "status", resp.StatusCode)

	for _, c := range resp.Cookies() {
		cookies[c.Name] = c.Value
	}

	raw, readErr := io.ReadAll(resp.Body)
	truncated := false
	if readErr != nil {
		if len(raw) == 0 {
			return nil, fmt.Errorf("%w: %s %s: %v", portal.ErrTransport, method, req.URL, readErr)
		}
		truncated = true
		f.logger.Warn("tolerating truncated response", "url", req.URL, "bytes", len(raw), "error", readErr)
	}

	enc := req.Encoding
	if enc == nil {
		enc = f.encoding
	}
	body, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return nil, &StatusError{Method: method, URL: req.URL, StatusCode: resp.StatusCode}
		}
		return nil, fmt.Errorf("%w: decode %s: %v", portal.ErrParsingFailed, req.URL, err)
	}

	finalURL := httpReq.URL
	if resp.Request != nil {
		finalURL = resp.Request.URL
	}

	out := &Response{
		Body:       string(body),
		StatusCode: resp.StatusCode,
		URL:        finalURL,
		Cookies:    cookies,
		Truncated:  truncated,
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return out, &StatusError{Method: method, URL: req.URL, StatusCode: resp.StatusCode}
	}
	return out, nil
}

// overlayCookies rewrites the Cookie header of a redirect hop so that every
// name appears once and cookies set along the chain replace the ones the
// request started with.
func overlayCookies(next *http.Request, set map[string]string) {
	if len(set) == 0 {
		return
	}
	merged := make(map[string]string)
	for _, c := range next.Cookies() {
		merged[c.Name] = c.Value
	}
	maps.Copy(merged, set)

	next.Header.Del("Cookie")
	for _, name := range slices.Sorted(maps.Keys(merged)) {
		next.AddCookie(&http.Cookie{Name: name, Value: merged[name]})
	}
}

func (f *Fetcher) newRequest(ctx context.Context, method string, req Request) (*http.Request, error) {
	target := req.URL
	var body io.Reader
	if len(req.Form) > 0 {
		if method == http.MethodGet {
			u, err := url.Parse(req.URL)
			if err != nil {
				return nil, fmt.Errorf("parse url %q: %w", req.URL, err)
			}
			q := u.Query()
			for k, vs := range req.Form {
				for _, v := range vs {
					q.Add(k, v)
				}
			}
			u.RawQuery = q.Encode()
			target = u.String()
		} else {
			body = strings.NewReader(req.Form.Encode())
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build request %s %s: %w", method, req.URL, err)
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	ua := req.UserAgent
	if ua == "" {
		ua = MinimalUserAgent
	}
	httpReq.Header.Set("User-Agent", ua)
	// The provider's server misbehaves on keep-alive.
	httpReq.Close = true

	for name, value := range req.Cookies {
		httpReq.AddCookie(&http.Cookie{Name: name, Value: value})
	}

	return httpReq, nil
}

func classify(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w (%w): %v", portal.ErrTransport, portal.ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", portal.ErrTransport, err)
}
