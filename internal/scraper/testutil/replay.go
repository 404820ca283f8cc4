package testutil

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"golang.org/x/net/html/charset"
)

const maxRedirects = 10

// Replayer serves recorded HTTP responses during test execution, either as
// an http.RoundTripper for the fetcher or as a rod hijack handler.
type Replayer struct {
	mu sync.Mutex

	// methodMatches maps "METHOD URL" to the entries recorded for it, in
	// order. Repeated requests consume them one by one; the last one
	// keeps being served.
	methodMatches map[string][]*HAREntry

	// exactMatches maps full URLs to entries
	exactMatches map[string]*HAREntry

	// pathMatches maps URL paths (without query params) to entries
	// Used as fallback when exact match fails
	pathMatches map[string]*HAREntry

	// passthrough allows unmatched requests to go to the network
	passthrough bool
	next        http.RoundTripper

	logger *slog.Logger
}

// ReplayerOption configures a Replayer.
type ReplayerOption func(*Replayer)

// WithPassthrough allows unmatched requests to go to the real network.
// By default, unmatched requests will fail.
func WithPassthrough(enabled bool) ReplayerOption {
	return func(r *Replayer) {
		r.passthrough = enabled
	}
}

// WithVerbose enables verbose logging of request matching.
func WithVerbose(enabled bool) ReplayerOption {
	return func(r *Replayer) {
		if enabled {
			r.logger = slog.Default().With("component", "replayer")
		}
	}
}

// NewReplayer creates a replayer from a HAR log.
func NewReplayer(har *HARLog, opts ...ReplayerOption) *Replayer {
	r := &Replayer{
		methodMatches: make(map[string][]*HAREntry),
		exactMatches:  make(map[string]*HAREntry),
		pathMatches:   make(map[string]*HAREntry),
		next:          http.DefaultTransport,
		logger:        slog.New(slog.DiscardHandler),
	}

	for _, opt := range opts {
		opt(r)
	}

	// Index entries for fast lookup
	for i := range har.Entries {
		entry := &har.Entries[i]
		reqURL := entry.Request.URL

		key := methodKey(entry.Request.Method, reqURL)
		r.methodMatches[key] = append(r.methodMatches[key], entry)

		if _, exists := r.exactMatches[reqURL]; !exists {
			r.exactMatches[reqURL] = entry
		}

		// Store path-only match (fallback)
		if pathKey, ok := pathKeyOf(reqURL); ok {
			// Only store first occurrence for path matches
			if _, exists := r.pathMatches[pathKey]; !exists {
				r.pathMatches[pathKey] = entry
			}
		}
	}

	return r
}

// Transport returns an http.RoundTripper that answers from the recording.
// Recorded 3xx responses are returned as-is so the client follows them and
// picks up their cookies.
func (r *Replayer) Transport() http.RoundTripper {
	return roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		reqURL := req.URL.String()

		entry, found := r.lookup(req.Method, reqURL)
		if !found {
			r.logger.Info("no match", "method", req.Method, "url", reqURL)
			if r.passthrough {
				return r.next.RoundTrip(req)
			}
			return r.notFoundResponse(req), nil
		}

		r.logger.Info("matched", "method", req.Method, "url", reqURL, "status", entry.Response.Status)
		return r.httpResponse(req, entry)
	})
}

// Middleware returns a Rod hijack handler that serves recorded responses.
// Use with router.MustAdd("*", replayer.Middleware()).
func (r *Replayer) Middleware() func(*rod.Hijack) {
	return func(ctx *rod.Hijack) {
		reqURL := ctx.Request.URL().String()

		entry, found := r.lookup(ctx.Request.Method(), reqURL)
		if !found {
			r.logger.Info("no match", "url", reqURL)

			if r.passthrough {
				// Let it go to the real network
				_ = ctx.LoadResponse(nil, true)
				return
			}

			// Fail with 404 for unmatched requests
			r.serveNotFound(ctx, reqURL)
			return
		}

		r.logger.Info("matched", "url", reqURL, "status", entry.Response.Status)
		r.serveRecordedResponse(ctx, entry)
	}
}

// lookup tries method+URL, then the URL alone, then the URL without query.
func (r *Replayer) lookup(method, reqURL string) (*HAREntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := methodKey(method, reqURL)
	if queue := r.methodMatches[key]; len(queue) > 0 {
		entry := queue[0]
		if len(queue) > 1 {
			r.methodMatches[key] = queue[1:]
		}
		return entry, true
	}

	if entry, ok := r.exactMatches[reqURL]; ok {
		return entry, true
	}

	if pathKey, ok := pathKeyOf(reqURL); ok {
		if entry, ok := r.pathMatches[pathKey]; ok {
			return entry, true
		}
	}

	return nil, false
}

func (r *Replayer) httpResponse(req *http.Request, entry *HAREntry) (*http.Response, error) {
	body, err := encodedBody(entry.Response)
	if err != nil {
		return nil, fmt.Errorf("replay %s: %w", req.URL, err)
	}

	header := make(http.Header)
	for _, h := range entry.Response.Headers {
		if strings.EqualFold(h.Name, "content-length") || strings.EqualFold(h.Name, "content-encoding") {
			continue
		}
		header.Add(h.Name, h.Value)
	}
	if header.Get("Content-Type") == "" && entry.Response.Content.MimeType != "" {
		header.Set("Content-Type", entry.Response.Content.MimeType)
	}
	header.Set("Content-Length", strconv.Itoa(len(body)))

	return &http.Response{
		Status:        fmt.Sprintf("%d %s", entry.Response.Status, http.StatusText(entry.Response.Status)),
		StatusCode:    entry.Response.Status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
		Request:       req,
	}, nil
}

func (r *Replayer) notFoundResponse(req *http.Request) *http.Response {
	body := []byte(`{"error": "no recording found for URL"}`)
	return &http.Response{
		Status:        "404 Not Found",
		StatusCode:    http.StatusNotFound,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        http.Header{"Content-Type": {"application/json"}},
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
		Request:       req,
	}
}

// serveRecordedResponse serves a recorded HAR entry as the response.
// For 3xx redirects, it follows the redirect chain and returns the final response.
func (r *Replayer) serveRecordedResponse(ctx *rod.Hijack, entry *HAREntry) {
	// Follow redirect chain if this is a 3xx response
	finalEntry := r.followRedirects(entry)
	resp := finalEntry.Response

	body, err := encodedBody(resp)
	if err != nil {
		body = []byte(resp.Content.Text)
	}

	// Build response headers for the protocol
	var protoHeaders []*proto.FetchHeaderEntry
	hasContentType := false
	for _, h := range resp.Headers {
		name := strings.ToLower(h.Name)
		// Skip problematic headers
		if name == "content-encoding" || name == "content-length" || name == "location" {
			continue
		}
		if name == "content-type" {
			hasContentType = true
		}
		protoHeaders = append(protoHeaders, &proto.FetchHeaderEntry{
			Name:  h.Name,
			Value: h.Value,
		})
	}
	if !hasContentType && resp.Content.MimeType != "" {
		protoHeaders = append(protoHeaders, &proto.FetchHeaderEntry{
			Name:  "Content-Type",
			Value: resp.Content.MimeType,
		})
	}

	// Set up the response payload directly
	payload := ctx.Response.Payload()
	payload.ResponseCode = resp.Status
	payload.ResponseHeaders = protoHeaders
	payload.Body = body
}

// followRedirects follows a redirect chain and returns the final entry.
// If the entry is not a redirect or the target is not in the HAR, returns the original entry.
func (r *Replayer) followRedirects(entry *HAREntry) *HAREntry {
	current := entry

	for range maxRedirects {
		// Check if this is a redirect (3xx status)
		if current.Response.Status < 300 || current.Response.Status >= 400 {
			return current
		}

		location := headerValue(current.Response.Headers, "location")
		if location == "" {
			return current
		}

		r.logger.Info("following redirect", "status", current.Response.Status, "location", location)

		target, found := r.lookup(http.MethodGet, location)
		if !found {
			r.logger.Info("redirect target not in HAR", "location", location)
			return current
		}

		current = target
	}

	return current
}

// serveNotFound serves a 404 response for unmatched requests.
func (r *Replayer) serveNotFound(ctx *rod.Hijack, reqURL string) {
	body := []byte(`{"error": "no recording found for URL"}`)

	payload := ctx.Response.Payload()
	payload.ResponseCode = 404
	payload.ResponseHeaders = []*proto.FetchHeaderEntry{
		{Name: "Content-Type", Value: "application/json"},
	}
	payload.Body = body

	r.logger.Info("404 not found", "url", reqURL)
}

// Stats returns statistics about the replayer's index.
func (r *Replayer) Stats() map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return map[string]int{
		"method_matches": len(r.methodMatches),
		"exact_matches":  len(r.exactMatches),
		"path_matches":   len(r.pathMatches),
	}
}

// encodedBody returns the recorded body bytes. Text content is stored
// decoded in the recording and is re-encoded with the charset named by the
// response content type, so legacy single-byte pages replay byte for byte.
func encodedBody(resp HARResponse) ([]byte, error) {
	if resp.Content.Encoding == "base64" {
		body, err := base64.StdEncoding.DecodeString(resp.Content.Text)
		if err != nil {
			return []byte(resp.Content.Text), nil
		}
		return body, nil
	}

	contentType := headerValue(resp.Headers, "content-type")
	if contentType == "" {
		contentType = resp.Content.MimeType
	}
	label := charsetLabel(contentType)
	if label == "" {
		return []byte(resp.Content.Text), nil
	}

	enc, name := charset.Lookup(label)
	if enc == nil || name == "utf-8" {
		return []byte(resp.Content.Text), nil
	}
	body, err := enc.NewEncoder().String(resp.Content.Text)
	if err != nil {
		return nil, fmt.Errorf("encode body as %s: %w", name, err)
	}
	return []byte(body), nil
}

func charsetLabel(contentType string) string {
	for _, part := range strings.Split(contentType, ";") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if ok && strings.EqualFold(k, "charset") {
			return strings.Trim(v, `"'`)
		}
	}
	return ""
}

func headerValue(headers []HARHeader, name string) string {
	for _, h := range headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

func methodKey(method, reqURL string) string {
	if method == "" {
		method = http.MethodGet
	}
	return strings.ToUpper(method) + " " + reqURL
}

func pathKeyOf(reqURL string) (string, bool) {
	parsed, err := url.Parse(reqURL)
	if err != nil {
		return "", false
	}
	return parsed.Scheme + "://" + parsed.Host + parsed.Path, true
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}
