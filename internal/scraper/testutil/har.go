// Package testutil records provider traffic as HAR files and replays it,
// over plain HTTP or inside a Rod tab.
//
// Recordings follow one convention: text bodies are stored decoded to UTF-8
// and the response Content-Type keeps the charset they were served in, so a
// recording can be read, diffed and sanitised as text and still replays
// byte for byte. Only bodies that are not text are stored base64.
package testutil

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"unicode/utf8"

	"golang.org/x/net/html/charset"
)

// HARLog is the trimmed HAR layout the recordings are kept in.
type HARLog struct {
	Entries []HAREntry `json:"entries"`
}

type HAREntry struct {
	Request  HARRequest  `json:"request"`
	Response HARResponse `json:"response"`
}

type HARRequest struct {
	Method  string      `json:"method"`
	URL     string      `json:"url"`
	Headers []HARHeader `json:"headers,omitempty"`
	// Body is the url-encoded form as sent.
	Body string `json:"body,omitempty"`
}

type HARResponse struct {
	Status  int         `json:"status"`
	Headers []HARHeader `json:"headers,omitempty"`
	Content HARContent  `json:"content"`
}

type HARHeader struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type HARContent struct {
	MimeType string `json:"mimeType"`
	Text     string `json:"text"`
	// Encoding is "base64" for non-text bodies and empty otherwise.
	Encoding string `json:"encoding,omitempty"`
	Size     int    `json:"size,omitempty"`
}

// devtoolsHAR is the HAR 1.2 export of a browser's network panel. Only the
// fields a recording keeps are read.
type devtoolsHAR struct {
	Log struct {
		Entries []struct {
			Request struct {
				Method   string      `json:"method"`
				URL      string      `json:"url"`
				Headers  []HARHeader `json:"headers"`
				PostData *struct {
					Text string `json:"text"`
				} `json:"postData"`
			} `json:"request"`
			Response HARResponse `json:"response"`
		} `json:"entries"`
	} `json:"log"`
}

// LoadHAR reads a recording, or a browser HAR export, and brings every
// response body to the decoded-text convention.
func LoadHAR(path string) (*HARLog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read HAR %s: %w", path, err)
	}

	har, err := parseHAR(data)
	if err != nil {
		return nil, fmt.Errorf("parse HAR %s: %w", path, err)
	}
	for i := range har.Entries {
		har.Entries[i].Response.Content = normalizeContent(har.Entries[i].Response)
	}
	return har, nil
}

func parseHAR(data []byte) (*HARLog, error) {
	var wrapper struct {
		Log json.RawMessage `json:"log"`
	}
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return nil, err
	}
	if len(wrapper.Log) == 0 {
		var har HARLog
		if err := json.Unmarshal(data, &har); err != nil {
			return nil, err
		}
		return &har, nil
	}

	var export devtoolsHAR
	if err := json.Unmarshal(data, &export); err != nil {
		return nil, err
	}
	har := &HARLog{Entries: make([]HAREntry, 0, len(export.Log.Entries))}
	for _, e := range export.Log.Entries {
		req := HARRequest{Method: e.Request.Method, URL: e.Request.URL, Headers: e.Request.Headers}
		if e.Request.PostData != nil {
			req.Body = e.Request.PostData.Text
		}
		har.Entries = append(har.Entries, HAREntry{Request: req, Response: e.Response})
	}
	return har, nil
}

// normalizeContent turns a base64 body that is really text in a declared
// charset back into decoded text. Browser exports base64 cp1251 pages.
func normalizeContent(resp HARResponse) HARContent {
	c := resp.Content
	if c.Encoding != "base64" {
		return c
	}
	raw, err := base64.StdEncoding.DecodeString(c.Text)
	if err != nil {
		return c
	}
	contentType := headerValue(resp.Headers, "content-type")
	if contentType == "" {
		contentType = c.MimeType
	}
	if charsetLabel(contentType) == "" {
		return c
	}
	normalized := harContent(contentType, raw)
	normalized.MimeType = c.MimeType
	return normalized
}

// SaveHAR writes har as indented JSON, creating the directory if needed.
func SaveHAR(path string, har *HARLog) error {
	data, err := json.MarshalIndent(har, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal HAR: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create HAR dir: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write HAR %s: %w", path, err)
	}
	return nil
}

func MustLoadHAR(t *testing.T, path string) *HARLog {
	t.Helper()
	har, err := LoadHAR(path)
	if err != nil {
		t.Fatal(err)
	}
	return har
}

// Recorder is an http.RoundTripper that appends every exchange to a HAR log.
// Text bodies are stored decoded; anything else is stored base64.
type Recorder struct {
	next http.RoundTripper

	mu  sync.Mutex
	har HARLog
}

func NewRecorder(next http.RoundTripper) *Recorder {
	if next == nil {
		next = http.DefaultTransport
	}
	return &Recorder{next: next}
}

func (r *Recorder) RoundTrip(req *http.Request) (*http.Response, error) {
	var reqBody []byte
	if req.Body != nil {
		data, err := io.ReadAll(req.Body)
		_ = req.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("record request body: %w", err)
		}
		reqBody = data
		req.Body = io.NopCloser(bytes.NewReader(data))
	}

	resp, err := r.next.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	// Keep whatever arrived; a short read is replayed as a short body.
	respBody, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(respBody))

	entry := HAREntry{
		Request: HARRequest{
			Method:  req.Method,
			URL:     req.URL.String(),
			Headers: harHeaders(req.Header),
			Body:    string(reqBody),
		},
		Response: HARResponse{
			Status:  resp.StatusCode,
			Headers: harHeaders(resp.Header),
			Content: harContent(resp.Header.Get("Content-Type"), respBody),
		},
	}

	r.mu.Lock()
	r.har.Entries = append(r.har.Entries, entry)
	r.mu.Unlock()

	if readErr != nil && len(respBody) == 0 {
		return nil, readErr
	}
	return resp, nil
}

// HAR returns a copy of everything recorded so far.
func (r *Recorder) HAR() *HARLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	entries := make([]HAREntry, len(r.har.Entries))
	copy(entries, r.har.Entries)
	return &HARLog{Entries: entries}
}

func harHeaders(h http.Header) []HARHeader {
	var out []HARHeader
	for name, values := range h {
		for _, v := range values {
			out = append(out, HARHeader{Name: name, Value: v})
		}
	}
	return out
}

func harContent(contentType string, body []byte) HARContent {
	content := HARContent{MimeType: contentType, Size: len(body)}

	if label := charsetLabel(contentType); label != "" {
		if enc, name := charset.Lookup(label); enc != nil && name != "utf-8" {
			if text, err := enc.NewDecoder().Bytes(body); err == nil {
				content.Text = string(text)
				return content
			}
		}
	}

	if utf8.Valid(body) {
		content.Text = string(body)
		return content
	}

	content.Text = base64.StdEncoding.EncodeToString(body)
	content.Encoding = "base64"
	return content
}
