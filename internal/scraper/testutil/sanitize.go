package testutil

import (
	"net/url"
	"regexp"
	"strings"
)

const redacted = "[REDACTED]"

// sensitiveKeys match form, query and header names whose values must not
// be committed: the cabinet credentials, the contract number of the payment
// lookup and anything that looks like a session or token.
var sensitiveKeys = compileAll(
	`(?i)^pwdd$`,
	`(?i)^username$`,
	`(?i)^account$`,
	`(?i)passw`,
	`(?i)secret`,
	`(?i)token`,
	`(?i)session`,
	`(?i)sessid`,
	`(?i)auth`,
	`(?i)signature`,
	`(?i)api_?key`,
)

// SensitiveHeaders are redacted whatever their value.
var SensitiveHeaders = map[string]bool{
	"authorization": true,
	"cookie":        true,
	"set-cookie":    true,
	"x-csrf-token":  true,
}

// ScrubRule rewrites subscriber data inside a page.
type ScrubRule struct {
	Pattern     *regexp.Regexp
	Replacement string
	Description string
}

// PageRules scrub cabinet and payment pages: contract numbers, subscriber
// names and session ids echoed into links.
var PageRules = []ScrubRule{
	{
		regexp.MustCompile(`(Договор[^0-9<]{0,20}(?:<[^>]+>)?\s*)\d{4,}`),
		"${1}00000",
		"Contract number",
	},
	{
		regexp.MustCompile(`(?i)(name=["']?account["']?[^>]*value=["']?)\d+`),
		"${1}00000",
		"Contract number in form field",
	},
	{
		regexp.MustCompile(`(ФИО:?\s*(?:<[^>]+>)?\s*)[А-ЯЁ][а-яё]+\s+[А-ЯЁ][а-яё]+(?:\s+[А-ЯЁ][а-яё]+)?`),
		"${1}Абонент Абонент",
		"Subscriber full name",
	},
	{
		regexp.MustCompile(`[А-ЯЁ][а-яё]+\s+[А-ЯЁ]\.\s?[А-ЯЁ]\.`),
		"Абонент А. А.",
		"Subscriber name with initials",
	},
	{
		regexp.MustCompile(`(?i)(PHPSESSID=)[a-z0-9]{16,}`),
		"${1}REDACTED",
		"Session id",
	},
	{
		regexp.MustCompile(`(?i)((?:token|csrf|signature)["']?\s+value=["'])[a-zA-Z0-9_-]{20,}`),
		"${1}REDACTED",
		"Gateway token",
	},
}

// ScrubPage applies PageRules and reports how often each rule matched.
func ScrubPage(page string) (string, map[string]int) {
	hits := make(map[string]int)
	for _, rule := range PageRules {
		if n := len(rule.Pattern.FindAllStringIndex(page, -1)); n > 0 {
			page = rule.Pattern.ReplaceAllString(page, rule.Replacement)
			hits[rule.Description] += n
		}
	}
	return page, hits
}

// SanitizeHAR returns a copy of har with credentials, cookies and
// subscriber data redacted. The input is not modified.
func SanitizeHAR(har *HARLog) *HARLog {
	sanitized := &HARLog{Entries: make([]HAREntry, len(har.Entries))}
	for i, entry := range har.Entries {
		sanitized.Entries[i] = HAREntry{
			Request: HARRequest{
				Method:  entry.Request.Method,
				URL:     sanitizeURL(entry.Request.URL),
				Headers: sanitizeHeaders(entry.Request.Headers),
				Body:    sanitizeForm(entry.Request.Body),
			},
			Response: HARResponse{
				Status:  entry.Response.Status,
				Headers: sanitizeHeaders(entry.Response.Headers),
				Content: sanitizeContent(entry.Response.Content),
			},
		}
	}
	return sanitized
}

func sanitizeURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.RawQuery == "" {
		return rawURL
	}
	query := parsed.Query()
	redactKeys(query)
	parsed.RawQuery = query.Encode()
	return parsed.String()
}

func sanitizeHeaders(headers []HARHeader) []HARHeader {
	sanitized := make([]HARHeader, len(headers))
	for i, h := range headers {
		sanitized[i] = h
		if SensitiveHeaders[strings.ToLower(h.Name)] || isSensitiveKey(h.Name) {
			sanitized[i].Value = redacted
		}
	}
	return sanitized
}

// sanitizeForm handles the url-encoded bodies the portal posts. Anything
// that does not parse as a form is kept.
func sanitizeForm(body string) string {
	if body == "" || !strings.Contains(body, "=") {
		return body
	}
	values, err := url.ParseQuery(body)
	if err != nil {
		return body
	}
	redactKeys(values)
	return values.Encode()
}

func sanitizeContent(c HARContent) HARContent {
	if c.Encoding == "base64" || !strings.Contains(c.MimeType, "html") {
		return c
	}
	c.Text, _ = ScrubPage(c.Text)
	return c
}

func redactKeys(values url.Values) {
	for key := range values {
		if isSensitiveKey(key) {
			values.Set(key, redacted)
		}
	}
}

func isSensitiveKey(key string) bool {
	for _, re := range sensitiveKeys {
		if re.MatchString(key) {
			return true
		}
	}
	return false
}

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(p)
	}
	return out
}
