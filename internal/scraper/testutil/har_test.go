package testutil

import (
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

func TestRecorder_RecordsAndRoundTrips(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := charmap.Windows1251.NewEncoder().String("Тарифы")
		w.Header().Set("Content-Type", "text/html; charset=windows-1251")
		_, _ = io.WriteString(w, body)
	}))
	defer srv.Close()

	rec := NewRecorder(nil)
	client := &http.Client{Transport: rec}

	resp, err := client.Post(srv.URL+"/prices", "application/x-www-form-urlencoded", strings.NewReader("a=1"))
	require.NoError(t, err)
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()

	har := rec.HAR()
	require.Len(t, har.Entries, 1)
	entry := har.Entries[0]
	assert.Equal(t, http.MethodPost, entry.Request.Method)
	assert.Equal(t, "a=1", entry.Request.Body)
	assert.Equal(t, 200, entry.Response.Status)
	assert.Equal(t, "Тарифы", entry.Response.Content.Text)
	assert.Empty(t, entry.Response.Content.Encoding)

	path := filepath.Join(t.TempDir(), "rec.har.json")
	require.NoError(t, SaveHAR(path, har))

	loaded := MustLoadHAR(t, path)
	assert.Equal(t, har.Entries[0].Response.Content, loaded.Entries[0].Response.Content)
}

func TestHarContent_BinaryIsBase64(t *testing.T) {
	content := harContent("application/octet-stream", []byte{0xff, 0xfe, 0x00})

	assert.Equal(t, "base64", content.Encoding)
	assert.Equal(t, "//4A", content.Text)
}

func TestLoadHAR_ChromeFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chrome.har")
	data := `{"log": {"version": "1.2", "creator": {"name": "WebInspector", "version": "537.36"},
		"entries": [{"request": {"method": "POST", "url": "http://portal.test/main.php",
		"postData": {"mimeType": "application/x-www-form-urlencoded", "text": "UserName=x"}},
		"response": {"status": 200, "content": {"mimeType": "text/html", "text": "ok"}}}]}}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	har, err := LoadHAR(path)

	require.NoError(t, err)
	require.Len(t, har.Entries, 1)
	assert.Equal(t, "UserName=x", har.Entries[0].Request.Body)
	assert.Equal(t, "ok", har.Entries[0].Response.Content.Text)
}

func TestLoadHAR_Missing(t *testing.T) {
	_, err := LoadHAR(filepath.Join(t.TempDir(), "nope.har"))
	assert.Error(t, err)
}

func TestLoadHAR_ExportedLegacyPageIsDecoded(t *testing.T) {
	page, err := charmap.Windows1251.NewEncoder().String("<td>Договор</td>")
	require.NoError(t, err)
	encoded := base64.StdEncoding.EncodeToString([]byte(page))

	path := filepath.Join(t.TempDir(), "export.har")
	data := fmt.Sprintf(`{"log": {"entries": [{"request": {"method": "GET", "url": "http://user.chukotnet.ru/main.php?parm=1"},
		"response": {"status": 200,
		"headers": [{"name": "Content-Type", "value": "text/html; charset=windows-1251"}],
		"content": {"mimeType": "text/html", "text": %q, "encoding": "base64"}}}]}}`, encoded)
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	har, err := LoadHAR(path)

	require.NoError(t, err)
	resp := har.Entries[0].Response
	assert.Equal(t, "<td>Договор</td>", resp.Content.Text)
	assert.Empty(t, resp.Content.Encoding)
	assert.Equal(t, "text/html", resp.Content.MimeType)

	replayed, err := encodedBody(resp)
	require.NoError(t, err)
	assert.Equal(t, []byte(page), replayed, "replay serves the original bytes")
}

func TestLoadHAR_BinaryStaysBase64(t *testing.T) {
	har := &HARLog{Entries: []HAREntry{{
		Response: HARResponse{Content: HARContent{MimeType: "image/png", Text: "iVBORw0KGgo=", Encoding: "base64"}},
	}}}
	path := filepath.Join(t.TempDir(), "nested", "img.har.json")
	require.NoError(t, SaveHAR(path, har))

	loaded := MustLoadHAR(t, path)

	assert.Equal(t, har.Entries[0].Response.Content, loaded.Entries[0].Response.Content)
}
