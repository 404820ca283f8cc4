package preview

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/grez-lucas/portal-scraper/internal/render"
	"github.com/grez-lucas/portal-scraper/internal/scraper/portal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	fragments map[portal.Tab]*portal.Fragment
	redirect  string
	err       error
}

func (s *stubSource) Fragment(tab portal.Tab) *portal.Fragment {
	return s.fragments[tab]
}

func (s *stubSource) SubmitPayment() (string, error) {
	return s.redirect, s.err
}

func do(t *testing.T, srv *httptest.Server, method, path string) (int, string) {
	t.Helper()
	req, err := http.NewRequest(method, srv.URL+path, nil)
	require.NoError(t, err)
	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestRouter(t *testing.T) {
	src := &stubSource{
		fragments: map[portal.Tab]*portal.Fragment{
			portal.TabNews: {Tab: portal.TabNews, HTML: "<html>news</html>"},
		},
		redirect: "<html>redirect</html>",
	}
	srv := httptest.NewServer(New(src, render.New(render.LightPalette)).Router())
	defer srv.Close()

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
		wantBody   string
	}{
		{"health", http.MethodGet, "/health", http.StatusOK, "OK"},
		{"loaded tab", http.MethodGet, "/tabs/news", http.StatusOK, "<html>news</html>"},
		{"tab not loaded", http.MethodGet, "/tabs/tariffs", http.StatusNotFound, MessageNotLoaded},
		{"unknown tab", http.MethodGet, "/tabs/admin", http.StatusNotFound, "unknown tab"},
		{"index redirects home", http.MethodGet, "/", http.StatusFound, ""},
		{"redirect page", http.MethodPost, "/payment/redirect", http.StatusOK, "<html>redirect</html>"},
		{"redirect wrong method", http.MethodGet, "/payment/redirect", http.StatusMethodNotAllowed, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := do(t, srv, tt.method, tt.path)
			assert.Equal(t, tt.wantStatus, status)
			assert.True(t, strings.Contains(body, tt.wantBody), "body %q", body)
		})
	}
}

func TestRedirect_NotVerified(t *testing.T) {
	srv := httptest.NewServer(New(&stubSource{err: portal.ErrQuoteNotVerified}, render.New(render.DarkPalette)).Router())
	defer srv.Close()

	status, body := do(t, srv, http.MethodPost, "/payment/redirect")

	assert.Equal(t, http.StatusConflict, status)
	assert.Contains(t, body, portal.MessageQuoteNotVerified)
}
