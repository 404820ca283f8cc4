package fetch

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"testing/iotest"
	"time"

	"github.com/grez-lucas/portal-scraper/internal/scraper/portal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func bodyTransport(body io.Reader) http.RoundTripper {
	return roundTripFunc(func(r *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{"Content-Type": []string{"text/html"}},
			Body:       io.NopCloser(body),
			Request:    r,
		}, nil
	})
}

func cp1251(t *testing.T, s string) string {
	t.Helper()
	out, err := charmap.Windows1251.NewEncoder().String(s)
	require.NoError(t, err)
	return out
}

func TestFetch_DecodesWindows1251(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = io.WriteString(w, cp1251(t, "<span class='date'>Новости</span>"))
	}))
	defer srv.Close()

	resp, err := New().Fetch(context.Background(), Request{URL: srv.URL})

	require.NoError(t, err)
	assert.Equal(t, "<span class='date'>Новости</span>", resp.Body)
	assert.False(t, resp.Truncated)
}

func TestFetch_EncodingIsPerRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Declares cp1251 but the gateway endpoint is always read as UTF-8.
		w.Header().Set("Content-Type", "text/html; charset=windows-1251")
		_, _ = io.WriteString(w, "ФИО: Иванов")
	}))
	defer srv.Close()

	resp, err := New().Fetch(context.Background(), Request{URL: srv.URL, Encoding: UTF8})

	require.NoError(t, err)
	assert.Equal(t, "ФИО: Иванов", resp.Body)
}

func TestFetch_TruncatedWithDataIsSuccess(t *testing.T) {
	partial := "<html><body><table><tr><td>Дата</td><td cla"
	body := io.MultiReader(strings.NewReader(partial), iotest.ErrReader(io.ErrUnexpectedEOF))

	f := New(WithTransport(bodyTransport(body)), WithDefaultEncoding(UTF8))
	resp, err := f.Fetch(context.Background(), Request{URL: "http://www.example.test/"})

	require.NoError(t, err)
	assert.Equal(t, partial, resp.Body)
	assert.True(t, resp.Truncated)
}

func TestFetch_TruncatedBeforeFirstByteFails(t *testing.T) {
	body := iotest.ErrReader(io.ErrUnexpectedEOF)

	f := New(WithTransport(bodyTransport(body)))
	resp, err := f.Fetch(context.Background(), Request{URL: "http://www.example.test/"})

	assert.Nil(t, resp)
	assert.ErrorIs(t, err, portal.ErrTransport)
}

func TestFetch_ServerClosesMidBody(t *testing.T) {
	partial := "<html><body><span class=\"date\">01.01</span><div cl"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, buf, err := w.(http.Hijacker).Hijack()
		if err != nil {
			return
		}
		defer conn.Close()
		_, _ = buf.WriteString("HTTP/1.1 200 OK\r\nContent-Type: text/html\r\nContent-Length: 4096\r\n\r\n")
		_, _ = buf.WriteString(partial)
		_ = buf.Flush()
	}))
	defer srv.Close()

	resp, err := New().Fetch(context.Background(), Request{URL: srv.URL})

	require.NoError(t, err)
	assert.Equal(t, partial, resp.Body)
	assert.True(t, resp.Truncated)
}

func TestFetch_PostsFormWithCookiesAndUserAgent(t *testing.T) {
	var got *http.Request
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		data, _ := io.ReadAll(r.Body)
		gotBody = string(data)
		_, _ = io.WriteString(w, "ok")
	}))
	defer srv.Close()

	_, err := New().Fetch(context.Background(), Request{
		Method:    http.MethodPost,
		URL:       srv.URL + "/main.php?parm=8",
		Form:      url.Values{"parm": {"8"}, "pg": {"1"}},
		Cookies:   map[string]string{"PHPSESSID": "abc"},
		UserAgent: "Desktop/1.0",
	})

	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, got.Method)
	assert.Equal(t, "8", got.URL.Query().Get("parm"))
	assert.Equal(t, "Desktop/1.0", got.UserAgent())
	assert.Equal(t, "application/x-www-form-urlencoded", got.Header.Get("Content-Type"))
	c, err := got.Cookie("PHPSESSID")
	require.NoError(t, err)
	assert.Equal(t, "abc", c.Value)

	form, err := url.ParseQuery(gotBody)
	require.NoError(t, err)
	assert.Equal(t, "1", form.Get("pg"))
}

func TestFetch_DefaultUserAgentIsMinimal(t *testing.T) {
	var ua string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua = r.UserAgent()
		_, _ = io.WriteString(w, "ok")
	}))
	defer srv.Close()

	_, err := New().Fetch(context.Background(), Request{URL: srv.URL})

	require.NoError(t, err)
	assert.Equal(t, MinimalUserAgent, ua)
}

func TestFetch_CollectsCookiesAcrossRedirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "first", Value: "1"})
		http.Redirect(w, r, "/cabinet", http.StatusFound)
	})
	mux.HandleFunc("/cabinet", func(w http.ResponseWriter, r *http.Request) {
		if _, err := r.Cookie("first"); err != nil {
			http.Error(w, "missing cookie", http.StatusForbidden)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "second", Value: "2"})
		_, _ = io.WriteString(w, "cabinet")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	resp, err := New().Fetch(context.Background(), Request{URL: srv.URL + "/login"})

	require.NoError(t, err)
	assert.Equal(t, "cabinet", resp.Body)
	assert.Equal(t, map[string]string{"first": "1", "second": "2"}, resp.Cookies)
	assert.Equal(t, "/cabinet", resp.URL.Path)
}

func TestFetch_RedirectReplacesStaleCookie(t *testing.T) {
	var seen []string
	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "PHPSESSID", Value: "new"})
		http.Redirect(w, r, "/home", http.StatusFound)
	})
	mux.HandleFunc("/home", func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Values("Cookie")
		_, _ = io.WriteString(w, "home")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	resp, err := New().Fetch(context.Background(), Request{
		Method:  http.MethodPost,
		URL:     srv.URL + "/login",
		Form:    url.Values{"UserName": {"subscriber"}},
		Cookies: map[string]string{"PHPSESSID": "old", "lang": "ru"},
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"PHPSESSID=new; lang=ru"}, seen)
	assert.Equal(t, "new", resp.Cookies["PHPSESSID"])
}

func TestFetch_HTTPErrorIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	resp, err := New().Fetch(context.Background(), Request{URL: srv.URL})

	assert.ErrorIs(t, err, portal.ErrTransport)
	assert.ErrorContains(t, err, "HTTP 502")

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
	require.NotNil(t, resp, "the error page is still returned")
	assert.Equal(t, "down\n", resp.Body)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestFetch_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	_, err := New(WithTimeout(50*time.Millisecond)).Fetch(context.Background(), Request{URL: srv.URL})

	assert.ErrorIs(t, err, portal.ErrTransport)
	assert.ErrorIs(t, err, portal.ErrTimeout)
}

func TestLookup(t *testing.T) {
	enc, err := Lookup("windows-1251")
	require.NoError(t, err)
	decoded, err := enc.NewDecoder().Bytes([]byte{0xCD, 0xEE, 0xE2})
	require.NoError(t, err)
	assert.True(t, bytes.Equal([]byte("Нов"), decoded))

	enc, err = Lookup("UTF-8")
	require.NoError(t, err)
	assert.Equal(t, UTF8, enc)

	_, err = Lookup("klingon")
	assert.Error(t, err)
}
