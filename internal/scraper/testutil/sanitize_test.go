package testutil

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeHAR_LoginForm(t *testing.T) {
	har := &HARLog{Entries: []HAREntry{{
		Request: HARRequest{
			Method: "POST",
			URL:    "http://user.chukotnet.ru/main.php",
			Headers: []HARHeader{
				{Name: "Cookie", Value: "PHPSESSID=abc"},
				{Name: "User-Agent", Value: "Mozilla/5.0"},
			},
			Body: "UserName=ivanov&PWDD=hunter2&lang=ru",
		},
		Response: HARResponse{
			Status:  200,
			Headers: []HARHeader{{Name: "Set-Cookie", Value: "auth=1"}},
		},
	}}}

	got := SanitizeHAR(har)
	entry := got.Entries[0]

	form, err := url.ParseQuery(entry.Request.Body)
	require.NoError(t, err)
	assert.Equal(t, redacted, form.Get("UserName"))
	assert.Equal(t, redacted, form.Get("PWDD"))
	assert.Equal(t, "ru", form.Get("lang"))

	assert.Equal(t, redacted, entry.Request.Headers[0].Value)
	assert.Equal(t, "Mozilla/5.0", entry.Request.Headers[1].Value)
	assert.Equal(t, redacted, entry.Response.Headers[0].Value)

	// The input is left untouched.
	assert.Equal(t, "PHPSESSID=abc", har.Entries[0].Request.Headers[0].Value)
}

func TestSanitizeHAR_PaymentLookup(t *testing.T) {
	har := &HARLog{Entries: []HAREntry{{
		Request: HARRequest{
			Method: "POST",
			URL:    "http://www.chukotnet.ru/payment/add.html?session=xyz",
			Body:   "account=10293&money=500",
		},
	}}}

	entry := SanitizeHAR(har).Entries[0]

	form, err := url.ParseQuery(entry.Request.Body)
	require.NoError(t, err)
	assert.Equal(t, redacted, form.Get("account"))
	assert.Equal(t, "500", form.Get("money"))

	u, err := url.Parse(entry.Request.URL)
	require.NoError(t, err)
	assert.Equal(t, redacted, u.Query().Get("session"))
}

func TestIsSensitiveKey(t *testing.T) {
	tests := []struct {
		key  string
		want bool
	}{
		{"PWDD", true},
		{"UserName", true},
		{"account", true},
		{"api_key", true},
		{"money", false},
		{"accounts_total", false},
		{"parm", false},
	}

	for _, tc := range tests {
		t.Run(tc.key, func(t *testing.T) {
			assert.Equal(t, tc.want, isSensitiveKey(tc.key))
		})
	}
}

func TestSanitizeHAR_CabinetPage(t *testing.T) {
	page := `<table><caption>Лицевые счета</caption><tr><td>Договор: <b>10293</b></td></tr></table>` +
		`<p>ФИО: Иванов Иван Иванович</p><a href="/main.php?PHPSESSID=0123456789abcdef0123">выход</a>`
	har := &HARLog{Entries: []HAREntry{{
		Request: HARRequest{Method: "GET", URL: "http://user.chukotnet.ru/main.php?parm=1"},
		Response: HARResponse{
			Status:  200,
			Content: HARContent{MimeType: "text/html; charset=windows-1251", Text: page},
		},
	}}}

	entry := SanitizeHAR(har).Entries[0]

	assert.Equal(t, "http://user.chukotnet.ru/main.php?parm=1", entry.Request.URL)
	text := entry.Response.Content.Text
	assert.NotContains(t, text, "10293")
	assert.NotContains(t, text, "Иванов")
	assert.NotContains(t, text, "0123456789abcdef0123")
	assert.Contains(t, text, "Договор: <b>00000</b>")
	assert.Contains(t, text, "Лицевые счета")
}

func TestSanitizeHAR_BinaryContentUntouched(t *testing.T) {
	har := &HARLog{Entries: []HAREntry{{
		Response: HARResponse{Content: HARContent{MimeType: "image/png", Text: "iVBORw0KGgo=", Encoding: "base64"}},
	}}}

	assert.Equal(t, "iVBORw0KGgo=", SanitizeHAR(har).Entries[0].Response.Content.Text)
}

func TestScrubPage_Counts(t *testing.T) {
	out, hits := ScrubPage(`<b>Петров П. П.</b> и <b>Сидоров С.С.</b>`)

	assert.Equal(t, `<b>Абонент А. А.</b> и <b>Абонент А. А.</b>`, out)
	assert.Equal(t, 2, hits["Subscriber name with initials"])
}
