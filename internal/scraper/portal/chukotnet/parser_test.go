package chukotnet

import (
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/grez-lucas/portal-scraper/internal/scraper/portal"
	"github.com/grez-lucas/portal-scraper/internal/scraper/portal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixtureDir = "chukotnet"

func fragmentDoc(t *testing.T, fragment string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	require.NoError(t, err)
	return doc
}

func TestParseNews(t *testing.T) {
	html := testutil.LoadFixture(t, fixtureDir, "news")

	cards, markers, err := ParseNews(html)

	require.NoError(t, err)
	assert.Equal(t, 4, markers)
	require.Len(t, cards, 2)

	assert.Equal(t, "01.12.2025", cards[0].Date)
	assert.Contains(t, string(cards[0].Body), "Плановые работы на линии связи.")
	assert.Contains(t, string(cards[0].Body), "<b>02:00</b>")
	assert.NotContains(t, string(cards[0].Body), "style=")

	// 20.11.2025 is immediately followed by another date and has no card.
	assert.Equal(t, "15.11.2025", cards[1].Date)
	assert.Contains(t, string(cards[1].Body), `<a href="/prices/internet.html">Безлимит</a>`)
}

func TestParseNews_NoDateMarkers(t *testing.T) {
	html := testutil.LoadFixture(t, fixtureDir, "news-empty")

	cards, markers, err := ParseNews(html)

	require.NoError(t, err)
	assert.Zero(t, markers)
	assert.Empty(t, cards)
}

func TestParseNews_DateFollowedByDate(t *testing.T) {
	html := `<div><span class="date">01.01.2025</span><span class="date">02.01.2025</span></div>`

	cards, markers, err := ParseNews(html)

	require.NoError(t, err)
	assert.Equal(t, 2, markers)
	assert.Empty(t, cards)
}

func TestParseTariffSection(t *testing.T) {
	html := testutil.LoadFixture(t, fixtureDir, "prices-internet")

	section, err := ParseTariffSection(html)
	require.NoError(t, err)

	doc := fragmentDoc(t, string(section))
	assert.Equal(t, "Тарифы для физических лиц", doc.Find("h1").Text())
	assert.Equal(t, 1, doc.Find("table.price").Length())
	assert.Equal(t, 3, doc.Find("table.price tr").Length())
	assert.Equal(t, "Цены указаны с НДС.", doc.Find("p.hint").Text())
	assert.Equal(t, 1, doc.Find("p.information").Length())

	// Empty heading, navigation and banners are dropped.
	assert.Zero(t, doc.Find("h4").Length())
	assert.Zero(t, doc.Find("#menu, .banner, img").Length())

	// Presentation attributes are gone everywhere.
	assert.Zero(t, doc.Find("[style], [width], [height], [border]").Length())
}

func TestParseTariffSection_KeepsDocumentOrder(t *testing.T) {
	html := testutil.LoadFixture(t, fixtureDir, "prices-tv")

	section, err := ParseTariffSection(html)
	require.NoError(t, err)

	s := string(section)
	assert.Less(t, strings.Index(s, "<h4>"), strings.Index(s, "<table"))
	assert.NotContains(t, s, "Прочий текст")
}

func TestParseTariffSection_NothingUseful(t *testing.T) {
	section, err := ParseTariffSection(`<html><body><div>Страница не найдена</div></body></html>`)

	require.NoError(t, err)
	assert.Empty(t, section)
}

func TestParseStatisticsTable(t *testing.T) {
	html := testutil.LoadFixture(t, fixtureDir, "stats-traffic")

	table, err := ParseStatisticsTable(html)
	require.NoError(t, err)
	require.NotEmpty(t, table)

	doc := fragmentDoc(t, string(table))
	assert.Equal(t, 4, doc.Find("tr").Length())
	assert.Zero(t, doc.Find("button").Length())
	assert.Zero(t, doc.Find("tr.info").Length())
	assert.Zero(t, doc.Find("[style], [width], [height], [border]").Length())
	assert.Equal(t, "Итого", doc.Find("tr").Last().Find("td").First().Text())
}

func TestParseStatisticsTable_HeaderOnly(t *testing.T) {
	html := testutil.LoadFixture(t, fixtureDir, "stats-empty")

	table, err := ParseStatisticsTable(html)

	require.NoError(t, err)
	assert.Empty(t, table)
}

func TestParseStatisticsTable_FallbackByHeaderText(t *testing.T) {
	html := testutil.LoadFixture(t, fixtureDir, "stats-fallback")

	table, err := ParseStatisticsTable(html)
	require.NoError(t, err)

	doc := fragmentDoc(t, string(table))
	assert.Equal(t, 1, doc.Find("table.report").Length())
	assert.Zero(t, doc.Find("table.menu").Length())
	assert.Equal(t, 3, doc.Find("tr").Length())
}

func TestParseStatisticsTable_NoTable(t *testing.T) {
	table, err := ParseStatisticsTable(`<html><body><p>Сервис недоступен</p></body></html>`)

	require.NoError(t, err)
	assert.Empty(t, table)
}

func TestHasPasswordField(t *testing.T) {
	assert.True(t, HasPasswordField(testutil.LoadFixture(t, fixtureDir, "login")))
	assert.False(t, HasPasswordField(testutil.LoadFixture(t, fixtureDir, "cabinet")))
}

func TestParseLoginForm(t *testing.T) {
	html := testutil.LoadFixture(t, fixtureDir, "login")

	form, err := ParseLoginForm(html)

	require.NoError(t, err)
	assert.Equal(t, url.Values{
		"lang":  {"ru"},
		"token": {"abc123"},
	}, form)
}

func TestParseAccounts(t *testing.T) {
	html := testutil.LoadFixture(t, fixtureDir, "cabinet")

	accounts, found, err := ParseAccounts(html)

	require.NoError(t, err)
	assert.True(t, found)
	require.Len(t, accounts, 3)

	assert.Equal(t, "10293", accounts[0].ContractNumber)
	assert.Equal(t, "1 250,50 руб.", accounts[0].BalanceText)
	assert.True(t, accounts[0].BalanceValue.Decimal.Equal(decimal.RequireFromString("1250.50")))
	assert.Equal(t, portal.SeverityOK, accounts[0].Severity())

	assert.Equal(t, "10294", accounts[1].ContractNumber)
	assert.Equal(t, portal.SeverityDebt, accounts[1].Severity())

	// Unparseable balance is shown verbatim and counts as zero.
	assert.Equal(t, "нет данных", accounts[2].BalanceText)
	assert.False(t, accounts[2].BalanceValue.Valid)
	assert.Equal(t, portal.SeverityLow, accounts[2].Severity())
}

func TestParseAccounts_NoTable(t *testing.T) {
	html := testutil.LoadFixture(t, fixtureDir, "cabinet-no-table")

	accounts, found, err := ParseAccounts(html)

	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, accounts)
}

func TestParseAccounts_FallbackWithoutContainer(t *testing.T) {
	html := `<table><caption>Лицевые счета</caption><tbody>
		<tr><td>1</td><td>777</td><td>10,00</td></tr>
	</tbody></table>`

	accounts, found, err := ParseAccounts(html)

	require.NoError(t, err)
	assert.True(t, found)
	require.Len(t, accounts, 1)
	assert.Equal(t, "777", accounts[0].ContractNumber)
	assert.Equal(t, portal.SeverityLow, accounts[0].Severity())
}

func TestParseBalance(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		valid bool
	}{
		{"comma decimal", "1250,50", "1250.5", true},
		{"with currency and spaces", "1 250,50 руб.", "1250.5", true},
		{"negative", "-35,20", "-35.2", true},
		{"integer", "450", "450", true},
		{"text only", "нет данных", "", false},
		{"empty", "", "", false},
		{"lonely minus", "-", "", false},
		{"two separators", "1,2,3", "", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseBalance(tc.input)
			assert.Equal(t, tc.valid, got.Valid)
			if tc.valid {
				assert.Equal(t, tc.want, got.Decimal.String())
			}
		})
	}
}

func TestParsePaymentQuote(t *testing.T) {
	html := testutil.LoadFixture(t, fixtureDir, "payment-found")
	base, _ := url.Parse(DefaultPaymentURL)

	quote, err := ParsePaymentQuote(html, base, "10293", "500")

	require.NoError(t, err)
	assert.Equal(t, "10293", quote.Account)
	assert.Equal(t, "500", quote.Amount)
	assert.Equal(t, "ФИО: Иванов И. И.", quote.OwnerLabel)
	assert.Equal(t, "https://bank.example/pay/start", quote.BankFormAction)
	assert.Equal(t, "get", quote.BankFormMethod)
	assert.Equal(t, []portal.HiddenField{
		{Name: "shop", Value: "chukotnet"},
		{Name: "order", Value: "A-42"},
		{Name: "sum", Value: "500.00"},
	}, quote.HiddenFields)
	assert.Equal(t, "Оплатить 500 руб.", quote.ButtonLabel())
}

func TestParsePaymentQuote_RelativeFormFallback(t *testing.T) {
	html := testutil.LoadFixture(t, fixtureDir, "payment-relative")
	base, _ := url.Parse(DefaultPaymentURL)

	quote, err := ParsePaymentQuote(html, base, "10293", "500")

	require.NoError(t, err)
	assert.Equal(t, DefaultOwnerLabel, quote.OwnerLabel)
	assert.Equal(t, "http://www.chukotnet.ru/payment/confirm.html", quote.BankFormAction)
	assert.Equal(t, "POST", quote.BankFormMethod)
	assert.Len(t, quote.HiddenFields, 2)
}

func TestParsePaymentQuote_NoForm(t *testing.T) {
	html := testutil.LoadFixture(t, fixtureDir, "payment-missing")

	quote, err := ParsePaymentQuote(html, nil, "1", "1")

	assert.Nil(t, quote)
	assert.ErrorIs(t, err, portal.ErrPaymentFormNotFound)
}

func TestReportWindow(t *testing.T) {
	tests := []struct {
		name     string
		today    time.Time
		wantFrom time.Time
	}{
		{
			name:     "mid month",
			today:    time.Date(2024, 5, 15, 10, 30, 0, 0, time.UTC),
			wantFrom: time.Date(2024, 2, 15, 10, 30, 0, 0, time.UTC),
		},
		{
			name:     "clamps to leap february",
			today:    time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC),
			wantFrom: time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "clamps to short month",
			today:    time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC),
			wantFrom: time.Date(2023, 9, 30, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "crosses year",
			today:    time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC),
			wantFrom: time.Date(2024, 10, 10, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			from, to := ReportWindow(tc.today)
			assert.Equal(t, tc.wantFrom, from)
			assert.Equal(t, tc.today, to)
		})
	}
}

func TestReportForm(t *testing.T) {
	today := time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		kind  portal.ReportKind
		parm  string
		extra map[string]string
	}{
		{portal.ReportTraffic, "10", map[string]string{"interval": "2", "view": "0", "currency": "1", "unit": "3", "byzones": "0"}},
		{portal.ReportPayments, "8", nil},
		{portal.ReportSubscriptionFee, "11", nil},
	}

	for _, tc := range tests {
		t.Run(tc.kind.String(), func(t *testing.T) {
			req, err := BuildReportRequest(tc.kind, today)
			require.NoError(t, err)

			form := ReportForm(req)
			assert.Equal(t, tc.parm, form.Get("parm"))
			assert.Equal(t, "15.02.2024", form.Get("date_from"))
			assert.Equal(t, "15.05.2024", form.Get("date_to"))
			assert.Equal(t, "1", form.Get("period"))
			assert.Equal(t, "1", form.Get("pg"))
			assert.Equal(t, "1", form.Get("show_params"))
			assert.True(t, form.Has("cardid"))
			for k, v := range tc.extra {
				assert.Equal(t, v, form.Get(k), k)
			}
			if tc.extra == nil {
				assert.False(t, form.Has("interval"))
			}
		})
	}
}

func TestBuildReportRequest_UnknownKind(t *testing.T) {
	_, err := BuildReportRequest(portal.ReportKind(9), time.Now())
	assert.Error(t, err)
}

func TestEndpoints(t *testing.T) {
	e := DefaultEndpoints()

	assert.Equal(t, "http://www.chukotnet.ru/prices/internet.html", e.InternetPrices())
	assert.Equal(t, "http://www.chukotnet.ru/prices/tv.html", e.TVPrices())
	assert.Equal(t, "http://user.chukotnet.ru/main.php?parm=1", e.CabinetHome())

	traffic, err := e.Report(portal.ReportTraffic)
	require.NoError(t, err)
	assert.Equal(t, "http://user.chukotnet.ru/main.php?parm=10", traffic)

	_, err = e.Report(portal.ReportKind(9))
	assert.Error(t, err)
}
