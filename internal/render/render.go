package render

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/grez-lucas/portal-scraper/internal/scraper/portal"
)

const (
	PlaceholderNoNews   = "Новости не найдены"
	PlaceholderNoData   = "Нет данных за этот период."
	PlaceholderNoTable  = "Таблица не найдена."
	TitleNews           = "Новости провайдера"
	TitleInternet       = "ИНТЕРНЕТ"
	TitleTV             = "ТЕЛЕВИДЕНИЕ"
	RedirectMessage     = "Переход в банк..."
	DefaultFormMethod   = "POST"
	viewportMeta        = `<meta name="viewport" content="width=device-width, initial-scale=1.0">`
	documentHead        = `<html><head>` + viewportMeta + `<style>{{.CSS}}</style></head>`
	documentHeadNoStyle = `<html><head>` + viewportMeta + `</head>`
)

var templates = template.Must(template.New("render").Parse(`
{{define "news"}}` + documentHead + `<body>
<h1 class="page-title">{{.Title}}</h1>
{{if .Placeholder}}<p class="placeholder">{{.Placeholder}}</p>{{end}}
{{range .Cards}}<div class="news-card"><div class="news-date">{{.Date}}</div><div class="news-content">{{.Body}}</div></div>
{{end}}</body></html>{{end}}

{{define "tariffs"}}` + documentHead + `<body>
{{range $i, $s := .Sections}}{{if $i}}<div class="section-gap"></div>
{{end}}<h2 class="main-title">{{$s.Title}}</h2>
{{$s.Body}}
{{end}}</body></html>{{end}}

{{define "statistics"}}` + documentHead + `<body>
<h3>{{.Title}}: {{.From}} - {{.To}}</h3>
{{if .Table}}{{.Table}}{{else}}<p class="placeholder">{{.Placeholder}}</p>{{end}}
</body></html>{{end}}

{{define "accounts"}}` + documentHead + `<body>
{{if .Message}}<p class="placeholder">{{.Message}}</p>{{end}}
{{range .Accounts}}<div class="account-card">Договор: <b>{{.Contract}}</b><br>Баланс: <span class="balance-{{.Severity}}"><b>{{.Balance}} руб.</b></span></div>
{{end}}</body></html>{{end}}

{{define "redirect"}}` + documentHead + `<body onload="document.forms[0].submit()">
<h3>{{.Message}}</h3>
<form method="{{.Method}}" action="{{.Action}}">
{{range .Fields}}<input type="hidden" name="{{.Name}}" value="{{.Value}}">
{{end}}</form>
</body></html>{{end}}

{{define "message"}}` + documentHeadNoStyle + `<body><p style="text-align:center;">{{.}}</p></body></html>{{end}}
`))

// NewsCard is one dated news item. Body is trusted provider markup that has
// already been cleaned.
type NewsCard struct {
	Date string
	Body template.HTML
}

type Section struct {
	Title string
	Body  template.HTML
}

type AccountLine struct {
	Contract string
	Balance  string
	Severity portal.Severity
}

type Renderer struct {
	palette Palette
}

func New(palette Palette) *Renderer {
	return &Renderer{palette: palette}
}

// ForMode resolves the theme once and returns a renderer bound to it.
func ForMode(mode Mode, systemDark func() bool) *Renderer {
	return New(PaletteFor(mode.Dark(systemDark)))
}

func (r *Renderer) Palette() Palette {
	return r.palette
}

// News renders the cards, or the "not found" placeholder when the page held
// no date markers at all.
func (r *Renderer) News(cards []NewsCard, noMarkers bool) (string, error) {
	data := struct {
		CSS         template.CSS
		Title       string
		Placeholder string
		Cards       []NewsCard
	}{
		CSS:   newsStylesheet(r.palette),
		Title: TitleNews,
		Cards: cards,
	}
	if noMarkers {
		data.Placeholder = PlaceholderNoNews
	}
	return execute("news", data)
}

// Tariffs renders the non-empty sections in order.
func (r *Renderer) Tariffs(sections []Section) (string, error) {
	kept := make([]Section, 0, len(sections))
	for _, s := range sections {
		if s.Body != "" {
			kept = append(kept, s)
		}
	}
	return execute("tariffs", struct {
		CSS      template.CSS
		Sections []Section
	}{
		CSS:      tariffsStylesheet(r.palette),
		Sections: kept,
	})
}

// Statistics renders a report table. An empty table renders the
// "no data for this period" placeholder.
func (r *Renderer) Statistics(title, from, to string, table template.HTML) (string, error) {
	return execute("statistics", struct {
		CSS         template.CSS
		Title       string
		From        string
		To          string
		Table       template.HTML
		Placeholder string
	}{
		CSS:         statisticsStylesheet(r.palette),
		Title:       title,
		From:        from,
		To:          to,
		Table:       table,
		Placeholder: PlaceholderNoData,
	})
}

func (r *Renderer) Accounts(accounts []portal.AccountRecord, message string) (string, error) {
	lines := make([]AccountLine, 0, len(accounts))
	for _, a := range accounts {
		lines = append(lines, AccountLine{
			Contract: a.ContractNumber,
			Balance:  a.BalanceText,
			Severity: a.Severity(),
		})
	}
	return execute("accounts", struct {
		CSS      template.CSS
		Message  string
		Accounts []AccountLine
	}{
		CSS:      accountsStylesheet(r.palette),
		Message:  message,
		Accounts: lines,
	})
}

// PaymentRedirect renders a page that posts the quote's hidden fields to the
// bank gateway as soon as it loads.
func (r *Renderer) PaymentRedirect(q *portal.PaymentQuote) (string, error) {
	if q == nil {
		return "", portal.ErrQuoteNotVerified
	}
	method := q.BankFormMethod
	if method == "" {
		method = DefaultFormMethod
	}
	return execute("redirect", struct {
		CSS     template.CSS
		Message string
		Method  string
		Action  string
		Fields  []portal.HiddenField
	}{
		CSS:     redirectStylesheet(r.palette),
		Message: RedirectMessage,
		Method:  method,
		Action:  q.BankFormAction,
		Fields:  q.HiddenFields,
	})
}

// Message renders a bare page with a single centred line.
func (r *Renderer) Message(text string) (string, error) {
	return execute("message", text)
}

func execute(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}
