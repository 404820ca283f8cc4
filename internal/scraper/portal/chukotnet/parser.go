package chukotnet

import (
	"bytes"
	"fmt"
	"html/template"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/grez-lucas/portal-scraper/internal/render"
	"github.com/grez-lucas/portal-scraper/internal/scraper/portal"
	"github.com/shopspring/decimal"
	"golang.org/x/net/html"
)

const (
	// -- STATISTICS --

	ReportDateLayout   = "02.01.2006"
	ReportWindowMonths = 3

	// -- ACCOUNTS --

	minAccountCells     = 3
	accountContractCell = 1
	accountBalanceCell  = 2

	// -- PAYMENT --

	DefaultOwnerLabel = "Абонент найден"
)

var (
	// presentationAttrs are stripped from every re-embedded element so the
	// injected stylesheet controls appearance.
	presentationAttrs = []string{"style", "width", "height", "border"}

	ownerMarkers = []string{"ФИО", "Абонент"}

	balanceJunk = regexp.MustCompile(`[^0-9,-]`)
)

// --- PUBLIC API ---

// ParseNews returns one card per date marker followed by a news body.
// markers is the number of date markers seen, so callers can tell an empty
// page apart from a page whose dates all lacked a body.
func ParseNews(page string) (cards []render.NewsCard, markers int, err error) {
	doc, err := parseDocument(page)
	if err != nil {
		return nil, 0, err
	}

	dates := doc.FindMatcher(matchNewsDate)
	cards = make([]render.NewsCard, 0, dates.Length())

	var renderErr error
	dates.EachWithBreak(func(_ int, date *goquery.Selection) bool {
		body := newsBodyAfter(date)
		if body == nil {
			return true
		}
		stripPresentation(body)

		inner, err := body.Html()
		if err != nil {
			renderErr = fmt.Errorf("%w: news body: %v", portal.ErrParsingFailed, err)
			return false
		}
		cards = append(cards, render.NewsCard{
			Date: normalizeText(date.Text()),
			Body: template.HTML(inner),
		})
		return true
	})
	if renderErr != nil {
		return nil, 0, renderErr
	}

	return cards, dates.Length(), nil
}

// ParseTariffSection keeps only the pricing tables, hints and headings of a
// pricing sub-page. Blocks with no text are dropped.
func ParseTariffSection(page string) (template.HTML, error) {
	doc, err := parseDocument(page)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	var renderErr error
	doc.FindMatcher(matchTariffBlocks).EachWithBreak(func(_ int, block *goquery.Selection) bool {
		if normalizeText(block.Text()) == "" {
			return true
		}
		stripPresentation(block)
		if err := renderOuter(&buf, block); err != nil {
			renderErr = err
			return false
		}
		return true
	})
	if renderErr != nil {
		return "", renderErr
	}

	return template.HTML(buf.String()), nil
}

// ParseStatisticsTable finds the report table, cleans it and returns its
// markup. It returns "" when there is no table or the table has no rows
// beyond the header.
func ParseStatisticsTable(page string) (template.HTML, error) {
	doc, err := parseDocument(page)
	if err != nil {
		return "", err
	}

	var table *goquery.Selection
	if container := doc.Find(SelectorReportContainer).First(); container.Length() > 0 {
		table = container.Find("table").First()
	}
	if table == nil || table.Length() == 0 {
		table = doc.FindMatcher(matchReportFallback).First()
	}
	if table.Length() == 0 {
		return "", nil
	}

	stripPresentation(table)
	table.Find(SelectorReportJunk).Remove()

	if table.Find("tr").Length() <= 1 {
		return "", nil
	}

	var buf bytes.Buffer
	if err := renderOuter(&buf, table); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

// HasPasswordField reports whether the page still shows the login form.
func HasPasswordField(page string) bool {
	doc, err := parseDocument(page)
	if err != nil {
		return false
	}
	return doc.FindMatcher(matchPasswordField).Length() > 0
}

// ParseLoginForm collects the hidden inputs of the login form. Later
// duplicates overwrite earlier ones.
func ParseLoginForm(page string) (url.Values, error) {
	doc, err := parseDocument(page)
	if err != nil {
		return nil, err
	}

	form := url.Values{}
	doc.FindMatcher(matchLoginHidden).Each(func(_ int, input *goquery.Selection) {
		name := input.AttrOr("name", "")
		if name == "" {
			return
		}
		form.Set(name, input.AttrOr("value", ""))
	})

	return form, nil
}

// ParseAccounts reads the cabinet accounts table. found is false when the
// table is missing altogether.
func ParseAccounts(page string) (accounts []portal.AccountRecord, found bool, err error) {
	doc, err := parseDocument(page)
	if err != nil {
		return nil, false, err
	}

	table := doc.FindMatcher(matchAccountsTable).First()
	if table.Length() == 0 {
		table = doc.FindMatcher(matchAccountsAny).First()
	}
	if table.Length() == 0 {
		return nil, false, nil
	}

	rows := table.Find(SelectorAccountRows)
	accounts = make([]portal.AccountRecord, 0, rows.Length())
	rows.Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < minAccountCells {
			return
		}
		balance := normalizeText(cells.Eq(accountBalanceCell).Text())
		accounts = append(accounts, portal.AccountRecord{
			ContractNumber: normalizeText(cells.Eq(accountContractCell).Text()),
			BalanceText:    balance,
			BalanceValue:   ParseBalance(balance),
		})
	})

	return accounts, true, nil
}

// ParseBalance drops everything but digits, commas and minus signs and reads
// the comma as the decimal separator. The result is invalid when nothing
// numeric is left.
func ParseBalance(text string) decimal.NullDecimal {
	cleaned := strings.ReplaceAll(balanceJunk.ReplaceAllString(text, ""), ",", ".")
	value, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(value)
}

// ParsePaymentQuote reads the payment lookup response. The bank form is the
// first form with an absolute action, else the first form. base resolves a
// relative action and may be nil.
func ParsePaymentQuote(page string, base *url.URL, account, amount string) (*portal.PaymentQuote, error) {
	doc, err := parseDocument(page)
	if err != nil {
		return nil, err
	}

	form := doc.FindMatcher(matchAbsoluteForm).First()
	if form.Length() == 0 {
		form = doc.Find("form").First()
	}
	if form.Length() == 0 {
		return nil, fmt.Errorf("%w: no form on lookup page", portal.ErrPaymentFormNotFound)
	}

	action, err := resolveAction(base, form.AttrOr("action", ""))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", portal.ErrPaymentFormNotFound, err)
	}

	method := strings.TrimSpace(form.AttrOr("method", ""))
	if method == "" {
		method = render.DefaultFormMethod
	}

	var fields []portal.HiddenField
	form.Find("input").Each(func(_ int, input *goquery.Selection) {
		switch strings.ToLower(input.AttrOr("type", "")) {
		case "submit", "button":
			return
		}
		fields = append(fields, portal.HiddenField{
			Name:  input.AttrOr("name", ""),
			Value: input.AttrOr("value", ""),
		})
	})

	return &portal.PaymentQuote{
		Account:        account,
		Amount:         amount,
		OwnerLabel:     ownerLabel(doc),
		BankFormAction: action,
		BankFormMethod: method,
		HiddenFields:   fields,
	}, nil
}

// ReportWindow is [today - 3 months, today]. The day is clamped to the
// length of the earlier month, so 31 May gives the last day of February.
func ReportWindow(today time.Time) (from, to time.Time) {
	return addMonthsClamped(today, -ReportWindowMonths), today
}

// BuildReportRequest prepares a report refresh for the given day.
func BuildReportRequest(kind portal.ReportKind, today time.Time) (portal.ReportRequest, error) {
	def, ok := reportDefs[kind]
	if !ok {
		return portal.ReportRequest{}, fmt.Errorf("unknown report kind: %v", kind)
	}

	from, to := ReportWindow(today)
	extra := make(map[string]string, len(def.Extra)+1)
	extra["parm"] = def.Parm
	for k, v := range def.Extra {
		extra[k] = v
	}

	return portal.ReportRequest{
		Kind:     kind,
		DateFrom: from,
		DateTo:   to,
		Extra:    extra,
	}, nil
}

// ReportForm is the POST body of a report request: the kind-specific
// parameters plus the shared paging and date range.
func ReportForm(req portal.ReportRequest) url.Values {
	form := url.Values{}
	for k, v := range req.Extra {
		form.Set(k, v)
	}
	form.Set("period", "1")
	form.Set("pg", "1")
	form.Set("show_params", "1")
	form.Set("cardid", "")
	form.Set("date_from", req.DateFrom.Format(ReportDateLayout))
	form.Set("date_to", req.DateTo.Format(ReportDateLayout))
	return form
}

// --- HELPERS ---

func parseDocument(page string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", portal.ErrParsingFailed, err)
	}
	return doc, nil
}

// newsBodyAfter walks the siblings after a date marker, skipping line
// breaks, until it reaches a news body. Another date marker first means this
// date has no body.
func newsBodyAfter(date *goquery.Selection) *goquery.Selection {
	for next := date.Next(); next.Length() > 0; next = next.Next() {
		class := strings.TrimSpace(next.AttrOr("class", ""))
		if goquery.NodeName(next) != "br" && class == ClassNewsBody {
			return next
		}
		if class == ClassNewsDate {
			return nil
		}
	}
	return nil
}

func ownerLabel(doc *goquery.Document) string {
	label := DefaultOwnerLabel
	doc.FindMatcher(matchOwnerCandidates).EachWithBreak(func(_ int, el *goquery.Selection) bool {
		text := normalizeText(el.Text())
		for _, marker := range ownerMarkers {
			if strings.Contains(text, marker) {
				label = text
				return false
			}
		}
		return true
	})
	return label
}

func resolveAction(base *url.URL, action string) (string, error) {
	ref, err := url.Parse(strings.TrimSpace(action))
	if err != nil {
		return "", fmt.Errorf("invalid form action %q: %w", action, err)
	}
	if base == nil || ref.IsAbs() {
		return ref.String(), nil
	}
	return base.ResolveReference(ref).String(), nil
}

func stripPresentation(s *goquery.Selection) {
	all := s.AddSelection(s.Find("*"))
	for _, attr := range presentationAttrs {
		all.RemoveAttr(attr)
	}
}

func renderOuter(buf *bytes.Buffer, s *goquery.Selection) error {
	for _, n := range s.Nodes {
		if err := html.Render(buf, n); err != nil {
			return fmt.Errorf("%w: render fragment: %v", portal.ErrParsingFailed, err)
		}
	}
	return nil
}

func normalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func addMonthsClamped(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	if last := first.AddDate(0, 1, -1).Day(); d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}
