package chukotnet

import "github.com/andybalholm/cascadia"

// CSS Selectors for the Chukotnet site and subscriber cabinet
const (
	// News page
	SelectorNewsDate = "span.date"
	ClassNewsDate    = "date"
	ClassNewsBody    = "news"

	// Pricing sub-pages. Everything else (navigation, banners) is dropped.
	SelectorTariffBlocks = "table.price, p.hint, p.information, h1, h4"

	// Login page and cabinet
	SelectorLoginHidden   = "form input[type=hidden]"
	SelectorPasswordField = `input[name="PWDD"]`
	SelectorAccountsTable = `div.table-responsive table:contains("Лицевые счета")`
	SelectorAccountsAny   = `table:contains("Лицевые счета")`
	SelectorAccountRows   = "tbody tr"

	// Statistics reports
	SelectorReportContainer = "div.table-responsive"
	SelectorReportFallback  = `table:contains("Дата"), table:contains("Сумма")`
	SelectorReportJunk      = "button, tr.info"

	// Payment lookup page
	SelectorAbsoluteForm    = `form[action^="http"]`
	SelectorOwnerCandidates = "td, div, p, b"
)

var (
	matchNewsDate        = cascadia.MustCompile(SelectorNewsDate)
	matchTariffBlocks    = cascadia.MustCompile(SelectorTariffBlocks)
	matchLoginHidden     = cascadia.MustCompile(SelectorLoginHidden)
	matchPasswordField   = cascadia.MustCompile(SelectorPasswordField)
	matchAccountsTable   = cascadia.MustCompile(SelectorAccountsTable)
	matchAccountsAny     = cascadia.MustCompile(SelectorAccountsAny)
	matchReportFallback  = cascadia.MustCompile(SelectorReportFallback)
	matchAbsoluteForm    = cascadia.MustCompile(SelectorAbsoluteForm)
	matchOwnerCandidates = cascadia.MustCompile(SelectorOwnerCandidates)
)
