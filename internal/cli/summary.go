package cli

import (
	"fmt"
	"strings"

	"github.com/grez-lucas/portal-scraper/internal/render"
	"github.com/grez-lucas/portal-scraper/internal/scraper/portal"
)

// AccountSummary renders the accounts found at login, one contract per
// line, balances coloured by severity.
func AccountSummary(accounts []portal.AccountRecord) string {
	if len(accounts) == 0 {
		return RenderBox("Лицевые счета", SubtleStyle.Render(render.PlaceholderNoTable))
	}

	lines := make([]string, 0, len(accounts))
	for _, a := range accounts {
		lines = append(lines, fmt.Sprintf("Договор: %s   Баланс: %s",
			BoldStyle.Render(a.ContractNumber),
			SeverityStyle(a.Severity()).Render(a.BalanceText+" руб.")))
	}
	return RenderBox("Лицевые счета", strings.Join(lines, "\n"))
}

// QuoteSummary is shown after a successful payment check.
func QuoteSummary(q *portal.PaymentQuote) string {
	body := strings.Join([]string{
		q.OwnerLabel,
		fmt.Sprintf("Договор: %s", BoldStyle.Render(q.Account)),
		SubtleStyle.Render(q.BankFormAction),
		"",
		BoldStyle.Render(q.ButtonLabel()),
	}, "\n")
	return RenderBox("Платёж проверен", body)
}
