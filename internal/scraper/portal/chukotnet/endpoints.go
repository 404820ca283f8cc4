package chukotnet

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/grez-lucas/portal-scraper/internal/scraper/portal"
)

const (
	DefaultSiteURL    = "http://www.chukotnet.ru/"
	DefaultCabinetURL = "http://user.chukotnet.ru/main.php"
	DefaultPaymentURL = "http://www.chukotnet.ru/payment/add.html"

	// DesktopUserAgent is required by the cabinet login; it rejects the
	// minimal agent.
	DesktopUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	// Login form field names
	FieldUserName = "UserName"
	FieldPassword = "PWDD"

	// Payment lookup form field names
	FieldAccount = "account"
	FieldMoney   = "money"

	// cabinetHomeParm selects the accounts overview page.
	cabinetHomeParm = "1"
)

// Endpoints are the fixed provider URLs. Tests point them at httptest servers.
type Endpoints struct {
	Site    string
	Cabinet string
	Payment string
}

func DefaultEndpoints() Endpoints {
	return Endpoints{
		Site:    DefaultSiteURL,
		Cabinet: DefaultCabinetURL,
		Payment: DefaultPaymentURL,
	}
}

func (e Endpoints) News() string {
	return e.Site
}

func (e Endpoints) InternetPrices() string {
	return e.sitePath("prices/internet.html")
}

func (e Endpoints) TVPrices() string {
	return e.sitePath("prices/tv.html")
}

func (e Endpoints) Login() string {
	return e.Cabinet
}

func (e Endpoints) CabinetHome() string {
	return withParm(e.Cabinet, cabinetHomeParm)
}

func (e Endpoints) Report(kind portal.ReportKind) (string, error) {
	def, ok := reportDefs[kind]
	if !ok {
		return "", fmt.Errorf("unknown report kind: %v", kind)
	}
	return withParm(e.Cabinet, def.Parm), nil
}

func (e Endpoints) sitePath(p string) string {
	return strings.TrimRight(e.Site, "/") + "/" + p
}

func withParm(base, parm string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base + "?parm=" + url.QueryEscape(parm)
	}
	q := u.Query()
	q.Set("parm", parm)
	u.RawQuery = q.Encode()
	return u.String()
}

// reportDef is the fixed endpoint selector and form parameters of one report.
type reportDef struct {
	Parm  string
	Title string
	Extra map[string]string
}

var reportDefs = map[portal.ReportKind]reportDef{
	portal.ReportTraffic: {
		Parm:  "10",
		Title: "Трафик",
		Extra: map[string]string{
			"interval": "2",
			"view":     "0",
			"currency": "1",
			"unit":     "3",
			"byzones":  "0",
		},
	},
	portal.ReportPayments: {
		Parm:  "8",
		Title: "История платежей",
	},
	portal.ReportSubscriptionFee: {
		Parm:  "11",
		Title: "Абонентская плата",
	},
}

// ReportTitle is the heading shown above a report table.
func ReportTitle(kind portal.ReportKind) string {
	return reportDefs[kind].Title
}
