package portal

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Credentials are entered by the subscriber; they never leave the login flow.
type Credentials struct {
	Login    string
	Password string
}

type Severity string

const (
	SeverityDebt Severity = "debt"
	SeverityLow  Severity = "low"
	SeverityOK   Severity = "ok"
)

// LowBalanceThreshold is the balance under which the account is flagged low.
var LowBalanceThreshold = decimal.NewFromInt(450)

// SeverityOf classifies a balance: < 0 is debt, < 450 is low, anything else ok.
func SeverityOf(v decimal.Decimal) Severity {
	switch {
	case v.IsNegative():
		return SeverityDebt
	case v.LessThan(LowBalanceThreshold):
		return SeverityLow
	default:
		return SeverityOK
	}
}

// AccountRecord is one row of the cabinet accounts table.
type AccountRecord struct {
	ContractNumber string
	// BalanceText is displayed verbatim, even when it does not parse.
	BalanceText  string
	BalanceValue decimal.NullDecimal
}

// Severity treats an unparseable balance as zero.
func (a AccountRecord) Severity() Severity {
	if !a.BalanceValue.Valid {
		return SeverityOf(decimal.Zero)
	}
	return SeverityOf(a.BalanceValue.Decimal)
}

type LoginResult struct {
	Accounts []AccountRecord
	Page     *Fragment
}

// Active returns the account that pre-fills the payment form.
func (r *LoginResult) Active() (AccountRecord, bool) {
	if r == nil || len(r.Accounts) == 0 {
		return AccountRecord{}, false
	}
	return r.Accounts[0], true
}

type ReportKind int

const (
	ReportTraffic ReportKind = iota
	ReportPayments
	ReportSubscriptionFee
)

func (k ReportKind) String() string {
	switch k {
	case ReportTraffic:
		return "traffic"
	case ReportPayments:
		return "payments"
	case ReportSubscriptionFee:
		return "fee"
	default:
		return fmt.Sprintf("ReportKind(%d)", int(k))
	}
}

// ParseReportKind accepts the names produced by String.
func ParseReportKind(s string) (ReportKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "traffic", "0":
		return ReportTraffic, nil
	case "payments", "1":
		return ReportPayments, nil
	case "fee", "subscription-fee", "2":
		return ReportSubscriptionFee, nil
	default:
		return 0, fmt.Errorf("unknown report kind: %q", s)
	}
}

// ReportRequest is built once per refresh and never mutated.
type ReportRequest struct {
	Kind     ReportKind
	DateFrom time.Time
	DateTo   time.Time
	Extra    map[string]string
}

type HiddenField struct {
	Name  string
	Value string
}

// PaymentQuote is a verified payment ready for the bank gateway.
type PaymentQuote struct {
	Account        string
	Amount         string
	OwnerLabel     string
	BankFormAction string
	BankFormMethod string
	HiddenFields   []HiddenField
}

type Tab string

const (
	TabHome    Tab = "home"
	TabNews    Tab = "news"
	TabTariffs Tab = "tariffs"
	TabStats   Tab = "stats"
	TabPayment Tab = "payment"
)

// Fragment is a finished, self-contained HTML document for one tab.
type Fragment struct {
	Tab  Tab
	HTML string
	// BaseURL is the origin relative links in HTML resolve against.
	BaseURL string
}

// ButtonLabel is the caption of the control that submits the quote.
func (q *PaymentQuote) ButtonLabel() string {
	return fmt.Sprintf("Оплатить %s руб.", q.Amount)
}
