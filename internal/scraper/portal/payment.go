package portal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

var ErrPaymentInputMissing = errors.New("account and amount are required")

// QuoteVerifier looks the subscriber up on the provider's payment page and
// returns the bank gateway form it points at.
type QuoteVerifier interface {
	VerifyPayment(ctx context.Context, account, amount string) (*PaymentQuote, error)
}

type PaymentState int

const (
	PaymentUnverified PaymentState = iota
	PaymentVerifying
	PaymentQuoted
)

func (s PaymentState) String() string {
	switch s {
	case PaymentUnverified:
		return "unverified"
	case PaymentVerifying:
		return "verifying"
	case PaymentQuoted:
		return "quoted"
	default:
		return fmt.Sprintf("PaymentState(%d)", int(s))
	}
}

// PaymentFlow tracks one payment attempt. Any edit of the account or amount
// drops the quote, so a quote is only ever submitted for the exact input it
// was verified against.
type PaymentFlow struct {
	verifier QuoteVerifier

	mu      sync.Mutex
	state   PaymentState
	account string
	amount  string
	quote   *PaymentQuote
	// gen increments on every edit; a verification started under an older
	// gen is discarded when it completes.
	gen uint64
}

func NewPaymentFlow(verifier QuoteVerifier) *PaymentFlow {
	return &PaymentFlow{verifier: verifier}
}

func (f *PaymentFlow) SetAccount(account string) {
	f.edit(func() bool {
		if f.account == account {
			return false
		}
		f.account = account
		return true
	})
}

func (f *PaymentFlow) SetAmount(amount string) {
	f.edit(func() bool {
		if f.amount == amount {
			return false
		}
		f.amount = amount
		return true
	})
}

func (f *PaymentFlow) edit(apply func() bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !apply() {
		return
	}
	f.gen++
	f.state = PaymentUnverified
	f.quote = nil
}

func (f *PaymentFlow) State() PaymentState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *PaymentFlow) Input() (account, amount string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.account, f.amount
}

// Quote returns the current quote, or nil unless the flow is Quoted.
func (f *PaymentFlow) Quote() *PaymentQuote {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != PaymentQuoted {
		return nil
	}
	return f.quote
}

// Check verifies the current account and amount. On any failure the flow
// returns to Unverified.
func (f *PaymentFlow) Check(ctx context.Context) (*PaymentQuote, error) {
	f.mu.Lock()
	account := strings.TrimSpace(f.account)
	amount := strings.TrimSpace(f.amount)
	if account == "" || amount == "" {
		f.mu.Unlock()
		return nil, ErrPaymentInputMissing
	}
	f.state = PaymentVerifying
	f.quote = nil
	gen := f.gen
	f.mu.Unlock()

	quote, err := f.verifier.VerifyPayment(ctx, account, amount)

	f.mu.Lock()
	defer f.mu.Unlock()
	if gen != f.gen {
		return nil, fmt.Errorf("%w: input changed during verification", ErrQuoteNotVerified)
	}
	if err != nil {
		f.state = PaymentUnverified
		return nil, err
	}
	if quote == nil {
		f.state = PaymentUnverified
		return nil, ErrPaymentFormNotFound
	}
	f.state = PaymentQuoted
	f.quote = quote
	return quote, nil
}

// Submit hands out the quote exactly once.
func (f *PaymentFlow) Submit() (*PaymentQuote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != PaymentQuoted || f.quote == nil {
		return nil, ErrQuoteNotVerified
	}
	quote := f.quote
	f.quote = nil
	f.state = PaymentUnverified
	return quote, nil
}
