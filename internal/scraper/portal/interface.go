// Package portal defines the common structs and logic shared by ISP customer
// portal implementations.
package portal

import "context"

type PortalScraper interface {
	// Login authenticates the subscriber and merges the session cookies into
	// the scraper's Session
	Login(ctx context.Context, creds Credentials) (*LoginResult, error)

	News(ctx context.Context) (*Fragment, error)
	Tariffs(ctx context.Context) (*Fragment, error)

	// Statistics refuses to run without session cookies
	Statistics(ctx context.Context, kind ReportKind) (*Fragment, error)

	QuoteVerifier
}

type PortalCode string

const (
	PortalChukotnet PortalCode = "CHUKOTNET"
)
