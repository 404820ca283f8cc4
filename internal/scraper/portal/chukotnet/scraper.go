// Package chukotnet defines the scraper and parsing logic for the Chukotnet
// site, its subscriber cabinet and its payment lookup page.
package chukotnet

import (
	"context"
	"log/slog"
	"maps"
	"net/http"
	"net/url"
	"time"

	"github.com/grez-lucas/portal-scraper/internal/render"
	"github.com/grez-lucas/portal-scraper/internal/scraper/fetch"
	"github.com/grez-lucas/portal-scraper/internal/scraper/portal"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/encoding"
)

// Fetcher issues one HTTP request. *fetch.Fetcher is the production
// implementation.
type Fetcher interface {
	Fetch(ctx context.Context, req fetch.Request) (*fetch.Response, error)
}

type Scraper struct {
	fetcher   Fetcher
	session   *portal.Session
	renderer  *render.Renderer
	endpoints Endpoints
	now       func() time.Time
	logger    *slog.Logger

	providerEncoding encoding.Encoding
	gatewayEncoding  encoding.Encoding
}

var _ portal.PortalScraper = (*Scraper)(nil)

type Option func(*Scraper)

func WithFetcher(f Fetcher) Option {
	return func(s *Scraper) {
		s.fetcher = f
	}
}

// WithSession shares a session with other components. The scraper only
// writes to it on a successful login.
func WithSession(session *portal.Session) Option {
	return func(s *Scraper) {
		s.session = session
	}
}

func WithRenderer(r *render.Renderer) Option {
	return func(s *Scraper) {
		s.renderer = r
	}
}

func WithEndpoints(e Endpoints) Option {
	return func(s *Scraper) {
		s.endpoints = e
	}
}

// WithClock overrides the source of "today" for report windows.
func WithClock(now func() time.Time) Option {
	return func(s *Scraper) {
		s.now = now
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Scraper) {
		s.logger = logger
	}
}

// WithEncodings sets the body encodings of provider pages and the payment
// lookup page.
func WithEncodings(provider, gateway encoding.Encoding) Option {
	return func(s *Scraper) {
		if provider != nil {
			s.providerEncoding = provider
		}
		if gateway != nil {
			s.gatewayEncoding = gateway
		}
	}
}

func New(opts ...Option) *Scraper {
	s := &Scraper{
		session:          portal.NewSession(),
		renderer:         render.New(render.LightPalette),
		endpoints:        DefaultEndpoints(),
		now:              time.Now,
		logger:           slog.Default(),
		providerEncoding: fetch.Windows1251,
		gatewayEncoding:  fetch.UTF8,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.fetcher == nil {
		s.fetcher = fetch.New(fetch.WithLogger(s.logger))
	}
	return s
}

func (s *Scraper) Session() *portal.Session {
	return s.session
}

func (s *Scraper) Renderer() *render.Renderer {
	return s.renderer
}

// --- PUBLIC API ---

// Login fetches the login page, posts the credentials with its hidden
// fields and reopens the cabinet. Cookies collected along the way are only
// merged into the session when the cabinet no longer shows the login form.
func (s *Scraper) Login(ctx context.Context, creds portal.Credentials) (*portal.LoginResult, error) {
	const op = "Login"

	staged := make(map[string]string)

	loginPage, err := s.fetchCabinet(ctx, http.MethodGet, s.endpoints.Login(), nil, staged)
	if err != nil {
		return nil, s.fail(op, err, "GET login page")
	}
	maps.Copy(staged, loginPage.Cookies)

	form, err := ParseLoginForm(loginPage.Body)
	if err != nil {
		return nil, s.fail(op, err, "login form")
	}
	form.Set(FieldUserName, creds.Login)
	form.Set(FieldPassword, creds.Password)

	posted, err := s.fetchCabinet(ctx, http.MethodPost, s.endpoints.Login(), form, staged)
	if err != nil {
		if loginFormServed(posted) {
			return nil, s.rejectLogin(op, creds, "login form served with an error status")
		}
		return nil, s.fail(op, err, "POST credentials")
	}
	maps.Copy(staged, posted.Cookies)

	// The password field decides, whatever the status of the cabinet page.
	cabinet, err := s.fetchCabinet(ctx, http.MethodGet, s.endpoints.CabinetHome(), nil, staged)
	if loginFormServed(cabinet) {
		return nil, s.rejectLogin(op, creds, "password field still present")
	}
	if err != nil {
		return nil, s.fail(op, err, "GET cabinet")
	}

	s.session.Merge(staged)

	accounts, found, err := ParseAccounts(cabinet.Body)
	if err != nil {
		return nil, s.fail(op, err, "accounts table")
	}

	var message string
	if !found {
		message = render.PlaceholderNoTable
	}
	page, err := s.renderer.Accounts(accounts, message)
	if err != nil {
		return nil, s.fail(op, err, "")
	}

	s.logger.Info("logged in", "user", creds.Login, "accounts", len(accounts), "cookies", len(staged))

	return &portal.LoginResult{
		Accounts: accounts,
		Page: &portal.Fragment{
			Tab:     portal.TabHome,
			HTML:    page,
			BaseURL: s.endpoints.Cabinet,
		},
	}, nil
}

func (s *Scraper) News(ctx context.Context) (*portal.Fragment, error) {
	const op = "News"

	resp, err := s.fetcher.Fetch(ctx, fetch.Request{
		Method:   http.MethodGet,
		URL:      s.endpoints.News(),
		Encoding: s.providerEncoding,
	})
	if err != nil {
		return nil, s.fail(op, err, "")
	}

	cards, markers, err := ParseNews(resp.Body)
	if err != nil {
		return nil, s.fail(op, err, "")
	}

	page, err := s.renderer.News(cards, markers == 0)
	if err != nil {
		return nil, s.fail(op, err, "")
	}

	return &portal.Fragment{Tab: portal.TabNews, HTML: page, BaseURL: s.endpoints.Site}, nil
}

// Tariffs fetches both pricing sub-pages concurrently. Nothing is rendered
// unless both arrive.
func (s *Scraper) Tariffs(ctx context.Context) (*portal.Fragment, error) {
	const op = "Tariffs"

	sources := []struct {
		title string
		url   string
	}{
		{render.TitleInternet, s.endpoints.InternetPrices()},
		{render.TitleTV, s.endpoints.TVPrices()},
	}
	sections := make([]render.Section, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	for i, src := range sources {
		g.Go(func() error {
			resp, err := s.fetcher.Fetch(gctx, fetch.Request{
				Method:   http.MethodGet,
				URL:      src.url,
				Encoding: s.providerEncoding,
			})
			if err != nil {
				return err
			}
			body, err := ParseTariffSection(resp.Body)
			if err != nil {
				return err
			}
			sections[i] = render.Section{Title: src.title, Body: body}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, s.fail(op, err, "")
	}

	page, err := s.renderer.Tariffs(sections)
	if err != nil {
		return nil, s.fail(op, err, "")
	}

	return &portal.Fragment{Tab: portal.TabTariffs, HTML: page, BaseURL: s.endpoints.Site}, nil
}

// Statistics posts one report request. It refuses to run, without touching
// the network, while the session holds no cookies.
func (s *Scraper) Statistics(ctx context.Context, kind portal.ReportKind) (*portal.Fragment, error) {
	const op = "Statistics"

	if !s.session.IsAuthenticated() {
		return nil, s.fail(op, portal.ErrNotAuthenticated, kind.String())
	}

	req, err := BuildReportRequest(kind, s.now())
	if err != nil {
		return nil, s.fail(op, err, "")
	}
	endpoint, err := s.endpoints.Report(kind)
	if err != nil {
		return nil, s.fail(op, err, "")
	}

	resp, err := s.fetcher.Fetch(ctx, fetch.Request{
		Method:   http.MethodPost,
		URL:      endpoint,
		Form:     ReportForm(req),
		Cookies:  s.session.Snapshot(),
		Encoding: s.providerEncoding,
	})
	if loginFormServed(resp) {
		return nil, s.fail(op, portal.ErrNotAuthenticated, "session rejected by cabinet")
	}
	if err != nil {
		return nil, s.fail(op, err, kind.String())
	}

	table, err := ParseStatisticsTable(resp.Body)
	if err != nil {
		return nil, s.fail(op, err, kind.String())
	}

	page, err := s.renderer.Statistics(
		ReportTitle(kind),
		req.DateFrom.Format(ReportDateLayout),
		req.DateTo.Format(ReportDateLayout),
		table,
	)
	if err != nil {
		return nil, s.fail(op, err, "")
	}

	return &portal.Fragment{Tab: portal.TabStats, HTML: page, BaseURL: s.endpoints.Cabinet}, nil
}

// VerifyPayment posts the account and amount to the payment lookup page and
// extracts the bank gateway form it returns.
func (s *Scraper) VerifyPayment(ctx context.Context, account, amount string) (*portal.PaymentQuote, error) {
	const op = "VerifyPayment"

	resp, err := s.fetcher.Fetch(ctx, fetch.Request{
		Method:   http.MethodPost,
		URL:      s.endpoints.Payment,
		Form:     url.Values{FieldAccount: {account}, FieldMoney: {amount}},
		Encoding: s.gatewayEncoding,
	})
	if err != nil {
		return nil, s.fail(op, err, "")
	}

	quote, err := ParsePaymentQuote(resp.Body, resp.URL, account, amount)
	if err != nil {
		return nil, s.fail(op, err, "account "+account)
	}

	s.logger.Info("payment quoted",
		"account", account,
		"amount", amount,
		"action", quote.BankFormAction,
		"fields", len(quote.HiddenFields),
	)
	return quote, nil
}

// --- INTERNAL ---

func (s *Scraper) fetchCabinet(ctx context.Context, method, target string, form url.Values, cookies map[string]string) (*fetch.Response, error) {
	return s.fetcher.Fetch(ctx, fetch.Request{
		Method:    method,
		URL:       target,
		Form:      form,
		Cookies:   maps.Clone(cookies),
		UserAgent: DesktopUserAgent,
		Encoding:  s.providerEncoding,
	})
}

func (s *Scraper) rejectLogin(op string, creds portal.Credentials, details string) error {
	s.logger.Warn("login rejected", "user", creds.Login)
	return s.fail(op, portal.ErrInvalidCredentials, details)
}

// loginFormServed reports a cabinet response, of any status, that still asks
// for the password.
func loginFormServed(resp *fetch.Response) bool {
	return resp != nil && HasPasswordField(resp.Body)
}

func (s *Scraper) fail(operation string, cause error, details string) error {
	return &portal.ScraperError{
		Portal:    portal.PortalChukotnet,
		Operation: operation,
		Cause:     cause,
		Details:   details,
	}
}
