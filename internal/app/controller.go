// Package app is the interactive controller. It dispatches user actions as
// background tasks and applies their completions on a single goroutine.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/grez-lucas/portal-scraper/internal/render"
	"github.com/grez-lucas/portal-scraper/internal/scraper/portal"
	"github.com/grez-lucas/portal-scraper/internal/task"
)

var ErrBusy = errors.New("action already in progress")

type Action string

const (
	ActionLogin        Action = "login"
	ActionNews         Action = "news"
	ActionTariffs      Action = "tariffs"
	ActionStatistics   Action = "statistics"
	ActionCheckPayment Action = "check-payment"
)

type EventKind int

const (
	EventFragment EventKind = iota
	EventLoggedIn
	EventQuoted
	EventError
)

// Event is what the interactive surface receives for each finished action.
type Event struct {
	Kind     EventKind
	Action   Action
	Tab      portal.Tab
	Fragment *portal.Fragment
	Accounts []portal.AccountRecord
	Quote    *portal.PaymentQuote
	// Message is the user-facing text for errors and quotes.
	Message string
	Err     error
}

type Controller struct {
	scraper  portal.PortalScraper
	session  *portal.Session
	renderer *render.Renderer
	runner   *task.Runner
	flow     *portal.PaymentFlow
	events   chan Event
	logger   *slog.Logger

	mu        sync.Mutex
	inFlight  map[Action]bool
	fragments map[portal.Tab]*portal.Fragment
	accounts  []portal.AccountRecord
	tab       portal.Tab
}

type Option func(*Controller)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithEventBuffer sets how many events may wait for the surface.
func WithEventBuffer(n int) Option {
	return func(c *Controller) {
		c.events = make(chan Event, n)
	}
}

// New wires the controller. session must be the one the scraper writes to.
func New(ctx context.Context, scraper portal.PortalScraper, session *portal.Session, renderer *render.Renderer, opts ...Option) *Controller {
	c := &Controller{
		scraper:   scraper,
		session:   session,
		renderer:  renderer,
		flow:      portal.NewPaymentFlow(scraper),
		events:    make(chan Event, 16),
		logger:    slog.Default(),
		inFlight:  make(map[Action]bool),
		fragments: make(map[portal.Tab]*portal.Fragment),
		tab:       portal.TabHome,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.runner = task.NewRunner(ctx, task.WithLogger(c.logger))
	return c
}

// Events is read by the interactive surface.
func (c *Controller) Events() <-chan Event {
	return c.events
}

// Run applies task completions until ctx is done or Close is called. It is
// the only goroutine that mutates controller state on completion.
func (c *Controller) Run(ctx context.Context) error {
	defer close(c.events)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case comp, ok := <-c.runner.Completions():
			if !ok {
				return nil
			}
			ev := c.apply(comp)
			select {
			case c.events <- ev:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// Close waits for in-flight tasks; Run returns after delivering them.
func (c *Controller) Close() {
	c.runner.Close()
}

// --- ACTIONS ---

func (c *Controller) Login(creds portal.Credentials) error {
	return c.start(ActionLogin, func(ctx context.Context) (any, error) {
		return c.scraper.Login(ctx, creds)
	})
}

func (c *Controller) LoadNews() error {
	return c.start(ActionNews, func(ctx context.Context) (any, error) {
		return c.scraper.News(ctx)
	})
}

func (c *Controller) LoadTariffs() error {
	return c.start(ActionTariffs, func(ctx context.Context) (any, error) {
		return c.scraper.Tariffs(ctx)
	})
}

// LoadStatistics refuses immediately, switching back to the home tab, when
// nobody has logged in yet.
func (c *Controller) LoadStatistics(kind portal.ReportKind) error {
	if !c.session.IsAuthenticated() {
		c.mu.Lock()
		c.tab = portal.TabHome
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", portal.ErrNotAuthenticated, kind)
	}
	return c.start(ActionStatistics, func(ctx context.Context) (any, error) {
		return c.scraper.Statistics(ctx, kind)
	})
}

// SelectTab switches tabs and loads news or tariffs the first time their
// tab is shown.
func (c *Controller) SelectTab(tab portal.Tab) error {
	c.mu.Lock()
	c.tab = tab
	_, loaded := c.fragments[tab]
	c.mu.Unlock()

	if loaded {
		return nil
	}
	switch tab {
	case portal.TabNews:
		return c.LoadNews()
	case portal.TabTariffs:
		return c.LoadTariffs()
	default:
		return nil
	}
}

func (c *Controller) SetPaymentAccount(account string) {
	c.flow.SetAccount(account)
}

func (c *Controller) SetPaymentAmount(amount string) {
	c.flow.SetAmount(amount)
}

func (c *Controller) CheckPayment() error {
	return c.start(ActionCheckPayment, func(ctx context.Context) (any, error) {
		return c.flow.Check(ctx)
	})
}

// SubmitPayment consumes the quote and renders the page that posts it to
// the bank gateway.
func (c *Controller) SubmitPayment() (string, error) {
	quote, err := c.flow.Submit()
	if err != nil {
		return "", err
	}
	return c.renderer.PaymentRedirect(quote)
}

// --- STATE ---

func (c *Controller) Busy(action Action) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight[action]
}

func (c *Controller) Fragment(tab portal.Tab) *portal.Fragment {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fragments[tab]
}

func (c *Controller) Tab() portal.Tab {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tab
}

func (c *Controller) Accounts() []portal.AccountRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accounts
}

func (c *Controller) Payment() *portal.PaymentFlow {
	return c.flow
}

// --- INTERNAL ---

func (c *Controller) start(action Action, fn task.Func) error {
	c.mu.Lock()
	if c.inFlight[action] {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrBusy, action)
	}
	c.inFlight[action] = true
	c.mu.Unlock()

	id, err := c.runner.Go(string(action), fn)
	if err != nil {
		c.mu.Lock()
		delete(c.inFlight, action)
		c.mu.Unlock()
		return err
	}
	c.logger.Debug("action started", "action", action, "task", id)
	return nil
}

func (c *Controller) apply(comp task.Completion) Event {
	action := Action(comp.Name)

	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inFlight, action)

	if comp.Err != nil {
		c.logger.Warn("action failed", "action", action, "error", comp.Err, "duration", comp.Duration())
		return Event{Kind: EventError, Action: action, Message: portal.UserMessage(comp.Err), Err: comp.Err}
	}

	switch v := comp.Value.(type) {
	case *portal.LoginResult:
		c.accounts = v.Accounts
		c.fragments[portal.TabHome] = v.Page
		if active, ok := v.Active(); ok {
			c.flow.SetAccount(active.ContractNumber)
		}
		return Event{Kind: EventLoggedIn, Action: action, Tab: portal.TabHome, Fragment: v.Page, Accounts: v.Accounts}

	case *portal.Fragment:
		// Replaced wholesale, never merged.
		c.fragments[v.Tab] = v
		return Event{Kind: EventFragment, Action: action, Tab: v.Tab, Fragment: v}

	case *portal.PaymentQuote:
		return Event{Kind: EventQuoted, Action: action, Tab: portal.TabPayment, Quote: v, Message: v.OwnerLabel}

	default:
		err := fmt.Errorf("unexpected result %T from %s", comp.Value, action)
		return Event{Kind: EventError, Action: action, Message: portal.UserMessage(err), Err: err}
	}
}

// Await reads events until one for action arrives, dropping the rest. Only
// use it where nothing else consumes the events, as the CLI does.
func Await(ctx context.Context, events <-chan Event, action Action) (Event, error) {
	for {
		select {
		case <-ctx.Done():
			return Event{}, ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return Event{}, fmt.Errorf("controller stopped before %s finished", action)
			}
			if ev.Action != action {
				continue
			}
			if ev.Kind == EventError {
				return ev, ev.Err
			}
			return ev, nil
		}
	}
}
