package browser

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

const (
	DefaultTimeout = 60 * time.Second

	// submitFirstFormJS mirrors the redirect page's onload handler, which
	// does not fire for content injected into an already loaded tab.
	submitFirstFormJS = `() => { const f = document.forms[0]; if (f) { f.submit(); return true } return false }`
)

type Launcher struct {
	headless bool
	bin      string
	timeout  time.Duration
	hijack   func(*rod.Hijack)
	logger   *slog.Logger
}

type Option func(*Launcher)

func WithHeadless(headless bool) Option {
	return func(l *Launcher) {
		l.headless = headless
	}
}

// WithBin sets the Chrome binary. Empty means the one rod downloads.
func WithBin(path string) Option {
	return func(l *Launcher) {
		l.bin = path
	}
}

func WithTimeout(d time.Duration) Option {
	return func(l *Launcher) {
		l.timeout = d
	}
}

// WithHijacker routes every request of the tab through h, e.g. a
// replayer's Middleware.
func WithHijacker(h func(*rod.Hijack)) Option {
	return func(l *Launcher) {
		l.hijack = h
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(l *Launcher) {
		l.logger = logger
	}
}

func New(opts ...Option) *Launcher {
	l := &Launcher{
		timeout: DefaultTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Tab is an open browser tab. Close releases the whole browser.
type Tab struct {
	browser *rod.Browser
	router  *rod.HijackRouter
	Page    *rod.Page
}

// Info returns the current URL and title of the tab.
func (t *Tab) Info() (url, title string, err error) {
	info, err := t.Page.Info()
	if err != nil {
		return "", "", err
	}
	return info.URL, info.Title, nil
}

func (t *Tab) Close() error {
	if t.router != nil {
		_ = t.router.Stop()
	}
	return t.browser.Close()
}

// OpenPaymentPage loads the auto-posting redirect document into a stealth
// tab, submits it and waits until the bank gateway page has settled.
func (l *Launcher) OpenPaymentPage(ctx context.Context, redirectHTML string) (*Tab, error) {
	tab, err := l.open(ctx)
	if err != nil {
		return nil, err
	}

	page := tab.Page.Timeout(l.timeout)
	if err := page.SetDocumentContent(redirectHTML); err != nil {
		_ = tab.Close()
		return nil, fmt.Errorf("load redirect page: %w", err)
	}

	wait := page.WaitNavigation(proto.PageLifecycleEventNameDOMContentLoaded)
	res, err := page.Eval(submitFirstFormJS)
	if err != nil {
		_ = tab.Close()
		return nil, fmt.Errorf("submit bank form: %w", err)
	}
	if !res.Value.Bool() {
		_ = tab.Close()
		return nil, fmt.Errorf("redirect page has no form")
	}
	wait()

	frames, err := settleFrames(page, 0)
	if err != nil {
		l.logger.Warn("gateway page did not settle", "frames", frames, "error", err)
	}

	if url, title, err := tab.Info(); err == nil {
		l.logger.Info("bank gateway opened", "url", url, "title", title, "frames", frames)
	}
	return tab, nil
}

func (l *Launcher) open(ctx context.Context) (*Tab, error) {
	lc := launcher.New().
		Headless(l.headless).
		// Disable the "Automation" internal flags
		Set("disable-blink-features", "AutomationControlled").
		Set("no-first-run").
		Set("no-default-browser-check")
	if l.bin != "" {
		lc = lc.Bin(l.bin)
	}

	controlURL, err := lc.Context(ctx).Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	tab := &Tab{browser: browser}
	if l.hijack != nil {
		tab.router = browser.HijackRequests()
		if err := tab.router.Add("*", "", l.hijack); err != nil {
			_ = tab.Close()
			return nil, fmt.Errorf("install hijacker: %w", err)
		}
		go tab.router.Run()
	}

	page, err := stealth.Page(browser)
	if err != nil {
		_ = tab.Close()
		return nil, fmt.Errorf("open stealth page: %w", err)
	}
	tab.Page = page
	return tab, nil
}
