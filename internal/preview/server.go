// Package preview serves the rendered tab documents on a local HTTP port so
// they can be opened in any browser.
package preview

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/grez-lucas/portal-scraper/internal/render"
	"github.com/grez-lucas/portal-scraper/internal/scraper/portal"
)

// MessageNotLoaded is shown for a tab whose page has not arrived yet.
const MessageNotLoaded = "Страница ещё не загружена."

// Source is the subset of the controller the preview reads from.
type Source interface {
	Fragment(tab portal.Tab) *portal.Fragment
	SubmitPayment() (string, error)
}

type Server struct {
	source   Source
	renderer *render.Renderer
	logger   *slog.Logger
}

type Option func(*Server)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

func New(source Source, renderer *render.Renderer, opts ...Option) *Server {
	s := &Server{source: source, renderer: renderer, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router maps /tabs/{tab} to the latest fragment for that tab and
// /payment/redirect to a single-use bank redirect page.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		if _, err := io.WriteString(w, "OK\n"); err != nil {
			s.logger.Warn("failed to write health response", "error", err)
		}
	}).Methods(http.MethodGet)
	r.HandleFunc("/tabs/{tab}", s.handleTab).Methods(http.MethodGet)
	r.HandleFunc("/payment/redirect", s.handleRedirect).Methods(http.MethodPost)
	r.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/tabs/"+string(portal.TabHome), http.StatusFound)
	}).Methods(http.MethodGet)
	return r
}

func (s *Server) handleTab(w http.ResponseWriter, r *http.Request) {
	tab := portal.Tab(mux.Vars(r)["tab"])
	switch tab {
	case portal.TabHome, portal.TabNews, portal.TabTariffs, portal.TabStats:
	default:
		http.Error(w, fmt.Sprintf("unknown tab %q", tab), http.StatusNotFound)
		return
	}

	frag := s.source.Fragment(tab)
	if frag == nil {
		page, err := s.renderer.Message(MessageNotLoaded)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		s.writeHTML(w, http.StatusNotFound, page)
		return
	}
	s.writeHTML(w, http.StatusOK, frag.HTML)
}

func (s *Server) handleRedirect(w http.ResponseWriter, _ *http.Request) {
	page, err := s.source.SubmitPayment()
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, portal.ErrQuoteNotVerified) {
			status = http.StatusConflict
		}
		http.Error(w, portal.UserMessage(err), status)
		return
	}
	s.writeHTML(w, http.StatusOK, page)
}

func (s *Server) writeHTML(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := io.WriteString(w, body); err != nil {
		s.logger.Warn("failed to write preview", "error", err)
	}
}
