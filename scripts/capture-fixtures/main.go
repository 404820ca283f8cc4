// capture-fixtures walks the provider pages with the real HTTP client,
// records every exchange as a HAR and saves the final page of each step as
// an HTML fixture.
//
// Usage:
//
//	go run ./scripts/capture-fixtures/main.go -scenario=full
//	go run ./scripts/capture-fixtures/main.go -scenario=pay -account=10293 -amount=500
package main

import (
	"context"
	"encoding/base64"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"time"

	"github.com/grez-lucas/portal-scraper/internal/config"
	"github.com/grez-lucas/portal-scraper/internal/scraper/fetch"
	"github.com/grez-lucas/portal-scraper/internal/scraper/portal"
	"github.com/grez-lucas/portal-scraper/internal/scraper/portal/chukotnet"
	"github.com/grez-lucas/portal-scraper/internal/scraper/testutil"
)

type step struct {
	Name string
	Run  func(ctx context.Context, s *chukotnet.Scraper) error
	// ByPage names one fixture per fetched page, keyed by the last path
	// segment of its URL. Without it only the final page is kept.
	ByPage map[string]string
}

func main() {
	portalDir := flag.String("portal", "chukotnet", "Portal directory under internal/scraper/portal")
	scenario := flag.String("scenario", "full", "Recording name")
	outputDir := flag.String("output", "", "Output directory (default: internal/scraper/portal/{portal}/testdata)")
	envFile := flag.String("env-file", config.DefaultEnvFile, "File with PORTAL_LOGIN and PORTAL_PASSWORD")
	account := flag.String("account", "", "Contract number for the payment lookup (optional)")
	amount := flag.String("amount", "100", "Amount for the payment lookup")
	flag.Parse()

	outDir := *outputDir
	if outDir == "" {
		outDir = filepath.Join("internal", "scraper", "portal", *portalDir, "testdata")
	}
	fixturesDir := filepath.Join(outDir, "fixtures")
	recordingsDir := filepath.Join(outDir, "recordings")
	for _, dir := range []string{fixturesDir, recordingsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			fmt.Printf("Error creating directory: %v\n", err)
			os.Exit(1)
		}
	}

	recorder := testutil.NewRecorder(http.DefaultTransport)
	scraper := chukotnet.New(chukotnet.WithFetcher(fetch.New(fetch.WithTransport(recorder))))

	steps := []step{
		{Name: "news", Run: func(ctx context.Context, s *chukotnet.Scraper) error { _, err := s.News(ctx); return err }},
		{Name: "tariffs", Run: func(ctx context.Context, s *chukotnet.Scraper) error { _, err := s.Tariffs(ctx); return err },
			ByPage: map[string]string{"internet.html": "prices-internet", "tv.html": "prices-tv"}},
	}

	if creds, err := config.Credentials(*envFile); err == nil {
		steps = append(steps, step{Name: "cabinet", Run: func(ctx context.Context, s *chukotnet.Scraper) error {
			_, err := s.Login(ctx, creds)
			return err
		}})
		for _, kind := range []portal.ReportKind{portal.ReportTraffic, portal.ReportPayments, portal.ReportSubscriptionFee} {
			steps = append(steps, step{Name: "stats-" + kind.String(), Run: func(ctx context.Context, s *chukotnet.Scraper) error {
				_, err := s.Statistics(ctx, kind)
				return err
			}})
		}
	} else {
		fmt.Printf("No credentials (%v), skipping the cabinet\n", err)
	}

	if *account != "" {
		steps = append(steps, step{Name: "payment-found", Run: func(ctx context.Context, s *chukotnet.Scraper) error {
			_, err := s.VerifyPayment(ctx, *account, *amount)
			return err
		}})
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	fmt.Printf("Capturing %d steps into %s\n\n", len(steps), outDir)

	for _, st := range steps {
		before := len(recorder.HAR().Entries)
		stepCtx, stepCancel := context.WithTimeout(ctx, 30*time.Second)
		err := st.Run(stepCtx, scraper)
		stepCancel()

		entries := recorder.HAR().Entries[before:]
		if err != nil {
			fmt.Printf("  %-16s %v (%d requests kept)\n", st.Name, err, len(entries))
		}
		if len(entries) == 0 {
			continue
		}

		for name, entry := range fixturesFor(st, entries) {
			file := filepath.Join(fixturesDir, name+".html")
			if err := writeFixture(file, entry); err != nil {
				fmt.Printf("  %-16s error saving fixture: %v\n", name, err)
				continue
			}
			fmt.Printf("  %-16s %s (%d requests)\n", name, file, len(entries))
		}
	}

	harPath := filepath.Join(recordingsDir, *scenario+".har.json")
	if err := testutil.SaveHAR(harPath, testutil.SanitizeHAR(recorder.HAR())); err != nil {
		fmt.Printf("Error saving HAR: %v\n", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Printf("Recording saved: %s\n", harPath)
	fmt.Println("Fixtures are NOT sanitized automatically. Before committing run:")
	fmt.Println("   go run ./scripts/sanitize-patterns/main.go -portal=" + *portalDir)
}

func fixturesFor(st step, entries []testutil.HAREntry) map[string]testutil.HAREntry {
	if st.ByPage == nil {
		// The last response of a step is the page its parser ran on.
		return map[string]testutil.HAREntry{st.Name: entries[len(entries)-1]}
	}
	out := make(map[string]testutil.HAREntry)
	for _, e := range entries {
		u, err := url.Parse(e.Request.URL)
		if err != nil {
			continue
		}
		if name, ok := st.ByPage[path.Base(u.Path)]; ok {
			out[name] = e
		}
	}
	return out
}

// writeFixture stores the page as UTF-8. Bodies the recorder could not
// decode are provider pages without a charset label.
func writeFixture(file string, entry testutil.HAREntry) error {
	text := entry.Response.Content.Text
	if entry.Response.Content.Encoding == "base64" {
		raw, err := base64.StdEncoding.DecodeString(text)
		if err != nil {
			return err
		}
		decoded, err := fetch.Windows1251.NewDecoder().Bytes(raw)
		if err != nil {
			return err
		}
		text = string(decoded)
	}
	return os.WriteFile(file, []byte(text), 0o644)
}
