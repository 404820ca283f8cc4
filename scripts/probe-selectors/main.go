// probe-selectors fetches the provider pages, or reads saved fixtures, and
// prints how many nodes each extractor selector matches. A selector that
// suddenly matches nothing means the provider changed its markup.
//
// Usage:
//
//	go run ./scripts/probe-selectors
//	go run ./scripts/probe-selectors -fixtures=internal/scraper/portal/chukotnet/testdata/fixtures
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/grez-lucas/portal-scraper/internal/scraper/fetch"
	"github.com/grez-lucas/portal-scraper/internal/scraper/portal/chukotnet"
)

// selectorProbe is a known CSS selector to search for in a page.
type selectorProbe struct {
	Name     string
	Selector string
}

type pageToProbe struct {
	Fixture string
	URL     string
	Probes  []selectorProbe
}

func pages(e chukotnet.Endpoints) []pageToProbe {
	return []pageToProbe{
		{"news", e.News(), []selectorProbe{
			{"News date marker", chukotnet.SelectorNewsDate},
		}},
		{"prices-internet", e.InternetPrices(), []selectorProbe{
			{"Tariff blocks", chukotnet.SelectorTariffBlocks},
		}},
		{"prices-tv", e.TVPrices(), []selectorProbe{
			{"Tariff blocks", chukotnet.SelectorTariffBlocks},
		}},
		{"login", e.Login(), []selectorProbe{
			{"Hidden login inputs", chukotnet.SelectorLoginHidden},
			{"Password field", chukotnet.SelectorPasswordField},
		}},
		{"cabinet", "", []selectorProbe{
			{"Accounts table", chukotnet.SelectorAccountsTable},
			{"Any accounts table", chukotnet.SelectorAccountsAny},
		}},
		{"stats-traffic", "", []selectorProbe{
			{"Report container", chukotnet.SelectorReportContainer},
			{"Report fallback", chukotnet.SelectorReportFallback},
		}},
		{"payment-found", "", []selectorProbe{
			{"Gateway form", chukotnet.SelectorAbsoluteForm},
			{"Owner candidates", chukotnet.SelectorOwnerCandidates},
		}},
	}
}

func main() {
	fixturesDir := flag.String("fixtures", "", "Probe saved fixtures in this directory instead of fetching")
	flag.Parse()

	fetcher := fetch.New(fetch.WithTimeout(20 * time.Second))
	ctx := context.Background()

	fmt.Println(strings.Repeat("=", 64))
	fmt.Println("  SELECTOR PROBE")
	fmt.Println(strings.Repeat("=", 64))

	for _, pg := range pages(chukotnet.DefaultEndpoints()) {
		body, source, err := load(ctx, fetcher, *fixturesDir, pg)
		if err != nil {
			fmt.Printf("\nPAGE %s: %v\n", pg.Fixture, err)
			continue
		}
		if body == "" {
			fmt.Printf("\nPAGE %s: needs a session, probe its fixture with -fixtures\n", pg.Fixture)
			continue
		}

		doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
		if err != nil {
			fmt.Printf("\nPAGE %s: parse: %v\n", pg.Fixture, err)
			continue
		}

		fmt.Printf("\nPAGE %s  (%s)\n", pg.Fixture, source)
		for _, probe := range pg.Probes {
			n := doc.Find(probe.Selector).Length()
			status := "FOUND "
			if n == 0 {
				status = "MISSING"
			}
			fmt.Printf("  %s %-24s %3d  %s\n", status, probe.Name, n, probe.Selector)
		}
	}
}

func load(ctx context.Context, fetcher *fetch.Fetcher, dir string, pg pageToProbe) (body, source string, err error) {
	if dir != "" {
		path := filepath.Join(dir, pg.Fixture+".html")
		data, err := os.ReadFile(path)
		if err != nil {
			return "", "", err
		}
		return string(data), path, nil
	}
	if pg.URL == "" {
		return "", "", nil
	}
	resp, err := fetcher.Fetch(ctx, fetch.Request{URL: pg.URL, UserAgent: chukotnet.DesktopUserAgent})
	if err != nil {
		return "", "", err
	}
	return resp.Body, resp.URL.String(), nil
}
