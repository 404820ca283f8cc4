// sanitize-patterns scrubs subscriber data out of captured HTML fixtures.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/grez-lucas/portal-scraper/internal/scraper/testutil"
)

func main() {
	portalDir := flag.String("portal", "chukotnet", "Portal directory under internal/scraper/portal")
	dryRun := flag.Bool("dry-run", false, "Show what would be changed without modifying files")
	flag.Parse()

	fixturesDir := filepath.Join("internal", "scraper", "portal", *portalDir, "testdata", "fixtures")

	files, err := filepath.Glob(filepath.Join(fixturesDir, "*.html"))
	if err != nil || len(files) == 0 {
		fmt.Printf("No HTML files found in %s\n", fixturesDir)
		os.Exit(1)
	}

	fmt.Printf("Sanitizing fixtures for %s\n", *portalDir)
	if *dryRun {
		fmt.Println("    (DRY RUN - no files will be modified)")
	}
	fmt.Println()

	for _, file := range files {
		if err := sanitizeFile(file, *dryRun); err != nil {
			fmt.Printf("%s: %v\n", filepath.Base(file), err)
		}
	}
}

func sanitizeFile(file string, dryRun bool) error {
	content, err := os.ReadFile(file)
	if err != nil {
		return err
	}

	sanitized, hits := testutil.ScrubPage(string(content))

	name := filepath.Base(file)
	if len(hits) == 0 {
		fmt.Printf("%s: clean\n", name)
		return nil
	}

	rules := make([]string, 0, len(hits))
	for rule := range hits {
		rules = append(rules, rule)
	}
	sort.Strings(rules)

	fmt.Printf("%s:\n", name)
	for _, rule := range rules {
		fmt.Printf("  - %s: %d matched\n", rule, hits[rule])
	}
	if dryRun {
		return nil
	}
	return os.WriteFile(file, []byte(sanitized), 0o644)
}
