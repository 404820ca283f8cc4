// sanitize-har removes sensitive data from HAR files before committing.
//
// Usage:
//
//	go run ./scripts/sanitize-har/main.go -portal=chukotnet -scenario=tariffs
//	go run ./scripts/sanitize-har/main.go -input=recording.har.json -output=sanitized.har.json
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/grez-lucas/portal-scraper/internal/scraper/testutil"
)

func main() {
	portalDir := flag.String("portal", "", "Portal directory, e.g. chukotnet")
	scenario := flag.String("scenario", "", "Recording name (e.g., tariffs)")

	inputPath := flag.String("input", "", "Input HAR file path")
	outputPath := flag.String("output", "", "Output HAR file path (defaults to input path)")

	dryRun := flag.Bool("dry-run", false, "Show what would be redacted without modifying")

	flag.Parse()

	var inPath, outPath string
	switch {
	case *portalDir != "" && *scenario != "":
		inPath = filepath.Join("internal", "scraper", "portal", *portalDir, "testdata", "recordings", *scenario+".har.json")
		outPath = inPath
	case *inputPath != "":
		inPath = *inputPath
		outPath = *inputPath
		if *outputPath != "" {
			outPath = *outputPath
		}
	default:
		flag.Usage()
		os.Exit(1)
	}

	har, err := testutil.LoadHAR(inPath)
	if err != nil {
		fmt.Printf("Error loading HAR: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Loaded %d entries from %s\n", len(har.Entries), inPath)

	sanitized := testutil.SanitizeHAR(har)
	changes := diffEntries(har, sanitized)
	fmt.Printf("Redacted values in %d places\n", len(changes))

	if *dryRun {
		for _, c := range changes {
			fmt.Println("  - " + c)
		}
		fmt.Println("\n[DRY RUN] No changes written.")
		return
	}

	if err := testutil.SaveHAR(outPath, sanitized); err != nil {
		fmt.Printf("Error saving HAR: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Sanitized HAR saved to: %s\n", outPath)
}

// diffEntries lists every field SanitizeHAR changed.
func diffEntries(original, sanitized *testutil.HARLog) []string {
	var out []string
	for i := range original.Entries {
		if i >= len(sanitized.Entries) {
			break
		}
		orig, san := original.Entries[i], sanitized.Entries[i]
		label := fmt.Sprintf("#%d %s %s", i+1, orig.Request.Method, truncateURL(orig.Request.URL))

		if orig.Request.URL != san.Request.URL {
			out = append(out, label+": query parameters")
		}
		out = append(out, diffHeaders(label+": request header", orig.Request.Headers, san.Request.Headers)...)
		if orig.Request.Body != san.Request.Body {
			out = append(out, label+": form body")
		}
		out = append(out, diffHeaders(label+": response header", orig.Response.Headers, san.Response.Headers)...)
	}
	return out
}

func diffHeaders(label string, orig, san []testutil.HARHeader) []string {
	var out []string
	for j, h := range orig {
		if j < len(san) && h.Value != san[j].Value {
			out = append(out, fmt.Sprintf("%s %q", label, h.Name))
		}
	}
	return out
}

func truncateURL(url string) string {
	if len(url) > 80 {
		return url[:77] + "..."
	}
	return url
}
