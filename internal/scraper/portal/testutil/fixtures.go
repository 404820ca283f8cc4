// Package testutil loads the HTML fixtures captured from each portal.
// Fixtures are stored as UTF-8 and re-encoded on demand for handlers that
// impersonate the provider.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// FixturePath returns portal/<portalDir>/testdata/fixtures/<name>.html.
func FixturePath(portalDir, name string) string {
	_, self, _, _ := runtime.Caller(0)
	portalRoot := filepath.Dir(filepath.Dir(self))
	return filepath.Join(portalRoot, portalDir, "testdata", "fixtures", name+".html")
}

func LoadFixture(t *testing.T, portalDir, name string) string {
	t.Helper()
	page, err := readFixture(portalDir, name)
	if err != nil {
		t.Fatal(err)
	}
	return page
}

// MustLoadFixture is LoadFixture for http handlers, which have no *testing.T.
func MustLoadFixture(portalDir, name string) string {
	page, err := readFixture(portalDir, name)
	if err != nil {
		panic(err)
	}
	return page
}

// EncodedFixture returns the fixture bytes in enc, the way the provider
// serves them. A nil enc means windows-1251.
func EncodedFixture(portalDir, name string, enc encoding.Encoding) ([]byte, error) {
	page, err := readFixture(portalDir, name)
	if err != nil {
		return nil, err
	}
	if enc == nil {
		enc = charmap.Windows1251
	}
	out, err := enc.NewEncoder().Bytes([]byte(page))
	if err != nil {
		return nil, fmt.Errorf("encode fixture %s/%s: %w", portalDir, name, err)
	}
	return out, nil
}

func readFixture(portalDir, name string) (string, error) {
	data, err := os.ReadFile(FixturePath(portalDir, name))
	if err != nil {
		return "", fmt.Errorf("load fixture %s/%s: %w", portalDir, name, err)
	}
	return string(data), nil
}
