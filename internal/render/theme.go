// Package render wraps extracted fragments into self-contained themed HTML
// documents. The palette is chosen once per render and baked into the
// stylesheet; a rendered page never switches theme on its own.
package render

import (
	"fmt"
	"strings"
)

type Mode int

const (
	ModeAuto Mode = iota
	ModeLight
	ModeDark
)

func (m Mode) String() string {
	switch m {
	case ModeAuto:
		return "auto"
	case ModeLight:
		return "light"
	case ModeDark:
		return "dark"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto", "system":
		return ModeAuto, nil
	case "light":
		return ModeLight, nil
	case "dark", "night":
		return ModeDark, nil
	default:
		return ModeAuto, fmt.Errorf("unknown theme mode: %q", s)
	}
}

// Dark resolves the mode to a light/dark choice. systemDark is only
// consulted in ModeAuto and may be nil, meaning light.
func (m Mode) Dark(systemDark func() bool) bool {
	switch m {
	case ModeLight:
		return false
	case ModeDark:
		return true
	default:
		return systemDark != nil && systemDark()
	}
}

type Palette struct {
	Dark             bool
	Background       string
	Card             string
	Text             string
	Border           string
	Accent           string
	AccentBackground string
	RowEven          string
}

var (
	LightPalette = Palette{
		Background: "#fcfcfc",
		Card:       "#ffffff",
		Text:       "#333333",
		Border:     "#dddddd",
		Accent:     "#FF9800",
		// Same as Accent: light mode headers are white text on the accent.
		AccentBackground: "#FF9800",
		RowEven:          "#f9f9f9",
	}

	DarkPalette = Palette{
		Dark:             true,
		Background:       "#121212",
		Card:             "#1E1E1E",
		Text:             "#E0E0E0",
		Border:           "#333333",
		Accent:           "#FFB74D",
		AccentBackground: "#3E2723",
		RowEven:          "#252525",
	}
)

func PaletteFor(dark bool) Palette {
	if dark {
		return DarkPalette
	}
	return LightPalette
}

// headerColor is the table header text colour. Dark mode puts the accent on
// a brown background, light mode puts white on the accent.
func (p Palette) headerColor() string {
	if p.Dark {
		return p.Accent
	}
	return "white"
}

// Balance colours by severity.
const (
	ColorDebt = "#D32F2F"
	ColorLow  = "#F57C00"
	ColorOK   = "#388E3C"
	ColorLink = "#0277BD"
)
