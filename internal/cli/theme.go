package cli

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/grez-lucas/portal-scraper/internal/render"
)

// Renderer resolves mode against the terminal background once. The result
// is fixed for the lifetime of the process.
func Renderer(mode render.Mode) *render.Renderer {
	return render.ForMode(mode, lipgloss.HasDarkBackground)
}
