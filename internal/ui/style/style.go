// Package style holds the marks the logger and the renderer print in front of
// step outcomes and log records.
package style

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

var (
	slate  = lipgloss.Color("#667085")
	green  = lipgloss.Color("#22A06B")
	red    = lipgloss.Color("#D93025")
	yellow = lipgloss.Color("#F59E0B")
)

// Mark is a status symbol and the color it and its line are printed in.
type Mark struct {
	Symbol string
	Color  lipgloss.Color
}

// Step outcome marks.
var (
	Executed = Mark{Symbol: "✓", Color: green}
	Memoized = Mark{Symbol: "○", Color: slate}
	Skipped  = Mark{Symbol: "~", Color: yellow}
	Failed   = Mark{Symbol: "✗", Color: red}
)

// Log level marks. Info records carry no symbol.
var (
	Error = Mark{Symbol: "✗", Color: red}
	Warn  = Mark{Symbol: "!", Color: yellow}
	Info  = Mark{Color: slate}
)

// Arrow leads each cause in an error chain.
const Arrow = "→"

// Render returns the symbol colored for out.
func (m Mark) Render(out *termenv.Output) string {
	return m.Paint(out, m.Symbol)
}

// Paint returns s in the mark's color for out.
func (m Mark) Paint(out *termenv.Output, s string) string {
	return out.String(s).Foreground(out.Color(string(m.Color))).String()
}
