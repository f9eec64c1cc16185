package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Palette is the set of colors for one UI theme.
type Palette struct {
	Name    string
	Text    string
	Muted   string
	Accent  string
	Success string
	Warning string
	Danger  string
	Border  string
}

var palettes = map[string]Palette{
	"dark": {
		Name:    "dark",
		Text:    "#e5e7eb",
		Muted:   "#9ca3af",
		Accent:  "#818cf8",
		Success: "#34d399",
		Warning: "#fbbf24",
		Danger:  "#f87171",
		Border:  "#4b5563",
	},
	"light": {
		Name:    "light",
		Text:    "#111827",
		Muted:   "#6b7280",
		Accent:  "#4f46e5",
		Success: "#059669",
		Warning: "#d97706",
		Danger:  "#dc2626",
		Border:  "#d1d5db",
	},
}

// PaletteFor returns the palette of a theme, dark for unknown names.
func PaletteFor(theme string) Palette {
	if p, ok := palettes[theme]; ok {
		return p
	}
	return palettes["dark"]
}

// Styles are the lipgloss styles derived from a Palette.
type Styles struct {
	Title   lipgloss.Style
	Header  lipgloss.Style
	Text    lipgloss.Style
	Muted   lipgloss.Style
	Accent  lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Danger  lipgloss.Style
	Box     lipgloss.Style
}

func (p Palette) Styles() Styles {
	return Styles{
		Title: lipgloss.NewStyle().
			Foreground(lipgloss.Color(p.Accent)).
			Bold(true),
		Header: lipgloss.NewStyle().
			Foreground(lipgloss.Color(p.Muted)).
			Bold(true),
		Text: lipgloss.NewStyle().
			Foreground(lipgloss.Color(p.Text)),
		Muted: lipgloss.NewStyle().
			Foreground(lipgloss.Color(p.Muted)),
		Accent: lipgloss.NewStyle().
			Foreground(lipgloss.Color(p.Accent)),
		Success: lipgloss.NewStyle().
			Foreground(lipgloss.Color(p.Success)).
			Bold(true),
		Warning: lipgloss.NewStyle().
			Foreground(lipgloss.Color(p.Warning)),
		Danger: lipgloss.NewStyle().
			Foreground(lipgloss.Color(p.Danger)).
			Bold(true),
		Box: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(p.Border)).
			Padding(0, 1),
	}
}

// styles returns the styles for the store's current theme.
func (a *App) styles() Styles {
	return PaletteFor(a.store.Theme()).Styles()
}

// table renders rows as aligned columns under a header.
func table(s Styles, header []string, rows [][]string) string {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], lipgloss.Width(cell))
			}
		}
	}

	var b strings.Builder
	b.WriteString(s.Header.Render(joinCells(header, widths)))
	b.WriteString("\n")
	for _, row := range rows {
		b.WriteString(joinCells(row, widths))
		b.WriteString("\n")
	}
	return b.String()
}

func joinCells(cells []string, widths []int) string {
	parts := make([]string, len(cells))
	for i, cell := range cells {
		if i == len(cells)-1 {
			parts[i] = cell
			continue
		}
		parts[i] = cell + strings.Repeat(" ", widths[i]-lipgloss.Width(cell))
	}
	return strings.TrimRight(strings.Join(parts, "  "), " ")
}

// bar renders share (0..1) as a horizontal bar of width cells.
func bar(share float64, width int) string {
	if share < 0 {
		share = 0
	}
	if share > 1 {
		share = 1
	}
	filled := int(share*float64(width) + 0.5)
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func stars(rating int) string {
	if rating <= 0 {
		return "-"
	}
	return strings.Repeat("★", rating)
}

func percent(share float64) string {
	return fmt.Sprintf("%.0f%%", share*100)
}
