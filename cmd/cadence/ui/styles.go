// Package ui renders cadence state for the terminal: lipgloss styles for
// one-shot commands and a bubbletea dashboard for live sessions.
package ui

import (
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"cadence/internal/types"
)

// Palette
var (
	LightForeground = lipgloss.Color("#2b2233")
	LightPrimary    = lipgloss.Color("#7b3f61")
	LightAccent     = lipgloss.Color("#d98c5f")
	LightMuted      = lipgloss.Color("#9a8fa3")
	LightBorder     = lipgloss.Color("#e3dbe8")

	DarkForeground = lipgloss.Color("#f3eef6")
	DarkPrimary    = lipgloss.Color("#e8a0bf")
	DarkAccent     = lipgloss.Color("#f2b880")
	DarkMuted      = lipgloss.Color("#6f6478")
	DarkBorder     = lipgloss.Color("#3d3346")

	Destructive = lipgloss.Color("#e53935")
	Success     = lipgloss.Color("#7cb342")
	Warning     = lipgloss.Color("#ffc107")
)

// Phase colors
var phaseColors = map[types.Phase]lipgloss.Color{
	types.PhaseMenstrual:  lipgloss.Color("#c0392b"),
	types.PhaseFollicular: lipgloss.Color("#27ae60"),
	types.PhaseOvulatory:  lipgloss.Color("#f39c12"),
	types.PhaseLuteal:     lipgloss.Color("#8e44ad"),
}

// Theme holds the current color scheme
type Theme struct {
	Foreground lipgloss.Color
	Primary    lipgloss.Color
	Accent     lipgloss.Color
	Muted      lipgloss.Color
	Border     lipgloss.Color
	IsDark     bool
}

// LightTheme returns the light mode theme
func LightTheme() Theme {
	return Theme{
		Foreground: LightForeground,
		Primary:    LightPrimary,
		Accent:     LightAccent,
		Muted:      LightMuted,
		Border:     LightBorder,
	}
}

// DarkTheme returns the dark mode theme
func DarkTheme() Theme {
	return Theme{
		Foreground: DarkForeground,
		Primary:    DarkPrimary,
		Accent:     DarkAccent,
		Muted:      DarkMuted,
		Border:     DarkBorder,
		IsDark:     true,
	}
}

// DetectTheme picks dark mode from COLORFGBG or CADENCE_DARK_MODE=1.
func DetectTheme() Theme {
	if colorTerm := os.Getenv("COLORFGBG"); colorTerm != "" {
		parts := strings.Split(colorTerm, ";")
		if len(parts) == 2 {
			if bgIdx, err := strconv.Atoi(parts[1]); err == nil {
				if (bgIdx >= 0 && bgIdx <= 6) || bgIdx == 8 {
					return DarkTheme()
				}
			}
		}
	}
	if os.Getenv("CADENCE_DARK_MODE") == "1" {
		return DarkTheme()
	}
	return LightTheme()
}

// Styles holds all the styled components
type Styles struct {
	Theme Theme

	Header lipgloss.Style
	Footer lipgloss.Style
	Title  lipgloss.Style
	Body   lipgloss.Style
	Muted  lipgloss.Style
	Bold   lipgloss.Style
	Card   lipgloss.Style

	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style

	ProgressBar lipgloss.Style
	Divider     lipgloss.Style
	Badge       lipgloss.Style
}

// NewStyles creates a new Styles instance with the given theme
func NewStyles(theme Theme) Styles {
	return Styles{
		Theme: theme,

		Header: lipgloss.NewStyle().
			Background(theme.Primary).
			Foreground(lipgloss.Color("#ffffff")).
			Padding(0, 2).
			Bold(true),

		Footer: lipgloss.NewStyle().
			Foreground(theme.Muted).
			Padding(0, 2),

		Title: lipgloss.NewStyle().
			Foreground(theme.Primary).
			Bold(true),

		Body: lipgloss.NewStyle().
			Foreground(theme.Foreground),

		Muted: lipgloss.NewStyle().
			Foreground(theme.Muted),

		Bold: lipgloss.NewStyle().
			Foreground(theme.Foreground).
			Bold(true),

		Card: lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(theme.Border),

		Success: lipgloss.NewStyle().
			Foreground(Success).
			Bold(true),

		Error: lipgloss.NewStyle().
			Foreground(Destructive).
			Bold(true),

		Warning: lipgloss.NewStyle().
			Foreground(Warning).
			Bold(true),

		ProgressBar: lipgloss.NewStyle().
			Foreground(theme.Accent),

		Divider: lipgloss.NewStyle().
			Foreground(theme.Border),

		Badge: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ffffff")).
			Padding(0, 1).
			Bold(true),
	}
}

// DefaultStyles returns styles for the detected theme.
func DefaultStyles() Styles {
	return NewStyles(DetectTheme())
}

// PhaseBadge renders phase on its phase color.
func (s Styles) PhaseBadge(phase types.Phase) string {
	if phase == "" {
		return s.Muted.Render("no cycle")
	}
	color, ok := phaseColors[phase]
	if !ok {
		color = s.Theme.Muted
	}
	return s.Badge.Background(color).Render(string(phase))
}

// RenderDivider returns a horizontal divider.
func (s Styles) RenderDivider(width int) string {
	return s.Divider.Render(strings.Repeat("─", width))
}

// RenderProgress draws a fixed-width bar for a 0-100 value.
func (s Styles) RenderProgress(percent, width int) string {
	if width <= 0 {
		width = 20
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := percent * width / 100
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return s.ProgressBar.Render(bar) + " " + strconv.Itoa(percent) + "%"
}
