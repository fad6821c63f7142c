package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/genbak/genbak/internal/config"
)

// Catppuccin Mocha palette — mutable so config can override.
var (
	ColorGreen  = lipgloss.Color("#a6e3a1")
	ColorBlue   = lipgloss.Color("#89b4fa")
	ColorYellow = lipgloss.Color("#f9e2af")
	ColorRed    = lipgloss.Color("#f38ba8")
	ColorMuted  = lipgloss.Color("#5a6278")
	ColorDim    = lipgloss.Color("#3a4055")
	ColorBright = lipgloss.Color("#cdd6f4")
)

// Pre-built styles — rebuilt by rebuildStyles() after color changes.
var (
	styleCopied  lipgloss.Style
	styleLinked  lipgloss.Style
	styleFailed  lipgloss.Style
	styleSuspect lipgloss.Style
	styleVerify  lipgloss.Style
	styleHeader  lipgloss.Style
	styleDetail  lipgloss.Style
	styleSummary lipgloss.Style
)

func init() {
	rebuildStyles()
}

// rebuildStyles reconstructs all lipgloss styles from the current color vars.
func rebuildStyles() {
	styleCopied = lipgloss.NewStyle().Foreground(ColorGreen)
	styleLinked = lipgloss.NewStyle().Foreground(ColorBlue)
	styleFailed = lipgloss.NewStyle().Foreground(ColorRed)
	styleSuspect = lipgloss.NewStyle().Foreground(ColorYellow)
	styleVerify = lipgloss.NewStyle().Foreground(ColorMuted)
	styleHeader = lipgloss.NewStyle().Bold(true).Foreground(ColorBright)
	styleDetail = lipgloss.NewStyle().Foreground(ColorDim)
	styleSummary = lipgloss.NewStyle().Bold(true).Foreground(ColorBright)
}

// ApplyTheme overrides palette colors from the config file and rebuilds
// the styles. Unset fields keep their defaults.
func ApplyTheme(t config.ThemeConfig) {
	setColor := func(dst *lipgloss.Color, v *string) {
		if v != nil && *v != "" {
			*dst = lipgloss.Color(*v)
		}
	}
	setColor(&ColorGreen, t.Green)
	setColor(&ColorBlue, t.Blue)
	setColor(&ColorYellow, t.Yellow)
	setColor(&ColorRed, t.Red)
	setColor(&ColorMuted, t.Muted)
	setColor(&ColorDim, t.Dim)
	setColor(&ColorBright, t.Bright)
	rebuildStyles()
}
