// Package ui renders bookmark-deck state for the terminal.
package ui

import (
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/asheshgoplani/bookmark-deck/internal/prefs"
)

type palette struct {
	Border, Text, TextDim               lipgloss.Color
	Accent, Purple, Cyan, Green, Yellow lipgloss.Color
	Orange, Red                         lipgloss.Color
}

// Tokyo Night
var darkColors = palette{
	Border:  lipgloss.Color("#414868"),
	Text:    lipgloss.Color("#c0caf5"),
	TextDim: lipgloss.Color("#787fa0"),
	Accent:  lipgloss.Color("#7aa2f7"),
	Purple:  lipgloss.Color("#bb9af7"),
	Cyan:    lipgloss.Color("#7dcfff"),
	Green:   lipgloss.Color("#9ece6a"),
	Yellow:  lipgloss.Color("#e0af68"),
	Orange:  lipgloss.Color("#ff9e64"),
	Red:     lipgloss.Color("#f7768e"),
}

// Tokyo Night Light
var lightColors = palette{
	Border:  lipgloss.Color("#9699a3"),
	Text:    lipgloss.Color("#343b58"),
	TextDim: lipgloss.Color("#6a6d7c"),
	Accent:  lipgloss.Color("#34548a"),
	Purple:  lipgloss.Color("#7847bd"),
	Cyan:    lipgloss.Color("#166775"),
	Green:   lipgloss.Color("#485e30"),
	Yellow:  lipgloss.Color("#8f5e15"),
	Orange:  lipgloss.Color("#965027"),
	Red:     lipgloss.Color("#8c4351"),
}

var (
	themeMu      sync.RWMutex
	currentTheme = prefs.ThemeDark
)

// Styles used by the renderers. Rebuilt by InitTheme.
var (
	HeaderStyle    lipgloss.Style
	TitleStyle     lipgloss.Style
	DimStyle       lipgloss.Style
	URLStyle       lipgloss.Style
	TimestampStyle lipgloss.Style
	FolderStyle    lipgloss.Style
	ErrorStyle     lipgloss.Style
	SuccessStyle   lipgloss.Style
	WarningStyle   lipgloss.Style

	TagStyle         lipgloss.Style
	TagActiveStyle   lipgloss.Style
	TagNegativeStyle lipgloss.Style

	ChipStyle         lipgloss.Style
	ChipNegativeStyle lipgloss.Style
)

// InitTheme switches the palette. Anything other than light renders dark;
// resolve ThemeSystem with prefs.Prefs.Resolve first.
func InitTheme(theme prefs.Theme) {
	themeMu.Lock()
	defer themeMu.Unlock()
	c := darkColors
	currentTheme = prefs.ThemeDark
	if theme == prefs.ThemeLight {
		c = lightColors
		currentTheme = prefs.ThemeLight
	}
	initStyles(c)
}

// CurrentTheme returns the active palette name.
func CurrentTheme() prefs.Theme {
	themeMu.RLock()
	defer themeMu.RUnlock()
	return currentTheme
}

func init() {
	InitTheme(prefs.ThemeDark)
}

func initStyles(c palette) {
	HeaderStyle = lipgloss.NewStyle().Foreground(c.Accent).Bold(true)
	TitleStyle = lipgloss.NewStyle().Foreground(c.Text)
	DimStyle = lipgloss.NewStyle().Foreground(c.TextDim)
	URLStyle = lipgloss.NewStyle().Foreground(c.Cyan)
	TimestampStyle = lipgloss.NewStyle().Foreground(c.TextDim)
	FolderStyle = lipgloss.NewStyle().Foreground(c.Yellow)
	ErrorStyle = lipgloss.NewStyle().Foreground(c.Red)
	SuccessStyle = lipgloss.NewStyle().Foreground(c.Green)
	WarningStyle = lipgloss.NewStyle().Foreground(c.Orange)

	TagStyle = lipgloss.NewStyle().Foreground(c.Purple)
	TagActiveStyle = lipgloss.NewStyle().Foreground(c.Green).Bold(true)
	TagNegativeStyle = lipgloss.NewStyle().Foreground(c.Red).Strikethrough(true)

	ChipStyle = lipgloss.NewStyle().Foreground(c.Accent).Padding(0, 1).
		Border(lipgloss.RoundedBorder(), false, true).BorderForeground(c.Border)
	ChipNegativeStyle = ChipStyle.Foreground(c.Red)
}
