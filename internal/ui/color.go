package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// EnvColor overrides color detection: truecolor, 256, 16 or none.
const EnvColor = "BOOKMARKDECK_COLOR"

// DetectColorProfile picks a color profile from the environment. Output that
// is not a terminal, or NO_COLOR, gets plain text.
func DetectColorProfile(getenv func(string) string, isTTY bool) termenv.Profile {
	switch strings.ToLower(getenv(EnvColor)) {
	case "truecolor", "true", "24bit":
		return termenv.TrueColor
	case "256", "ansi256":
		return termenv.ANSI256
	case "16", "ansi", "basic":
		return termenv.ANSI
	case "none", "off", "ascii":
		return termenv.Ascii
	}
	if !isTTY || getenv("NO_COLOR") != "" {
		return termenv.Ascii
	}

	if ct := getenv("COLORTERM"); ct == "truecolor" || ct == "24bit" {
		return termenv.TrueColor
	}
	term := getenv("TERM")
	if term == "dumb" {
		return termenv.Ascii
	}
	for _, t := range []string{"256color", "xterm-direct", "alacritty", "kitty", "wezterm"} {
		if strings.Contains(term, t) {
			return termenv.TrueColor
		}
	}
	if getenv("WT_SESSION") != "" || getenv("ITERM_SESSION_ID") != "" {
		return termenv.TrueColor
	}
	return termenv.ANSI256
}

// InitColorProfile applies DetectColorProfile to lipgloss.
func InitColorProfile(getenv func(string) string, isTTY bool) termenv.Profile {
	p := DetectColorProfile(getenv, isTTY)
	lipgloss.SetColorProfile(p)
	return p
}
