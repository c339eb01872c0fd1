package ui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/asheshgoplani/bookmark-deck/internal/bookmark"
	"github.com/asheshgoplani/bookmark-deck/internal/filter"
	"github.com/asheshgoplani/bookmark-deck/internal/tags"
	"github.com/asheshgoplani/bookmark-deck/internal/views"
)

// DefaultWidth is used when the terminal width is unknown.
const DefaultWidth = 100

const dateColumn = 20

// FormatDate renders a millisecond timestamp relative to now. Anything a
// week or older renders as an absolute local date and time.
func FormatDate(ms int64, now time.Time) string {
	if ms == 0 {
		return "Unknown"
	}
	t := time.UnixMilli(ms)
	diff := now.Sub(t)
	seconds := int64(diff / time.Second)
	minutes := seconds / 60
	hours := minutes / 60
	days := hours / 24

	switch {
	case seconds < 5:
		return "just now"
	case minutes < 1:
		return fmt.Sprintf("%d sec ago", seconds)
	case minutes < 60:
		return fmt.Sprintf("%d min ago", minutes)
	case hours < 24:
		return fmt.Sprintf("%d hours ago", hours)
	case days < 7:
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	}
	return t.In(now.Location()).Format("01/02/2006, 15:04:05")
}

// Truncate shortens s to width display cells, ending in "…" when cut.
func Truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= width {
		return s
	}
	return runewidth.Truncate(s, width, "…")
}

// pad truncates s and fills it to exactly width cells.
func pad(s string, width int) string {
	return runewidth.FillRight(Truncate(s, width), width)
}

// RenderChips renders the active filter chips on one line.
func RenderChips(caps []filter.Capsule) string {
	if len(caps) == 0 {
		return DimStyle.Render("No filters")
	}
	parts := make([]string, 0, len(caps))
	for _, c := range caps {
		text := c.Text
		style := ChipStyle
		if c.Negative {
			text = "!" + text
			style = ChipNegativeStyle
		}
		parts = append(parts, style.Render(text))
	}
	return strings.Join(parts, " ")
}

// RenderBookmarks writes one row per bookmark: title, URL and the added
// date. width is the terminal width in cells.
func RenderBookmarks(w io.Writer, nodes []bookmark.Node, width int, now time.Time) error {
	if width <= 0 {
		width = DefaultWidth
	}
	if len(nodes) == 0 {
		_, err := fmt.Fprintln(w, DimStyle.Render("No bookmarks match."))
		return err
	}
	rest := width - dateColumn - 2
	if rest < 20 {
		rest = 20
	}
	titleW := rest * 45 / 100
	urlW := rest - titleW - 1

	header := pad("TITLE", titleW) + " " + pad("URL", urlW) + " " + pad("ADDED", dateColumn)
	if _, err := fmt.Fprintln(w, HeaderStyle.Render(strings.TrimRight(header, " "))); err != nil {
		return err
	}
	for _, n := range nodes {
		title := n.Title
		if strings.TrimSpace(title) == "" {
			title = "(Untitled)"
		}
		line := TitleStyle.Render(pad(title, titleW)) + " " +
			URLStyle.Render(pad(n.URL, urlW)) + " " +
			TimestampStyle.Render(FormatDate(n.DateAdded, now))
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderTagList writes the sidebar tag list, one tag per line.
func RenderTagList(w io.Writer, entries []tags.SidebarEntry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, DimStyle.Render("No tags."))
		return err
	}
	labels := make([]string, len(entries))
	width := 0
	for i, e := range entries {
		labels[i] = "#" + e.Tag
		if e.State == "negative" {
			labels[i] = "!" + labels[i]
		}
		width = max(width, runewidth.StringWidth(labels[i]))
	}
	for i, e := range entries {
		style := TagStyle
		switch e.State {
		case "positive":
			style = TagActiveStyle
		case "negative":
			style = TagNegativeStyle
		}
		line := style.Render(runewidth.FillRight(labels[i], width)) + " " + DimStyle.Render(fmt.Sprintf("%d", e.Count))
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderFolderTree writes folders as an indented tree with their ids.
func RenderFolderTree(w io.Writer, roots []*bookmark.FolderNode) error {
	var b strings.Builder
	var walk func(nodes []*bookmark.FolderNode, prefix string)
	walk = func(nodes []*bookmark.FolderNode, prefix string) {
		for i, f := range nodes {
			last := i == len(nodes)-1
			connector, next := "├── ", "│   "
			if last {
				connector, next = "└── ", "    "
			}
			b.WriteString(DimStyle.Render(prefix+connector) + FolderStyle.Render(f.Label()) +
				" " + DimStyle.Render("("+f.ID+")") + "\n")
			walk(f.Children, prefix+next)
		}
	}
	walk(roots, "")
	_, err := io.WriteString(w, b.String())
	return err
}

// RenderViews writes saved views, marking the active one.
func RenderViews(w io.Writer, list []views.View, activeID string, names filter.FolderNamer) error {
	if len(list) == 0 {
		_, err := fmt.Fprintln(w, DimStyle.Render("No saved views."))
		return err
	}
	for _, v := range list {
		marker := "  "
		if v.ID == activeID {
			marker = SuccessStyle.Render("● ")
		}
		line := marker + TitleStyle.Render(views.DisplayName(v, names)) +
			" " + DimStyle.Render(fmt.Sprintf("[%s, %d filters]", v.ID, len(v.Filters)))
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
