// Package tags counts the #tag tokens in bookmark titles.
package tags

import (
	"sort"
	"strings"

	"github.com/asheshgoplani/bookmark-deck/internal/bookmark"
	"github.com/asheshgoplani/bookmark-deck/internal/filter"
)

// SuggestLimit caps the number of autocomplete suggestions.
const SuggestLimit = 20

// Count is one tag and how many titles in the display set carry it.
type Count struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// Index holds tag counts for one display set. Tags are aggregated ignoring
// case; the spelling kept is the first one seen in display order. Filtering
// also ignores case, so "#Go" and "#go" count and match as one tag while only
// one spelling is shown.
type Index struct {
	counts []Count
	byFold map[string]int
}

// Build scans every title in nodes.
func Build(nodes []bookmark.Node) *Index {
	idx := &Index{byFold: make(map[string]int)}
	for _, n := range nodes {
		for _, tok := range strings.Fields(n.Title) {
			if len(tok) < 2 || tok[0] != '#' {
				continue
			}
			tag := tok[1:]
			key := strings.ToLower(tag)
			if i, ok := idx.byFold[key]; ok {
				idx.counts[i].Count++
				continue
			}
			idx.byFold[key] = len(idx.counts)
			idx.counts = append(idx.counts, Count{Tag: tag, Count: 1})
		}
	}
	return idx
}

// Len returns the number of distinct tags.
func (idx *Index) Len() int {
	return len(idx.counts)
}

// Get returns the count for tag, ignoring case.
func (idx *Index) Get(tag string) int {
	if i, ok := idx.byFold[strings.ToLower(tag)]; ok {
		return idx.counts[i].Count
	}
	return 0
}

// Canonical returns the spelling the index shows for tag.
func (idx *Index) Canonical(tag string) (string, bool) {
	if i, ok := idx.byFold[strings.ToLower(tag)]; ok {
		return idx.counts[i].Tag, true
	}
	return "", false
}

// Counts returns all tags, most frequent first; equal counts keep
// first-seen order.
func (idx *Index) Counts() []Count {
	out := make([]Count, len(idx.counts))
	copy(out, idx.counts)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

// Suggestion is one autocomplete entry.
type Suggestion struct {
	Tag      string `json:"tag"`
	Count    int    `json:"count"`
	Negative bool   `json:"negative"`
}

// Text is the filter-box text that selects the suggestion.
func (s Suggestion) Text() string {
	if s.Negative {
		return "-#" + s.Tag
	}
	return "#" + s.Tag
}

// Suggest completes a partial "#tag" or "-#tag" input. Tags already used by
// an active tag filter, in either polarity, are skipped. Results are ordered
// by count and capped at SuggestLimit. Other inputs get no suggestions.
func (idx *Index) Suggest(input string, active []filter.Filter) []Suggestion {
	negative := false
	switch {
	case strings.HasPrefix(input, "-#"):
		negative = true
		input = input[2:]
	case strings.HasPrefix(input, "#"):
		input = input[1:]
	default:
		return nil
	}
	prefix := strings.ToLower(strings.TrimSpace(input))

	used := make(map[string]bool)
	for _, f := range active {
		if t, ok := f.(filter.Tag); ok {
			used[strings.ToLower(t.Tag)] = true
		}
	}

	var out []Suggestion
	for _, c := range idx.Counts() {
		key := strings.ToLower(c.Tag)
		if used[key] || !strings.HasPrefix(key, prefix) {
			continue
		}
		out = append(out, Suggestion{Tag: c.Tag, Count: c.Count, Negative: negative})
		if len(out) == SuggestLimit {
			break
		}
	}
	return out
}

// SidebarEntry is one row of the sidebar tag list.
type SidebarEntry struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
	// State is "positive", "negative" or "" for tags with no active filter.
	State string `json:"state,omitempty"`
}

// Sidebar lists every tag for the sidebar: tags with a positive filter
// first, then negative ones, then the rest by count. Tags with an active
// filter are listed even when no displayed title carries them.
func (idx *Index) Sidebar(active []filter.Filter) []SidebarEntry {
	state := make(map[string]string)
	listed := make(map[string]bool, len(idx.counts))
	var entries []SidebarEntry
	for _, c := range idx.counts {
		entries = append(entries, SidebarEntry{Tag: c.Tag, Count: c.Count})
		listed[strings.ToLower(c.Tag)] = true
	}
	for _, f := range active {
		t, ok := f.(filter.Tag)
		if !ok {
			continue
		}
		key := strings.ToLower(t.Tag)
		s := "positive"
		if t.Negative {
			s = "negative"
		}
		state[key] = s
		if !listed[key] {
			entries = append(entries, SidebarEntry{Tag: t.Tag})
			listed[key] = true
		}
	}
	for i := range entries {
		entries[i].State = state[strings.ToLower(entries[i].Tag)]
	}

	rank := func(s string) int {
		switch s {
		case "positive":
			return 0
		case "negative":
			return 1
		}
		return 2
	}
	sort.SliceStable(entries, func(i, j int) bool {
		ri, rj := rank(entries[i].State), rank(entries[j].State)
		if ri != rj {
			return ri < rj
		}
		return entries[i].Count > entries[j].Count
	})
	return entries
}
