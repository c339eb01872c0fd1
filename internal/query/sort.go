package query

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/asheshgoplani/bookmark-deck/internal/bookmark"
)

// SortKey selects the field the display set is ordered by.
type SortKey string

const (
	SortID           SortKey = "id"
	SortTitle        SortKey = "title"
	SortDateAdded    SortKey = "dateAdded"
	SortDateLastUsed SortKey = "dateLastUsed"
)

// Direction is "asc" or "desc".
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Defaults used when no sort is specified.
const (
	DefaultKey       = SortDateAdded
	DefaultDirection = Desc
)

// SortKeys lists the recognized keys.
var SortKeys = []SortKey{SortID, SortTitle, SortDateAdded, SortDateLastUsed}

// ParseSortKey validates s. Matching ignores case so CLI input like
// "dateadded" works.
func ParseSortKey(s string) (SortKey, error) {
	for _, k := range SortKeys {
		if strings.EqualFold(s, string(k)) {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown sort key %q (want id, title, dateAdded or dateLastUsed)", s)
}

// ParseDirection validates s.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(s) {
	case "asc":
		return Asc, nil
	case "desc":
		return Desc, nil
	}
	return "", fmt.Errorf("unknown sort direction %q (want asc or desc)", s)
}

// Toggle flips the direction.
func (d Direction) Toggle() Direction {
	if d == Asc {
		return Desc
	}
	return Asc
}

// Sort orders nodes in place by key and direction. The sort is stable:
// nodes with equal keys keep their incoming order in both directions.
// Titles compare with the collation rules of locale; an undetermined
// locale falls back to the root collation.
func Sort(nodes []bookmark.Node, key SortKey, dir Direction, locale language.Tag) {
	cmp := comparator(key, locale)
	if dir == Asc {
		sort.SliceStable(nodes, func(i, j int) bool { return cmp(nodes[i], nodes[j]) < 0 })
		return
	}
	sort.SliceStable(nodes, func(i, j int) bool { return cmp(nodes[i], nodes[j]) > 0 })
}

func comparator(key SortKey, locale language.Tag) func(a, b bookmark.Node) int {
	switch key {
	case SortID:
		return func(a, b bookmark.Node) int { return strings.Compare(a.ID, b.ID) }
	case SortTitle:
		// Collator holds scratch buffers, so each sort gets its own.
		col := collate.New(locale)
		return func(a, b bookmark.Node) int { return col.CompareString(a.Title, b.Title) }
	case SortDateLastUsed:
		return func(a, b bookmark.Node) int { return compareInt(a.DateLastUsed, b.DateLastUsed) }
	default:
		return func(a, b bookmark.Node) int { return compareInt(a.DateAdded, b.DateAdded) }
	}
}

func compareInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
