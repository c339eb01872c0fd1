// Package query turns a flattened bookmark snapshot, an active filter list
// and a sort order into the display set.
package query

import (
	"golang.org/x/text/language"

	"github.com/asheshgoplani/bookmark-deck/internal/bookmark"
	"github.com/asheshgoplani/bookmark-deck/internal/filter"
)

// Input is everything the display set depends on.
type Input struct {
	Snapshot  *bookmark.Snapshot
	Filters   []filter.Filter
	Key       SortKey
	Direction Direction
	Locale    language.Tag
}

// Run drops folders, intersects the leaves with each filter in order, and
// sorts the result. It is a pure function of in: equal inputs give equal
// output, ties included.
func Run(in Input) []bookmark.Node {
	candidates := in.Snapshot.Leaves()
	idx := bookmark.AncestorIndex{}
	if in.Snapshot != nil {
		idx = in.Snapshot.Index
	}
	for _, f := range in.Filters {
		if len(candidates) == 0 {
			break
		}
		candidates = filter.Evaluate(f, candidates, idx)
	}

	key, dir := in.Key, in.Direction
	if key == "" {
		key = DefaultKey
	}
	if dir == "" {
		dir = DefaultDirection
	}
	Sort(candidates, key, dir, in.Locale)
	return candidates
}
