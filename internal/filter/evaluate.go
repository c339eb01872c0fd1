package filter

import (
	"fmt"
	"strings"

	"github.com/asheshgoplani/bookmark-deck/internal/bookmark"
)

// Evaluate returns the candidates kept by f, preserving their order.
// A candidate is kept when its raw match differs from f's polarity.
func Evaluate(f Filter, candidates []bookmark.Node, idx bookmark.AncestorIndex) []bookmark.Node {
	out := make([]bookmark.Node, 0, len(candidates))
	for _, n := range candidates {
		if Match(f, n, idx) != f.IsNegative() {
			out = append(out, n)
		}
	}
	return out
}

// Match is the raw, polarity-free test of f against one node.
func Match(f Filter, n bookmark.Node, idx bookmark.AncestorIndex) bool {
	switch f := f.(type) {
	case Any:
		return containsFold(n.Title, f.Text) || containsFold(n.URL, f.Text)
	case Tag:
		return HasTag(n.Title, f.Tag)
	case Title:
		return containsFold(n.Title, f.Text)
	case URL:
		return containsFold(n.URL, f.Text)
	case Folder:
		return idx.Of(n.ID).Has(f.FolderID)
	case StrictFolder:
		return n.ParentID == f.FolderID
	default:
		panic(fmt.Sprintf("filter: unhandled variant %T", f))
	}
}

// HasTag reports whether title contains the token "#tag", ignoring case.
func HasTag(title, tag string) bool {
	for _, tok := range strings.Fields(title) {
		if len(tok) > 1 && tok[0] == '#' && strings.EqualFold(tok[1:], tag) {
			return true
		}
	}
	return false
}

func containsFold(s, substr string) bool {
	if s == "" {
		return false
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
