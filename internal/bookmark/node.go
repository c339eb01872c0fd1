package bookmark

// Node is one entry in the host bookmark tree: a leaf bookmark when URL is
// set, a folder otherwise.
type Node struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url,omitempty"`

	// ParentID is empty only for the tree root.
	ParentID string `json:"parentId,omitempty"`

	// Timestamps are milliseconds since the Unix epoch; 0 means absent.
	DateAdded    int64 `json:"dateAdded,omitempty"`
	DateLastUsed int64 `json:"dateLastUsed,omitempty"`

	Children []Node `json:"children,omitempty"`
}

// IsFolder reports whether the node has no URL.
func (n Node) IsFolder() bool {
	return n.URL == ""
}

// Ancestors is the set of folder ids strictly containing a node.
type Ancestors map[string]struct{}

// Has reports whether id is an ancestor.
func (a Ancestors) Has(id string) bool {
	_, ok := a[id]
	return ok
}

// IDs returns the ancestor ids in no particular order.
func (a Ancestors) IDs() []string {
	out := make([]string, 0, len(a))
	for id := range a {
		out = append(out, id)
	}
	return out
}

func (a Ancestors) with(id string) Ancestors {
	next := make(Ancestors, len(a)+1)
	for k := range a {
		next[k] = struct{}{}
	}
	next[id] = struct{}{}
	return next
}

// AncestorIndex maps node id to its ancestor set.
type AncestorIndex map[string]Ancestors

// Of returns the ancestor set for id. Unknown ids get an empty set.
func (idx AncestorIndex) Of(id string) Ancestors {
	if a, ok := idx[id]; ok {
		return a
	}
	return Ancestors{}
}
