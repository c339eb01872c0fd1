package bookmark

// MaxDepth bounds tree nesting. Real browser trees rarely exceed a few dozen
// levels, so anything deeper is treated as malformed.
const MaxDepth = 512

// Snapshot is the flattened form of one host tree read. It is never mutated
// after Flatten returns; a change notification produces a new Snapshot.
type Snapshot struct {
	// Nodes holds every node in pre-order, parent before children. Children
	// slices are stripped; use ParentID or the index for structure.
	Nodes []Node
	Index AncestorIndex

	byID map[string]int
}

// Flatten walks roots in pre-order and builds the flat node list and the
// ancestor index. Every node below a root has that root in its ancestor set.
func Flatten(roots []Node) (*Snapshot, error) {
	s := &Snapshot{
		Index: make(AncestorIndex),
		byID:  make(map[string]int),
	}
	w := walker{snap: s, onPath: make(map[string]bool)}
	for _, root := range roots {
		if err := w.visit(root, "", Ancestors{}); err != nil {
			return nil, err
		}
	}
	return s, nil
}

type walker struct {
	snap   *Snapshot
	path   []string
	onPath map[string]bool
}

func (w *walker) visit(n Node, parentID string, anc Ancestors) error {
	if len(w.path) >= MaxDepth {
		return w.fail(n.ID, "nesting exceeds maximum depth")
	}
	if n.ID == "" {
		return w.fail(n.ID, "missing id")
	}
	if w.onPath[n.ID] {
		return w.fail(n.ID, "cycle: node is its own ancestor")
	}
	if _, dup := w.snap.byID[n.ID]; dup {
		return w.fail(n.ID, "duplicate id")
	}
	if n.ParentID == "" {
		n.ParentID = parentID
	} else if n.ParentID != parentID {
		return w.fail(n.ID, "parentId "+n.ParentID+" does not match containing folder "+parentID)
	}

	children := n.Children
	n.Children = nil
	w.snap.byID[n.ID] = len(w.snap.Nodes)
	w.snap.Nodes = append(w.snap.Nodes, n)
	w.snap.Index[n.ID] = anc

	if len(children) == 0 {
		return nil
	}

	w.path = append(w.path, n.ID)
	w.onPath[n.ID] = true
	childAnc := anc.with(n.ID)
	for _, c := range children {
		if err := w.visit(c, n.ID, childAnc); err != nil {
			return err
		}
	}
	delete(w.onPath, n.ID)
	w.path = w.path[:len(w.path)-1]
	return nil
}

func (w *walker) fail(id, reason string) error {
	path := make([]string, len(w.path), len(w.path)+1)
	copy(path, w.path)
	return &StructuralError{NodeID: id, Reason: reason, Path: append(path, id)}
}

// Lookup returns the node with the given id.
func (s *Snapshot) Lookup(id string) (Node, bool) {
	if s == nil {
		return Node{}, false
	}
	i, ok := s.byID[id]
	if !ok {
		return Node{}, false
	}
	return s.Nodes[i], true
}

// Len returns the number of nodes, folders included.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Nodes)
}

// Leaves returns the nodes that have a URL, in pre-order.
func (s *Snapshot) Leaves() []Node {
	if s == nil {
		return nil
	}
	out := make([]Node, 0, len(s.Nodes))
	for _, n := range s.Nodes {
		if !n.IsFolder() {
			out = append(out, n)
		}
	}
	return out
}

// Folders returns the folder nodes, in pre-order.
func (s *Snapshot) Folders() []Node {
	if s == nil {
		return nil
	}
	var out []Node
	for _, n := range s.Nodes {
		if n.IsFolder() {
			out = append(out, n)
		}
	}
	return out
}
