package bookmark

import "strings"

// RootID is the id browsers give the synthetic tree root.
const RootID = "0"

// FolderNode is one folder in the sidebar folder tree.
type FolderNode struct {
	ID       string        `json:"id"`
	Title    string        `json:"title"`
	ParentID string        `json:"parentId,omitempty"`
	Children []*FolderNode `json:"children,omitempty"`
}

// Label returns the title, or "(Untitled)" for nameless folders.
func (f *FolderNode) Label() string {
	if strings.TrimSpace(f.Title) == "" {
		return "(Untitled)"
	}
	return f.Title
}

// FolderTree rebuilds a folder-only tree from a flat node list. Folders whose
// parent is not itself a folder in the list become roots. Order among
// siblings follows the flat list.
func FolderTree(nodes []Node) []*FolderNode {
	byID := make(map[string]*FolderNode)
	var order []*FolderNode
	for _, n := range nodes {
		if !n.IsFolder() {
			continue
		}
		f := &FolderNode{ID: n.ID, Title: n.Title, ParentID: n.ParentID}
		byID[n.ID] = f
		order = append(order, f)
	}

	var roots []*FolderNode
	for _, f := range order {
		if parent, ok := byID[f.ParentID]; ok && f.ParentID != "" {
			parent.Children = append(parent.Children, f)
			continue
		}
		roots = append(roots, f)
	}
	return roots
}

// FolderPath renders the titles from the outermost folder down to id,
// joined with " / ". The root renders as "Root". An id missing from the
// snapshot renders as itself.
func (s *Snapshot) FolderPath(id string) string {
	var parts []string
	seen := make(map[string]bool)
	cur, ok := s.Lookup(id)
	for ok && !seen[cur.ID] {
		seen[cur.ID] = true
		title := cur.Title
		if title == "" {
			title = "Root"
		}
		parts = append(parts, title)
		if cur.ParentID == "" || cur.ID == RootID {
			break
		}
		cur, ok = s.Lookup(cur.ParentID)
	}
	if len(parts) == 0 {
		return id
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, " / ")
}

// FolderTitle returns the folder's title, or "" when unknown.
func (s *Snapshot) FolderTitle(id string) string {
	n, ok := s.Lookup(id)
	if !ok {
		return ""
	}
	return n.Title
}
