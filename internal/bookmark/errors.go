package bookmark

import (
	"fmt"
	"strings"
)

// StructuralError reports a host tree that cannot be flattened: a cycle,
// a duplicate id, a parent link that disagrees with the nesting, or nesting
// deeper than MaxDepth.
type StructuralError struct {
	NodeID string
	Reason string
	// Path holds the ids from the root down to the offending node.
	Path []string
}

func (e *StructuralError) Error() string {
	if len(e.Path) == 0 {
		return fmt.Sprintf("bookmark tree: node %q: %s", e.NodeID, e.Reason)
	}
	return fmt.Sprintf("bookmark tree: node %q: %s (path %s)", e.NodeID, e.Reason, strings.Join(e.Path, " > "))
}
