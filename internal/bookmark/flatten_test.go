package bookmark

import (
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scenarioTree() []Node {
	return []Node{{
		ID: RootID,
		Children: []Node{{
			ID:    "F1",
			Title: "A",
			Children: []Node{
				{ID: "b1", Title: "Guide #react #js", URL: "http://x"},
				{
					ID:    "F2",
					Title: "B",
					Children: []Node{
						{ID: "b2", Title: "Deep #js", URL: "http://y"},
					},
				},
			},
		}},
	}}
}

func TestFlattenPreOrder(t *testing.T) {
	snap, err := Flatten(scenarioTree())
	require.NoError(t, err)

	var ids []string
	for _, n := range snap.Nodes {
		ids = append(ids, n.ID)
		assert.Nil(t, n.Children, "flattened node %s keeps children", n.ID)
	}
	assert.Equal(t, []string{RootID, "F1", "b1", "F2", "b2"}, ids)
}

func TestFlattenAncestors(t *testing.T) {
	snap, err := Flatten(scenarioTree())
	require.NoError(t, err)

	assert.Empty(t, snap.Index.Of(RootID))
	assert.ElementsMatch(t, []string{RootID}, snap.Index.Of("F1").IDs())
	assert.ElementsMatch(t, []string{RootID, "F1"}, snap.Index.Of("b1").IDs())
	assert.ElementsMatch(t, []string{RootID, "F1", "F2"}, snap.Index.Of("b2").IDs())
	assert.Empty(t, snap.Index.Of("missing"))
}

func TestFlattenParentWalkMatchesIndex(t *testing.T) {
	snap, err := Flatten(scenarioTree())
	require.NoError(t, err)

	for _, n := range snap.Nodes {
		walked := map[string]struct{}{}
		cur := n
		for cur.ParentID != "" {
			walked[cur.ParentID] = struct{}{}
			var ok bool
			cur, ok = snap.Lookup(cur.ParentID)
			require.True(t, ok)
		}
		assert.Equal(t, len(snap.Index.Of(n.ID)), len(walked), "node %s", n.ID)
		for id := range walked {
			assert.True(t, snap.Index.Of(n.ID).Has(id))
		}
	}
}

func TestFlattenFillsParentID(t *testing.T) {
	snap, err := Flatten(scenarioTree())
	require.NoError(t, err)

	n, ok := snap.Lookup("b2")
	require.True(t, ok)
	assert.Equal(t, "F2", n.ParentID)

	root, ok := snap.Lookup(RootID)
	require.True(t, ok)
	assert.Empty(t, root.ParentID)
}

func TestFlattenCycle(t *testing.T) {
	tree := []Node{{
		ID: "a",
		Children: []Node{{
			ID:       "b",
			Children: []Node{{ID: "a"}},
		}},
	}}

	_, err := Flatten(tree)
	var se *StructuralError
	require.True(t, errors.As(err, &se), "expected StructuralError, got %v", err)
	assert.Equal(t, "a", se.NodeID)
	assert.Equal(t, []string{"a", "b", "a"}, se.Path)
	assert.Contains(t, se.Error(), "cycle")
}

func TestFlattenDuplicateID(t *testing.T) {
	tree := []Node{{
		ID: "r",
		Children: []Node{
			{ID: "x", URL: "http://one"},
			{ID: "x", URL: "http://two"},
		},
	}}

	_, err := Flatten(tree)
	var se *StructuralError
	require.ErrorAs(t, err, &se)
	assert.Contains(t, se.Reason, "duplicate")
}

func TestFlattenParentMismatch(t *testing.T) {
	tree := []Node{{
		ID:       "r",
		Children: []Node{{ID: "x", ParentID: "elsewhere", URL: "http://x"}},
	}}

	_, err := Flatten(tree)
	var se *StructuralError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "x", se.NodeID)
}

func TestFlattenDepthBound(t *testing.T) {
	leaf := Node{ID: "leaf", URL: "http://deep"}
	for i := 0; i <= MaxDepth; i++ {
		leaf = Node{ID: "d" + strconv.Itoa(i), Children: []Node{leaf}}
	}

	_, err := Flatten([]Node{leaf})
	var se *StructuralError
	require.ErrorAs(t, err, &se)
	assert.Contains(t, se.Reason, "depth")
}

func TestFlattenEmpty(t *testing.T) {
	snap, err := Flatten(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, snap.Len())
	assert.Empty(t, snap.Leaves())
}

func TestLeavesAndFolders(t *testing.T) {
	snap, err := Flatten(scenarioTree())
	require.NoError(t, err)

	var leaves, folders []string
	for _, n := range snap.Leaves() {
		leaves = append(leaves, n.ID)
	}
	for _, n := range snap.Folders() {
		folders = append(folders, n.ID)
	}
	assert.Equal(t, []string{"b1", "b2"}, leaves)
	assert.Equal(t, []string{RootID, "F1", "F2"}, folders)
}
