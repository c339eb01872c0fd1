package filter

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddTwiceIsIdempotent(t *testing.T) {
	for _, f := range []Filter{
		Any{Text: "x"}, Tag{Tag: "js"}, Title{Text: "t"},
		URL{Text: "u"}, Folder{FolderID: "1"}, StrictFolder{FolderID: "1", Negative: true},
	} {
		var s Set
		changed, err := s.Add(f)
		require.NoError(t, err)
		assert.True(t, changed)

		changed, err = s.Add(f)
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Equal(t, []Filter{f}, s.List())
	}
}

func TestAddOppositeReplaces(t *testing.T) {
	var s Set
	_, _ = s.Add(Title{Text: "keep"})
	_, _ = s.Add(Tag{Tag: "js"})
	_, _ = s.Add(URL{Text: "tail"})

	changed, err := s.Add(Tag{Tag: "js", Negative: true})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, []Filter{
		Title{Text: "keep"},
		URL{Text: "tail"},
		Tag{Tag: "js", Negative: true},
	}, s.List())
}

func TestFolderAndStrictFolderAreDistinct(t *testing.T) {
	var s Set
	_, _ = s.Add(Folder{FolderID: "F1"})
	_, _ = s.Add(StrictFolder{FolderID: "F1"})
	assert.Equal(t, 2, s.Len())

	_, _ = s.Add(StrictFolder{FolderID: "F1", Negative: true})
	assert.Equal(t, []Filter{Folder{FolderID: "F1"}, StrictFolder{FolderID: "F1", Negative: true}}, s.List())
}

func TestAddRejectsInvalid(t *testing.T) {
	var s Set
	_, err := s.Add(Tag{Tag: "  "})
	var ce *ConstructionError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, 0, s.Len())

	_, err = s.Add(nil)
	require.Error(t, err)
}

func TestAddRejectsUnnormalizedTag(t *testing.T) {
	var s Set
	_, err := s.Add(Tag{Tag: "#js"})
	var ce *ConstructionError
	require.ErrorAs(t, err, &ce)
	assert.Contains(t, ce.Reason, "not normalized")

	changed, err := s.Add(Tag{Tag: "js"})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, []Filter{Tag{Tag: "js"}}, s.List())

	err = s.Replace([]Filter{Tag{Tag: "js"}, Tag{Tag: "#js"}})
	require.Error(t, err)
	assert.Equal(t, []Filter{Tag{Tag: "js"}}, s.List(), "a rejected replace keeps the list")
}

func TestRemoveByValue(t *testing.T) {
	s := NewSet(Tag{Tag: "a"}, Tag{Tag: "b"}, Tag{Tag: "c"})

	assert.False(t, s.Remove(Tag{Tag: "b", Negative: true}), "polarity is part of identity")
	assert.True(t, s.Remove(Tag{Tag: "b"}))
	assert.Equal(t, []Filter{Tag{Tag: "a"}, Tag{Tag: "c"}}, s.List())
	assert.False(t, s.Remove(Tag{Tag: "b"}))
}

func TestMutationsDoNotAliasPreviousLists(t *testing.T) {
	s := NewSet(Tag{Tag: "a"}, Tag{Tag: "b"})
	before := s.List()

	s.Remove(Tag{Tag: "a"})
	_, _ = s.Add(Tag{Tag: "z"})
	assert.Equal(t, []Filter{Tag{Tag: "a"}, Tag{Tag: "b"}}, before)
}

func TestClearAndReplace(t *testing.T) {
	s := NewSet(Any{Text: "x"})
	assert.True(t, s.Clear())
	assert.False(t, s.Clear())
	assert.Empty(t, s.List())

	require.NoError(t, s.Replace([]Filter{Tag{Tag: "a"}, Tag{Tag: "a"}, Tag{Tag: "a", Negative: true}}))
	assert.Equal(t, []Filter{Tag{Tag: "a", Negative: true}}, s.List())

	err := s.Replace([]Filter{Tag{Tag: "ok"}, Folder{}})
	require.Error(t, err)
	assert.Equal(t, []Filter{Tag{Tag: "a", Negative: true}}, s.List(), "failed replace keeps the old list")
}

func TestNew(t *testing.T) {
	f, err := New(KindTag, "#js", true)
	require.NoError(t, err)
	assert.Equal(t, Tag{Tag: "js", Negative: true}, f)

	_, err = New("regex", "a.*", false)
	var ce *ConstructionError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "unknown filter type", ce.Reason)

	_, err = New(KindFolder, "", false)
	require.ErrorAs(t, err, &ce)
	assert.Contains(t, ce.Error(), "folderId")
}

func TestOpposite(t *testing.T) {
	assert.True(t, Opposite(Tag{Tag: "a"}, Tag{Tag: "a", Negative: true}))
	assert.False(t, Opposite(Tag{Tag: "a"}, Tag{Tag: "a"}))
	assert.False(t, Opposite(Folder{FolderID: "1"}, StrictFolder{FolderID: "1", Negative: true}))
	assert.False(t, Opposite(nil, Tag{Tag: "a"}))
}
