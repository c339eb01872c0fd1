// Package filter defines the bookmark filter expressions, their evaluation,
// and the ordered active-filter set.
package filter

import (
	"strconv"
	"strings"
)

// Kind names a filter variant. The string values are the wire "type" field.
type Kind string

const (
	KindAny          Kind = "any"
	KindTag          Kind = "tag"
	KindTitle        Kind = "title"
	KindURL          Kind = "url"
	KindFolder       Kind = "folder"
	KindStrictFolder Kind = "strict_folder"
)

// Kinds lists every variant in display order.
var Kinds = []Kind{KindAny, KindTag, KindTitle, KindURL, KindFolder, KindStrictFolder}

// Filter is one of Any, Tag, Title, URL, Folder or StrictFolder. The set of
// variants is closed. All variants are comparable values, so two filters are
// identical exactly when f == g.
type Filter interface {
	Kind() Kind
	// Value is the discriminating field: text, tag name or folder id.
	Value() string
	IsNegative() bool
	// Negate returns the same filter with the opposite polarity.
	Negate() Filter

	sealed()
}

// Any matches title or URL by case-insensitive substring.
type Any struct {
	Text     string
	Negative bool
}

// Tag matches titles carrying the whitespace-delimited token "#Tag",
// ignoring case.
type Tag struct {
	Tag      string
	Negative bool
}

// Title matches the title by case-insensitive substring.
type Title struct {
	Text     string
	Negative bool
}

// URL matches the URL by case-insensitive substring.
type URL struct {
	Text     string
	Negative bool
}

// Folder matches every node below FolderID, at any depth.
type Folder struct {
	FolderID string
	Negative bool
}

// StrictFolder matches only the immediate children of FolderID.
type StrictFolder struct {
	FolderID string
	Negative bool
}

func (Any) Kind() Kind          { return KindAny }
func (Tag) Kind() Kind          { return KindTag }
func (Title) Kind() Kind        { return KindTitle }
func (URL) Kind() Kind          { return KindURL }
func (Folder) Kind() Kind       { return KindFolder }
func (StrictFolder) Kind() Kind { return KindStrictFolder }

func (f Any) Value() string          { return f.Text }
func (f Tag) Value() string          { return f.Tag }
func (f Title) Value() string        { return f.Text }
func (f URL) Value() string          { return f.Text }
func (f Folder) Value() string       { return f.FolderID }
func (f StrictFolder) Value() string { return f.FolderID }

func (f Any) IsNegative() bool          { return f.Negative }
func (f Tag) IsNegative() bool          { return f.Negative }
func (f Title) IsNegative() bool        { return f.Negative }
func (f URL) IsNegative() bool          { return f.Negative }
func (f Folder) IsNegative() bool       { return f.Negative }
func (f StrictFolder) IsNegative() bool { return f.Negative }

func (f Any) Negate() Filter          { f.Negative = !f.Negative; return f }
func (f Tag) Negate() Filter          { f.Negative = !f.Negative; return f }
func (f Title) Negate() Filter        { f.Negative = !f.Negative; return f }
func (f URL) Negate() Filter          { f.Negative = !f.Negative; return f }
func (f Folder) Negate() Filter       { f.Negative = !f.Negative; return f }
func (f StrictFolder) Negate() Filter { f.Negative = !f.Negative; return f }

func (Any) sealed()          {}
func (Tag) sealed()          {}
func (Title) sealed()        {}
func (URL) sealed()          {}
func (Folder) sealed()       {}
func (StrictFolder) sealed() {}

// New builds a filter from its wire parts. Unknown kinds and blank
// discriminants are rejected with a *ConstructionError. A tag may be given
// with or without its leading '#'.
func New(kind Kind, value string, negative bool) (Filter, error) {
	if kind == KindTag {
		value = strings.TrimPrefix(value, "#")
	}
	if strings.TrimSpace(value) == "" {
		if !validKind(kind) {
			return nil, &ConstructionError{Kind: string(kind), Reason: "unknown filter type"}
		}
		return nil, &ConstructionError{Kind: string(kind), Reason: "missing " + discriminantField(kind)}
	}
	switch kind {
	case KindAny:
		return Any{Text: value, Negative: negative}, nil
	case KindTag:
		return Tag{Tag: value, Negative: negative}, nil
	case KindTitle:
		return Title{Text: value, Negative: negative}, nil
	case KindURL:
		return URL{Text: value, Negative: negative}, nil
	case KindFolder:
		return Folder{FolderID: value, Negative: negative}, nil
	case KindStrictFolder:
		return StrictFolder{FolderID: value, Negative: negative}, nil
	}
	return nil, &ConstructionError{Kind: string(kind), Reason: "unknown filter type"}
}

// Validate checks a filter built directly as a struct literal. The literal
// must equal what New builds from its parts, so a tag stored with its '#'
// is rejected rather than silently never matching.
func Validate(f Filter) error {
	if f == nil {
		return &ConstructionError{Reason: "nil filter"}
	}
	built, err := New(f.Kind(), f.Value(), f.IsNegative())
	if err != nil {
		return err
	}
	if built != f {
		return &ConstructionError{Kind: string(f.Kind()), Reason: "value " + strconv.Quote(f.Value()) + " is not normalized"}
	}
	return nil
}

// Opposite reports whether f and g differ only in polarity.
func Opposite(f, g Filter) bool {
	return f != nil && g != nil && f.Negate() == g
}

func validKind(k Kind) bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// discriminantField returns the wire field carrying the filter's value.
func discriminantField(k Kind) string {
	switch k {
	case KindTag:
		return "tag"
	case KindTitle:
		return "title"
	case KindURL:
		return "url"
	case KindFolder, KindStrictFolder:
		return "folderId"
	default:
		return "value"
	}
}
