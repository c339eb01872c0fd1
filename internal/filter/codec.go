package filter

import (
	"encoding/json"
	"errors"
	"fmt"
)

// wireFilter is the tagged-variant JSON shape shared by the URL parameter
// and the saved-views record:
//
//	{"type":"tag","tag":"js","negative":false}
type wireFilter struct {
	Type     Kind    `json:"type"`
	Value    *string `json:"value,omitempty"`
	Tag      *string `json:"tag,omitempty"`
	Title    *string `json:"title,omitempty"`
	URL      *string `json:"url,omitempty"`
	FolderID *string `json:"folderId,omitempty"`
	Negative bool    `json:"negative"`
}

func toWire(f Filter) wireFilter {
	v := f.Value()
	w := wireFilter{Type: f.Kind(), Negative: f.IsNegative()}
	switch f.(type) {
	case Any:
		w.Value = &v
	case Tag:
		w.Tag = &v
	case Title:
		w.Title = &v
	case URL:
		w.URL = &v
	case Folder, StrictFolder:
		w.FolderID = &v
	}
	return w
}

func (w wireFilter) filter() (Filter, error) {
	var field *string
	switch w.Type {
	case KindAny:
		field = w.Value
	case KindTag:
		field = w.Tag
	case KindTitle:
		field = w.Title
	case KindURL:
		field = w.URL
	case KindFolder, KindStrictFolder:
		field = w.FolderID
	case "":
		return nil, &ConstructionError{Reason: "missing type"}
	default:
		return nil, &ConstructionError{Kind: string(w.Type), Reason: "unknown filter type"}
	}
	if field == nil {
		return nil, &ConstructionError{Kind: string(w.Type), Reason: "missing " + discriminantField(w.Type)}
	}
	return New(w.Type, *field, w.Negative)
}

// Marshal encodes one filter.
func Marshal(f Filter) ([]byte, error) {
	if err := Validate(f); err != nil {
		return nil, err
	}
	return json.Marshal(toWire(f))
}

// Unmarshal decodes one filter.
func Unmarshal(data []byte) (Filter, error) {
	var w wireFilter
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, err
	}
	return w.filter()
}

// EncodeList encodes filters as a JSON array. A nil list encodes as "[]".
func EncodeList(filters []Filter) ([]byte, error) {
	out := make([]wireFilter, 0, len(filters))
	for _, f := range filters {
		if err := Validate(f); err != nil {
			return nil, err
		}
		out = append(out, toWire(f))
	}
	return json.Marshal(out)
}

// DecodeList decodes a JSON array of filters. Any malformed element fails the
// whole list with a *ParseError; an empty input decodes to an empty list.
func DecodeList(data []byte) ([]Filter, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var raw []wireFilter
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &ParseError{Input: string(data), Err: err}
	}
	out := make([]Filter, 0, len(raw))
	for i, w := range raw {
		f, err := w.filter()
		if err != nil {
			return nil, &ParseError{Input: string(data), Err: fmt.Errorf("element %d: %w", i, err)}
		}
		out = append(out, f)
	}
	return Dedupe(out), nil
}

// List is a filter slice with JSON support, for embedding in records.
type List []Filter

// MarshalJSON implements json.Marshaler.
func (l List) MarshalJSON() ([]byte, error) {
	return EncodeList(l)
}

// UnmarshalJSON implements json.Unmarshaler.
func (l *List) UnmarshalJSON(data []byte) error {
	filters, err := DecodeList(data)
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			return pe.Err
		}
		return err
	}
	*l = filters
	return nil
}
