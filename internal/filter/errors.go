package filter

import "fmt"

// ConstructionError rejects a filter before it can enter an active list.
type ConstructionError struct {
	Kind   string
	Reason string
}

func (e *ConstructionError) Error() string {
	if e.Kind == "" {
		return "invalid filter: " + e.Reason
	}
	return fmt.Sprintf("invalid %q filter: %s", e.Kind, e.Reason)
}

// ParseError reports a serialized filter list that could not be decoded.
// Callers fall back to an empty list.
type ParseError struct {
	Input string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse filter list: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
