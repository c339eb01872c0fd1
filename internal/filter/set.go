package filter

// Set is the ordered active-filter list. Each mutation builds a new backing
// slice and swaps it in whole, so a slice returned by List is never changed
// afterwards. Set is not safe for concurrent use; the engine serializes
// access.
type Set struct {
	list []Filter
}

// NewSet returns a set holding a copy of filters.
func NewSet(filters ...Filter) *Set {
	return &Set{list: Clone(filters)}
}

// List returns the current filters. The slice must not be modified.
func (s *Set) List() []Filter {
	return s.list
}

// Len returns the number of active filters.
func (s *Set) Len() int {
	return len(s.list)
}

// Contains reports whether an identical filter is active.
func (s *Set) Contains(f Filter) bool {
	return indexOf(s.list, f) >= 0
}

// Add appends f. An identical filter already present makes Add a no-op; the
// opposite-polarity filter is removed and f appended in its place. Add
// reports whether the list changed.
func (s *Set) Add(f Filter) (bool, error) {
	if err := Validate(f); err != nil {
		return false, err
	}
	if s.Contains(f) {
		return false, nil
	}
	next := make([]Filter, 0, len(s.list)+1)
	for _, g := range s.list {
		if !Opposite(f, g) {
			next = append(next, g)
		}
	}
	s.list = append(next, f)
	return true, nil
}

// Remove drops f by value. It reports whether anything was removed.
func (s *Set) Remove(f Filter) bool {
	i := indexOf(s.list, f)
	if i < 0 {
		return false
	}
	next := make([]Filter, 0, len(s.list)-1)
	next = append(next, s.list[:i]...)
	s.list = append(next, s.list[i+1:]...)
	return true
}

// Clear empties the list.
func (s *Set) Clear() bool {
	if len(s.list) == 0 {
		return false
	}
	s.list = nil
	return true
}

// Replace swaps in a copy of filters. Every filter is validated first; on
// error the current list is left untouched.
func (s *Set) Replace(filters []Filter) error {
	for _, f := range filters {
		if err := Validate(f); err != nil {
			return err
		}
	}
	s.list = Dedupe(filters)
	return nil
}

// Clone returns an independent copy of filters. Filters are values, so a
// shallow copy of the slice is a deep copy of the list.
func Clone(filters []Filter) []Filter {
	if len(filters) == 0 {
		return nil
	}
	out := make([]Filter, len(filters))
	copy(out, filters)
	return out
}

// Dedupe folds filters through Add semantics: later entries win over earlier
// opposite-polarity ones and exact repeats are dropped.
func Dedupe(filters []Filter) []Filter {
	var s Set
	for _, f := range filters {
		_, _ = s.Add(f)
	}
	return s.list
}

// Equal reports whether two lists hold identical filters in the same order.
func Equal(a, b []Filter) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func indexOf(list []Filter, f Filter) int {
	for i, g := range list {
		if g == f {
			return i
		}
	}
	return -1
}
