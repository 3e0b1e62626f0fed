package state

// Seen is the set of broadcast values observed by this node. It only grows and
// enumerates in insertion order.
type Seen struct {
	index  map[int]struct{}
	values []int
}

// NewSeen constructs an empty store.
func NewSeen() *Seen {
	return &Seen{index: make(map[int]struct{})}
}

// Contains reports whether value was already observed.
func (s *Seen) Contains(value int) bool {
	_, ok := s.index[value]
	return ok
}

// Insert records value and reports whether it was new.
func (s *Seen) Insert(value int) bool {
	if s.Contains(value) {
		return false
	}
	s.index[value] = struct{}{}
	s.values = append(s.values, value)
	return true
}

// Values returns a copy of the observed values in insertion order.
func (s *Seen) Values() []int {
	out := make([]int, len(s.values))
	copy(out, s.values)
	return out
}

// Len returns the number of distinct values.
func (s *Seen) Len() int {
	return len(s.values)
}
