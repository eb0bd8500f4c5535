package lmsr

import "fmt"

// A Set is the fixed, ordered collection of mutually exclusive outcomes a
// market is defined over. Each outcome has a stable zero-based index; the set
// never grows or shrinks after construction.
type Set[T comparable] struct {
	tags  []T
	index map[T]int
}

// NewSet builds an outcome set from the given tags, in order. A market needs
// at least two mutually exclusive outcomes to be meaningful, so fewer than
// two tags, or any duplicate, is rejected.
func NewSet[T comparable](tags ...T) (*Set[T], error) {
	if len(tags) < 2 {
		return nil, fmt.Errorf("an outcome set needs at least 2 outcomes, got %d", len(tags))
	}
	index := make(map[T]int, len(tags))
	ordered := make([]T, len(tags))
	for i, tag := range tags {
		if _, seen := index[tag]; seen {
			return nil, fmt.Errorf("duplicate outcome %v", tag)
		}
		index[tag] = i
		ordered[i] = tag
	}
	return &Set[T]{tags: ordered, index: index}, nil
}

// IndexOf maps an outcome to its position in the set. Passing an outcome that
// is not a member is a caller contract violation and panics; callers must
// guarantee membership before reaching the engine.
func (s *Set[T]) IndexOf(outcome T) int {
	i, ok := s.index[outcome]
	if !ok {
		panic(fmt.Sprintf("lmsr: outcome %v is not in this market's outcome set", outcome))
	}
	return i
}

// Contains reports whether outcome is a member of the set.
func (s *Set[T]) Contains(outcome T) bool {
	_, ok := s.index[outcome]
	return ok
}

// Len returns the number of outcomes in the set.
func (s *Set[T]) Len() int {
	return len(s.tags)
}

// Outcomes returns the tags in index order.
func (s *Set[T]) Outcomes() []T {
	out := make([]T, len(s.tags))
	copy(out, s.tags)
	return out
}

// BinaryOutcome is the two-member Yes/No outcome set used by simple
// will-it-happen markets.
type BinaryOutcome int

const (
	Yes BinaryOutcome = iota
	No
)

func (o BinaryOutcome) String() string {
	if o == Yes {
		return "yes"
	}
	return "no"
}

// BinaryFromBool maps true to Yes and false to No.
func BinaryFromBool(b bool) BinaryOutcome {
	if b {
		return Yes
	}
	return No
}

// Bool maps Yes to true and No to false.
func (o BinaryOutcome) Bool() bool {
	return o == Yes
}

// NewBinarySet returns the Yes/No outcome set.
func NewBinarySet() *Set[BinaryOutcome] {
	s, err := NewSet(Yes, No)
	if err != nil {
		panic(err)
	}
	return s
}
