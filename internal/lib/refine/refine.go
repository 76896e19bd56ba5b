// Package refine narrows a candidate set through an ordered pipeline of
// predicates. A predicate that matches nothing keeps the previous set, so a
// pipeline can only narrow, never empty, a non-empty set.
package refine

type Predicate[T any] func(T) bool

type Set[T any] struct {
	candidates []T
}

func NewSet[T any](candidates []T) Set[T] {
	return Set[T]{candidates: candidates}
}

// Filter keeps only matching candidates, without the never-empty guarantee.
// It is the unconditional first stage of a pipeline.
func (s Set[T]) Filter(pred Predicate[T]) Set[T] {
	var matched []T
	for _, c := range s.candidates {
		if pred(c) {
			matched = append(matched, c)
		}
	}
	return NewSet(matched)
}

// Refine narrows the set to the candidates matching pred. When nothing
// matches, the step is a no-op and the previous set is kept. A set already
// narrowed down to a single candidate is returned as is.
func (s Set[T]) Refine(pred Predicate[T]) Set[T] {
	if len(s.candidates) <= 1 {
		return s
	}
	narrowed := s.Filter(pred)
	if narrowed.IsEmpty() {
		return s
	}
	return narrowed
}

func (s Set[T]) IsEmpty() bool {
	return len(s.candidates) == 0
}

func (s Set[T]) Size() int {
	return len(s.candidates)
}

// First returns the candidate first in enumeration order.
func (s Set[T]) First() T {
	return s.candidates[0]
}

func (s Set[T]) All() []T {
	return s.candidates
}
