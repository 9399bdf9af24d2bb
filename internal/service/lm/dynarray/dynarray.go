// Package dynarray implements a growable array whose capacity is driven
// by a growth.Strategy instead of Go's built-in append doubling. It backs
// W2CA's per-word dynamic sub-arrays, which grow during ARPA ingest and
// shrink to size exactly once, during post-processing. G2DM's per-bucket
// arrays are plain slices and do not use it.
package dynarray

import "github.com/arpalm/golm/internal/service/lm/growth"

// Array is a growable slice of T. The zero value is not usable; construct
// one with New.
type Array[T any] struct {
	items    []T
	length   int
	strategy growth.Strategy
}

// New constructs an empty array governed by strategy.
func New[T any](strategy growth.Strategy) *Array[T] {
	return &Array[T]{strategy: strategy}
}

// Append adds v, growing the backing array via the configured strategy
// when capacity is exhausted.
func (a *Array[T]) Append(v T) {
	if a.length == len(a.items) {
		newCap := a.strategy.Grow(len(a.items))
		grown := make([]T, newCap)
		copy(grown, a.items[:a.length])
		a.items = grown
	}
	a.items[a.length] = v
	a.length++
}

// Len returns the number of appended elements.
func (a *Array[T]) Len() int { return a.length }

// At returns the element at index i.
func (a *Array[T]) At(i int) T { return a.items[i] }

// Set overwrites the element at index i.
func (a *Array[T]) Set(i int, v T) { a.items[i] = v }

// Slice returns the live elements, aliasing the backing array.
func (a *Array[T]) Slice() []T { return a.items[:a.length] }

// ShrinkToFit reallocates the backing array to exactly a.Len(), releasing
// any capacity the growth strategy over-allocated. Called once per
// sub-array during post-processing.
func (a *Array[T]) ShrinkToFit() {
	if len(a.items) == a.length {
		return
	}
	shrunk := make([]T, a.length)
	copy(shrunk, a.items[:a.length])
	a.items = shrunk
}
