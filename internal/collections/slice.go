// Package collections provides generic collection utilities.
package collections

import (
	"iter"
	"slices"
)

type pair[K, V any] struct {
	key   K
	value V
}

// OrderedSlice is a map kept as a slice sorted by key.
// Lookups use binary search, inserts shift the tail. It suits small tables
// that are read back in order. It is not safe for concurrent use.
type OrderedSlice[K, V any] struct {
	cmp   func(a, b K) int
	items []pair[K, V]
}

// NewOrderedSlice creates an empty OrderedSlice ordered by cmp.
func NewOrderedSlice[K, V any](cmp func(a, b K) int) *OrderedSlice[K, V] {
	return &OrderedSlice[K, V]{cmp: cmp}
}

func (s *OrderedSlice[K, V]) search(key K) (int, bool) {
	return slices.BinarySearchFunc(s.items, key, func(p pair[K, V], k K) int {
		return s.cmp(p.key, k)
	})
}

// GetOrInsert returns a pointer to the value stored for key. If the key is
// absent, newValue is called and its result inserted at the sorted position;
// the second result reports whether an insert happened.
// The pointer is valid until the next insert.
func (s *OrderedSlice[K, V]) GetOrInsert(key K, newValue func() V) (*V, bool) {
	i, found := s.search(key)
	if found {
		return &s.items[i].value, false
	}
	s.items = slices.Insert(s.items, i, pair[K, V]{key: key, value: newValue()})
	return &s.items[i].value, true
}

// Contains reports whether key is present.
func (s *OrderedSlice[K, V]) Contains(key K) bool {
	_, found := s.search(key)
	return found
}

// Len returns the number of keys.
func (s *OrderedSlice[K, V]) Len() int {
	return len(s.items)
}

// All iterates key/value pairs in order.
func (s *OrderedSlice[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for _, p := range s.items {
			if !yield(p.key, p.value) {
				return
			}
		}
	}
}
