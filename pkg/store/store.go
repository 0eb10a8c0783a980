// Package store provides a generic, thread-safe, insertion-ordered key-value
// store with ordered snapshots. rigcart uses it for the saved-build
// collection and for the in-memory persistence backend.
package store

import "sync"

// Store is a generic, thread-safe, in-memory store for objects of type T.
type Store[T any] struct {
	mu    sync.RWMutex
	items map[string]T
	order []string // insertion order for deterministic listing
}

// Entry pairs an ID with its item. Snapshots are slices of entries so the
// insertion order survives a round trip.
type Entry[T any] struct {
	ID   string `json:"id"`
	Item T      `json:"item"`
}

// New creates an empty Store.
func New[T any]() *Store[T] {
	return &Store[T]{
		items: make(map[string]T),
		order: make([]string, 0),
	}
}

// Set stores an item with the given ID. If the ID already exists, it is overwritten
// but its position in the insertion order is preserved.
func (s *Store[T]) Set(id string, item T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.items[id]; !exists {
		s.order = append(s.order, id)
	}
	s.items[id] = item
}

// Get retrieves an item by ID. Returns the item and true if found, zero value and false otherwise.
func (s *Store[T]) Get(id string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[id]
	return item, ok
}

// Delete removes an item by ID. Returns true if the item existed.
func (s *Store[T]) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.items[id]; !exists {
		return false
	}
	delete(s.items, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// Snapshot returns all entries in insertion order. The transform is applied to
// every item on the way out so callers can deep-copy values that hold slices
// or maps; pass nil to copy items as-is.
func (s *Store[T]) Snapshot(transform func(T) T) []Entry[T] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry[T], 0, len(s.order))
	for _, id := range s.order {
		item := s.items[id]
		if transform != nil {
			item = transform(item)
		}
		out = append(out, Entry[T]{ID: id, Item: item})
	}
	return out
}

// LoadSnapshot replaces all items from an ordered snapshot. A repeated ID
// keeps its first position and its last value.
func (s *Store[T]) LoadSnapshot(entries []Entry[T]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[string]T, len(entries))
	s.order = make([]string, 0, len(entries))
	for _, e := range entries {
		if _, exists := s.items[e.ID]; !exists {
			s.order = append(s.order, e.ID)
		}
		s.items[e.ID] = e.Item
	}
}
