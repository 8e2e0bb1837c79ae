/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package store

import (
	"sync"

	"github.com/suparena/syncstore/errors"
	"github.com/suparena/syncstore/identity"
)

// ChangeKind tells listeners which mutation produced a change event.
type ChangeKind int

const (
	ChangeAdd ChangeKind = iota + 1
	ChangeBulkAdd
	ChangeRemove
	ChangeClear
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeAdd:
		return "add"
	case ChangeBulkAdd:
		return "bulk-add"
	case ChangeRemove:
		return "remove"
	case ChangeClear:
		return "clear"
	default:
		return "unknown"
	}
}

// Change describes a committed mutation. Items holds the affected
// entities: the inserted ones for Add/BulkAdd, the removed ones for
// Remove/Clear.
type Change[T any] struct {
	Kind  ChangeKind
	Items []T
}

// Listener receives change events. Listeners run after the store's lock
// has been released; a listener that re-enters the store will not
// deadlock, but may observe state from a later, racing mutation.
type Listener[T any] func(Change[T])

// Store is a thread-safe ordered collection with identity-aware
// deduplication and change notification. The mutation lock is held only
// for the in-memory work itself, never across listener callbacks or I/O.
type Store[T comparable] struct {
	mu       sync.Mutex
	items    []T
	comparer identity.Comparer[T]

	lmu       sync.RWMutex
	listeners map[int]Listener[T]
	nextID    int
}

// New creates an empty store using the given comparer. A nil comparer
// falls back to the structural default.
func New[T comparable](comparer identity.Comparer[T]) *Store[T] {
	if comparer == nil {
		comparer = identity.Default[T]()
	}
	return &Store[T]{
		comparer:  comparer,
		listeners: make(map[int]Listener[T]),
	}
}

// Comparer returns the comparer the store deduplicates with.
func (s *Store[T]) Comparer() identity.Comparer[T] {
	return s.comparer
}

// Len returns the number of items.
func (s *Store[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Snapshot returns a copy of the current items, decoupled from internal
// state. Readers never observe a partially-mutated collection.
func (s *Store[T]) Snapshot() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]T, len(s.items))
	copy(out, s.items)
	return out
}

// Contains reports whether an equal item (per the comparer) is present.
func (s *Store[T]) Contains(item T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.indexOf(item) >= 0
}

// Add appends an item. A duplicate of an existing item (per the
// comparer) is rejected with a DuplicateItemError and the store is left
// unchanged.
func (s *Store[T]) Add(item T) error {
	s.mu.Lock()
	if s.indexOf(item) >= 0 {
		s.mu.Unlock()
		return errors.NewDuplicateItemError(0)
	}
	s.items = append(s.items, item)
	s.mu.Unlock()

	s.emit(Change[T]{Kind: ChangeAdd, Items: []T{item}})
	return nil
}

// AddRange appends a batch of items atomically. If any item duplicates
// an existing item or a sibling within the batch, nothing is inserted
// and the store's state equals its pre-call state.
func (s *Store[T]) AddRange(items []T) error {
	if len(items) == 0 {
		return nil
	}

	s.mu.Lock()
	seen := make(map[any]struct{}, len(s.items)+len(items))
	for _, it := range s.items {
		seen[s.comparer.Key(it)] = struct{}{}
	}
	for i, it := range items {
		k := s.comparer.Key(it)
		if _, dup := seen[k]; dup {
			s.mu.Unlock()
			return errors.NewDuplicateItemError(i)
		}
		seen[k] = struct{}{}
	}
	s.items = append(s.items, items...)
	s.mu.Unlock()

	added := make([]T, len(items))
	copy(added, items)
	s.emit(Change[T]{Kind: ChangeBulkAdd, Items: added})
	return nil
}

// Remove deletes the item equal to the argument, preserving order of
// the remainder. Removing an absent item returns false and emits no
// event.
func (s *Store[T]) Remove(item T) bool {
	s.mu.Lock()
	i := s.indexOf(item)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	removed := s.items[i]
	s.items = append(s.items[:i], s.items[i+1:]...)
	s.mu.Unlock()

	s.emit(Change[T]{Kind: ChangeRemove, Items: []T{removed}})
	return true
}

// Clear removes every item. The event carries the removed items so
// listeners can release per-item resources. Clearing an empty store is
// a no-op and emits nothing.
func (s *Store[T]) Clear() {
	s.mu.Lock()
	if len(s.items) == 0 {
		s.mu.Unlock()
		return
	}
	removed := s.items
	s.items = nil
	s.mu.Unlock()

	s.emit(Change[T]{Kind: ChangeClear, Items: removed})
}

// Subscribe registers a change listener and returns its removal func.
func (s *Store[T]) Subscribe(fn Listener[T]) (remove func()) {
	s.lmu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.lmu.Unlock()

	return func() {
		s.lmu.Lock()
		delete(s.listeners, id)
		s.lmu.Unlock()
	}
}

// indexOf must be called with the mutation lock held.
func (s *Store[T]) indexOf(item T) int {
	for i, it := range s.items {
		if s.comparer.Equal(it, item) {
			return i
		}
	}
	return -1
}

// emit runs after the mutation committed and the lock was released.
func (s *Store[T]) emit(c Change[T]) {
	s.lmu.RLock()
	fns := make([]Listener[T], 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.lmu.RUnlock()

	for _, fn := range fns {
		fn(c)
	}
}
