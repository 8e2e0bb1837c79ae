/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package mock provides a configurable in-memory implementation of the
// persistence Strategy interface for testing.
package mock

import (
	"context"
	"sync"
)

// Strategy is a mock persist.Strategy[T] that records calls and can be
// primed with canned results and errors.
type Strategy[T any] struct {
	mu          sync.Mutex
	items       []T
	loadErr     error
	saveErr     error
	updateErr   error
	loadCalls   int
	saveCalls   int
	updateCalls int
	lastSaved   []T
	updated     []T
	saveHook    func([]T)
	provider    func() []T
}

// New creates an empty mock strategy.
func New[T any]() *Strategy[T] {
	return &Strategy[T]{}
}

// WithItems primes the backend content returned by LoadAll.
func (m *Strategy[T]) WithItems(items ...T) *Strategy[T] {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = items
	return m
}

// WithLoadError makes LoadAll return an error.
func (m *Strategy[T]) WithLoadError(err error) *Strategy[T] {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadErr = err
	return m
}

// WithSaveError makes SaveAll return an error.
func (m *Strategy[T]) WithSaveError(err error) *Strategy[T] {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveErr = err
	return m
}

// WithUpdateError makes UpdateSingle return an error.
func (m *Strategy[T]) WithUpdateError(err error) *Strategy[T] {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateErr = err
	return m
}

// WithSaveHook installs a callback invoked after every successful
// SaveAll, carrying the saved snapshot. Useful for synchronizing tests
// with background saves.
func (m *Strategy[T]) WithSaveHook(fn func([]T)) *Strategy[T] {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveHook = fn
	return m
}

// LoadAll returns the primed items.
func (m *Strategy[T]) LoadAll(ctx context.Context) ([]T, error) {
	m.mu.Lock()
	m.loadCalls++
	err := m.loadErr
	items := make([]T, len(m.items))
	copy(items, m.items)
	m.mu.Unlock()

	if err != nil {
		return nil, err
	}
	return items, nil
}

// SaveAll replaces the mock backend content with items.
func (m *Strategy[T]) SaveAll(ctx context.Context, items []T) error {
	m.mu.Lock()
	m.saveCalls++
	err := m.saveErr
	var hook func([]T)
	saved := make([]T, len(items))
	copy(saved, items)
	if err == nil {
		m.items = saved
		m.lastSaved = saved
		hook = m.saveHook
	}
	m.mu.Unlock()

	if err != nil {
		return err
	}
	if hook != nil {
		hook(saved)
	}
	return nil
}

// UpdateSingle records the updated item.
func (m *Strategy[T]) UpdateSingle(ctx context.Context, item T) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateCalls++
	if m.updateErr != nil {
		return m.updateErr
	}
	m.updated = append(m.updated, item)
	return nil
}

// SetItemsProvider stores the provider for inspection.
func (m *Strategy[T]) SetItemsProvider(fn func() []T) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.provider = fn
}

// Items returns the current mock backend content.
func (m *Strategy[T]) Items() []T {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]T, len(m.items))
	copy(out, m.items)
	return out
}

// LoadCalls returns how many times LoadAll ran.
func (m *Strategy[T]) LoadCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadCalls
}

// SaveCalls returns how many times SaveAll ran.
func (m *Strategy[T]) SaveCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveCalls
}

// UpdateCalls returns how many times UpdateSingle ran.
func (m *Strategy[T]) UpdateCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateCalls
}

// LastSaved returns the most recent successfully saved snapshot.
func (m *Strategy[T]) LastSaved() []T {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastSaved
}

// Updated returns every item passed to UpdateSingle.
func (m *Strategy[T]) Updated() []T {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]T, len(m.updated))
	copy(out, m.updated)
	return out
}

// Provider returns the installed items provider, or nil.
func (m *Strategy[T]) Provider() func() []T {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.provider
}
