/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package syncstore

import (
	"io"
	"reflect"
	"sync"

	"github.com/suparena/syncstore/errors"
	"github.com/suparena/syncstore/store"
)

// Registry maps entity types to their stores. It is an explicitly
// constructed object with no package-level state, so tests and embedded
// deployments can run isolated registries side by side. Registering a
// type twice fails loudly; lookups of unknown types fail loudly too.
// Safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	entries map[reflect.Type]any
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[reflect.Type]any),
	}
}

func (r *Registry) register(t reflect.Type, entry any) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[t]; exists {
		return errors.NewDuplicateRegistrationError(t.String())
	}
	r.entries[t] = entry
	return nil
}

func (r *Registry) resolve(t reflect.Type) (any, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, exists := r.entries[t]
	if !exists {
		return nil, errors.NewNotRegisteredError(t.String())
	}
	return entry, nil
}

// Types returns the registered entity types.
func (r *Registry) Types() []reflect.Type {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]reflect.Type, 0, len(r.entries))
	for t := range r.entries {
		out = append(out, t)
	}
	return out
}

// Len returns the number of registered types.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Close closes every registered entry that implements io.Closer, in
// unspecified order, and returns the first error encountered.
func (r *Registry) Close() error {
	r.mu.Lock()
	entries := make([]any, 0, len(r.entries))
	for _, e := range r.entries {
		entries = append(entries, e)
	}
	r.entries = make(map[reflect.Type]any)
	r.mu.Unlock()

	var first error
	for _, e := range entries {
		if c, ok := e.(io.Closer); ok {
			if err := c.Close(); err != nil && first == nil {
				first = err
			}
		}
	}
	return first
}

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// RegisterStore registers a plain store for type T. Each type can have
// exactly one entry, whether plain or synchronized.
func RegisterStore[T comparable](r *Registry, s *store.Store[T]) error {
	return r.register(typeOf[T](), s)
}

// StoreFor resolves the plain store registered for type T.
func StoreFor[T comparable](r *Registry) (*store.Store[T], error) {
	entry, err := r.resolve(typeOf[T]())
	if err != nil {
		return nil, err
	}
	s, ok := entry.(*store.Store[T])
	if !ok {
		return nil, errors.NewNotRegisteredError(typeOf[T]().String())
	}
	return s, nil
}

// RegisterSynced registers a synchronized store for type T.
func RegisterSynced[T comparable](r *Registry, s *SyncedStore[T]) error {
	return r.register(typeOf[T](), s)
}

// SyncedFor resolves the synchronized store registered for type T.
func SyncedFor[T comparable](r *Registry) (*SyncedStore[T], error) {
	entry, err := r.resolve(typeOf[T]())
	if err != nil {
		return nil, err
	}
	s, ok := entry.(*SyncedStore[T])
	if !ok {
		return nil, errors.NewNotRegisteredError(typeOf[T]().String())
	}
	return s, nil
}
