/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package pebbledb implements the transactional delta persistence
// strategy over an embedded pebble database.
//
// SaveAll diffs the store snapshot against backend state and applies
// only the resulting inserts and deletes, inside a single atomic batch:
// either the whole delta commits or none of it does. UpdateSingle is a
// point write, giving O(1) persistence cost per field edit. Inserted
// transient items receive backend-assigned ids from a monotonic counter
// and the ids are written back into the caller's items.
//
// Load policy is strict: any failure propagates a typed load error,
// because an empty result from a transactional backend would mask
// corruption.
package pebbledb

import (
	"context"
	"encoding/binary"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"

	"github.com/suparena/syncstore/diff"
	"github.com/suparena/syncstore/errors"
	"github.com/suparena/syncstore/identity"
	"github.com/suparena/syncstore/logging"
)

const backendName = "pebble"

// writeOptions syncs the WAL on every commit so an acknowledged save
// survives process death.
var writeOptions = pebble.WriteOptions{Sync: true}

// Strategy persists identified items of type T as JSON values keyed by
// id inside a named collection.
type Strategy[T identity.Identified] struct {
	db         *pebble.DB
	owned      bool
	collection string
	log        logging.Logger

	mu       sync.Mutex
	provider func() []T
}

// Option configures a Strategy.
type Option[T identity.Identified] func(*Strategy[T])

// WithLogger sets the diagnostic logger.
func WithLogger[T identity.Identified](log logging.Logger) Option[T] {
	return func(s *Strategy[T]) { s.log = log }
}

// Open creates a strategy over its own pebble database at path. The
// caller must Close it.
func Open[T identity.Identified](path, collection string, opts ...Option[T]) (*Strategy[T], error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble db at %s: %w", path, err)
	}
	s := NewWithDB[T](db, collection, opts...)
	s.owned = true
	return s, nil
}

// NewWithDB wraps an existing pebble database, so several collections
// can share one. The database stays owned by the caller.
func NewWithDB[T identity.Identified](db *pebble.DB, collection string, opts ...Option[T]) *Strategy[T] {
	s := &Strategy[T]{
		db:         db,
		collection: collection,
		log:        logging.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DB exposes the underlying database, e.g. for metric collection.
func (s *Strategy[T]) DB() *pebble.DB {
	return s.db
}

// Close closes the database when the strategy owns it.
func (s *Strategy[T]) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}

// SetItemsProvider is a no-op hook kept for the Strategy contract; the
// delta path works from explicit snapshots.
func (s *Strategy[T]) SetItemsProvider(fn func() []T) {
	s.mu.Lock()
	s.provider = fn
	s.mu.Unlock()
}

func (s *Strategy[T]) itemKey(id int64) []byte {
	return []byte(fmt.Sprintf("%s/%016x", s.collection, uint64(id)))
}

// counterKey sorts before the "/" item namespace, so iteration bounds
// over items never touch it.
func (s *Strategy[T]) counterKey() []byte {
	return []byte(s.collection + "!seq")
}

func (s *Strategy[T]) bounds() ([]byte, []byte) {
	return []byte(s.collection + "/"), []byte(s.collection + "0")
}

// LoadAll reads every item of the collection in id order.
func (s *Strategy[T]) LoadAll(ctx context.Context) ([]T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(ctx)
}

func (s *Strategy[T]) loadLocked(ctx context.Context) ([]T, error) {
	lower, upper := s.bounds()
	it, err := s.db.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upper})
	if err != nil {
		return nil, errors.NewLoadError(backendName, err)
	}
	defer func() {
		_ = it.Close()
	}()

	var items []T
	for it.First(); it.Valid(); it.Next() {
		if err := ctx.Err(); err != nil {
			return nil, errors.NewLoadError(backendName, err)
		}
		var item T
		if err := json.Unmarshal(it.Value(), &item); err != nil {
			return nil, errors.NewLoadError(backendName, fmt.Errorf("bad value at %q: %w", it.Key(), err))
		}
		items = append(items, item)
	}
	if err := it.Error(); err != nil {
		return nil, errors.NewLoadError(backendName, err)
	}
	return items, nil
}

// SaveAll computes the delta between items and backend state and
// applies it in one atomic batch. Transient items get ids allocated
// from the collection counter; on commit failure the assignments are
// rolled back so the items stay transient.
//
// Id write-back mutates the caller's items from the saving goroutine.
// Callers that read an item's id from other goroutines while a save is
// in flight must synchronize that access themselves.
func (s *Strategy[T]) SaveAll(ctx context.Context, items []T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return errors.NewSaveError(backendName, err)
	}

	stored, err := s.loadLocked(ctx)
	if err != nil {
		return errors.NewSaveError(backendName, err)
	}

	d := diff.ComputeIdentified(items, stored)
	if d.Empty() {
		return nil
	}

	seq, err := s.readCounter()
	if err != nil {
		return errors.NewSaveError(backendName, err)
	}

	batch := s.db.NewBatch()
	defer func() {
		_ = batch.Close()
	}()

	// Assign ids up front so the marshaled values carry them; undo on
	// any failure so a failed commit leaves the items transient.
	var assigned []T
	rollback := func() {
		for _, item := range assigned {
			item.SetEntityID(0)
		}
	}

	for _, item := range d.ToInsert {
		if item.EntityID() == 0 {
			seq++
			item.SetEntityID(seq)
			assigned = append(assigned, item)
		}
		data, err := json.Marshal(item)
		if err != nil {
			rollback()
			return errors.NewSaveError(backendName, fmt.Errorf("failed to marshal item: %w", err))
		}
		if err := batch.Set(s.itemKey(item.EntityID()), data, nil); err != nil {
			rollback()
			return errors.NewSaveError(backendName, err)
		}
	}
	for _, item := range d.ToDelete {
		if err := batch.Delete(s.itemKey(item.EntityID()), nil); err != nil {
			rollback()
			return errors.NewSaveError(backendName, err)
		}
	}
	if len(assigned) > 0 {
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], uint64(seq))
		if err := batch.Set(s.counterKey(), buf[:], nil); err != nil {
			rollback()
			return errors.NewSaveError(backendName, err)
		}
	}

	if err := batch.Commit(&writeOptions); err != nil {
		rollback()
		return errors.NewSaveError(backendName, err)
	}

	s.log.Debug("applied delta", "collection", s.collection,
		"inserted", len(d.ToInsert), "deleted", len(d.ToDelete))
	return nil
}

// UpdateSingle point-writes one persisted item. Transient items are a
// no-op: they reach the backend through the next full save.
func (s *Strategy[T]) UpdateSingle(ctx context.Context, item T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return errors.NewSaveError(backendName, err)
	}

	id := item.EntityID()
	if id == 0 {
		return nil
	}

	data, err := json.Marshal(item)
	if err != nil {
		return errors.NewSaveError(backendName, fmt.Errorf("failed to marshal item: %w", err))
	}
	if err := s.db.Set(s.itemKey(id), data, &writeOptions); err != nil {
		return errors.NewSaveError(backendName, err)
	}
	return nil
}

func (s *Strategy[T]) readCounter() (int64, error) {
	val, closer, err := s.db.Get(s.counterKey())
	if err != nil {
		if stderrors.Is(err, pebble.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	defer func() {
		_ = closer.Close()
	}()
	if len(val) != 8 {
		return 0, fmt.Errorf("corrupt sequence counter for %s", s.collection)
	}
	return int64(binary.BigEndian.Uint64(val)), nil
}
