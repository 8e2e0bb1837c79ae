/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package syncstore

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/suparena/syncstore/identity"
	"github.com/suparena/syncstore/logging"
	"github.com/suparena/syncstore/persist"
	"github.com/suparena/syncstore/store"
)

// NewIdentifiedStore builds a Store keyed by entity identity: persisted
// items compare by ID, transient ones by instance.
func NewIdentifiedStore[T interface {
	identity.Identified
	comparable
}]() *store.Store[T] {
	return store.New(identity.Identity[T]())
}

// SyncState tracks the one-way lifecycle of a synchronized store.
type SyncState int32

const (
	StateUninitialized SyncState = iota
	StateInitializing
	StateReady
)

func (s SyncState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// SyncedStore decorates a Store with auto-load and auto-save against a
// persistence strategy.
//
// Mutations go through the embedded store and stay purely in-memory on
// the caller's path; each committed mutation schedules an asynchronous
// full save of the current snapshot. Saves for one store never
// interleave: they serialize on a dedicated mutex, and a scheduled save
// always snapshots after acquiring it, so a stale snapshot can never
// overwrite a newer one. Save failures are swallowed at this boundary —
// the in-memory store remains authoritative — but are always visible
// through the logger, the metrics and the error hook.
//
// Items implementing Observable additionally get a per-instance
// listener that turns field edits into single-item backend updates.
type SyncedStore[T comparable] struct {
	store    *store.Store[T]
	strategy persist.Strategy[T]
	log      logging.Logger
	metrics  *Metrics
	onError  func(error)

	initMu  sync.Mutex
	state   atomic.Int32
	loading atomic.Bool

	saveMu  sync.Mutex
	pending atomic.Bool

	drainMu  sync.Mutex
	inflight int
	idle     chan struct{}

	tracked     *xsync.MapOf[T, func()]
	unsubscribe func()
	closed      atomic.Bool
}

// SyncedOption configures a SyncedStore.
type SyncedOption[T comparable] func(*SyncedStore[T])

// WithLogger sets the diagnostic logger.
func WithLogger[T comparable](log logging.Logger) SyncedOption[T] {
	return func(s *SyncedStore[T]) { s.log = log }
}

// WithMetrics attaches sync outcome counters.
func WithMetrics[T comparable](m *Metrics) SyncedOption[T] {
	return func(s *SyncedStore[T]) { s.metrics = m }
}

// WithSaveErrorHook installs a callback invoked with every swallowed
// persistence failure. The hook runs on the background save goroutine
// and must not block.
func WithSaveErrorHook[T comparable](fn func(error)) SyncedOption[T] {
	return func(s *SyncedStore[T]) { s.onError = fn }
}

// NewSyncedStore wraps s with auto-load/auto-save against strategy. The
// synchronizer takes exclusive ownership of the store: all further
// mutations must go through the returned decorator or its Store.
func NewSyncedStore[T comparable](s *store.Store[T], strategy persist.Strategy[T], opts ...SyncedOption[T]) *SyncedStore[T] {
	y := &SyncedStore[T]{
		store:    s,
		strategy: strategy,
		log:      logging.Nop(),
		tracked:  xsync.NewMapOf[T, func()](),
	}
	for _, opt := range opts {
		opt(y)
	}
	strategy.SetItemsProvider(s.Snapshot)
	y.unsubscribe = s.Subscribe(y.onChange)
	return y
}

// Store returns the decorated store.
func (y *SyncedStore[T]) Store() *store.Store[T] {
	return y.store
}

// State returns the current lifecycle state.
func (y *SyncedStore[T]) State() SyncState {
	return SyncState(y.state.Load())
}

// Initialize loads the backend into the store exactly once. Concurrent
// calls serialize; every call after the first successful one returns
// immediately. A failed load leaves the store uninitialized so the call
// can be retried.
//
// While the load is in progress auto-save is suppressed, so a mutation
// from another goroutine racing Initialize commits in memory without
// scheduling a save of its own; it is persisted by the next mutation's
// save cycle. Mutating before Ready is not a supported pattern.
func (y *SyncedStore[T]) Initialize(ctx context.Context) error {
	if y.State() == StateReady {
		return nil
	}

	y.initMu.Lock()
	defer y.initMu.Unlock()
	if y.State() == StateReady {
		return nil
	}

	y.state.Store(int32(StateInitializing))
	items, err := y.strategy.LoadAll(ctx)
	if err != nil {
		y.state.Store(int32(StateUninitialized))
		return err
	}
	y.metrics.incLoads()

	// Loaded items must not bounce straight back into the backend; the
	// loading flag suppresses save scheduling while trackers still bind.
	y.loading.Store(true)
	err = y.store.AddRange(items)
	y.loading.Store(false)
	if err != nil {
		y.state.Store(int32(StateUninitialized))
		return err
	}

	y.state.Store(int32(StateReady))
	y.log.Debug("store initialized", "items", len(items))
	return nil
}

// Add inserts an item through the decorator. The error, if any, is the
// store's own (e.g. a duplicate); persistence outcome never surfaces
// here.
func (y *SyncedStore[T]) Add(item T) error {
	return y.store.Add(item)
}

// AddRange inserts a batch atomically.
func (y *SyncedStore[T]) AddRange(items []T) error {
	return y.store.AddRange(items)
}

// Remove deletes an item; removing an absent item is a no-op.
func (y *SyncedStore[T]) Remove(item T) bool {
	return y.store.Remove(item)
}

// Clear removes every item.
func (y *SyncedStore[T]) Clear() {
	y.store.Clear()
}

// Contains reports membership per the store's comparer.
func (y *SyncedStore[T]) Contains(item T) bool {
	return y.store.Contains(item)
}

// Snapshot returns a point-in-time copy of the items.
func (y *SyncedStore[T]) Snapshot() []T {
	return y.store.Snapshot()
}

// Len returns the number of items.
func (y *SyncedStore[T]) Len() int {
	return y.store.Len()
}

// onChange runs after every committed store mutation, outside the
// store's lock.
func (y *SyncedStore[T]) onChange(c store.Change[T]) {
	switch c.Kind {
	case store.ChangeAdd, store.ChangeBulkAdd:
		for _, item := range c.Items {
			y.track(item)
		}
	case store.ChangeRemove, store.ChangeClear:
		for _, item := range c.Items {
			y.untrack(item)
		}
	}

	if y.loading.Load() {
		return
	}
	y.scheduleSave()
}

// scheduleSave queues at most one pending save. A mutation arriving
// while a save is queued but not yet snapshotting is covered by that
// save; a mutation arriving later queues the next one. The snapshot is
// taken only after the save mutex is held, so it is always the newest
// state at write time.
func (y *SyncedStore[T]) scheduleSave() {
	if y.closed.Load() {
		return
	}
	if !y.pending.CompareAndSwap(false, true) {
		return
	}

	y.begin()
	go func() {
		defer y.done()

		y.saveMu.Lock()
		defer y.saveMu.Unlock()

		y.pending.Store(false)
		snapshot := y.store.Snapshot()
		if err := y.strategy.SaveAll(context.Background(), snapshot); err != nil {
			y.swallow(err)
			return
		}
		y.metrics.incSaves()
	}()
}

// track binds a per-instance listener when the item is observable.
// Attaching the same instance twice keeps exactly one subscription.
func (y *SyncedStore[T]) track(item T) {
	obs, ok := any(item).(Observable)
	if !ok {
		return
	}
	if _, loaded := y.tracked.Load(item); loaded {
		return
	}
	remove := obs.Observe(func() { y.itemChanged(item) })
	if _, loaded := y.tracked.LoadOrStore(item, remove); loaded {
		// Lost the race to another attach; keep the winner's binding.
		remove()
	}
}

func (y *SyncedStore[T]) untrack(item T) {
	if remove, ok := y.tracked.LoadAndDelete(item); ok {
		remove()
	}
}

// itemChanged persists one edited item through the strategy's
// single-item path, serialized with full saves.
func (y *SyncedStore[T]) itemChanged(item T) {
	if y.closed.Load() {
		return
	}

	y.begin()
	go func() {
		defer y.done()

		y.saveMu.Lock()
		defer y.saveMu.Unlock()

		if err := y.strategy.UpdateSingle(context.Background(), item); err != nil {
			y.swallow(err)
			return
		}
		y.metrics.incSingleUpdates()
	}()
}

// swallow absorbs a persistence failure at the auto-save boundary. The
// mutation already succeeded in memory; the failure is reported through
// every diagnostic channel but never to the mutating caller.
func (y *SyncedStore[T]) swallow(err error) {
	y.log.Error("background save failed", "err", err)
	y.metrics.incSaveFailures()
	if y.onError != nil {
		y.onError(err)
	}
}

// begin registers one unit of background persistence work.
func (y *SyncedStore[T]) begin() {
	y.drainMu.Lock()
	y.inflight++
	y.drainMu.Unlock()
}

// done retires one unit and wakes drain waiters when the last one
// finishes.
func (y *SyncedStore[T]) done() {
	y.drainMu.Lock()
	y.inflight--
	if y.inflight == 0 && y.idle != nil {
		close(y.idle)
		y.idle = nil
	}
	y.drainMu.Unlock()
}

// drained returns a channel closed once in-flight background work hits
// zero. Work scheduled concurrently joins the same wait; a WaitGroup
// cannot be reused like this (Add racing Wait panics), hence the
// counter.
func (y *SyncedStore[T]) drained() <-chan struct{} {
	y.drainMu.Lock()
	defer y.drainMu.Unlock()
	if y.inflight == 0 {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	if y.idle == nil {
		y.idle = make(chan struct{})
	}
	return y.idle
}

// Flush blocks until background persistence work has drained, or ctx
// is done.
func (y *SyncedStore[T]) Flush(ctx context.Context) error {
	select {
	case <-y.drained():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close detaches from the store, unbinds every tracked item, and drains
// in-flight saves so the last write is not lost. Idempotent.
func (y *SyncedStore[T]) Close() error {
	if !y.closed.CompareAndSwap(false, true) {
		return nil
	}

	y.unsubscribe()
	y.tracked.Range(func(item T, remove func()) bool {
		remove()
		y.tracked.Delete(item)
		return true
	})
	<-y.drained()

	if c, ok := y.strategy.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
