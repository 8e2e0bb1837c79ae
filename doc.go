/*
Package syncstore provides a concurrent, type-indexed in-memory data
store that keeps itself synchronized with a pluggable durable backend.

The moving parts:
  - store.Store[T]: a thread-safe ordered collection with change events
    and identity-aware deduplication.
  - identity.Comparer[T]: the equality rules that make deduplication and
    delta synchronization correct; persisted entities compare by id,
    transient entities by instance.
  - SyncedStore[T]: a decorator that auto-loads the store from a
    persistence strategy and auto-saves after every mutation, off the
    caller's critical path.
  - Registry: a type-keyed map giving each entity type exactly one
    store per registry instance.

Persistence strategies live under persist/: a bulk JSON-lines file
backend, a transactional delta backend over an embedded pebble database
and a transactional delta backend over DynamoDB.

Basic Usage:

	reg := syncstore.NewRegistry()

	strategy, _ := pebbledb.Open[*Order](dataDir, "orders")
	orders := syncstore.NewSyncedStore(
	    store.New[*Order](identity.Identity[*Order]()),
	    strategy,
	)
	_ = syncstore.RegisterSynced(reg, orders)

	_ = orders.Initialize(ctx)
	_ = orders.Add(&Order{Number: "A-1001"}) // persisted in the background

	resolved, _ := syncstore.SyncedFor[*Order](reg)
	fmt.Println(resolved.Len())

Save failures never surface to the mutating caller; observe them via
the logger, Metrics, or the save error hook.
*/
package syncstore
