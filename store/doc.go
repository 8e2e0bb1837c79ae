/*
Package store implements the thread-safe ordered collection at the heart
of syncstore.

A Store[T] owns an ordered slice of items, deduplicates through an
identity.Comparer, and notifies subscribed listeners after every
committed mutation. Duplicates are rejected loudly: Add returns a typed
error rather than silently skipping, and AddRange is all-or-nothing.

Locking is deliberately narrow. The mutation lock covers only the
in-memory change; snapshots copy out under the lock, and change events
fire after it is released. The persistence decorator in the root package
builds on these guarantees to keep saves off the mutation's critical
path.
*/
package store
