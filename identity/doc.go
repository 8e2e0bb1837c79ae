/*
Package identity defines how the syncstore library decides whether two
entities are the same logical record.

The central abstraction is Comparer[T]:

	type Comparer[T any] interface {
	    Equal(a, b T) bool
	    Key(v T) any
	}

Key returns a comparable value consistent with Equal, which lets callers
build O(1) membership sets out of plain Go maps.

Identified entities (those carrying a backend-assigned numeric id) use a
two-tier rule: once persisted (id > 0) they are compared by id alone,
ignoring every other field; while transient (id == 0) they are equal only
to themselves. This is what makes delta synchronization correct: a record
edited in memory still diffs as "present" on both sides, while two fresh
unsaved records with identical fields remain distinct inserts.
*/
package identity
