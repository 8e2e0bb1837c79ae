/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package identity

// Identified is implemented by entities that carry a mutable numeric
// identity assigned by a persistence backend. An id of zero marks the
// entity as transient: it exists in memory but has never been persisted.
type Identified interface {
	EntityID() int64
	SetEntityID(id int64)
}

// Comparer decides equality of two values and derives a comparable
// membership key consistent with that equality. Two values for which
// Equal returns true must produce keys that compare equal, so the key
// can be used in hash-set membership checks (Go map semantics stand in
// for the usual hashCode/equals contract).
type Comparer[T any] interface {
	Equal(a, b T) bool
	Key(v T) any
}

// persistedKey is the membership key for entities with an assigned id.
// It is a distinct struct type so it can never collide with a transient
// entity used directly as its own key.
type persistedKey struct {
	id int64
}

type identityComparer[T interface {
	Identified
	comparable
}] struct{}

// Identity returns the comparer for identified entities.
//
// The rules are two-tiered: the same instance is always equal to itself;
// two distinct instances are equal only when both carry a persisted id
// (id > 0) and the ids match. Two distinct transient instances (id == 0)
// are never equal, regardless of their field values.
func Identity[T interface {
	Identified
	comparable
}]() Comparer[T] {
	return identityComparer[T]{}
}

func (identityComparer[T]) Equal(a, b T) bool {
	if a == b {
		return true
	}
	aid, bid := a.EntityID(), b.EntityID()
	return aid > 0 && bid > 0 && aid == bid
}

func (identityComparer[T]) Key(v T) any {
	if id := v.EntityID(); id > 0 {
		return persistedKey{id: id}
	}
	// Transient entities key by instance.
	return v
}

type defaultComparer[T comparable] struct{}

// Default returns a structural comparer for plain comparable types.
// Values are their own keys; there is no special-casing.
func Default[T comparable]() Comparer[T] {
	return defaultComparer[T]{}
}

func (defaultComparer[T]) Equal(a, b T) bool {
	return a == b
}

func (defaultComparer[T]) Key(v T) any {
	return v
}

type funcComparer[T any] struct {
	equal func(a, b T) bool
	key   func(v T) any
}

// NewFunc builds a comparer from an equality function and a key
// extractor. The caller is responsible for keeping the two consistent:
// equal values must yield equal keys.
func NewFunc[T any](equal func(a, b T) bool, key func(v T) any) Comparer[T] {
	return &funcComparer[T]{equal: equal, key: key}
}

func (c *funcComparer[T]) Equal(a, b T) bool {
	return c.equal(a, b)
}

func (c *funcComparer[T]) Key(v T) any {
	return c.key(v)
}
