/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package persist

import "context"

// Strategy is the contract a durable backend implements to keep a store
// synchronized.
//
// Load policies differ by backend and each implementation documents its
// own: a file backend may legitimately treat a missing file as "no data
// yet" and return an empty result, while a transactional backend must
// propagate failures because silent emptiness would mask corruption.
type Strategy[T any] interface {
	// LoadAll returns every persisted item in backend order.
	LoadAll(ctx context.Context) ([]T, error)

	// SaveAll makes the backend state equal to items. It is idempotent:
	// saving the same snapshot twice leaves the backend unchanged.
	SaveAll(ctx context.Context, items []T) error

	// UpdateSingle persists one already-stored item efficiently. It is
	// defined only for persisted items; implementations either no-op or
	// fall back to a full save for transient ones.
	UpdateSingle(ctx context.Context, item T) error

	// SetItemsProvider hands the strategy a live view of current items,
	// for implementations that need a full snapshot to rewrite from.
	SetItemsProvider(fn func() []T)
}
