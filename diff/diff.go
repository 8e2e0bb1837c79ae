/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package diff

import (
	"github.com/suparena/syncstore/identity"
)

// Diff is the insert/delete set between two snapshots. It carries no
// update set: field-level updates travel through per-item change
// notifications, not structural diffing. A Diff is immutable once
// produced.
type Diff[T any] struct {
	ToInsert []T
	ToDelete []T
}

// Empty reports whether applying the diff would change nothing.
func (d Diff[T]) Empty() bool {
	return len(d.ToInsert) == 0 && len(d.ToDelete) == 0
}

// Compute returns the diff between an authoritative source snapshot and
// a previously stored target snapshot:
//
//	ToInsert = source items absent from target (per the comparer)
//	ToDelete = target items absent from source (per the comparer)
//
// Membership runs over comparer-keyed hash sets, O(n+m). Both snapshots
// must be internally consistent copies taken without interleaved
// mutation; Store.Snapshot provides exactly that.
func Compute[T any](source, target []T, comparer identity.Comparer[T]) Diff[T] {
	targetKeys := make(map[any]struct{}, len(target))
	for _, it := range target {
		targetKeys[comparer.Key(it)] = struct{}{}
	}
	sourceKeys := make(map[any]struct{}, len(source))
	for _, it := range source {
		sourceKeys[comparer.Key(it)] = struct{}{}
	}

	var d Diff[T]
	for _, it := range source {
		if _, ok := targetKeys[comparer.Key(it)]; !ok {
			d.ToInsert = append(d.ToInsert, it)
		}
	}
	for _, it := range target {
		if _, ok := sourceKeys[comparer.Key(it)]; !ok {
			d.ToDelete = append(d.ToDelete, it)
		}
	}
	return d
}

// ComputeIdentified diffs identified entities against backend state for
// delta synchronization. Transient source items (id == 0) always
// insert. Persisted source items insert only when their id is absent
// from the target, and target items delete only when their id is absent
// from the source. Field edits on items present in both snapshots are
// invisible here.
func ComputeIdentified[T identity.Identified](source, target []T) Diff[T] {
	targetIDs := make(map[int64]struct{}, len(target))
	for _, it := range target {
		targetIDs[it.EntityID()] = struct{}{}
	}
	sourceIDs := make(map[int64]struct{}, len(source))
	for _, it := range source {
		if id := it.EntityID(); id > 0 {
			sourceIDs[id] = struct{}{}
		}
	}

	var d Diff[T]
	for _, it := range source {
		id := it.EntityID()
		if id == 0 {
			d.ToInsert = append(d.ToInsert, it)
			continue
		}
		if _, ok := targetIDs[id]; !ok {
			d.ToInsert = append(d.ToInsert, it)
		}
	}
	for _, it := range target {
		if _, ok := sourceIDs[it.EntityID()]; !ok {
			d.ToDelete = append(d.ToDelete, it)
		}
	}
	return d
}
