/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package syncstore

import (
	"sync"
)

// Observable is implemented by entities that broadcast field-level
// edits. A synchronized store attaches one listener per instance and
// turns each notification into a single-item backend update instead of
// a full save.
type Observable interface {
	// Observe registers a callback invoked after every field change and
	// returns its removal func.
	Observe(fn func()) (remove func())
}

// ChangeBroadcaster is an embeddable observer registry that satisfies
// Observable. Entity types embed it and call NotifyChanged from their
// setters:
//
//	type Order struct {
//	    syncstore.ChangeBroadcaster `json:"-"`
//	    ID     int64  `json:"id"`
//	    Status string `json:"status"`
//	}
//
//	func (o *Order) SetStatus(s string) {
//	    o.Status = s
//	    o.NotifyChanged()
//	}
//
// The zero value is ready to use. Removal funcs are idempotent.
type ChangeBroadcaster struct {
	mu        sync.Mutex
	observers map[int]func()
	nextID    int
}

// Observe registers fn and returns its removal func.
func (b *ChangeBroadcaster) Observe(fn func()) (remove func()) {
	b.mu.Lock()
	if b.observers == nil {
		b.observers = make(map[int]func())
	}
	id := b.nextID
	b.nextID++
	b.observers[id] = fn
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.observers, id)
		b.mu.Unlock()
	}
}

// NotifyChanged invokes every registered observer. Observers run
// outside the broadcaster's lock, so one may detach itself.
func (b *ChangeBroadcaster) NotifyChanged() {
	b.mu.Lock()
	fns := make([]func(), 0, len(b.observers))
	for _, fn := range b.observers {
		fns = append(fns, fn)
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
