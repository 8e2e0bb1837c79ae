/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package jsonfile implements the bulk/atomic persistence strategy over
// a JSON-lines file. Every save fully rewrites the file; a single-item
// update re-invokes the full rewrite through the items provider. That
// is O(n) per field edit, which is the accepted trade-off for a flat
// artifact that is trivial to inspect and back up.
//
// Load policy is lenient: a missing file means "no data yet" and loads
// as an empty result.
package jsonfile

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/suparena/syncstore/errors"
	"github.com/suparena/syncstore/logging"
)

const backendName = "jsonfile"

// Strategy persists items of type T to a single JSONL file.
type Strategy[T any] struct {
	path string
	log  logging.Logger

	mu       sync.Mutex
	provider func() []T
}

// Option configures a Strategy.
type Option[T any] func(*Strategy[T])

// WithLogger sets the diagnostic logger.
func WithLogger[T any](log logging.Logger) Option[T] {
	return func(s *Strategy[T]) { s.log = log }
}

// New creates a strategy writing to path, creating missing parent
// directories.
func New[T any](path string, opts ...Option[T]) (*Strategy[T], error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	s := &Strategy[T]{
		path: path,
		log:  logging.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Path returns the backing file path.
func (s *Strategy[T]) Path() string {
	return s.path
}

// SetItemsProvider installs the live snapshot source used by
// UpdateSingle to rewrite the whole file.
func (s *Strategy[T]) SetItemsProvider(fn func() []T) {
	s.mu.Lock()
	s.provider = fn
	s.mu.Unlock()
}

// LoadAll reads every line of the file. A missing file loads as empty.
func (s *Strategy[T]) LoadAll(ctx context.Context) ([]T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.NewLoadError(backendName, err)
	}
	defer func() {
		_ = f.Close()
	}()

	var items []T
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, errors.NewLoadError(backendName, err)
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var item T
		if err := json.Unmarshal(line, &item); err != nil {
			return nil, errors.NewLoadError(backendName, fmt.Errorf("bad row in %s: %w", s.path, err))
		}
		items = append(items, item)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.NewLoadError(backendName, err)
	}
	return items, nil
}

// SaveAll rewrites the entire file from items.
func (s *Strategy[T]) SaveAll(ctx context.Context, items []T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rewrite(ctx, items)
}

// UpdateSingle rewrites the file from the current items provider. The
// item argument is only validated; the provider supplies the full
// content so the rewrite can never lose sibling records.
func (s *Strategy[T]) UpdateSingle(ctx context.Context, item T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.provider == nil {
		return errors.NewSaveError(backendName, fmt.Errorf("no items provider configured"))
	}
	return s.rewrite(ctx, s.provider())
}

// rewrite must be called with the strategy lock held.
func (s *Strategy[T]) rewrite(ctx context.Context, items []T) error {
	if err := ctx.Err(); err != nil {
		return errors.NewSaveError(backendName, err)
	}

	f, err := os.Create(s.path)
	if err != nil {
		return errors.NewSaveError(backendName, err)
	}
	defer func() {
		_ = f.Close()
	}()

	writer := bufio.NewWriter(f)
	for _, item := range items {
		data, err := json.Marshal(item)
		if err != nil {
			return errors.NewSaveError(backendName, fmt.Errorf("failed to marshal item: %w", err))
		}
		if _, err := writer.Write(data); err != nil {
			return errors.NewSaveError(backendName, err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			return errors.NewSaveError(backendName, err)
		}
	}
	if err := writer.Flush(); err != nil {
		return errors.NewSaveError(backendName, err)
	}

	s.log.Debug("rewrote file", "path", s.path, "items", len(items))
	return nil
}
