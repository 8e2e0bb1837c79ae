/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package pebbledb

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suparena/syncstore/errors"
)

type ticket struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

func (t *ticket) EntityID() int64      { return t.ID }
func (t *ticket) SetEntityID(id int64) { t.ID = id }

func openTestStrategy(t *testing.T) *Strategy[*ticket] {
	t.Helper()
	s, err := Open[*ticket](t.TempDir(), "tickets")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSaveAllAssignsIDs(t *testing.T) {
	s := openTestStrategy(t)
	ctx := context.Background()

	a := &ticket{Title: "first"}
	b := &ticket{Title: "second"}
	require.NoError(t, s.SaveAll(ctx, []*ticket{a, b}))

	assert.Greater(t, a.ID, int64(0), "backend-assigned id must be written back")
	assert.Greater(t, b.ID, int64(0))
	assert.NotEqual(t, a.ID, b.ID)

	stored, err := s.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 2)
}

func TestSaveAllAppliesDelta(t *testing.T) {
	s := openTestStrategy(t)
	ctx := context.Background()

	a := &ticket{Title: "keep"}
	b := &ticket{Title: "drop"}
	require.NoError(t, s.SaveAll(ctx, []*ticket{a, b}))

	// Second cycle: b is gone, c is new.
	c := &ticket{Title: "new"}
	require.NoError(t, s.SaveAll(ctx, []*ticket{a, c}))

	stored, err := s.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 2)

	ids := map[int64]string{}
	for _, it := range stored {
		ids[it.ID] = it.Title
	}
	assert.Equal(t, "keep", ids[a.ID])
	assert.Equal(t, "new", ids[c.ID])
	_, gone := ids[b.ID]
	assert.False(t, gone)
}

func TestSaveAllIdempotent(t *testing.T) {
	s := openTestStrategy(t)
	ctx := context.Background()

	a := &ticket{Title: "only"}
	require.NoError(t, s.SaveAll(ctx, []*ticket{a}))
	id := a.ID

	require.NoError(t, s.SaveAll(ctx, []*ticket{a}))
	assert.Equal(t, id, a.ID, "saving an unchanged snapshot must not reassign ids")

	stored, err := s.LoadAll(ctx)
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestIDsNeverReused(t *testing.T) {
	s := openTestStrategy(t)
	ctx := context.Background()

	a := &ticket{Title: "a"}
	require.NoError(t, s.SaveAll(ctx, []*ticket{a}))
	firstID := a.ID

	// Delete everything, then insert a fresh item: the counter must not
	// hand out firstID again.
	require.NoError(t, s.SaveAll(ctx, nil))
	b := &ticket{Title: "b"}
	require.NoError(t, s.SaveAll(ctx, []*ticket{b}))

	assert.Greater(t, b.ID, firstID)
}

func TestUpdateSingle(t *testing.T) {
	s := openTestStrategy(t)
	ctx := context.Background()

	a := &ticket{Title: "before"}
	require.NoError(t, s.SaveAll(ctx, []*ticket{a}))

	a.Title = "after"
	require.NoError(t, s.UpdateSingle(ctx, a))

	stored, err := s.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "after", stored[0].Title)
}

func TestUpdateSingleTransientIsNoop(t *testing.T) {
	s := openTestStrategy(t)
	ctx := context.Background()

	require.NoError(t, s.UpdateSingle(ctx, &ticket{Title: "unsaved"}))

	stored, err := s.LoadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestLoadAllStrictOnCorruption(t *testing.T) {
	s := openTestStrategy(t)
	ctx := context.Background()

	require.NoError(t, s.db.Set(s.itemKey(1), []byte("not json"), &writeOptions))

	_, err := s.LoadAll(ctx)
	require.Error(t, err)
	assert.True(t, errors.IsLoadFailed(err))
}

func TestCollectionsAreIsolated(t *testing.T) {
	dir := t.TempDir()
	a, err := Open[*ticket](dir, "alpha")
	require.NoError(t, err)
	defer func() { _ = a.Close() }()

	b := NewWithDB[*ticket](a.DB(), "beta")
	ctx := context.Background()

	require.NoError(t, a.SaveAll(ctx, []*ticket{{Title: "in alpha"}}))

	stored, err := b.LoadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, stored, "collections sharing a db must not see each other's items")
}

func TestCollector(t *testing.T) {
	s := openTestStrategy(t)
	require.NoError(t, s.SaveAll(context.Background(), []*ticket{{Title: "x"}}))

	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(NewCollector(s.DB())))

	metrics, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, metrics)

	names := map[string]bool{}
	for _, mf := range metrics {
		names[mf.GetName()] = true
	}
	assert.True(t, names["pebble_disk_usage_bytes"])
	assert.True(t, names["pebble_wal_size_bytes"])
}
