/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package mock

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockStrategyRoundTrip(t *testing.T) {
	m := New[string]().WithItems("a", "b")
	ctx := context.Background()

	items, err := m.LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, items)
	assert.Equal(t, 1, m.LoadCalls())

	require.NoError(t, m.SaveAll(ctx, []string{"c"}))
	assert.Equal(t, []string{"c"}, m.Items())
	assert.Equal(t, []string{"c"}, m.LastSaved())
	assert.Equal(t, 1, m.SaveCalls())
}

func TestMockStrategyErrors(t *testing.T) {
	boom := errors.New("boom")
	m := New[string]().WithItems("a").WithLoadError(boom).WithSaveError(boom)
	ctx := context.Background()

	_, err := m.LoadAll(ctx)
	assert.ErrorIs(t, err, boom)

	err = m.SaveAll(ctx, []string{"x"})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"a"}, m.Items(), "failed save must not mutate backend content")
}

func TestMockStrategySaveHook(t *testing.T) {
	var got []string
	m := New[string]().WithSaveHook(func(items []string) { got = items })

	require.NoError(t, m.SaveAll(context.Background(), []string{"x", "y"}))
	assert.Equal(t, []string{"x", "y"}, got)
}

func TestMockStrategyUpdates(t *testing.T) {
	m := New[string]()
	ctx := context.Background()

	require.NoError(t, m.UpdateSingle(ctx, "u1"))
	require.NoError(t, m.UpdateSingle(ctx, "u2"))

	assert.Equal(t, []string{"u1", "u2"}, m.Updated())
	assert.Equal(t, 2, m.UpdateCalls())
}
