/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package syncstore_test

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suparena/syncstore"
	"github.com/suparena/syncstore/errors"
	"github.com/suparena/syncstore/identity"
	"github.com/suparena/syncstore/persist/mock"
	"github.com/suparena/syncstore/storagemodels"
	"github.com/suparena/syncstore/store"
)

func newOrderStore() *store.Store[*storagemodels.Order] {
	return store.New[*storagemodels.Order](identity.Identity[*storagemodels.Order]())
}

func newSynced(t *testing.T, m *mock.Strategy[*storagemodels.Order], opts ...syncstore.SyncedOption[*storagemodels.Order]) *syncstore.SyncedStore[*storagemodels.Order] {
	t.Helper()
	y := syncstore.NewSyncedStore(newOrderStore(), m, opts...)
	t.Cleanup(func() { _ = y.Close() })
	return y
}

func TestInitializeLoadsOnce(t *testing.T) {
	m := mock.New[*storagemodels.Order]().WithItems(
		&storagemodels.Order{ID: 1, Number: "A-1"},
		&storagemodels.Order{ID: 2, Number: "A-2"},
	)
	y := newSynced(t, m)

	require.Equal(t, syncstore.StateUninitialized, y.State())
	require.NoError(t, y.Initialize(context.Background()))

	assert.Equal(t, syncstore.StateReady, y.State())
	assert.Equal(t, 2, y.Len())
	assert.Equal(t, 1, m.LoadCalls())

	// Re-entry after Ready is a no-op.
	require.NoError(t, y.Initialize(context.Background()))
	assert.Equal(t, 1, m.LoadCalls())
}

func TestInitializeConcurrent(t *testing.T) {
	m := mock.New[*storagemodels.Order]().WithItems(&storagemodels.Order{ID: 1})
	y := newSynced(t, m)

	const n = 16
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = y.Initialize(context.Background())
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, 1, m.LoadCalls(), "N concurrent initializations must load exactly once")
	assert.Equal(t, syncstore.StateReady, y.State())
}

func TestInitializeDoesNotEchoSaves(t *testing.T) {
	m := mock.New[*storagemodels.Order]().WithItems(&storagemodels.Order{ID: 1})
	y := newSynced(t, m)

	require.NoError(t, y.Initialize(context.Background()))
	require.NoError(t, y.Flush(context.Background()))

	assert.Equal(t, 0, m.SaveCalls(), "loading must not bounce items back into the backend")
}

func TestInitializeFailureIsRetryable(t *testing.T) {
	boom := stderrors.New("backend down")
	m := mock.New[*storagemodels.Order]().WithLoadError(boom)
	y := newSynced(t, m)

	err := y.Initialize(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Equal(t, syncstore.StateUninitialized, y.State())

	m.WithLoadError(nil)
	require.NoError(t, y.Initialize(context.Background()))
	assert.Equal(t, syncstore.StateReady, y.State())
}

func TestAutoSaveReachesLatestSnapshot(t *testing.T) {
	m := mock.New[*storagemodels.Order]()
	y := newSynced(t, m)
	require.NoError(t, y.Initialize(context.Background()))

	const k = 20
	for i := 0; i < k; i++ {
		require.NoError(t, y.Add(&storagemodels.Order{ID: int64(i + 1), Number: fmt.Sprintf("A-%d", i+1)}))
	}
	require.NoError(t, y.Flush(context.Background()))

	// After quiescing, the backend equals one SaveAll of the latest
	// snapshot; coalescing may have skipped intermediate states.
	assert.Equal(t, y.Snapshot(), m.Items())
	assert.LessOrEqual(t, m.SaveCalls(), k)
	assert.GreaterOrEqual(t, m.SaveCalls(), 1)
}

func TestMutationNeverSeesSaveFailure(t *testing.T) {
	boom := stderrors.New("disk full")

	var mu sync.Mutex
	var hooked []error
	m := mock.New[*storagemodels.Order]().WithSaveError(boom)
	y := newSynced(t, m,
		syncstore.WithSaveErrorHook[*storagemodels.Order](func(err error) {
			mu.Lock()
			hooked = append(hooked, err)
			mu.Unlock()
		}),
	)
	require.NoError(t, y.Initialize(context.Background()))

	// The add succeeds even though persistence is failing.
	require.NoError(t, y.Add(&storagemodels.Order{ID: 1}))
	require.NoError(t, y.Flush(context.Background()))

	assert.Equal(t, 1, y.Len(), "the in-memory store stays authoritative")

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, hooked, "swallowed failures must reach the hook")
	assert.ErrorIs(t, hooked[0], boom)
}

func TestFieldEditTriggersSingleUpdate(t *testing.T) {
	m := mock.New[*storagemodels.Order]()
	y := newSynced(t, m)
	require.NoError(t, y.Initialize(context.Background()))

	o := storagemodels.NewOrder("A-1", 10)
	o.SetEntityID(1)
	require.NoError(t, y.Add(o))
	require.NoError(t, y.Flush(context.Background()))
	savesBefore := m.SaveCalls()

	o.SetStatus("shipped")
	require.NoError(t, y.Flush(context.Background()))

	updated := m.Updated()
	require.Len(t, updated, 1)
	assert.Same(t, o, updated[0])
	assert.Equal(t, savesBefore, m.SaveCalls(), "a field edit must not trigger a full save")
}

func TestTrackingBindsOnLoad(t *testing.T) {
	o := storagemodels.NewOrder("A-1", 10)
	o.SetEntityID(1)
	m := mock.New[*storagemodels.Order]().WithItems(o)
	y := newSynced(t, m)
	require.NoError(t, y.Initialize(context.Background()))

	o.SetStatus("paid")
	require.NoError(t, y.Flush(context.Background()))

	assert.Len(t, m.Updated(), 1, "loaded items must be tracked like added ones")
}

func TestRemoveUnbindsTracking(t *testing.T) {
	m := mock.New[*storagemodels.Order]()
	y := newSynced(t, m)
	require.NoError(t, y.Initialize(context.Background()))

	o := storagemodels.NewOrder("A-1", 10)
	o.SetEntityID(1)
	require.NoError(t, y.Add(o))
	require.True(t, y.Remove(o))
	require.NoError(t, y.Flush(context.Background()))

	o.SetStatus("edited after removal")
	require.NoError(t, y.Flush(context.Background()))

	assert.Empty(t, m.Updated(), "removed items must stop triggering updates")
}

func TestClearUnbindsTracking(t *testing.T) {
	m := mock.New[*storagemodels.Order]()
	y := newSynced(t, m)
	require.NoError(t, y.Initialize(context.Background()))

	o := storagemodels.NewOrder("A-1", 10)
	o.SetEntityID(1)
	require.NoError(t, y.Add(o))
	y.Clear()
	require.NoError(t, y.Flush(context.Background()))

	o.SetStatus("edited after clear")
	require.NoError(t, y.Flush(context.Background()))

	assert.Empty(t, m.Updated())
}

func TestReAddKeepsSingleSubscription(t *testing.T) {
	m := mock.New[*storagemodels.Order]()
	y := newSynced(t, m)
	require.NoError(t, y.Initialize(context.Background()))

	o := storagemodels.NewOrder("A-1", 10)
	o.SetEntityID(1)
	require.NoError(t, y.Add(o))
	require.True(t, y.Remove(o))
	require.NoError(t, y.Add(o))
	require.NoError(t, y.Flush(context.Background()))

	o.SetStatus("edited")
	require.NoError(t, y.Flush(context.Background()))

	assert.Len(t, m.Updated(), 1, "re-adding an instance must keep exactly one active subscription")
}

func TestFlushDuringConcurrentWrites(t *testing.T) {
	m := mock.New[*storagemodels.Order]()
	y := newSynced(t, m)
	require.NoError(t, y.Initialize(context.Background()))

	const writes = 500
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 1; i <= writes; i++ {
			_ = y.Add(&storagemodels.Order{ID: int64(i)})
		}
	}()

	// Flushing while a writer keeps scheduling saves must never panic
	// or error; each wait simply joins whatever work is in flight.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for i := 0; i < 100; i++ {
		require.NoError(t, y.Flush(ctx))
	}
	wg.Wait()

	require.NoError(t, y.Flush(ctx))
	assert.Equal(t, y.Snapshot(), m.Items())
	assert.Equal(t, writes, y.Len())
}

func TestDuplicateAddPropagates(t *testing.T) {
	m := mock.New[*storagemodels.Order]()
	y := newSynced(t, m)
	require.NoError(t, y.Initialize(context.Background()))

	require.NoError(t, y.Add(&storagemodels.Order{ID: 1}))
	err := y.Add(&storagemodels.Order{ID: 1})
	assert.True(t, errors.IsDuplicateItem(err))
}

func TestCloseDrainsAndDetaches(t *testing.T) {
	m := mock.New[*storagemodels.Order]()
	y := syncstore.NewSyncedStore(newOrderStore(), m)
	require.NoError(t, y.Initialize(context.Background()))

	o := storagemodels.NewOrder("A-1", 10)
	o.SetEntityID(1)
	require.NoError(t, y.Add(o))

	require.NoError(t, y.Close())
	require.NoError(t, y.Close(), "Close must be idempotent")

	// The pending save was drained, not dropped.
	assert.Equal(t, y.Snapshot(), m.Items())

	savesAfterClose := m.SaveCalls()
	o.SetStatus("edited after close")
	require.NoError(t, y.Store().Add(&storagemodels.Order{ID: 2}))
	assert.Equal(t, savesAfterClose, m.SaveCalls(), "a closed synchronizer must not schedule work")
	assert.Empty(t, m.Updated())
}

func TestMetricsCountOutcomes(t *testing.T) {
	m := mock.New[*storagemodels.Order]()
	metrics := syncstore.NewMetrics("orders")
	y := newSynced(t, m, syncstore.WithMetrics[*storagemodels.Order](metrics))

	require.NoError(t, y.Initialize(context.Background()))
	require.NoError(t, y.Add(&storagemodels.Order{ID: 1}))
	require.NoError(t, y.Flush(context.Background()))

	assert.Equal(t, float64(1), counterValue(t, metrics.Loads))
	assert.GreaterOrEqual(t, counterValue(t, metrics.Saves), float64(1))
	assert.Equal(t, float64(0), counterValue(t, metrics.SaveFailures))
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}
