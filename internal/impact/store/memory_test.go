package store

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/donare/internal/clock"
	"github.com/smallbiznis/donare/internal/impact/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRejectsStaleSave(t *testing.T) {
	ctx := context.Background()
	store := NewMemory(clock.NewFakeClock(time.Now()), time.Minute)

	version, err := store.Version(ctx)
	require.NoError(t, err)
	stale := &domain.Snapshot{Version: version}

	require.NoError(t, store.Invalidate(ctx))

	saved, err := store.Save(ctx, stale)
	require.NoError(t, err)
	assert.False(t, saved)
	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, loaded)

	current, err := store.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, version+1, current)

	fresh := &domain.Snapshot{Version: current}
	saved, err = store.Save(ctx, fresh)
	require.NoError(t, err)
	assert.True(t, saved)
	loaded, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Same(t, fresh, loaded)
}

func TestMemoryInvalidateDropsSnapshot(t *testing.T) {
	ctx := context.Background()
	store := NewMemory(clock.NewFakeClock(time.Now()), time.Minute)

	saved, err := store.Save(ctx, &domain.Snapshot{})
	require.NoError(t, err)
	require.True(t, saved)

	require.NoError(t, store.Invalidate(ctx))
	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestMemorySnapshotExpires(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewFakeClock(time.Now())
	store := NewMemory(clk, time.Minute)

	_, err := store.Save(ctx, &domain.Snapshot{})
	require.NoError(t, err)

	clk.Advance(2 * time.Minute)
	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, loaded)
}
