package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/kol-dashboard/reconcile"
	"github.com/warp/kol-dashboard/store/memory"
)

func TestMemory_Snapshots(t *testing.T) {
	m := memory.New()
	ctx := context.Background()
	mar := reconcile.NewDate(2025, time.March, 31)
	base := time.Date(2025, time.May, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, m.SaveSnapshot(ctx, reconcile.Snapshot{ID: "a", Fingerprint: "fp1", AsOf: mar, CreatedAt: base}))
	require.NoError(t, m.SaveSnapshot(ctx, reconcile.Snapshot{ID: "b", Fingerprint: "fp1", AsOf: mar, CreatedAt: base.Add(time.Second)}))
	require.NoError(t, m.SaveSnapshot(ctx, reconcile.Snapshot{ID: "c", Fingerprint: "fp2", AsOf: mar, CreatedAt: base.Add(2 * time.Second)}))

	got, err := m.GetSnapshot(ctx, "fp1", mar)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "b", got.ID, "same inputs replace")

	infos, err := m.ListSnapshots(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "c", infos[0].ID)

	n, err := m.PurgeExcept(ctx, "fp2")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err = m.GetSnapshot(ctx, "fp1", mar)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemory_LoadsNewestFirst(t *testing.T) {
	m := memory.New()
	ctx := context.Background()
	for _, id := range []string{"1", "2", "3"} {
		require.NoError(t, m.RecordLoad(ctx, reconcile.LoadRun{ID: id}))
	}

	runs, err := m.ListLoads(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "3", runs[0].ID)
	assert.Equal(t, "2", runs[1].ID)

	m.Reset()
	runs, err = m.ListLoads(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, runs)
}
