// Package memory provides an in-memory reconcile.Store.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/kol-dashboard/reconcile"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu        sync.RWMutex
	snapshots map[key]reconcile.Snapshot
	loads     []reconcile.LoadRun
}

type key struct {
	Fingerprint string
	AsOf        string
}

func keyOf(fingerprint string, asOf reconcile.Date) key {
	return key{Fingerprint: fingerprint, AsOf: asOf.String()}
}

func New() *Memory {
	return &Memory{snapshots: make(map[key]reconcile.Snapshot)}
}

// SaveSnapshot stores s, replacing any snapshot for the same inputs.
func (m *Memory) SaveSnapshot(_ context.Context, s reconcile.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[keyOf(s.Fingerprint, s.AsOf)] = s
	return nil
}

func (m *Memory) GetSnapshot(_ context.Context, fingerprint string, asOf reconcile.Date) (*reconcile.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.snapshots[keyOf(fingerprint, asOf)]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *Memory) ListSnapshots(_ context.Context) ([]reconcile.SnapshotInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]reconcile.SnapshotInfo, 0, len(m.snapshots))
	for _, s := range m.snapshots {
		out = append(out, s.Info())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Memory) PurgeExcept(_ context.Context, keep string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for k := range m.snapshots {
		if k.Fingerprint != keep {
			delete(m.snapshots, k)
			n++
		}
	}
	return n, nil
}

// RecordLoad appends a load run. Append-only.
func (m *Memory) RecordLoad(_ context.Context, run reconcile.LoadRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loads = append(m.loads, run)
	return nil
}

func (m *Memory) ListLoads(_ context.Context, limit int) ([]reconcile.LoadRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := len(m.loads)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]reconcile.LoadRun, 0, n)
	for i := len(m.loads) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, m.loads[i])
	}
	return out, nil
}

// Reset clears all data (for testing/demo).
func (m *Memory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots = make(map[key]reconcile.Snapshot)
	m.loads = nil
}

// Close is a no-op so Memory can stand in for the SQLite store.
func (m *Memory) Close() error { return nil }

var _ reconcile.Store = (*Memory)(nil)
