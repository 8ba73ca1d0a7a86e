package store

import (
	"context"
	"sync"
	"time"

	"github.com/smallbiznis/donare/internal/cache"
	"github.com/smallbiznis/donare/internal/clock"
	"github.com/smallbiznis/donare/internal/impact/domain"
)

const snapshotKey = "impact:snapshot"

// Memory is the single-process store. Invalidation is only visible to this
// process.
type Memory struct {
	mu      sync.Mutex
	version int64
	ttl     time.Duration
	cache   cache.Cache[string, *domain.Snapshot]
}

func NewMemory(clk clock.Clock, ttl time.Duration) *Memory {
	return &Memory{
		ttl:   ttl,
		cache: cache.NewTTLCacheWithClock[string, *domain.Snapshot](clk),
	}
}

func (m *Memory) Version(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.version, nil
}

func (m *Memory) Load(context.Context) (*domain.Snapshot, error) {
	snapshot, ok := m.cache.Get(snapshotKey)
	if !ok {
		return nil, nil
	}
	return snapshot, nil
}

func (m *Memory) Save(_ context.Context, snapshot *domain.Snapshot) (bool, error) {
	if snapshot == nil {
		return false, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if snapshot.Version != m.version {
		return false, nil
	}
	m.cache.Set(snapshotKey, snapshot, m.ttl)
	return true, nil
}

func (m *Memory) Invalidate(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.version++
	m.cache.Delete(snapshotKey)
	return nil
}
