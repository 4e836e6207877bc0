// Package localcache persists the device's last known account snapshot.
package localcache

import (
	"context"
	"sync"

	"github.com/osse101/MinerSync_Go/internal/domain"
)

// Store keeps one CachedSnapshot per account.
type Store interface {
	// Load returns the snapshot for accountID; found is false when none is stored.
	// A snapshot that cannot be decoded returns domain.ErrCacheCorrupt.
	Load(ctx context.Context, accountID string) (snapshot domain.CachedSnapshot, found bool, err error)
	// Save replaces the snapshot for snapshot.AccountID.
	Save(ctx context.Context, snapshot domain.CachedSnapshot) error
	// Clear removes the snapshot for accountID.
	Clear(ctx context.Context, accountID string) error
}

// Memory is a process-local Store.
type Memory struct {
	mu        sync.Mutex
	snapshots map[string]domain.CachedSnapshot
	saves     int
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{snapshots: make(map[string]domain.CachedSnapshot)}
}

func (m *Memory) Load(ctx context.Context, accountID string) (domain.CachedSnapshot, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.CachedSnapshot{}, false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	snapshot, ok := m.snapshots[accountID]
	if ok {
		snapshot.Boosts = append([]domain.BoostEntry(nil), snapshot.Boosts...)
	}
	return snapshot, ok, nil
}

func (m *Memory) Save(ctx context.Context, snapshot domain.CachedSnapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	snapshot.Boosts = append([]domain.BoostEntry(nil), snapshot.Boosts...)
	m.snapshots[snapshot.AccountID] = snapshot
	m.saves++
	return nil
}

func (m *Memory) Clear(ctx context.Context, accountID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.snapshots, accountID)
	return nil
}

// Saves returns how many snapshots have been written.
func (m *Memory) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}
