package repository

import (
	"context"
	"sync"

	"container-health/internal/domain"
)

// MemoryStore keeps snapshots in process memory. It satisfies
// domain.SnapshotStore for deployments without a writable disk.
type MemoryStore struct {
	mu        sync.RWMutex
	snapshots []domain.Snapshot
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init() error { return nil }

func (s *MemoryStore) StoreSnapshot(ctx context.Context, snap domain.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots = append(s.snapshots, snap)
	return nil
}

func (s *MemoryStore) GetSnapshots(ctx context.Context, startTime, endTime int64, limit, offset int) ([]domain.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var filtered []domain.Snapshot
	for _, snap := range s.snapshots {
		if snap.Timestamp >= startTime && snap.Timestamp <= endTime {
			filtered = append(filtered, snap)
		}
	}

	if offset < 0 {
		offset = 0
	}
	if offset >= len(filtered) {
		return nil, nil
	}
	filtered = filtered[offset:]
	if limit > 0 && limit < len(filtered) {
		filtered = filtered[:limit]
	}
	return filtered, nil
}

func (s *MemoryStore) Close() error { return nil }
