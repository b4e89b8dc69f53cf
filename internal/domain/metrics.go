package domain

import "context"

// Reading is one raw observation taken from a MetricSource.
type Reading struct {
	CPUPercent    float64
	MemoryPercent float64
}

// MetricSource supplies CPU and memory percentages for the running container.
type MetricSource interface {
	Name() string
	Read(ctx context.Context) (Reading, error)
}

// Snapshot is one scored sample as persisted by a SnapshotStore.
type Snapshot struct {
	Timestamp     int64   `json:"timestamp"`
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	Score         int     `json:"score"`
	Level         string  `json:"level"`
	Source        string  `json:"source"`
}

type SnapshotStore interface {
	Init() error
	StoreSnapshot(ctx context.Context, snapshot Snapshot) error
	GetSnapshots(ctx context.Context, startTime, endTime int64, limit, offset int) ([]Snapshot, error)
	Close() error
}
