// Package monitor owns the per-metric history trackers and produces scored
// reports from fresh source readings.
package monitor

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"container-health/internal/domain"
	"container-health/internal/health"
	"container-health/internal/history"
	"container-health/internal/metrics"
	"container-health/internal/util"
)

// Usage is the aggregate view of both resource histories.
type Usage struct {
	CPU    history.Stats `json:"cpu"`
	Memory history.Stats `json:"memory"`
}

// Report is one sample together with its running statistics and score.
type Report struct {
	Timestamp     int64   `json:"timestamp"`
	Source        string  `json:"source"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	Usage
	health.Report
}

type Options struct {
	Source domain.MetricSource
	// Store is optional; snapshots are not persisted when nil.
	Store  domain.SnapshotStore
	Logger *util.ServiceLogger
	Policy health.Policy
	// HistoryCapacity bounds each tracker; 0 keeps every sample.
	HistoryCapacity int
	// Now defaults to time.Now.
	Now func() time.Time
}

type Monitor struct {
	source  domain.MetricSource
	store   domain.SnapshotStore
	logger  *util.ServiceLogger
	cpu     *history.Tracker
	memory  *history.Tracker
	policy  atomic.Pointer[health.Policy]
	latest  atomic.Pointer[Report]
	now     func() time.Time
	started time.Time
}

func New(opts Options) *Monitor {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = &util.ServiceLogger{}
	}

	m := &Monitor{
		source:  opts.Source,
		store:   opts.Store,
		logger:  opts.Logger,
		cpu:     history.NewBounded(opts.HistoryCapacity),
		memory:  history.NewBounded(opts.HistoryCapacity),
		now:     opts.Now,
		started: opts.Now(),
	}
	m.SetPolicy(opts.Policy)
	return m
}

// SetPolicy replaces the scoring policy for subsequent samples.
func (m *Monitor) SetPolicy(p health.Policy) {
	m.policy.Store(&p)
}

func (m *Monitor) Policy() health.Policy {
	return *m.policy.Load()
}

func (m *Monitor) SourceName() string {
	if m.source == nil {
		return ""
	}
	return m.source.Name()
}

// Uptime is the time elapsed since the monitor was created.
func (m *Monitor) Uptime() time.Duration {
	return m.now().Sub(m.started)
}

// SampleAndRecord feeds a reading into both trackers and returns their
// aggregates.
func (m *Monitor) SampleAndRecord(cpuPercent, memoryPercent float64) (Usage, error) {
	m.cpu.Record(cpuPercent)
	m.memory.Record(memoryPercent)

	cpuStats, err := m.cpu.Stats()
	if err != nil {
		return Usage{}, fmt.Errorf("cpu history: %w", err)
	}
	memStats, err := m.memory.Stats()
	if err != nil {
		return Usage{}, fmt.Errorf("memory history: %w", err)
	}
	return Usage{CPU: cpuStats, Memory: memStats}, nil
}

// ScoreReport scores the given values with the active policy.
func (m *Monitor) ScoreReport(cpuPercent, memoryPercent, uptimeSeconds float64) (health.Report, error) {
	return m.Policy().Evaluate(cpuPercent, memoryPercent, uptimeSeconds)
}

// Usage returns the current aggregates without sampling.
func (m *Monitor) Usage() (Usage, error) {
	cpuStats, err := m.cpu.Stats()
	if err != nil {
		return Usage{}, fmt.Errorf("cpu history: %w", err)
	}
	memStats, err := m.memory.Stats()
	if err != nil {
		return Usage{}, fmt.Errorf("memory history: %w", err)
	}
	return Usage{CPU: cpuStats, Memory: memStats}, nil
}

// Latest returns the most recent report produced by Sample.
func (m *Monitor) Latest() (Report, bool) {
	r := m.latest.Load()
	if r == nil {
		return Report{}, false
	}
	return *r, true
}

// Sample reads the source, scores the reading, records it in both
// histories and persists a snapshot. A failed source read is logged and
// counted as a zero reading. Readings are clamped to [0, 100] first, since
// load average and cgroup deltas can overshoot on a busy host; strict
// scoring therefore only rejects caller-supplied values.
func (m *Monitor) Sample(ctx context.Context) (Report, error) {
	name := m.SourceName()

	var reading domain.Reading
	if m.source != nil {
		var err error
		reading, err = m.source.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return Report{}, ctx.Err()
			}
			metrics.SourceErrorsTotal.WithLabelValues(name).Inc()
			m.logger.LogEvent(util.LOG_LEVEL_WARN, "source read failed, using zero values:", err)
			reading = domain.Reading{}
		}
	}
	cpuPct, memPct := normalize(reading.CPUPercent), normalize(reading.MemoryPercent)

	now := m.now()
	uptime := now.Sub(m.started).Seconds()

	scored, err := m.ScoreReport(cpuPct, memPct, uptime)
	if err != nil {
		return Report{}, err
	}

	usage, err := m.SampleAndRecord(cpuPct, memPct)
	if err != nil {
		return Report{}, err
	}
	metrics.SamplesTotal.WithLabelValues(name).Inc()

	report := Report{
		Timestamp:     now.Unix(),
		Source:        name,
		UptimeSeconds: uptime,
		Usage:         usage,
		Report:        scored,
	}
	m.latest.Store(&report)

	metrics.HealthScore.Set(float64(scored.Score))
	metrics.UsagePercent.WithLabelValues("cpu").Set(cpuPct)
	metrics.UsagePercent.WithLabelValues("memory").Set(memPct)

	if m.store != nil {
		snap := domain.Snapshot{
			Timestamp:     report.Timestamp,
			CPUPercent:    cpuPct,
			MemoryPercent: memPct,
			UptimeSeconds: uptime,
			Score:         scored.Score,
			Level:         scored.Level,
			Source:        name,
		}
		if err := m.store.StoreSnapshot(ctx, snap); err != nil {
			m.logger.LogEvent(util.LOG_LEVEL_ERROR, "storing snapshot failed:", err)
		}
	}

	m.logger.LogEvent(util.LOG_LEVEL_DEBUG, fmt.Sprintf("sampled source=%s cpu=%.2f memory=%.2f score=%d", name, cpuPct, memPct, scored.Score))
	return report, nil
}

// normalize maps NaN to zero and clamps to the percentage range.
func normalize(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(100, v))
}
