package monitor

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"container-health/internal/domain"
	"container-health/internal/health"
	"container-health/internal/history"
	"container-health/internal/metrics"
	"container-health/internal/repository"
)

// scriptedSource replays readings in order and then repeats the last one.
type scriptedSource struct {
	mu       sync.Mutex
	name     string
	readings []domain.Reading
	errs     []error
	calls    int
}

func (s *scriptedSource) Name() string { return s.name }

func (s *scriptedSource) Read(ctx context.Context) (domain.Reading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return domain.Reading{}, s.errs[i]
	}
	if i >= len(s.readings) {
		i = len(s.readings) - 1
	}
	return s.readings[i], nil
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func TestMonitor_SampleAndRecord(t *testing.T) {
	m := New(Options{})

	_, err := m.Usage()
	assert.ErrorIs(t, err, history.ErrEmptyHistory)

	_, err = m.SampleAndRecord(5, 50)
	require.NoError(t, err)
	_, err = m.SampleAndRecord(9, 70)
	require.NoError(t, err)
	usage, err := m.SampleAndRecord(3, 60)
	require.NoError(t, err)

	assert.Equal(t, 3.0, usage.CPU.Current)
	assert.Equal(t, 9.0, usage.CPU.Highest)
	assert.Equal(t, 3.0, usage.CPU.Lowest)
	assert.InDelta(t, 5.667, usage.CPU.Average, 0.01)
	assert.Equal(t, 3, usage.CPU.Count)

	assert.Equal(t, 60.0, usage.Memory.Current)
	assert.Equal(t, 70.0, usage.Memory.Highest)
	assert.Equal(t, 50.0, usage.Memory.Lowest)
	assert.InDelta(t, 60.0, usage.Memory.Average, 1e-9)

	again, err := m.Usage()
	require.NoError(t, err)
	assert.Equal(t, usage, again)
}

func TestMonitor_ScoreReport(t *testing.T) {
	m := New(Options{Policy: health.DefaultPolicy})

	report, err := m.ScoreReport(10, 20, 4000)
	require.NoError(t, err)
	assert.Equal(t, 88, report.Score)
	assert.Equal(t, "Good", report.Level)
	assert.Equal(t, "Good - System performing well", report.Message)

	m.SetPolicy(health.Policy{UptimeBonus: health.BonusFlat})
	report, err = m.ScoreReport(10, 20, 4000)
	require.NoError(t, err)
	assert.Equal(t, 92, report.Score)

	m.SetPolicy(health.Policy{Strict: true})
	_, err = m.ScoreReport(-1, 20, 4000)
	assert.ErrorIs(t, err, health.ErrInvalidMetric)
}

func TestMonitor_Sample(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	src := &scriptedSource{
		name: "test-sample",
		readings: []domain.Reading{
			{CPUPercent: 10, MemoryPercent: 20},
			{CPUPercent: 40, MemoryPercent: 60},
		},
	}
	store := repository.NewMemoryStore()
	m := New(Options{Source: src, Store: store, Now: clock.now})

	_, ok := m.Latest()
	assert.False(t, ok)

	clock.advance(4000 * time.Second)
	first, err := m.Sample(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1700004000), first.Timestamp)
	assert.Equal(t, "test-sample", first.Source)
	assert.Equal(t, 4000.0, first.UptimeSeconds)
	assert.Equal(t, 88, first.Score)
	assert.Equal(t, 1, first.CPU.Count)

	clock.advance(10 * time.Second)
	second, err := m.Sample(context.Background())
	require.NoError(t, err)
	// 100 - 25 - 30 + 4010/3600
	assert.Equal(t, 46, second.Score)
	assert.Equal(t, "Warning", second.Level)
	assert.Equal(t, 40.0, second.CPU.Current)
	assert.Equal(t, 10.0, second.CPU.Lowest)
	assert.InDelta(t, 25.0, second.CPU.Average, 1e-9)
	assert.InDelta(t, 40.0, second.Memory.Average, 1e-9)

	latest, ok := m.Latest()
	require.True(t, ok)
	assert.Equal(t, second, latest)

	snaps, err := store.GetSnapshots(context.Background(), 0, math.MaxInt64, 0, 0)
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, domain.Snapshot{
		Timestamp:     1700004010,
		CPUPercent:    40,
		MemoryPercent: 60,
		UptimeSeconds: 4010,
		Score:         46,
		Level:         "Warning",
		Source:        "test-sample",
	}, snaps[1])

	assert.Equal(t, 46.0, testutil.ToFloat64(metrics.HealthScore))
	assert.Equal(t, 40.0, testutil.ToFloat64(metrics.UsagePercent.WithLabelValues("cpu")))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.SamplesTotal.WithLabelValues("test-sample")))
}

func TestMonitor_SampleSourceFailureRecordsZero(t *testing.T) {
	src := &scriptedSource{
		name:     "test-failing",
		readings: []domain.Reading{{}, {CPUPercent: 50, MemoryPercent: 50}},
		errs:     []error{errors.New("permission denied")},
	}
	m := New(Options{Source: src})

	report, err := m.Sample(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0.0, report.CPU.Current)
	assert.Equal(t, 0.0, report.Memory.Current)
	assert.Equal(t, 100, report.Score)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.SourceErrorsTotal.WithLabelValues("test-failing")))

	report, err = m.Sample(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 50.0, report.CPU.Current)
	assert.Equal(t, 25.0, report.CPU.Average)
}

func TestMonitor_SampleNaNIsZero(t *testing.T) {
	src := &scriptedSource{name: "test-nan", readings: []domain.Reading{{CPUPercent: math.NaN(), MemoryPercent: 30}}}
	m := New(Options{Source: src, Policy: health.Policy{Strict: true}})

	report, err := m.Sample(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0.0, report.CPU.Current)
	assert.Equal(t, 30.0, report.Memory.Current)
}

func TestMonitor_SampleClampsOvershootingReadings(t *testing.T) {
	src := &scriptedSource{name: "test-overshoot", readings: []domain.Reading{
		{CPUPercent: 180, MemoryPercent: 30},
		{CPUPercent: -4, MemoryPercent: 101.5},
	}}
	m := New(Options{Source: src, Policy: health.Policy{Strict: true}})

	report, err := m.Sample(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 100.0, report.CPU.Current)
	assert.Equal(t, 30.0, report.Memory.Current)
	assert.Equal(t, 0, report.Score)

	report, err = m.Sample(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0.0, report.CPU.Current)
	assert.Equal(t, 100.0, report.Memory.Current)
	assert.Equal(t, 5, report.Score)
	assert.Equal(t, 2, report.CPU.Count)

	_, err = m.ScoreReport(180, 30, 0)
	assert.ErrorIs(t, err, health.ErrInvalidMetric, "caller-supplied values are still validated")
}

func TestMonitor_SampleCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := &scriptedSource{name: "test-cancel", readings: []domain.Reading{{}}, errs: []error{context.Canceled}}
	m := New(Options{Source: src})

	_, err := m.Sample(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMonitor_BoundedHistory(t *testing.T) {
	src := &scriptedSource{name: "test-bounded", readings: []domain.Reading{
		{CPUPercent: 1}, {CPUPercent: 2}, {CPUPercent: 3}, {CPUPercent: 4},
	}}
	m := New(Options{Source: src, HistoryCapacity: 2})

	var report Report
	var err error
	for i := 0; i < 4; i++ {
		report, err = m.Sample(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, 2, report.CPU.Count)
	assert.Equal(t, 3.0, report.CPU.Lowest)
	assert.InDelta(t, 3.5, report.CPU.Average, 1e-9)
}

func TestMonitor_Uptime(t *testing.T) {
	clock := &fakeClock{t: time.Unix(100, 0)}
	m := New(Options{Now: clock.now})

	clock.advance(90 * time.Second)
	assert.Equal(t, 90*time.Second, m.Uptime())
	assert.Equal(t, "", m.SourceName())
}
