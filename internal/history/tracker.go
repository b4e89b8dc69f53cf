// Package history keeps the running record of observed percentages for one
// resource and reports current, highest, lowest and average over it.
//
// A Tracker created with New never evicts: it grows by exactly one sample per
// Record for the life of the process. NewBounded keeps only the most recent
// samples in a fixed ring, evicting the oldest first, and maintains a running
// sum so Current and Average stay O(1).
package history

import (
	"errors"
	"math"
	"sync"
)

// ErrEmptyHistory is returned by every read on a tracker with no samples.
var ErrEmptyHistory = errors.New("no samples recorded yet")

// Stats is a consistent view of a tracker taken under a single lock.
type Stats struct {
	Current float64 `json:"current"`
	Highest float64 `json:"highest"`
	Lowest  float64 `json:"lowest"`
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

// Tracker is safe for concurrent use.
type Tracker struct {
	mu       sync.RWMutex
	samples  []float64
	capacity int // 0 means unbounded
	next     int // ring write position, only used when capacity > 0
	sum      float64
}

// New returns an unbounded tracker.
func New() *Tracker {
	return &Tracker{}
}

// NewBounded returns a tracker retaining at most capacity samples.
// A capacity <= 0 yields an unbounded tracker.
func NewBounded(capacity int) *Tracker {
	if capacity <= 0 {
		return New()
	}
	return &Tracker{
		samples:  make([]float64, 0, capacity),
		capacity: capacity,
	}
}

// Record appends value to the history.
func (t *Tracker) Record(value float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.capacity == 0 || len(t.samples) < t.capacity {
		t.samples = append(t.samples, value)
		t.sum += value
		if t.capacity > 0 {
			t.next = len(t.samples) % t.capacity
		}
		return
	}

	evicted := t.samples[t.next]
	t.samples[t.next] = value
	t.next = (t.next + 1) % t.capacity

	// Subtracting an evicted infinity would leave the sum NaN for good.
	if math.IsInf(evicted, 0) || math.IsNaN(evicted) {
		t.sum = 0
		for _, v := range t.samples {
			t.sum += v
		}
		return
	}
	t.sum += value - evicted
}

// Len reports how many samples are currently retained.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.samples)
}

// Current returns the most recently recorded value.
func (t *Tracker) Current() (float64, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(t.samples) == 0 {
		return 0, ErrEmptyHistory
	}
	return t.latest(), nil
}

// Highest returns the maximum retained value.
func (t *Tracker) Highest() (float64, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(t.samples) == 0 {
		return 0, ErrEmptyHistory
	}
	high, _ := t.bounds()
	return high, nil
}

// Lowest returns the minimum retained value.
func (t *Tracker) Lowest() (float64, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(t.samples) == 0 {
		return 0, ErrEmptyHistory
	}
	_, low := t.bounds()
	return low, nil
}

// Average returns the arithmetic mean of the retained values.
func (t *Tracker) Average() (float64, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(t.samples) == 0 {
		return 0, ErrEmptyHistory
	}
	return t.mean(), nil
}

// Stats returns all aggregates at once.
func (t *Tracker) Stats() (Stats, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(t.samples) == 0 {
		return Stats{}, ErrEmptyHistory
	}
	high, low := t.bounds()
	return Stats{
		Current: t.latest(),
		Highest: high,
		Lowest:  low,
		Average: t.mean(),
		Count:   len(t.samples),
	}, nil
}

// Samples returns a copy of the retained values, oldest first.
func (t *Tracker) Samples() []float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]float64, 0, len(t.samples))
	if t.capacity > 0 && len(t.samples) == t.capacity {
		out = append(out, t.samples[t.next:]...)
		return append(out, t.samples[:t.next]...)
	}
	return append(out, t.samples...)
}

// callers must hold t.mu and have checked len(t.samples) > 0.
func (t *Tracker) latest() float64 {
	if t.capacity > 0 && len(t.samples) == t.capacity {
		return t.samples[(t.next+t.capacity-1)%t.capacity]
	}
	return t.samples[len(t.samples)-1]
}

func (t *Tracker) bounds() (high, low float64) {
	high, low = t.samples[0], t.samples[0]
	for _, v := range t.samples[1:] {
		if v > high {
			high = v
		}
		if v < low {
			low = v
		}
	}
	return high, low
}

func (t *Tracker) mean() float64 {
	return t.sum / float64(len(t.samples))
}
