package source

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"container-health/internal/domain"
)

// Ranges for generated readings.
const (
	stubCPUMin = 5.0
	stubCPUMax = 45.0
	stubMemMin = 20.0
	stubMemMax = 60.0
)

// StubSource returns random readings. It is the fallback when the host
// exposes no usable counters, and a deterministic source in tests.
type StubSource struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewStubSource seeds the generator with seed, or the current time when
// seed is zero.
func NewStubSource(seed int64) *StubSource {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &StubSource{rnd: rand.New(rand.NewSource(seed))}
}

func (s *StubSource) Name() string { return string(KindStub) }

func (s *StubSource) Read(ctx context.Context) (domain.Reading, error) {
	if err := ctx.Err(); err != nil {
		return domain.Reading{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.Reading{
		CPUPercent:    stubCPUMin + s.rnd.Float64()*(stubCPUMax-stubCPUMin),
		MemoryPercent: stubMemMin + s.rnd.Float64()*(stubMemMax-stubMemMin),
	}, nil
}
