package source

import (
	"context"
	"fmt"

	"container-health/internal/domain"
)

// OSCounterSource reports host-wide CPU and memory usage from OS counters.
type OSCounterSource struct {
	probe hostProbe
}

func newOSCounterSource(probe hostProbe) *OSCounterSource {
	return &OSCounterSource{probe: probe}
}

func (s *OSCounterSource) Name() string { return string(KindOS) }

func (s *OSCounterSource) Read(ctx context.Context) (domain.Reading, error) {
	cpuPct, err := s.probe.cpuPercent(ctx)
	if err != nil {
		return domain.Reading{}, fmt.Errorf("os counters: cpu: %w", err)
	}

	vm, err := s.probe.virtualMemory(ctx)
	if err != nil {
		return domain.Reading{}, fmt.Errorf("os counters: memory: %w", err)
	}

	return domain.Reading{CPUPercent: cpuPct, MemoryPercent: vm.UsedPercent}, nil
}
