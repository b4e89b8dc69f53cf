package source

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v4/load"

	"container-health/internal/domain"
)

// LoadAverageSource approximates CPU usage as the 1-minute load average
// divided by the logical CPU count. The value can exceed 100 on an
// oversubscribed host.
type LoadAverageSource struct {
	probe   hostProbe
	loadAvg func(ctx context.Context) (*load.AvgStat, error)
}

func newLoadAverageSource(probe hostProbe) *LoadAverageSource {
	return &LoadAverageSource{probe: probe, loadAvg: load.AvgWithContext}
}

func (s *LoadAverageSource) Name() string { return string(KindLoadAvg) }

func (s *LoadAverageSource) Read(ctx context.Context) (domain.Reading, error) {
	avg, err := s.loadAvg(ctx)
	if err != nil {
		return domain.Reading{}, fmt.Errorf("load average: %w", err)
	}

	vm, err := s.probe.virtualMemory(ctx)
	if err != nil {
		return domain.Reading{}, fmt.Errorf("load average: memory: %w", err)
	}

	return domain.Reading{
		CPUPercent:    avg.Load1 / s.probe.cpus(ctx) * 100,
		MemoryPercent: vm.UsedPercent,
	}, nil
}
