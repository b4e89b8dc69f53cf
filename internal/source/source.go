package source

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"

	"container-health/internal/domain"
)

// Kind names a source variant in configuration.
type Kind string

const (
	KindAuto     Kind = "auto"
	KindOS       Kind = "os"
	KindCgroupV1 Kind = "cgroup-v1"
	KindCgroupV2 Kind = "cgroup-v2"
	KindLoadAvg  Kind = "loadavg"
	KindStub     Kind = "stub"
)

const DefaultCgroupRoot = "/sys/fs/cgroup"

// ErrUnavailable is returned when a forced source cannot read on this host.
var ErrUnavailable = errors.New("metric source unavailable")

// Options configures the variants built by New and Detect.
type Options struct {
	CgroupRoot string
	// StubSeed seeds StubSource; zero uses the current time.
	StubSeed int64
}

// hostProbe abstracts the gopsutil calls shared by several variants.
type hostProbe struct {
	cpuPercent    func(ctx context.Context) (float64, error)
	cpuCount      func(ctx context.Context) (int, error)
	virtualMemory func(ctx context.Context) (*mem.VirtualMemoryStat, error)
}

func gopsutilProbe() hostProbe {
	return hostProbe{
		cpuPercent: func(ctx context.Context) (float64, error) {
			pct, err := cpu.PercentWithContext(ctx, 0, false)
			if err != nil {
				return 0, err
			}
			if len(pct) == 0 {
				return 0, fmt.Errorf("cpu percent: no values")
			}
			return pct[0], nil
		},
		cpuCount: func(ctx context.Context) (int, error) {
			return cpu.CountsWithContext(ctx, true)
		},
		virtualMemory: mem.VirtualMemoryWithContext,
	}
}

func (p hostProbe) memoryTotal(ctx context.Context) (uint64, error) {
	vm, err := p.virtualMemory(ctx)
	if err != nil {
		return 0, err
	}
	return vm.Total, nil
}

func (p hostProbe) cpus(ctx context.Context) float64 {
	n, err := p.cpuCount(ctx)
	if err != nil || n <= 0 {
		return 1
	}
	return float64(n)
}

// New builds the source named by kind. KindAuto defers to Detect.
func New(ctx context.Context, kind Kind, opts Options) (domain.MetricSource, error) {
	if opts.CgroupRoot == "" {
		opts.CgroupRoot = DefaultCgroupRoot
	}
	probe := gopsutilProbe()

	switch kind {
	case KindAuto, "":
		return detect(ctx, opts, probe), nil
	case KindOS:
		return newOSCounterSource(probe), nil
	case KindCgroupV2:
		if !isCgroupV2(opts.CgroupRoot) {
			return nil, fmt.Errorf("%s at %s: %w", kind, opts.CgroupRoot, ErrUnavailable)
		}
		return newCgroupV2Source(opts.CgroupRoot, probe, time.Now), nil
	case KindCgroupV1:
		if !isCgroupV1(opts.CgroupRoot) {
			return nil, fmt.Errorf("%s at %s: %w", kind, opts.CgroupRoot, ErrUnavailable)
		}
		return newCgroupV1Source(opts.CgroupRoot, probe, time.Now), nil
	case KindLoadAvg:
		return newLoadAverageSource(probe), nil
	case KindStub:
		return NewStubSource(opts.StubSeed), nil
	default:
		return nil, fmt.Errorf("unknown source kind %q", kind)
	}
}

// Detect returns the most specific source available on this host:
// cgroup v2, cgroup v1, OS counters, load average, then the stub.
func Detect(ctx context.Context, opts Options) domain.MetricSource {
	if opts.CgroupRoot == "" {
		opts.CgroupRoot = DefaultCgroupRoot
	}
	return detect(ctx, opts, gopsutilProbe())
}

func detect(ctx context.Context, opts Options, probe hostProbe) domain.MetricSource {
	if isCgroupV2(opts.CgroupRoot) {
		return newCgroupV2Source(opts.CgroupRoot, probe, time.Now)
	}
	if isCgroupV1(opts.CgroupRoot) {
		return newCgroupV1Source(opts.CgroupRoot, probe, time.Now)
	}

	counters := newOSCounterSource(probe)
	if _, err := counters.Read(ctx); err == nil {
		return counters
	}

	la := newLoadAverageSource(probe)
	if _, err := la.Read(ctx); err == nil {
		return la
	}

	return NewStubSource(opts.StubSeed)
}

func isCgroupV2(root string) bool {
	return fileExists(filepath.Join(root, "cgroup.controllers")) &&
		fileExists(filepath.Join(root, "memory.current"))
}

func isCgroupV1(root string) bool {
	return fileExists(filepath.Join(root, "memory", "memory.usage_in_bytes"))
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
