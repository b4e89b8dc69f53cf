package source

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"container-health/internal/domain"
)

// cpuMeter turns a cumulative CPU usage counter into a percentage of the
// CPUs available to the cgroup.
type cpuMeter struct {
	mu        sync.Mutex
	now       func() time.Time
	lastUsage time.Duration
	lastAt    time.Time
	primed    bool
}

// percent returns usage since the previous call. The first call primes the
// meter and returns 0.
func (m *cpuMeter) percent(usage time.Duration, cpus float64) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	at := m.now()
	defer func() {
		m.lastUsage, m.lastAt, m.primed = usage, at, true
	}()

	if !m.primed || cpus <= 0 {
		return 0
	}
	wall := at.Sub(m.lastAt)
	used := usage - m.lastUsage
	if wall <= 0 || used < 0 {
		return 0
	}
	return float64(used) / float64(wall) / cpus * 100
}

// CgroupV2Source reads the unified cgroup hierarchy mounted at root.
type CgroupV2Source struct {
	root  string
	probe hostProbe
	meter cpuMeter
}

func newCgroupV2Source(root string, probe hostProbe, now func() time.Time) *CgroupV2Source {
	return &CgroupV2Source{root: root, probe: probe, meter: cpuMeter{now: now}}
}

func (s *CgroupV2Source) Name() string { return string(KindCgroupV2) }

func (s *CgroupV2Source) Read(ctx context.Context) (domain.Reading, error) {
	usec, err := readKeyed(filepath.Join(s.root, "cpu.stat"), "usage_usec")
	if err != nil {
		return domain.Reading{}, fmt.Errorf("cgroup v2: %w", err)
	}
	cpus, err := s.cpuLimit(ctx)
	if err != nil {
		return domain.Reading{}, fmt.Errorf("cgroup v2: %w", err)
	}
	cpuPct := s.meter.percent(time.Duration(usec)*time.Microsecond, cpus)

	usage, err := readUint(filepath.Join(s.root, "memory.current"))
	if err != nil {
		return domain.Reading{}, fmt.Errorf("cgroup v2: %w", err)
	}
	if inactive, err := readKeyed(filepath.Join(s.root, "memory.stat"), "inactive_file"); err == nil && inactive < usage {
		usage -= inactive
	}

	limit, err := s.memoryLimit(ctx)
	if err != nil {
		return domain.Reading{}, fmt.Errorf("cgroup v2: %w", err)
	}

	return domain.Reading{CPUPercent: cpuPct, MemoryPercent: percentOf(usage, limit)}, nil
}

// cpuLimit parses cpu.max ("<quota> <period>" or "max <period>").
func (s *CgroupV2Source) cpuLimit(ctx context.Context) (float64, error) {
	raw, err := os.ReadFile(filepath.Join(s.root, "cpu.max"))
	if os.IsNotExist(err) {
		return s.probe.cpus(ctx), nil
	}
	if err != nil {
		return 0, err
	}

	fields := strings.Fields(string(raw))
	if len(fields) < 2 {
		return 0, fmt.Errorf("cpu.max: unexpected format %q", strings.TrimSpace(string(raw)))
	}
	if fields[0] == "max" {
		return s.probe.cpus(ctx), nil
	}
	quota, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, fmt.Errorf("cpu.max quota: %w", err)
	}
	period, err := strconv.ParseFloat(fields[1], 64)
	if err != nil || period <= 0 {
		return 0, fmt.Errorf("cpu.max period %q: invalid", fields[1])
	}
	return quota / period, nil
}

func (s *CgroupV2Source) memoryLimit(ctx context.Context) (uint64, error) {
	raw, err := os.ReadFile(filepath.Join(s.root, "memory.max"))
	if err != nil && !os.IsNotExist(err) {
		return 0, err
	}
	value := strings.TrimSpace(string(raw))
	if err != nil || value == "max" {
		return s.probe.memoryTotal(ctx)
	}
	limit, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("memory.max: %w", err)
	}
	return limit, nil
}

// CgroupV1Source reads the cpuacct and memory controllers under root.
type CgroupV1Source struct {
	root  string
	probe hostProbe
	meter cpuMeter
}

func newCgroupV1Source(root string, probe hostProbe, now func() time.Time) *CgroupV1Source {
	return &CgroupV1Source{root: root, probe: probe, meter: cpuMeter{now: now}}
}

func (s *CgroupV1Source) Name() string { return string(KindCgroupV1) }

func (s *CgroupV1Source) Read(ctx context.Context) (domain.Reading, error) {
	var cpuPct float64
	if dir, ok := s.cpuDir(); ok {
		nanos, err := readUint(filepath.Join(dir, "cpuacct.usage"))
		if err != nil {
			return domain.Reading{}, fmt.Errorf("cgroup v1: %w", err)
		}
		cpuPct = s.meter.percent(time.Duration(nanos), s.cpuLimit(ctx, dir))
	}

	memDir := filepath.Join(s.root, "memory")
	usage, err := readUint(filepath.Join(memDir, "memory.usage_in_bytes"))
	if err != nil {
		return domain.Reading{}, fmt.Errorf("cgroup v1: %w", err)
	}
	if inactive, err := readKeyed(filepath.Join(memDir, "memory.stat"), "total_inactive_file"); err == nil && inactive < usage {
		usage -= inactive
	}

	limit, err := readUint(filepath.Join(memDir, "memory.limit_in_bytes"))
	if err != nil {
		return domain.Reading{}, fmt.Errorf("cgroup v1: %w", err)
	}
	// An unlimited cgroup reports a huge page-aligned sentinel.
	if total, err := s.probe.memoryTotal(ctx); err == nil && (limit == 0 || limit > total) {
		limit = total
	}

	return domain.Reading{CPUPercent: cpuPct, MemoryPercent: percentOf(usage, limit)}, nil
}

func (s *CgroupV1Source) cpuDir() (string, bool) {
	for _, name := range []string{"cpu,cpuacct", "cpuacct", "cpuacct,cpu"} {
		dir := filepath.Join(s.root, name)
		if fileExists(filepath.Join(dir, "cpuacct.usage")) {
			return dir, true
		}
	}
	return "", false
}

func (s *CgroupV1Source) cpuLimit(ctx context.Context, dir string) float64 {
	quota, errQ := readInt(filepath.Join(dir, "cpu.cfs_quota_us"))
	period, errP := readInt(filepath.Join(dir, "cpu.cfs_period_us"))
	if errQ != nil || errP != nil || quota <= 0 || period <= 0 {
		return s.probe.cpus(ctx)
	}
	return float64(quota) / float64(period)
}

func percentOf(used, limit uint64) float64 {
	if limit == 0 {
		return 0
	}
	return float64(used) / float64(limit) * 100
}

func readUint(path string) (uint64, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseUint(strings.TrimSpace(string(raw)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return v, nil
}

func readInt(path string) (int64, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseInt(strings.TrimSpace(string(raw)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return v, nil
}

// readKeyed returns the value of key from a flat "key value" file such as
// cpu.stat or memory.stat.
func readKeyed(path, key string) (uint64, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	sc := bufio.NewScanner(bytes.NewReader(raw))
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) == 2 && fields[0] == key {
			v, err := strconv.ParseUint(fields[1], 10, 64)
			if err != nil {
				return 0, fmt.Errorf("parse %s %s: %w", filepath.Base(path), key, err)
			}
			return v, nil
		}
	}
	return 0, fmt.Errorf("%s: key %q not found", filepath.Base(path), key)
}
