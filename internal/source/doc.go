// Package source supplies raw CPU and memory percentages for the running
// container.
//
// Every variant implements domain.MetricSource:
//
//   - OSCounterSource reads host counters through gopsutil.
//   - CgroupV2Source reads the unified hierarchy (cpu.stat, memory.current).
//   - CgroupV1Source reads the cpuacct and memory controllers.
//   - LoadAverageSource approximates CPU from the 1-minute load average.
//   - StubSource returns random values when nothing else is available.
//
// Detect probes the filesystem and host APIs once at startup and returns the
// most specific variant that works. Cgroup CPU usage is a counter, so the
// first Read after construction primes the meter and reports 0% CPU.
package source
