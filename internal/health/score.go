package health

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidMetric is returned by a strict Policy for inputs outside the
// percentage range, non-finite values, or negative uptime.
var ErrInvalidMetric = errors.New("invalid metric value")

// UptimeBonus selects how elapsed uptime is rewarded.
type UptimeBonus string

const (
	// BonusTiered: +min(10, uptime/3600) above one hour, +5 above five minutes.
	BonusTiered UptimeBonus = "tiered"
	// BonusFlat: +5 above five minutes.
	BonusFlat UptimeBonus = "flat"
)

const (
	maxScore = 100.0

	cpuLowThreshold  = 30.0
	cpuHighThreshold = 70.0
	cpuCritical      = 90.0

	memLowThreshold  = 50.0
	memHighThreshold = 80.0
	memCritical      = 90.0

	criticalPenalty = 15.0

	warmupSeconds  = 300.0
	hourSeconds    = 3600.0
	settledBonus   = 5.0
	maxUptimeBonus = 10.0
)

// Policy parameterises Score. The zero value is the default tiered,
// permissive policy.
type Policy struct {
	UptimeBonus UptimeBonus
	// Strict rejects out-of-range input with ErrInvalidMetric instead of
	// scoring it.
	Strict bool
}

// DefaultPolicy is the policy used by Score.
var DefaultPolicy = Policy{UptimeBonus: BonusTiered}

// Report is the scored result together with its band.
type Report struct {
	Score   int    `json:"score"`
	Message string `json:"message"`
	Level   string `json:"level"`
}

// Score computes the health score with DefaultPolicy. Input is not
// validated; NaN is treated as a missing value of zero.
func Score(cpuPercent, memoryPercent, uptimeSeconds float64) int {
	return DefaultPolicy.score(cpuPercent, memoryPercent, uptimeSeconds)
}

// Evaluate validates the input according to p, scores it and classifies the
// result.
func (p Policy) Evaluate(cpuPercent, memoryPercent, uptimeSeconds float64) (Report, error) {
	if p.Strict {
		if err := validatePercent("cpu", cpuPercent); err != nil {
			return Report{}, err
		}
		if err := validatePercent("memory", memoryPercent); err != nil {
			return Report{}, err
		}
		if math.IsNaN(uptimeSeconds) || math.IsInf(uptimeSeconds, 0) || uptimeSeconds < 0 {
			return Report{}, fmt.Errorf("uptime %v: %w", uptimeSeconds, ErrInvalidMetric)
		}
	}

	score := p.score(cpuPercent, memoryPercent, uptimeSeconds)
	status := Classify(score)
	return Report{
		Score:   score,
		Message: status.Message(),
		Level:   status.Level,
	}, nil
}

// Validate checks that p names a known uptime bonus.
func (p Policy) Validate() error {
	switch p.UptimeBonus {
	case BonusTiered, BonusFlat, "":
		return nil
	default:
		return fmt.Errorf("unknown uptime bonus %q", p.UptimeBonus)
	}
}

func (p Policy) score(cpu, mem, uptime float64) int {
	cpu, mem, uptime = zeroNaN(cpu), zeroNaN(mem), zeroNaN(uptime)

	score := maxScore
	score -= cpuPenalty(cpu)
	score -= memoryPenalty(mem)
	score += p.uptimeBonus(uptime)

	if cpu > cpuCritical {
		score -= criticalPenalty
	}
	if mem > memCritical {
		score -= criticalPenalty
	}

	// Opposing infinities.
	if math.IsNaN(score) {
		return 0
	}

	// Half away from zero; the clamped value is never negative so .5 rounds up.
	return int(math.Round(clamp(score, 0, maxScore)))
}

func cpuPenalty(cpu float64) float64 {
	switch {
	case cpu < cpuLowThreshold:
		return cpu * 0.5
	case cpu < cpuHighThreshold:
		return 15 + (cpu-cpuLowThreshold)*1.0
	default:
		return 55 + (cpu-cpuHighThreshold)*1.5
	}
}

func memoryPenalty(mem float64) float64 {
	switch {
	case mem < memLowThreshold:
		return mem * 0.4
	case mem < memHighThreshold:
		return 20 + (mem-memLowThreshold)*1.0
	default:
		return 50 + (mem-memHighThreshold)*1.5
	}
}

func (p Policy) uptimeBonus(uptime float64) float64 {
	if p.UptimeBonus == BonusFlat {
		if uptime > warmupSeconds {
			return settledBonus
		}
		return 0
	}

	switch {
	case uptime > hourSeconds:
		return math.Min(maxUptimeBonus, uptime/hourSeconds)
	case uptime > warmupSeconds:
		return settledBonus
	default:
		return 0
	}
}

func validatePercent(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 || v > 100 {
		return fmt.Errorf("%s percent %v: %w", name, v, ErrInvalidMetric)
	}
	return nil
}

func zeroNaN(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
