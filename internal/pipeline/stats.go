package pipeline

import (
	"slices"
	"sync"
	"time"

	"github.com/dgallion1/bondgen/internal/bonderr"
)

// RunSample is one finished generation run. Code is empty on success.
type RunSample struct {
	Duration time.Duration
	Bonds    int
	Code     bonderr.Code
}

type timedSample struct {
	at time.Time
	RunSample
}

// StatsSnapshot aggregates the runs inside the window. Latency figures
// cover successful runs only; failures usually stop early and would pull
// the percentiles down.
type StatsSnapshot struct {
	Runs      int                  `json:"runs"`
	Completed int                  `json:"completed"`
	Failures  map[bonderr.Code]int `json:"failures,omitempty"`
	Bonds     int                  `json:"bonds"`
	MinMs     int64                `json:"min_ms"`
	MaxMs     int64                `json:"max_ms"`
	AvgMs     float64              `json:"avg_ms"`
	P50Ms     float64              `json:"p50_ms"`
	P95Ms     float64              `json:"p95_ms"`
	P99Ms     float64              `json:"p99_ms"`
	PerBondMs float64              `json:"per_bond_ms"`
	Window    string               `json:"window"`
}

// FailureCount sums failures over all codes.
func (s StatsSnapshot) FailureCount() int {
	n := 0
	for _, c := range s.Failures {
		n += c
	}
	return n
}

// RunStats keeps generation runs for a rolling window.
type RunStats struct {
	mu      sync.Mutex
	samples []timedSample
	window  time.Duration
	now     func() time.Time
}

func NewRunStats(window time.Duration) *RunStats {
	if window <= 0 {
		window = time.Hour
	}
	return &RunStats{
		samples: make([]timedSample, 0, 256),
		window:  window,
		now:     time.Now,
	}
}

// Record adds one finished run.
func (s *RunStats) Record(r RunSample) {
	r.Duration = max(r.Duration, 0)

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.pruneLocked(now)
	s.samples = append(s.samples, timedSample{at: now, RunSample: r})
}

func (s *RunStats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked(s.now())
	snap := StatsSnapshot{Runs: len(s.samples), Window: s.window.String()}

	var ms []int64
	var sum int64
	for _, sm := range s.samples {
		if sm.Code != "" {
			if snap.Failures == nil {
				snap.Failures = make(map[bonderr.Code]int)
			}
			snap.Failures[sm.Code]++
			continue
		}
		d := sm.Duration.Milliseconds()
		ms = append(ms, d)
		sum += d
		snap.Bonds += sm.Bonds
	}
	if len(ms) == 0 {
		return snap
	}
	slices.Sort(ms)

	snap.Completed = len(ms)
	snap.MinMs = ms[0]
	snap.MaxMs = ms[len(ms)-1]
	snap.AvgMs = float64(sum) / float64(len(ms))
	snap.P50Ms = percentile(ms, 50)
	snap.P95Ms = percentile(ms, 95)
	snap.P99Ms = percentile(ms, 99)
	if snap.Bonds > 0 {
		snap.PerBondMs = float64(sum) / float64(snap.Bonds)
	}
	return snap
}

func (s *RunStats) pruneLocked(now time.Time) {
	cutoff := now.Add(-s.window)
	s.samples = slices.DeleteFunc(s.samples, func(sm timedSample) bool {
		return sm.at.Before(cutoff)
	})
}

// percentile interpolates linearly between the two closest ranks.
func percentile(sorted []int64, pct float64) float64 {
	switch {
	case len(sorted) == 0:
		return 0
	case pct <= 0:
		return float64(sorted[0])
	case pct >= 100:
		return float64(sorted[len(sorted)-1])
	}
	rank := float64(len(sorted)-1) * pct / 100
	lower := int(rank)
	if lower+1 >= len(sorted) {
		return float64(sorted[lower])
	}
	lo, hi := float64(sorted[lower]), float64(sorted[lower+1])
	return lo + (hi-lo)*(rank-float64(lower))
}
