package pipeline

import (
	"testing"
	"time"

	"github.com/dgallion1/bondgen/internal/bonderr"
	"github.com/google/go-cmp/cmp"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestStats(window time.Duration) (*RunStats, *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
	s := NewRunStats(window)
	s.now = clock.now
	return s, clock
}

func TestRunStatsSnapshot(t *testing.T) {
	stats, _ := newTestStats(time.Hour)
	for _, ms := range []int64{100, 200, 300, 400, 500} {
		stats.Record(RunSample{Duration: time.Duration(ms) * time.Millisecond, Bonds: 10})
	}
	stats.Record(RunSample{Duration: 5 * time.Millisecond, Code: bonderr.ValidationError})
	stats.Record(RunSample{Duration: 7 * time.Millisecond, Code: bonderr.ValidationError})
	stats.Record(RunSample{Duration: time.Second, Code: bonderr.InternalError})

	want := StatsSnapshot{
		Runs:      8,
		Completed: 5,
		Failures:  map[bonderr.Code]int{bonderr.ValidationError: 2, bonderr.InternalError: 1},
		Bonds:     50,
		MinMs:     100,
		MaxMs:     500,
		AvgMs:     300,
		P50Ms:     300,
		P95Ms:     480,
		P99Ms:     496,
		PerBondMs: 30,
		Window:    "1h0m0s",
	}
	got := stats.Snapshot()
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("snapshot mismatch (-want +got):\n%s", diff)
	}
	if got.FailureCount() != 3 {
		t.Fatalf("expected 3 failures, got %d", got.FailureCount())
	}
}

func TestRunStatsPrunesExpiredSamples(t *testing.T) {
	stats, clock := newTestStats(10 * time.Minute)
	stats.Record(RunSample{Duration: 100 * time.Millisecond, Bonds: 1})
	clock.advance(11 * time.Minute)

	if snap := stats.Snapshot(); snap.Runs != 0 {
		t.Fatalf("expected no runs after the window, got %d", snap.Runs)
	}

	stats.Record(RunSample{Duration: 200 * time.Millisecond, Bonds: 2})
	snap := stats.Snapshot()
	if snap.Runs != 1 || snap.MinMs != 200 || snap.MaxMs != 200 {
		t.Fatalf("expected one fresh run of 200ms, got %+v", snap)
	}
	if snap.PerBondMs != 100 {
		t.Fatalf("expected 100ms per bond, got %f", snap.PerBondMs)
	}
}

func TestRunStatsOnlyFailures(t *testing.T) {
	stats, _ := newTestStats(time.Hour)
	stats.Record(RunSample{Duration: -time.Second, Code: bonderr.ParsingError})

	snap := stats.Snapshot()
	if snap.Runs != 1 || snap.Completed != 0 {
		t.Fatalf("expected one failed run, got %+v", snap)
	}
	if snap.P50Ms != 0 || snap.PerBondMs != 0 {
		t.Fatalf("expected no latency figures without completed runs, got %+v", snap)
	}
}

func TestPercentile(t *testing.T) {
	values := []int64{10, 20, 30, 40}
	tests := []struct {
		pct  float64
		want float64
	}{
		{0, 10},
		{50, 25},
		{100, 40},
		{-5, 10},
	}
	for _, tt := range tests {
		if got := percentile(values, tt.pct); got != tt.want {
			t.Errorf("percentile(%v) = %v, want %v", tt.pct, got, tt.want)
		}
	}
	if got := percentile(nil, 50); got != 0 {
		t.Errorf("expected 0 for no values, got %v", got)
	}
}
