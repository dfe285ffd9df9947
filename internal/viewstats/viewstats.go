// Package viewstats keeps a rolling window of per-view latencies.
package viewstats

import (
	"slices"
	"sync"
	"time"
)

type sample struct {
	at         time.Time
	durationMs int64
}

// Snapshot aggregates the samples of one view inside the window.
type Snapshot struct {
	Count int     `json:"count"`
	MinMs int64   `json:"min_ms"`
	MaxMs int64   `json:"max_ms"`
	AvgMs float64 `json:"avg_ms"`
	P50Ms float64 `json:"p50_ms"`
	P95Ms float64 `json:"p95_ms"`
	P99Ms float64 `json:"p99_ms"`
}

// Stats records view durations, keyed by view name.
type Stats struct {
	mu     sync.Mutex
	views  map[string][]sample
	window time.Duration
}

func New(window time.Duration) *Stats {
	if window <= 0 {
		window = time.Hour
	}
	return &Stats{
		views:  make(map[string][]sample),
		window: window,
	}
}

// Record adds one duration for view. Negative durations count as zero.
func (s *Stats) Record(view string, d time.Duration) {
	ms := max(d.Milliseconds(), 0)
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.views[view] = append(prune(s.views[view], now.Add(-s.window)), sample{at: now, durationMs: ms})
}

// Snapshot aggregates every view that has samples inside the window.
func (s *Stats) Snapshot() map[string]Snapshot {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]Snapshot, len(s.views))
	for view, samples := range s.views {
		samples = prune(samples, now.Add(-s.window))
		s.views[view] = samples
		if len(samples) == 0 {
			continue
		}
		out[view] = aggregate(samples)
	}
	return out
}

func prune(samples []sample, oldest time.Time) []sample {
	return slices.DeleteFunc(samples, func(sm sample) bool {
		return sm.at.Before(oldest)
	})
}

func aggregate(samples []sample) Snapshot {
	values := make([]int64, 0, len(samples))
	var sum int64
	for _, sm := range samples {
		values = append(values, sm.durationMs)
		sum += sm.durationMs
	}
	slices.Sort(values)

	return Snapshot{
		Count: len(values),
		MinMs: values[0],
		MaxMs: values[len(values)-1],
		AvgMs: float64(sum) / float64(len(values)),
		P50Ms: percentile(values, 50),
		P95Ms: percentile(values, 95),
		P99Ms: percentile(values, 99),
	}
}

// percentile interpolates linearly between the two closest ranks.
func percentile(sorted []int64, pct float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := float64(len(sorted)-1) * pct / 100
	lower := int(idx)
	if lower >= len(sorted)-1 {
		return float64(sorted[len(sorted)-1])
	}
	lo, hi := float64(sorted[lower]), float64(sorted[lower+1])
	return lo + (hi-lo)*(idx-float64(lower))
}
