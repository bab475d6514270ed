package bus

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

const (
	perfRingSize = 1024
	statsWindow  = time.Second
)

// PerformanceStats summarizes delivery activity inside the trailing
// one-second window, recomputed on every call.
type PerformanceStats struct {
	// FrequencyHz is the delivery count inside the window.
	FrequencyHz float64
	// MaxLatency is the largest inter-arrival gap inside the window.
	MaxLatency time.Duration
	// P1Latency is the 1st-percentile inter-arrival gap inside the window.
	P1Latency time.Duration
	// TotalMessages counts deliveries over the subscriber's lifetime.
	TotalMessages uint64
	Window        time.Duration
}

type perfSample struct {
	at      time.Time
	latency time.Duration
}

// perfRing records one sample per delivered push. Writes are cheap: one
// atomic increment plus a slot write under a short lock.
type perfRing struct {
	mu      sync.Mutex
	samples [perfRingSize]perfSample
	idx     int
	last    time.Time
	total   atomic.Uint64
}

func (r *perfRing) record(now time.Time) {
	r.mu.Lock()
	var lat time.Duration
	if r.total.Load() > 0 {
		lat = now.Sub(r.last)
	}
	r.last = now
	r.samples[r.idx] = perfSample{at: now, latency: lat}
	r.idx = (r.idx + 1) % perfRingSize
	r.mu.Unlock()
	r.total.Add(1)
}

func (r *perfRing) stats(now time.Time) PerformanceStats {
	windowStart := now.Add(-statsWindow)

	r.mu.Lock()
	recent := make([]time.Duration, 0, perfRingSize)
	for _, s := range r.samples {
		if !s.at.IsZero() && s.at.After(windowStart) {
			recent = append(recent, s.latency)
		}
	}
	r.mu.Unlock()

	out := PerformanceStats{
		FrequencyHz:   float64(len(recent)),
		TotalMessages: r.total.Load(),
		Window:        statsWindow,
	}
	if len(recent) == 0 {
		return out
	}
	sort.Slice(recent, func(i, j int) bool { return recent[i] < recent[j] })
	out.MaxLatency = recent[len(recent)-1]
	p1 := len(recent) / 100
	if p1 >= len(recent) {
		p1 = len(recent) - 1
	}
	out.P1Latency = recent[p1]
	return out
}
