package output

import (
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/abdul-hamid-achik/hookspec/packages/core/runner"
)

// Latencies are recorded in microseconds between 1µs and 60s.
const (
	minLatencyUs = 1
	maxLatencyUs = 60_000_000
)

// Latency collects response times of sent steps.
type Latency struct {
	mu        sync.Mutex
	histogram *hdrhistogram.Histogram
}

// LatencySummary holds percentile figures of a Latency.
type LatencySummary struct {
	Count int64         `json:"count"`
	Min   time.Duration `json:"min"`
	Max   time.Duration `json:"max"`
	Mean  time.Duration `json:"mean"`
	P50   time.Duration `json:"p50"`
	P95   time.Duration `json:"p95"`
	P99   time.Duration `json:"p99"`
}

// NewLatency returns an empty recorder.
func NewLatency() *Latency {
	return &Latency{
		// 3 significant digits
		histogram: hdrhistogram.New(minLatencyUs, maxLatencyUs, 3),
	}
}

// Record adds one response time.
func (l *Latency) Record(d time.Duration) {
	us := d.Microseconds()
	if us < minLatencyUs {
		us = minLatencyUs
	}
	if us > maxLatencyUs {
		us = maxLatencyUs
	}

	l.mu.Lock()
	_ = l.histogram.RecordValue(us)
	l.mu.Unlock()
}

// RecordSuite records the response time of every step that got a response.
func (l *Latency) RecordSuite(result *runner.SuiteResult) {
	for _, c := range result.Cases {
		for _, s := range c.Steps {
			if s != nil && s.Response != nil {
				l.Record(s.Response.Duration)
			}
		}
	}
}

// Summary reports the recorded percentiles.
func (l *Latency) Summary() LatencySummary {
	l.mu.Lock()
	defer l.mu.Unlock()

	h := l.histogram
	if h.TotalCount() == 0 {
		return LatencySummary{}
	}
	return LatencySummary{
		Count: h.TotalCount(),
		Min:   time.Duration(h.Min()) * time.Microsecond,
		Max:   time.Duration(h.Max()) * time.Microsecond,
		Mean:  time.Duration(h.Mean()) * time.Microsecond,
		P50:   time.Duration(h.ValueAtQuantile(50)) * time.Microsecond,
		P95:   time.Duration(h.ValueAtQuantile(95)) * time.Microsecond,
		P99:   time.Duration(h.ValueAtQuantile(99)) * time.Microsecond,
	}
}
