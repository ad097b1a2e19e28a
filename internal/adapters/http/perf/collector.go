// Package perf keeps a rolling window of request, query and outbound-call
// timings for the development diagnostics endpoint.
package perf

import (
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultRingSize is the default capacity of the ring buffer.
const DefaultRingSize = 4096

// EntryKind distinguishes what was timed.
type EntryKind uint8

const (
	KindRequest EntryKind = iota
	KindQuery
	// KindOutbound covers calls to the payment gateway, the confirmation
	// backend and the report producer.
	KindOutbound
)

// Entry is a single timing record.
type Entry struct {
	Kind       EntryKind
	Path       string // "GET /", "exec INSERT ...", "toss.confirm"
	StatusCode int
	DurationMs float64
	Failed     bool
	Timestamp  time.Time
}

// Collector is a fixed-size ring buffer of entries. When full the oldest
// entry is overwritten. Aggregation happens only in Snapshot.
type Collector struct {
	mu      sync.Mutex
	entries []Entry
	pos     int
	count   atomic.Int64
}

// NewCollector creates a collector holding up to size entries.
// PRE: size > 0, otherwise DefaultRingSize is used
func NewCollector(size int) *Collector {
	if size <= 0 {
		size = DefaultRingSize
	}
	return &Collector{entries: make([]Entry, size)}
}

// Record stores e, overwriting the oldest entry when full. Safe on a nil
// collector.
func (c *Collector) Record(e Entry) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.entries[c.pos] = e
	c.pos = (c.pos + 1) % len(c.entries)
	c.mu.Unlock()
	c.count.Add(1)
}

// Track returns a func that records an outbound call named op when invoked
// with the call's error.
func (c *Collector) Track(op string) func(err error) {
	start := time.Now()
	return func(err error) {
		c.Record(Entry{
			Kind:       KindOutbound,
			Path:       op,
			DurationMs: float64(time.Since(start).Microseconds()) / 1000.0,
			Failed:     err != nil,
			Timestamp:  start,
		})
	}
}

// TotalRecorded returns the number of entries ever recorded.
func (c *Collector) TotalRecorded() int64 {
	if c == nil {
		return 0
	}
	return c.count.Load()
}

// Snapshot is the aggregated view served by the diagnostics endpoint.
type Snapshot struct {
	TotalRecorded   int64      `json:"total_recorded"`
	RequestP50Ms    float64    `json:"request_p50_ms"`
	RequestP95Ms    float64    `json:"request_p95_ms"`
	RequestP99Ms    float64    `json:"request_p99_ms"`
	SlowestPaths    []PathStat `json:"slowest_paths"`
	SlowestQueries  []PathStat `json:"slowest_queries"`
	SlowestOutbound []PathStat `json:"slowest_outbound"`
}

// PathStat aggregates timing for one path, query or outbound operation.
type PathStat struct {
	Path     string  `json:"path"`
	AvgMs    float64 `json:"avg_ms"`
	MaxMs    float64 `json:"max_ms"`
	Count    int     `json:"count"`
	Failures int     `json:"failures"`
	TotalMs  float64 `json:"-"`
}

// Snapshot aggregates entries recorded at or after since, keeping the topN
// slowest per kind.
func (c *Collector) Snapshot(since time.Time, topN int) Snapshot {
	c.mu.Lock()
	buf := make([]Entry, len(c.entries))
	copy(buf, c.entries)
	c.mu.Unlock()

	var requestDurations []float64
	stats := map[EntryKind]map[string]*PathStat{
		KindRequest:  {},
		KindQuery:    {},
		KindOutbound: {},
	}

	for _, e := range buf {
		if e.Timestamp.IsZero() || e.Timestamp.Before(since) {
			continue
		}
		byPath, ok := stats[e.Kind]
		if !ok {
			continue
		}
		if e.Kind == KindRequest {
			requestDurations = append(requestDurations, e.DurationMs)
		}
		s, ok := byPath[e.Path]
		if !ok {
			s = &PathStat{Path: e.Path}
			byPath[e.Path] = s
		}
		s.Count++
		s.TotalMs += e.DurationMs
		s.MaxMs = math.Max(s.MaxMs, e.DurationMs)
		if e.Failed {
			s.Failures++
		}
	}

	snap := Snapshot{
		TotalRecorded:   c.TotalRecorded(),
		SlowestPaths:    topByAvg(stats[KindRequest], topN),
		SlowestQueries:  topByAvg(stats[KindQuery], topN),
		SlowestOutbound: topByAvg(stats[KindOutbound], topN),
	}
	if len(requestDurations) > 0 {
		sort.Float64s(requestDurations)
		snap.RequestP50Ms = percentile(requestDurations, 50)
		snap.RequestP95Ms = percentile(requestDurations, 95)
		snap.RequestP99Ms = percentile(requestDurations, 99)
	}
	return snap
}

// percentile interpolates the p-th percentile of a sorted slice.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (p / 100) * float64(len(sorted)-1)
	lower := int(math.Floor(idx))
	upper := int(math.Ceil(idx))
	if lower == upper || upper >= len(sorted) {
		return sorted[lower]
	}
	frac := idx - float64(lower)
	return sorted[lower]*(1-frac) + sorted[upper]*frac
}

func topByAvg(stats map[string]*PathStat, n int) []PathStat {
	list := make([]PathStat, 0, len(stats))
	for _, s := range stats {
		s.AvgMs = s.TotalMs / float64(s.Count)
		list = append(list, *s)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].AvgMs == list[j].AvgMs {
			return list[i].Path < list[j].Path
		}
		return list[i].AvgMs > list[j].AvgMs
	})
	if n > 0 && len(list) > n {
		list = list[:n]
	}
	return list
}
