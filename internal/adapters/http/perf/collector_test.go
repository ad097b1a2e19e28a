package perf

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestCollector_RecordAndSnapshot(t *testing.T) {
	c := NewCollector(100)
	now := time.Now()

	c.Record(Entry{Kind: KindRequest, Path: "GET /", StatusCode: 200, DurationMs: 10, Timestamp: now})
	c.Record(Entry{Kind: KindRequest, Path: "GET /", StatusCode: 200, DurationMs: 30, Timestamp: now})
	c.Record(Entry{Kind: KindQuery, Path: "exec INSERT", DurationMs: 5, Timestamp: now})
	c.Record(Entry{Kind: KindOutbound, Path: "toss.confirm", DurationMs: 120, Failed: true, Timestamp: now})

	snap := c.Snapshot(now.Add(-time.Minute), 10)
	if snap.TotalRecorded != 4 {
		t.Errorf("TotalRecorded = %d, want 4", snap.TotalRecorded)
	}
	if len(snap.SlowestPaths) != 1 || snap.SlowestPaths[0].AvgMs != 20 {
		t.Fatalf("SlowestPaths = %+v", snap.SlowestPaths)
	}
	if len(snap.SlowestQueries) != 1 {
		t.Fatalf("SlowestQueries = %+v", snap.SlowestQueries)
	}
	if len(snap.SlowestOutbound) != 1 || snap.SlowestOutbound[0].Failures != 1 {
		t.Fatalf("SlowestOutbound = %+v", snap.SlowestOutbound)
	}
}

// TestCollector_RingBufferOverwrites verifies oldest entries are dropped when full.
func TestCollector_RingBufferOverwrites(t *testing.T) {
	c := NewCollector(3)
	now := time.Now()
	for i := 0; i < 5; i++ {
		c.Record(Entry{Kind: KindRequest, Path: "GET /x", DurationMs: float64(i), Timestamp: now})
	}

	if c.TotalRecorded() != 5 {
		t.Errorf("TotalRecorded = %d, want 5", c.TotalRecorded())
	}
	snap := c.Snapshot(now.Add(-time.Minute), 10)
	if snap.SlowestPaths[0].Count != 3 {
		t.Errorf("Count = %d, want 3", snap.SlowestPaths[0].Count)
	}
}

func TestCollector_Percentiles(t *testing.T) {
	c := NewCollector(200)
	now := time.Now()
	for i := 1; i <= 100; i++ {
		c.Record(Entry{Kind: KindRequest, Path: "GET /p", DurationMs: float64(i), Timestamp: now})
	}

	snap := c.Snapshot(now.Add(-time.Minute), 10)
	if snap.RequestP50Ms < 49 || snap.RequestP50Ms > 51 {
		t.Errorf("P50 = %v, want ~50", snap.RequestP50Ms)
	}
	if snap.RequestP99Ms < 98 || snap.RequestP99Ms > 100 {
		t.Errorf("P99 = %v, want ~99", snap.RequestP99Ms)
	}
}

func TestCollector_SnapshotFiltersBySince(t *testing.T) {
	c := NewCollector(100)
	c.Record(Entry{Kind: KindRequest, Path: "GET /old", DurationMs: 100, Timestamp: time.Now().Add(-2 * time.Hour)})
	c.Record(Entry{Kind: KindRequest, Path: "GET /new", DurationMs: 10, Timestamp: time.Now()})

	snap := c.Snapshot(time.Now().Add(-time.Hour), 10)
	if len(snap.SlowestPaths) != 1 || snap.SlowestPaths[0].Path != "GET /new" {
		t.Fatalf("SlowestPaths = %+v", snap.SlowestPaths)
	}
}

func TestCollector_Track(t *testing.T) {
	c := NewCollector(10)
	c.Track("sdk.fetch")(nil)
	c.Track("sdk.fetch")(errors.New("timeout"))

	snap := c.Snapshot(time.Time{}, 10)
	if len(snap.SlowestOutbound) != 1 {
		t.Fatalf("SlowestOutbound = %+v", snap.SlowestOutbound)
	}
	if got := snap.SlowestOutbound[0]; got.Count != 2 || got.Failures != 1 {
		t.Errorf("stat = %+v, want count 2 failures 1", got)
	}
}

func TestCollector_NilSafe(t *testing.T) {
	var c *Collector
	c.Record(Entry{})
	c.Track("x")(nil)
	if c.TotalRecorded() != 0 {
		t.Error("nil collector should report zero")
	}
}

// TestCollector_ConcurrentWrites verifies goroutine safety of Record.
func TestCollector_ConcurrentWrites(t *testing.T) {
	c := NewCollector(1000)
	now := time.Now()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				c.Record(Entry{Kind: KindRequest, Path: "GET /c", DurationMs: float64(n), Timestamp: now})
			}
		}(i)
	}
	wg.Wait()
	if c.TotalRecorded() != 1000 {
		t.Errorf("TotalRecorded = %d, want 1000", c.TotalRecorded())
	}
}

func BenchmarkCollectorRecord(b *testing.B) {
	c := NewCollector(DefaultRingSize)
	e := Entry{Kind: KindRequest, Path: "GET /", StatusCode: 200, DurationMs: 1.5, Timestamp: time.Now()}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		c.Record(e)
	}
}
