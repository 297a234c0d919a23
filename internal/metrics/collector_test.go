package metrics

import (
	"sync"
	"testing"
	"time"
)

func TestCollectorEmpty(t *testing.T) {
	snap := NewCollector().Snapshot()
	if snap.TextStream != nil || snap.ImageGenerate != nil {
		t.Errorf("expected nil operation snapshots, got %+v", snap)
	}
	if snap.Resets != 0 {
		t.Errorf("Resets = %d, want 0", snap.Resets)
	}
}

func TestCollectorRecord(t *testing.T) {
	c := NewCollector()
	c.Record(OpTextStream, 100*time.Millisecond, 3, 30, false)
	c.Record(OpTextStream, 300*time.Millisecond, 5, 70, true)
	c.Record(OpImageGenerate, 2*time.Second, 1, 4096, false)
	c.RecordReset()

	snap := c.Snapshot()
	ts := snap.TextStream
	if ts == nil {
		t.Fatal("TextStream snapshot missing")
	}

	checks := []struct {
		name string
		got  any
		want any
	}{
		{"count", ts.Count, int64(2)},
		{"failures", ts.Failures, int64(1)},
		{"total ms", ts.TotalTimeMs, int64(400)},
		{"avg ms", ts.AvgTimeMs, 200.0},
		{"min ms", ts.MinTimeMs, int64(100)},
		{"max ms", ts.MaxTimeMs, int64(300)},
		{"items", ts.TotalItems, int64(8)},
		{"bytes", ts.TotalBytes, int64(100)},
		{"image count", snap.ImageGenerate.Count, int64(1)},
		{"resets", snap.Resets, int64(1)},
	}
	for _, tt := range checks {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestCollectorConcurrent(t *testing.T) {
	c := NewCollector()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Record(OpTextStream, time.Millisecond, 1, 1, false)
			_ = c.Snapshot()
		}()
	}
	wg.Wait()

	if got := c.Snapshot().TextStream.Count; got != 50 {
		t.Errorf("Count = %d, want 50", got)
	}
}
