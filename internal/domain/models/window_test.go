package models

import (
	"errors"
	"math"
	"sync"
	"testing"
)

func mkBar(start, end int64, buyingVolume float64) Bar {
	return Bar{
		StartTime:    start,
		EndTime:      end,
		Volume:       buyingVolume * 2,
		BuyingVolume: buyingVolume,
	}
}

func mkWindow(t *testing.T, maxSize int, buyingVolumes ...float64) *BarWindow {
	t.Helper()
	bars := make([]Bar, len(buyingVolumes))
	for i, v := range buyingVolumes {
		bars[i] = mkBar(int64(i*60000), int64(i*60000+59999), v)
	}
	w, err := NewBarWindow(bars, maxSize)
	if err != nil {
		t.Fatalf("NewBarWindow: %v", err)
	}
	return w
}

func TestNewBarWindowValidation(t *testing.T) {
	if _, err := NewBarWindow(nil, 5); err == nil {
		t.Fatalf("expected error for empty backfill")
	}
	if _, err := NewBarWindow([]Bar{mkBar(0, 1, 1)}, 0); err == nil {
		t.Fatalf("expected error for zero capacity")
	}
	if _, err := NewBarWindow([]Bar{mkBar(0, 1, 1), mkBar(2, 3, 1), mkBar(4, 5, 1)}, 2); err == nil {
		t.Fatalf("expected error for backfill exceeding capacity")
	}
	if _, err := NewBarWindow([]Bar{mkBar(60000, 119999, 1), mkBar(0, 59999, 1)}, 5); err == nil {
		t.Fatalf("expected error for out-of-order backfill")
	}
	// A backfill shorter than capacity is a smaller window, not an error.
	w, err := NewBarWindow([]Bar{mkBar(0, 59999, 1)}, 5)
	if err != nil {
		t.Fatalf("short backfill: %v", err)
	}
	if w.Len() != 1 || w.MaxSize() != 5 {
		t.Fatalf("unexpected window shape: len=%d max=%d", w.Len(), w.MaxSize())
	}
}

func TestUpdateRevision(t *testing.T) {
	w := mkWindow(t, 5, 1, 2, 3)
	last := w.Last()

	nb := mkBar(last.StartTime, last.EndTime, 9)
	if got := w.Update(nb); got != UpdateRevised {
		t.Fatalf("expected revision, got %v", got)
	}
	if w.Len() != 3 || w.Last().BuyingVolume != 9 {
		t.Fatalf("revision not applied: len=%d last=%v", w.Len(), w.Last())
	}

	// Re-applying the same revision is idempotent.
	if got := w.Update(nb); got != UpdateRevised {
		t.Fatalf("expected revision on replay, got %v", got)
	}
	if w.Len() != 3 || w.Last().BuyingVolume != 9 {
		t.Fatalf("replayed revision changed the window: len=%d last=%v", w.Len(), w.Last())
	}
}

func TestUpdateAdvanceEvictsOldest(t *testing.T) {
	w := mkWindow(t, 3, 1, 2, 3)
	last := w.Last()

	nb := mkBar(last.StartTime+60000, last.EndTime+60000, 4)
	if got := w.Update(nb); got != UpdateAdvanced {
		t.Fatalf("expected advance, got %v", got)
	}
	bars := w.Bars()
	if len(bars) != 3 {
		t.Fatalf("window grew past capacity: %d", len(bars))
	}
	if bars[0].BuyingVolume != 2 || bars[2].BuyingVolume != 4 {
		t.Fatalf("unexpected contents after advance: %v", bars)
	}
}

func TestUpdateAdvanceKeepsLengthAtCapacity(t *testing.T) {
	w := mkWindow(t, 3, 1, 2, 3)

	// Each advance at capacity evicts exactly one bar and appends one.
	for i := 0; i < 5; i++ {
		last := w.Last()
		nb := mkBar(last.StartTime+60000, last.EndTime+60000, last.BuyingVolume+1)
		if got := w.Update(nb); got != UpdateAdvanced {
			t.Fatalf("advance %d: expected advance, got %v", i, got)
		}
		if w.Len() != 3 {
			t.Fatalf("advance %d: length changed to %d", i, w.Len())
		}
		if w.Last() != nb {
			t.Fatalf("advance %d: newest bar missing, last=%v", i, w.Last())
		}
	}
	bars := w.Bars()
	if bars[0].BuyingVolume != 6 || bars[1].BuyingVolume != 7 || bars[2].BuyingVolume != 8 {
		t.Fatalf("unexpected contents after repeated advances: %v", bars)
	}
}

func TestUpdateAdvanceBelowCapacity(t *testing.T) {
	w := mkWindow(t, 5, 1, 2)
	last := w.Last()

	if got := w.Update(mkBar(last.StartTime+60000, last.EndTime+60000, 3)); got != UpdateAdvanced {
		t.Fatalf("expected advance, got %v", got)
	}
	if w.Len() != 3 {
		t.Fatalf("expected growth to 3, got %d", w.Len())
	}
}

func TestUpdateRejectLeavesWindowUnchanged(t *testing.T) {
	w := mkWindow(t, 5, 1, 2, 3)
	before := w.Bars()
	last := w.Last()

	stale := []Bar{
		mkBar(last.StartTime-60000, last.EndTime-60000, 9), // older interval
		mkBar(last.StartTime, last.EndTime-1, 9),           // same start, shorter end
		mkBar(last.StartTime+60000, last.EndTime-1, 9),     // newer start, older end
	}
	for _, nb := range stale {
		if got := w.Update(nb); got != UpdateRejected {
			t.Fatalf("expected rejection for %+v, got %v", nb, got)
		}
	}
	after := w.Bars()
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("rejected update mutated the window at %d", i)
		}
	}
	if UpdateRejected.Applied() {
		t.Fatalf("rejection must not count as applied")
	}
}

func TestAverageOverTail(t *testing.T) {
	w := mkWindow(t, 10, 1, 2, 3, 4, 5, 6)

	avg, err := w.AverageOver(-3, 3)
	if err != nil {
		t.Fatalf("AverageOver: %v", err)
	}
	if avg.BuyingVolume != 5 {
		t.Fatalf("expected tail mean 5, got %v", avg.BuyingVolume)
	}
	if avg.StartIndex != -3 || avg.EndIndex != -1 {
		t.Fatalf("unexpected index tags: %d..%d", avg.StartIndex, avg.EndIndex)
	}
}

func TestAverageOverWrapsPerElement(t *testing.T) {
	// Range [-1, 1) resolves element -1 to the tail and element 0 to the
	// head, so the mean wraps around the window boundary.
	w := mkWindow(t, 10, 10, 20, 30, 40)

	avg, err := w.AverageOver(-1, 2)
	if err != nil {
		t.Fatalf("AverageOver: %v", err)
	}
	want := (40.0 + 10.0) / 2
	if math.Abs(avg.BuyingVolume-want) > 1e-12 {
		t.Fatalf("expected wrapped mean %v, got %v", want, avg.BuyingVolume)
	}
}

func TestAverageOverRangeErrors(t *testing.T) {
	w := mkWindow(t, 10, 1, 2, 3)

	cases := []struct{ start, size int }{
		{-4, 3}, // |start| >= len
		{3, 1},  // start past the end
		{0, 4},  // size > len
		{1, 3},  // start+size past the end
		{0, 0},  // empty range
	}
	for _, c := range cases {
		_, err := w.AverageOver(c.start, c.size)
		var rng *RangeError
		if !errors.As(err, &rng) {
			t.Fatalf("AverageOver(%d, %d): expected RangeError, got %v", c.start, c.size, err)
		}
	}
}

func TestWindowConcurrentReadersAndWriter(t *testing.T) {
	w := mkWindow(t, 5, 1, 2, 3, 4, 5)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			last := w.Last()
			w.Update(mkBar(last.StartTime+60000, last.EndTime+60000, last.BuyingVolume+1))
		}
	}()
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				bars := w.Bars()
				if len(bars) != 5 {
					t.Errorf("window length drifted to %d", len(bars))
					return
				}
				if _, err := w.AverageOver(len(bars)-2, 2); err != nil {
					t.Errorf("AverageOver under contention: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	bars := w.Bars()
	for i := 1; i < len(bars); i++ {
		if bars[i].StartTime <= bars[i-1].StartTime {
			t.Fatalf("ordering broken at %d: %v", i, bars)
		}
	}
	if w.Last().BuyingVolume != 505 {
		t.Fatalf("expected 500 advances applied, last=%v", w.Last())
	}
}
