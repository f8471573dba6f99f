package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"VolRank/internal/domain/models"
	xlogger "VolRank/pkg/logger"
)

func testLogger(t *testing.T) *xlogger.Logger {
	t.Helper()
	l, err := xlogger.New(&xlogger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

type fakeMetrics struct {
	mu       sync.Mutex
	outcomes map[string]int
	skipped  map[string]string
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{outcomes: make(map[string]int), skipped: make(map[string]string)}
}

func (m *fakeMetrics) RecordPass(string, int, int, float64) {}
func (m *fakeMetrics) RecordSymbolSkipped(symbol, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.skipped[symbol] = reason
}
func (m *fakeMetrics) RecordUpdateOutcome(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes[outcome]++
}
func (m *fakeMetrics) RecordTopRatio(string, float64) {}
func (m *fakeMetrics) RecordSnapshotSent(string)      {}
func (m *fakeMetrics) RecordError(string)             {}

// fakeSource serves a fixed backfill per symbol and, for limit 1 requests,
// the configured latest bar.
type fakeSource struct {
	mu        sync.Mutex
	backfills map[string][]models.Bar
	latest    map[string]models.Bar
	errs      map[string]error
	fetches   map[string]int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		backfills: make(map[string][]models.Bar),
		latest:    make(map[string]models.Bar),
		errs:      make(map[string]error),
		fetches:   make(map[string]int),
	}
}

func (s *fakeSource) FetchBars(_ context.Context, symbol string, _ models.Interval, limit int) ([]models.Bar, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetches[symbol]++
	if err, ok := s.errs[symbol]; ok {
		return nil, err
	}
	if limit == 1 {
		return []models.Bar{s.latest[symbol]}, nil
	}
	return s.backfills[symbol], nil
}

func (s *fakeSource) fetchCount(symbol string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetches[symbol]
}

func barsWithBuying(buyingVolumes ...float64) []models.Bar {
	bars := make([]models.Bar, len(buyingVolumes))
	for i, v := range buyingVolumes {
		bars[i] = models.Bar{
			StartTime:    int64(i * 60000),
			EndTime:      int64(i*60000 + 59999),
			BuyingVolume: v,
		}
	}
	return bars
}

func newTestEngine(t *testing.T, src *fakeSource, maxSize int) (*RankEngine, *fakeMetrics) {
	t.Helper()
	m := newFakeMetrics()
	e := NewRankEngine(src, m, testLogger(t), models.Interval1h, maxSize, WithWorkers(4))
	return e, m
}

func TestGetOrInitWindowCachesBackfill(t *testing.T) {
	src := newFakeSource()
	src.backfills["BTCUSDT"] = barsWithBuying(1, 2, 3, 4)
	e, _ := newTestEngine(t, src, 4)
	e.SetSymbols([]string{"BTCUSDT"})

	w1, err := e.GetOrInitWindow(context.Background(), "BTCUSDT")
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	w2, err := e.GetOrInitWindow(context.Background(), "BTCUSDT")
	if err != nil {
		t.Fatalf("second init: %v", err)
	}
	if w1 != w2 {
		t.Fatalf("expected the cached window on second call")
	}
	if got := src.fetchCount("BTCUSDT"); got != 1 {
		t.Fatalf("expected one backfill fetch, got %d", got)
	}
}

func TestGetOrInitWindowFetchFailureLeavesNothing(t *testing.T) {
	src := newFakeSource()
	src.errs["BTCUSDT"] = fmt.Errorf("boom: %w", models.ErrDataSource)
	e, _ := newTestEngine(t, src, 4)
	e.SetSymbols([]string{"BTCUSDT"})

	if _, err := e.GetOrInitWindow(context.Background(), "BTCUSDT"); err == nil {
		t.Fatalf("expected fetch error")
	}
	if _, ok := e.WindowFor("BTCUSDT"); ok {
		t.Fatalf("failed backfill must not cache a window")
	}
}

func TestRatio(t *testing.T) {
	src := newFakeSource()
	// Past mean over 4 bars is 2, recent mean over the last bar is 8.
	src.backfills["BTCUSDT"] = barsWithBuying(0, 0, 0, 8)
	e, _ := newTestEngine(t, src, 4)
	e.SetSymbols([]string{"BTCUSDT"})
	if _, err := e.GetOrInitWindow(context.Background(), "BTCUSDT"); err != nil {
		t.Fatalf("init: %v", err)
	}

	ratio, err := e.Ratio("BTCUSDT", 4, 1)
	if err != nil {
		t.Fatalf("ratio: %v", err)
	}
	if ratio != 3.0 {
		t.Fatalf("expected ratio 3.0, got %v", ratio)
	}
}

func TestRatioZeroPastAverage(t *testing.T) {
	src := newFakeSource()
	src.backfills["NEWUSDT"] = barsWithBuying(0, 0, 0, 0)
	e, _ := newTestEngine(t, src, 4)
	e.SetSymbols([]string{"NEWUSDT"})
	if _, err := e.GetOrInitWindow(context.Background(), "NEWUSDT"); err != nil {
		t.Fatalf("init: %v", err)
	}

	ratio, err := e.Ratio("NEWUSDT", 4, 1)
	if err != nil {
		t.Fatalf("ratio: %v", err)
	}
	if ratio != 0 {
		t.Fatalf("zero past average must score exactly 0, got %v", ratio)
	}
}

func TestRatioUninitializedWindow(t *testing.T) {
	e, _ := newTestEngine(t, newFakeSource(), 4)
	_, err := e.Ratio("BTCUSDT", 4, 1)
	if !errors.Is(err, models.ErrWindowNotInitialized) {
		t.Fatalf("expected ErrWindowNotInitialized, got %v", err)
	}
}

func TestRatioSizesBeyondCapacity(t *testing.T) {
	e, _ := newTestEngine(t, newFakeSource(), 4)
	_, err := e.Ratio("BTCUSDT", 5, 1)
	var rng *models.RangeError
	if !errors.As(err, &rng) {
		t.Fatalf("expected RangeError, got %v", err)
	}
}

func TestRankInitialOrderingAndTies(t *testing.T) {
	src := newFakeSource()
	// past mean over 2 bars vs recent mean over the last bar.
	src.backfills["AUSDT"] = barsWithBuying(2, 6)  // past 4, recent 6 -> 0.5
	src.backfills["BUSDT"] = barsWithBuying(4, 12) // past 8, recent 12 -> 0.5
	src.backfills["CUSDT"] = barsWithBuying(1, 5)  // past 3, recent 5 -> 0.666...
	src.errs["DUSDT"] = fmt.Errorf("down: %w", models.ErrDataSource)
	e, m := newTestEngine(t, src, 2)
	e.SetSymbols([]string{"AUSDT", "BUSDT", "CUSDT", "DUSDT"})

	snap := e.RankInitial(context.Background(), 2, 1)
	if snap.Pass != "initial" {
		t.Fatalf("unexpected pass label %q", snap.Pass)
	}
	got := make([]string, len(snap.Entries))
	for i, en := range snap.Entries {
		got[i] = en.Symbol
	}
	want := []string{"CUSDT", "AUSDT", "BUSDT"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
	if len(snap.Skipped) != 1 || snap.Skipped[0] != "DUSDT" {
		t.Fatalf("expected DUSDT skipped, got %v", snap.Skipped)
	}
	if m.skipped["DUSDT"] != "data_source" {
		t.Fatalf("expected data_source skip reason, got %q", m.skipped["DUSDT"])
	}
}

func TestRankRefreshSlidesWindows(t *testing.T) {
	src := newFakeSource()
	src.backfills["AUSDT"] = barsWithBuying(2, 2)
	e, m := newTestEngine(t, src, 2)
	e.SetSymbols([]string{"AUSDT"})
	if snap := e.RankInitial(context.Background(), 2, 1); len(snap.Entries) != 1 {
		t.Fatalf("initial pass failed: %+v", snap)
	}

	// A strictly newer bar advances the window.
	src.mu.Lock()
	src.latest["AUSDT"] = models.Bar{StartTime: 2 * 60000, EndTime: 2*60000 + 59999, BuyingVolume: 6}
	src.mu.Unlock()

	snap := e.RankRefresh(context.Background(), 2, 1)
	if snap.Pass != "refresh" {
		t.Fatalf("unexpected pass label %q", snap.Pass)
	}
	if len(snap.Entries) != 1 {
		t.Fatalf("expected one entry, got %+v", snap)
	}
	// Window is now [2, 6]: past mean 4, recent 6.
	if snap.Entries[0].Ratio != 0.5 {
		t.Fatalf("expected ratio 0.5, got %v", snap.Entries[0].Ratio)
	}
	if m.outcomes["advanced"] != 1 {
		t.Fatalf("expected one advance, got %v", m.outcomes)
	}
}

func TestRankRefreshRejectedUpdateSkipsSymbol(t *testing.T) {
	src := newFakeSource()
	src.backfills["AUSDT"] = barsWithBuying(2, 2)
	e, _ := newTestEngine(t, src, 2)
	e.SetSymbols([]string{"AUSDT"})
	e.RankInitial(context.Background(), 2, 1)

	// Stale bar, older than the window tail.
	src.mu.Lock()
	src.latest["AUSDT"] = models.Bar{StartTime: -60000, EndTime: -1, BuyingVolume: 9}
	src.mu.Unlock()

	snap := e.RankRefresh(context.Background(), 2, 1)
	if len(snap.Entries) != 0 || len(snap.Skipped) != 1 {
		t.Fatalf("expected the symbol skipped, got %+v", snap)
	}
	w, ok := e.WindowFor("AUSDT")
	if !ok || w.Last().BuyingVolume != 2 {
		t.Fatalf("rejected update must leave the window unchanged")
	}
}

func TestApplyBarIgnoresUninitializedSymbol(t *testing.T) {
	e, _ := newTestEngine(t, newFakeSource(), 2)
	if got := e.ApplyBar("GHOSTUSDT", models.Bar{StartTime: 0, EndTime: 1}); got != models.UpdateRejected {
		t.Fatalf("expected rejection for uninitialized symbol, got %v", got)
	}
}

func TestSetSymbolsDropsUntrackedWindows(t *testing.T) {
	src := newFakeSource()
	src.backfills["AUSDT"] = barsWithBuying(1, 2)
	e, _ := newTestEngine(t, src, 2)
	e.SetSymbols([]string{"AUSDT"})
	if _, err := e.GetOrInitWindow(context.Background(), "AUSDT"); err != nil {
		t.Fatalf("init: %v", err)
	}

	e.SetSymbols([]string{"BUSDT"})
	if _, ok := e.WindowFor("AUSDT"); ok {
		t.Fatalf("untracked window must be dropped")
	}
}
