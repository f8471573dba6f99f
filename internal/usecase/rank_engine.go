package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"VolRank/internal/domain/models"
	drepo "VolRank/internal/domain/repository"
	xlogger "VolRank/pkg/logger"
)

// RankEngine maintains one BarWindow per tracked symbol and ranks symbols by
// the relative change between a short recent average and a longer past
// average of buying volume.
type RankEngine struct {
	source        drepo.BarSource
	metrics       drepo.Metrics
	logger        *xlogger.Logger
	interval      models.Interval
	maxWindowSize int
	workers       int

	mu      sync.Mutex
	windows map[string]*models.BarWindow
	locks   map[string]*sync.Mutex // serializes per-symbol window writes
	symbols []string               // tracked set, iteration order fixes tie-breaks
}

// EngineOption configures RankEngine.
type EngineOption func(*RankEngine)

// WithWorkers bounds the per-symbol fan-out of a ranking pass. Values below
// 1 keep the pass sequential.
func WithWorkers(n int) EngineOption {
	return func(e *RankEngine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// NewRankEngine creates an engine over the given bar source. Windows are
// populated lazily, at most one per symbol.
func NewRankEngine(
	source drepo.BarSource,
	metrics drepo.Metrics,
	logger *xlogger.Logger,
	interval models.Interval,
	maxWindowSize int,
	opts ...EngineOption,
) *RankEngine {
	e := &RankEngine{
		source:        source,
		metrics:       metrics,
		logger:        logger,
		interval:      interval,
		maxWindowSize: maxWindowSize,
		workers:       1,
		windows:       make(map[string]*models.BarWindow),
		locks:         make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SetSymbols replaces the tracked-symbol set. Windows of symbols that remain
// tracked are kept; windows of untracked symbols are dropped.
func (e *RankEngine) SetSymbols(symbols []string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	keep := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		keep[s] = struct{}{}
	}
	for s := range e.windows {
		if _, ok := keep[s]; !ok {
			delete(e.windows, s)
			delete(e.locks, s)
		}
	}
	e.symbols = append(e.symbols[:0], symbols...)
}

// Symbols returns the tracked set in ranking iteration order.
func (e *RankEngine) Symbols() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.symbols))
	copy(out, e.symbols)
	return out
}

// Interval returns the bar period the engine operates on.
func (e *RankEngine) Interval() models.Interval { return e.interval }

func (e *RankEngine) symbolLock(symbol string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.locks[symbol]
	if !ok {
		l = &sync.Mutex{}
		e.locks[symbol] = l
	}
	return l
}

func (e *RankEngine) window(symbol string) (*models.BarWindow, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	w, ok := e.windows[symbol]
	return w, ok
}

// WindowFor returns the cached window for symbol without initializing one.
func (e *RankEngine) WindowFor(symbol string) (*models.BarWindow, bool) {
	return e.window(symbol)
}

// GetOrInitWindow returns the cached window for symbol, backfilling
// maxWindowSize bars and caching the result on first use. A failed fetch
// leaves no partial window behind.
func (e *RankEngine) GetOrInitWindow(ctx context.Context, symbol string) (*models.BarWindow, error) {
	l := e.symbolLock(symbol)
	l.Lock()
	defer l.Unlock()

	if w, ok := e.window(symbol); ok {
		return w, nil
	}

	bars, err := e.source.FetchBars(ctx, symbol, e.interval, e.maxWindowSize)
	if err != nil {
		return nil, fmt.Errorf("backfill %s: %w", symbol, err)
	}
	w, err := models.NewBarWindow(bars, e.maxWindowSize)
	if err != nil {
		return nil, fmt.Errorf("backfill %s: %w", symbol, err)
	}

	e.mu.Lock()
	e.windows[symbol] = w
	e.mu.Unlock()
	return w, nil
}

// Refresh fetches the single most recent bar for symbol and applies it to
// the cached window. The window must already exist.
func (e *RankEngine) Refresh(ctx context.Context, symbol string) (models.UpdateOutcome, error) {
	l := e.symbolLock(symbol)
	l.Lock()
	defer l.Unlock()

	w, ok := e.window(symbol)
	if !ok {
		return models.UpdateRejected, fmt.Errorf("refresh %s: %w", symbol, models.ErrWindowNotInitialized)
	}

	bars, err := e.source.FetchBars(ctx, symbol, e.interval, 1)
	if err != nil {
		return models.UpdateRejected, fmt.Errorf("refresh %s: %w", symbol, err)
	}
	if len(bars) != 1 {
		return models.UpdateRejected, fmt.Errorf("refresh %s: expected one bar, got %d: %w",
			symbol, len(bars), models.ErrDataSource)
	}

	outcome := w.Update(bars[0])
	e.metrics.RecordUpdateOutcome(outcome.String())
	if outcome == models.UpdateRejected {
		e.logger.Warn("bar update rejected",
			xlogger.String("symbol", symbol),
			xlogger.Int64("last_start", w.Last().StartTime),
			xlogger.Int64("bar_start", bars[0].StartTime))
	}
	return outcome, nil
}

// ApplyBar applies a bar pushed by a live stream to the symbol's window.
// Symbols without an initialized window are ignored: the next ranking pass
// backfills them.
func (e *RankEngine) ApplyBar(symbol string, bar models.Bar) models.UpdateOutcome {
	l := e.symbolLock(symbol)
	l.Lock()
	defer l.Unlock()

	w, ok := e.window(symbol)
	if !ok {
		return models.UpdateRejected
	}
	outcome := w.Update(bar)
	e.metrics.RecordUpdateOutcome(outcome.String())
	return outcome
}

// Ratio computes the buying-volume momentum score for an initialized window:
// (recent average - past average) / past average, exactly 0 when the past
// average is 0.
func (e *RankEngine) Ratio(symbol string, pastSize, recentSize int) (float64, error) {
	if pastSize > e.maxWindowSize || recentSize > e.maxWindowSize {
		return 0, &models.RangeError{StartIndex: 0, WindowSize: max(pastSize, recentSize), Length: e.maxWindowSize}
	}

	w, ok := e.window(symbol)
	if !ok {
		return 0, fmt.Errorf("ratio %s: %w", symbol, models.ErrWindowNotInitialized)
	}

	// Non-negative starts address the most recent size bars and stay in
	// bounds when size equals the window length.
	past, err := w.AverageOver(w.Len()-pastSize, pastSize)
	if err != nil {
		return 0, fmt.Errorf("ratio %s: %w", symbol, err)
	}
	recent, err := w.AverageOver(w.Len()-recentSize, recentSize)
	if err != nil {
		return 0, fmt.Errorf("ratio %s: %w", symbol, err)
	}

	if past.BuyingVolume == 0 {
		return 0, nil
	}
	return (recent.BuyingVolume - past.BuyingVolume) / past.BuyingVolume, nil
}

// RankInitial backfills a window for every tracked symbol and returns the
// full ranking, ratio descending, ties kept in tracked-set order.
func (e *RankEngine) RankInitial(ctx context.Context, pastSize, recentSize int) *models.RankSnapshot {
	return e.rankPass(ctx, "initial", pastSize, recentSize, func(ctx context.Context, symbol string) error {
		_, err := e.GetOrInitWindow(ctx, symbol)
		return err
	})
}

// RankRefresh fetches the latest bar for every tracked symbol, slides its
// window, and returns the recomputed ranking. A rejected update skips the
// symbol for this pass only.
func (e *RankEngine) RankRefresh(ctx context.Context, pastSize, recentSize int) *models.RankSnapshot {
	return e.rankPass(ctx, "refresh", pastSize, recentSize, func(ctx context.Context, symbol string) error {
		outcome, err := e.Refresh(ctx, symbol)
		if err != nil {
			return err
		}
		if outcome == models.UpdateRejected {
			return fmt.Errorf("refresh %s: update rejected", symbol)
		}
		return nil
	})
}

// rankPass runs prepare then Ratio for every tracked symbol, in parallel up
// to the worker bound. Results land in a slot per symbol position so the
// join is deterministic regardless of fetch latencies; a failing symbol is
// skipped, never fatal to the pass.
func (e *RankEngine) rankPass(ctx context.Context, pass string, pastSize, recentSize int,
	prepare func(context.Context, string) error) *models.RankSnapshot {

	start := time.Now()
	symbols := e.Symbols()
	results := make([]*models.RankEntry, len(symbols))
	skipped := make([]string, 0)
	var skipMu sync.Mutex

	workers := e.workers
	if workers > len(symbols) {
		workers = len(symbols)
	}
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				symbol := symbols[i]
				if err := prepare(ctx, symbol); err != nil {
					e.skip(symbol, pass, err, &skipped, &skipMu)
					continue
				}
				ratio, err := e.Ratio(symbol, pastSize, recentSize)
				if err != nil {
					e.skip(symbol, pass, err, &skipped, &skipMu)
					continue
				}
				results[i] = &models.RankEntry{Symbol: symbol, Ratio: ratio}
			}
		}()
	}
	for i := range symbols {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	entries := make([]models.RankEntry, 0, len(symbols))
	for _, r := range results {
		if r != nil {
			entries = append(entries, *r)
		}
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Ratio > entries[j].Ratio })

	if len(entries) > 0 {
		e.metrics.RecordTopRatio(entries[0].Symbol, entries[0].Ratio)
	}
	e.metrics.RecordPass(pass, len(entries), len(skipped), time.Since(start).Seconds())

	return &models.RankSnapshot{
		Timestamp:  time.Now().UTC(),
		Pass:       pass,
		Interval:   e.interval,
		PastSize:   pastSize,
		RecentSize: recentSize,
		Skipped:    skipped,
		Entries:    entries,
	}
}

func (e *RankEngine) skip(symbol, pass string, err error, skipped *[]string, mu *sync.Mutex) {
	mu.Lock()
	*skipped = append(*skipped, symbol)
	mu.Unlock()

	e.metrics.RecordSymbolSkipped(symbol, skipReason(err))
	e.logger.Warn("symbol skipped for this pass",
		xlogger.String("pass", pass),
		xlogger.String("symbol", symbol),
		xlogger.Error(err))
}

func skipReason(err error) string {
	var malformed *models.MalformedBarError
	var rng *models.RangeError
	switch {
	case errors.As(err, &malformed):
		return "malformed_bar"
	case errors.As(err, &rng):
		return "range"
	case errors.Is(err, models.ErrWindowNotInitialized):
		return "uninitialized"
	case errors.Is(err, models.ErrDataSource):
		return "data_source"
	default:
		return "rejected"
	}
}
