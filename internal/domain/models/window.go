package models

import (
	"fmt"
	"sync"
)

// UpdateOutcome is the result of applying a newly fetched bar to a window.
// A rejection is an outcome, not an error: the caller decides whether to
// retry on the next tick.
type UpdateOutcome int

const (
	// UpdateRevised means the incoming bar was a still-forming revision of
	// the window's last bar and replaced it.
	UpdateRevised UpdateOutcome = iota
	// UpdateAdvanced means the incoming bar opened a new interval: the
	// oldest bar was evicted and the new one appended.
	UpdateAdvanced
	// UpdateRejected means the incoming bar was temporally inconsistent
	// with the window tail; the window is unchanged.
	UpdateRejected
)

func (o UpdateOutcome) String() string {
	switch o {
	case UpdateRevised:
		return "revised"
	case UpdateAdvanced:
		return "advanced"
	case UpdateRejected:
		return "rejected"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Applied reports whether the window changed.
func (o UpdateOutcome) Applied() bool { return o != UpdateRejected }

// WindowAverage is the arithmetic mean of the volume-side fields over a
// contiguous sub-range of a window, tagged with the indices it was asked for.
type WindowAverage struct {
	Turnover         float64 `json:"turnover"`
	Volume           float64 `json:"volume"`
	TransactionCount float64 `json:"transaction_count"`
	BuyingTurnover   float64 `json:"buying_turnover"`
	BuyingVolume     float64 `json:"buying_volume"`
	StartIndex       int     `json:"start_index"`
	EndIndex         int     `json:"end_index"`
}

// BarWindow is a fixed-capacity, start-time-ascending sequence of bars for
// one symbol. It holds the most recent maxSize intervals as of the last
// refresh and is never persisted. Safe for concurrent use: stream pushes and
// window reads run against refresh passes.
type BarWindow struct {
	mu      sync.RWMutex
	bars    []Bar
	maxSize int
}

// NewBarWindow builds a window from an initial backfill, oldest first. A
// backfill shorter than maxSize is a smaller window, not an error; a longer
// one or an out-of-order one is rejected.
func NewBarWindow(bars []Bar, maxSize int) (*BarWindow, error) {
	if maxSize <= 0 {
		return nil, fmt.Errorf("window max size must be positive, got %d", maxSize)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("window requires at least one bar")
	}
	if len(bars) > maxSize {
		return nil, fmt.Errorf("backfill of %d bars exceeds window capacity %d", len(bars), maxSize)
	}
	for i := 1; i < len(bars); i++ {
		if bars[i].StartTime <= bars[i-1].StartTime {
			return nil, fmt.Errorf("backfill not strictly ordered at index %d: %d <= %d",
				i, bars[i].StartTime, bars[i-1].StartTime)
		}
	}
	w := &BarWindow{bars: make([]Bar, len(bars)), maxSize: maxSize}
	copy(w.bars, bars)
	return w, nil
}

// Len returns the number of bars currently held.
func (w *BarWindow) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.bars)
}

// MaxSize returns the fixed capacity of the window.
func (w *BarWindow) MaxSize() int { return w.maxSize }

// Last returns the most recent bar.
func (w *BarWindow) Last() Bar {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.bars[len(w.bars)-1]
}

// Bars returns a copy of the window contents, oldest first.
func (w *BarWindow) Bars() []Bar {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]Bar, len(w.bars))
	copy(out, w.bars)
	return out
}

// Update applies the latest fetched bar. A bar sharing the last bar's start
// time revises it in place; a strictly newer bar evicts the oldest and
// appends; anything else (stale or out-of-order data from the source) is
// rejected and the window is left untouched.
func (w *BarWindow) Update(nb Bar) UpdateOutcome {
	w.mu.Lock()
	defer w.mu.Unlock()
	last := w.bars[len(w.bars)-1]
	switch {
	case nb.EndTime >= last.EndTime && nb.StartTime == last.StartTime:
		w.bars[len(w.bars)-1] = nb
		return UpdateRevised
	case nb.EndTime >= last.EndTime && nb.StartTime > last.StartTime:
		if len(w.bars) == w.maxSize {
			w.bars = append(w.bars[:0], w.bars[1:]...)
		}
		w.bars = append(w.bars, nb)
		return UpdateAdvanced
	default:
		return UpdateRejected
	}
}

// AverageOver computes the mean of each volume-side field over the sub-range
// [startIndex, startIndex+windowSize). A negative startIndex addresses
// length+startIndex, and each position inside the range resolves negatively
// on its own, so a range may wrap from the tail back to the head exactly the
// way per-element negative indexing does.
func (w *BarWindow) AverageOver(startIndex, windowSize int) (WindowAverage, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	n := len(w.bars)
	if abs(startIndex) >= n || abs(windowSize) > n || abs(startIndex+windowSize) > n {
		return WindowAverage{}, &RangeError{StartIndex: startIndex, WindowSize: windowSize, Length: n}
	}
	if windowSize == 0 {
		return WindowAverage{}, &RangeError{StartIndex: startIndex, WindowSize: windowSize, Length: n}
	}

	var turnover, volume, buyingTurnover, buyingVolume float64
	var trades int64
	for i := startIndex; i < startIndex+windowSize; i++ {
		idx := i
		if idx < 0 {
			idx += n
		}
		b := w.bars[idx]
		turnover += b.Turnover
		volume += b.Volume
		trades += b.TradeCount
		buyingTurnover += b.BuyingTurnover
		buyingVolume += b.BuyingVolume
	}

	size := float64(windowSize)
	return WindowAverage{
		Turnover:         turnover / size,
		Volume:           volume / size,
		TransactionCount: float64(trades) / size,
		BuyingTurnover:   buyingTurnover / size,
		BuyingVolume:     buyingVolume / size,
		StartIndex:       startIndex,
		EndIndex:         startIndex + windowSize - 1,
	}, nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
