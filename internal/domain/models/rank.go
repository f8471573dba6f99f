package models

import "time"

// RankEntry is one symbol's momentum score within a ranking pass.
type RankEntry struct {
	Symbol string  `json:"symbol"`
	Ratio  float64 `json:"ratio"`
}

// RankSnapshot is the full ranking produced by one pass, sorted by ratio
// descending. Truncation to a top-K happens at the query boundary, never
// here.
type RankSnapshot struct {
	Timestamp  time.Time   `json:"timestamp"`
	Pass       string      `json:"pass"` // "initial" or "refresh"
	Interval   Interval    `json:"interval"`
	PastSize   int         `json:"past_window_size"`
	RecentSize int         `json:"recent_window_size"`
	Skipped    []string    `json:"skipped,omitempty"`
	Entries    []RankEntry `json:"entries"`
}

// Top returns the first k entries, or all of them when k <= 0 or exceeds
// the snapshot length.
func (s *RankSnapshot) Top(k int) []RankEntry {
	if k <= 0 || k >= len(s.Entries) {
		return s.Entries
	}
	return s.Entries[:k]
}

// SpotSymbol is one entry of the spot exchange listing.
type SpotSymbol struct {
	Symbol string `json:"symbol"`
	Status string `json:"status"`
}

// DerivativeSymbol is one entry of the derivatives exchange listing.
type DerivativeSymbol struct {
	Pair string `json:"pair"`
}

// StatusTrading is the spot listing status of an actively trading symbol.
const StatusTrading = "TRADING"
