package repository

import (
	"context"

	"VolRank/internal/domain/models"
)

// BarSource fetches the most recent bars for a symbol, oldest first. A
// backfill may return fewer than limit bars when history is short; a
// limit=1 latest-bar fetch must return exactly one.
type BarSource interface {
	FetchBars(ctx context.Context, symbol string, interval models.Interval, limit int) ([]models.Bar, error)
}

// SymbolListing exposes the two exchange listings the universe resolver
// intersects.
type SymbolListing interface {
	ListSpotSymbols(ctx context.Context) ([]models.SpotSymbol, error)
	ListDerivativeSymbols(ctx context.Context) ([]models.DerivativeSymbol, error)
}

// TrackedSetStore persists the ordered tracked-symbol set across runs.
// Load returns an empty set when nothing was persisted yet; Save is a full
// replace.
type TrackedSetStore interface {
	Load(ctx context.Context) ([]string, error)
	Save(ctx context.Context, symbols []string) error
}

// SnapshotSink receives the snapshot produced by each ranking pass.
type SnapshotSink interface {
	Publish(ctx context.Context, s *models.RankSnapshot) error
	Close() error
}

// BarStream pushes live bar updates for subscribed symbols.
type BarStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context, symbols []string) error
	Read(ctx context.Context) (<-chan models.BarEvent, <-chan error)
	Reconnect(ctx context.Context, symbols []string) error
	Close() error
	IsConnected() bool
}

// Metrics records operational signals from the ranking engine and its sinks.
type Metrics interface {
	RecordPass(pass string, symbols, skipped int, seconds float64)
	RecordSymbolSkipped(symbol, reason string)
	RecordUpdateOutcome(outcome string)
	RecordTopRatio(symbol string, ratio float64)
	RecordSnapshotSent(backend string)
	RecordError(kind string)
}
