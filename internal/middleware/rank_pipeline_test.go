package middleware

import (
	"context"
	"testing"

	"VolRank/internal/domain/models"
	"VolRank/internal/usecase"
	"VolRank/pkg/cache"
	xlogger "VolRank/pkg/logger"
)

type noopMetrics struct{}

func (noopMetrics) RecordPass(string, int, int, float64) {}
func (noopMetrics) RecordSymbolSkipped(string, string)   {}
func (noopMetrics) RecordUpdateOutcome(string)           {}
func (noopMetrics) RecordTopRatio(string, float64)       {}
func (noopMetrics) RecordSnapshotSent(string)            {}
func (noopMetrics) RecordError(string)                   {}

type staticSource struct {
	backfill []models.Bar
	latest   models.Bar
}

func (s *staticSource) FetchBars(_ context.Context, _ string, _ models.Interval, limit int) ([]models.Bar, error) {
	if limit == 1 {
		return []models.Bar{s.latest}, nil
	}
	return s.backfill, nil
}

type recordingQueue struct {
	types []string
}

func (q *recordingQueue) PublishMessage(_ context.Context, msgType string, _ interface{}) error {
	q.types = append(q.types, msgType)
	return nil
}

func newTestPipeline(t *testing.T, src *staticSource, opts ...PipelineOption) (*RankPipeline, cache.Service) {
	t.Helper()
	lgr, err := xlogger.New(&xlogger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	engine := usecase.NewRankEngine(src, noopMetrics{}, lgr, models.Interval1h, 2)
	engine.SetSymbols([]string{"BTCUSDT"})
	proc := usecase.NewSnapshotProcessor(nil, nil, noopMetrics{}, "none")
	c := cache.NewMemoryCache()
	return NewRankPipeline(engine, proc, c, lgr, 2, 1, opts...), c
}

func TestRunPassInitialThenRefresh(t *testing.T) {
	src := &staticSource{
		backfill: []models.Bar{
			{StartTime: 0, EndTime: 59999, BuyingVolume: 2},
			{StartTime: 60000, EndTime: 119999, BuyingVolume: 6},
		},
		latest: models.Bar{StartTime: 120000, EndTime: 179999, BuyingVolume: 8},
	}
	p, c := newTestPipeline(t, src)

	first, err := p.RunPass(context.Background())
	if err != nil {
		t.Fatalf("first pass: %v", err)
	}
	if first.Pass != "initial" {
		t.Fatalf("expected initial pass, got %q", first.Pass)
	}

	second, err := p.RunPass(context.Background())
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if second.Pass != "refresh" {
		t.Fatalf("expected refresh pass, got %q", second.Pass)
	}

	var cached models.RankSnapshot
	if err := c.Get(context.Background(), p.LatestKey(), &cached); err != nil {
		t.Fatalf("cache read: %v", err)
	}
	if cached.Pass != "refresh" || len(cached.Entries) != 1 {
		t.Fatalf("stale leaderboard in cache: %+v", cached)
	}
}

func TestRunPassEnqueuesSnapshot(t *testing.T) {
	src := &staticSource{
		backfill: []models.Bar{
			{StartTime: 0, EndTime: 59999, BuyingVolume: 2},
			{StartTime: 60000, EndTime: 119999, BuyingVolume: 6},
		},
	}
	q := &recordingQueue{}
	p, _ := newTestPipeline(t, src, WithQueue(q))

	if _, err := p.RunPass(context.Background()); err != nil {
		t.Fatalf("pass: %v", err)
	}
	if len(q.types) != 1 || q.types[0] != MsgTypeSnapshot {
		t.Fatalf("expected one enqueued snapshot, got %v", q.types)
	}
}
