package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"VolRank/internal/domain/models"
	"VolRank/internal/usecase"
	"VolRank/pkg/cache"
	xlogger "VolRank/pkg/logger"
	"VolRank/pkg/queue"
)

// MsgTypeSnapshot is the queue message type carrying one ranking snapshot.
const MsgTypeSnapshot = "rank.snapshot"

// RankPipeline sits between the scheduler and the ranking engine: it runs
// one pass at a time, publishes the leaderboard to the read cache for the
// HTTP layer, and hands the snapshot off for persistence without blocking
// the next tick.
type RankPipeline struct {
	engine     *usecase.RankEngine
	proc       *usecase.SnapshotProcessor
	cache      cache.Service
	queue      queue.QueueService
	logger     *xlogger.Logger
	pastSize   int
	recentSize int
	cacheTTL   time.Duration

	mu          sync.Mutex // passes are mutually exclusive
	initialized bool
}

// PipelineOption configures RankPipeline.
type PipelineOption func(*RankPipeline)

// WithCacheTTL bounds how long a stale leaderboard may be served after
// passes stop succeeding.
func WithCacheTTL(ttl time.Duration) PipelineOption {
	return func(p *RankPipeline) {
		if ttl > 0 {
			p.cacheTTL = ttl
		}
	}
}

// WithQueue routes snapshot persistence through an async job queue instead
// of calling the processor inline.
func WithQueue(q queue.QueueService) PipelineOption {
	return func(p *RankPipeline) {
		p.queue = q
	}
}

// NewRankPipeline creates a pipeline computing ratios over the given past
// and recent window sizes.
func NewRankPipeline(
	engine *usecase.RankEngine,
	proc *usecase.SnapshotProcessor,
	c cache.Service,
	logger *xlogger.Logger,
	pastSize, recentSize int,
	opts ...PipelineOption,
) *RankPipeline {
	p := &RankPipeline{
		engine:     engine,
		proc:       proc,
		cache:      c,
		logger:     logger,
		pastSize:   pastSize,
		recentSize: recentSize,
		cacheTTL:   10 * time.Minute,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// LatestKey returns the cache key the current leaderboard is published
// under.
func (p *RankPipeline) LatestKey() string {
	return LatestKeyFor(p.engine.Interval())
}

// LatestKeyFor returns the leaderboard cache key for an interval.
func LatestKeyFor(interval models.Interval) string {
	return "rank:latest:" + string(interval)
}

// RunPass executes one ranking pass: an initial backfill pass on first call,
// refresh passes afterwards. The snapshot is cached for readers and queued
// for persistence; neither failure fails the pass.
func (p *RankPipeline) RunPass(ctx context.Context) (*models.RankSnapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var snap *models.RankSnapshot
	if !p.initialized {
		snap = p.engine.RankInitial(ctx, p.pastSize, p.recentSize)
		p.initialized = true
	} else {
		snap = p.engine.RankRefresh(ctx, p.pastSize, p.recentSize)
	}

	if len(snap.Entries) == 0 && len(snap.Skipped) > 0 {
		return snap, fmt.Errorf("pass %s ranked nothing: %d symbols skipped", snap.Pass, len(snap.Skipped))
	}

	if err := p.cache.Set(ctx, p.LatestKey(), snap, p.cacheTTL); err != nil {
		p.logger.Warn("leaderboard cache write failed", xlogger.Error(err))
	}

	p.persist(ctx, snap)

	p.logger.Info("ranking pass complete",
		xlogger.String("pass", snap.Pass),
		xlogger.Int("ranked", len(snap.Entries)),
		xlogger.Int("skipped", len(snap.Skipped)))
	return snap, nil
}

func (p *RankPipeline) persist(ctx context.Context, snap *models.RankSnapshot) {
	if p.queue != nil {
		if err := p.queue.PublishMessage(ctx, MsgTypeSnapshot, snap); err != nil {
			p.logger.Warn("snapshot enqueue failed, persisting inline", xlogger.Error(err))
		} else {
			return
		}
	}
	if err := p.proc.Process(ctx, snap); err != nil {
		p.logger.Error("snapshot persistence failed", xlogger.Error(err))
	}
}
