package scheduler

import (
	"context"
	"fmt"

	"VolRank/internal/middleware"
	"VolRank/internal/usecase"
	xlogger "VolRank/pkg/logger"

	"github.com/robfig/cron/v3"
)

// Scheduler drives the steady-state loop: a ranking pass per tick and a
// periodic re-resolution of the tracked universe. Shutdown stops the cron
// before the engine, so termination always lands between passes.
type Scheduler struct {
	cron     *cron.Cron
	pipeline *middleware.RankPipeline
	resolver *usecase.UniverseResolver
	engine   *usecase.RankEngine
	logger   *xlogger.Logger
	ctx      context.Context
}

// New creates a Scheduler with second-granularity cron expressions.
func New(ctx context.Context, pipeline *middleware.RankPipeline, resolver *usecase.UniverseResolver, engine *usecase.RankEngine, logger *xlogger.Logger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(cron.WithSeconds()),
		pipeline: pipeline,
		resolver: resolver,
		engine:   engine,
		logger:   logger,
		ctx:      ctx,
	}
}

// Register installs the rank tick and the universe refresh.
func (s *Scheduler) Register(rankSpec, universeSpec string) error {
	if _, err := s.cron.AddFunc(rankSpec, s.rankTick); err != nil {
		return fmt.Errorf("register rank tick: %w", err)
	}
	if universeSpec != "" {
		if _, err := s.cron.AddFunc(universeSpec, s.universeRefresh); err != nil {
			return fmt.Errorf("register universe refresh: %w", err)
		}
	}
	return nil
}

// Start begins running registered tasks.
func (s *Scheduler) Start() { s.cron.Start() }

// Stop stops the cron and waits for the running task, if any, to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) rankTick() {
	if _, err := s.pipeline.RunPass(s.ctx); err != nil {
		s.logger.Error("ranking pass failed", xlogger.Error(err))
	}
}

func (s *Scheduler) universeRefresh() {
	symbols, err := s.resolver.Resolve(s.ctx)
	if err != nil {
		s.logger.Error("universe refresh failed", xlogger.Error(err))
		return
	}
	s.engine.SetSymbols(symbols)
}
