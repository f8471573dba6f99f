package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"VolRank/internal/handler/api"
	mid "VolRank/internal/middleware"
	"VolRank/internal/scheduler"
	"VolRank/internal/usecase"
	"VolRank/pkg/cache"
	pkgch "VolRank/pkg/clickhouse"
	"VolRank/pkg/config"
	xhttp "VolRank/pkg/http"
	applogger "VolRank/pkg/logger"
	"VolRank/pkg/queue"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg         *config.Config
	log         *applogger.Logger
	engine      *usecase.RankEngine
	resolver    *usecase.UniverseResolver
	pipeline    *mid.RankPipeline
	proc        *usecase.SnapshotProcessor
	collector   *usecase.BarCollector // nil when the kline stream is disabled
	queue       *queue.MemoryQueue    // nil when queue workers are disabled
	cache       cache.Service
	chClient    *pkgch.Client // nil unless ClickHouse is the backend
	sched       *scheduler.Scheduler
	httpServer  *xhttp.Server
	httpHandler xhttp.Handler
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	engine *usecase.RankEngine,
	resolver *usecase.UniverseResolver,
	pipeline *mid.RankPipeline,
	proc *usecase.SnapshotProcessor,
	collector *usecase.BarCollector,
	q *queue.MemoryQueue,
	c cache.Service,
	chClient *pkgch.Client,
) *App {
	return &App{
		cfg:       cfg,
		log:       log,
		engine:    engine,
		resolver:  resolver,
		pipeline:  pipeline,
		proc:      proc,
		collector: collector,
		queue:     q,
		cache:     c,
		chClient:  chClient,
	}
}

// SetHTTPHandler allows DI to inject an HTTP handler.
func (a *App) SetHTTPHandler(h xhttp.Handler) { a.httpHandler = h }

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start the job queue before the first pass so persistence can go async.
	if a.queue != nil {
		a.queue.RegisterJob(usecase.NewSnapshotPersistJob(mid.MsgTypeSnapshot, a.proc))
		if err := a.queue.Start(); err != nil {
			a.log.Error("queue start error", applogger.Error(err))
			return err
		}
	}

	// Resolve the tracked universe before anything polls.
	symbols, err := a.resolver.Resolve(ctx)
	if err != nil {
		a.log.Error("universe resolve error", applogger.Error(err))
		return err
	}
	a.engine.SetSymbols(symbols)
	a.log.Info("universe resolved", applogger.Int("symbols", len(symbols)))

	// Run the initial pass inline so the API has a leaderboard from the start.
	if snap, err := a.pipeline.RunPass(ctx); err != nil {
		a.log.Warn("initial pass error", applogger.Error(err))
	} else {
		a.log.Info("initial pass complete",
			applogger.Int("ranked", len(snap.Entries)),
			applogger.Int("skipped", len(snap.Skipped)))
	}

	a.sched = scheduler.New(ctx, a.pipeline, a.resolver, a.engine, a.log)
	if err := a.sched.Register(a.cfg.Rank.PollCron, a.cfg.Universe.RefreshCron); err != nil {
		a.log.Error("scheduler register error", applogger.Error(err))
		return err
	}
	a.sched.Start()
	a.log.Info("scheduler started",
		applogger.String("rank_cron", a.cfg.Rank.PollCron),
		applogger.String("universe_cron", a.cfg.Universe.RefreshCron))

	// Optional kline stream feeding the engine between polls.
	if a.collector != nil {
		go func() {
			if err := a.collector.Start(ctx); err != nil {
				a.log.Error("collector error", applogger.Error(err))
			}
		}()
		a.log.Info("kline collector started", applogger.String("interval", string(a.engine.Interval())))
	}

	// Setup Echo HTTP server using pkg/http and register routes via handler
	httpHandler := a.httpHandler
	if httpHandler == nil {
		httpHandler = api.NewRankEchoHandler(a.log, a.cache, a.engine)
	}
	a.httpServer = xhttp.NewServer(httpHandler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)
	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown gracefully stops all services. The scheduler stops first and
// waits for an in-flight pass, so teardown always lands between passes.
func (a *App) shutdown(ctx context.Context) error {
	if a.sched != nil {
		a.sched.Stop()
	}

	if a.collector != nil {
		if err := a.collector.Stop(); err != nil {
			a.log.Warn("collector stop error", applogger.Error(err))
		}
	}

	// Shutdown HTTP server
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	// Drain the queue so pending snapshots still reach the backend.
	if a.queue != nil {
		if err := a.queue.Stop(shutdownCtx); err != nil {
			a.log.Warn("queue stop error", applogger.Error(err))
		}
	}

	a.proc.Close()

	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.log.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	if err := a.cache.Close(); err != nil {
		a.log.Warn("cache close error", applogger.Error(err))
	}

	a.log.Info("shutdown complete")
	return nil
}
