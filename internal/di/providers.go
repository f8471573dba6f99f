package di

import (
	"context"
	"fmt"
	"time"

	"VolRank/internal/domain/models"
	"VolRank/internal/domain/repository"
	mid "VolRank/internal/middleware"
	internalrepo "VolRank/internal/repository"
	"VolRank/internal/service/binance"
	"VolRank/internal/service/ratelimit"
	"VolRank/internal/usecase"
	"VolRank/pkg/cache"
	pkgch "VolRank/pkg/clickhouse"
	"VolRank/pkg/config"
	xhttp "VolRank/pkg/http"
	pkgkafka "VolRank/pkg/kafka"
	applogger "VolRank/pkg/logger"
	"VolRank/pkg/metrics"
	"VolRank/pkg/queue"
	"VolRank/pkg/server"
)

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	lc := &applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}
	if lc.Level == "" {
		lc.Level = "info"
	}
	if lc.Format == "" {
		lc.Format = "console"
	}
	if lc.Output == "" {
		lc.Output = "stdout"
	}
	return applogger.New(lc)
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideHTTPClient creates the shared HTTP client for exchange calls.
func ProvideHTTPClient(cfg *config.Config) *xhttp.Client {
	timeout := cfg.Exchange.RequestTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return xhttp.NewClient(xhttp.WithTimeout(timeout))
}

// ProvideLimiter creates the shared request-weight limiter.
func ProvideLimiter() *ratelimit.Limiter {
	return ratelimit.New()
}

// ProvideExchangeClient creates the exchange REST client.
func ProvideExchangeClient(httpClient *xhttp.Client, limiter *ratelimit.Limiter, cfg *config.Config) *binance.Client {
	var opts []binance.Option
	if cfg.Exchange.SpotBaseURL != "" {
		opts = append(opts, binance.WithSpotBaseURL(cfg.Exchange.SpotBaseURL))
	}
	if cfg.Exchange.FuturesBaseURL != "" {
		opts = append(opts, binance.WithFuturesBaseURL(cfg.Exchange.FuturesBaseURL))
	}
	opts = append(opts, binance.WithTimeZone(cfg.Exchange.TimeZone))
	return binance.New(httpClient, limiter, opts...)
}

// ProvideBarSource exposes the exchange client as a bar source.
func ProvideBarSource(client *binance.Client) repository.BarSource {
	return client
}

// ProvideSymbolListing exposes the exchange client as a symbol listing.
func ProvideSymbolListing(client *binance.Client) repository.SymbolListing {
	return client
}

// ProvideRedisCache creates the Redis cache when enabled, nil otherwise.
func ProvideRedisCache(cfg *config.Config) (*cache.RedisCache, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisAddr(cfg.Redis.Addr),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return rc, nil
}

// ProvideCache creates the leaderboard cache: layered over Redis when
// available, in-memory otherwise.
func ProvideCache(rc *cache.RedisCache) cache.Service {
	if rc != nil {
		return cache.NewLayeredCache(rc)
	}
	return cache.NewMemoryCache()
}

// ProvideTrackedStore creates the tracked-set store configured in YAML.
func ProvideTrackedStore(cfg *config.Config, rc *cache.RedisCache) (repository.TrackedSetStore, error) {
	switch cfg.Universe.Store {
	case "redis":
		if rc == nil {
			return nil, fmt.Errorf("universe store 'redis' requires redis.enabled")
		}
		return internalrepo.NewRedisTrackedStore(rc.Client(), cfg.Universe.RedisKey), nil
	default:
		return internalrepo.NewFileTrackedStore(cfg.Universe.FilePath), nil
	}
}

// ProvideClickHouseClient creates a ClickHouse client when it is the
// configured backend, nil otherwise.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if cfg.Backend.Type != "clickhouse" {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	// Initialize schema
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.InitSchema(ctx, []string{
		"CREATE DATABASE IF NOT EXISTS " + cfg.ClickHouse.Database,
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (ts DateTime64(3), pass String, interval String, symbol String, rank UInt32, ratio Float64) ENGINE=MergeTree ORDER BY (ts, rank)", snapshotTable(cfg)),
	}); err != nil {
		_ = client.Close() // cannot log here (DI layer no logger); propagate error
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

func snapshotTable(cfg *config.Config) string {
	table := cfg.ClickHouse.Table
	if table == "" {
		table = "rank_snapshots"
	}
	return cfg.ClickHouse.Database + "." + table
}

// ProvideKafkaProducer creates a Kafka producer when it is the configured
// backend, nil otherwise.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if cfg.Backend.Type != "kafka" {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}

	return producer, nil
}

// ProvideSnapshotProcessor wires the configured backend behind the snapshot
// processor. Sinks for unselected backends stay nil and are never called.
func ProvideSnapshotProcessor(
	producer *pkgkafka.Producer,
	chClient *pkgch.Client,
	m repository.Metrics,
	cfg *config.Config,
) *usecase.SnapshotProcessor {
	var pub, store repository.SnapshotSink
	if producer != nil {
		pub = internalrepo.NewKafkaSnapshotPublisher(producer, cfg.Kafka.Topic)
	}
	if chClient != nil {
		store = internalrepo.NewClickHouseSnapshotStore(chClient.DB(), snapshotTable(cfg))
	}
	return usecase.NewSnapshotProcessor(pub, store, m, cfg.Backend.Type)
}

// ProvideRankEngine creates the ranking engine.
func ProvideRankEngine(
	source repository.BarSource,
	m repository.Metrics,
	logger *applogger.Logger,
	cfg *config.Config,
) *usecase.RankEngine {
	return usecase.NewRankEngine(
		source,
		m,
		logger,
		models.Interval(cfg.Rank.Interval),
		cfg.Rank.MaxWindowSize,
		usecase.WithWorkers(cfg.Rank.Workers),
	)
}

// ProvideUniverseResolver creates the tracked-universe resolver.
func ProvideUniverseResolver(
	listing repository.SymbolListing,
	store repository.TrackedSetStore,
	logger *applogger.Logger,
	cfg *config.Config,
) *usecase.UniverseResolver {
	return usecase.NewUniverseResolver(listing, store, logger, cfg.Universe.QuoteSuffix)
}

// ProvideQueue creates the in-process job queue, nil when disabled.
func ProvideQueue(logger *applogger.Logger, cfg *config.Config) *queue.MemoryQueue {
	if cfg.Queue.Workers <= 0 {
		return nil
	}
	return queue.NewMemoryQueue(logger, &queue.QueueConfig{
		Workers:    cfg.Queue.Workers,
		QueueSize:  cfg.Queue.Size,
		RetryLimit: cfg.Queue.RetryLimit,
		RetryDelay: cfg.Queue.RetryDelay,
	})
}

// ProvideRankPipeline creates the pass pipeline.
func ProvideRankPipeline(
	engine *usecase.RankEngine,
	proc *usecase.SnapshotProcessor,
	c cache.Service,
	logger *applogger.Logger,
	q *queue.MemoryQueue,
	cfg *config.Config,
) *mid.RankPipeline {
	opts := []mid.PipelineOption{}
	if cfg.Rank.CacheTTL > 0 {
		opts = append(opts, mid.WithCacheTTL(cfg.Rank.CacheTTL))
	}
	if q != nil {
		opts = append(opts, mid.WithQueue(q))
	}
	return mid.NewRankPipeline(engine, proc, c, logger,
		cfg.Rank.PastWindowSize, cfg.Rank.RecentWindowSize, opts...)
}

// ProvideBarCollector creates the streaming collector when the kline stream
// is enabled, nil otherwise.
func ProvideBarCollector(
	engine *usecase.RankEngine,
	m repository.Metrics,
	logger *applogger.Logger,
	cfg *config.Config,
) *usecase.BarCollector {
	if !cfg.Exchange.Stream.Enabled {
		return nil
	}
	stream := binance.NewStream(
		cfg.Exchange.Stream.URL,
		models.Interval(cfg.Rank.Interval),
		cfg.Exchange.Stream.ReconnectDelay,
		cfg.Exchange.Stream.PingInterval,
		logger,
	)
	return usecase.NewBarCollector(stream, engine, m)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	logger *applogger.Logger,
	engine *usecase.RankEngine,
	resolver *usecase.UniverseResolver,
	pipeline *mid.RankPipeline,
	proc *usecase.SnapshotProcessor,
	collector *usecase.BarCollector,
	q *queue.MemoryQueue,
	c cache.Service,
	chClient *pkgch.Client,
) *server.App {
	return server.New(cfg, logger, engine, resolver, pipeline, proc, collector, q, c, chClient)
}
