//go:build wireinject
// +build wireinject

package di

import (
	"VolRank/pkg/config"
	"VolRank/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Exchange access
		ProvideHTTPClient,
		ProvideLimiter,
		ProvideExchangeClient,
		ProvideBarSource,
		ProvideSymbolListing,

		// Storage and caching
		ProvideRedisCache,
		ProvideCache,
		ProvideTrackedStore,
		ProvideClickHouseClient,
		ProvideKafkaProducer,

		// Use cases
		ProvideSnapshotProcessor,
		ProvideRankEngine,
		ProvideUniverseResolver,
		ProvideQueue,
		ProvideRankPipeline,
		ProvideBarCollector,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
