//go:build wireinject
// +build wireinject

package di

import (
	"AirPulse/pkg/config"
	"AirPulse/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire generates the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideCache,
		ProvideKafkaConsumer,
		ProvideKafkaProducer,

		// Repositories
		ProvideRegistry,
		ProvideStorage,
		ProvideObservationSource,
		ProvidePublisher,

		// Use cases
		ProvideGapFillUseCase,
		ProvideAnomalyUseCase,
		ProvideIngestUseCase,
		ProvideKafkaReadingsHandler,

		// Transport
		ProvideHTTPHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
