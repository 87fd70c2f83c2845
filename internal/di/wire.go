//go:build wireinject
// +build wireinject

package di

import (
	"FinScope/pkg/config"
	"FinScope/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideTelemetry,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideCache,
		ProvideKafkaProducer,
		ProvideLogCollection,

		// Repositories
		ProvideSeriesStore,
		ProvideReportStore,
		ProvideRunLocker,
		ProvideReportPublisher,
		ProvideReportEmitter,

		// Use cases
		ProvideAnalysisUseCase,

		// Transports
		ProvideKafkaConsumer,
		ProvideHTTPHandler,
		ProvideHTTPServer,

		ProvideApp,
	)
	return &server.App{}, nil
}
