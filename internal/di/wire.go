//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"StockCast/internal/usecase"
	"StockCast/pkg/config"
	"StockCast/pkg/server"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Observability
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideRedisCache,
		ProvideCache,
		ProvideLocker,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,

		// Repositories
		ProvideKafkaEvents,
		ProvideEventPublisher,
		ProvideHistoryProvider,
		ProvideBarSink,
		ProvideCalibrationStore,

		// Forecast pipeline
		ProvideFeatureBuilder,
		ProvideAggregator,
		ProvideArtifactStore,
		ProvideModelLoader,
		ProvideTrainer,
		ProvideHub,

		// Use cases
		ProvideCatalog,
		ProvidePredictor,
		ProvideTracker,
		ProvideTechnical,
		ProvideHistoryUseCase,
		ProvideStocks,
		ProvideTraining,
		ProvideKafkaHandlers,
		ProvideWorkQueue,
		ProvideScheduler,

		// Transport
		ProvideForecastHandler,
		ProvideHealthHandler,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}

// InitializeTraining wires the offline artifact trainer.
func InitializeTraining(cfg *config.Config) (*usecase.Training, error) {
	wire.Build(
		ProvideLogger,
		ProvideClickHouseClient,
		ProvideRedisCache,
		ProvideCache,
		ProvideHistoryProvider,
		ProvideFeatureBuilder,
		ProvideArtifactStore,
		ProvideTrainer,
		ProvideTraining,
	)
	return &usecase.Training{}, nil
}
