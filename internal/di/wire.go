//go:build wireinject
// +build wireinject

package di

import (
	"FinSight/pkg/config"
	"FinSight/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,
		ProvideCache,

		// Services
		ProvideGeminiClient,
		ProvideTextGenerator,
		ProvideMarketData,
		ProvideFilingStore,

		// Agents
		ProvideMarketAgent,
		ProvideDocumentAgent,
		ProvideSentimentAgent,
		ProvideRiskAgent,
		ProvideReportAgent,

		// Telemetry infrastructure
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideEventsHandler,

		// Core and transport
		ProvideOrchestrator,
		ProvideHandler,
		ProvideApp,
	)
	return nil, nil
}
