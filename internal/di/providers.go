package di

import (
	"context"
	"fmt"
	"time"

	"FinSight/internal/agents"
	"FinSight/internal/domain/repository"
	"FinSight/internal/handler/api"
	internalrepo "FinSight/internal/repository"
	"FinSight/internal/service/gemini"
	"FinSight/internal/service/pdftext"
	"FinSight/internal/service/sec"
	"FinSight/internal/service/yahoo"
	"FinSight/internal/usecase"
	"FinSight/pkg/cache"
	pkgch "FinSight/pkg/clickhouse"
	"FinSight/pkg/config"
	xhttp "FinSight/pkg/http"
	pkgkafka "FinSight/pkg/kafka"
	applogger "FinSight/pkg/logger"
	"FinSight/pkg/metrics"
	"FinSight/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	format := "console"
	level := "debug"
	if cfg.Environment == "production" {
		format = "json"
		level = "info"
	}

	l, err := applogger.New(&applogger.Config{
		Level:  level,
		Format: format,
		Output: "stdout",
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideCache creates the CIK memoization cache, redis-backed when enabled.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	if !cfg.Cache.Redis.Enabled {
		return cache.NewMemoryCache(), nil
	}

	rc, err := cache.NewRedisCache(
		cache.WithRedisHost(cfg.Cache.Redis.Host),
		cache.WithRedisPort(cfg.Cache.Redis.Port),
		cache.WithRedisPassword(cfg.Cache.Redis.Password),
		cache.WithRedisDB(cfg.Cache.Redis.DB),
		cache.WithRedisPrefix("finsight"),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return rc, nil
}

// ProvideGeminiClient creates the generation client with its local
// extraction fallback.
func ProvideGeminiClient(cfg *config.Config, l *applogger.Logger, m repository.Metrics) (*gemini.Client, error) {
	client, err := gemini.NewClient(context.Background(), cfg.Gemini.APIKey, cfg.Gemini.Model,
		gemini.WithLogger(l),
		gemini.WithMetrics(m),
		gemini.WithExtractor(pdftext.NewExtractor(l)),
		gemini.WithDocumentLimits(cfg.Document.MaxTextChars, cfg.Gemini.UploadPollMax),
	)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return client, nil
}

// ProvideTextGenerator exposes the Gemini client behind the domain contract.
func ProvideTextGenerator(c *gemini.Client) repository.TextGenerator {
	return c
}

// ProvideMarketData creates the Yahoo Finance client.
func ProvideMarketData(cfg *config.Config, l *applogger.Logger, m repository.Metrics) repository.MarketData {
	opts := []yahoo.ClientOption{
		yahoo.WithLogger(l),
		yahoo.WithMetrics(m),
		yahoo.WithBaseURL(cfg.Providers.Yahoo.BaseURL),
	}
	if cfg.Providers.Yahoo.Timeout > 0 {
		opts = append(opts, yahoo.WithHTTPClient(xhttp.NewClient(xhttp.WithTimeout(cfg.Providers.Yahoo.Timeout))))
	}
	return yahoo.NewClient(opts...)
}

// ProvideFilingStore creates the SEC EDGAR client.
func ProvideFilingStore(cfg *config.Config, cs cache.Service, l *applogger.Logger) repository.FilingStore {
	opts := []sec.ClientOption{
		sec.WithCache(cs),
		sec.WithLogger(l),
		sec.WithBaseURLs(cfg.Providers.SEC.BaseURL, ""),
	}
	if cfg.Providers.SEC.Timeout > 0 {
		opts = append(opts, sec.WithHTTPClient(xhttp.NewClient(xhttp.WithTimeout(cfg.Providers.SEC.Timeout))))
	}
	return sec.NewClient(cfg.Providers.SEC.UserAgent, opts...)
}

// ProvideMarketAgent creates the market data agent.
func ProvideMarketAgent(gen repository.TextGenerator, market repository.MarketData) *agents.MarketAgent {
	return agents.NewMarketAgent(gen, market)
}

// ProvideDocumentAgent creates the SEC document agent.
func ProvideDocumentAgent(gen repository.TextGenerator, filings repository.FilingStore) *agents.DocumentAgent {
	return agents.NewDocumentAgent(gen, filings)
}

// ProvideSentimentAgent creates the news sentiment agent.
func ProvideSentimentAgent(gen repository.TextGenerator, market repository.MarketData) *agents.SentimentAgent {
	return agents.NewSentimentAgent(gen, market)
}

// ProvideRiskAgent creates the risk assessment agent.
func ProvideRiskAgent(gen repository.TextGenerator, market repository.MarketData) *agents.RiskAgent {
	return agents.NewRiskAgent(gen, market)
}

// ProvideReportAgent creates the report generation agent.
func ProvideReportAgent(gen repository.TextGenerator, market repository.MarketData) *agents.ReportAgent {
	return agents.NewReportAgent(gen, market)
}

// ProvideClickHouseClient creates the ClickHouse client and applies the
// telemetry schema. Returns nil when ClickHouse is disabled by config.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}

	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stmts := append([]string{"CREATE DATABASE IF NOT EXISTS " + cfg.ClickHouse.Database},
		internalrepo.SchemaStatements()...)
	if err := client.InitSchema(ctx, stmts); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideKafkaProducer creates the Kafka producer. Returns nil when Kafka is
// disabled by config.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
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

// ProvideKafkaConsumer creates the analysis event consumer. Returns nil when
// Kafka or ClickHouse is disabled since the sink needs both.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled || !cfg.ClickHouse.Enabled {
		return nil, nil
	}

	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideEventsHandler creates the analysis event sink. Returns nil when the
// ClickHouse side is disabled.
func ProvideEventsHandler(cfg *config.Config, chClient *pkgch.Client, l *applogger.Logger) pkgkafka.MessageHandler {
	if chClient == nil {
		return nil
	}

	store := internalrepo.NewCHTelemetryStore(chClient)
	store.SetLogger(l)
	return usecase.NewAnalysisEventsHandler(cfg.Kafka.Topic, store, l)
}

// ProvideOrchestrator creates the routing core with whatever telemetry the
// config enables.
func ProvideOrchestrator(
	cfg *config.Config,
	gen repository.TextGenerator,
	market *agents.MarketAgent,
	document *agents.DocumentAgent,
	sentiment *agents.SentimentAgent,
	risk *agents.RiskAgent,
	report *agents.ReportAgent,
	l *applogger.Logger,
	m repository.Metrics,
	producer *pkgkafka.Producer,
	chClient *pkgch.Client,
) *usecase.Orchestrator {
	opts := []usecase.OrchestratorOption{
		usecase.WithLogger(l),
		usecase.WithMetrics(m),
	}

	if chClient != nil {
		store := internalrepo.NewCHTelemetryStore(chClient)
		store.SetLogger(l)
		opts = append(opts, usecase.WithActivityLog(store))
	}
	if producer != nil {
		notifier := internalrepo.NewKafkaNotifier(producer, cfg.Kafka.Topic)
		notifier.SetLogger(l)
		opts = append(opts, usecase.WithNotifier(notifier))
	}

	return usecase.NewOrchestrator(gen, market, document, sentiment, risk, report, opts...)
}

// ProvideHandler creates the HTTP handler.
func ProvideHandler(l *applogger.Logger, orch *usecase.Orchestrator, gen repository.TextGenerator, document *agents.DocumentAgent) xhttp.Handler {
	return api.NewQueryEchoHandler(l, orch, gen, document)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	handler xhttp.Handler,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	producer *pkgkafka.Producer,
	chClient *pkgch.Client,
) *server.App {
	return server.New(cfg, l, handler, consumer, kh, producer, chClient)
}
