package repository

import (
	"context"

	"FinSight/internal/domain/models"
)

// TextGenerator is the single-call LLM surface. Generate and ChatCompletion
// never return an error: failures are folded into the returned text so agent
// output stays a plain string end to end. AnalyzeDocument follows the same
// contract for its combined-failure report.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string, opts *models.GenerateOptions) string
	ChatCompletion(ctx context.Context, messages []models.ChatMessage) string
	AnalyzeDocument(ctx context.Context, data []byte, query, filename string) string
}

// MarketData serves quote-level company data and headlines.
type MarketData interface {
	StockInfo(ctx context.Context, ticker string) (models.MetricsBundle, error)
	KeyMetrics(ctx context.Context, ticker string) (models.MetricsBundle, error)
	News(ctx context.Context, ticker string, limit int) ([]models.NewsItem, error)
}

// FilingStore serves SEC EDGAR data.
type FilingStore interface {
	CompanyInfo(ctx context.Context, ticker string) (*models.CompanyInfo, error)
	Filings(ctx context.Context, ticker, filingType string, count int) ([]models.FilingRecord, error)
	CompanyFacts(ctx context.Context, ticker string) (*models.CompanyFacts, error)
	FilingDocument(ctx context.Context, ticker string, filing models.FilingRecord) ([]byte, error)
}

// ActivityLog records agent activity start/completion. Implementations must
// never block the query path on failure.
type ActivityLog interface {
	LogActivity(ctx context.Context, ticker, agent, status string) error
}

// Notifier publishes analysis-complete events.
type Notifier interface {
	PublishAnalysisComplete(ctx context.Context, event models.AnalysisEvent) error
}

// ResultStore persists finished analysis events consumed from the event
// stream.
type ResultStore interface {
	StoreAnalysisResult(ctx context.Context, event models.AnalysisEvent) error
}

// Metrics is the instrumentation surface of the query pipeline.
type Metrics interface {
	IncQuery(intent string)
	IncAgentDispatch(agent string)
	IncProviderError(provider string)
	IncRetry(service string)
	ObserveGenerationLatency(operation string, seconds float64)
}

// ProgressFunc receives coarse progress updates while a query is processed.
// A nil ProgressFunc is valid and means no reporting.
type ProgressFunc func(agent, message string)
