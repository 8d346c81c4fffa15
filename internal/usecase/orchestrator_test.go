package usecase

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"FinSight/internal/agents"
	"FinSight/internal/domain/models"
)

// scriptedGen answers the extraction and classification prompts from a
// script and records every other prompt it receives.
type scriptedGen struct {
	tickers string
	intent  string
	prompts []string
}

func (g *scriptedGen) Generate(ctx context.Context, prompt string, opts *models.GenerateOptions) string {
	switch {
	case strings.HasPrefix(prompt, "Extract all stock ticker symbols"):
		return g.tickers
	case strings.HasPrefix(prompt, "Classify this financial query"):
		return g.intent
	}
	g.prompts = append(g.prompts, prompt)
	return "routed response"
}

func (g *scriptedGen) ChatCompletion(ctx context.Context, history []models.ChatMessage) string {
	return "chat"
}

func (g *scriptedGen) AnalyzeDocument(ctx context.Context, data []byte, query, filename string) string {
	return "document"
}

type stubMarket struct{}

func (stubMarket) StockInfo(ctx context.Context, ticker string) (models.MetricsBundle, error) {
	return models.MetricsBundle{"shortName": "Test Co"}, nil
}

func (stubMarket) KeyMetrics(ctx context.Context, ticker string) (models.MetricsBundle, error) {
	return models.MetricsBundle{"shortName": "Test Co", "debtToEquity": 20.0}, nil
}

func (stubMarket) News(ctx context.Context, ticker string, limit int) ([]models.NewsItem, error) {
	return nil, nil
}

type stubFilings struct{}

func (stubFilings) CompanyInfo(ctx context.Context, ticker string) (*models.CompanyInfo, error) {
	return &models.CompanyInfo{Name: "Test Co"}, nil
}

func (stubFilings) Filings(ctx context.Context, ticker, filingType string, count int) ([]models.FilingRecord, error) {
	return []models.FilingRecord{{Form: "10-K"}, {Form: "10-K"}}, nil
}

func (stubFilings) CompanyFacts(ctx context.Context, ticker string) (*models.CompanyFacts, error) {
	return nil, fmt.Errorf("no facts")
}

func (stubFilings) FilingDocument(ctx context.Context, ticker string, filing models.FilingRecord) ([]byte, error) {
	return nil, fmt.Errorf("no document")
}

type activityEntry struct {
	label  string
	intent string
	status string
}

type recordingActivity struct {
	entries []activityEntry
	err     error
}

func (r *recordingActivity) LogActivity(ctx context.Context, ticker, agent, status string) error {
	r.entries = append(r.entries, activityEntry{ticker, agent, status})
	return r.err
}

type recordingNotifier struct {
	events []models.AnalysisEvent
	err    error
}

func (r *recordingNotifier) PublishAnalysisComplete(ctx context.Context, event models.AnalysisEvent) error {
	r.events = append(r.events, event)
	return r.err
}

func newTestOrchestrator(gen *scriptedGen, opts ...OrchestratorOption) *Orchestrator {
	market := stubMarket{}
	filings := stubFilings{}
	return NewOrchestrator(
		gen,
		agents.NewMarketAgent(gen, market),
		agents.NewDocumentAgent(gen, filings),
		agents.NewSentimentAgent(gen, market),
		agents.NewRiskAgent(gen, market),
		agents.NewReportAgent(gen, market),
		opts...,
	)
}

func lastPrompt(t *testing.T, gen *scriptedGen) string {
	t.Helper()
	if len(gen.prompts) == 0 {
		t.Fatalf("no routed generation call recorded")
	}
	return gen.prompts[len(gen.prompts)-1]
}

func TestExtractTickersParsing(t *testing.T) {
	gen := &scriptedGen{tickers: "AAPL, MSFT 123, GOOGL"}
	o := newTestOrchestrator(gen)

	got := o.ExtractTickers(context.Background(), "compare them")
	if len(got) != 2 || got[0] != "AAPL" || got[1] != "GOOGL" {
		t.Fatalf("unexpected tickers %v", got)
	}
}

func TestExtractTickersNone(t *testing.T) {
	gen := &scriptedGen{tickers: "none"}
	o := newTestOrchestrator(gen)

	if got := o.ExtractTickers(context.Background(), "what is a P/E ratio?"); len(got) != 0 {
		t.Fatalf("expected empty set, got %v", got)
	}
}

func TestClassifyIntentNormalizes(t *testing.T) {
	gen := &scriptedGen{intent: " risk assessment \n"}
	o := newTestOrchestrator(gen)

	if got := o.ClassifyIntent(context.Background(), "q"); got != "RISK_ASSESSMENT" {
		t.Fatalf("unexpected intent %q", got)
	}
}

func TestRouteRiskSubstringTwoTickers(t *testing.T) {
	gen := &scriptedGen{tickers: "AAPL, MSFT", intent: "RISK_ASSESSMENT_DETAIL"}
	o := newTestOrchestrator(gen)

	result := o.ProcessQuery(context.Background(), "compare their risks", nil)
	if result.Intent != "RISK_ASSESSMENT_DETAIL" {
		t.Fatalf("unexpected intent %q", result.Intent)
	}
	if !strings.HasPrefix(lastPrompt(t, gen), "Compare the risk profiles of these companies:") {
		t.Fatalf("expected risk comparison path, got:\n%s", lastPrompt(t, gen))
	}
}

func TestRouteRiskSingleTicker(t *testing.T) {
	gen := &scriptedGen{tickers: "AAPL", intent: "RISK_ASSESSMENT"}
	o := newTestOrchestrator(gen)

	o.ProcessQuery(context.Background(), "how risky is it?", nil)
	if !strings.HasPrefix(lastPrompt(t, gen), "Provide a comprehensive risk assessment for AAPL") {
		t.Fatalf("expected single-ticker risk path, got:\n%s", lastPrompt(t, gen))
	}
}

func TestRoutePeerComparisonOneTickerFallsThrough(t *testing.T) {
	gen := &scriptedGen{tickers: "AAPL", intent: "PEER_COMPARISON"}
	o := newTestOrchestrator(gen)

	o.ProcessQuery(context.Background(), "compare AAPL to its peers", nil)
	prompt := lastPrompt(t, gen)
	if !strings.HasPrefix(prompt, "Using this comprehensive data about AAPL") {
		t.Fatalf("expected comprehensive fallback, got:\n%s", prompt)
	}
	if !strings.Contains(prompt, "Recent 10-K Filings: 2 found") {
		t.Fatalf("filing count missing:\n%s", prompt)
	}
	if !strings.Contains(prompt, "  - Leverage Risk: Low") {
		t.Fatalf("risk indicators missing:\n%s", prompt)
	}
}

func TestRouteThesisTakesPriorityOverMarket(t *testing.T) {
	gen := &scriptedGen{tickers: "AAPL", intent: "INVESTMENT_THESIS_AND_MARKET_ANALYSIS"}
	o := newTestOrchestrator(gen)

	o.ProcessQuery(context.Background(), "should I buy?", nil)
	if !strings.HasPrefix(lastPrompt(t, gen), "Generate a comprehensive investment thesis report for") {
		t.Fatalf("expected thesis path, got:\n%s", lastPrompt(t, gen))
	}
}

func TestRouteZeroTickersGoesGeneral(t *testing.T) {
	gen := &scriptedGen{tickers: "NONE", intent: "MARKET_ANALYSIS"}
	activity := &recordingActivity{}
	notifier := &recordingNotifier{}
	o := newTestOrchestrator(gen, WithActivityLog(activity), WithNotifier(notifier))

	result := o.ProcessQuery(context.Background(), "what moves stock prices?", nil)
	if lastPrompt(t, gen) != "what moves stock prices?" {
		t.Fatalf("expected raw query passthrough, got:\n%s", lastPrompt(t, gen))
	}
	if len(result.Tickers) != 0 {
		t.Fatalf("unexpected tickers %v", result.Tickers)
	}

	if len(activity.entries) != 2 {
		t.Fatalf("expected STARTED and COMPLETED entries, got %v", activity.entries)
	}
	if activity.entries[0].label != "GEN" || activity.entries[0].status != "STARTED" {
		t.Fatalf("unexpected start entry %+v", activity.entries[0])
	}
	if activity.entries[1].status != "COMPLETED" {
		t.Fatalf("unexpected completion entry %+v", activity.entries[1])
	}
	if len(notifier.events) != 0 {
		t.Fatalf("no completion event expected without tickers, got %v", notifier.events)
	}
}

func TestCompletionPublishedWithFirstTicker(t *testing.T) {
	gen := &scriptedGen{tickers: "AAPL, MSFT", intent: "SENTIMENT"}
	notifier := &recordingNotifier{}
	o := newTestOrchestrator(gen, WithNotifier(notifier))

	result := o.ProcessQuery(context.Background(), "how is the news?", nil)
	if len(notifier.events) != 1 {
		t.Fatalf("expected one completion event, got %v", notifier.events)
	}
	event := notifier.events[0]
	if event.Ticker != "AAPL" || event.Agent != "SENTIMENT" || event.Summary != result.Response {
		t.Fatalf("unexpected event %+v", event)
	}
	if event.Timestamp == "" {
		t.Fatalf("timestamp not set")
	}
}

func TestTelemetryFailureDoesNotAffectResponse(t *testing.T) {
	gen := &scriptedGen{tickers: "AAPL", intent: "EARNINGS"}
	activity := &recordingActivity{err: fmt.Errorf("warehouse down")}
	notifier := &recordingNotifier{err: fmt.Errorf("broker down")}
	o := newTestOrchestrator(gen, WithActivityLog(activity), WithNotifier(notifier))

	result := o.ProcessQuery(context.Background(), "earnings for AAPL", nil)
	if result.Response != "routed response" {
		t.Fatalf("unexpected response %q", result.Response)
	}
}

func TestProgressCallbackPanicIgnored(t *testing.T) {
	gen := &scriptedGen{tickers: "AAPL", intent: "MARKET_ANALYSIS"}
	o := newTestOrchestrator(gen)

	var calls []string
	result := o.ProcessQuery(context.Background(), "analyze AAPL", func(agent, message string) {
		calls = append(calls, agent+": "+message)
		panic("ui went away")
	})
	if result.Response != "routed response" {
		t.Fatalf("unexpected response %q", result.Response)
	}
	if len(calls) < 2 {
		t.Fatalf("expected progress calls, got %v", calls)
	}
	if calls[0] != "orchestrator: Analyzing your query..." {
		t.Fatalf("unexpected first progress call %q", calls[0])
	}
}
