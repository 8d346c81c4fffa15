// Package usecase contains the query routing core. The orchestrator turns a
// free-text query into one specialist agent dispatch per request.
package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"FinSight/internal/agents"
	"FinSight/internal/domain/models"
	"FinSight/internal/domain/repository"
	applogger "FinSight/pkg/logger"
	"FinSight/pkg/util"
)

const orchestratorPersona = `You are the Orchestrator of a multi-agent financial analysis system.
Your role is to understand user queries and provide comprehensive financial analysis.
You have access to data from multiple specialized agents:
- Market Data Agent: Real-time prices, fundamentals, ratios
- Document Agent: SEC filings (10-K, 10-Q) and XBRL data
- Sentiment Agent: News and market sentiment analysis
- Risk Agent: Risk assessment and red flag detection
- Report Agent: Investment thesis and report generation

When answering user queries:
1. Synthesize information from all relevant data sources
2. Provide specific numbers and metrics
3. Be balanced and objective in your analysis
4. Use professional financial language
5. Format responses clearly with headers and bullet points
6. Always cite data sources when possible`

const (
	extractMaxTokens  = int32(100)
	classifyMaxTokens = int32(50)
)

// OrchestratorOption configures Orchestrator.
type OrchestratorOption func(*Orchestrator)

// Orchestrator routes queries to specialist agents. Classification and
// ticker extraction each cost one deterministic generation call; routing is
// an ordered rule list where the first rule whose intent keyword and ticker
// count both match wins.
type Orchestrator struct {
	gen       repository.TextGenerator
	market    *agents.MarketAgent
	document  *agents.DocumentAgent
	sentiment *agents.SentimentAgent
	risk      *agents.RiskAgent
	report    *agents.ReportAgent

	activity repository.ActivityLog
	notifier repository.Notifier
	metrics  repository.Metrics
	logger   *applogger.Logger

	now func() time.Time
}

// NewOrchestrator creates the routing core.
func NewOrchestrator(
	gen repository.TextGenerator,
	market *agents.MarketAgent,
	document *agents.DocumentAgent,
	sentiment *agents.SentimentAgent,
	risk *agents.RiskAgent,
	report *agents.ReportAgent,
	opts ...OrchestratorOption,
) *Orchestrator {
	o := &Orchestrator{
		gen:       gen,
		market:    market,
		document:  document,
		sentiment: sentiment,
		risk:      risk,
		report:    report,
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// WithActivityLog sets the fire-and-forget activity log.
func WithActivityLog(a repository.ActivityLog) OrchestratorOption {
	return func(o *Orchestrator) {
		o.activity = a
	}
}

// WithNotifier sets the completion event publisher.
func WithNotifier(n repository.Notifier) OrchestratorOption {
	return func(o *Orchestrator) {
		o.notifier = n
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m repository.Metrics) OrchestratorOption {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *applogger.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		o.logger = l
	}
}

// ProcessQuery extracts tickers, classifies intent, routes to one specialist
// operation and returns its text. Telemetry is fire-and-forget: a failing
// log or publish never affects the response.
func (o *Orchestrator) ProcessQuery(ctx context.Context, query string, progress repository.ProgressFunc) *models.QueryResult {
	emit := o.safeProgress(progress)
	emit("orchestrator", "Analyzing your query...")

	tickers := o.ExtractTickers(ctx, query)
	intent := o.ClassifyIntent(ctx, query)

	if o.metrics != nil {
		o.metrics.IncQuery(intent)
	}
	o.logActivity(ctx, tickers, intent, models.StatusStarted)

	response := o.route(ctx, query, intent, tickers, emit)

	o.logActivity(ctx, tickers, intent, models.StatusCompleted)
	if len(tickers) > 0 {
		o.publishCompletion(ctx, tickers[0], intent, response)
	}

	return &models.QueryResult{
		Response: response,
		Tickers:  tickers,
		Intent:   intent,
	}
}

// ExtractTickers pulls candidate ticker symbols out of a query with one
// deterministic generation call. Only fully alphabetic tokens survive; a
// NONE answer or garbage output yields an empty set.
func (o *Orchestrator) ExtractTickers(ctx context.Context, query string) []string {
	prompt := fmt.Sprintf(`Extract all stock ticker symbols mentioned in this query.
Return ONLY a comma-separated list of tickers (e.g., AAPL, MSFT, GOOGL).
If no specific tickers are mentioned, return NONE.

Query: %s

Tickers:`, query)

	result := o.gen.Generate(ctx, prompt, &models.GenerateOptions{
		Temperature:     models.Temp(0),
		MaxOutputTokens: extractMaxTokens,
	})
	result = strings.ToUpper(strings.TrimSpace(result))
	if result == "" || result == "NONE" {
		return nil
	}

	var tickers []string
	for _, token := range strings.Split(result, ",") {
		token = strings.TrimSpace(token)
		if token != "" && isAlpha(token) {
			tickers = append(tickers, token)
		}
	}
	return tickers
}

// ClassifyIntent labels the query with one deterministic generation call.
// The label is normalized but not validated against the closed set: routing
// matches by keyword containment, so near-miss labels still route.
func (o *Orchestrator) ClassifyIntent(ctx context.Context, query string) string {
	prompt := fmt.Sprintf(`Classify this financial query into ONE of the following categories:
- MARKET_ANALYSIS: Questions about stock prices, valuation, financials, metrics
- DOCUMENT_ANALYSIS: Questions about SEC filings, 10-K, 10-Q, financial statements
- SENTIMENT: Questions about news, market sentiment, analyst opinions
- RISK_ASSESSMENT: Questions about risks, red flags, financial health concerns
- INVESTMENT_THESIS: Requests for buy/sell recommendations, investment analysis
- PEER_COMPARISON: Comparing multiple companies
- EARNINGS: Questions about earnings, revenue, profits
- GENERAL: General financial questions or education

Query: %s

Category:`, query)

	result := o.gen.Generate(ctx, prompt, &models.GenerateOptions{
		Temperature:     models.Temp(0),
		MaxOutputTokens: classifyMaxTokens,
	})
	return strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(result)), " ", "_")
}

// route walks the rule list top to bottom and runs the first rule whose
// intent keyword and ticker precondition both hold. The order is load
// bearing: a PEER_COMPARISON label with one ticker must fall through to the
// generic path, not error.
func (o *Orchestrator) route(ctx context.Context, query, intent string, tickers []string, emit repository.ProgressFunc) string {
	list := strings.Join(tickers, ", ")

	rules := []struct {
		agent string
		match bool
		run   func() string
	}{
		{"report", strings.Contains(intent, "INVESTMENT_THESIS") && len(tickers) >= 1, func() string {
			emit("market", fmt.Sprintf("Fetching market data for %s...", list))
			emit("document", "Analyzing SEC filings...")
			emit("sentiment", "Analyzing news sentiment...")
			emit("risk", "Assessing risk factors...")
			emit("report", "Generating investment thesis...")
			return o.report.GenerateInvestmentThesis(ctx, tickers[0])
		}},
		{"report", strings.Contains(intent, "PEER_COMPARISON") && len(tickers) >= 2, func() string {
			emit("market", fmt.Sprintf("Comparing: %s...", list))
			emit("report", "Generating comparison report...")
			return o.report.GenerateComparisonReport(ctx, tickers)
		}},
		{"risk", strings.Contains(intent, "RISK") && len(tickers) >= 1, func() string {
			emit("risk", fmt.Sprintf("Analyzing risks for %s...", list))
			if len(tickers) > 1 {
				return o.risk.CompareRisks(ctx, tickers)
			}
			return o.risk.ComprehensiveRiskAnalysis(ctx, tickers[0])
		}},
		{"sentiment", strings.Contains(intent, "SENTIMENT") && len(tickers) >= 1, func() string {
			emit("sentiment", fmt.Sprintf("Analyzing sentiment for %s...", list))
			if len(tickers) > 1 {
				return o.sentiment.AnalyzeNewsBatch(ctx, tickers)
			}
			return o.sentiment.AnalyzeSentiment(ctx, tickers[0])
		}},
		{"report", strings.Contains(intent, "EARNINGS") && len(tickers) >= 1, func() string {
			emit("market", "Pulling earnings data...")
			emit("report", "Generating earnings analysis...")
			return o.report.GenerateEarningsAnalysis(ctx, tickers[0])
		}},
		{"document", strings.Contains(intent, "DOCUMENT") && len(tickers) >= 1, func() string {
			emit("document", fmt.Sprintf("Analyzing filings for %s...", tickers[0]))
			return o.document.AnalyzeFilingWithAI(ctx, tickers[0], query)
		}},
		{"market", strings.Contains(intent, "MARKET") && len(tickers) >= 1, func() string {
			emit("market", fmt.Sprintf("Analyzing market data for %s...", list))
			if len(tickers) > 1 {
				return o.market.CompareWithAI(ctx, tickers, query)
			}
			return o.market.AnalyzeWithAI(ctx, tickers[0], query)
		}},
		{"market", len(tickers) >= 1, func() string {
			emit("orchestrator", "Running comprehensive analysis...")
			emit("market", fmt.Sprintf("Fetching data for %s...", list))
			if len(tickers) > 1 {
				return o.market.CompareWithAI(ctx, tickers, query)
			}
			return o.comprehensiveSingleStock(ctx, tickers[0], query, emit)
		}},
	}

	for _, rule := range rules {
		if rule.match {
			if o.metrics != nil {
				o.metrics.IncAgentDispatch(rule.agent)
			}
			return rule.run()
		}
	}

	emit("orchestrator", "Processing general query...")
	if o.metrics != nil {
		o.metrics.IncAgentDispatch("orchestrator")
	}
	return o.gen.Generate(ctx, query, &models.GenerateOptions{SystemInstruction: orchestratorPersona})
}

// comprehensiveSingleStock merges market overview, filing count and risk
// indicators into one prompt for queries that matched no specific intent.
func (o *Orchestrator) comprehensiveSingleStock(ctx context.Context, ticker, query string, emit repository.ProgressFunc) string {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))

	emit("market", "Analyzing market data...")
	overview, err := o.market.CompanyOverview(ctx, ticker)
	if err != nil {
		return fmt.Sprintf("Could not fetch data for %s: %v", ticker, err)
	}

	emit("document", "Checking SEC filings...")
	filings, err := o.document.FilingsList(ctx, ticker, "10-K", 2)
	if err != nil {
		filings = nil
	}

	emit("risk", "Assessing risks...")
	var indicators map[string]models.RiskIndicator
	if profile, err := o.risk.AssessFinancialRisk(ctx, ticker); err == nil {
		indicators = profile.Indicators
	}

	m := overview.Metrics
	var dataContext strings.Builder
	fmt.Fprintf(&dataContext, `
Company: %s (%s)
Sector: %s | Industry: %s

Price: %s | Market Cap: %s
P/E: %s | Forward P/E: %s
Revenue Growth: %s | Earnings Growth: %s
Gross Margin: %s | Op Margin: %s
Analyst Recommendation: %s | Target: %s

Recent 10-K Filings: %d found
Risk Indicators:
`,
		overview.Name, ticker,
		m.StringOr("sector", "N/A"), m.StringOr("industry", "N/A"),
		renderDollar(m, "currentPrice"), util.FormatLargeNumber(m.Float("marketCap")),
		renderMetric(m, "trailingPE"), renderMetric(m, "forwardPE"),
		renderMetric(m, "revenueGrowth"), renderMetric(m, "earningsGrowth"),
		renderMetric(m, "grossMargins"), renderMetric(m, "operatingMargins"),
		renderMetric(m, "recommendationKey"), renderDollar(m, "targetMeanPrice"),
		len(filings),
	)
	for _, key := range agents.RiskCategories {
		if ind, ok := indicators[key]; ok {
			fmt.Fprintf(&dataContext, "  - %s: %s\n", riskTitle(key), ind.Level)
		}
	}

	prompt := fmt.Sprintf(`Using this comprehensive data about %s, answer the user's question:

User Question: %s

%s

Provide a thorough, data-driven response. Reference specific metrics and data points.`, ticker, query, dataContext.String())

	emit("orchestrator", "Generating final response...")
	return o.gen.Generate(ctx, prompt, &models.GenerateOptions{SystemInstruction: orchestratorPersona})
}

// safeProgress wraps the optional callback so a nil or panicking callback
// can never abort a query.
func (o *Orchestrator) safeProgress(fn repository.ProgressFunc) repository.ProgressFunc {
	if fn == nil {
		return func(string, string) {}
	}
	return func(agent, message string) {
		defer func() {
			if r := recover(); r != nil && o.logger != nil {
				o.logger.Warn("progress callback panicked", applogger.Any("panic", r))
			}
		}()
		fn(agent, message)
	}
}

func (o *Orchestrator) logActivity(ctx context.Context, tickers []string, intent, status string) {
	if o.activity == nil {
		return
	}

	label := models.ActivityPlaceholder
	if len(tickers) > 0 {
		label = strings.Join(tickers, ", ")
	}
	if err := o.activity.LogActivity(ctx, label, intent, status); err != nil && o.logger != nil {
		o.logger.Warn("activity log failed",
			applogger.String("status", status),
			applogger.Error(err),
		)
	}
}

func (o *Orchestrator) publishCompletion(ctx context.Context, ticker, intent, response string) {
	if o.notifier == nil {
		return
	}

	event := models.AnalysisEvent{
		Ticker:    ticker,
		Agent:     intent,
		Summary:   response,
		Timestamp: o.now().UTC().Format(time.RFC3339),
	}
	if err := o.notifier.PublishAnalysisComplete(ctx, event); err != nil && o.logger != nil {
		o.logger.Warn("completion publish failed",
			applogger.String("ticker", ticker),
			applogger.Error(err),
		)
	}
}

func isAlpha(s string) bool {
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

// riskTitle renders an indicator key like leverage_risk as "Leverage Risk".
func riskTitle(key string) string {
	words := strings.Split(strings.ReplaceAll(key, "_", " "), " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// renderMetric shows a raw metric value or N/A when absent.
func renderMetric(b models.MetricsBundle, key string) string {
	if v, ok := b[key]; ok && v != nil {
		return fmt.Sprintf("%v", v)
	}
	return "N/A"
}

func renderDollar(b models.MetricsBundle, key string) string {
	return "$" + renderMetric(b, key)
}
