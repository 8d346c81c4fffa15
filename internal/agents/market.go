package agents

import (
	"context"
	"fmt"
	"strings"

	"FinSight/internal/domain/models"
	"FinSight/internal/domain/repository"
	"FinSight/pkg/util"
)

const marketPersona = `You are an expert financial market analyst agent. Your role is to:
1. Analyze stock market data including prices, fundamentals, and ratios
2. Provide clear, concise insights based on quantitative data
3. Compare companies using standard financial metrics
4. Identify trends in price movement and financial performance
5. Always cite specific numbers and metrics in your analysis
6. Use professional financial terminology
Format your responses with clear headers and bullet points.`

// MarketAgent analyzes quotes and fundamentals.
type MarketAgent struct {
	gen    repository.TextGenerator
	market repository.MarketData
}

// NewMarketAgent creates a market analysis agent.
func NewMarketAgent(gen repository.TextGenerator, market repository.MarketData) *MarketAgent {
	return &MarketAgent{gen: gen, market: market}
}

// CompanyOverview returns the company's name and whitelisted metrics.
func (a *MarketAgent) CompanyOverview(ctx context.Context, ticker string) (*models.CompanyOverview, error) {
	ticker = normalizeTicker(ticker)

	metrics, err := a.market.KeyMetrics(ctx, ticker)
	if err != nil {
		return nil, fmt.Errorf("could not fetch data for %s: %w", ticker, err)
	}

	return &models.CompanyOverview{
		Ticker:  ticker,
		Name:    metrics.CompanyName(ticker),
		Metrics: metrics,
	}, nil
}

// AnalyzeWithAI generates a market analysis for one company. With an empty
// query a full six-point analysis outline is requested instead.
func (a *MarketAgent) AnalyzeWithAI(ctx context.Context, ticker, query string) string {
	overview, err := a.CompanyOverview(ctx, ticker)
	if err != nil {
		return fmt.Sprintf("Could not fetch data for %s: %v", normalizeTicker(ticker), err)
	}

	dataSummary := marketDataSummary(overview)

	var prompt string
	if query != "" {
		prompt = fmt.Sprintf(`Based on the following market data, answer this question: %s

%s

Provide a detailed, data-driven analysis. Reference specific metrics in your answer.`, query, dataSummary)
	} else {
		prompt = fmt.Sprintf(`Provide a comprehensive market analysis for this company based on the data:

%s

Include:
1. Valuation assessment (overvalued/undervalued/fair)
2. Growth trajectory analysis
3. Profitability comparison to typical industry benchmarks
4. Financial health assessment
5. Key strengths and concerns
6. Brief investment outlook`, dataSummary)
	}

	return a.gen.Generate(ctx, prompt, &models.GenerateOptions{SystemInstruction: marketPersona})
}

// CompareWithAI generates a comparative analysis across companies. Tickers
// whose data cannot be fetched are marked unavailable instead of aborting
// the comparison.
func (a *MarketAgent) CompareWithAI(ctx context.Context, tickers []string, query string) string {
	var parts []string
	for _, ticker := range tickers {
		ticker = normalizeTicker(ticker)
		overview, err := a.CompanyOverview(ctx, ticker)
		if err != nil {
			parts = append(parts, fmt.Sprintf("\n%s: Data unavailable", ticker))
			continue
		}

		m := overview.Metrics
		parts = append(parts, fmt.Sprintf(`
--- %s (%s) ---
Price: %s | Market Cap: %s
P/E: %s | Fwd P/E: %s | PEG: %s
Gross Margin: %s | Op Margin: %s | Net Margin: %s
Rev Growth: %s | EPS Growth: %s
ROE: %s | D/E: %s
Revenue: %s | FCF: %s
Analyst: %s | Target: %s
`,
			overview.Name, overview.Ticker,
			dollarOr(m, "currentPrice"), util.FormatLargeNumber(m.Float("marketCap")),
			metricOr(m, "trailingPE"), metricOr(m, "forwardPE"), metricOr(m, "pegRatio"),
			util.FormatPercentage(m.Float("grossMargins")), util.FormatPercentage(m.Float("operatingMargins")), util.FormatPercentage(m.Float("profitMargins")),
			util.FormatPercentage(m.Float("revenueGrowth")), util.FormatPercentage(m.Float("earningsGrowth")),
			util.FormatPercentage(m.Float("returnOnEquity")), metricOr(m, "debtToEquity"),
			util.FormatLargeNumber(m.Float("totalRevenue")), util.FormatLargeNumber(m.Float("freeCashflow")),
			metricOr(m, "recommendationKey"), dollarOr(m, "targetMeanPrice"),
		))
	}

	dataText := strings.Join(parts, "\n")

	var prompt string
	if query != "" {
		prompt = fmt.Sprintf(`%s

Here is the current market data for comparison:
%s

Provide a detailed comparative analysis based on this data.`, query, dataText)
	} else {
		prompt = fmt.Sprintf(`Compare these companies based on the following data:
%s

Provide:
1. Valuation comparison table
2. Growth comparison
3. Profitability comparison
4. Financial health comparison
5. Which company appears most attractive and why
6. Key risks for each`, dataText)
	}

	return a.gen.Generate(ctx, prompt, &models.GenerateOptions{SystemInstruction: marketPersona})
}

func marketDataSummary(overview *models.CompanyOverview) string {
	m := overview.Metrics
	return fmt.Sprintf(`
Company: %s (%s)
Sector: %s | Industry: %s

PRICE DATA:
- Current Price: %s
- 52-Week High: %s
- 52-Week Low: %s
- Beta: %s

VALUATION:
- Market Cap: %s
- P/E (TTM): %s
- Forward P/E: %s
- PEG Ratio: %s
- Price/Book: %s

PROFITABILITY:
- Gross Margins: %s
- Operating Margins: %s
- Profit Margins: %s
- ROE: %s
- ROA: %s

GROWTH:
- Revenue Growth: %s
- Earnings Growth: %s
- Total Revenue: %s
- Free Cash Flow: %s

FINANCIAL HEALTH:
- Debt/Equity: %s
- Current Ratio: %s

ANALYST CONSENSUS:
- Recommendation: %s
- Target Price: %s
- Number of Analysts: %s
`,
		overview.Name, overview.Ticker,
		m.StringOr("sector", "N/A"), m.StringOr("industry", "N/A"),
		dollarOr(m, "currentPrice"), dollarOr(m, "fiftyTwoWeekHigh"), dollarOr(m, "fiftyTwoWeekLow"), metricOr(m, "beta"),
		util.FormatLargeNumber(m.Float("marketCap")),
		metricOr(m, "trailingPE"), metricOr(m, "forwardPE"), metricOr(m, "pegRatio"), metricOr(m, "priceToBook"),
		util.FormatPercentage(m.Float("grossMargins")), util.FormatPercentage(m.Float("operatingMargins")),
		util.FormatPercentage(m.Float("profitMargins")), util.FormatPercentage(m.Float("returnOnEquity")), util.FormatPercentage(m.Float("returnOnAssets")),
		util.FormatPercentage(m.Float("revenueGrowth")), util.FormatPercentage(m.Float("earningsGrowth")),
		util.FormatLargeNumber(m.Float("totalRevenue")), util.FormatLargeNumber(m.Float("freeCashflow")),
		metricOr(m, "debtToEquity"), metricOr(m, "currentRatio"),
		metricOr(m, "recommendationKey"), dollarOr(m, "targetMeanPrice"), metricOr(m, "numberOfAnalystOpinions"),
	)
}
