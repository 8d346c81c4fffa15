package agents

import (
	"context"
	"fmt"
	"strings"

	"FinSight/internal/domain/models"
	"FinSight/internal/domain/repository"
	"FinSight/pkg/util"
)

const reportPersona = `You are an expert investment report generator agent. Your role is to:
1. Generate professional, institutional-grade investment reports
2. Create comprehensive investment theses with bull/bear cases
3. Provide clear, actionable recommendations with price targets
4. Include quantitative analysis with qualitative insights
5. Structure reports in a professional format suitable for portfolio managers
6. Always include specific data points, metrics, and citations

Report Quality Standards:
- Use precise financial language
- Include specific numbers and percentages
- Present balanced bull/bear perspectives
- Provide clear rationale for recommendations
- Structure with executive summary, detailed analysis, and conclusion`

const (
	thesisHeadlines   = 8
	earningsHeadlines = 5

	thesisTemperature = float32(0.4)
	thesisMaxTokens   = int32(8192)
)

// ReportAgent writes investment theses, earnings reports and peer
// comparisons.
type ReportAgent struct {
	gen    repository.TextGenerator
	market repository.MarketData
}

// NewReportAgent creates a report generation agent.
func NewReportAgent(gen repository.TextGenerator, market repository.MarketData) *ReportAgent {
	return &ReportAgent{gen: gen, market: market}
}

// GenerateInvestmentThesis writes a full investment thesis for one company.
// This is the largest report, so it runs with a raised output budget.
func (a *ReportAgent) GenerateInvestmentThesis(ctx context.Context, ticker string) string {
	ticker = normalizeTicker(ticker)

	metrics, err := a.market.KeyMetrics(ctx, ticker)
	if err != nil {
		return fmt.Sprintf("Could not fetch data for %s: %v", ticker, err)
	}
	companyName := metrics.CompanyName(ticker)

	newsHeadlines := "No recent news available."
	if news, err := a.market.News(ctx, ticker, thesisHeadlines); err == nil && len(news) > 0 {
		lines := make([]string, 0, len(news))
		for _, n := range news {
			lines = append(lines, "- "+n.Title)
		}
		newsHeadlines = strings.Join(lines, "\n")
	}

	evRevenue := "N/A"
	if ev, ok := metrics.Float("enterpriseValue"); ok {
		if rev, ok := metrics.Float("totalRevenue"); ok && rev != 0 {
			evRevenue = fmt.Sprintf("%.2f", ev/rev)
		}
	}

	dataContext := fmt.Sprintf(`
COMPANY: %s (%s)
Sector: %s | Industry: %s
Employees: %s

CURRENT VALUATION:
- Stock Price: %s
- Market Cap: %s
- Enterprise Value: %s
- P/E (TTM): %s
- Forward P/E: %s
- PEG Ratio: %s
- Price/Book: %s
- EV/Revenue: %s

FINANCIAL PERFORMANCE:
- Revenue: %s
- Revenue Growth: %s
- Gross Margins: %s
- Operating Margins: %s
- Net Margins: %s
- EPS (TTM): %s
- EPS (Forward): %s
- ROE: %s
- ROA: %s

BALANCE SHEET:
- Total Cash: %s
- Total Debt: %s
- Debt/Equity: %s
- Current Ratio: %s
- Free Cash Flow: %s
- Operating Cash Flow: %s

MARKET DATA:
- Beta: %s
- 52-Week High: %s
- 52-Week Low: %s
- 50-Day Average: %s
- 200-Day Average: %s
- Dividend Yield: %s

ANALYST CONSENSUS:
- Recommendation: %s
- Target High: %s
- Target Low: %s
- Target Mean: %s
- Number of Analysts: %s

RECENT NEWS:
%s
`,
		companyName, ticker,
		metrics.StringOr("sector", "N/A"), metrics.StringOr("industry", "N/A"), metricOr(metrics, "fullTimeEmployees"),
		dollarOr(metrics, "currentPrice"),
		util.FormatLargeNumber(metrics.Float("marketCap")),
		util.FormatLargeNumber(metrics.Float("enterpriseValue")),
		metricOr(metrics, "trailingPE"), metricOr(metrics, "forwardPE"),
		metricOr(metrics, "pegRatio"), metricOr(metrics, "priceToBook"), evRevenue,
		util.FormatLargeNumber(metrics.Float("totalRevenue")),
		util.FormatPercentage(metrics.Float("revenueGrowth")),
		util.FormatPercentage(metrics.Float("grossMargins")),
		util.FormatPercentage(metrics.Float("operatingMargins")),
		util.FormatPercentage(metrics.Float("profitMargins")),
		dollarOr(metrics, "trailingEps"), dollarOr(metrics, "forwardEps"),
		util.FormatPercentage(metrics.Float("returnOnEquity")),
		util.FormatPercentage(metrics.Float("returnOnAssets")),
		util.FormatLargeNumber(metrics.Float("totalCash")),
		util.FormatLargeNumber(metrics.Float("totalDebt")),
		metricOr(metrics, "debtToEquity"), metricOr(metrics, "currentRatio"),
		util.FormatLargeNumber(metrics.Float("freeCashflow")),
		util.FormatLargeNumber(metrics.Float("operatingCashflow")),
		metricOr(metrics, "beta"),
		dollarOr(metrics, "fiftyTwoWeekHigh"), dollarOr(metrics, "fiftyTwoWeekLow"),
		dollarOr(metrics, "fiftyDayAverage"), dollarOr(metrics, "twoHundredDayAverage"),
		util.FormatPercentage(metrics.Float("dividendYield")),
		strings.ToUpper(metricOr(metrics, "recommendationKey")),
		dollarOr(metrics, "targetHighPrice"), dollarOr(metrics, "targetLowPrice"), dollarOr(metrics, "targetMeanPrice"),
		metricOr(metrics, "numberOfAnalystOpinions"),
		newsHeadlines,
	)

	prompt := fmt.Sprintf(`Generate a comprehensive investment thesis report for %s (%s).

%s

Create a professional investment report with the following structure:

# %s (%s) - Investment Thesis

## Executive Summary
- Rating (Strong Buy / Buy / Hold / Sell / Strong Sell)
- Target Price with upside/downside percentage
- 1-paragraph thesis summary

## Company Overview
- Business description and competitive position
- Key products/services and revenue drivers
- Market position and competitive moats

## Financial Analysis
- Revenue and earnings trends
- Profitability assessment
- Balance sheet strength
- Cash flow analysis

## Valuation Assessment
- Current valuation vs. historical averages
- Peer comparison context
- Is the stock overvalued, undervalued, or fairly valued?

## Bull Case (with target price)
- 3-5 key catalysts and positive scenarios
- Upside target price and rationale

## Bear Case (with target price)
- 3-5 key risks and negative scenarios
- Downside target price and rationale

## Key Catalysts & Timeline
- Upcoming events that could move the stock
- Expected timing of catalysts

## Risk Factors
- Top 5 risks with severity assessment

## Conclusion & Recommendation
- Final recommendation with confidence level
- Position sizing suggestion (e.g., core position vs. starter)
- Key metrics to monitor

Use specific numbers from the data provided. Be balanced and objective.`,
		companyName, ticker, dataContext, companyName, ticker)

	return a.gen.Generate(ctx, prompt, &models.GenerateOptions{
		SystemInstruction: reportPersona,
		Temperature:       models.Temp(thesisTemperature),
		MaxOutputTokens:   thesisMaxTokens,
	})
}

// GenerateEarningsAnalysis writes an earnings report for one company.
func (a *ReportAgent) GenerateEarningsAnalysis(ctx context.Context, ticker string) string {
	ticker = normalizeTicker(ticker)

	metrics, err := a.market.KeyMetrics(ctx, ticker)
	if err != nil {
		return fmt.Sprintf("Could not fetch data for %s: %v", ticker, err)
	}
	companyName := metrics.CompanyName(ticker)

	newsText := "None available"
	if news, err := a.market.News(ctx, ticker, earningsHeadlines); err == nil && len(news) > 0 {
		lines := make([]string, 0, len(news))
		for _, n := range news {
			lines = append(lines, "- "+n.Title)
		}
		newsText = strings.Join(lines, "\n")
	}

	prompt := fmt.Sprintf(`Generate an earnings analysis report for %s (%s).

Current Financial Metrics:
- Revenue: %s
- Revenue Growth: %s
- EPS (TTM): %s
- EPS (Forward): %s
- Gross Margin: %s
- Operating Margin: %s
- Net Margin: %s
- Earnings Growth: %s

Recent News: %s

Generate a comprehensive earnings analysis including:
1. **Earnings Overview** - Key numbers and what they mean
2. **Revenue Analysis** - Growth drivers and headwinds
3. **Margin Analysis** - Profitability trends
4. **Key Takeaways** - Most important findings
5. **Forward Outlook** - What to expect going forward
6. **Market Reaction Context** - How the market may interpret these numbers`,
		companyName, ticker,
		util.FormatLargeNumber(metrics.Float("totalRevenue")),
		util.FormatPercentage(metrics.Float("revenueGrowth")),
		dollarOr(metrics, "trailingEps"), dollarOr(metrics, "forwardEps"),
		util.FormatPercentage(metrics.Float("grossMargins")),
		util.FormatPercentage(metrics.Float("operatingMargins")),
		util.FormatPercentage(metrics.Float("profitMargins")),
		util.FormatPercentage(metrics.Float("earningsGrowth")),
		newsText,
	)

	return a.gen.Generate(ctx, prompt, &models.GenerateOptions{SystemInstruction: reportPersona})
}

// GenerateComparisonReport writes a peer comparison report.
func (a *ReportAgent) GenerateComparisonReport(ctx context.Context, tickers []string) string {
	var dataText strings.Builder
	normalized := make([]string, 0, len(tickers))
	for _, ticker := range tickers {
		ticker = normalizeTicker(ticker)
		normalized = append(normalized, ticker)

		metrics, err := a.market.KeyMetrics(ctx, ticker)
		if err != nil {
			fmt.Fprintf(&dataText, "\n--- %s ---\nData unavailable\n", ticker)
			continue
		}

		fmt.Fprintf(&dataText, `
--- %s (%s) ---
Price: %s | Market Cap: %s
P/E: %s | Fwd P/E: %s | PEG: %s
Revenue: %s | Rev Growth: %s
Gross: %s | Op: %s | Net: %s
ROE: %s | D/E: %s
FCF: %s | Analyst: %s
`,
			metrics.CompanyName(ticker), ticker,
			dollarOr(metrics, "currentPrice"), util.FormatLargeNumber(metrics.Float("marketCap")),
			metricOr(metrics, "trailingPE"), metricOr(metrics, "forwardPE"), metricOr(metrics, "pegRatio"),
			util.FormatLargeNumber(metrics.Float("totalRevenue")), util.FormatPercentage(metrics.Float("revenueGrowth")),
			util.FormatPercentage(metrics.Float("grossMargins")), util.FormatPercentage(metrics.Float("operatingMargins")),
			util.FormatPercentage(metrics.Float("profitMargins")),
			util.FormatPercentage(metrics.Float("returnOnEquity")), metricOr(metrics, "debtToEquity"),
			util.FormatLargeNumber(metrics.Float("freeCashflow")), metricOr(metrics, "recommendationKey"),
		)
	}

	prompt := fmt.Sprintf(`Generate a peer comparison report for: %s

Data:
%s

Create a professional comparison report with:
1. **Executive Summary** - Key takeaway about which companies stand out
2. **Comparison Table** - Side-by-side metrics comparison
3. **Valuation Comparison** - Which offers the best value
4. **Growth Comparison** - Which has the strongest growth profile
5. **Profitability Comparison** - Which is most profitable
6. **Financial Health** - Which has the strongest balance sheet
7. **Rankings** - Overall ranking with rationale
8. **Investment Implications** - Which to buy/hold/avoid and why`,
		strings.Join(normalized, ", "), dataText.String())

	return a.gen.Generate(ctx, prompt, &models.GenerateOptions{SystemInstruction: reportPersona})
}
