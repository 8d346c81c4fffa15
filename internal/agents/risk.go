package agents

import (
	"context"
	"fmt"
	"strings"

	"FinSight/internal/domain/models"
	"FinSight/internal/domain/repository"
	"FinSight/pkg/util"
)

const riskPersona = `You are an expert financial risk analyst agent. Your role is to:
1. Identify and categorize risk factors for companies
2. Assess the severity and likelihood of each risk
3. Compare risks across peer companies
4. Detect red flags in financial data
5. Evaluate financial health and stability metrics
6. Provide actionable risk mitigation insights

Risk categories to consider:
- Market Risk (competition, demand, pricing)
- Financial Risk (leverage, liquidity, currency)
- Operational Risk (supply chain, technology, talent)
- Regulatory Risk (compliance, litigation, policy changes)
- Strategic Risk (M&A, innovation, market shifts)
- ESG Risk (environmental, social, governance)

Always rate severity as: Critical / High / Medium / Low
Format responses with structured risk tables and clear explanations.`

// RiskCategories fixes the presentation order of the quantitative indicators.
var RiskCategories = []string{
	"leverage_risk",
	"liquidity_risk",
	"valuation_risk",
	"profitability_risk",
	"growth_risk",
	"volatility_risk",
}

// RiskProfile is the quantitative risk assessment for one company.
type RiskProfile struct {
	Ticker     string
	Company    string
	Indicators map[string]models.RiskIndicator
}

// RiskAgent scores financial risk and generates risk reports.
type RiskAgent struct {
	gen    repository.TextGenerator
	market repository.MarketData
}

// NewRiskAgent creates a risk assessment agent.
func NewRiskAgent(gen repository.TextGenerator, market repository.MarketData) *RiskAgent {
	return &RiskAgent{gen: gen, market: market}
}

// AssessFinancialRisk scores a company's risk from its key metrics. No
// generation call is involved.
func (a *RiskAgent) AssessFinancialRisk(ctx context.Context, ticker string) (*RiskProfile, error) {
	ticker = normalizeTicker(ticker)

	metrics, err := a.market.KeyMetrics(ctx, ticker)
	if err != nil {
		return nil, fmt.Errorf("assess financial risk for %s: %w", ticker, err)
	}

	return &RiskProfile{
		Ticker:     ticker,
		Company:    metrics.CompanyName(ticker),
		Indicators: scoreRisk(metrics),
	}, nil
}

// scoreRisk maps key metrics to severity-rated indicators. A category is
// omitted when its metric is absent.
func scoreRisk(metrics models.MetricsBundle) map[string]models.RiskIndicator {
	indicators := make(map[string]models.RiskIndicator)

	if de, ok := metrics.Float("debtToEquity"); ok {
		switch {
		case de > 200:
			indicators["leverage_risk"] = models.RiskIndicator{Level: models.RiskCritical, Value: de, Note: "Very high leverage"}
		case de > 100:
			indicators["leverage_risk"] = models.RiskIndicator{Level: models.RiskHigh, Value: de, Note: "High leverage"}
		case de > 50:
			indicators["leverage_risk"] = models.RiskIndicator{Level: models.RiskMedium, Value: de, Note: "Moderate leverage"}
		default:
			indicators["leverage_risk"] = models.RiskIndicator{Level: models.RiskLow, Value: de, Note: "Conservative leverage"}
		}
	}

	if cr, ok := metrics.Float("currentRatio"); ok {
		switch {
		case cr < 0.5:
			indicators["liquidity_risk"] = models.RiskIndicator{Level: models.RiskCritical, Value: cr, Note: "Severe liquidity concern"}
		case cr < 1.0:
			indicators["liquidity_risk"] = models.RiskIndicator{Level: models.RiskHigh, Value: cr, Note: "Below 1x current ratio"}
		case cr < 1.5:
			indicators["liquidity_risk"] = models.RiskIndicator{Level: models.RiskMedium, Value: cr, Note: "Adequate liquidity"}
		default:
			indicators["liquidity_risk"] = models.RiskIndicator{Level: models.RiskLow, Value: cr, Note: "Strong liquidity"}
		}
	}

	if pe, ok := metrics.Float("trailingPE"); ok {
		switch {
		case pe > 60:
			indicators["valuation_risk"] = models.RiskIndicator{Level: models.RiskHigh, Value: pe, Note: "Very high P/E, elevated expectations"}
		case pe > 30:
			indicators["valuation_risk"] = models.RiskIndicator{Level: models.RiskMedium, Value: pe, Note: "Above-average valuation"}
		case pe > 0:
			indicators["valuation_risk"] = models.RiskIndicator{Level: models.RiskLow, Value: pe, Note: "Reasonable valuation"}
		default:
			indicators["valuation_risk"] = models.RiskIndicator{Level: models.RiskHigh, Value: pe, Note: "Negative earnings"}
		}
	}

	if margins, ok := metrics.Float("profitMargins"); ok {
		switch {
		case margins < 0:
			indicators["profitability_risk"] = models.RiskIndicator{Level: models.RiskHigh, Value: margins, Note: "Unprofitable"}
		case margins < 0.05:
			indicators["profitability_risk"] = models.RiskIndicator{Level: models.RiskMedium, Value: margins, Note: "Thin margins"}
		default:
			indicators["profitability_risk"] = models.RiskIndicator{Level: models.RiskLow, Value: margins, Note: "Healthy margins"}
		}
	}

	if growth, ok := metrics.Float("revenueGrowth"); ok {
		switch {
		case growth < -0.1:
			indicators["growth_risk"] = models.RiskIndicator{Level: models.RiskHigh, Value: growth, Note: "Revenue declining"}
		case growth < 0:
			indicators["growth_risk"] = models.RiskIndicator{Level: models.RiskMedium, Value: growth, Note: "Slight revenue decline"}
		default:
			indicators["growth_risk"] = models.RiskIndicator{Level: models.RiskLow, Value: growth, Note: "Positive growth"}
		}
	}

	if beta, ok := metrics.Float("beta"); ok {
		switch {
		case beta > 2.0:
			indicators["volatility_risk"] = models.RiskIndicator{Level: models.RiskHigh, Value: beta, Note: "Very high beta"}
		case beta > 1.2:
			indicators["volatility_risk"] = models.RiskIndicator{Level: models.RiskMedium, Value: beta, Note: "Above-market volatility"}
		default:
			indicators["volatility_risk"] = models.RiskIndicator{Level: models.RiskLow, Value: beta, Note: "Low to moderate volatility"}
		}
	}

	return indicators
}

// ComprehensiveRiskAnalysis generates a full risk report combining the raw
// metrics with the quantitative assessment.
func (a *RiskAgent) ComprehensiveRiskAnalysis(ctx context.Context, ticker string) string {
	ticker = normalizeTicker(ticker)

	metrics, err := a.market.KeyMetrics(ctx, ticker)
	if err != nil {
		return fmt.Sprintf("Could not fetch data for %s: %v", ticker, err)
	}
	profile := &RiskProfile{
		Ticker:     ticker,
		Company:    metrics.CompanyName(ticker),
		Indicators: scoreRisk(metrics),
	}

	var dataContext strings.Builder
	fmt.Fprintf(&dataContext, `
Company: %s (%s)

FINANCIAL METRICS:
- Market Cap: %s
- Revenue: %s
- Revenue Growth: %s
- Gross Margins: %s
- Operating Margins: %s
- Net Margins: %s
- Debt/Equity: %s
- Current Ratio: %s
- P/E Ratio: %s
- Beta: %s
- ROE: %s
- Free Cash Flow: %s

QUANTITATIVE RISK ASSESSMENT:
`,
		profile.Company, ticker,
		util.FormatLargeNumber(metrics.Float("marketCap")),
		util.FormatLargeNumber(metrics.Float("totalRevenue")),
		util.FormatPercentage(metrics.Float("revenueGrowth")),
		util.FormatPercentage(metrics.Float("grossMargins")),
		util.FormatPercentage(metrics.Float("operatingMargins")),
		util.FormatPercentage(metrics.Float("profitMargins")),
		metricOr(metrics, "debtToEquity"), metricOr(metrics, "currentRatio"),
		metricOr(metrics, "trailingPE"), metricOr(metrics, "beta"),
		util.FormatPercentage(metrics.Float("returnOnEquity")),
		util.FormatLargeNumber(metrics.Float("freeCashflow")),
	)
	for _, key := range RiskCategories {
		if ind, ok := profile.Indicators[key]; ok {
			fmt.Fprintf(&dataContext, "- %s: %s (%s)\n", titleWords(key), ind.Level, ind.Note)
		}
	}

	prompt := fmt.Sprintf(`Provide a comprehensive risk assessment for %s based on the data below:

%s

Generate a professional risk report with:

1. **Executive Risk Summary** (2-3 sentences)

2. **Risk Scorecard** (rate each 1-10):
   - Financial Risk
   - Market/Competitive Risk
   - Operational Risk
   - Regulatory/Legal Risk
   - Strategic Risk
   - Overall Risk Score

3. **Key Risk Factors** (top 5, with severity rating):
   For each: Description, Severity (Critical/High/Medium/Low), Likelihood, Potential Impact

4. **Red Flags** - Any warning signs in the data

5. **Risk Mitigation Factors** - Positive indicators that offset risks

6. **Peer Context** - How these risks compare to typical industry peers

7. **Monitoring Recommendations** - Key metrics to watch`, ticker, dataContext.String())

	return a.gen.Generate(ctx, prompt, &models.GenerateOptions{SystemInstruction: riskPersona})
}

// CompareRisks generates a comparative risk report across companies.
func (a *RiskAgent) CompareRisks(ctx context.Context, tickers []string) string {
	var profiles strings.Builder
	for _, ticker := range tickers {
		ticker = normalizeTicker(ticker)

		profile, err := a.AssessFinancialRisk(ctx, ticker)
		if err != nil {
			fmt.Fprintf(&profiles, "\n--- %s ---\n  Data unavailable\n", ticker)
			continue
		}

		fmt.Fprintf(&profiles, "\n--- %s (%s) ---\n", profile.Company, ticker)
		for _, key := range RiskCategories {
			if ind, ok := profile.Indicators[key]; ok {
				fmt.Fprintf(&profiles, "  %s: %s - %s\n", titleWords(key), ind.Level, ind.Note)
			}
		}
	}

	prompt := fmt.Sprintf(`Compare the risk profiles of these companies:

%s

Provide:
1. **Comparative Risk Matrix** (table format)
2. **Company-by-Company Risk Summary**
3. **Shared Risks** - Common risks across all companies
4. **Unique Risks** - Risks specific to individual companies
5. **Risk-Adjusted Ranking** - Which company has the best risk profile and why
6. **Key Takeaways** for investors`, profiles.String())

	return a.gen.Generate(ctx, prompt, &models.GenerateOptions{SystemInstruction: riskPersona})
}
