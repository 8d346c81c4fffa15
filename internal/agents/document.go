package agents

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"

	"FinSight/internal/domain/models"
	"FinSight/internal/domain/repository"
)

// filingExcerptMax caps how much of a filing document goes into the prompt.
const filingExcerptMax = 8000

const documentPersona = `You are an expert SEC filing and financial document analyst agent.
Your role is to:
1. Parse and analyze SEC filings (10-K, 10-Q, 8-K)
2. Extract key financial data, metrics, and risk factors
3. Identify important changes between reporting periods
4. Provide analysis with specific citations to filing sections
5. Understand document structure (Item 1, 1A, 7, 8, etc.)
Always reference specific sections, page numbers, or items when citing information.
Format responses with clear headers and structured data.`

// xbrlItems maps us-gaap concepts to metric labels. Order matters: a later
// concept mapped to the same label overrides an earlier one.
var xbrlItems = []struct {
	concept string
	label   string
}{
	{"Revenues", "revenue"},
	{"RevenueFromContractWithCustomerExcludingAssessedTax", "revenue"},
	{"NetIncomeLoss", "net_income"},
	{"EarningsPerShareBasic", "eps_basic"},
	{"EarningsPerShareDiluted", "eps_diluted"},
	{"Assets", "total_assets"},
	{"Liabilities", "total_liabilities"},
	{"StockholdersEquity", "stockholders_equity"},
	{"OperatingIncomeLoss", "operating_income"},
	{"GrossProfit", "gross_profit"},
	{"CashAndCashEquivalentsAtCarryingValue", "cash"},
	{"LongTermDebt", "long_term_debt"},
	{"CommonStockSharesOutstanding", "shares_outstanding"},
}

// unitPreference picks one unit type per concept, first match wins.
var unitPreference = []string{"USD", "USD/shares", "shares"}

// metricLabelOrder fixes the presentation order of extracted metrics.
var metricLabelOrder = []string{
	"revenue", "net_income", "eps_basic", "eps_diluted",
	"total_assets", "total_liabilities", "stockholders_equity",
	"operating_income", "gross_profit", "cash",
	"long_term_debt", "shares_outstanding",
}

// DocumentAgent analyzes SEC filings and uploaded documents.
type DocumentAgent struct {
	gen     repository.TextGenerator
	filings repository.FilingStore
}

// NewDocumentAgent creates a document analysis agent.
func NewDocumentAgent(gen repository.TextGenerator, filings repository.FilingStore) *DocumentAgent {
	return &DocumentAgent{gen: gen, filings: filings}
}

// FilingsList returns recent filings of the given type.
func (a *DocumentAgent) FilingsList(ctx context.Context, ticker, filingType string, count int) ([]models.FilingRecord, error) {
	return a.filings.Filings(ctx, normalizeTicker(ticker), filingType, count)
}

// XBRLKeyMetrics extracts the key annual metrics from a company's XBRL facts.
func (a *DocumentAgent) XBRLKeyMetrics(ctx context.Context, ticker string) (map[string][]models.FactPoint, error) {
	facts, err := a.filings.CompanyFacts(ctx, normalizeTicker(ticker))
	if err != nil {
		return nil, fmt.Errorf("xbrl metrics for %s: %w", ticker, err)
	}
	return extractKeyMetrics(facts), nil
}

// extractKeyMetrics pulls the last three annual values for each tracked
// concept. Frame-aggregated entries are excluded since they duplicate the
// as-filed values.
func extractKeyMetrics(facts *models.CompanyFacts) map[string][]models.FactPoint {
	metrics := make(map[string][]models.FactPoint)
	usGAAP := facts.Facts["us-gaap"]

	for _, item := range xbrlItems {
		concept, ok := usGAAP[item.concept]
		if !ok {
			continue
		}

		for _, unit := range unitPreference {
			values, ok := concept.Units[unit]
			if !ok {
				continue
			}

			annual := make([]models.FactValue, 0, len(values))
			for _, v := range values {
				if (v.Form == "10-K" || v.Form == "10-K/A") && v.Frame == "" {
					annual = append(annual, v)
				}
			}
			if len(annual) > 0 {
				sort.SliceStable(annual, func(i, j int) bool {
					return annual[i].End < annual[j].End
				})
				if len(annual) > 3 {
					annual = annual[len(annual)-3:]
				}

				points := make([]models.FactPoint, 0, len(annual))
				for _, v := range annual {
					points = append(points, models.FactPoint{
						Value:       v.Val,
						PeriodEnd:   v.End,
						PeriodStart: v.Start,
						Filed:       v.Filed,
					})
				}
				metrics[item.label] = points
			}
			break
		}
	}

	return metrics
}

// AnalyzeFilingWithAI answers a question against a company's filing history
// and XBRL metrics. With an empty query a five-point filing review is
// requested instead.
func (a *DocumentAgent) AnalyzeFilingWithAI(ctx context.Context, ticker, query string) string {
	ticker = normalizeTicker(ticker)

	info, err := a.filings.CompanyInfo(ctx, ticker)
	if err != nil {
		return fmt.Sprintf("Could not fetch SEC data for %s: %v", ticker, err)
	}

	xbrlMetrics, err := a.XBRLKeyMetrics(ctx, ticker)
	if err != nil {
		xbrlMetrics = nil
	}
	filings, err := a.filings.Filings(ctx, ticker, "10-K", 3)
	if err != nil {
		filings = nil
	}

	var filingCtx strings.Builder
	fmt.Fprintf(&filingCtx, "Company: %s (%s)\n", info.Name, ticker)
	fmt.Fprintf(&filingCtx, "SIC: %s\n", valueOr(info.SICDescription))
	fmt.Fprintf(&filingCtx, "Fiscal Year End: %s\n", valueOr(info.FiscalYearEnd))
	filingCtx.WriteString("\nRecent 10-K Filings:\n")
	for _, f := range filings {
		fmt.Fprintf(&filingCtx, "  - Filed: %s | %s\n", valueOr(f.FilingDate), f.Description)
	}

	filingCtx.WriteString("\nKey Financial Metrics (from XBRL filings):\n")
	for _, label := range metricLabelOrder {
		points, ok := xbrlMetrics[label]
		if !ok {
			continue
		}
		fmt.Fprintf(&filingCtx, "\n  %s:\n", titleWords(label))
		for _, p := range points {
			fmt.Fprintf(&filingCtx, "    Period ending %s: %s\n", valueOr(p.PeriodEnd), formatFactValue(p.Value))
		}
	}

	if len(filings) > 0 {
		if excerpt := a.filingExcerpt(ctx, ticker, filings[0]); excerpt != "" {
			fmt.Fprintf(&filingCtx, "\nLatest %s Filing (excerpt):\n%s\n", filings[0].Form, excerpt)
		}
	}

	var prompt string
	if query != "" {
		prompt = fmt.Sprintf(`Based on the following SEC filing data for %s, answer this question:
%s

%s

Provide a thorough analysis citing specific metrics and trends. If the data is insufficient to fully answer,
note what additional information would be needed.`, ticker, query, filingCtx.String())
	} else {
		prompt = fmt.Sprintf(`Provide a comprehensive analysis of %s's SEC filings based on this data:

%s

Include:
1. Revenue and earnings trends (year-over-year changes)
2. Profitability analysis
3. Balance sheet strength
4. Key changes or trends observed
5. Notable items that warrant further investigation`, ticker, filingCtx.String())
	}

	return a.gen.Generate(ctx, prompt, &models.GenerateOptions{SystemInstruction: documentPersona})
}

// filingExcerpt fetches the filing's primary document and converts the HTML
// to markdown for the prompt. The excerpt is best-effort: any fetch or
// conversion failure leaves the prompt without it instead of failing the
// analysis.
func (a *DocumentAgent) filingExcerpt(ctx context.Context, ticker string, filing models.FilingRecord) string {
	body, err := a.filings.FilingDocument(ctx, ticker, filing)
	if err != nil || len(body) == 0 {
		return ""
	}

	converter := md.NewConverter("", true, nil)
	text, err := converter.ConvertString(string(body))
	if err != nil {
		return ""
	}

	text = strings.TrimSpace(text)
	if len(text) > filingExcerptMax {
		text = text[:filingExcerptMax] + "\n[truncated]"
	}
	return text
}

// AnalyzeUploadedDocument analyzes an uploaded PDF against the query.
func (a *DocumentAgent) AnalyzeUploadedDocument(ctx context.Context, data []byte, query, filename string) string {
	return a.gen.AnalyzeDocument(ctx, data, query, filename)
}

func formatFactValue(v float64) string {
	abs := math.Abs(v)
	switch {
	case abs >= 1e9:
		return fmt.Sprintf("$%.2fB", v/1e9)
	case abs > 1e6:
		return fmt.Sprintf("$%.1fM", v/1e6)
	default:
		return fmt.Sprintf("%.2f", v)
	}
}

func valueOr(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
