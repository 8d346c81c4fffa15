package agents

import (
	"context"
	"fmt"
	"strings"

	"FinSight/internal/domain/models"
	"FinSight/internal/domain/repository"
)

const sentimentPersona = `You are an expert financial sentiment analyst agent. Your role is to:
1. Analyze news headlines and articles for sentiment (bullish/bearish/neutral)
2. Identify market-moving events and catalysts
3. Assess overall market sentiment for specific companies
4. Detect shifts in sentiment that might precede price movements
5. Provide sentiment scores and explain the reasoning
6. Consider both quantitative signals and qualitative news content
Always provide specific evidence for your sentiment assessments.
Rate sentiment on a scale from -1.0 (very bearish) to +1.0 (very bullish).`

const (
	batchHeadlines = 5
	customTextCap  = 5000
)

// SentimentAgent reads news flow and quote context to gauge sentiment.
type SentimentAgent struct {
	gen    repository.TextGenerator
	market repository.MarketData
}

// NewSentimentAgent creates a sentiment analysis agent.
func NewSentimentAgent(gen repository.TextGenerator, market repository.MarketData) *SentimentAgent {
	return &SentimentAgent{gen: gen, market: market}
}

// AnalyzeSentiment gauges sentiment for one company from recent headlines
// and the current quote context.
func (a *SentimentAgent) AnalyzeSentiment(ctx context.Context, ticker string) string {
	ticker = normalizeTicker(ticker)

	news, err := a.market.News(ctx, ticker, 0)
	if err != nil {
		news = nil
	}

	companyName := ticker
	stockContext := ""
	if info, err := a.market.StockInfo(ctx, ticker); err == nil {
		companyName = info.CompanyName(ticker)
		stockContext = fmt.Sprintf(`
Current Stock Context:
- Current Price: %s
- Analyst Recommendation: %s
- Mean Target Price: %s
- 52-Week Range: %s - %s
`,
			dollarOr(info, "currentPrice"), metricOr(info, "recommendationKey"), dollarOr(info, "targetMeanPrice"),
			dollarOr(info, "fiftyTwoWeekLow"), dollarOr(info, "fiftyTwoWeekHigh"))
	}

	newsText := "No recent news articles available."
	if len(news) > 0 {
		lines := make([]string, 0, len(news))
		for _, item := range news {
			if item.Title == "" {
				continue
			}
			lines = append(lines, fmt.Sprintf("- [%s] %s", item.Publisher, item.Title))
		}
		newsText = strings.Join(lines, "\n")
	}

	prompt := fmt.Sprintf(`Analyze the current sentiment for %s (%s).

Recent News Headlines:
%s

%s

Provide:
1. **Overall Sentiment Score**: Rate from -1.0 (very bearish) to +1.0 (very bullish)
2. **Sentiment Summary**: 2-3 sentence overview of current sentiment
3. **Key Positive Factors**: Bullish signals from news and data
4. **Key Negative Factors**: Bearish signals from news and data
5. **Sentiment Drivers**: What's driving the current sentiment
6. **Outlook**: Short-term sentiment outlook (1-4 weeks)
7. **Risk Events**: Upcoming events that could shift sentiment

Format your response clearly with headers and bullet points.`, companyName, ticker, newsText, stockContext)

	return a.gen.Generate(ctx, prompt, &models.GenerateOptions{SystemInstruction: sentimentPersona})
}

// AnalyzeNewsBatch compares sentiment across several companies from their
// five most recent headlines each.
func (a *SentimentAgent) AnalyzeNewsBatch(ctx context.Context, tickers []string) string {
	var summary strings.Builder
	for _, ticker := range tickers {
		ticker = normalizeTicker(ticker)
		fmt.Fprintf(&summary, "\n%s:\n", ticker)

		news, err := a.market.News(ctx, ticker, batchHeadlines)
		if err != nil || len(news) == 0 {
			summary.WriteString("  - No recent news\n")
			continue
		}
		for _, item := range news {
			fmt.Fprintf(&summary, "  - %s\n", item.Title)
		}
	}

	prompt := fmt.Sprintf(`Analyze the sentiment across these companies based on recent news:

%s

For each company, provide:
1. Sentiment score (-1.0 to +1.0)
2. Key sentiment driver
3. Notable news items

Then provide a comparative sentiment ranking and any sector-wide themes.`, summary.String())

	return a.gen.Generate(ctx, prompt, &models.GenerateOptions{SystemInstruction: sentimentPersona})
}

// AnalyzeCustomText gauges sentiment of arbitrary financial text, such as an
// earnings call transcript. Text beyond the cap is cut off.
func (a *SentimentAgent) AnalyzeCustomText(ctx context.Context, text, textContext string) string {
	if len(text) > customTextCap {
		text = text[:customTextCap]
	}

	contextLine := ""
	if textContext != "" {
		contextLine = "Context: " + textContext
	}

	prompt := fmt.Sprintf(`Analyze the sentiment of the following financial text:

%s

Text to analyze:
---
%s
---

Provide:
1. **Overall Sentiment**: Score from -1.0 to +1.0 with label
2. **Tone Analysis**: Management confidence level, forward-looking optimism
3. **Key Positive Statements**: Quotes or paraphrases
4. **Key Negative Statements**: Quotes or paraphrases
5. **Hidden Signals**: Subtle language changes or hedging
6. **Comparison**: How this compares to typical earnings call language`, contextLine, text)

	return a.gen.Generate(ctx, prompt, &models.GenerateOptions{SystemInstruction: sentimentPersona})
}
