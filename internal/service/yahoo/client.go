package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"FinSight/internal/domain/models"
	"FinSight/internal/domain/repository"
	xhttp "FinSight/pkg/http"
	applogger "FinSight/pkg/logger"
)

const (
	defaultBaseURL = "https://query2.finance.yahoo.com"

	quoteModules = "price,summaryDetail,financialData,defaultKeyStatistics,assetProfile"

	maxRetries = 3
	retryDelay = 500 * time.Millisecond

	newsLimit = 10
)

// meaningfulKeys marks a quote response as usable. A payload without any of
// them is treated as a transient empty answer and retried.
var meaningfulKeys = []string{"currentPrice", "marketCap", "shortName", "longName", "sector"}

// metricKeys is the whitelist applied by KeyMetrics.
var metricKeys = []string{
	"marketCap", "enterpriseValue", "trailingPE", "forwardPE",
	"pegRatio", "priceToBook", "trailingEps", "forwardEps",
	"dividendYield", "payoutRatio", "beta", "fiftyTwoWeekHigh",
	"fiftyTwoWeekLow", "fiftyDayAverage", "twoHundredDayAverage",
	"revenueGrowth", "earningsGrowth", "grossMargins",
	"operatingMargins", "profitMargins", "returnOnEquity",
	"returnOnAssets", "debtToEquity", "currentRatio",
	"quickRatio", "freeCashflow", "operatingCashflow",
	"totalRevenue", "totalDebt", "totalCash",
	"shortName", "longName", "sector", "industry",
	"fullTimeEmployees", "website", "currentPrice",
	"targetHighPrice", "targetLowPrice", "targetMeanPrice",
	"recommendationKey", "numberOfAnalystOpinions",
}

// ClientOption configures Client.
type ClientOption func(*Client)

// Client fetches quote data and headlines from the Yahoo Finance public API.
type Client struct {
	http    *xhttp.Client
	logger  *applogger.Logger
	metrics repository.Metrics
	baseURL string

	// sleep is swapped out in tests.
	sleep func(time.Duration)
}

// NewClient creates a Yahoo Finance client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		http:    xhttp.NewClient(xhttp.WithTimeout(15 * time.Second)),
		baseURL: defaultBaseURL,
		sleep:   time.Sleep,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(hc *xhttp.Client) ClientOption {
	return func(c *Client) {
		c.http = hc
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *applogger.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m repository.Metrics) ClientOption {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithBaseURL overrides the API endpoint.
func WithBaseURL(url string) ClientOption {
	return func(c *Client) {
		if url != "" {
			c.baseURL = url
		}
	}
}

// StockInfo returns the flattened quote summary for a ticker. The endpoint
// sometimes answers with an empty or error-only payload on transient
// failures, so responses without any meaningful key are retried with a short
// delay, plus one final attempt that accepts whatever comes back.
func (c *Client) StockInfo(ctx context.Context, ticker string) (models.MetricsBundle, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))

	for attempt := 0; attempt < maxRetries; attempt++ {
		info, err := c.fetchQuote(ctx, ticker)
		if err == nil && hasMeaningfulKeys(info) {
			return info, nil
		}
		if c.metrics != nil {
			c.metrics.IncRetry("yahoo")
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.sleep(retryDelay)
	}

	// Retries exhausted: one final attempt, accept any non-trivial payload.
	info, err := c.fetchQuote(ctx, ticker)
	if err != nil {
		if c.metrics != nil {
			c.metrics.IncProviderError("yahoo")
		}
		return nil, fmt.Errorf("no data returned for %s: %w", ticker, err)
	}
	if len(info) == 0 {
		if c.metrics != nil {
			c.metrics.IncProviderError("yahoo")
		}
		return nil, fmt.Errorf("no data returned for %s", ticker)
	}
	return info, nil
}

// KeyMetrics returns the whitelisted subset of the quote summary.
func (c *Client) KeyMetrics(ctx context.Context, ticker string) (models.MetricsBundle, error) {
	info, err := c.StockInfo(ctx, ticker)
	if err != nil {
		return nil, err
	}

	metrics := make(models.MetricsBundle, len(metricKeys))
	for _, key := range metricKeys {
		if v, ok := info[key]; ok {
			metrics[key] = v
		}
	}
	return metrics, nil
}

type searchResponse struct {
	News []struct {
		Title               string `json:"title"`
		Publisher           string `json:"publisher"`
		Link                string `json:"link"`
		ProviderPublishTime int64  `json:"providerPublishTime"`
		Type                string `json:"type"`
	} `json:"news"`
}

// News returns up to limit recent headlines for a ticker (max 10).
func (c *Client) News(ctx context.Context, ticker string, limit int) ([]models.NewsItem, error) {
	if limit <= 0 || limit > newsLimit {
		limit = newsLimit
	}

	var resp searchResponse
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    c.baseURL + "/v1/finance/search",
		QueryParams: map[string][]string{
			"q":           {ticker},
			"newsCount":   {fmt.Sprintf("%d", newsLimit)},
			"quotesCount": {"0"},
		},
		Headers: map[string]string{"User-Agent": "Mozilla/5.0"},
	}, &resp)
	if err != nil {
		if c.metrics != nil {
			c.metrics.IncProviderError("yahoo")
		}
		return nil, fmt.Errorf("fetch news for %s: %w", ticker, err)
	}

	items := make([]models.NewsItem, 0, limit)
	for _, n := range resp.News {
		if len(items) >= limit {
			break
		}
		items = append(items, models.NewsItem{
			Title:     n.Title,
			Publisher: n.Publisher,
			Link:      n.Link,
			Published: n.ProviderPublishTime,
			Type:      n.Type,
		})
	}
	return items, nil
}

type quoteSummaryResponse struct {
	QuoteSummary struct {
		Result []map[string]map[string]json.RawMessage `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"quoteSummary"`
}

// fetchQuote calls quoteSummary and flattens the module maps into one bundle.
func (c *Client) fetchQuote(ctx context.Context, ticker string) (models.MetricsBundle, error) {
	var resp quoteSummaryResponse
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    fmt.Sprintf("%s/v10/finance/quoteSummary/%s", c.baseURL, ticker),
		QueryParams: map[string][]string{
			"modules": {quoteModules},
		},
		Headers: map[string]string{"User-Agent": "Mozilla/5.0"},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("fetch quote summary: %w", err)
	}

	if resp.QuoteSummary.Error != nil {
		return nil, fmt.Errorf("quote summary error for %s: %s", ticker, resp.QuoteSummary.Error.Description)
	}
	if len(resp.QuoteSummary.Result) == 0 {
		return nil, fmt.Errorf("empty quote summary for %s", ticker)
	}

	info := make(models.MetricsBundle)
	for _, module := range resp.QuoteSummary.Result[0] {
		for key, raw := range module {
			if v, ok := flattenValue(raw); ok {
				info[key] = v
			}
		}
	}
	return info, nil
}

// flattenValue unwraps Yahoo's {raw, fmt} number objects and keeps scalar
// values as they are. Nested objects without a raw field are dropped.
func flattenValue(raw json.RawMessage) (interface{}, bool) {
	var scalar interface{}
	if err := json.Unmarshal(raw, &scalar); err != nil {
		return nil, false
	}

	switch v := scalar.(type) {
	case map[string]interface{}:
		if r, ok := v["raw"]; ok {
			return r, true
		}
		return nil, false
	case []interface{}:
		return nil, false
	case nil:
		return nil, false
	default:
		return v, true
	}
}

func hasMeaningfulKeys(info models.MetricsBundle) bool {
	for _, key := range meaningfulKeys {
		if _, ok := info[key]; ok {
			return true
		}
	}
	return false
}
