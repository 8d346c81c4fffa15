package sec

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"FinSight/internal/domain/models"
	"FinSight/internal/service/ratelimit"
	"FinSight/pkg/cache"
	xhttp "FinSight/pkg/http"
	applogger "FinSight/pkg/logger"
)

const (
	defaultDataBaseURL  = "https://data.sec.gov"
	defaultFilesBaseURL = "https://www.sec.gov"

	// SEC fair-access policy allows at most 10 requests per second.
	rateKey       = "sec"
	rateCapacity  = 10
	ratePerSecond = 10
)

// ClientOption configures Client.
type ClientOption func(*Client)

// Client fetches filings and structured facts from SEC EDGAR. Ticker to CIK
// resolution is memoized through the cache layer since the mapping file is
// large and effectively static.
type Client struct {
	http         *xhttp.Client
	cache        cache.Service
	limiter      *ratelimit.Limiter
	logger       *applogger.Logger
	userAgent    string
	dataBaseURL  string
	filesBaseURL string
}

// NewClient creates an EDGAR client. The user agent is required by SEC's
// access policy and must identify the calling application.
func NewClient(userAgent string, opts ...ClientOption) *Client {
	c := &Client{
		http:         xhttp.NewClient(xhttp.WithTimeout(30 * time.Second)),
		cache:        cache.NewMemoryCache(),
		limiter:      ratelimit.New(),
		userAgent:    userAgent,
		dataBaseURL:  defaultDataBaseURL,
		filesBaseURL: defaultFilesBaseURL,
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

// WithCache sets the CIK memoization cache.
func WithCache(cs cache.Service) ClientOption {
	return func(c *Client) {
		c.cache = cs
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *applogger.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

// WithBaseURLs overrides the EDGAR endpoints.
func WithBaseURLs(dataURL, filesURL string) ClientOption {
	return func(c *Client) {
		if dataURL != "" {
			c.dataBaseURL = dataURL
		}
		if filesURL != "" {
			c.filesBaseURL = filesURL
		}
	}
}

type tickerEntry struct {
	CIK    int64  `json:"cik_str"`
	Ticker string `json:"ticker"`
	Title  string `json:"title"`
}

// CIK resolves a ticker to its zero-padded 10-digit CIK.
func (c *Client) CIK(ctx context.Context, ticker string) (string, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	cacheKey := "sec:cik:" + ticker

	var cached string
	if err := c.cache.Get(ctx, cacheKey, &cached); err == nil && cached != "" {
		return cached, nil
	} else if err != nil && !errors.Is(err, cache.ErrCacheMiss) && c.logger != nil {
		c.logger.Warn("cik cache read failed", applogger.Error(err))
	}

	var entries map[string]tickerEntry
	if err := c.get(ctx, c.filesBaseURL+"/files/company_tickers.json", &entries); err != nil {
		return "", fmt.Errorf("fetch company tickers: %w", err)
	}

	for _, e := range entries {
		if strings.EqualFold(e.Ticker, ticker) {
			cik := fmt.Sprintf("%010d", e.CIK)
			if err := c.cache.Set(ctx, cacheKey, cik, 0); err != nil && c.logger != nil {
				c.logger.Warn("cik cache write failed", applogger.Error(err))
			}
			return cik, nil
		}
	}

	return "", fmt.Errorf("no CIK found for ticker %s", ticker)
}

type submissionsResponse struct {
	Name                 string   `json:"name"`
	CIK                  string   `json:"cik"`
	SIC                  string   `json:"sic"`
	SICDescription       string   `json:"sicDescription"`
	FiscalYearEnd        string   `json:"fiscalYearEnd"`
	StateOfIncorporation string   `json:"stateOfIncorporation"`
	Tickers              []string `json:"tickers"`
	Exchanges            []string `json:"exchanges"`
	Filings              struct {
		Recent struct {
			AccessionNumber       []string `json:"accessionNumber"`
			FilingDate            []string `json:"filingDate"`
			Form                  []string `json:"form"`
			PrimaryDocument       []string `json:"primaryDocument"`
			PrimaryDocDescription []string `json:"primaryDocDescription"`
		} `json:"recent"`
	} `json:"filings"`
}

// CompanyInfo returns registrant data for a ticker.
func (c *Client) CompanyInfo(ctx context.Context, ticker string) (*models.CompanyInfo, error) {
	sub, err := c.submissions(ctx, ticker)
	if err != nil {
		return nil, err
	}

	info := &models.CompanyInfo{
		Name:           sub.Name,
		CIK:            sub.CIK,
		Ticker:         strings.ToUpper(ticker),
		SIC:            sub.SIC,
		SICDescription: sub.SICDescription,
		FiscalYearEnd:  sub.FiscalYearEnd,
		State:          sub.StateOfIncorporation,
		Exchanges:      sub.Exchanges,
	}
	return info, nil
}

// Filings returns the most recent filings of the given type, newest first.
// An empty filingType returns filings of any type.
func (c *Client) Filings(ctx context.Context, ticker, filingType string, count int) ([]models.FilingRecord, error) {
	sub, err := c.submissions(ctx, ticker)
	if err != nil {
		return nil, err
	}
	if count <= 0 {
		count = 10
	}

	recent := sub.Filings.Recent
	filings := make([]models.FilingRecord, 0, count)
	for i := range recent.Form {
		if filingType != "" && recent.Form[i] != filingType {
			continue
		}
		rec := models.FilingRecord{
			AccessionNumber: recent.AccessionNumber[i],
			FilingDate:      recent.FilingDate[i],
			Form:            recent.Form[i],
		}
		if i < len(recent.PrimaryDocument) {
			rec.PrimaryDocument = recent.PrimaryDocument[i]
		}
		if i < len(recent.PrimaryDocDescription) {
			rec.Description = recent.PrimaryDocDescription[i]
		}
		filings = append(filings, rec)
		if len(filings) >= count {
			break
		}
	}

	return filings, nil
}

// CompanyFacts returns the structured XBRL facts for a ticker.
func (c *Client) CompanyFacts(ctx context.Context, ticker string) (*models.CompanyFacts, error) {
	cik, err := c.CIK(ctx, ticker)
	if err != nil {
		return nil, err
	}

	var facts models.CompanyFacts
	url := fmt.Sprintf("%s/api/xbrl/companyfacts/CIK%s.json", c.dataBaseURL, cik)
	if err := c.get(ctx, url, &facts); err != nil {
		return nil, fmt.Errorf("fetch company facts for %s: %w", ticker, err)
	}
	return &facts, nil
}

// FilingDocument downloads a filing's primary document.
func (c *Client) FilingDocument(ctx context.Context, ticker string, filing models.FilingRecord) ([]byte, error) {
	cik, err := c.CIK(ctx, ticker)
	if err != nil {
		return nil, err
	}
	if filing.PrimaryDocument == "" {
		return nil, fmt.Errorf("filing %s has no primary document", filing.AccessionNumber)
	}

	accession := strings.ReplaceAll(filing.AccessionNumber, "-", "")
	url := fmt.Sprintf("%s/Archives/edgar/data/%s/%s/%s",
		c.filesBaseURL, strings.TrimLeft(cik, "0"), accession, filing.PrimaryDocument)

	var body []byte
	if err := c.get(ctx, url, &body); err != nil {
		return nil, fmt.Errorf("fetch filing document: %w", err)
	}
	return body, nil
}

func (c *Client) submissions(ctx context.Context, ticker string) (*submissionsResponse, error) {
	cik, err := c.CIK(ctx, ticker)
	if err != nil {
		return nil, err
	}

	var sub submissionsResponse
	url := fmt.Sprintf("%s/submissions/CIK%s.json", c.dataBaseURL, cik)
	if err := c.get(ctx, url, &sub); err != nil {
		return nil, fmt.Errorf("fetch submissions for %s: %w", ticker, err)
	}
	return &sub, nil
}

// get performs a rate-limited GET with the mandatory user agent.
func (c *Client) get(ctx context.Context, url string, dest interface{}) error {
	for !c.limiter.Allow(rateKey, rateCapacity, ratePerSecond) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}

	return c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    url,
		Headers: map[string]string{
			"User-Agent": c.userAgent,
		},
	}, dest)
}
