package agents

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"FinSight/internal/domain/models"
)

type fakeFilingStore struct {
	info    *models.CompanyInfo
	filings []models.FilingRecord
	facts   *models.CompanyFacts
	doc     []byte
	err     error
}

func (f *fakeFilingStore) CompanyInfo(ctx context.Context, ticker string) (*models.CompanyInfo, error) {
	return f.info, f.err
}

func (f *fakeFilingStore) Filings(ctx context.Context, ticker, filingType string, count int) ([]models.FilingRecord, error) {
	return f.filings, f.err
}

func (f *fakeFilingStore) CompanyFacts(ctx context.Context, ticker string) (*models.CompanyFacts, error) {
	if f.facts == nil {
		return nil, fmt.Errorf("no facts")
	}
	return f.facts, f.err
}

func (f *fakeFilingStore) FilingDocument(ctx context.Context, ticker string, filing models.FilingRecord) ([]byte, error) {
	if f.doc == nil {
		return nil, fmt.Errorf("no document")
	}
	return f.doc, nil
}

func annualFacts(concept, unit string, values []models.FactValue) *models.CompanyFacts {
	return &models.CompanyFacts{
		EntityName: "Apple Inc.",
		Facts: map[string]map[string]models.ConceptFacts{
			"us-gaap": {
				concept: {Units: map[string][]models.FactValue{unit: values}},
			},
		},
	}
}

func TestExtractKeyMetricsFiltersAndSorts(t *testing.T) {
	facts := annualFacts("NetIncomeLoss", "USD", []models.FactValue{
		{End: "2023-09-30", Val: 97e9, Form: "10-K", Filed: "2023-11-03"},
		{End: "2024-09-28", Val: 93e9, Form: "10-K", Filed: "2024-11-01"},
		{End: "2024-06-29", Val: 21e9, Form: "10-Q", Filed: "2024-08-02"},
		{End: "2022-09-24", Val: 99e9, Form: "10-K", Filed: "2022-10-28"},
		{End: "2021-09-25", Val: 94e9, Form: "10-K", Filed: "2021-10-29"},
		{End: "2023-09-30", Val: 97e9, Form: "10-K", Frame: "CY2023", Filed: "2023-11-03"},
	})

	metrics := extractKeyMetrics(facts)
	points, ok := metrics["net_income"]
	if !ok {
		t.Fatalf("net_income missing from %v", metrics)
	}
	if len(points) != 3 {
		t.Fatalf("expected last 3 annual values, got %d", len(points))
	}
	if points[0].PeriodEnd != "2022-09-24" || points[2].PeriodEnd != "2024-09-28" {
		t.Fatalf("values not sorted by period end: %+v", points)
	}
}

func TestExtractKeyMetricsUnitPreference(t *testing.T) {
	facts := &models.CompanyFacts{
		Facts: map[string]map[string]models.ConceptFacts{
			"us-gaap": {
				"EarningsPerShareBasic": {Units: map[string][]models.FactValue{
					"USD/shares": {{End: "2024-09-28", Val: 6.11, Form: "10-K"}},
					"shares":     {{End: "2024-09-28", Val: 1, Form: "10-K"}},
				}},
			},
		},
	}

	metrics := extractKeyMetrics(facts)
	points := metrics["eps_basic"]
	if len(points) != 1 || points[0].Value != 6.11 {
		t.Fatalf("expected USD/shares value, got %+v", points)
	}
}

func TestExtractKeyMetricsLaterConceptOverrides(t *testing.T) {
	facts := &models.CompanyFacts{
		Facts: map[string]map[string]models.ConceptFacts{
			"us-gaap": {
				"Revenues": {Units: map[string][]models.FactValue{
					"USD": {{End: "2022-09-24", Val: 100e9, Form: "10-K"}},
				}},
				"RevenueFromContractWithCustomerExcludingAssessedTax": {Units: map[string][]models.FactValue{
					"USD": {{End: "2024-09-28", Val: 391e9, Form: "10-K"}},
				}},
			},
		},
	}

	metrics := extractKeyMetrics(facts)
	points := metrics["revenue"]
	if len(points) != 1 || points[0].Value != 391e9 {
		t.Fatalf("expected contract revenue concept to win, got %+v", points)
	}
}

func TestAnalyzeFilingContext(t *testing.T) {
	gen := &fakeGenerator{}
	agent := NewDocumentAgent(gen, &fakeFilingStore{
		info: &models.CompanyInfo{
			Name:           "Apple Inc.",
			SICDescription: "Electronic Computers",
			FiscalYearEnd:  "0930",
		},
		filings: []models.FilingRecord{
			{FilingDate: "2024-11-01", Form: "10-K", Description: "10-K"},
		},
		facts: annualFacts("NetIncomeLoss", "USD", []models.FactValue{
			{End: "2024-09-28", Val: 93.736e9, Form: "10-K"},
		}),
	})

	agent.AnalyzeFilingWithAI(context.Background(), "aapl", "")
	if gen.lastOpts.SystemInstruction != documentPersona {
		t.Fatalf("wrong persona")
	}
	for _, want := range []string{
		"Company: Apple Inc. (AAPL)",
		"SIC: Electronic Computers",
		"Fiscal Year End: 0930",
		"  - Filed: 2024-11-01 | 10-K",
		"  Net Income:",
		"    Period ending 2024-09-28: $93.74B",
		"1. Revenue and earnings trends (year-over-year changes)",
	} {
		if !strings.Contains(gen.lastPrompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, gen.lastPrompt)
		}
	}
}

func TestAnalyzeFilingWithQuery(t *testing.T) {
	gen := &fakeGenerator{}
	agent := NewDocumentAgent(gen, &fakeFilingStore{info: &models.CompanyInfo{Name: "Apple Inc."}})

	agent.AnalyzeFilingWithAI(context.Background(), "AAPL", "how is revenue trending?")
	if !strings.Contains(gen.lastPrompt, "answer this question:\nhow is revenue trending?") {
		t.Fatalf("query missing from prompt:\n%s", gen.lastPrompt)
	}
}

func TestAnalyzeFilingIncludesDocumentExcerpt(t *testing.T) {
	gen := &fakeGenerator{}
	agent := NewDocumentAgent(gen, &fakeFilingStore{
		info: &models.CompanyInfo{Name: "Apple Inc."},
		filings: []models.FilingRecord{
			{FilingDate: "2024-11-01", Form: "10-K", Description: "10-K", PrimaryDocument: "aapl-20240928.htm"},
		},
		doc: []byte("<html><body><h1>Risk Factors</h1><p>Supply chain concentration remains a material risk.</p></body></html>"),
	})

	agent.AnalyzeFilingWithAI(context.Background(), "AAPL", "")
	for _, want := range []string{
		"Latest 10-K Filing (excerpt):",
		"# Risk Factors",
		"Supply chain concentration remains a material risk.",
	} {
		if !strings.Contains(gen.lastPrompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, gen.lastPrompt)
		}
	}
}

func TestFilingExcerptTruncates(t *testing.T) {
	long := strings.Repeat("risk ", 4000)
	agent := NewDocumentAgent(&fakeGenerator{}, &fakeFilingStore{doc: []byte("<p>" + long + "</p>")})

	got := agent.filingExcerpt(context.Background(), "AAPL", models.FilingRecord{Form: "10-K"})
	if !strings.HasSuffix(got, "[truncated]") {
		t.Fatalf("missing truncation marker:\n%s", got[len(got)-50:])
	}
	if len(got) > filingExcerptMax+len("\n[truncated]") {
		t.Fatalf("excerpt not capped: %d chars", len(got))
	}
}

func TestFilingExcerptAbsentWhenDocumentUnavailable(t *testing.T) {
	agent := NewDocumentAgent(&fakeGenerator{}, &fakeFilingStore{})
	if got := agent.filingExcerpt(context.Background(), "AAPL", models.FilingRecord{Form: "10-K"}); got != "" {
		t.Fatalf("expected empty excerpt, got %q", got)
	}
}

func TestFormatFactValue(t *testing.T) {
	tests := []struct {
		v    float64
		want string
	}{
		{93.736e9, "$93.74B"},
		{450e6, "$450.0M"},
		{-2e9, "$-2.00B"},
		{6.11, "6.11"},
		{1e6, "1000000.00"},
	}
	for _, tt := range tests {
		if got := formatFactValue(tt.v); got != tt.want {
			t.Fatalf("formatFactValue(%v) = %q, want %q", tt.v, got, tt.want)
		}
	}
}
