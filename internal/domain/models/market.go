package models

// MetricsBundle maps metric names (marketCap, trailingPE, ...) to values
// as returned by the quote provider. A missing key means "unknown", never
// zero. Values are float64, string, or int64 depending on the field.
type MetricsBundle map[string]interface{}

// Float returns a numeric metric. Integers are widened to float64.
func (m MetricsBundle) Float(key string) (float64, bool) {
	v, ok := m[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	}
	return 0, false
}

// String returns a string metric.
func (m MetricsBundle) String(key string) (string, bool) {
	v, ok := m[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// StringOr returns a string metric or the fallback when absent.
func (m MetricsBundle) StringOr(key, fallback string) string {
	if s, ok := m.String(key); ok && s != "" {
		return s
	}
	return fallback
}

// CompanyName resolves the display name, preferring the long name.
func (m MetricsBundle) CompanyName(fallback string) string {
	if s, ok := m.String("longName"); ok && s != "" {
		return s
	}
	return m.StringOr("shortName", fallback)
}

// CompanyOverview is the market agent's normalized view of one company.
type CompanyOverview struct {
	Ticker  string
	Name    string
	Metrics MetricsBundle
}

// FilingRecord is one SEC filing entry.
type FilingRecord struct {
	AccessionNumber string `json:"accession_number"`
	FilingDate      string `json:"filing_date"`
	Form            string `json:"form"`
	PrimaryDocument string `json:"primary_document"`
	Description     string `json:"description"`
}

// CompanyInfo is basic registrant data from SEC submissions.
type CompanyInfo struct {
	Name           string   `json:"name"`
	CIK            string   `json:"cik"`
	Ticker         string   `json:"ticker"`
	SIC            string   `json:"sic"`
	SICDescription string   `json:"sic_description"`
	FiscalYearEnd  string   `json:"fiscal_year_end"`
	State          string   `json:"state"`
	Exchanges      []string `json:"exchanges"`
}

// NewsItem is one news headline for a ticker.
type NewsItem struct {
	Title     string `json:"title"`
	Publisher string `json:"publisher"`
	Link      string `json:"link"`
	Published int64  `json:"published"`
	Type      string `json:"type"`
}

// FactValue is one datapoint of an XBRL concept.
type FactValue struct {
	Start string  `json:"start"`
	End   string  `json:"end"`
	Val   float64 `json:"val"`
	Form  string  `json:"form"`
	Filed string  `json:"filed"`
	Frame string  `json:"frame"`
}

// ConceptFacts groups datapoints of one accounting concept by unit.
type ConceptFacts struct {
	Label string                 `json:"label"`
	Units map[string][]FactValue `json:"units"`
}

// CompanyFacts is the raw structured-facts payload for a company, keyed
// by taxonomy ("us-gaap", "dei") then by concept name.
type CompanyFacts struct {
	CIK        int64                              `json:"cik"`
	EntityName string                             `json:"entityName"`
	Facts      map[string]map[string]ConceptFacts `json:"facts"`
}

// FactPoint is one extracted annual datapoint of a whitelisted concept.
type FactPoint struct {
	Value       float64 `json:"value"`
	PeriodEnd   string  `json:"period_end"`
	PeriodStart string  `json:"period_start"`
	Filed       string  `json:"filed"`
}
