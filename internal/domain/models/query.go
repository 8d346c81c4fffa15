package models

// Intent labels produced by classification. Routing matches by substring,
// not equality, so a near-miss label like "RISK_ASSESSMENT_DETAIL" still
// reaches the risk path.
const (
	IntentMarketAnalysis   = "MARKET_ANALYSIS"
	IntentDocumentAnalysis = "DOCUMENT_ANALYSIS"
	IntentSentiment        = "SENTIMENT"
	IntentRiskAssessment   = "RISK_ASSESSMENT"
	IntentInvestmentThesis = "INVESTMENT_THESIS"
	IntentPeerComparison   = "PEER_COMPARISON"
	IntentEarnings         = "EARNINGS"
	IntentGeneral          = "GENERAL"
)

// ActivityPlaceholder is logged in place of a ticker list when a query
// resolves no tickers.
const ActivityPlaceholder = "GEN"

// Activity statuses for the fire-and-forget log.
const (
	StatusStarted   = "STARTED"
	StatusCompleted = "COMPLETED"
)

// QueryResult is the outcome of one routed query.
type QueryResult struct {
	Response string   `json:"response"`
	Tickers  []string `json:"tickers,omitempty"`
	Intent   string   `json:"intent,omitempty"`
}

// ChatMessage is a single turn of a chat exchange.
type ChatMessage struct {
	Role    string `json:"role"` // "user" or "model"
	Content string `json:"content"`
}

// QueryRequest is the API payload for a routed query. When History is
// present the exchange is replayed as a chat completion instead of going
// through the routing rules.
type QueryRequest struct {
	Query   string        `json:"query" validate:"required,min=1"`
	History []ChatMessage `json:"history,omitempty"`
}

// GenerateOptions tunes a single generation call. A nil options pointer
// means defaults (temperature 0.3, 8192 output tokens, no persona). The
// temperature is a pointer so an explicit 0 for deterministic classification
// calls is distinguishable from unset.
type GenerateOptions struct {
	SystemInstruction string
	Temperature       *float32
	MaxOutputTokens   int32
}

// Temp builds a temperature pointer for GenerateOptions literals.
func Temp(v float32) *float32 { return &v }

// AnalysisEvent is published when an analysis completes for a resolved
// ticker, and consumed by the results sink.
type AnalysisEvent struct {
	Ticker    string `json:"ticker"`
	Agent     string `json:"agent"`
	Summary   string `json:"summary"`
	Timestamp string `json:"timestamp"`
}
