package models

// RiskLevel ranks a single risk category.
type RiskLevel string

const (
	RiskCritical RiskLevel = "Critical"
	RiskHigh     RiskLevel = "High"
	RiskMedium   RiskLevel = "Medium"
	RiskLow      RiskLevel = "Low"
)

// RiskIndicator is one scored risk category. Value holds the metric that
// produced the level, Note the short human explanation.
type RiskIndicator struct {
	Level RiskLevel `json:"level"`
	Value float64   `json:"value"`
	Note  string    `json:"note"`
}
