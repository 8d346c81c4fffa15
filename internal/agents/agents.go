// Package agents implements the specialist analysts behind the query router.
// Each agent assembles a bounded text context from provider data and makes a
// single generation call under its own persona.
package agents

import (
	"fmt"
	"strings"

	"FinSight/internal/domain/models"
)

// metricOr renders a raw metric value, falling back to N/A when absent.
func metricOr(b models.MetricsBundle, key string) string {
	if v, ok := b[key]; ok && v != nil {
		return fmt.Sprintf("%v", v)
	}
	return "N/A"
}

// dollarOr prefixes a raw metric value with a dollar sign.
func dollarOr(b models.MetricsBundle, key string) string {
	return "$" + metricOr(b, key)
}

// titleWords turns an indicator key like leverage_risk into "Leverage Risk".
func titleWords(key string) string {
	words := strings.Split(strings.ReplaceAll(key, "_", " "), " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func normalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}
