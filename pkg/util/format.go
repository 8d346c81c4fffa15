package util

import (
	"fmt"
	"math"
)

// FormatLargeNumber renders a dollar amount with a T/B/M/K suffix. The ok
// flag mirrors map lookups so callers can pass lookup results straight in;
// a missing value renders as N/A.
func FormatLargeNumber(v float64, ok bool) string {
	if !ok {
		return "N/A"
	}

	abs := math.Abs(v)
	switch {
	case abs >= 1e12:
		return fmt.Sprintf("$%.2fT", v/1e12)
	case abs >= 1e9:
		return fmt.Sprintf("$%.2fB", v/1e9)
	case abs >= 1e6:
		return fmt.Sprintf("$%.2fM", v/1e6)
	case abs >= 1e3:
		return fmt.Sprintf("$%.1fK", v/1e3)
	default:
		return fmt.Sprintf("$%.2f", v)
	}
}

// FormatPercentage renders a ratio as a percentage. Values below 1 in
// magnitude are treated as fractions and scaled by 100; anything else is
// assumed to already be in percent.
func FormatPercentage(v float64, ok bool) string {
	if !ok {
		return "N/A"
	}

	if math.Abs(v) < 1 {
		return fmt.Sprintf("%.2f%%", v*100)
	}
	return fmt.Sprintf("%.2f%%", v)
}
