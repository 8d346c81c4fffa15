package util

import "testing"

func TestFormatLargeNumber(t *testing.T) {
	tests := []struct {
		name string
		v    float64
		ok   bool
		want string
	}{
		{"missing", 0, false, "N/A"},
		{"trillions", 3.456e12, true, "$3.46T"},
		{"billions", 2.5e9, true, "$2.50B"},
		{"millions", 1.2e6, true, "$1.20M"},
		{"thousands", 45600, true, "$45.6K"},
		{"small", 999.994, true, "$999.99"},
		{"negative billions", -2.5e9, true, "$-2.50B"},
		{"zero", 0, true, "$0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatLargeNumber(tt.v, tt.ok); got != tt.want {
				t.Fatalf("FormatLargeNumber(%v) = %q, want %q", tt.v, got, tt.want)
			}
		})
	}
}

func TestFormatPercentage(t *testing.T) {
	tests := []struct {
		name string
		v    float64
		ok   bool
		want string
	}{
		{"missing", 0, false, "N/A"},
		{"fraction", 0.1523, true, "15.23%"},
		{"negative fraction", -0.05, true, "-5.00%"},
		{"already percent", 15.23, true, "15.23%"},
		{"exactly one", 1.0, true, "1.00%"},
		{"zero", 0, true, "0.00%"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatPercentage(tt.v, tt.ok); got != tt.want {
				t.Fatalf("FormatPercentage(%v) = %q, want %q", tt.v, got, tt.want)
			}
		})
	}
}
