package domain_test

import (
	"math"
	"testing"

	"weighbridge/internal/domain"
)

func TestFormatWeight(t *testing.T) {
	tests := []struct {
		name string
		kg   float64
		want string
	}{
		{"zero", 0, "0 kg"},
		{"small fraction", 4.5, "4.5 kg"},
		{"just under a ton", 999.999, "999.999 kg"},
		{"exactly a ton", 1000, "1 tons"},
		{"tons with decimals", 3510, "3.51 tons"},
		{"rounds to three decimals", 1234.5678, "1.235 tons"},
		{"groups thousands", 1234567, "1,234.567 tons"},
		{"large grouping", 9876543210, "9,876,543.21 tons"},
		{"negative", -12.25, "-12.25 kg"},
		{"NaN does not panic", math.NaN(), "NaN kg"},
		{"infinity", math.Inf(1), "+Inf kg"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := domain.FormatWeight(tc.kg); got != tc.want {
				t.Errorf("FormatWeight(%v) = %q; want %q", tc.kg, got, tc.want)
			}
		})
	}
}

func TestFormatRecordID(t *testing.T) {
	tests := []struct {
		id, want string
	}{
		{"3f2b9c1e-8d4a-4b7e-9a6f-0c1d2e3f4a5b", "0C1D2E3F4A5B"},
		{"short", "SHORT"},
		{"", ""},
		{"abcdefghijkl", "ABCDEFGHIJKL"},
	}
	for _, tc := range tests {
		if got := domain.FormatRecordID(tc.id); got != tc.want {
			t.Errorf("FormatRecordID(%q) = %q; want %q", tc.id, got, tc.want)
		}
	}
}
