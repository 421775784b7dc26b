package tokenusage

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{name: "empty", text: "", want: 0},
		{name: "whitespace only", text: "   \n", want: 0},
		{name: "short text floors to one", text: "hi", want: 1},
		{name: "four chars per token", text: strings.Repeat("a", 400), want: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EstimateTokens(tt.text); got != tt.want {
				t.Errorf("EstimateTokens(%q...) = %d, want %d", tt.text[:min(len(tt.text), 8)], got, tt.want)
			}
		})
	}
}

func TestCostFor(t *testing.T) {
	promptPrice := decimal.RequireFromString("2.50")      // per 1M tokens
	completionPrice := decimal.RequireFromString("10.00") // per 1M tokens

	got := CostFor(1_000_000, 500_000, promptPrice, completionPrice)
	want := decimal.RequireFromString("7.50")
	if !got.Equal(want) {
		t.Errorf("CostFor = %s, want %s", got, want)
	}

	if zero := CostFor(0, 0, promptPrice, completionPrice); !zero.IsZero() {
		t.Errorf("CostFor(0,0) = %s, want 0", zero)
	}
}
