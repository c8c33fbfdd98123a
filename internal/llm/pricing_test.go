package llm

import (
	"math"
	"testing"
)

func TestLookupCost(t *testing.T) {
	tests := []struct {
		model     string
		wantInput float64
		wantNil   bool
	}{
		{model: "gpt-4o-mini", wantInput: 0.15},
		{model: "gpt-4o-mini-2024-07-18", wantInput: 0.15},
		{model: "claude-haiku-4-5-20251001", wantInput: 1},
		{model: "google/gemini-2.5-flash", wantInput: 0.3},
		{model: "gemini-2.5-flash-lite-preview-09-2025", wantInput: 0.1},
		{model: "llama-3-70b", wantNil: true},
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			c := LookupCost(tt.model)
			if tt.wantNil {
				if c != nil {
					t.Errorf("LookupCost(%q) = %+v, want nil", tt.model, c)
				}
				return
			}
			if c == nil {
				t.Fatalf("LookupCost(%q) = nil", tt.model)
			}
			if c.InputPerMTok != tt.wantInput {
				t.Errorf("input price = %v, want %v", c.InputPerMTok, tt.wantInput)
			}
		})
	}
}

func TestModelCost(t *testing.T) {
	c := ModelCost{InputPerMTok: 2, OutputPerMTok: 8}
	got := c.Cost(500_000, 250_000)
	if math.Abs(got-3) > 1e-9 {
		t.Errorf("Cost = %v, want 3", got)
	}
}
