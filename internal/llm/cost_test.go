package llm

import "testing"

func TestCalculateCost(t *testing.T) {
	tests := []struct {
		name   string
		model  string
		input  int
		output int
		want   float64
	}{
		{
			name:   "gpt-4o-mini",
			model:  "gpt-4o-mini",
			input:  1000,
			output: 1000,
			want:   0.00015 + 0.0006,
		},
		{
			name:   "unknown model costs nothing",
			model:  "some-future-model",
			input:  100000,
			output: 100000,
			want:   0,
		},
		{
			name:  "zero tokens",
			model: "gpt-4o-mini",
			want:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateCost(tt.model, tt.input, tt.output)
			if diff := got - tt.want; diff > 1e-12 || diff < -1e-12 {
				t.Errorf("CalculateCost(%q, %d, %d) = %v, want %v", tt.model, tt.input, tt.output, got, tt.want)
			}
		})
	}
}

func TestCalculateCostScalesWithTokens(t *testing.T) {
	small := CalculateCost("gpt-4o", 500, 500)
	large := CalculateCost("gpt-4o", 5000, 5000)
	if large <= small {
		t.Errorf("expected cost to grow with tokens: small=%v large=%v", small, large)
	}
}
