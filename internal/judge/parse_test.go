package judge

import (
	"strings"
	"testing"
)

func TestParseVerdict(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		scale    int
		want     float64
		feedback string
		wantErr  bool
	}{
		{
			name:     "well formed",
			text:     "SCORE: 8\nFEEDBACK: Clear and accurate answer.",
			scale:    10,
			want:     8,
			feedback: "Clear and accurate answer.",
		},
		{
			name:     "fractional score",
			text:     "SCORE: 7.5\nFEEDBACK: Mostly correct but verbose.",
			scale:    10,
			want:     7.5,
			feedback: "Mostly correct but verbose.",
		},
		{
			name:  "lowercase label",
			text:  "score: 6\nfeedback: fine",
			scale: 10,
			want:  6,
		},
		{
			name:  "no label falls back to first number",
			text:  "I would rate this a 9 out of 10. Great structure.",
			scale: 10,
			want:  9,
		},
		{
			name:  "clamped to scale",
			text:  "SCORE: 15\nFEEDBACK: over-enthusiastic judge",
			scale: 10,
			want:  10,
		},
		{
			name:  "scale five",
			text:  "SCORE: 4\nFEEDBACK: good",
			scale: 5,
			want:  4,
		},
		{
			name:    "no number at all",
			text:    "The response is acceptable.",
			scale:   10,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, feedback, err := ParseVerdict(tt.text, tt.scale)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got score %v", score)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if score != tt.want {
				t.Errorf("score = %v, want %v", score, tt.want)
			}
			if tt.feedback != "" && feedback != tt.feedback {
				t.Errorf("feedback = %q, want %q", feedback, tt.feedback)
			}
		})
	}
}

func TestBuildJudgePrompt(t *testing.T) {
	got := BuildJudgePrompt("Explain DNS", "DNS maps names to addresses.", []string{"accuracy", "clarity"}, 10)

	for _, want := range []string{
		"scale of 1 to 10",
		"- accuracy",
		"- clarity",
		"Explain DNS",
		"DNS maps names to addresses.",
		"SCORE:",
		"FEEDBACK:",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("judge prompt missing %q", want)
		}
	}
}

func TestBuildJudgePromptNoCriteria(t *testing.T) {
	got := BuildJudgePrompt("", "Some output.", nil, 5)
	if !strings.Contains(got, "overall quality") {
		t.Error("expected default criteria text when none are given")
	}
	if strings.Contains(got, "Original prompt:") {
		t.Error("prompt section should be omitted when prompt text is empty")
	}
}
