package models

import "testing"

func TestValidExperimentTransition(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{ExperimentPending, ExperimentRunning, true},
		{ExperimentRunning, ExperimentCompleted, true},
		{ExperimentRunning, ExperimentFailed, true},
		{ExperimentPending, ExperimentCompleted, false},
		{ExperimentPending, ExperimentFailed, false},
		{ExperimentCompleted, ExperimentRunning, false},
		{ExperimentFailed, ExperimentRunning, false},
		{ExperimentCompleted, ExperimentPending, false},
		{ExperimentRunning, ExperimentPending, false},
		{"bogus", ExperimentRunning, false},
	}

	for _, tt := range tests {
		if got := ValidExperimentTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("ValidExperimentTransition(%q, %q) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}
