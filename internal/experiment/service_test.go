package experiment

import (
	"errors"
	"testing"

	"github.com/promptpit/promptpit/internal/models"
)

func TestCreateRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     CreateRequest
		wantErr bool
	}{
		{"valid summarization", CreateRequest{Name: "exp", Type: "summarization"}, false},
		{"valid qa", CreateRequest{Name: "exp", Type: "qa", TargetScore: 9.5, MaxIterations: 20}, false},
		{"report generation with report type", CreateRequest{Name: "exp", Type: "report_generation", ReportType: "financial"}, false},
		{"missing name", CreateRequest{Type: "qa"}, true},
		{"missing type", CreateRequest{Name: "exp"}, true},
		{"unknown type", CreateRequest{Name: "exp", Type: "prompt_optimization"}, true},
		{"report generation without report type", CreateRequest{Name: "exp", Type: "report_generation"}, true},
		{"target score too high", CreateRequest{Name: "exp", Type: "qa", TargetScore: 10.5}, true},
		{"target score negative", CreateRequest{Name: "exp", Type: "qa", TargetScore: -1}, true},
		{"max iterations too high", CreateRequest{Name: "exp", Type: "qa", MaxIterations: 21}, true},
		{"max iterations negative", CreateRequest{Name: "exp", Type: "qa", MaxIterations: -3}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.validate()
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidConfig) {
					t.Errorf("expected ErrInvalidConfig, got %v", err)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestCreateRequestValidateDefaults(t *testing.T) {
	req := CreateRequest{Name: "exp", Type: "translation"}
	if err := req.validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if req.UserID != "default_user" {
		t.Errorf("UserID = %q, want default_user", req.UserID)
	}
	if req.MaxIterations != 5 {
		t.Errorf("MaxIterations = %d, want 5", req.MaxIterations)
	}
	if req.TargetScore != 8.0 {
		t.Errorf("TargetScore = %v, want 8.0", req.TargetScore)
	}
}

func TestNextCycleIteration(t *testing.T) {
	e := &models.Experiment{Iterations: 2, MaxIterations: 5}

	got, err := nextCycleIteration(e, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 3 {
		t.Errorf("defaulted iteration = %d, want 3", got)
	}

	got, err = nextCycleIteration(e, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 5 {
		t.Errorf("iteration = %d, want 5", got)
	}
}

func TestNextCycleIterationOverBudget(t *testing.T) {
	e := &models.Experiment{Iterations: 5, MaxIterations: 5}

	if _, err := nextCycleIteration(e, 6); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig for explicit overrun, got %v", err)
	}
	// The default Iterations+1 must respect the budget too.
	if _, err := nextCycleIteration(e, 0); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig for defaulted overrun, got %v", err)
	}
}
