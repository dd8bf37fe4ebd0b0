package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	ExperimentPending   = "pending"
	ExperimentRunning   = "running"
	ExperimentCompleted = "completed"
	ExperimentFailed    = "failed"
)

// ValidExperimentTransition reports whether an experiment may move from one
// status to another. The only legal path is pending -> running -> completed
// or failed; there is no direct pending -> completed shortcut.
func ValidExperimentTransition(from, to string) bool {
	switch from {
	case ExperimentPending:
		return to == ExperimentRunning
	case ExperimentRunning:
		return to == ExperimentCompleted || to == ExperimentFailed
	default:
		return false
	}
}

// Experiment is an iterative prompt-optimization run. The worker drives it
// through run -> judge -> revise cycles until the target score is reached or
// the iteration budget is exhausted.
type Experiment struct {
	ID            int64     `json:"id" db:"id"`
	UUID          uuid.UUID `json:"uuid" db:"uuid"`
	UserID        string    `json:"user_id" db:"user_id"`
	Name          string    `json:"name" db:"name"`
	Description   string    `json:"description,omitempty" db:"description"`
	Type          string    `json:"type" db:"type"`
	Status        string    `json:"status" db:"status"`
	Progress      float64   `json:"progress" db:"progress"`
	TargetScore   float64   `json:"target_score" db:"target_score"`
	CurrentScore  float64   `json:"current_score" db:"current_score"`
	Iterations    int       `json:"iterations" db:"iterations"`
	MaxIterations int       `json:"max_iterations" db:"max_iterations"`
	DatasetSize   int       `json:"dataset_size" db:"dataset_size"`
	ReportType    string    `json:"report_type,omitempty" db:"report_type"`
	PromptID      *int64    `json:"prompt_id,omitempty" db:"prompt_id"`
	Error         string    `json:"error,omitempty" db:"error"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// OptimizationCycle records one iteration of an experiment: the prompt that
// was tested, the output it produced, the judge score, and the edits proposed
// for the next iteration.
type OptimizationCycle struct {
	ID            int64     `json:"id" db:"id"`
	ExperimentID  int64     `json:"experiment_id" db:"experiment_id"`
	Iteration     int       `json:"iteration" db:"iteration"`
	Score         float64   `json:"score" db:"score"`
	PromptChanges string    `json:"prompt_changes,omitempty" db:"prompt_changes"`
	PromptID      *int64    `json:"prompt_id,omitempty" db:"prompt_id"`
	OutputID      *int64    `json:"output_id,omitempty" db:"output_id"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}
