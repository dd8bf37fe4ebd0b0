package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	CardDraft     = "draft"
	CardPublished = "published"
	CardArchived  = "archived"
)

// ModelCard is a shareable summary generated from a set of experiments.
type ModelCard struct {
	ID            int64       `json:"id" db:"id"`
	UUID          uuid.UUID   `json:"uuid" db:"uuid"`
	UserID        string      `json:"user_id" db:"user_id"`
	Title         string      `json:"title" db:"title"`
	Description   string      `json:"description,omitempty" db:"description"`
	Status        string      `json:"status" db:"status"`
	Metrics       CardMetrics `json:"metrics" db:"metrics"`
	ModelsTested  []string    `json:"models_tested" db:"models_tested"`
	Providers     []string    `json:"providers" db:"providers"`
	ExperimentIDs []int64     `json:"experiment_ids" db:"experiment_ids"`
	CreatedAt     time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at" db:"updated_at"`
}

// CardMetrics aggregates the experiments a card covers.
type CardMetrics struct {
	TotalPrompts     int     `json:"total_prompts"`
	TotalOutputs     int     `json:"total_outputs"`
	TotalEvaluations int     `json:"total_evaluations"`
	AvgScore         float64 `json:"avg_score"`
	TotalCost        float64 `json:"total_cost"`
}
