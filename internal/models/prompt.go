package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Prompt is the mutable draft entity. Running a prompt does not change it;
// locking snapshots the current state into an immutable PromptVersion.
type Prompt struct {
	ID           int64           `json:"id" db:"id"`
	UUID         uuid.UUID       `json:"uuid" db:"uuid"`
	UserID       string          `json:"user_id" db:"user_id"`
	ProviderID   int64           `json:"provider_id" db:"provider_id"`
	ModelID      int64           `json:"model_id" db:"model_id"`
	Title        string          `json:"title" db:"title"`
	Text         string          `json:"text" db:"text"`
	SystemPrompt string          `json:"system_prompt,omitempty" db:"system_prompt"`
	Temperature  float64         `json:"temperature" db:"temperature"`
	MaxTokens    int             `json:"max_tokens" db:"max_tokens"`
	LastOutput   json.RawMessage `json:"last_output,omitempty" db:"last_output"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at" db:"updated_at"`

	// Joined fields, populated on reads.
	ProviderName  string `json:"provider_name,omitempty" db:"-"`
	ModelName     string `json:"model_name,omitempty" db:"-"`
	VersionsCount int    `json:"versions_count" db:"-"`
}

// PromptVersion is an immutable snapshot created by a lock action. Rows are
// append-only; version numbers are assigned sequentially per prompt.
type PromptVersion struct {
	ID                 int64           `json:"id" db:"id"`
	PromptID           int64           `json:"prompt_id" db:"prompt_id"`
	VersionNumber      int             `json:"version_number" db:"version_number"`
	PromptText         string          `json:"prompt_text" db:"prompt_text"`
	SystemPrompt       string          `json:"system_prompt,omitempty" db:"system_prompt"`
	Temperature        float64         `json:"temperature" db:"temperature"`
	MaxTokens          int             `json:"max_tokens" db:"max_tokens"`
	ProviderID         int64           `json:"provider_id" db:"provider_id"`
	ModelID            int64           `json:"model_id" db:"model_id"`
	Files              json.RawMessage `json:"files,omitempty" db:"files"`
	Images             json.RawMessage `json:"images,omitempty" db:"images"`
	IncludeFileContent bool            `json:"include_file_content" db:"include_file_content"`
	FileContentPrefix  string          `json:"file_content_prefix" db:"file_content_prefix"`
	Output             json.RawMessage `json:"output,omitempty" db:"output"`
	LockedByUser       string          `json:"locked_by_user" db:"locked_by_user"`
	CreatedAt          time.Time       `json:"created_at" db:"created_at"`

	ModelName string `json:"model_name,omitempty" db:"-"`
}

// Output is the result of one prompt execution. Ephemeral runs (no prompt_id)
// are returned to the caller without being persisted.
type Output struct {
	ID               int64           `json:"id" db:"id"`
	PromptID         int64           `json:"prompt_id" db:"prompt_id"`
	OutputText       string          `json:"output_text" db:"output_text"`
	LatencyMs        float64         `json:"latency_ms" db:"latency_ms"`
	TokenUsage       TokenUsage      `json:"token_usage" db:"token_usage"`
	CostUSD          float64         `json:"cost_usd" db:"cost_usd"`
	ResponseMetadata json.RawMessage `json:"response_metadata,omitempty" db:"response_metadata"`
	RAGContext       string          `json:"rag_context,omitempty" db:"rag_context"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
}

type TokenUsage struct {
	Input  int `json:"input"`
	Output int `json:"output"`
	Total  int `json:"total"`
}

// Evaluation is a judge-LLM scoring of an Output. Re-judging is allowed, so
// many evaluations may reference one output.
type Evaluation struct {
	ID              int64           `json:"id" db:"id"`
	OutputID        int64           `json:"output_id" db:"output_id"`
	JudgeProviderID *int64          `json:"judge_provider_id,omitempty" db:"judge_provider_id"`
	JudgeModelID    *int64          `json:"judge_model_id,omitempty" db:"judge_model_id"`
	JudgePrompt     string          `json:"judge_prompt" db:"judge_prompt"`
	Score           float64         `json:"score" db:"score"`
	Feedback        string          `json:"feedback" db:"feedback"`
	Criteria        json.RawMessage `json:"criteria,omitempty" db:"criteria"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
}

// FileMeta describes an attachment recorded on a locked version.
type FileMeta struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
	Type string `json:"type"`
}
