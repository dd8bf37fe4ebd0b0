package models

import "time"

// Provider is a configured LLM vendor account. The set of providers is fixed
// (openai, groq, anthropic); adding a provider means storing an API key and
// activating the row. API keys are never serialized to clients.
type Provider struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	APIKey    string    `json:"-" db:"api_key"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Model is one model offered by a provider, synced from the vendor API.
type Model struct {
	ID                 int64     `json:"id" db:"id"`
	ProviderID         int64     `json:"provider_id" db:"provider_id"`
	Name               string    `json:"name" db:"name"`
	Description        string    `json:"description,omitempty" db:"description"`
	ContextLength      int       `json:"context_length,omitempty" db:"context_length"`
	CostPerTokenInput  float64   `json:"cost_per_token_input,omitempty" db:"cost_per_token_input"`
	CostPerTokenOutput float64   `json:"cost_per_token_output,omitempty" db:"cost_per_token_output"`
	IsAvailable        bool      `json:"is_available" db:"is_available"`
	SupportsVision     bool      `json:"supports_vision" db:"supports_vision"`
	UpdatedAt          time.Time `json:"updated_at" db:"updated_at"`
}
