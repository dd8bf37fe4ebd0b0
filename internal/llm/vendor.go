package llm

import "context"

// Vendor abstracts one LLM vendor API (OpenAI, Groq, Anthropic). Instances
// are built per request from the API key stored for the provider, so a key
// update or removal takes effect immediately.
type Vendor interface {
	ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error)
	GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*EmbeddingResponse, error)
	ListModels(ctx context.Context) ([]VendorModel, error)
	Name() string
}

// Credential selects the vendor and carries its stored API key.
type Credential struct {
	Provider string
	APIKey   string
}

// Message is a single chat message.
type Message struct {
	Role    string `json:"role"` // system, user, assistant
	Content string `json:"content"`

	// ImageURLs holds base64 data URLs attached to a user message for
	// vision-capable models.
	ImageURLs []string `json:"image_urls,omitempty"`
}

type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	TopP        float64   `json:"top_p,omitempty"`
	Stop        []string  `json:"stop,omitempty"`
}

type ChatResponse struct {
	ID           string  `json:"id"`
	Provider     string  `json:"provider"`
	Model        string  `json:"model"`
	Content      string  `json:"content"`
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	TotalTokens  int     `json:"total_tokens"`
	CostUSD      float64 `json:"cost_usd"`
	LatencyMs    int64   `json:"latency_ms"`
}

type EmbeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type EmbeddingResponse struct {
	Provider   string      `json:"provider"`
	Model      string      `json:"model"`
	Embeddings [][]float32 `json:"embeddings"`
	Tokens     int         `json:"tokens"`
	CostUSD    float64     `json:"cost_usd"`
}

// VendorModel describes a model as reported by the vendor API during a
// refresh-models sync.
type VendorModel struct {
	Name           string `json:"name"`
	Description    string `json:"description,omitempty"`
	ContextLength  int    `json:"context_length,omitempty"`
	SupportsVision bool   `json:"supports_vision,omitempty"`
}
