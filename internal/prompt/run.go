package prompt

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/promptpit/promptpit/internal/llm"
	"github.com/promptpit/promptpit/internal/models"
	"github.com/promptpit/promptpit/internal/provider"
	"github.com/promptpit/promptpit/pkg/textextract"
)

// ContextRetriever supplies knowledge-base context for augmented runs.
type ContextRetriever interface {
	RetrieveContext(ctx context.Context, kbID int64, query string, topK int) (string, []models.RAGSource, error)
}

// Runner executes prompts against the configured provider. Runs without a
// prompt ID are ephemeral: the result goes back to the caller and nothing is
// stored.
type Runner struct {
	db        *pgxpool.Pool
	gateway   llm.Gateway
	providers *provider.Service
	retriever ContextRetriever
}

func NewRunner(db *pgxpool.Pool, gw llm.Gateway, providers *provider.Service, retriever ContextRetriever) *Runner {
	return &Runner{db: db, gateway: gw, providers: providers, retriever: retriever}
}

// Attachment is an uploaded file whose text may be inlined into the prompt.
type Attachment struct {
	Name string
	Data []byte
}

type RunRequest struct {
	PromptID     int64
	ProviderID   int64
	ModelID      int64
	Text         string
	SystemPrompt string
	Temperature  float64
	MaxTokens    int
	UserID       string

	Files              []Attachment
	Images             []string // base64 data URLs
	IncludeFileContent bool
	FileContentPrefix  string

	KnowledgeBaseID int64
	RAGTopK         int
}

type RunResult struct {
	models.Output
	Provider   string             `json:"provider"`
	Model      string             `json:"model"`
	Persisted  bool               `json:"persisted"`
	RAGSources []models.RAGSource `json:"rag_sources,omitempty"`
}

func (r *Runner) Run(ctx context.Context, req RunRequest) (*RunResult, error) {
	if req.Text == "" {
		return nil, fmt.Errorf("prompt text is required")
	}
	if req.Temperature == 0 {
		req.Temperature = 0.7
	}
	if req.MaxTokens == 0 {
		req.MaxTokens = 1000
	}
	if req.FileContentPrefix == "" {
		req.FileContentPrefix = "File content:\n"
	}
	if req.RAGTopK == 0 {
		req.RAGTopK = 5
	}

	model, err := r.providers.GetModel(ctx, req.ModelID)
	if err != nil {
		return nil, err
	}
	if model.ProviderID != req.ProviderID {
		return nil, fmt.Errorf("model %d does not belong to provider %d", req.ModelID, req.ProviderID)
	}
	cred, err := r.providers.Credential(ctx, req.ProviderID)
	if err != nil {
		return nil, err
	}

	userContent := req.Text

	if req.IncludeFileContent && len(req.Files) > 0 {
		extracted, err := r.extractFiles(req.Files)
		if err != nil {
			return nil, err
		}
		if extracted != "" {
			userContent = inlineFileContent(req.FileContentPrefix, extracted, req.Text)
		}
	}

	var ragContext string
	var ragSources []models.RAGSource
	if req.KnowledgeBaseID > 0 && r.retriever != nil {
		ragContext, ragSources, err = r.retriever.RetrieveContext(ctx, req.KnowledgeBaseID, req.Text, req.RAGTopK)
		if err != nil {
			return nil, fmt.Errorf("retrieve context: %w", err)
		}
		if ragContext != "" {
			userContent = augmentWithContext(ragContext, userContent)
		}
	}

	messages := make([]llm.Message, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, llm.Message{Role: "system", Content: req.SystemPrompt})
	}
	messages = append(messages, llm.Message{
		Role:      "user",
		Content:   userContent,
		ImageURLs: req.Images,
	})

	resp, err := r.gateway.Chat(ctx, cred, llm.ChatRequest{
		Model:       model.Name,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("run prompt: %w", err)
	}

	result := &RunResult{
		Output: models.Output{
			PromptID:   req.PromptID,
			OutputText: resp.Content,
			LatencyMs:  float64(resp.LatencyMs),
			TokenUsage: models.TokenUsage{
				Input:  resp.InputTokens,
				Output: resp.OutputTokens,
				Total:  resp.TotalTokens,
			},
			CostUSD:    resp.CostUSD,
			RAGContext: ragContext,
		},
		Provider:   resp.Provider,
		Model:      resp.Model,
		RAGSources: ragSources,
	}

	if req.PromptID > 0 {
		if err := r.persist(ctx, result, resp); err != nil {
			return nil, err
		}
		result.Persisted = true
	}

	slog.Info("prompt executed",
		"prompt_id", req.PromptID,
		"provider", resp.Provider,
		"model", resp.Model,
		"tokens", resp.TotalTokens,
		"latency_ms", resp.LatencyMs,
		"persisted", result.Persisted,
	)
	return result, nil
}

func (r *Runner) extractFiles(files []Attachment) (string, error) {
	var parts []string
	for _, f := range files {
		if !textextract.IsSupported(f.Name) {
			return "", fmt.Errorf("unsupported file type: %s", f.Name)
		}
		text, err := textextract.ExtractBytes(f.Name, f.Data)
		if err != nil {
			return "", fmt.Errorf("extract %s: %w", f.Name, err)
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("--- %s ---\n%s", f.Name, text))
	}
	return strings.Join(parts, "\n\n"), nil
}

func augmentWithContext(context, question string) string {
	return "Based on the following context information:\n\n" + context +
		"\n\nPlease answer the following question:\n" + question
}

// inlineFileContent puts extracted document text ahead of the instruction so
// the model reads it before the prompt.
func inlineFileContent(prefix, extracted, text string) string {
	return prefix + extracted + "\n\nUser prompt: " + text
}

func (r *Runner) persist(ctx context.Context, result *RunResult, resp *llm.ChatResponse) error {
	meta, err := json.Marshal(map[string]any{
		"response_id": resp.ID,
		"provider":    resp.Provider,
		"model":       resp.Model,
	})
	if err != nil {
		return fmt.Errorf("marshal response metadata: %w", err)
	}
	result.ResponseMetadata = meta

	err = r.db.QueryRow(ctx,
		`INSERT INTO outputs (prompt_id, output_text, latency_ms, token_usage, cost_usd, response_metadata, rag_context)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at`,
		result.PromptID, result.OutputText, result.LatencyMs, result.TokenUsage,
		result.CostUSD, result.ResponseMetadata, result.RAGContext,
	).Scan(&result.ID, &result.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert output: %w", err)
	}

	last, err := json.Marshal(result.Output)
	if err != nil {
		return fmt.Errorf("marshal last output: %w", err)
	}
	if _, err := r.db.Exec(ctx,
		"UPDATE prompts SET last_output = $1, updated_at = now() WHERE id = $2",
		last, result.PromptID,
	); err != nil {
		return fmt.Errorf("update last output: %w", err)
	}
	return nil
}
