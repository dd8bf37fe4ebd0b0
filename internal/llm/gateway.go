package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/promptpit/promptpit/internal/config"
)

// Gateway routes chat and embedding calls to the right vendor and retries
// transient failures with square backoff.
type Gateway interface {
	Chat(ctx context.Context, cred Credential, req ChatRequest) (*ChatResponse, error)
	Embed(ctx context.Context, cred Credential, req EmbeddingRequest) (*EmbeddingResponse, error)
	Vendor(cred Credential) (Vendor, error)
}

type gateway struct {
	groqBaseURL string
	maxRetries  int
}

func NewGateway(cfg config.LLMConfig) Gateway {
	return &gateway{
		groqBaseURL: cfg.GroqBaseURL,
		maxRetries:  cfg.MaxRetries,
	}
}

func (g *gateway) Vendor(cred Credential) (Vendor, error) {
	if cred.APIKey == "" {
		return nil, fmt.Errorf("provider %q has no API key configured", cred.Provider)
	}
	switch cred.Provider {
	case "openai":
		return NewOpenAIVendor(cred.APIKey), nil
	case "groq":
		return NewGroqVendor(cred.APIKey, g.groqBaseURL), nil
	case "anthropic":
		return NewAnthropicVendor(cred.APIKey), nil
	default:
		return nil, fmt.Errorf("unsupported provider %q", cred.Provider)
	}
}

func (g *gateway) Chat(ctx context.Context, cred Credential, req ChatRequest) (*ChatResponse, error) {
	v, err := g.Vendor(cred)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt*attempt) * 500 * time.Millisecond
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			slog.Debug("retrying LLM call", "provider", cred.Provider, "attempt", attempt)
		}

		resp, err := v.ChatCompletion(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("all retries exhausted for %s: %w", cred.Provider, lastErr)
}

func (g *gateway) Embed(ctx context.Context, cred Credential, req EmbeddingRequest) (*EmbeddingResponse, error) {
	v, err := g.Vendor(cred)
	if err != nil {
		return nil, err
	}
	return v.GenerateEmbedding(ctx, req)
}
