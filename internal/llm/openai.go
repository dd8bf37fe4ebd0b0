package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIVendor speaks the OpenAI chat-completions wire protocol. Groq exposes
// the same protocol on its own base URL, so both vendors share this type.
type OpenAIVendor struct {
	client *openai.Client
	name   string
}

func NewOpenAIVendor(apiKey string) *OpenAIVendor {
	return &OpenAIVendor{
		client: openai.NewClient(apiKey),
		name:   "openai",
	}
}

func NewGroqVendor(apiKey, baseURL string) *OpenAIVendor {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL
	return &OpenAIVendor{
		client: openai.NewClientWithConfig(cfg),
		name:   "groq",
	}
}

func (p *OpenAIVendor) Name() string { return p.name }

func (p *OpenAIVendor) ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	start := time.Now()

	msgs := make([]openai.ChatCompletionMessage, len(req.Messages))
	for i, m := range req.Messages {
		if len(m.ImageURLs) > 0 {
			parts := []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: m.Content},
			}
			for _, u := range m.ImageURLs {
				parts = append(parts, openai.ChatMessagePart{
					Type: openai.ChatMessagePartTypeImageURL,
					ImageURL: &openai.ChatMessageImageURL{
						URL:    u,
						Detail: openai.ImageURLDetailLow,
					},
				})
			}
			msgs[i] = openai.ChatCompletionMessage{Role: m.Role, MultiContent: parts}
			continue
		}
		msgs[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}

	oReq := openai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: msgs,
	}
	if req.Temperature > 0 {
		oReq.Temperature = float32(req.Temperature)
	}
	if req.MaxTokens > 0 {
		oReq.MaxTokens = req.MaxTokens
	}
	if req.TopP > 0 {
		oReq.TopP = float32(req.TopP)
	}
	if len(req.Stop) > 0 {
		oReq.Stop = req.Stop
	}

	resp, err := p.client.CreateChatCompletion(ctx, oReq)
	if err != nil {
		return nil, fmt.Errorf("%s chat: %w", p.name, err)
	}

	content := ""
	if len(resp.Choices) > 0 {
		content = resp.Choices[0].Message.Content
	}

	latency := time.Since(start).Milliseconds()
	cost := CalculateCost(req.Model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)

	return &ChatResponse{
		ID:           resp.ID,
		Provider:     p.name,
		Model:        resp.Model,
		Content:      content,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
		TotalTokens:  resp.Usage.TotalTokens,
		CostUSD:      cost,
		LatencyMs:    latency,
	}, nil
}

func (p *OpenAIVendor) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*EmbeddingResponse, error) {
	model := req.Model
	if model == "" {
		model = "text-embedding-3-small"
	}

	oReq := openai.EmbeddingRequest{
		Input: req.Input,
		Model: openai.EmbeddingModel(model),
	}

	resp, err := p.client.CreateEmbeddings(ctx, oReq)
	if err != nil {
		return nil, fmt.Errorf("%s embedding: %w", p.name, err)
	}

	embeddings := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		embeddings[i] = d.Embedding
	}

	cost := CalculateCost(model, resp.Usage.PromptTokens, 0)

	return &EmbeddingResponse{
		Provider:   p.name,
		Model:      model,
		Embeddings: embeddings,
		Tokens:     resp.Usage.TotalTokens,
		CostUSD:    cost,
	}, nil
}

// ListModels pulls the vendor's model list. Chat models are kept; vendor
// bookkeeping entries (whisper, tts, embeddings, moderation) are filtered out.
func (p *OpenAIVendor) ListModels(ctx context.Context) ([]VendorModel, error) {
	resp, err := p.client.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s list models: %w", p.name, err)
	}

	var out []VendorModel
	for _, m := range resp.Models {
		if !isChatModel(m.ID) {
			continue
		}
		out = append(out, VendorModel{
			Name:           m.ID,
			SupportsVision: supportsVision(m.ID),
		})
	}
	return out, nil
}

func isChatModel(id string) bool {
	excluded := []string{"whisper", "tts", "embedding", "moderation", "dall-e", "davinci", "babbage", "audio", "realtime", "transcribe", "guard"}
	for _, e := range excluded {
		if strings.Contains(id, e) {
			return false
		}
	}
	return true
}

func supportsVision(id string) bool {
	prefixes := []string{"gpt-4o", "gpt-4-turbo", "gpt-4.1", "gpt-5", "llama-3.2-11b-vision", "llama-3.2-90b-vision"}
	for _, p := range prefixes {
		if strings.HasPrefix(id, p) {
			return true
		}
	}
	return false
}
